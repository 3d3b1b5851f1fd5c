// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"strings"
)

// A Value is an abstract value: an addressable quantity read or written by a unit. Two values are equivalent iff
// their keys are equal; the key is computed from the structure of the value and never from its identity.
//
// The set of values is closed: Local, InstanceField, StaticField, ArrayElem, CaughtException, Invoke and Constant.
type Value interface {
	// Key returns the structural key of the value. Equivalent values have equal keys.
	Key() string

	// Components returns the values read when the value itself is evaluated, e.g. the base and the index of an
	// array element. Components of a defined value are read by the defining unit.
	Components() []Value

	String() string

	isValue()
}

// Local is a local variable, a parameter or a register.
type Local struct {
	Name string
}

// InstanceField is a field of an object, e.g. x.f
type InstanceField struct {
	Base  Value
	Field string
}

// StaticField is a field that belongs to a type rather than an object, e.g. a global variable.
type StaticField struct {
	Owner string
	Field string
}

// ArrayElem is an element of an array, slice or map, e.g. a[i]
type ArrayElem struct {
	Base  Value
	Index Value
}

// CaughtException is the placeholder value bound at the entry of an exception handler.
type CaughtException struct{}

// Invoke is an invocation expression. The invocation itself is never looked up as a used value, but its receiver
// and arguments are.
type Invoke struct {
	Receiver Value // nil for static calls
	Method   string
	Args     []Value
}

// Constant is a literal.
type Constant struct {
	Text string
}

func (Local) isValue()           {}
func (InstanceField) isValue()   {}
func (StaticField) isValue()     {}
func (ArrayElem) isValue()       {}
func (CaughtException) isValue() {}
func (Invoke) isValue()          {}
func (Constant) isValue()        {}

// Key implements Value
func (v Local) Key() string { return "local:" + v.Name }

// Key implements Value
func (v InstanceField) Key() string { return "field:" + keyOf(v.Base) + "." + v.Field }

// Key implements Value
func (v StaticField) Key() string { return "static:" + v.Owner + "." + v.Field }

// Key implements Value
func (v ArrayElem) Key() string { return "array:" + keyOf(v.Base) + "[" + keyOf(v.Index) + "]" }

// Key implements Value
func (CaughtException) Key() string { return "@caughtexception" }

// Key implements Value
func (v Invoke) Key() string {
	var b strings.Builder
	b.WriteString("invoke:")
	b.WriteString(keyOf(v.Receiver))
	b.WriteString(".")
	b.WriteString(v.Method)
	b.WriteString("(")
	for i, a := range v.Args {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(keyOf(a))
	}
	b.WriteString(")")
	return b.String()
}

// Key implements Value
func (v Constant) Key() string { return "const:" + v.Text }

// Components implements Value
func (Local) Components() []Value { return nil }

// Components implements Value
func (v InstanceField) Components() []Value { return nonNil(v.Base) }

// Components implements Value
func (StaticField) Components() []Value { return nil }

// Components implements Value
func (v ArrayElem) Components() []Value { return nonNil(v.Base, v.Index) }

// Components implements Value
func (CaughtException) Components() []Value { return nil }

// Components implements Value
func (v Invoke) Components() []Value { return nonNil(append([]Value{v.Receiver}, v.Args...)...) }

// Components implements Value
func (Constant) Components() []Value { return nil }

func (v Local) String() string { return v.Name }

func (v InstanceField) String() string {
	if v.Base == nil {
		return v.Field
	}
	return v.Base.String() + "." + v.Field
}

func (v StaticField) String() string { return v.Owner + "." + v.Field }

func (v ArrayElem) String() string { return stringOf(v.Base) + "[" + stringOf(v.Index) + "]" }

func (CaughtException) String() string { return "@caughtexception" }

func (v Invoke) String() string {
	var b strings.Builder
	if v.Receiver != nil {
		b.WriteString(v.Receiver.String())
		b.WriteString(".")
	}
	b.WriteString(v.Method)
	b.WriteString("(")
	for i, a := range v.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(stringOf(a))
	}
	b.WriteString(")")
	return b.String()
}

func (v Constant) String() string { return v.Text }

// IsAddressable returns true if the value denotes storage that can be defined by a unit.
func IsAddressable(v Value) bool {
	switch v.(type) {
	case Local, InstanceField, StaticField, ArrayElem:
		return true
	}
	return false
}

// VisitComponents calls f on every transitive component of v, in depth-first pre-order, excluding v itself.
func VisitComponents(v Value, f func(Value)) {
	if v == nil {
		return
	}
	for _, c := range v.Components() {
		f(c)
		VisitComponents(c, f)
	}
}

func keyOf(v Value) string {
	if v == nil {
		return "_"
	}
	return v.Key()
}

func stringOf(v Value) string {
	if v == nil {
		return "_"
	}
	return v.String()
}

func nonNil(values ...Value) []Value {
	var res []Value
	for _, v := range values {
		if v != nil {
			res = append(res, v)
		}
	}
	return res
}

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

// Package ir contains the intermediate representation consumed by the dependence analyses: programs made of types,
// types made of methods, and method bodies made of units with explicit successors and exception handler regions.
package ir

import (
	"fmt"
	"strings"
	"sync"
)

// NoLine is the line of a unit without source position.
const NoLine = -1

// Kind is the kind of a unit.
type Kind int

// The kinds of units
const (
	Nop Kind = iota
	Assign
	Identity
	InvokeStmt
	If
	Goto
	Switch
	Return
	Throw
)

var kindNames = [...]string{"nop", "assign", "identity", "invoke", "if", "goto", "switch", "return", "throw"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// A Unit is a single operation of a method body. Units are immutable once the body is built.
type Unit struct {
	// Index is the position of the unit in the body
	Index int

	// Line is the source line of the unit, or NoLine
	Line int

	Kind Kind

	// Defs are the values written by the unit
	Defs []Value

	// Uses are the values read directly by the unit
	Uses []Value

	// Succs are the explicit control flow successors, fall-through included
	Succs []int

	// MayThrow is true if the unit may raise an exception
	MayThrow bool

	// Text is a printable form of the unit, used in logs and reports
	Text string
}

// Branches returns true if the unit is a branching instruction.
func (u *Unit) Branches() bool {
	return u.Kind == If || u.Kind == Goto || u.Kind == Switch
}

// IsCaughtExceptionBinding returns true if u is the synthetic identity unit that binds the caught exception at the
// entry of a handler.
func (u *Unit) IsCaughtExceptionBinding() bool {
	if u.Kind != Identity {
		return false
	}
	for _, v := range u.Uses {
		if _, ok := v.(CaughtException); ok {
			return true
		}
	}
	return false
}

// HasSideEffects returns true if the unit writes something else than a local or performs an invocation.
func (u *Unit) HasSideEffects() bool {
	for _, d := range u.Defs {
		if _, isLocal := d.(Local); !isLocal {
			return true
		}
	}
	side := false
	for _, v := range u.UseValues() {
		if _, isInvoke := v.(Invoke); isInvoke {
			side = true
		}
	}
	return side
}

// UseValues returns all the values read by the unit: its uses and their transitive components, followed by the
// transitive components of its definitions. The result may contain equivalent values.
func (u *Unit) UseValues() []Value {
	var res []Value
	add := func(v Value) { res = append(res, v) }
	for _, v := range u.Uses {
		add(v)
		VisitComponents(v, add)
	}
	for _, d := range u.Defs {
		VisitComponents(d, add)
	}
	return res
}

func (u *Unit) String() string {
	if u.Text != "" {
		return u.Text
	}
	var b strings.Builder
	b.WriteString(u.Kind.String())
	for i, d := range u.Defs {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(d.String())
	}
	if len(u.Uses) > 0 {
		if len(u.Defs) > 0 {
			b.WriteString(" =")
		}
		for i, v := range u.Uses {
			if i == 0 {
				b.WriteString(" ")
			} else {
				b.WriteString(", ")
			}
			b.WriteString(v.String())
		}
	}
	return b.String()
}

// A Trap is an exception handler region. Units with index in [Begin, End) are protected, and exceptions of type
// Exception (or any exception if Exception is empty) are handled at the unit Handler.
type Trap struct {
	Begin     int
	End       int
	Handler   int
	Exception string
}

// Covers returns true if the unit index i is in the protected range of the trap.
func (t Trap) Covers(i int) bool {
	return t.Begin <= i && i < t.End
}

// CatchesAll returns true if the trap handles any exception.
func (t Trap) CatchesAll() bool {
	return t.Exception == "" || t.Exception == CatchAllException
}

// CatchAllException is the name of the exception type that catches every exception.
const CatchAllException = "java.lang.Throwable"

// A Body is the ordered sequence of units of a method, with its exception handler regions.
type Body struct {
	Units []*Unit

	// Traps are ordered from innermost to outermost when regions are nested
	Traps []Trap
}

// Size returns the number of units in the body
func (b *Body) Size() int {
	return len(b.Units)
}

// HasBranches returns true if any unit of the body is a branching instruction.
func (b *Body) HasBranches() bool {
	for _, u := range b.Units {
		if u.Branches() {
			return true
		}
	}
	return false
}

// ExceptionDests returns the handlers that can receive an exception raised by the unit of index i, in trap order.
// A catch-all trap stops the search.
func (b *Body) ExceptionDests(i int) []int {
	if i < 0 || i >= len(b.Units) || !b.Units[i].MayThrow {
		return nil
	}
	var dests []int
	seen := map[int]bool{}
	for _, t := range b.Traps {
		if !t.Covers(i) {
			continue
		}
		if !seen[t.Handler] {
			seen[t.Handler] = true
			dests = append(dests, t.Handler)
		}
		if t.CatchesAll() {
			break
		}
	}
	return dests
}

// Lines returns the set of source lines touched by the units of the body.
func (b *Body) Lines() map[int]bool {
	lines := map[int]bool{}
	for _, u := range b.Units {
		if u.Line >= 0 {
			lines[u.Line] = true
		}
	}
	return lines
}

// BodyLoader retrieves the body of a method.
type BodyLoader func() (*Body, error)

// A Method is a method of a type. Non-concrete methods (abstract, interface or external) have no body.
type Method struct {
	Name      string
	Signature string
	Concrete  bool

	load BodyLoader
	once sync.Once
	body *Body
	err  error
}

// NewMethod returns a concrete method whose body is retrieved on demand by load. The body is retrieved at most
// once.
func NewMethod(name, signature string, load BodyLoader) *Method {
	return &Method{Name: name, Signature: signature, Concrete: true, load: load}
}

// NewMethodWithBody returns a concrete method with an already built body.
func NewMethodWithBody(name, signature string, body *Body) *Method {
	return NewMethod(name, signature, func() (*Body, error) { return body, nil })
}

// NewAbstractMethod returns a method without body.
func NewAbstractMethod(name, signature string) *Method {
	return &Method{Name: name, Signature: signature}
}

// Body returns the body of the method. It returns an error if the method is not concrete or the body cannot be
// retrieved.
func (m *Method) Body() (*Body, error) {
	if !m.Concrete || m.load == nil {
		return nil, fmt.Errorf("method %s has no body", m.Signature)
	}
	m.once.Do(func() {
		m.body, m.err = m.load()
		if m.err == nil && m.body == nil {
			m.err = fmt.Errorf("method %s: nil body", m.Signature)
		}
	})
	return m.body, m.err
}

func (m *Method) String() string {
	return m.Signature
}

// A Type is an analyzed type: a class, or a source file for languages where methods are not owned by classes.
type Type struct {
	Name    string
	Methods []*Method
}

// A Program is the set of analyzed types.
type Program struct {
	Types []*Type
}

// TypeByName returns the type with the given name, or nil.
func (p *Program) TypeByName(name string) *Type {
	for _, t := range p.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

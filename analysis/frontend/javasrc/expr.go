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

package javasrc

import (
	"strings"
	"unicode"

	"github.com/awslabs/ar-go-pdg/analysis/ir"
	sitter "github.com/smacker/go-tree-sitter"
)

// reads returns the values read by the evaluation of e. Assignments, updates and switches nested in e are lowered
// before the unit reading their result. Lambdas and method references are not evaluated.
//
//gocyclo:ignore
func (l *lowerer) reads(e *sitter.Node) []ir.Value {
	if e == nil {
		return nil
	}
	switch e.Type() {
	case "identifier":
		return nonNil(l.resolve(l.f.text(e)))
	case "this", "super":
		return []ir.Value{this}
	case "field_access", "array_access":
		return nonNil(l.path(e))
	case "method_invocation", "object_creation_expression":
		return []ir.Value{l.invoke(e)}
	case "assignment_expression":
		return []ir.Value{l.assign(e)}
	case "update_expression":
		return []ir.Value{l.update(e)}
	case "switch_expression":
		r := l.temp()
		l.switchStmt(e, r)
		return []ir.Value{r}
	case "cast_expression":
		return l.reads(e.ChildByFieldName("value"))
	case "instanceof_expression":
		return l.reads(e.ChildByFieldName("left"))
	case "lambda_expression", "method_reference", "class_literal":
		return nil
	}
	var res []ir.Value
	for _, c := range namedChildren(e) {
		res = append(res, l.reads(c)...)
	}
	return res
}

// operand returns the single value of e. Expressions that are not locations, invocations or literals are assigned
// to a temporary first.
func (l *lowerer) operand(e *sitter.Node) ir.Value {
	for e != nil && e.Type() == "parenthesized_expression" {
		e = firstNamed(e)
	}
	if e == nil {
		return nil
	}
	switch e.Type() {
	case "identifier":
		return l.resolve(l.f.text(e))
	case "this", "super":
		return this
	case "field_access", "array_access":
		return l.path(e)
	case "method_invocation", "object_creation_expression":
		return l.invoke(e)
	case "assignment_expression":
		return l.assign(e)
	case "update_expression":
		return l.update(e)
	case "lambda_expression", "method_reference", "class_literal":
		return nil
	}
	if isLiteral(e) {
		return ir.Constant{Text: l.f.text(e)}
	}
	t := l.temp()
	l.text(l.b.Assign(line(e), t, l.reads(e)...), e)
	return t
}

// throws returns true if evaluating n may raise an exception other than the ones of its invocations, field and
// array accesses: an integer division or remainder, a reference cast, or an array allocation. Assignments, updates
// and switches nested in n are lowered to units of their own and are not inspected.
func throws(n *sitter.Node) bool {
	return throwsIn(n, true)
}

func throwsIn(n *sitter.Node, root bool) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "lambda_expression", "method_reference", "class_body":
		return false
	case "assignment_expression", "update_expression", "switch_expression":
		if !root {
			return false
		}
	case "array_creation_expression":
		return true
	case "cast_expression":
		if t := n.ChildByFieldName("type"); t != nil && !isPrimitive(t) {
			return true
		}
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		switch op.Type() {
		case "/", "%", "/=", "%=":
			if !isFloating(n.ChildByFieldName("left")) && !isFloating(n.ChildByFieldName("right")) {
				return true
			}
		}
	}
	for _, c := range namedChildren(n) {
		if throwsIn(c, false) {
			return true
		}
	}
	return false
}

func isPrimitive(t *sitter.Node) bool {
	switch t.Type() {
	case "integral_type", "floating_point_type", "boolean_type":
		return true
	}
	return false
}

// isFloating returns true for floating point literals, possibly parenthesized.
func isFloating(n *sitter.Node) bool {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = firstNamed(n)
	}
	return n != nil && n.Type() == "decimal_floating_point_literal"
}

// resolve returns the value named by an identifier, or nil if it names a type.
func (l *lowerer) resolve(name string) ir.Value {
	switch {
	case l.isLocal(name):
		return ir.Local{Name: name}
	case l.c.fields[name] && (l.c.staticFields[name] || l.static):
		return ir.StaticField{Owner: l.c.name, Field: name}
	case l.c.fields[name]:
		return ir.InstanceField{Base: this, Field: name}
	case isTypeName(name):
		return nil
	case l.static:
		return ir.StaticField{Owner: l.c.name, Field: name}
	default:
		// inherited field
		return ir.InstanceField{Base: this, Field: name}
	}
}

func (l *lowerer) isTypeRef(n *sitter.Node) bool {
	if n.Type() != "identifier" {
		return false
	}
	name := l.f.text(n)
	return !l.isLocal(name) && !l.c.fields[name] && isTypeName(name)
}

// path returns the location of a field or an array access.
func (l *lowerer) path(e *sitter.Node) ir.Value {
	if e.Type() == "array_access" {
		base := l.operand(e.ChildByFieldName("array"))
		return ir.ArrayElem{Base: base, Index: l.operand(e.ChildByFieldName("index"))}
	}
	obj := e.ChildByFieldName("object")
	field := l.f.text(e.ChildByFieldName("field"))
	switch {
	case obj == nil || obj.Type() == "this" || obj.Type() == "super":
		return ir.InstanceField{Base: this, Field: field}
	case l.isTypeRef(obj):
		return ir.StaticField{Owner: l.f.qualify(l.f.text(obj)), Field: field}
	default:
		return ir.InstanceField{Base: l.operand(obj), Field: field}
	}
}

// lvalue returns the location written by an assignment to e.
func (l *lowerer) lvalue(e *sitter.Node) ir.Value {
	for e.Type() == "parenthesized_expression" && firstNamed(e) != nil {
		e = firstNamed(e)
	}
	switch e.Type() {
	case "identifier":
		if v := l.resolve(l.f.text(e)); v != nil {
			return v
		}
	case "field_access", "array_access":
		return l.path(e)
	}
	return ir.Local{Name: l.f.text(e)}
}

// invoke returns the invocation of a method or a constructor. The receiver is evaluated before the arguments.
func (l *lowerer) invoke(e *sitter.Node) ir.Invoke {
	if e.Type() == "object_creation_expression" {
		class := l.f.qualify(erase(l.f.text(e.ChildByFieldName("type"))))
		return ir.Invoke{Method: class + ".<init>", Args: l.args(e.ChildByFieldName("arguments"))}
	}
	name := l.f.text(e.ChildByFieldName("name"))
	obj := e.ChildByFieldName("object")
	var call ir.Invoke
	switch {
	case obj == nil && l.static:
		call.Method = l.c.name + "." + name
	case obj == nil || obj.Type() == "this" || obj.Type() == "super":
		call.Receiver = this
		call.Method = name
	case l.isTypeRef(obj):
		call.Method = l.f.qualify(l.f.text(obj)) + "." + name
	default:
		call.Receiver = l.operand(obj)
		call.Method = name
	}
	call.Args = l.args(e.ChildByFieldName("arguments"))
	return call
}

func (l *lowerer) args(list *sitter.Node) []ir.Value {
	var res []ir.Value
	for _, a := range namedChildren(list) {
		if v := l.operand(a); v != nil {
			res = append(res, v)
		}
	}
	return res
}

// assign lowers an assignment and returns the assigned location. Compound assignments read the location.
func (l *lowerer) assign(e *sitter.Node) ir.Value {
	lhs := l.lvalue(e.ChildByFieldName("left"))
	var uses []ir.Value
	if op := e.ChildByFieldName("operator"); op != nil && op.Type() != "=" {
		uses = append(uses, lhs)
	}
	uses = append(uses, l.reads(e.ChildByFieldName("right"))...)
	l.text(l.b.Assign(line(e), lhs, uses...), e)
	return lhs
}

// update lowers x++, x--, ++x and --x as x = x.
func (l *lowerer) update(e *sitter.Node) ir.Value {
	x := l.lvalue(firstNamed(e))
	l.text(l.b.Assign(line(e), x, x), e)
	return x
}

func isLiteral(e *sitter.Node) bool {
	t := e.Type()
	return strings.HasSuffix(t, "_literal") || t == "true" || t == "false" || t == "text_block"
}

// isTypeName returns true for capitalized names that are not constants, e.g. Math but not MAX_VALUE.
func isTypeName(name string) bool {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return false
	}
	for _, r := range name {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

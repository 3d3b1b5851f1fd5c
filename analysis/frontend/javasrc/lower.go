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
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-pdg/analysis/ir"
	sitter "github.com/smacker/go-tree-sitter"
)

var this = ir.Local{Name: "this"}

// A frame is a statement that break, continue or yield can leave.
type frame struct {
	label      string
	breakTo    ir.Label
	continueTo ir.Label
	loop       bool
	isSwitch   bool
	result     ir.Value // result of a switch expression, nil otherwise
	guards     int      // number of guards enclosing the statement
}

// A region is a set of unit ranges protected by the same handlers. The code run by a jump leaving the region is
// not part of it.
type region struct {
	b    *ir.Builder
	open ir.Label
	segs [][2]ir.Label
}

func newRegion(b *ir.Builder) *region { return &region{b: b, open: b.Here()} }

func (r *region) suspend() { r.segs = append(r.segs, [2]ir.Label{r.open, r.b.Here()}) }

func (r *region) resume() { r.open = r.b.Here() }

func (r *region) trap(handler ir.Label, exception string) {
	for _, seg := range r.segs {
		r.b.Trap(seg[0], seg[1], handler, exception)
	}
}

// A guard is a try statement or a resource whose region is being lowered. Its cleanup, if any, runs before every
// jump leaving the region.
type guard struct {
	region  *region
	cleanup func()

	// frames and scopes enclosing the guard, visible to the cleanup
	frames, scopes int
}

// A lowerer lowers the statements of one method body.
type lowerer struct {
	f      *file
	c      *class
	static bool
	b      *ir.Builder
	scopes []map[string]bool
	frames []*frame
	guards []*guard
	temps  int

	// pendingLabel is the label of the labeled loop being lowered
	pendingLabel string
}

func newLowerer(f *file, c *class, static bool) *lowerer {
	return &lowerer{f: f, c: c, static: static, b: ir.NewBuilder(), scopes: []map[string]bool{{}}}
}

// enter binds this and the parameters.
func (l *lowerer) enter(static bool, params *sitter.Node) {
	if !static {
		l.b.Identity(ir.NoLine, this, ir.Local{Name: "@this"})
	}
	i := 0
	for _, p := range namedChildren(params) {
		var name string
		switch p.Type() {
		case "formal_parameter":
			name = l.f.text(p.ChildByFieldName("name"))
		case "spread_parameter":
			for _, d := range namedChildren(p) {
				if d.Type() == "variable_declarator" {
					name = l.f.text(d.ChildByFieldName("name"))
				}
			}
		default:
			continue
		}
		l.declare(name)
		l.b.Identity(ir.NoLine, ir.Local{Name: name}, ir.Local{Name: "@parameter" + strconv.Itoa(i)})
		i++
	}
}

// exit adds the implicit return of a body whose end is reachable. A void method returns at its closing brace.
func (l *lowerer) exit(void bool, body *sitter.Node) {
	if !l.b.FallsThrough() {
		return
	}
	if void {
		l.b.Return(endLine(body))
	} else {
		l.b.Return(ir.NoLine)
	}
}

func (l *lowerer) initializers(decls []*sitter.Node) {
	for _, d := range decls {
		switch d.Type() {
		case "field_declaration", "constant_declaration":
			for _, v := range childrenByField(d, "declarator") {
				value := v.ChildByFieldName("value")
				if value == nil {
					continue
				}
				name := l.f.text(v.ChildByFieldName("name"))
				var lhs ir.Value = ir.InstanceField{Base: this, Field: name}
				if l.static {
					lhs = ir.StaticField{Owner: l.c.name, Field: name}
				}
				l.text(l.b.Assign(line(v), lhs, l.reads(value)...), v)
			}
		case "static_initializer":
			for _, b := range namedChildren(d) {
				if b.Type() == "block" {
					l.block(b)
				}
			}
		case "block":
			l.block(d)
		}
	}
}

func (l *lowerer) declare(name string) {
	l.scopes[len(l.scopes)-1][name] = true
}

func (l *lowerer) isLocal(name string) bool {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if l.scopes[i][name] {
			return true
		}
	}
	return false
}

func (l *lowerer) push() { l.scopes = append(l.scopes, map[string]bool{}) }

func (l *lowerer) pop() { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *lowerer) temp() ir.Local {
	t := ir.Local{Name: "$t" + strconv.Itoa(l.temps)}
	l.temps++
	return t
}

// text sets the printable form of unit i to the first line of the source of n, and marks the unit as throwing when
// the evaluation of n may throw.
func (l *lowerer) text(i int, n *sitter.Node) {
	l.setText(i, n)
	if throws(n) {
		l.b.SetMayThrow(i, true)
	}
}

func (l *lowerer) setText(i int, n *sitter.Node) {
	s := l.f.text(n)
	if j := strings.IndexByte(s, '\n'); j >= 0 {
		s = strings.TrimSpace(s[:j]) + " ..."
	}
	l.b.SetText(i, s)
}

func (l *lowerer) block(n *sitter.Node) {
	l.push()
	for _, s := range namedChildren(n) {
		l.stmt(s)
	}
	l.pop()
}

func (l *lowerer) stmt(n *sitter.Node) {
	switch n.Type() {
	case "block":
		l.block(n)
	case "local_variable_declaration":
		l.localDecl(n)
	case "expression_statement":
		if e := firstNamed(n); e != nil {
			l.effect(e)
		}
	case "if_statement":
		l.ifStmt(n)
	case "while_statement":
		l.whileStmt(n)
	case "do_statement":
		l.doStmt(n)
	case "for_statement":
		l.forStmt(n)
	case "enhanced_for_statement":
		l.forEachStmt(n)
	case "switch_expression", "switch_statement":
		l.switchStmt(n, nil)
	case "labeled_statement":
		l.labeled(n)
	case "break_statement":
		l.jump(n, l.breakTarget)
	case "continue_statement":
		l.jump(n, l.continueTarget)
	case "yield_statement":
		l.yield(n)
	case "return_statement":
		l.returnStmt(n)
	case "throw_statement":
		l.text(l.b.Throw(line(n), l.operand(firstNamed(n))), n)
	case "try_statement", "try_with_resources_statement":
		l.tryStmt(n)
	case "synchronized_statement":
		var lock ir.Value
		for _, c := range namedChildren(n) {
			if c.Type() == "parenthesized_expression" {
				lock = l.operand(c)
			}
		}
		i := l.b.Emit(ir.Nop, line(n), nil, nonNil(lock))
		l.b.SetMayThrow(i, true)
		l.text(i, n)
		l.stmt(n.ChildByFieldName("body"))
	case "assert_statement":
		l.assertStmt(n)
	case "explicit_constructor_invocation":
		call := ir.Invoke{Receiver: this, Method: "<init>", Args: l.args(n.ChildByFieldName("arguments"))}
		l.text(l.b.Invoke(line(n), call), n)
	case "local_class_declaration", "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "empty_statement", ";":
		l.f.logger.Tracef("%s:%d: %s not lowered", l.c.name, line(n), n.Type())
	default:
		l.f.logger.Debugf("%s:%d: unexpected %s, lowered as a no-op", l.c.name, line(n), n.Type())
	}
}

// returnStmt evaluates the returned value before the cleanups of the enclosing guards run.
func (l *lowerer) returnStmt(n *sitter.Node) {
	var values []ir.Value
	if e := firstNamed(n); e != nil {
		values = l.reads(e)
	}
	if len(values) == 0 || !l.hasCleanup(0) {
		l.leave(0, func() { l.text(l.b.Return(line(n), values...), n) })
		return
	}
	t := l.temp()
	l.text(l.b.Assign(line(n), t, values...), n)
	l.leave(0, func() { l.setText(l.b.Return(line(n), t), n) })
}

// assertStmt lowers assert cond : message as if (!cond) throw new AssertionError(message).
func (l *lowerer) assertStmt(n *sitter.Node) {
	children := namedChildren(n)
	if len(children) == 0 {
		return
	}
	ok := l.b.NewLabel()
	l.text(l.b.If(line(n), ok, l.reads(children[0])...), n)
	var args []ir.Value
	if len(children) > 1 {
		args = nonNil(l.operand(children[1]))
	}
	err := l.temp()
	l.b.Assign(line(n), err, ir.Invoke{Method: "java.lang.AssertionError.<init>", Args: args})
	l.b.Throw(line(n), err)
	l.b.Bind(ok)
}

func (l *lowerer) localDecl(n *sitter.Node) {
	for _, d := range childrenByField(n, "declarator") {
		name := l.f.text(d.ChildByFieldName("name"))
		value := d.ChildByFieldName("value")
		if value != nil {
			rhs := l.reads(value)
			l.declare(name)
			l.text(l.b.Assign(line(d), ir.Local{Name: name}, rhs...), d)
		} else {
			l.declare(name)
		}
	}
}

// effect lowers an expression evaluated for its side effects.
func (l *lowerer) effect(e *sitter.Node) {
	switch e.Type() {
	case "assignment_expression":
		l.assign(e)
	case "update_expression":
		l.update(e)
	case "method_invocation", "object_creation_expression":
		l.text(l.b.Invoke(line(e), l.invoke(e)), e)
	case "parenthesized_expression":
		l.effect(firstNamed(e))
	default:
		l.text(l.b.Emit(ir.Nop, line(e), nil, l.reads(e)), e)
	}
}

func (l *lowerer) ifStmt(n *sitter.Node) {
	cond := n.ChildByFieldName("condition")
	elseL := l.b.NewLabel()
	l.text(l.b.If(line(cond), elseL, l.reads(cond)...), cond)
	l.stmt(n.ChildByFieldName("consequence"))
	alt := n.ChildByFieldName("alternative")
	if alt == nil {
		l.b.Bind(elseL)
		return
	}
	end := l.b.NewLabel()
	if l.b.FallsThrough() {
		l.b.Goto(ir.NoLine, end)
	}
	l.b.Bind(elseL)
	l.stmt(alt)
	l.b.Bind(end)
}

// loop pushes the frame of a loop, taking the pending label.
func (l *lowerer) loop(breakTo, continueTo ir.Label) {
	l.frames = append(l.frames, &frame{label: l.pendingLabel, breakTo: breakTo, continueTo: continueTo, loop: true,
		guards: len(l.guards)})
	l.pendingLabel = ""
}

func (l *lowerer) popFrame() { l.frames = l.frames[:len(l.frames)-1] }

// condition adds the loop test branching to exit when cond is false. Constant true conditions add nothing.
func (l *lowerer) condition(cond *sitter.Node, exit ir.Label) {
	if cond == nil || isTrue(cond) {
		return
	}
	l.text(l.b.If(line(cond), exit, l.reads(cond)...), cond)
}

func (l *lowerer) whileStmt(n *sitter.Node) {
	head := l.b.Here()
	exit := l.b.NewLabel()
	l.loop(exit, head)
	l.condition(n.ChildByFieldName("condition"), exit)
	l.stmt(n.ChildByFieldName("body"))
	l.popFrame()
	if l.b.FallsThrough() {
		l.b.Goto(ir.NoLine, head)
	}
	l.b.Bind(exit)
}

func (l *lowerer) doStmt(n *sitter.Node) {
	head := l.b.Here()
	cont := l.b.NewLabel()
	exit := l.b.NewLabel()
	l.loop(exit, cont)
	l.stmt(n.ChildByFieldName("body"))
	l.popFrame()
	l.b.Bind(cont)
	cond := n.ChildByFieldName("condition")
	if isTrue(cond) {
		l.b.Goto(ir.NoLine, head)
	} else {
		l.text(l.b.If(line(cond), head, l.reads(cond)...), cond)
	}
	l.b.Bind(exit)
}

func (l *lowerer) forStmt(n *sitter.Node) {
	l.push()
	defer l.pop()
	for _, i := range childrenByField(n, "init") {
		if i.Type() == "local_variable_declaration" {
			l.localDecl(i)
		} else {
			l.effect(i)
		}
	}
	head := l.b.Here()
	cont := l.b.NewLabel()
	exit := l.b.NewLabel()
	l.loop(exit, cont)
	l.condition(n.ChildByFieldName("condition"), exit)
	l.stmt(n.ChildByFieldName("body"))
	l.popFrame()
	l.b.Bind(cont)
	for _, u := range childrenByField(n, "update") {
		l.effect(u)
	}
	if l.b.FallsThrough() {
		l.b.Goto(ir.NoLine, head)
	}
	l.b.Bind(exit)
}

// forEachStmt lowers for (T x : e) body as an iteration over e.iterator().
func (l *lowerer) forEachStmt(n *sitter.Node) {
	l.push()
	defer l.pop()
	ln := line(n)
	it := l.temp()
	l.b.Assign(ln, it, ir.Invoke{Receiver: l.operand(n.ChildByFieldName("value")), Method: "iterator"})
	head := l.b.Here()
	exit := l.b.NewLabel()
	l.loop(exit, head)
	l.b.If(ln, exit, ir.Invoke{Receiver: it, Method: "hasNext"})
	name := l.f.text(n.ChildByFieldName("name"))
	l.declare(name)
	l.b.Assign(ln, ir.Local{Name: name}, ir.Invoke{Receiver: it, Method: "next"})
	l.stmt(n.ChildByFieldName("body"))
	l.popFrame()
	if l.b.FallsThrough() {
		l.b.Goto(ir.NoLine, head)
	}
	l.b.Bind(exit)
}

// switchStmt lowers a switch. When result is not nil, the switch is an expression and its value is assigned to
// result.
func (l *lowerer) switchStmt(n *sitter.Node, result ir.Value) {
	key := l.operand(n.ChildByFieldName("condition"))
	var cases []*sitter.Node
	for _, c := range namedChildren(n.ChildByFieldName("body")) {
		if c.Type() == "switch_block_statement_group" || c.Type() == "switch_rule" {
			cases = append(cases, c)
		}
	}
	exit := l.b.NewLabel()
	labels := make([]ir.Label, len(cases))
	var targets []ir.Label
	defaultTarget := exit
	for i, c := range cases {
		labels[i] = l.b.NewLabel()
		for _, sl := range namedChildren(c) {
			if sl.Type() != "switch_label" {
				continue
			}
			if strings.HasPrefix(strings.TrimSpace(l.f.text(sl)), "default") {
				defaultTarget = labels[i]
			} else {
				targets = append(targets, labels[i])
			}
		}
	}
	l.text(l.b.Switch(line(n), key, append(targets, defaultTarget)...), n.ChildByFieldName("condition"))

	l.frames = append(l.frames, &frame{label: l.pendingLabel, breakTo: exit, isSwitch: true, result: result,
		guards: len(l.guards)})
	l.pendingLabel = ""
	l.push()
	for i, c := range cases {
		l.b.Bind(labels[i])
		for _, s := range namedChildren(c) {
			if s.Type() == "switch_label" {
				continue
			}
			if c.Type() == "switch_rule" && result != nil && s.Type() == "expression_statement" {
				l.text(l.b.Assign(line(s), result, l.reads(firstNamed(s))...), s)
			} else {
				l.stmt(s)
			}
		}
		// rules never fall through to the next case
		if c.Type() == "switch_rule" && l.b.FallsThrough() {
			l.b.Goto(ir.NoLine, exit)
		}
	}
	l.pop()
	l.popFrame()
	l.b.Bind(exit)
}

func (l *lowerer) labeled(n *sitter.Node) {
	children := namedChildren(n)
	if len(children) < 2 {
		return
	}
	label := l.f.text(children[0])
	body := children[len(children)-1]
	switch body.Type() {
	case "while_statement", "do_statement", "for_statement", "enhanced_for_statement", "switch_expression",
		"switch_statement":
		l.pendingLabel = label
		l.stmt(body)
	default:
		end := l.b.NewLabel()
		l.frames = append(l.frames, &frame{label: label, breakTo: end, guards: len(l.guards)})
		l.stmt(body)
		l.popFrame()
		l.b.Bind(end)
	}
}

func (l *lowerer) breakTarget(label string) (ir.Label, *frame) {
	for i := len(l.frames) - 1; i >= 0; i-- {
		fr := l.frames[i]
		if (label == "" && (fr.loop || fr.isSwitch)) || (label != "" && fr.label == label) {
			return fr.breakTo, fr
		}
	}
	return 0, nil
}

func (l *lowerer) continueTarget(label string) (ir.Label, *frame) {
	for i := len(l.frames) - 1; i >= 0; i-- {
		fr := l.frames[i]
		if fr.loop && (label == "" || fr.label == label) {
			return fr.continueTo, fr
		}
	}
	return 0, nil
}

func (l *lowerer) jump(n *sitter.Node, target func(string) (ir.Label, *frame)) {
	label := ""
	if id := firstNamed(n); id != nil && id.Type() == "identifier" {
		label = l.f.text(id)
	}
	t, fr := target(label)
	if fr == nil {
		l.f.logger.Debugf("%s:%d: %s without target, lowered as a no-op", l.c.name, line(n), n.Type())
		l.b.Nop(line(n))
		return
	}
	l.leave(fr.guards, func() { l.text(l.b.Goto(line(n), t), n) })
}

func (l *lowerer) yield(n *sitter.Node) {
	var values []ir.Value
	if e := firstNamed(n); e != nil {
		values = l.reads(e)
	}
	for i := len(l.frames) - 1; i >= 0; i-- {
		if fr := l.frames[i]; fr.isSwitch && fr.result != nil {
			l.text(l.b.Assign(line(n), fr.result, values...), n)
			l.leave(fr.guards, func() { l.b.Goto(ir.NoLine, fr.breakTo) })
			return
		}
	}
	l.text(l.b.Emit(ir.Nop, line(n), nil, values), n)
}

// enterGuard starts the region of a new innermost guard.
func (l *lowerer) enterGuard(cleanup func()) *guard {
	g := &guard{region: newRegion(l.b), cleanup: cleanup, frames: len(l.frames), scopes: len(l.scopes)}
	l.guards = append(l.guards, g)
	return g
}

// exitGuard ends the region of the innermost guard g.
func (l *lowerer) exitGuard(g *guard) {
	g.region.suspend()
	l.guards = l.guards[:len(l.guards)-1]
}

func (l *lowerer) hasCleanup(depth int) bool {
	for _, g := range l.guards[depth:] {
		if g.cleanup != nil {
			return true
		}
	}
	return false
}

// leave adds a jump leaving the guards above depth. The cleanups of the guards run first, innermost first; each
// guard's region is suspended from its own cleanup to the jump. Nothing is added when control does not fall through.
func (l *lowerer) leave(depth int, jump func()) {
	guards, frames, scopes := l.guards, l.frames, l.scopes
	i := len(guards)
	for i > depth && l.b.FallsThrough() {
		i--
		g := guards[i]
		g.region.suspend()
		if g.cleanup != nil {
			l.guards, l.frames, l.scopes = guards[:i:i], frames[:g.frames:g.frames], scopes[:g.scopes:g.scopes]
			g.cleanup()
		}
	}
	l.guards, l.frames, l.scopes = guards, frames, scopes
	if l.b.FallsThrough() {
		jump()
	}
	for _, g := range guards[i:] {
		g.region.resume()
	}
}

// rethrow adds the handler of the region of g for any exception: it runs cleanup and throws the exception again.
func (l *lowerer) rethrow(g *guard, ln int, cleanup func()) {
	handler := l.b.Here()
	g.region.trap(handler, ir.CatchAllException)
	exc := l.temp()
	l.b.CatchException(ln, exc)
	cleanup()
	if l.b.FallsThrough() {
		l.b.Throw(ir.NoLine, exc)
	}
}

// tryStmt lowers a try statement. The catch clauses handle the exceptions of the resources and the try block. The
// finally block runs before every jump leaving the try block or a catch clause, and in a handler for any exception
// raised there, which rethrows it.
func (l *lowerer) tryStmt(n *sitter.Node) {
	var finally *sitter.Node
	var catches, resources []*sitter.Node
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "catch_clause":
			catches = append(catches, c)
		case "finally_clause":
			finally = firstNamed(c)
		case "resource_specification":
			resources = namedChildren(c)
		}
	}
	after := l.b.NewLabel()
	exit := func() { l.b.Goto(ir.NoLine, after) }
	depth := len(l.guards)
	var fin *guard
	if finally != nil {
		fin = l.enterGuard(func() { l.block(finally) })
	}
	caught := l.enterGuard(nil)
	l.push()
	l.withResources(resources, line(n), func() { l.stmt(n.ChildByFieldName("body")) })
	l.pop()
	l.leave(depth, exit)
	l.exitGuard(caught)

	for _, c := range catches {
		l.catchClause(c, caught.region)
		l.leave(depth, exit)
	}
	if fin != nil {
		l.exitGuard(fin)
		l.rethrow(fin, line(finally), func() { l.block(finally) })
	}
	l.b.Bind(after)
}

// catchClause lowers a catch clause handling the exceptions of its types raised in r.
func (l *lowerer) catchClause(c *sitter.Node, r *region) {
	l.push()
	defer l.pop()
	handler := l.b.Here()
	var name string
	for _, p := range namedChildren(c) {
		if p.Type() != "catch_formal_parameter" {
			continue
		}
		name = l.f.text(p.ChildByFieldName("name"))
		for _, ct := range namedChildren(p) {
			if ct.Type() != "catch_type" {
				continue
			}
			for _, t := range namedChildren(ct) {
				r.trap(handler, l.f.qualify(erase(l.f.text(t))))
			}
		}
	}
	l.declare(name)
	l.b.CatchException(line(c), ir.Local{Name: name})
	l.stmt(c.ChildByFieldName("body"))
}

// withResources initializes the resources in order and lowers body. Each resource is closed at line ln when the
// code following its initialization completes, normally or abruptly, so the resources are closed in reverse order.
func (l *lowerer) withResources(resources []*sitter.Node, ln int, body func()) {
	for len(resources) > 0 && resources[0].Type() != "resource" {
		resources = resources[1:]
	}
	if len(resources) == 0 {
		body()
		return
	}
	res := l.resource(resources[0])
	if res == nil {
		l.withResources(resources[1:], ln, body)
		return
	}
	closeRes := func() { l.b.Invoke(ln, ir.Invoke{Receiver: res, Method: "close"}) }
	after := l.b.NewLabel()
	depth := len(l.guards)
	g := l.enterGuard(closeRes)
	l.withResources(resources[1:], ln, body)
	l.leave(depth, func() { l.b.Goto(ir.NoLine, after) })
	l.exitGuard(g)
	l.rethrow(g, ln, closeRes)
	l.b.Bind(after)
}

// resource declares and initializes a resource, and returns it. A resource naming an existing variable is returned
// as is.
func (l *lowerer) resource(r *sitter.Node) ir.Value {
	value := r.ChildByFieldName("value")
	if value == nil {
		return l.operand(firstNamed(r))
	}
	name := l.f.text(r.ChildByFieldName("name"))
	rhs := l.reads(value)
	l.declare(name)
	l.text(l.b.Assign(line(r), ir.Local{Name: name}, rhs...), r)
	return ir.Local{Name: name}
}

func isTrue(n *sitter.Node) bool {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = firstNamed(n)
	}
	return n != nil && n.Type() == "true"
}

func nonNil(values ...ir.Value) []ir.Value {
	var res []ir.Value
	for _, v := range values {
		if v != nil {
			res = append(res, v)
		}
	}
	return res
}

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
	"errors"
	"fmt"
)

// ErrInvalidBody is returned when a body is malformed: a successor or a trap bound is out of range.
var ErrInvalidBody = errors.New("invalid body")

// A Label marks a position in a body under construction. A label is bound to the index of the next unit added
// after Bind is called.
type Label int

type jump struct {
	unit    int
	targets []Label
	only    bool // the targets are the only successors
}

// A Builder assembles a body unit by unit. Units fall through to the next unit unless they are a goto, a switch, a
// return or a throw. Branch targets are labels resolved when the body is built.
type Builder struct {
	units  []*Unit
	traps  []labelTrap
	labels []int // label -> unit index, -1 if unbound
	jumps  []jump
}

type labelTrap struct {
	begin, end, handler Label
	exception           string
}

// NewBuilder returns an empty body builder
func NewBuilder() *Builder {
	return &Builder{}
}

// NewLabel returns a fresh unbound label.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// Bind binds the label to the index of the next unit.
func (b *Builder) Bind(l Label) {
	b.labels[l] = len(b.units)
}

// Here returns a new label bound to the index of the next unit.
func (b *Builder) Here() Label {
	l := b.NewLabel()
	b.Bind(l)
	return l
}

// Len returns the number of units added so far.
func (b *Builder) Len() int {
	return len(b.units)
}

// FallsThrough returns true if control can reach the next unit added: the body is empty, the last unit falls
// through, or a jump targets a label bound to the index of the next unit. Labels nothing jumps to are ignored.
func (b *Builder) FallsThrough() bool {
	n := len(b.units)
	if n == 0 {
		return true
	}
	last := true
	switch b.units[n-1].Kind {
	case Goto, Switch, Return, Throw:
		last = false
	}
	for _, j := range b.jumps {
		if j.unit == n-1 && j.only {
			last = false
		}
		for _, t := range j.targets {
			if b.labels[t] == n {
				return true
			}
		}
	}
	return last
}

// Emit adds a unit of the given kind and returns its index. The targets are the branch targets of the unit.
func (b *Builder) Emit(kind Kind, line int, defs []Value, uses []Value, targets ...Label) int {
	u := &Unit{
		Index: len(b.units),
		Line:  line,
		Kind:  kind,
		Defs:  defs,
		Uses:  uses,
	}
	u.MayThrow = inferMayThrow(u)
	b.units = append(b.units, u)
	if len(targets) > 0 {
		b.jumps = append(b.jumps, jump{unit: u.Index, targets: targets})
	}
	return u.Index
}

// Assign adds lhs = rhs...
func (b *Builder) Assign(line int, lhs Value, rhs ...Value) int {
	return b.Emit(Assign, line, []Value{lhs}, rhs)
}

// Identity adds an identity unit lhs := rhs, e.g. a parameter or a caught exception binding.
func (b *Builder) Identity(line int, lhs Value, rhs Value) int {
	return b.Emit(Identity, line, []Value{lhs}, []Value{rhs})
}

// CatchException adds the identity unit binding the caught exception to lhs.
func (b *Builder) CatchException(line int, lhs Value) int {
	return b.Identity(line, lhs, CaughtException{})
}

// Invoke adds an invocation statement whose result is discarded.
func (b *Builder) Invoke(line int, call Invoke) int {
	return b.Emit(InvokeStmt, line, nil, []Value{call})
}

// If adds a conditional branch to target; the unit falls through to the next unit otherwise.
func (b *Builder) If(line int, target Label, cond ...Value) int {
	return b.Emit(If, line, nil, cond, target)
}

// Branch adds a conditional branch whose successors are exactly the targets, in order. Unlike If, it does not fall
// through.
func (b *Builder) Branch(line int, cond Value, targets ...Label) int {
	i := b.Emit(If, line, nil, nonNil(cond))
	b.jumps = append(b.jumps, jump{unit: i, targets: targets, only: true})
	return i
}

// Goto adds an unconditional jump.
func (b *Builder) Goto(line int, target Label) int {
	return b.Emit(Goto, line, nil, nil, target)
}

// Switch adds a multi-way branch on key. The last target is the default target.
func (b *Builder) Switch(line int, key Value, targets ...Label) int {
	return b.Emit(Switch, line, nil, nonNil(key), targets...)
}

// Return adds a return unit.
func (b *Builder) Return(line int, values ...Value) int {
	return b.Emit(Return, line, nil, values)
}

// Throw adds a throw unit.
func (b *Builder) Throw(line int, v Value) int {
	return b.Emit(Throw, line, nil, nonNil(v))
}

// Nop adds a unit that does nothing.
func (b *Builder) Nop(line int) int {
	return b.Emit(Nop, line, nil, nil)
}

// SetText sets the printable form of unit i.
func (b *Builder) SetText(i int, text string) {
	b.units[i].Text = text
}

// SetMayThrow overrides whether unit i may throw.
func (b *Builder) SetMayThrow(i int, mayThrow bool) {
	b.units[i].MayThrow = mayThrow
}

// Trap adds an exception handler region protecting the units in [begin, end), handled at handler.
func (b *Builder) Trap(begin, end, handler Label, exception string) {
	b.traps = append(b.traps, labelTrap{begin: begin, end: end, handler: handler, exception: exception})
}

// Build resolves the labels and returns the body.
func (b *Builder) Build() (*Body, error) {
	resolve := func(l Label) (int, error) {
		if int(l) >= len(b.labels) || b.labels[l] < 0 {
			return 0, fmt.Errorf("%w: label %d is not bound", ErrInvalidBody, l)
		}
		return b.labels[l], nil
	}
	n := len(b.units)
	targets := make(map[int][]int, len(b.jumps))
	only := map[int]bool{}
	for _, j := range b.jumps {
		only[j.unit] = j.only
		for _, l := range j.targets {
			t, err := resolve(l)
			if err != nil {
				return nil, err
			}
			targets[j.unit] = append(targets[j.unit], t)
		}
	}
	for i, u := range b.units {
		var succs []int
		switch {
		case only[i] || u.Kind == Goto || u.Kind == Switch:
			succs = targets[i]
		case u.Kind == Return || u.Kind == Throw:
		default:
			if i+1 < n {
				succs = append(succs, i+1)
			}
			succs = append(succs, targets[i]...)
		}
		u.Succs = dedup(succs)
	}
	var traps []Trap
	for _, t := range b.traps {
		begin, err := resolve(t.begin)
		if err != nil {
			return nil, err
		}
		end, err := resolve(t.end)
		if err != nil {
			return nil, err
		}
		handler, err := resolve(t.handler)
		if err != nil {
			return nil, err
		}
		if begin < end {
			traps = append(traps, Trap{Begin: begin, End: end, Handler: handler, Exception: t.exception})
		}
	}
	return NewBody(b.units, traps)
}

// NewBody returns a body with the given units and traps after checking that every successor, every unit index and
// every trap bound is valid.
func NewBody(units []*Unit, traps []Trap) (*Body, error) {
	n := len(units)
	for i, u := range units {
		if u.Index != i {
			return nil, fmt.Errorf("%w: unit %d has index %d", ErrInvalidBody, i, u.Index)
		}
		for _, s := range u.Succs {
			if s < 0 || s >= n {
				return nil, fmt.Errorf("%w: unit %d has successor %d out of range", ErrInvalidBody, i, s)
			}
		}
	}
	for _, t := range traps {
		if t.Begin < 0 || t.End > n || t.Begin > t.End || t.Handler < 0 || t.Handler >= n {
			return nil, fmt.Errorf("%w: trap [%d, %d) -> %d out of range", ErrInvalidBody, t.Begin, t.End, t.Handler)
		}
	}
	return &Body{Units: units, Traps: traps}, nil
}

func inferMayThrow(u *Unit) bool {
	if u.Kind == Throw || u.Kind == InvokeStmt {
		return true
	}
	throws := false
	check := func(v Value) {
		switch v.(type) {
		case Invoke, InstanceField, ArrayElem:
			throws = true
		}
	}
	for _, v := range u.Uses {
		check(v)
		VisitComponents(v, check)
	}
	for _, d := range u.Defs {
		check(d)
		VisitComponents(d, check)
	}
	return throws
}

func dedup(a []int) []int {
	if len(a) < 2 {
		return a
	}
	seen := make(map[int]bool, len(a))
	res := a[:0]
	for _, x := range a {
		if !seen[x] {
			seen[x] = true
			res = append(res, x)
		}
	}
	return res
}

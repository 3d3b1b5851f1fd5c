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

package gossa

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"golang.org/x/tools/go/ssa"
)

type lowerer struct {
	fset   *token.FileSet
	b      *ir.Builder
	blocks map[*ssa.BasicBlock]ir.Label

	// line of the last unit emitted in the current block
	lastLine int
}

// LowerFunction lowers the instructions of f, in block order. Registers and parameters are locals, field, element
// and global addresses are locations read by loads and written by stores.
//
// Debug references are dropped. Jumps have no line: they are not statements of the source.
func LowerFunction(f *ssa.Function) (*ir.Body, error) {
	if isExternal(f) {
		return nil, fmt.Errorf("function %s has no body", f)
	}
	l := &lowerer{
		fset:   f.Prog.Fset,
		b:      ir.NewBuilder(),
		blocks: make(map[*ssa.BasicBlock]ir.Label, len(f.Blocks)),
	}
	for _, block := range f.Blocks {
		l.blocks[block] = l.b.NewLabel()
	}
	for _, block := range f.Blocks {
		l.b.Bind(l.blocks[block])
		l.lastLine = ir.NoLine
		for _, instr := range block.Instrs {
			l.instr(instr)
		}
	}
	return l.b.Build()
}

//gocyclo:ignore
func (l *lowerer) instr(in ssa.Instruction) {
	line := l.line(in.Pos())
	var i int
	switch instr := in.(type) {
	case *ssa.DebugRef:
		return
	case *ssa.If:
		succs := instr.Block().Succs
		i = l.b.Branch(l.condLine(instr.Cond), l.value(instr.Cond), l.blocks[succs[0]], l.blocks[succs[1]])
	case *ssa.Jump:
		i = l.b.Goto(ir.NoLine, l.blocks[instr.Block().Succs[0]])
	case *ssa.Return:
		i = l.b.Return(line, l.values(instr.Results)...)
	case *ssa.Panic:
		i = l.b.Throw(line, l.value(instr.X))
	case *ssa.Call:
		call := l.invoke(instr.Common())
		if t, ok := instr.Type().(*types.Tuple); ok && t.Len() == 0 {
			i = l.b.Invoke(line, call)
		} else {
			i = l.b.Assign(line, l.register(instr), call)
		}
	case *ssa.Go:
		i = l.b.Invoke(line, l.invoke(instr.Common()))
	case *ssa.Defer:
		i = l.b.Invoke(line, l.invoke(instr.Common()))
	case *ssa.RunDefers:
		i = l.b.Invoke(line, ir.Invoke{Method: "rundefers"})
	case *ssa.Store:
		i = l.b.Assign(line, l.location(instr.Addr), present(l.value(instr.Val), l.value(instr.Addr))...)
	case *ssa.MapUpdate:
		elem := ir.ArrayElem{Base: l.value(instr.Map), Index: l.value(instr.Key)}
		i = l.b.Assign(line, elem, present(l.value(instr.Value))...)
	case *ssa.Send:
		i = l.b.Assign(line, channel(l.value(instr.Chan)), present(l.value(instr.X))...)
	case *ssa.UnOp:
		uses := present(l.value(instr.X))
		switch instr.Op {
		case token.MUL:
			uses = append(uses, l.location(instr.X))
		case token.ARROW:
			uses = append(uses, channel(l.value(instr.X)))
		}
		i = l.b.Assign(line, l.register(instr), uses...)
	case *ssa.Lookup:
		i = l.b.Assign(line, l.register(instr), ir.ArrayElem{Base: l.value(instr.X), Index: l.value(instr.Index)})
	case *ssa.Index:
		i = l.b.Assign(line, l.register(instr), ir.ArrayElem{Base: l.value(instr.X), Index: l.value(instr.Index)})
	case ssa.Value:
		i = l.b.Assign(line, l.register(instr), l.operands(in)...)
	default:
		i = l.b.Emit(ir.Nop, line, nil, l.operands(in))
	}
	l.b.SetText(i, text(in))
	if line != ir.NoLine {
		l.lastLine = line
	}
}

func (l *lowerer) line(pos token.Pos) int {
	if !pos.IsValid() {
		return ir.NoLine
	}
	return l.fset.Position(pos).Line
}

// condLine returns the line of a branch on cond: the line of the instruction computing the condition, or the line
// of the last statement before the branch when the condition is not computed in the function.
func (l *lowerer) condLine(cond ssa.Value) int {
	if _, isInstr := cond.(ssa.Instruction); isInstr {
		if line := l.line(cond.Pos()); line != ir.NoLine {
			return line
		}
	}
	return l.lastLine
}

func (l *lowerer) register(v ssa.Value) ir.Value {
	return ir.Local{Name: v.Name()}
}

// value returns the value read when v is an operand. Functions, builtins and global addresses are constant and
// have no value.
func (l *lowerer) value(v ssa.Value) ir.Value {
	switch v := v.(type) {
	case nil:
		return nil
	case *ssa.Const:
		return ir.Constant{Text: v.String()}
	case *ssa.Function, *ssa.Builtin, *ssa.Global:
		return nil
	default:
		return ir.Local{Name: v.Name()}
	}
}

func (l *lowerer) values(vs []ssa.Value) []ir.Value {
	var res []ir.Value
	for _, v := range vs {
		if x := l.value(v); x != nil {
			res = append(res, x)
		}
	}
	return res
}

func (l *lowerer) operands(instr ssa.Instruction) []ir.Value {
	var res []ir.Value
	for _, op := range instr.Operands(nil) {
		if x := l.value(*op); x != nil {
			res = append(res, x)
		}
	}
	return res
}

// location returns the storage denoted by the address addr. Chains of field and element addresses are folded into
// a single location so that two address computations of x.f.g denote the same storage.
func (l *lowerer) location(addr ssa.Value) ir.Value {
	switch a := addr.(type) {
	case *ssa.FieldAddr:
		return ir.InstanceField{Base: l.base(a.X), Field: fieldName(a.X.Type(), a.Field)}
	case *ssa.IndexAddr:
		return ir.ArrayElem{Base: l.base(a.X), Index: l.value(a.Index)}
	case *ssa.Global:
		return ir.StaticField{Owner: a.Pkg.Pkg.Path(), Field: a.Name()}
	case *ssa.Alloc:
		return ir.Local{Name: "*" + a.Name()}
	default:
		return ir.InstanceField{Base: l.value(addr), Field: "*"}
	}
}

func (l *lowerer) base(v ssa.Value) ir.Value {
	switch v.(type) {
	case *ssa.FieldAddr, *ssa.IndexAddr:
		return l.location(v)
	}
	return l.value(v)
}

func (l *lowerer) invoke(c *ssa.CallCommon) ir.Invoke {
	call := ir.Invoke{Args: l.values(c.Args)}
	switch {
	case c.IsInvoke():
		call.Receiver = l.value(c.Value)
		call.Method = c.Method.Name()
	case c.StaticCallee() != nil:
		// the closure value holds the bindings of the callee
		call.Receiver = l.value(c.Value)
		call.Method = c.StaticCallee().String()
	default:
		call.Receiver = l.value(c.Value)
		call.Method = c.Value.Name()
	}
	return call
}

// channel is the abstract storage of the values sent on channel ch
func channel(ch ir.Value) ir.Value {
	return ir.InstanceField{Base: ch, Field: "<-"}
}

// fieldName returns the name of field i if t is a struct or pointer to a struct, "?" otherwise
func fieldName(t types.Type, i int) string {
	switch typ := t.Underlying().(type) {
	case *types.Pointer:
		return fieldName(typ.Elem(), i)
	case *types.Struct:
		if 0 <= i && i < typ.NumFields() {
			return typ.Field(i).Name()
		}
	}
	return "?"
}

func text(instr ssa.Instruction) string {
	if v, ok := instr.(ssa.Value); ok && v.Name() != "" {
		return v.Name() + " = " + v.String()
	}
	return instr.String()
}

func present(values ...ir.Value) []ir.Value {
	var res []ir.Value
	for _, v := range values {
		if v != nil {
			res = append(res, v)
		}
	}
	return res
}

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

package pdg

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/features"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typeName = "org.example.T"

var (
	x = ir.Local{Name: "x"}
	y = ir.Local{Name: "y"}
	z = ir.Local{Name: "z"}
	c = ir.Local{Name: "c"}
	e = ir.Local{Name: "e"}
	o = ir.Local{Name: "o"}
)

func s(line int) stmt.Statement { return stmt.Statement{Type: typeName, Line: line} }

func pair(a, b int) stmt.Pair { return stmt.Pair{Source: s(a), Target: s(b)} }

func mustBuild(t *testing.T, b *ir.Builder) *ir.Body {
	body, err := b.Build()
	require.NoError(t, err)
	return body
}

// straightLine is x = 1 at line 1, y = x at line 2
func straightLine(t *testing.T) *ir.Body {
	b := ir.NewBuilder()
	b.Assign(1, x, ir.Constant{Text: "1"})
	b.Assign(2, y, x)
	return mustBuild(t, b)
}

// ifThen is an if at line 1 branching to line 2 (then) and line 3 (join)
func ifThen(t *testing.T) *ir.Body {
	b := ir.NewBuilder()
	join := b.NewLabel()
	b.If(1, join, c)
	b.Assign(2, x, ir.Constant{Text: "1"})
	b.Bind(join)
	b.Return(3)
	return mustBuild(t, b)
}

func TestStraightLineExample(t *testing.T) {
	res := AnalyzeBody(typeName, straightLine(t), AllRelations)
	assert.Equal(t, 0, res.Control.Len())
	assert.Equal(t, []stmt.Pair{pair(2, 1)}, res.Data.Pairs())
	assert.Equal(t, []stmt.Pair{pair(1, 2)}, res.Dominance.Pairs())
}

func TestIfExample(t *testing.T) {
	res := AnalyzeBody(typeName, ifThen(t), AllRelations)
	assert.Equal(t, []stmt.Pair{pair(2, 1)}, res.Control.Pairs())
	assert.False(t, res.Control.Contains(pair(3, 1)), "the join post-dominates the branch")
	assert.Equal(t, 0, res.Data.Len())
}

func TestSwitchAndLoop(t *testing.T) {
	b := ir.NewBuilder()
	head, body, exit := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Assign(1, x, ir.Constant{Text: "0"})
	b.Bind(head)
	b.If(2, body, x)
	b.Goto(2, exit)
	b.Bind(body)
	b.Assign(3, x, x)
	b.Goto(3, head)
	b.Bind(exit)
	b.Return(4, x)
	res := AnalyzeBody(typeName, mustBuild(t, b), AllRelations)
	assert.True(t, res.Control.Contains(pair(3, 2)))
	assert.False(t, res.Control.Contains(pair(4, 2)))
	assert.ElementsMatch(t, []stmt.Pair{pair(2, 1), pair(2, 3), pair(3, 1), pair(4, 1), pair(4, 3)}, res.Data.Pairs())
}

func TestTrivialBodyFastPath(t *testing.T) {
	b := ir.NewBuilder()
	b.Assign(1, x, ir.Invoke{Method: "f"})
	b.Invoke(2, ir.Invoke{Receiver: x, Method: "g"})
	b.Return(3)
	res := AnalyzeBody(typeName, mustBuild(t, b), AllRelations)
	assert.Equal(t, 0, res.Control.Len())
	assert.Equal(t, []stmt.Pair{pair(2, 1)}, res.Data.Pairs())
}

// tryCatch is
//
//	x = 1            // line 1
//	try {
//	  y = o.m()      // line 2
//	  z = y          // line 3
//	} catch (e) {    // line 4
//	  x = 0          // line 5
//	}
//	return x         // line 6
func tryCatch(t *testing.T) *ir.Body {
	b := ir.NewBuilder()
	begin, end, handler, exit := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Assign(1, x, ir.Constant{Text: "1"})
	b.Bind(begin)
	b.Assign(2, y, ir.Invoke{Receiver: o, Method: "m"})
	b.Assign(3, z, y)
	b.Bind(end)
	b.Goto(3, exit)
	b.Bind(handler)
	b.CatchException(4, e)
	b.Assign(5, x, ir.Constant{Text: "0"})
	b.Bind(exit)
	b.Return(6, x)
	b.Trap(begin, end, handler, "java.lang.Exception")
	return mustBuild(t, b)
}

func TestTryCatch(t *testing.T) {
	res := AnalyzeBody(typeName, tryCatch(t), AllRelations)
	// the handler is controlled by the unit that throws, not by the unit before it
	assert.False(t, res.Control.Contains(pair(2, 1)))
	assert.True(t, res.Control.Contains(pair(3, 2)))
	assert.True(t, res.Control.Contains(pair(5, 2)))
	for _, p := range res.Control.Pairs() {
		assert.NotEqual(t, 4, p.Source.Line, "caught exception binding is not a statement")
		assert.NotEqual(t, 4, p.Target.Line, "caught exception binding is not a statement")
	}
	assert.True(t, res.Data.Contains(pair(3, 2)))
	assert.True(t, res.Data.Contains(pair(6, 1)))
	assert.True(t, res.Data.Contains(pair(6, 5)))
}

func TestKillSemantics(t *testing.T) {
	b := ir.NewBuilder()
	b.Assign(1, x, ir.Constant{Text: "1"})
	b.Assign(2, x, ir.Constant{Text: "2"})
	b.Assign(3, y, x)
	res := AnalyzeBody(typeName, mustBuild(t, b), AllRelations)
	assert.Equal(t, []stmt.Pair{pair(3, 2)}, res.Data.Pairs())
}

func TestSameStatementPairsAreDropped(t *testing.T) {
	b := ir.NewBuilder()
	b.Assign(7, x, ir.Constant{Text: "1"})
	b.Assign(7, y, x)
	b.Assign(ir.NoLine, z, y)
	res := AnalyzeBody(typeName, mustBuild(t, b), AllRelations)
	assert.Equal(t, 0, res.Data.Len())
	assert.Equal(t, 0, res.Dominance.Len())
}

func TestRelationsSelection(t *testing.T) {
	res := AnalyzeBody(typeName, ifThen(t), Relations{Data: true})
	assert.Equal(t, 0, res.Control.Len())
	assert.Equal(t, 0, res.Dominance.Len())
}

func TestCoveredLines(t *testing.T) {
	b := ir.NewBuilder()
	b.Assign(10, x, ir.Constant{Text: "1"})
	b.Nop(ir.NoLine)
	b.Assign(12, y, x)
	b.Return(15)
	body := mustBuild(t, b)
	lo, hi, ok := LineRange(body)
	require.True(t, ok)
	assert.Equal(t, 10, lo)
	assert.Equal(t, 15, hi)
	lines := CoveredLines(body)
	assert.Len(t, lines, 6)
	assert.True(t, lines[11])
	assert.False(t, lines[16])
	assert.False(t, lines[9])

	empty := mustBuild(t, ir.NewBuilder())
	_, _, ok = LineRange(empty)
	assert.False(t, ok)
	assert.Empty(t, CoveredLines(empty))
}

func methodWithLines(name string, lines ...int) *ir.Method {
	b := ir.NewBuilder()
	for _, l := range lines {
		b.Nop(l)
	}
	body, _ := b.Build()
	return ir.NewMethodWithBody(name, "<"+typeName+": void "+name+"()>", body)
}

func requestsOf(lines ...int) features.Requests {
	r := features.Requests{}
	for _, l := range lines {
		r.Add(s(l))
	}
	return r
}

func TestResolverCoverage(t *testing.T) {
	typ := &ir.Type{Name: typeName, Methods: []*ir.Method{
		methodWithLines("f", 10, 12, 15),
		ir.NewAbstractMethod("g", "<"+typeName+": void g()>"),
		methodWithLines("h", 20, 22),
		methodWithLines("synthetic", ir.NoLine),
	}}
	matches, err := ResolveType(typ, map[int]bool{11: true, 16: true, 9: true, 21: true}, false)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "f", matches[0].Method.Name)
	assert.Equal(t, []int{11}, matches[0].Lines)
	assert.Equal(t, "h", matches[1].Method.Name)
	assert.Equal(t, []int{21}, matches[1].Lines)

	matches, err = ResolveType(typ, nil, false)
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResolverOverlap(t *testing.T) {
	typ := &ir.Type{Name: typeName, Methods: []*ir.Method{
		methodWithLines("outer", 1, 10),
		methodWithLines("closure", 4, 6),
	}}
	lines := map[int]bool{2: true, 5: true}

	all, err := ResolveType(typ, lines, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []int{2, 5}, all[0].Lines)
	assert.Equal(t, []int{5}, all[1].Lines)

	inner, err := ResolveType(typ, lines, true)
	require.NoError(t, err)
	require.Len(t, inner, 2)
	assert.Equal(t, []int{2}, inner[0].Lines)
	assert.Equal(t, []int{5}, inner[1].Lines)
}

func TestFatalErrors(t *testing.T) {
	noMethods := &ir.Program{Types: []*ir.Type{{Name: typeName}}}
	_, err := Analyze(noMethods, requestsOf(1), nil, nil)
	assert.True(t, errors.Is(err, ErrNoMethods))

	broken := ir.NewMethod("f", "<"+typeName+": void f()>", func() (*ir.Body, error) {
		return nil, fmt.Errorf("class file truncated")
	})
	noBody := &ir.Program{Types: []*ir.Type{{Name: typeName, Methods: []*ir.Method{broken}}}}
	_, err = Analyze(noBody, requestsOf(1), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBody))
	assert.Contains(t, err.Error(), "class file truncated")

	// types that are not requested are not inspected
	_, err = Analyze(noBody, requestsOf(), nil, nil)
	assert.NoError(t, err)
}

func exampleProgram(t *testing.T) *ir.Program {
	return &ir.Program{Types: []*ir.Type{
		{Name: typeName, Methods: []*ir.Method{
			ir.NewMethodWithBody("straight", "<"+typeName+": void straight()>", straightLine(t)),
		}},
		{Name: "org.example.U", Methods: []*ir.Method{
			ir.NewMethodWithBody("ifThen", "<org.example.U: void ifThen()>", ifThen(t)),
		}},
	}}
}

func TestAnalyze(t *testing.T) {
	requests := requestsOf(1, 2)
	requests.Add(stmt.Statement{Type: "org.example.U", Line: 3})
	requests.Add(stmt.Statement{Type: "org.example.Missing", Line: 3})
	res, err := Analyze(exampleProgram(t), requests, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []stmt.Pair{pair(2, 1)}, res.Data.Pairs())
	u := func(l int) stmt.Statement { return stmt.Statement{Type: "org.example.U", Line: l} }
	assert.Equal(t, []stmt.Pair{{Source: u(2), Target: u(1)}}, res.Control.Pairs())
	assert.Equal(t, 0, res.Dominance.Len(), "dominance is not reported by default")
	assert.Equal(t, []stmt.MethodEntry{
		{Statement: s(1), Signature: "<" + typeName + ": void straight()>"},
		{Statement: s(2), Signature: "<" + typeName + ": void straight()>"},
		{Statement: u(3), Signature: "<org.example.U: void ifThen()>"},
	}, res.Methods.Entries())
	assert.Equal(t, 2, res.Stats.Types)
	assert.Equal(t, 2, res.Stats.Methods)
}

func TestAnalyzeTypeFilter(t *testing.T) {
	cfg, err := config.Parse([]byte("type-filter: \"U$\"\nreport-dominance: true\n"))
	require.NoError(t, err)
	requests := requestsOf(1, 2)
	requests.Add(stmt.Statement{Type: "org.example.U", Line: 1})
	res, err := Analyze(exampleProgram(t), requests, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data.Len())
	assert.Equal(t, 1, res.Control.Len())
	assert.Equal(t, 1, res.Methods.Len())
	assert.NotZero(t, res.Dominance.Len())
}

// randomBody builds a body with random assignments, branches and traps over a few locals.
func randomBody(r *rand.Rand, size int) *ir.Body {
	b := ir.NewBuilder()
	vars := []ir.Value{x, y, z, ir.InstanceField{Base: o, Field: "f"}, ir.ArrayElem{Base: x, Index: y}}
	labels := make([]ir.Label, size+1)
	for i := range labels {
		labels[i] = b.NewLabel()
	}
	line := func() int {
		if r.Intn(8) == 0 {
			return ir.NoLine
		}
		return 1 + r.Intn(size)
	}
	for i := 0; i < size; i++ {
		b.Bind(labels[i])
		switch r.Intn(7) {
		case 0:
			b.If(line(), labels[r.Intn(size)], vars[r.Intn(len(vars))])
		case 1:
			b.Goto(line(), labels[r.Intn(size)])
		case 2:
			b.Invoke(line(), ir.Invoke{Receiver: o, Method: "m", Args: []ir.Value{vars[r.Intn(len(vars))]}})
		case 3:
			b.CatchException(line(), e)
		default:
			b.Assign(line(), vars[r.Intn(len(vars))], vars[r.Intn(len(vars))])
		}
	}
	b.Bind(labels[size])
	b.Return(line())
	for i := 0; i < r.Intn(3); i++ {
		begin := r.Intn(size)
		end := begin + 1 + r.Intn(size-begin)
		b.Trap(labels[begin], labels[end], labels[r.Intn(size)], "")
	}
	body, err := b.Build()
	if err != nil {
		panic(err)
	}
	return body
}

func TestRelationProperties(t *testing.T) {
	r := rand.New(rand.NewSource(68348438))
	for i := 0; i < 100; i++ {
		body := randomBody(r, 3+r.Intn(25))
		res := AnalyzeBody(typeName, body, AllRelations)
		again := AnalyzeBody(typeName, body, AllRelations)
		require.True(t, res.Control.Equal(again.Control), "determinism")
		require.True(t, res.Data.Equal(again.Data), "determinism")
		for _, set := range []*stmt.RelationSet{res.Control, res.Data, res.Dominance} {
			for _, p := range set.Pairs() {
				require.NotEqual(t, p.Source, p.Target)
				require.GreaterOrEqual(t, p.Source.Line, 0)
				require.GreaterOrEqual(t, p.Target.Line, 0)
			}
		}
		if len(body.Traps) == 0 && !body.HasBranches() {
			require.Equal(t, 0, res.Control.Len())
		}
	}
}

func TestParallelEqualsSequential(t *testing.T) {
	r := rand.New(rand.NewSource(184618))
	program := &ir.Program{}
	requests := features.Requests{}
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("org.example.T%d", i)
		typ := &ir.Type{Name: name}
		for j := 0; j < 4; j++ {
			sig := fmt.Sprintf("<%s: void m%d()>", name, j)
			typ.Methods = append(typ.Methods, ir.NewMethodWithBody(fmt.Sprintf("m%d", j), sig, randomBody(r, 20)))
		}
		program.Types = append(program.Types, typ)
		for l := 1; l <= 20; l += 3 {
			requests.Add(stmt.Statement{Type: name, Line: l})
		}
	}
	sequential := config.NewDefault()
	sequential.ReportDominance = true
	parallel := config.NewDefault()
	parallel.ReportDominance = true
	parallel.Workers = 4

	res1, err := Analyze(program, requests, sequential, nil)
	require.NoError(t, err)
	res2, err := Analyze(program, requests, parallel, nil)
	require.NoError(t, err)
	assert.True(t, res1.Equal(res2))
	assert.NotZero(t, res1.Data.Len())
	assert.NotZero(t, res1.Methods.Len())
}

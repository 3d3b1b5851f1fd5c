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
	"context"
	"testing"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/features"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleType = "org.example.Sample"

func loadSample(t *testing.T) *ir.Program {
	t.Helper()
	prog, err := LoadFiles(context.Background(), config.NewDiscardLogGroup(), []string{"testdata/src"})
	require.NoError(t, err)
	return prog
}

func lowerSource(t *testing.T, src string) *ir.Program {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	defer tree.Close()
	require.False(t, tree.RootNode().HasError())
	return &ir.Program{Types: LowerFile(tree.RootNode(), []byte(src), config.NewDiscardLogGroup())}
}

func analyze(t *testing.T, prog *ir.Program, typeName string, lines ...int) *pdg.Results {
	t.Helper()
	requests := features.Requests{}
	for _, l := range lines {
		requests.Add(stmt.Statement{Type: typeName, Line: l})
	}
	res, err := pdg.Analyze(prog, requests, config.NewDefault(), config.NewDiscardLogGroup())
	require.NoError(t, err)
	return res
}

func pairIn(typeName string) func(a, b int) stmt.Pair {
	return func(a, b int) stmt.Pair {
		return stmt.Pair{Source: stmt.Statement{Type: typeName, Line: a}, Target: stmt.Statement{Type: typeName, Line: b}}
	}
}

func signatures(typ *ir.Type) []string {
	var res []string
	for _, m := range typ.Methods {
		res = append(res, m.Signature)
	}
	return res
}

func TestLoadFiles(t *testing.T) {
	prog := loadSample(t)
	require.Len(t, prog.Types, 2)
	assert.Equal(t, sampleType, prog.Types[0].Name)
	assert.Equal(t, "org.example.Sample$Inner", prog.Types[1].Name)

	assert.Equal(t, []string{
		"<org.example.Sample: int add(int)>",
		"<org.example.Sample: int sum(java.util.List,int[])>",
		"<org.example.Sample: void guarded(java.lang.Object)>",
		"<org.example.Sample: int classify(int)>",
		"<org.example.Sample: void <init>()>",
		"<org.example.Sample: void <clinit>()>",
	}, signatures(prog.Types[0]))
	assert.Equal(t, []string{"<org.example.Sample$Inner: void <init>(int)>"}, signatures(prog.Types[1]))

	for _, typ := range prog.Types {
		for _, m := range typ.Methods {
			_, err := m.Body()
			assert.NoError(t, err, m.Signature)
		}
	}
}

func TestLowerMethod(t *testing.T) {
	prog := loadSample(t)
	add := prog.TypeByName(sampleType).Methods[0]
	body, err := add.Body()
	require.NoError(t, err)

	kinds := make([]ir.Kind, 0, body.Size())
	for _, u := range body.Units {
		kinds = append(kinds, u.Kind)
	}
	assert.Equal(t, []ir.Kind{ir.Identity, ir.Identity, ir.Assign, ir.If, ir.Assign, ir.Return}, kinds)
	assert.Equal(t, ir.NoLine, body.Units[0].Line)
	assert.Equal(t, ir.InstanceField{Base: ir.Local{Name: "this"}, Field: "count"}, body.Units[2].Defs[0])
	assert.Equal(t, 11, body.Units[3].Line)
	assert.Equal(t, []int{4, 5}, body.Units[3].Succs)
	assert.Equal(t, "return count;", body.Units[5].Text)

	// static field increment in a static method
	sum := prog.TypeByName(sampleType).Methods[1]
	body, err = sum.Body()
	require.NoError(t, err)
	var incr *ir.Unit
	for _, u := range body.Units {
		if u.Line == 23 {
			incr = u
		}
	}
	require.NotNil(t, incr)
	assert.Equal(t, []ir.Value{ir.StaticField{Owner: sampleType, Field: "total"}}, incr.Defs)
}

func TestLowerTry(t *testing.T) {
	prog := loadSample(t)
	body, err := prog.TypeByName(sampleType).Methods[2].Body()
	require.NoError(t, err)
	require.Len(t, body.Traps, 3)
	assert.Equal(t, "java.lang.RuntimeException", body.Traps[0].Exception)
	assert.True(t, body.Traps[1].CatchesAll())
	assert.True(t, body.Traps[2].CatchesAll())

	finallyCopies := 0
	for _, u := range body.Units {
		if u.Line == 35 {
			finallyCopies++
		}
	}
	assert.Equal(t, 3, finallyCopies)
	assert.Equal(t, ir.Return, body.Units[body.Size()-1].Kind)
	assert.Equal(t, 37, body.Units[body.Size()-1].Line)
}

func TestAnalyzeSample(t *testing.T) {
	prog := loadSample(t)
	pair := pairIn(sampleType)
	res := analyze(t, prog, sampleType, 10, 11, 12, 14, 18, 19, 20, 22, 23, 25, 29, 31, 33, 35, 40, 42, 44,
		46, 47, 48, 50, 52)

	for _, p := range []stmt.Pair{
		pair(12, 11),
		pair(20, 19),
		pair(23, 22),
		pair(33, 31), // handler entered when the call throws
		pair(42, 40),
		pair(44, 40),
		pair(47, 46),
		pair(48, 47),
		pair(50, 47),
		pair(52, 40),
	} {
		assert.True(t, res.Control.Contains(p), "missing control dependence %s", p)
	}
	assert.False(t, res.Control.Contains(pair(33, 29)), "unprotected predecessor does not throw to the handler")

	for _, p := range []stmt.Pair{
		pair(11, 10),
		pair(14, 10),
		pair(14, 12),
		pair(20, 18),
		pair(20, 19),
		pair(25, 18),
		pair(25, 20),
		pair(35, 31),
		pair(35, 33),
		pair(47, 50),
		pair(52, 50),
	} {
		assert.True(t, res.Data.Contains(p), "missing data dependence %s", p)
	}
	assert.Equal(t, []string{"<org.example.Sample: void guarded(java.lang.Object)>"},
		res.Methods.SignaturesOf(stmt.Statement{Type: sampleType, Line: 35}))
}

func TestInnerClass(t *testing.T) {
	prog := loadSample(t)
	inner := prog.TypeByName("org.example.Sample$Inner")
	require.NotNil(t, inner)
	body, err := inner.Methods[0].Body()
	require.NoError(t, err)
	last := body.Units[body.Size()-1]
	assert.Equal(t, ir.Return, last.Kind)
	assert.Equal(t, 60, last.Line, "void constructor returns at its closing brace")
}

func TestSwitchExpressionAndLabels(t *testing.T) {
	prog := lowerSource(t, `class Flow {
    static int pick(int k, int[] a) {
        int r = switch (k) {
            case 1 -> 10;
            default -> {
                yield a[0];
            }
        };
        outer:
        for (int i = 0; i < a.length; i++) {
            do {
                if (a[i] < 0) continue outer;
                r--;
            } while (r > 0);
        }
        return r;
    }
}
`)
	require.Len(t, prog.Types, 1)
	assert.Equal(t, []string{"<Flow: int pick(int,int[])>", "<Flow: void <init>()>"}, signatures(prog.Types[0]))

	pair := pairIn("Flow")
	res := analyze(t, prog, "Flow", 3, 4, 6, 10, 12, 13, 14, 16)
	for _, p := range []stmt.Pair{pair(4, 3), pair(6, 3), pair(13, 12), pair(14, 12)} {
		assert.True(t, res.Control.Contains(p), "missing control dependence %s", p)
	}
	for _, p := range []stmt.Pair{pair(3, 4), pair(3, 6), pair(12, 10), pair(16, 3), pair(16, 13)} {
		assert.True(t, res.Data.Contains(p), "missing data dependence %s", p)
	}
}

func TestNestedAssignmentAndResources(t *testing.T) {
	prog := lowerSource(t, `import java.io.Reader;

class Res {
    int read(Reader in) throws Exception {
        int c;
        int n = 0;
        while ((c = in.read()) != -1) {
            n += c;
        }
        try (Reader other = in) {
            n = other.read();
        }
        return n;
    }
}
`)
	pair := pairIn("Res")
	res := analyze(t, prog, "Res", 6, 7, 8, 10, 11, 13)
	assert.True(t, res.Control.Contains(pair(8, 7)))
	for _, p := range []stmt.Pair{pair(8, 7), pair(8, 6), pair(11, 10), pair(13, 11)} {
		assert.True(t, res.Data.Contains(p), "missing data dependence %s", p)
	}
	assert.False(t, res.Data.Contains(pair(13, 8)), "the resource read kills the loop definition")
	assert.Equal(t, []string{"<Res: int read(java.io.Reader)>", "<Res: void <init>()>"},
		signatures(prog.Types[0]))
}

func TestInterfaceSignatures(t *testing.T) {
	prog := lowerSource(t, `package org.example;

import java.util.Map;

interface Api {
    Map<String, Integer> lookup(String key, int... ids);
    int SIZE = 3;
}
`)
	require.Len(t, prog.Types, 1)
	api := prog.Types[0]
	assert.Equal(t, "org.example.Api", api.Name)
	require.Len(t, api.Methods, 2)
	assert.Equal(t, "<org.example.Api: java.util.Map lookup(java.lang.String,int[])>", api.Methods[0].Signature)
	assert.False(t, api.Methods[0].Concrete)
	assert.Equal(t, "<org.example.Api: void <clinit>()>", api.Methods[1].Signature)
	body, err := api.Methods[1].Body()
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.StaticField{Owner: "org.example.Api", Field: "SIZE"}}, body.Units[0].Defs)
}

func TestLoadFilesErrors(t *testing.T) {
	logger := config.NewDiscardLogGroup()
	_, err := LoadFiles(context.Background(), logger, []string{"testdata/does-not-exist"})
	assert.Error(t, err)

	_, err = LoadFiles(context.Background(), logger, []string{t.TempDir()})
	assert.ErrorContains(t, err, "no java files")

	// syntax errors are reported but do not abort the load
	prog, err := LoadFiles(context.Background(), logger, []string{"testdata/broken/Broken.java"})
	require.NoError(t, err)
	assert.NotNil(t, prog.TypeByName("org.example.Broken"))
}

func unitsAt(body *ir.Body, line int) []*ir.Unit {
	var res []*ir.Unit
	for _, u := range body.Units {
		if u.Line == line {
			res = append(res, u)
		}
	}
	return res
}

func covered(body *ir.Body, u *ir.Unit, handler int) bool {
	for _, t := range body.Traps {
		if t.Handler == handler && t.Begin <= u.Index && u.Index < t.End {
			return true
		}
	}
	return false
}

func TestTryWithResources(t *testing.T) {
	prog := lowerSource(t, `import java.util.*;

class Input {
    int read() {
        int r = 0;
        try (Scanner sc = new Scanner(System.in); Scanner sc2 = new Scanner(System.in)) {
            r = sc.nextInt() + sc2.nextInt();
        } catch (IllegalStateException | NoSuchElementException e) {
            r = -1;
        } finally {
            r *= 2;
        }
        return r;
    }
}
`)
	body, err := prog.Types[0].Methods[0].Body()
	require.NoError(t, err)

	catch := -1
	for _, u := range unitsAt(body, 8) {
		if u.IsCaughtExceptionBinding() {
			catch = u.Index
		}
	}
	require.GreaterOrEqual(t, catch, 0)

	var caught []string
	for _, tr := range body.Traps {
		if tr.Handler == catch {
			caught = append(caught, tr.Exception)
		}
	}
	assert.ElementsMatch(t, []string{"java.lang.IllegalStateException", "java.util.NoSuchElementException"}, caught)

	// initializations and closes of the resources are handled by the catch clause
	lineSix := unitsAt(body, 6)
	require.NotEmpty(t, lineSix)
	for _, u := range lineSix {
		assert.True(t, covered(body, u, catch), "unit %d %s", u.Index, u)
	}
	closes := 0
	for _, u := range body.Units {
		if u.Kind == ir.InvokeStmt && u.Uses[0].(ir.Invoke).Method == "close" {
			closes++
			assert.Less(t, u.Index, catch, "resources are not closed after the catch clause")
		}
	}
	assert.Equal(t, 4, closes, "each resource is closed on the normal and the exceptional path")

	pair := pairIn("Input")
	res := analyze(t, prog, "Input", 5, 6, 7, 8, 9, 11, 13)
	assert.True(t, res.Control.Contains(pair(9, 6)), "a failing resource initialization enters the catch clause")
	for _, p := range []stmt.Pair{pair(11, 9), pair(11, 7), pair(13, 11)} {
		assert.True(t, res.Data.Contains(p), "missing data dependence %s", p)
	}
}

func TestImplicitExceptions(t *testing.T) {
	prog := lowerSource(t, `import java.util.*;

class Calc {
    int div(int r) {
        try {
            try {
                r = 1 / r;
            } finally {
                r++;
            }
        } catch (Exception e) {
            throw new RuntimeException(e);
        }
        assert r > 0 : "positive";
        return r;
    }

    double ratio(double a, int b) {
        return a / 2.0 + (long) b;
    }
}
`)
	calc := prog.Types[0]
	body, err := calc.Methods[0].Body()
	require.NoError(t, err)
	division := unitsAt(body, 7)
	require.Len(t, division, 1)
	assert.True(t, division[0].MayThrow, "integer division may throw")
	assert.Equal(t, "java.lang.Exception", body.Traps[len(body.Traps)-1].Exception)

	kinds := map[ir.Kind]bool{}
	for _, u := range unitsAt(body, 14) {
		kinds[u.Kind] = true
	}
	assert.Equal(t, map[ir.Kind]bool{ir.If: true, ir.Assign: true, ir.Throw: true}, kinds)

	ratio, err := calc.Methods[1].Body()
	require.NoError(t, err)
	ret := unitsAt(ratio, 19)
	require.Len(t, ret, 1)
	assert.False(t, ret[0].MayThrow, "floating point division and primitive casts do not throw")

	pair := pairIn("Calc")
	res := analyze(t, prog, "Calc", 7, 9, 11, 12, 14, 15)
	for _, p := range []stmt.Pair{pair(11, 7), pair(12, 7), pair(14, 7), pair(15, 14)} {
		assert.True(t, res.Control.Contains(p), "missing control dependence %s", p)
	}
}

func TestFinallyBeforeJumps(t *testing.T) {
	prog := lowerSource(t, `class Acc {
    int loop(int[] a) {
        int n = 0;
        for (int x : a) {
            try {
                if (x < 0) {
                    continue;
                }
                if (x == 0) {
                    return n;
                }
                n = n + x;
            } finally {
                total = n;
            }
        }
        return n;
    }

    int total;
}
`)
	body, err := prog.Types[0].Methods[0].Body()
	require.NoError(t, err)
	assert.Len(t, unitsAt(body, 14), 4, "finally runs before continue, return, at the end of the block and on exceptions")

	var ret *ir.Unit
	for _, u := range unitsAt(body, 10) {
		if u.Kind == ir.Return {
			ret = u
		}
	}
	require.NotNil(t, ret)
	assert.Equal(t, 14, body.Units[ret.Index-1].Line, "the finally block is copied before the return")
	for _, tr := range body.Traps {
		assert.False(t, tr.Begin <= ret.Index && ret.Index < tr.End, "the return is not protected")
	}

	pair := pairIn("Acc")
	res := analyze(t, prog, "Acc", 3, 6, 7, 9, 10, 12, 14, 17)
	for _, p := range []stmt.Pair{pair(14, 3), pair(14, 12), pair(10, 3), pair(17, 12)} {
		assert.True(t, res.Data.Contains(p), "missing data dependence %s", p)
	}
}

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
	"context"
	"testing"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/features"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

const sampleType = "example.com/pdgtest/sample.go"

func loadSample(t *testing.T) LoadedProgram {
	t.Helper()
	prog, err := LoadProgram(context.Background(), &packages.Config{Dir: "testdata/src"},
		config.NewDiscardLogGroup(), []string{"./..."})
	require.NoError(t, err)
	return prog
}

func st(line int) stmt.Statement { return stmt.Statement{Type: sampleType, Line: line} }

func pair(a, b int) stmt.Pair { return stmt.Pair{Source: st(a), Target: st(b)} }

func TestLoadProgram(t *testing.T) {
	prog := loadSample(t)
	require.Len(t, prog.Program.Types, 1)
	typ := prog.Program.TypeByName(sampleType)
	require.NotNil(t, typ)

	var names []string
	for _, m := range typ.Methods {
		names = append(names, m.Name)
		assert.True(t, m.Concrete, m.Name)
	}
	// ordered by position, anonymous functions included
	assert.Equal(t, []string{"Add", "Record", "Apply", "Apply$1", "each", "Lookup"}, names)
	assert.Equal(t, "(*example.com/pdgtest.Counter).Add", typ.Methods[0].Signature)
}

func TestLowerFunction(t *testing.T) {
	prog := loadSample(t)
	typ := prog.Program.TypeByName(sampleType)
	require.NotNil(t, typ)
	body, err := typ.Methods[0].Body()
	require.NoError(t, err)
	assert.Empty(t, body.Traps)
	assert.True(t, body.HasBranches())

	var stores, branches int
	for _, u := range body.Units {
		if u.Kind == ir.Assign && len(u.Defs) == 1 {
			if f, ok := u.Defs[0].(ir.InstanceField); ok {
				assert.Equal(t, "n", f.Field)
				assert.Equal(t, ir.Local{Name: "c"}, f.Base)
				stores++
			}
		}
		if u.Kind == ir.If {
			branches++
			assert.Len(t, u.Succs, 2)
			assert.Equal(t, 9, u.Line)
		}
		if u.Kind == ir.Goto {
			assert.Equal(t, ir.NoLine, u.Line)
		}
		assert.NotEmpty(t, u.Text)
	}
	assert.Equal(t, 2, stores)
	assert.Equal(t, 1, branches)
}

func TestAnalyzeSample(t *testing.T) {
	prog := loadSample(t)
	requests := features.Requests{}
	for _, line := range []int{8, 9, 10, 15, 16, 20, 22, 24, 34, 35, 36} {
		requests.Add(st(line))
	}
	res, err := pdg.Analyze(prog.Program, requests, config.NewDefault(), config.NewDiscardLogGroup())
	require.NoError(t, err)

	assert.True(t, res.Control.Contains(pair(10, 9)), "store in the branch depends on the condition")
	for _, p := range []stmt.Pair{
		pair(9, 8),   // field load after field store
		pair(16, 15), // global load after global store
		pair(24, 20), // captured variable read after its initialization
		pair(35, 34), // map lookup after map update
		pair(36, 35),
	} {
		assert.True(t, res.Data.Contains(p), "missing data dependence %s", p)
	}
	assert.Contains(t, res.Methods.SignaturesOf(st(8)), "(*example.com/pdgtest.Counter).Add")
	assert.Contains(t, res.Methods.SignaturesOf(st(22)), "example.com/pdgtest.Apply$1")
}

func TestLoadProgramErrors(t *testing.T) {
	_, err := LoadProgram(context.Background(), &packages.Config{Dir: "testdata/src"},
		config.NewDiscardLogGroup(), []string{"./does-not-exist"})
	assert.Error(t, err)
}

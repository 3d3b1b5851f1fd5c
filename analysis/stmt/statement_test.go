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

package stmt

import (
	"testing"

	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		unit *ir.Unit
		want string // empty for none
	}{
		{"with line", &ir.Unit{Line: 3, Kind: ir.Assign}, "A#3"},
		{"line zero", &ir.Unit{Line: 0, Kind: ir.Nop}, "A#0"},
		{"no line", &ir.Unit{Line: ir.NoLine, Kind: ir.Assign}, ""},
		{"caught exception", &ir.Unit{Line: 4, Kind: ir.Identity,
			Defs: []ir.Value{ir.Local{Name: "e"}}, Uses: []ir.Value{ir.CaughtException{}}}, ""},
		{"parameter identity", &ir.Unit{Line: 4, Kind: ir.Identity,
			Defs: []ir.Value{ir.Local{Name: "p"}}, Uses: []ir.Value{ir.Local{Name: "@parameter0"}}}, "A#4"},
		{"nil", nil, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, ok := Of("A", test.unit).Get()
			if test.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, test.want, s.String())
		})
	}
}

func TestParse(t *testing.T) {
	s, err := Parse("org.x.A$B#12")
	require.NoError(t, err)
	assert.Equal(t, Statement{Type: "org.x.A$B", Line: 12}, s)

	s, err = Parse("a#b#7")
	require.NoError(t, err)
	assert.Equal(t, "a#b", s.Type)

	for _, bad := range []string{"", "A", "#3", "A#", "A#x", "A#-1"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestPairOf(t *testing.T) {
	u1 := &ir.Unit{Index: 0, Line: 1}
	u2 := &ir.Unit{Index: 1, Line: 2}
	u2bis := &ir.Unit{Index: 2, Line: 2}
	noLine := &ir.Unit{Index: 3, Line: ir.NoLine}

	p, ok := PairOf("T", u2, u1).Get()
	require.True(t, ok)
	assert.Equal(t, "T#2,T#1", p.String())

	none := funcutil.None[Pair]()
	assert.Equal(t, none, PairOf("T", u2, u2bis), "same statement")
	assert.Equal(t, none, PairOf("T", u1, noLine))
	assert.Equal(t, none, PairOf("T", noLine, u1))
}

func TestRelationSet(t *testing.T) {
	a := Statement{"T", 1}
	b := Statement{"T", 2}
	c := Statement{"T", 10}
	r := NewRelationSet()
	assert.True(t, r.Add(Pair{c, a}))
	assert.True(t, r.Add(Pair{b, a}))
	assert.False(t, r.Add(Pair{b, a}))
	assert.True(t, r.Add(Pair{a, b}), "direction matters")
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []Pair{{a, b}, {b, a}, {c, a}}, r.Pairs())

	other := NewRelationSet()
	other.Add(Pair{c, b})
	other.Add(Pair{b, a})
	r.Merge(other).Merge(nil)
	assert.Equal(t, 4, r.Len())
	assert.True(t, r.Contains(Pair{c, b}))
	assert.False(t, r.Equal(other))
}

func TestMethodSet(t *testing.T) {
	m := NewMethodSet()
	m.Add(MethodEntry{Statement{"T", 3}, "<T: void g()>"})
	m.Add(MethodEntry{Statement{"T", 3}, "<T: void f()>"})
	assert.False(t, m.Add(MethodEntry{Statement{"T", 3}, "<T: void f()>"}))
	m.Add(MethodEntry{Statement{"T", 1}, "<T: void f()>"})
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"<T: void f()>", "<T: void g()>"}, m.SignaturesOf(Statement{"T", 3}))
	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "T#1,<T: void f()>", entries[0].String())
	assert.Equal(t, "T#3,<T: void f()>", entries[1].String())
}

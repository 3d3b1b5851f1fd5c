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

package dataflow

import (
	"github.com/awslabs/ar-go-pdg/analysis/cfg"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"golang.org/x/exp/slices"
)

// Defs is the flow of the reaching values analysis. It maps every abstract value, by key, to the set of units that
// may have defined it last. Defs are never mutated; updates return a copy.
type Defs struct {
	m map[string][]int // sorted unit indexes
}

// EmptyDefs returns the flow where no value has been defined.
func EmptyDefs() Defs {
	return Defs{}
}

// Lookup returns the units that may have defined v last. The result must not be modified.
func (d Defs) Lookup(v ir.Value) []int {
	return d.m[v.Key()]
}

// Len returns the number of values that have a definition
func (d Defs) Len() int {
	return len(d.m)
}

// Keys returns the keys of the defined values
func (d Defs) Keys() []string {
	keys := make([]string, 0, len(d.m))
	for k := range d.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Define returns a new flow where v is defined exactly by the units in defs.
func (d Defs) Define(v ir.Value, defs ...int) Defs {
	m := make(map[string][]int, len(d.m)+1)
	for k, s := range d.m {
		m[k] = s
	}
	s := slices.Clone(defs)
	slices.Sort(s)
	m[v.Key()] = slices.Compact(s)
	return Defs{m: m}
}

// Union returns the flow where every value maps to the union of its definitions in d and e.
func (d Defs) Union(e Defs) Defs {
	if len(e.m) == 0 {
		return d
	}
	if len(d.m) == 0 {
		return e
	}
	m := make(map[string][]int, len(d.m))
	for k, s := range d.m {
		m[k] = s
	}
	for k, s := range e.m {
		if prev, ok := m[k]; ok {
			m[k] = unionSorted(prev, s)
		} else {
			m[k] = s
		}
	}
	return Defs{m: m}
}

// Equal returns true when both flows map the same values to the same units.
func (d Defs) Equal(e Defs) bool {
	if len(d.m) != len(e.m) {
		return false
	}
	for k, s := range d.m {
		t, ok := e.m[k]
		if !ok || !slices.Equal(s, t) {
			return false
		}
	}
	return true
}

func unionSorted(a, b []int) []int {
	if slices.Equal(a, b) {
		return a
	}
	res := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			res = append(res, a[i])
			i++
		case a[i] > b[j]:
			res = append(res, b[j])
			j++
		default:
			res = append(res, a[i])
			i++
			j++
		}
	}
	res = append(res, a[i:]...)
	return append(res, b[j:]...)
}

// A Dependence records that unit Unit reads Value, which may have been defined last by unit Def.
type Dependence struct {
	Unit  int
	Def   int
	Value ir.Value
}

// reachingValues is the reaching values problem of a graph. Candidates are recorded as a side effect of the
// transfer function.
type reachingValues struct {
	graph *cfg.ExceptionalUnitGraph

	// candidates[u] are the dependences computed at the last visit of u
	candidates map[int][]Dependence
}

func (r *reachingValues) NewInitialFlow() Defs   { return EmptyDefs() }
func (r *reachingValues) EntryInitialFlow() Defs { return EmptyDefs() }
func (r *reachingValues) Merge(a, b Defs) Defs   { return a.Union(b) }
func (r *reachingValues) Equal(a, b Defs) bool   { return a.Equal(b) }

func (r *reachingValues) FlowThrough(in Defs, n int) Defs {
	u := r.graph.Unit(n)

	var candidates []Dependence
	type seenKey struct {
		key string
		def int
	}
	seen := map[seenKey]bool{}
	for _, v := range u.UseValues() {
		// the invocation is not a value, but its receiver and arguments are
		if _, isInvoke := v.(ir.Invoke); isInvoke {
			continue
		}
		for _, d := range in.Lookup(v) {
			k := seenKey{v.Key(), d}
			if !seen[k] {
				seen[k] = true
				candidates = append(candidates, Dependence{Unit: n, Def: d, Value: v})
			}
		}
	}
	if len(candidates) > 0 {
		r.candidates[n] = candidates
	} else {
		delete(r.candidates, n)
	}

	out := in
	for _, def := range u.Defs {
		if !ir.IsAddressable(def) || r.componentDefinedAtLine(out, def, u.Line) {
			continue
		}
		out = out.Define(def, n)
	}
	return out
}

// componentDefinedAtLine returns true if a component of v reaches a definition at the given line. A write to a[i]
// in the statement that also defines a is part of the net effect of that statement.
func (r *reachingValues) componentDefinedAtLine(flow Defs, v ir.Value, line int) bool {
	found := false
	ir.VisitComponents(v, func(c ir.Value) {
		for _, d := range flow.Lookup(c) {
			if r.graph.Unit(d).Line == line {
				found = true
			}
		}
	})
	return found
}

// ReachingValuesResult is the result of the reaching values analysis of a graph.
type ReachingValuesResult struct {
	Solution   Solution[Defs]
	candidates map[int][]Dependence
}

// ReachingValues runs the reaching values analysis on g.
func ReachingValues(g *cfg.ExceptionalUnitGraph) *ReachingValuesResult {
	r := &reachingValues{graph: g, candidates: map[int][]Dependence{}}
	sol := RunForward[Defs](g, r)
	return &ReachingValuesResult{Solution: sol, candidates: r.candidates}
}

// Dependences returns the dependences computed at the fixpoint, ordered by unit and then by defining unit.
func (res *ReachingValuesResult) Dependences() []Dependence {
	var deps []Dependence
	for _, c := range res.candidates {
		deps = append(deps, c...)
	}
	slices.SortStableFunc(deps, func(a, b Dependence) bool {
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.Def != b.Def {
			return a.Def < b.Def
		}
		return a.Value.Key() < b.Value.Key()
	})
	return deps
}

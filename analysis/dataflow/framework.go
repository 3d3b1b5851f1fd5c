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

// Package dataflow implements forward dataflow analyses over the graphs of method bodies and the reaching values
// analysis from which data dependences are extracted.
package dataflow

import (
	"github.com/awslabs/ar-go-pdg/analysis/cfg"
)

// A FlowAnalysis is a forward dataflow problem with flows of type F. Flows must not be mutated once returned:
// Merge and FlowThrough return new flows.
type FlowAnalysis[F any] interface {
	// NewInitialFlow returns the flow at nodes that have not been visited yet
	NewInitialFlow() F

	// EntryInitialFlow returns the flow entering the heads of the graph
	EntryInitialFlow() F

	// Merge returns the flow at a confluence of a and b
	Merge(a, b F) F

	// FlowThrough returns the flow out of node n when in is the flow entering it
	FlowThrough(in F, n int) F

	// Equal returns true when the two flows are the same
	Equal(a, b F) bool
}

// A Solution holds the flows entering and leaving every node at the fixpoint.
type Solution[F any] struct {
	In  []F
	Out []F

	// Visits is the number of transfer function applications it took to reach the fixpoint
	Visits int
}

// RunForward solves the forward problem a over g. The worklist is seeded with all nodes in reverse post-order,
// followed by the nodes unreachable from the heads in index order. The successors of a node are queued when its
// out flow changes, or after its first visit.
func RunForward[F any](g cfg.DirectedGraph, a FlowAnalysis[F]) Solution[F] {
	n := g.Size()
	sol := Solution[F]{In: make([]F, n), Out: make([]F, n)}
	if n == 0 {
		return sol
	}
	isHead := make([]bool, n)
	for _, h := range g.Heads() {
		isHead[h] = true
	}
	for i := 0; i < n; i++ {
		sol.In[i] = a.NewInitialFlow()
		sol.Out[i] = a.NewInitialFlow()
	}

	queued := make([]bool, n)
	visited := make([]bool, n)
	var worklist []int
	push := func(v int) {
		if !queued[v] {
			queued[v] = true
			worklist = append(worklist, v)
		}
	}
	for _, v := range cfg.ReversePostOrder(g) {
		push(v)
	}
	for v := 0; v < n; v++ {
		push(v)
	}

	for len(worklist) > 0 { // until fixpoint is reached
		v := worklist[0]
		worklist = worklist[1:]
		queued[v] = false

		var in F
		if isHead[v] {
			in = a.EntryInitialFlow()
		} else {
			in = a.NewInitialFlow()
		}
		for _, p := range g.PredsOf(v) {
			in = a.Merge(in, sol.Out[p])
		}
		sol.In[v] = in
		out := a.FlowThrough(in, v)
		sol.Visits++
		if visited[v] && a.Equal(out, sol.Out[v]) {
			continue
		}
		visited[v] = true
		sol.Out[v] = out
		for _, s := range g.SuccsOf(v) {
			push(s)
		}
	}
	return sol
}

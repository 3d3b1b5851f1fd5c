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

// Package cfg builds the exceptional control flow graphs of method bodies and the views of those graphs used by the
// dependence analyses.
package cfg

import (
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"golang.org/x/exp/slices"
)

// A DirectedGraph is a graph over the integers 0..Size()-1.
type DirectedGraph interface {
	// Size returns the number of nodes
	Size() int

	// Heads returns the entry nodes
	Heads() []int

	// Tails returns the exit nodes
	Tails() []int

	// PredsOf returns the predecessors of node n
	PredsOf(n int) []int

	// SuccsOf returns the successors of node n
	SuccsOf(n int) []int
}

// An ExceptionalUnitGraph is the control flow graph of a body where units that may throw inside a trap are connected
// to the handlers of that trap.
//
// For a unit u that may throw to a handler h, the predecessors of u are connected to h, since the exception may be
// raised before any of the effects of u happened. The edge u -> h is added as well, unless the graph omits
// excepting unit edges and u has no side effects.
type ExceptionalUnitGraph struct {
	body  *ir.Body
	succs [][]int
	preds [][]int

	// regular holds the edges that come from the units' explicit successors
	regular map[edge]bool

	// dests[u] are the handlers that can receive an exception raised by u
	dests [][]int

	heads []int
	tails []int
}

type edge struct{ from, to int }

// NewExceptionalUnitGraph returns the exceptional graph of body. If omitExceptingUnitEdges is true, the edges from a
// side-effect free excepting unit to its handlers are not in the graph.
func NewExceptionalUnitGraph(body *ir.Body, omitExceptingUnitEdges bool) *ExceptionalUnitGraph {
	n := body.Size()
	g := &ExceptionalUnitGraph{
		body:    body,
		succs:   make([][]int, n),
		preds:   make([][]int, n),
		regular: map[edge]bool{},
		dests:   make([][]int, n),
	}
	for _, u := range body.Units {
		for _, s := range u.Succs {
			g.addEdge(u.Index, s)
			g.regular[edge{u.Index, s}] = true
		}
	}
	// regular predecessors are saved before exceptional edges are added
	regularPreds := make([][]int, n)
	for i := range g.preds {
		regularPreds[i] = slices.Clone(g.preds[i])
	}
	if n > 0 {
		g.heads = []int{0}
	}
	for _, u := range body.Units {
		dests := body.ExceptionDests(u.Index)
		g.dests[u.Index] = dests
		for _, h := range dests {
			for _, p := range regularPreds[u.Index] {
				g.addEdge(p, h)
			}
			if !omitExceptingUnitEdges || u.HasSideEffects() {
				g.addEdge(u.Index, h)
			}
			if slices.Contains(g.heads, u.Index) && !slices.Contains(g.heads, h) {
				g.heads = append(g.heads, h)
			}
		}
	}
	for i := 0; i < n; i++ {
		if len(g.succs[i]) == 0 {
			g.tails = append(g.tails, i)
		}
	}
	return g
}

func (g *ExceptionalUnitGraph) addEdge(from, to int) {
	if slices.Contains(g.succs[from], to) {
		return
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// Body returns the body of the graph
func (g *ExceptionalUnitGraph) Body() *ir.Body { return g.body }

// Unit returns the unit of node n
func (g *ExceptionalUnitGraph) Unit(n int) *ir.Unit { return g.body.Units[n] }

// Size implements DirectedGraph
func (g *ExceptionalUnitGraph) Size() int { return len(g.succs) }

// Heads implements DirectedGraph
func (g *ExceptionalUnitGraph) Heads() []int { return g.heads }

// Tails implements DirectedGraph
func (g *ExceptionalUnitGraph) Tails() []int { return g.tails }

// PredsOf implements DirectedGraph
func (g *ExceptionalUnitGraph) PredsOf(n int) []int { return g.preds[n] }

// SuccsOf implements DirectedGraph
func (g *ExceptionalUnitGraph) SuccsOf(n int) []int { return g.succs[n] }

// ExceptionDests returns the handlers unit n may throw to
func (g *ExceptionalUnitGraph) ExceptionDests(n int) []int { return g.dests[n] }

// IsRegularEdge returns true if the edge from -> to is an explicit control flow edge of the body.
func (g *ExceptionalUnitGraph) IsRegularEdge(from, to int) bool { return g.regular[edge{from, to}] }

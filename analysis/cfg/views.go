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

package cfg

import (
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"golang.org/x/exp/slices"
)

// A HandlerAwareGraph is the exceptional graph of a body, without omitted edges, where the predecessors of every
// handler are narrowed to the units that can throw to it. Control dependence must be attributed to the unit that
// raises the exception, not to the units that merely lead to it.
//
// Only exceptional edges are pruned: an explicit edge to a handler entry is kept.
type HandlerAwareGraph struct {
	*ExceptionalUnitGraph

	// sparse overrides of the adjacency lists of the underlying graph
	predsOverride map[int][]int
	succsOverride map[int][]int
}

// NewHandlerAwareGraph returns the handler-aware view of the exceptional graph of body.
func NewHandlerAwareGraph(body *ir.Body) *HandlerAwareGraph {
	g := &HandlerAwareGraph{
		ExceptionalUnitGraph: NewExceptionalUnitGraph(body, false),
		predsOverride:        map[int][]int{},
		succsOverride:        map[int][]int{},
	}
	for _, trap := range body.Traps {
		h := trap.Handler
		preds := g.PredsOf(h)
		kept := funcutil.Filter(preds, func(p int) bool {
			return g.IsRegularEdge(p, h) || slices.Contains(g.ExceptionDests(p), h)
		})
		if len(kept) == len(preds) {
			continue
		}
		for _, p := range preds {
			if slices.Contains(kept, p) {
				continue
			}
			g.succsOverride[p] = funcutil.Filter(g.SuccsOf(p), func(s int) bool { return s != h })
		}
		g.predsOverride[h] = kept
	}
	return g
}

// PredsOf implements DirectedGraph
func (g *HandlerAwareGraph) PredsOf(n int) []int {
	if preds, ok := g.predsOverride[n]; ok {
		return preds
	}
	return g.ExceptionalUnitGraph.PredsOf(n)
}

// SuccsOf implements DirectedGraph
func (g *HandlerAwareGraph) SuccsOf(n int) []int {
	if succs, ok := g.succsOverride[n]; ok {
		return succs
	}
	return g.ExceptionalUnitGraph.SuccsOf(n)
}

// An InverseGraph is a graph with all the edges of the underlying graph flipped. Its heads are the tails of the
// underlying graph.
type InverseGraph struct {
	g DirectedGraph
}

// Inverse returns the inverse of g
func Inverse(g DirectedGraph) InverseGraph {
	return InverseGraph{g: g}
}

// Size implements DirectedGraph
func (i InverseGraph) Size() int { return i.g.Size() }

// Heads implements DirectedGraph
func (i InverseGraph) Heads() []int { return i.g.Tails() }

// Tails implements DirectedGraph
func (i InverseGraph) Tails() []int { return i.g.Heads() }

// PredsOf implements DirectedGraph
func (i InverseGraph) PredsOf(n int) []int { return i.g.SuccsOf(n) }

// SuccsOf implements DirectedGraph
func (i InverseGraph) SuccsOf(n int) []int { return i.g.PredsOf(n) }

// IsTrivial returns true if the body has no trap and no branching unit. No unit of a trivial body is
// conditionally executed.
func IsTrivial(body *ir.Body) bool {
	return len(body.Traps) == 0 && !body.HasBranches()
}

// ReversePostOrder returns the nodes of g reachable from its heads in reverse post-order of a depth-first search,
// visiting heads and successors in order.
func ReversePostOrder(g DirectedGraph) []int {
	visited := make([]bool, g.Size())
	order := make([]int, 0, g.Size())
	type frame struct {
		node int
		next int
	}
	for _, h := range g.Heads() {
		if visited[h] {
			continue
		}
		visited[h] = true
		stack := []frame{{node: h}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := g.SuccsOf(top.node)
			if top.next < len(succs) {
				s := succs[top.next]
				top.next++
				if !visited[s] {
					visited[s] = true
					stack = append(stack, frame{node: s})
				}
				continue
			}
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}
	funcutil.Reverse(order)
	return order
}

// A MethodGraph holds the graphs of a body used by the dependence analyses. Each graph is built on first use.
type MethodGraph struct {
	body         *ir.Body
	standard     *ExceptionalUnitGraph
	handlerAware *HandlerAwareGraph
}

// NewMethodGraph returns the graphs of body
func NewMethodGraph(body *ir.Body) *MethodGraph {
	return &MethodGraph{body: body}
}

// Body returns the body of the method
func (m *MethodGraph) Body() *ir.Body { return m.body }

// Standard returns the exceptional graph of the body where edges from side-effect free excepting units to their
// handlers are omitted.
func (m *MethodGraph) Standard() *ExceptionalUnitGraph {
	if m.standard == nil {
		m.standard = NewExceptionalUnitGraph(m.body, true)
	}
	return m.standard
}

// HandlerAware returns the handler-aware view of the exceptional graph of the body.
func (m *MethodGraph) HandlerAware() *HandlerAwareGraph {
	if m.handlerAware == nil {
		m.handlerAware = NewHandlerAwareGraph(m.body)
	}
	return m.handlerAware
}

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

// Package dominance computes dominator trees, post-dominator trees and dominance frontiers of control flow graphs.
//
// Trees are computed with the iterative algorithm of Cooper, Harvey and Kennedy over a graph augmented with a
// virtual root connected to every head of the graph. The virtual root has the index Size() of the graph and never
// appears as an immediate dominator in the results of the Tree methods.
package dominance

import (
	"github.com/awslabs/ar-go-pdg/analysis/cfg"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"github.com/awslabs/ar-go-pdg/internal/graphutil"
)

// A Tree is a dominator tree over the nodes of a graph plus a virtual root.
type Tree struct {
	// graph is the graph the tree has been computed on, virtual root included
	graph *graphutil.IGraph

	root int

	// idom[v] is the immediate dominator of v, -1 for the root and for unreachable nodes
	idom []int

	children [][]int
}

// Dominators returns the dominator tree of g.
func Dominators(g cfg.DirectedGraph) *Tree {
	n := g.Size()
	ig := graphutil.NewIGraph(n + 1)
	for v := 0; v < n; v++ {
		for _, s := range g.SuccsOf(v) {
			ig.AddEdge(v, s)
		}
	}
	for _, h := range g.Heads() {
		ig.AddEdge(n, h)
	}
	return newTree(ig, n)
}

// PostDominators returns the post-dominator tree of g: the dominator tree of the inverse of g, where the virtual
// root stands for a unique exit joined to every tail of g.
//
// Nodes that cannot reach any tail, e.g. the nodes of an infinite loop, reach a strongly connected component of g
// that has no exit. The smallest node of every such component is joined to the virtual exit as well.
func PostDominators(g cfg.DirectedGraph) *Tree {
	n := g.Size()
	forward := graphutil.FromSuccessors(n, g.SuccsOf)
	inv := cfg.Inverse(g)
	ig := graphutil.NewIGraph(n + 1)
	for v := 0; v < n; v++ {
		for _, s := range inv.SuccsOf(v) {
			ig.AddEdge(v, s)
		}
	}
	for _, h := range inv.Heads() {
		ig.AddEdge(n, h)
	}
	exits := forward.ReachesAny(g.Tails())
	for _, scc := range forward.SinkComponents() {
		if !exits[scc[0]] {
			ig.AddEdge(n, scc[0])
		}
	}
	return newTree(ig, n)
}

func newTree(ig *graphutil.IGraph, root int) *Tree {
	t := &Tree{
		graph:    ig,
		root:     root,
		idom:     computeIdoms(ig, root),
		children: make([][]int, ig.Order()),
	}
	for v, d := range t.idom {
		if d >= 0 {
			t.children[d] = append(t.children[d], v)
		}
	}
	return t
}

// computeIdoms is the iterative dominator algorithm of Cooper, Harvey and Kennedy.
func computeIdoms(g *graphutil.IGraph, root int) []int {
	rpo := reversePostOrder(g, root)
	// po[v] is the post-order number of v; the root has the highest number
	po := make([]int, g.Order())
	for i := range po {
		po[i] = -1
	}
	for i, v := range rpo {
		po[v] = len(rpo) - 1 - i
	}
	idom := make([]int, g.Order())
	for i := range idom {
		idom[i] = -1
	}
	idom[root] = root
	intersect := func(a, b int) int {
		for a != b {
			for po[a] < po[b] {
				a = idom[a]
			}
			for po[b] < po[a] {
				b = idom[b]
			}
		}
		return a
	}
	for changed := true; changed; {
		changed = false
		for _, v := range rpo[1:] {
			newIdom := -1
			for _, p := range g.Preds(v) {
				if idom[p] < 0 {
					continue
				}
				if newIdom < 0 {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom >= 0 && idom[v] != newIdom {
				idom[v] = newIdom
				changed = true
			}
		}
	}
	idom[root] = -1
	return idom
}

func reversePostOrder(g *graphutil.IGraph, root int) []int {
	visited := make([]bool, g.Order())
	var order []int
	var visit func(v int)
	visit = func(v int) {
		visited[v] = true
		for _, s := range g.Succs(v) {
			if !visited[s] {
				visit(s)
			}
		}
		order = append(order, v)
	}
	visit(root)
	funcutil.Reverse(order)
	return order
}

// Size returns the number of nodes of the tree, virtual root excluded
func (t *Tree) Size() int { return t.root }

// ImmediateDominator returns the immediate dominator of v. It returns false if v is immediately dominated by the
// virtual root only, or if v is unreachable.
func (t *Tree) ImmediateDominator(v int) (int, bool) {
	d := t.idom[v]
	if d < 0 || d == t.root {
		return -1, false
	}
	return d, true
}

// Children returns the nodes immediately dominated by v
func (t *Tree) Children(v int) []int { return t.children[v] }

// dominates returns true if a dominates b. Every node dominates itself.
func (t *Tree) dominates(a, b int) bool {
	for v := b; v >= 0; v = t.idom[v] {
		if v == a {
			return true
		}
	}
	return false
}

// PostOrder returns the nodes of the tree, virtual root included, children before parents.
func (t *Tree) PostOrder() []int {
	var order []int
	type frame struct{ node, next int }
	stack := []frame{{node: t.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(t.children[top.node]) {
			c := t.children[top.node][top.next]
			top.next++
			stack = append(stack, frame{node: c})
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}
	return order
}

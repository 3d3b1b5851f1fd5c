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

package graphutil

import (
	yb "github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
)

// IGraph is an index-based directed graph over the nodes 0..Order()-1, built to work with existing graph
// libraries. It implements the methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Directed.
type IGraph struct {
	// succs[x] are the successors of x, in insertion order, without duplicates
	succs [][]int

	// preds[x] are the predecessors of x, in insertion order, without duplicates
	preds [][]int
}

// NewIGraph returns a graph of order n without edges.
func NewIGraph(n int) *IGraph {
	return &IGraph{succs: make([][]int, n), preds: make([][]int, n)}
}

// FromSuccessors returns the graph of order n whose edges are given by succs.
func FromSuccessors(n int, succs func(int) []int) *IGraph {
	g := NewIGraph(n)
	for x := 0; x < n; x++ {
		for _, y := range succs(x) {
			g.AddEdge(x, y)
		}
	}
	return g
}

// AddEdge adds the edge x -> y if it is not already in the graph.
func (g *IGraph) AddEdge(x, y int) {
	if slices.Contains(g.succs[x], y) {
		return
	}
	g.succs[x] = append(g.succs[x], y)
	g.preds[y] = append(g.preds[y], x)
}

// Succs returns the successors of x. The result must not be modified.
func (g *IGraph) Succs(x int) []int { return g.succs[x] }

// Preds returns the predecessors of x. The result must not be modified.
func (g *IGraph) Preds(x int) []int { return g.preds[x] }

// Order implements the order of the graph.Iterator interface for the IGraph
func (g *IGraph) Order() int {
	return len(g.succs)
}

// Visit implements the graph.Iterator interface for the IGraph
func (g *IGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if v < 0 || v >= len(g.succs) {
		return false
	}
	for _, w := range g.succs[v] {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// ReachableFrom returns, for every node, whether it is reachable from one of the roots.
func (g *IGraph) ReachableFrom(roots ...int) []bool {
	res := make([]bool, g.Order())
	for _, r := range roots {
		if res[r] {
			continue
		}
		res[r] = true
		yb.BFS(g, r, func(_, w int, _ int64) { res[w] = true })
	}
	return res
}

// ReachesAny returns, for every node, whether it can reach one of the targets.
func (g *IGraph) ReachesAny(targets []int) []bool {
	return g.Inverse().ReachableFrom(targets...)
}

// Inverse returns a new graph with all the edges of g flipped.
func (g *IGraph) Inverse() *IGraph {
	inv := NewIGraph(g.Order())
	for x, ys := range g.succs {
		for _, y := range ys {
			inv.AddEdge(y, x)
		}
	}
	return inv
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (g *IGraph) Node(id int64) graph.Node {
	if id < 0 || id >= int64(g.Order()) {
		return nil
	}
	return INode(id)
}

// Nodes returns the set of nodes in the graph
func (g *IGraph) Nodes() graph.Nodes {
	ids := make([]int, g.Order())
	for i := range ids {
		ids[i] = i
	}
	return newNodeSet(ids)
}

// From returns the set of successors of the node id
func (g *IGraph) From(id int64) graph.Nodes {
	if id < 0 || id >= int64(g.Order()) {
		return graph.Empty
	}
	return newNodeSet(g.succs[id])
}

// To returns the set of predecessors of the node id
func (g *IGraph) To(id int64) graph.Nodes {
	if id < 0 || id >= int64(g.Order()) {
		return graph.Empty
	}
	return newNodeSet(g.preds[id])
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (g *IGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.HasEdgeFromTo(xid, yid) || g.HasEdgeFromTo(yid, xid)
}

// HasEdgeFromTo returns a boolean indicating whether there is an edge from uid to vid
func (g *IGraph) HasEdgeFromTo(uid, vid int64) bool {
	if uid < 0 || uid >= int64(g.Order()) {
		return false
	}
	return slices.Contains(g.succs[uid], int(vid))
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (g *IGraph) Edge(uid, vid int64) graph.Edge {
	if g.HasEdgeFromTo(uid, vid) {
		return IEdge{from: INode(uid), to: INode(vid)}
	}
	return nil
}

// *************** Nodes implementation **********************

// INode is a node of an IGraph
type INode int64

// ID returns the id of the node
func (n INode) ID() int64 {
	return int64(n)
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	ids []int

	// cur is the current index of the iterator, -1 before the first call to Next
	cur int
}

func newNodeSet(ids []int) *NodeSet {
	return &NodeSet{ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the iterator to its initial state
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return INode(ns.ids[ns.cur])
}

// *************** Edge implementation **********************

// IEdge implements the graph.Edge interface
type IEdge struct {
	from INode
	to   INode
}

// From returns the origin of the edge
func (e IEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e IEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e IEdge) ReversedEdge() graph.Edge {
	return IEdge{from: e.to, to: e.from}
}

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

package report

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// Edge kinds, used as edge labels
const (
	ControlKind   = "control"
	DataKind      = "data"
	DominanceKind = "dominance"
)

// A Graph is the dependence graph of a single type. Nodes are statements, and there is an edge s -> t when s
// depends on t.
type Graph struct {
	*simple.DirectedGraph
	Type  string
	nodes map[stmt.Statement]Node
}

// A Node is a statement in a Graph
type Node struct {
	id        int64
	Statement stmt.Statement
	Methods   []string
}

// ID implements graph.Node
func (n Node) ID() int64 { return n.id }

// DOTID implements dot.Node
func (n Node) DOTID() string { return n.Statement.String() }

// Attributes implements encoding.Attributer
func (n Node) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "shape", Value: "box"}}
	if len(n.Methods) > 0 {
		attrs = append(attrs, encoding.Attribute{Key: "tooltip", Value: strings.Join(n.Methods, "\n")})
	}
	return attrs
}

// An Edge holds all the relations between two statements
type Edge struct {
	F, T  Node
	Kinds []string
}

// From implements graph.Edge
func (e Edge) From() graph.Node { return e.F }

// To implements graph.Edge
func (e Edge) To() graph.Node { return e.T }

// ReversedEdge implements graph.Edge
func (e Edge) ReversedEdge() graph.Edge { return Edge{F: e.T, T: e.F, Kinds: e.Kinds} }

// Attributes implements encoding.Attributer
func (e Edge) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: strings.Join(e.Kinds, ",")}}
	switch {
	case funcutil.Contains(e.Kinds, ControlKind):
	case funcutil.Contains(e.Kinds, DataKind):
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	default:
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dotted"})
	}
	return attrs
}

// NodeOf returns the node of statement s, and false if s is not in the graph
func (g *Graph) NodeOf(s stmt.Statement) (Node, bool) {
	n, ok := g.nodes[s]
	return n, ok
}

// Kinds returns the kinds of the edge from -> to, or nil if there is no such edge
func (g *Graph) Kinds(from, to stmt.Statement) []string {
	f, ok1 := g.NodeOf(from)
	t, ok2 := g.NodeOf(to)
	if !ok1 || !ok2 {
		return nil
	}
	if e, ok := g.DirectedGraph.Edge(f.id, t.id).(Edge); ok {
		return e.Kinds
	}
	return nil
}

func (g *Graph) addEdge(p stmt.Pair, kind string) {
	f, t := g.nodes[p.Source], g.nodes[p.Target]
	kinds := []string{kind}
	if e, ok := g.DirectedGraph.Edge(f.id, t.id).(Edge); ok {
		kinds = append(append([]string{}, e.Kinds...), kind)
	}
	g.SetEdge(Edge{F: f, T: t, Kinds: kinds})
}

// BuildGraphs returns the dependence graphs of the results, one per type, ordered by type name. Node ids follow
// the statement order, so the graphs of equal results are identical.
func BuildGraphs(res *pdg.Results) []*Graph {
	relations := []struct {
		kind  string
		pairs []stmt.Pair
	}{
		{ControlKind, res.Control.Pairs()},
		{DataKind, res.Data.Pairs()},
		{DominanceKind, res.Dominance.Pairs()},
	}
	statements := map[string]map[stmt.Statement]bool{}
	add := func(s stmt.Statement) {
		if statements[s.Type] == nil {
			statements[s.Type] = map[stmt.Statement]bool{}
		}
		statements[s.Type][s] = true
	}
	for _, rel := range relations {
		for _, p := range rel.pairs {
			add(p.Source)
			add(p.Target)
		}
	}

	var graphs []*Graph
	for _, typeName := range funcutil.SortedKeys(statements) {
		g := &Graph{DirectedGraph: simple.NewDirectedGraph(), Type: typeName, nodes: map[stmt.Statement]Node{}}
		sorted := make([]stmt.Statement, 0, len(statements[typeName]))
		for s := range statements[typeName] {
			sorted = append(sorted, s)
		}
		slices.SortFunc(sorted, func(a, b stmt.Statement) bool { return stmt.Compare(a, b) < 0 })
		for i, s := range sorted {
			n := Node{id: int64(i), Statement: s, Methods: res.Methods.SignaturesOf(s)}
			g.nodes[s] = n
			g.AddNode(n)
		}
		for _, rel := range relations {
			for _, p := range rel.pairs {
				if p.Source.Type == typeName && p.Target.Type == typeName {
					g.addEdge(p, rel.kind)
				}
			}
		}
		graphs = append(graphs, g)
	}
	return graphs
}

// EncodeDOT writes the graph in the graphviz format
func EncodeDOT(w io.Writer, g *Graph) error {
	b, err := dot.Marshal(g, g.Type, "", "\t")
	if err != nil {
		return fmt.Errorf("could not marshal graph of %s: %w", g.Type, err)
	}
	_, err = w.Write(b)
	return err
}

// WriteDOT writes one graphviz file per type of the results, and returns the names of the files written.
func WriteDOT(ctx context.Context, dir string, base string, res *pdg.Results) ([]string, error) {
	var written []string
	for _, g := range BuildGraphs(res) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		filename := filepath.Join(dir, base+"."+fileSafe(g.Type)+DotExt)
		g := g
		if err := toFile(filename, func(w io.Writer) error { return EncodeDOT(w, g) }); err != nil {
			return written, err
		}
		written = append(written, filename)
	}
	return written, nil
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '$':
			return r
		}
		return '_'
	}, name)
}

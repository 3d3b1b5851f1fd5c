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
)

// SinkComponents returns the strongly connected components of g that have no edge leaving them. Each component is
// sorted, and components are ordered by their smallest node.
func (g *IGraph) SinkComponents() [][]int {
	sccs := yb.StrongComponents(g)
	comp := make([]int, g.Order())
	for c, scc := range sccs {
		for _, v := range scc {
			comp[v] = c
		}
	}
	leaves := make([]bool, len(sccs))
	for c := range leaves {
		leaves[c] = true
	}
	for v, succs := range g.succs {
		for _, w := range succs {
			if comp[w] != comp[v] {
				leaves[comp[v]] = false
			}
		}
	}
	var sinks [][]int
	for c, scc := range sccs {
		if leaves[c] {
			sink := slices.Clone(scc)
			slices.Sort(sink)
			sinks = append(sinks, sink)
		}
	}
	slices.SortFunc(sinks, func(a, b []int) bool { return a[0] < b[0] })
	return sinks
}

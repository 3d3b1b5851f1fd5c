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

package dominance

// Frontier returns the dominance frontier of every node of the tree, following Cytron et al.:
//
//	DF(x) = { y in succ(x) | idom(y) != x } U { z in DF(c) | c child of x, idom(z) != x }
//
// The frontier of node v is at index v. Frontier members are listed in discovery order, without duplicates. The
// virtual root has no predecessor and therefore never appears in a frontier.
func Frontier(t *Tree) [][]int {
	df := make([][]int, t.graph.Order())
	for _, x := range t.PostOrder() {
		seen := map[int]bool{}
		add := func(y int) {
			if !seen[y] && t.idom[y] != x {
				seen[y] = true
				df[x] = append(df[x], y)
			}
		}
		for _, y := range t.graph.Succs(x) {
			add(y)
		}
		for _, c := range t.Children(x) {
			for _, z := range df[c] {
				add(z)
			}
		}
	}
	return df
}

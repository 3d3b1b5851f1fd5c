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
	"golang.org/x/exp/slices"
)

// A RelationSet is a deduplicated set of statement pairs. Sets only grow.
// The zero RelationSet is not usable, use NewRelationSet.
type RelationSet struct {
	pairs map[Pair]bool
}

// NewRelationSet returns an empty relation set
func NewRelationSet() *RelationSet {
	return &RelationSet{pairs: map[Pair]bool{}}
}

// Add adds p to the set and returns true if it was not already in it.
func (r *RelationSet) Add(p Pair) bool {
	if r.pairs[p] {
		return false
	}
	r.pairs[p] = true
	return true
}

// Contains returns true if p is in the set
func (r *RelationSet) Contains(p Pair) bool {
	return r.pairs[p]
}

// Len returns the number of pairs in the set
func (r *RelationSet) Len() int {
	return len(r.pairs)
}

// Merge adds all the pairs of other to r, and returns r.
// @mutates r
func (r *RelationSet) Merge(other *RelationSet) *RelationSet {
	if other == nil {
		return r
	}
	for p := range other.pairs {
		r.pairs[p] = true
	}
	return r
}

// Equal returns true if both sets contain the same pairs.
func (r *RelationSet) Equal(other *RelationSet) bool {
	if r.Len() != other.Len() {
		return false
	}
	for p := range r.pairs {
		if !other.pairs[p] {
			return false
		}
	}
	return true
}

// Pairs returns the pairs of the set in increasing order (see ComparePairs).
func (r *RelationSet) Pairs() []Pair {
	res := make([]Pair, 0, len(r.pairs))
	for p := range r.pairs {
		res = append(res, p)
	}
	slices.SortFunc(res, func(a, b Pair) bool { return ComparePairs(a, b) < 0 })
	return res
}

// Compare orders statements by type name and then by line.
func Compare(a, b Statement) int {
	switch {
	case a.Type < b.Type:
		return -1
	case a.Type > b.Type:
		return 1
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	}
	return 0
}

// ComparePairs orders pairs by source and then by target.
func ComparePairs(a, b Pair) int {
	if c := Compare(a.Source, b.Source); c != 0 {
		return c
	}
	return Compare(a.Target, b.Target)
}

// A MethodEntry maps a statement to the signature of the method it belongs to.
type MethodEntry struct {
	Statement Statement
	Signature string
}

func (e MethodEntry) String() string {
	return e.Statement.String() + "," + e.Signature
}

// A MethodSet is a set of statement to method entries.
type MethodSet struct {
	entries map[MethodEntry]bool
}

// NewMethodSet returns an empty method set
func NewMethodSet() *MethodSet {
	return &MethodSet{entries: map[MethodEntry]bool{}}
}

// Add adds the entry and returns true if it was not already in the set.
func (m *MethodSet) Add(e MethodEntry) bool {
	if m.entries[e] {
		return false
	}
	m.entries[e] = true
	return true
}

// Contains returns true if e is in the set
func (m *MethodSet) Contains(e MethodEntry) bool {
	return m.entries[e]
}

// Len returns the number of entries
func (m *MethodSet) Len() int {
	return len(m.entries)
}

// Merge adds all the entries of other to m, and returns m.
// @mutates m
func (m *MethodSet) Merge(other *MethodSet) *MethodSet {
	if other == nil {
		return m
	}
	for e := range other.entries {
		m.entries[e] = true
	}
	return m
}

// Equal returns true if both sets contain the same entries.
func (m *MethodSet) Equal(other *MethodSet) bool {
	if m.Len() != other.Len() {
		return false
	}
	for e := range m.entries {
		if !other.entries[e] {
			return false
		}
	}
	return true
}

// SignaturesOf returns the signatures the statement s maps to, sorted.
func (m *MethodSet) SignaturesOf(s Statement) []string {
	var res []string
	for e := range m.entries {
		if e.Statement == s {
			res = append(res, e.Signature)
		}
	}
	slices.Sort(res)
	return res
}

// Entries returns the entries sorted by statement and then by signature
func (m *MethodSet) Entries() []MethodEntry {
	res := make([]MethodEntry, 0, len(m.entries))
	for e := range m.entries {
		res = append(res, e)
	}
	slices.SortFunc(res, func(a, b MethodEntry) bool {
		if c := Compare(a.Statement, b.Statement); c != 0 {
			return c < 0
		}
		return a.Signature < b.Signature
	})
	return res
}

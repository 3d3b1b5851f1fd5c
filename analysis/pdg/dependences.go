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

// Package pdg extracts program dependence graphs over statements: the control dependences, the data dependences and
// the map from requested statements to the methods that contain them.
//
// Dependences are computed per method body, in isolation. A pair (a, b) in a relation means that statement a depends
// on statement b.
package pdg

import (
	"github.com/awslabs/ar-go-pdg/analysis/cfg"
	"github.com/awslabs/ar-go-pdg/analysis/dataflow"
	"github.com/awslabs/ar-go-pdg/analysis/dominance"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
)

// addUnitPair adds the statement pair of (u, v) to the set when both units have distinct, valid statements.
func addUnitPair(set *stmt.RelationSet, typeName string, u, v *ir.Unit) {
	if p, ok := stmt.PairOf(typeName, u, v).Get(); ok {
		set.Add(p)
	}
}

// ControlDependences returns the control dependences of the body of a method of type typeName. A unit u depends on
// every unit in its post-dominance frontier, computed on the handler-aware graph of the body.
func ControlDependences(typeName string, mg *cfg.MethodGraph) *stmt.RelationSet {
	deps := stmt.NewRelationSet()
	body := mg.Body()
	if cfg.IsTrivial(body) {
		return deps
	}
	df := dominance.Frontier(dominance.PostDominators(mg.HandlerAware()))
	for _, u := range body.Units {
		for _, f := range df[u.Index] {
			if f < body.Size() {
				addUnitPair(deps, typeName, u, body.Units[f])
			}
		}
	}
	return deps
}

// DataDependences returns the data dependences of the body of a method of type typeName. A unit depends on the units
// whose definitions of the values it reads reach it.
func DataDependences(typeName string, mg *cfg.MethodGraph) *stmt.RelationSet {
	deps := stmt.NewRelationSet()
	body := mg.Body()
	for _, d := range dataflow.ReachingValues(mg.Standard()).Dependences() {
		addUnitPair(deps, typeName, body.Units[d.Unit], body.Units[d.Def])
	}
	return deps
}

// ImmediateDominance returns the pairs (d, u) where d is the immediate dominator of u in the standard exceptional
// graph of the body.
func ImmediateDominance(typeName string, mg *cfg.MethodGraph) *stmt.RelationSet {
	rel := stmt.NewRelationSet()
	body := mg.Body()
	tree := dominance.Dominators(mg.Standard())
	for _, u := range body.Units {
		if d, ok := tree.ImmediateDominator(u.Index); ok {
			addUnitPair(rel, typeName, body.Units[d], u)
		}
	}
	return rel
}

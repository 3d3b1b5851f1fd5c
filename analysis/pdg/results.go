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

package pdg

import (
	"time"

	"github.com/awslabs/ar-go-pdg/analysis/stmt"
)

// Results aggregates the relations of a run. It is created at the start of the run and only grows while methods are
// analyzed.
type Results struct {
	// Control holds the control dependences
	Control *stmt.RelationSet

	// Data holds the data dependences
	Data *stmt.RelationSet

	// Dominance holds the immediate dominance pairs (dominator, dominated). It is empty unless dominance is
	// requested.
	Dominance *stmt.RelationSet

	// Methods maps the requested statements to the methods containing them
	Methods *stmt.MethodSet

	Stats Stats
}

// Stats are statistics about a run
type Stats struct {
	// Types is the number of analyzed types
	Types int

	// Methods is the number of analyzed methods
	Methods int

	// Units is the total number of units in the analyzed methods
	Units int

	Duration time.Duration
}

// NewResults returns empty results
func NewResults() *Results {
	return &Results{
		Control:   stmt.NewRelationSet(),
		Data:      stmt.NewRelationSet(),
		Dominance: stmt.NewRelationSet(),
		Methods:   stmt.NewMethodSet(),
	}
}

// Merge adds all the relations of other to r, and returns r.
// @mutates r
func (r *Results) Merge(other *Results) *Results {
	r.Control.Merge(other.Control)
	r.Data.Merge(other.Data)
	r.Dominance.Merge(other.Dominance)
	r.Methods.Merge(other.Methods)
	r.Stats.Types += other.Stats.Types
	r.Stats.Methods += other.Stats.Methods
	r.Stats.Units += other.Stats.Units
	return r
}

// Equal returns true when both results hold the same relations. Statistics are ignored.
func (r *Results) Equal(other *Results) bool {
	return r.Control.Equal(other.Control) &&
		r.Data.Equal(other.Data) &&
		r.Dominance.Equal(other.Dominance) &&
		r.Methods.Equal(other.Methods)
}

// MethodResult holds the relations of a single method body.
type MethodResult struct {
	Control   *stmt.RelationSet
	Data      *stmt.RelationSet
	Dominance *stmt.RelationSet
}

// results returns the method result as the results of a run that analyzed one method of the given size.
func (m MethodResult) results(units int) *Results {
	return &Results{
		Control:   m.Control,
		Data:      m.Data,
		Dominance: m.Dominance,
		Methods:   stmt.NewMethodSet(),
		Stats:     Stats{Methods: 1, Units: units},
	}
}

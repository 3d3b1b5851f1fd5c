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
	"fmt"
	"time"

	"github.com/awslabs/ar-go-pdg/analysis/cfg"
	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/features"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"golang.org/x/exp/slices"
)

// Relations selects the relations computed for a method body.
type Relations struct {
	Control   bool
	Data      bool
	Dominance bool
}

// AllRelations computes every relation
var AllRelations = Relations{Control: true, Data: true, Dominance: true}

// RelationsOf returns the relations selected by the report options of the config.
func RelationsOf(c *config.Config) Relations {
	return Relations{Control: c.ReportControl, Data: c.ReportData, Dominance: c.ReportDominance}
}

// AnalyzeBody computes the selected relations of one method body of type typeName. The graphs of the body are built
// once and shared by the analyses.
func AnalyzeBody(typeName string, body *ir.Body, rel Relations) MethodResult {
	mg := cfg.NewMethodGraph(body)
	res := MethodResult{
		Control:   stmt.NewRelationSet(),
		Data:      stmt.NewRelationSet(),
		Dominance: stmt.NewRelationSet(),
	}
	if rel.Control {
		res.Control = ControlDependences(typeName, mg)
	}
	if rel.Data {
		res.Data = DataDependences(typeName, mg)
	}
	if rel.Dominance {
		res.Dominance = ImmediateDominance(typeName, mg)
	}
	return res
}

type methodWork struct {
	typeName string
	method   *ir.Method
	body     *ir.Body
}

// Analyze extracts the relations of the methods of program that cover the requested statements.
//
// Types are visited by name. For every requested type, the statements are resolved to the methods covering them,
// and the dependences of those methods are computed. When the config sets more than one worker, methods are
// analyzed in parallel and their relations merged in method order; the results do not depend on the number of
// workers.
//
// A requested type without methods, or a concrete method whose body cannot be retrieved, aborts the run with an
// error wrapping ErrNoMethods or ErrNoBody.
func Analyze(program *ir.Program, requests features.Requests, c *config.Config,
	logger *config.LogGroup) (*Results, error) {
	if c == nil {
		c = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewDiscardLogGroup()
	}
	start := time.Now()
	results := NewResults()

	types := slices.Clone(program.Types)
	slices.SortStableFunc(types, func(a, b *ir.Type) bool { return a.Name < b.Name })

	var work []methodWork
	for _, t := range types {
		lines := requests.Lines(t.Name)
		if len(lines) == 0 {
			continue
		}
		if !c.MatchTypeFilter(t.Name) {
			logger.Debugf("Skip type (filtered): %s", t.Name)
			continue
		}
		logger.Debugf("Start process type: %s", t.Name)
		matches, err := ResolveType(t, lines, c.InnermostMethod)
		if err != nil {
			return nil, fmt.Errorf("analysis of %s aborted: %w", t.Name, err)
		}
		for _, m := range matches {
			for _, line := range m.Lines {
				results.Methods.Add(stmt.MethodEntry{
					Statement: stmt.Statement{Type: t.Name, Line: line},
					Signature: m.Method.Signature,
				})
			}
			work = append(work, methodWork{typeName: t.Name, method: m.Method, body: m.Body})
		}
		results.Stats.Types++
		logger.Debugf("Done process type: %s (%d methods matched)", t.Name, len(matches))
	}
	for _, name := range requests.Types() {
		if program.TypeByName(name) == nil {
			logger.Warnf("Requested type not found in program: %s", name)
		}
	}

	rel := RelationsOf(c)
	partials := funcutil.MapParallel(work, func(w methodWork) MethodResult {
		logger.Tracef("Analyzing %s (%d units, %d traps)", w.method.Signature, w.body.Size(), len(w.body.Traps))
		return AnalyzeBody(w.typeName, w.body, rel)
	}, c.Workers)
	for i, p := range partials {
		results.Merge(p.results(work[i].body.Size()))
	}

	results.Stats.Duration = time.Since(start)
	logger.Infof("Analyzed %d methods in %d types: %d control, %d data dependences, %d statements mapped",
		results.Stats.Methods, results.Stats.Types, results.Control.Len(), results.Data.Len(), results.Methods.Len())
	logger.Infof("cost time: %.3f s", results.Stats.Duration.Seconds())
	return results, nil
}

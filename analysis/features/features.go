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

// Package features reads feature lists: the requested statements of a dependence extraction run.
//
// A feature list is a comma-separated file with a header record. The first field of every other record is a
// statement in the type#line form; the remaining fields are ignored.
package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
)

// Requests maps type names to the set of requested lines in that type.
type Requests map[string]map[int]bool

// Add adds the statement s to the requests
func (r Requests) Add(s stmt.Statement) {
	if r[s.Type] == nil {
		r[s.Type] = map[int]bool{}
	}
	r[s.Type][s.Line] = true
}

// Lines returns the requested lines of the type. The result must not be modified.
func (r Requests) Lines(typeName string) map[int]bool {
	return r[typeName]
}

// Types returns the requested type names, sorted
func (r Requests) Types() []string {
	return funcutil.SortedKeys(r)
}

// Len returns the number of requested statements
func (r Requests) Len() int {
	n := 0
	for _, lines := range r {
		n += len(lines)
	}
	return n
}

// Contains returns true if the statement is requested
func (r Requests) Contains(s stmt.Statement) bool {
	return r[s.Type][s.Line]
}

// Parse reads a feature list from reader. The first record is a header and is skipped, as are blank lines and
// records with an empty first field. Fields may be quoted and records may have any number of fields.
func Parse(reader io.Reader) (Requests, error) {
	requests := Requests{}
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.ReuseRecord = true
	header := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read feature list: %w", err)
		}
		if header {
			header = false
			continue
		}
		first := strings.TrimSpace(record[0])
		if first == "" {
			continue
		}
		s, err := stmt.Parse(first)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("feature list line %d: %w", line, err)
		}
		requests.Add(s)
	}
	return requests, nil
}

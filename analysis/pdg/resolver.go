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
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
)

var (
	// ErrNoMethods is returned when a requested type has no method
	ErrNoMethods = errors.New("no method found in type")

	// ErrNoBody is returned when the body of a concrete method cannot be retrieved
	ErrNoBody = errors.New("could not retrieve method body")
)

// LineRange returns the smallest and the largest line of the units of the body. It returns false if no unit has a
// line.
func LineRange(body *ir.Body) (lo int, hi int, ok bool) {
	lines := funcutil.SetToOrderedSlice(body.Lines())
	if len(lines) == 0 {
		return 0, -1, false
	}
	return lines[0], lines[len(lines)-1], true
}

// CoveredLines returns the set of lines covered by the body: every line between the smallest and the largest line of
// its units, inclusive. Requested lines often have no unit of their own, e.g. the continuation of a multi-line
// expression.
func CoveredLines(body *ir.Body) map[int]bool {
	lines := map[int]bool{}
	lo, hi, ok := LineRange(body)
	if !ok {
		return lines
	}
	for l := lo; l <= hi; l++ {
		lines[l] = true
	}
	return lines
}

// A MethodMatch is a method whose body covers some requested lines.
type MethodMatch struct {
	Method *ir.Method
	Body   *ir.Body

	// Lines are the requested lines covered by the method, sorted
	Lines []int
}

type methodRange struct {
	method  *ir.Method
	body    *ir.Body
	covered map[int]bool
}

// ResolveType returns the methods of t whose bodies cover some of the requested lines, in method order.
// When innermost is true, every line is resolved to the method with the narrowest range covering it only; otherwise
// a line is resolved to every method covering it.
//
// It returns an error wrapping ErrNoMethods if t has no method, and ErrNoBody if the body of a concrete method
// cannot be retrieved.
func ResolveType(t *ir.Type, lines map[int]bool, innermost bool) ([]MethodMatch, error) {
	if len(t.Methods) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMethods, t.Name)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	var ranges []methodRange
	for _, m := range t.Methods {
		if !m.Concrete {
			continue
		}
		body, err := m.Body()
		if err != nil {
			return nil, fmt.Errorf("%w: %s in %s: %v", ErrNoBody, m.Signature, t.Name, err)
		}
		covered := CoveredLines(body)
		if len(covered) == 0 {
			continue
		}
		ranges = append(ranges, methodRange{method: m, body: body, covered: covered})
	}

	matched := make([]map[int]bool, len(ranges))
	for _, line := range funcutil.SetToOrderedSlice(lines) {
		best := -1
		for i, r := range ranges {
			if !r.covered[line] {
				continue
			}
			if !innermost {
				if matched[i] == nil {
					matched[i] = map[int]bool{}
				}
				matched[i][line] = true
			} else if best < 0 || len(r.covered) < len(ranges[best].covered) {
				best = i
			}
		}
		if best >= 0 {
			if matched[best] == nil {
				matched[best] = map[int]bool{}
			}
			matched[best][line] = true
		}
	}

	var res []MethodMatch
	for i, r := range ranges {
		if len(matched[i]) > 0 {
			res = append(res, MethodMatch{Method: r.method, Body: r.body, Lines: funcutil.SetToOrderedSlice(matched[i])})
		}
	}
	return res, nil
}

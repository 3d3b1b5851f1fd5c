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

// Package stmt defines statements, the source-level abstraction of units, and the relation sets of statement pairs
// produced by the dependence analyses.
package stmt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
)

// A Statement is a source line in a type. All the units of a type at the same line are the same statement.
type Statement struct {
	Type string
	Line int
}

// String returns the type#line form of the statement
func (s Statement) String() string {
	return s.Type + "#" + strconv.Itoa(s.Line)
}

// Of returns the statement of unit u in type typeName, or none if u has no line or is the binding of a caught
// exception.
func Of(typeName string, u *ir.Unit) funcutil.Optional[Statement] {
	if u == nil || u.Line < 0 || u.IsCaughtExceptionBinding() {
		return funcutil.None[Statement]()
	}
	return funcutil.Some(Statement{Type: typeName, Line: u.Line})
}

// Parse parses a statement in the type#line form. The type name may itself contain '#'; the last one separates the
// line.
func Parse(s string) (Statement, error) {
	i := strings.LastIndexByte(s, '#')
	if i <= 0 || i == len(s)-1 {
		return Statement{}, fmt.Errorf("invalid statement %q: expected type#line", s)
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil || line < 0 {
		return Statement{}, fmt.Errorf("invalid statement %q: bad line number", s)
	}
	return Statement{Type: s[:i], Line: line}, nil
}

// A Pair is a directed dependence from Source to Target: the source depends on the target.
type Pair struct {
	Source Statement
	Target Statement
}

func (p Pair) String() string {
	return p.Source.String() + "," + p.Target.String()
}

// PairOf returns the statement pair of the unit pair (u, v) in typeName. It returns none if any of the units has no
// statement, or if both units are the same statement.
func PairOf(typeName string, u, v *ir.Unit) funcutil.Optional[Pair] {
	return funcutil.BindOption2(Of(typeName, u), Of(typeName, v),
		func(s, t Statement) funcutil.Optional[Pair] {
			if s == t {
				return funcutil.None[Pair]()
			}
			return funcutil.Some(Pair{Source: s, Target: t})
		})
}

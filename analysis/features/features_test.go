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

package features

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "lang-1.features.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"org.example.Account", "org.example.Account$Ledger", "util/strings.go"}, r.Types())
	assert.Equal(t, map[int]bool{12: true, 14: true}, r.Lines("org.example.Account"))
	assert.Equal(t, 4, r.Len())
	assert.True(t, r.Contains(stmt.Statement{Type: "util/strings.go", Line: 7}))
	assert.False(t, r.Contains(stmt.Statement{Type: "org.example.Account", Line: 13}))
	assert.Nil(t, r.Lines("Missing"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		len     int
		errMsg  string
	}{
		{"header only", "statement\n", 0, ""},
		{"empty", "", 0, ""},
		{"header is skipped even if valid", "A#1\nB#2\n", 1, ""},
		{"windows line endings", "h\r\nA#1,x\r\nA#2\r\n", 2, ""},
		{"missing line", "h\nA#1\nA\n", 0, "line 3"},
		{"bad line number", "h\nA#x,1\n", 0, "line 2"},
		{"quoted first field", "h\n\"A#1\",\"x, y\"\n\"A#2\"\n", 2, ""},
		{"ragged records", "a,b,c\nA#1\nA#2,x,y,z\n,orphan\n", 2, ""},
		{"error after blank lines", "h\n\nA#1\n\nB\n", 0, "line 5"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, err := Parse(strings.NewReader(test.content))
			if test.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.len, r.Len())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.csv"))
	assert.ErrorContains(t, err, "could not open feature list")
}

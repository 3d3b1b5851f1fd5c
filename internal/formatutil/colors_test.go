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

package formatutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColor(t *testing.T) {
	defer colors.Store(0)
	SetColors(false)
	assert.Equal(t, "x1", Red("x", 1))
	SetColors(true)
	assert.Equal(t, "\033[1;31mx\033[0m", Red("x"))
	assert.True(t, ColorsEnabled())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `a\x1b[1mb`, Sanitize("a\033[1mb"))
	assert.Equal(t, "plain", Sanitize("plain"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 6, "abc..."},
		{"abc", 2, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
	}
}

func TestKeyValues(t *testing.T) {
	defer colors.Store(0)
	SetColors(false)
	assert.Equal(t, "a:   1\nbbb: 2\n", KeyValues([][2]string{{"a", "1"}, {"bbb", "2"}}))
}

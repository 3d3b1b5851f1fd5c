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

package config

const (
	// FormatCSV writes one relation file per relation, one comma-separated pair per line
	FormatCSV = "csv"
	// FormatMsgpack writes all the relations in a single msgpack bundle
	FormatMsgpack = "msgpack"
	// FormatDot writes one graphviz file per analyzed type
	FormatDot = "dot"

	// FrontendGo loads Go packages
	FrontendGo = "go"
	// FrontendJava loads Java source files
	FrontendJava = "java"

	// DefaultBaseName is the base name of relation files when none can be derived
	DefaultBaseName = "pdg"
)

// AllFormats lists the supported output formats
var AllFormats = []string{FormatCSV, FormatMsgpack, FormatDot}

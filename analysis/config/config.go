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

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig. If no file has been set, it returns the
// default config.
func LoadGlobal() (*Config, error) {
	if configFile == "" {
		return NewDefault(), nil
	}
	return Load(configFile)
}

// Config contains the options of a dependence extraction run.
// If some field is not defined in the config file, it will take its default value.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// if the TypeFilter is specified
	typeFilterRegex *regexp.Regexp
}

// Options are the options that can be set in a config file
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// OutputDir is the directory where the relation files are written. It is created if it does not exist.
	OutputDir string `yaml:"output-dir"`

	// BaseName is the name of the relation files, without extension. If empty, it is derived from the name of the
	// feature list.
	BaseName string `yaml:"base-name"`

	// ReportControl specifies whether the control dependences should be written (.cdg file)
	ReportControl bool `yaml:"report-control"`

	// ReportData specifies whether the data dependences should be written (.ddg file)
	ReportData bool `yaml:"report-data"`

	// ReportMethodMap specifies whether the statement to method map should be written (.mmap file)
	ReportMethodMap bool `yaml:"report-method-map"`

	// ReportDominance specifies whether the immediate dominance relation should be computed and written (.dom file)
	ReportDominance bool `yaml:"report-dominance"`

	// Formats lists the output formats, among "csv", "msgpack" and "dot"
	Formats []string `yaml:"formats"`

	// InnermostMethod restricts every requested line to the method with the narrowest line range covering it.
	// By default, a line maps to every method whose line range covers it.
	InnermostMethod bool `yaml:"innermost-method"`

	// Workers is the number of goroutines analyzing methods. Values <= 1 mean the analysis is sequential.
	Workers int `yaml:"workers"`

	// TypeFilter is a regex; if non-empty, only the types whose name match it are analyzed.
	TypeFilter string `yaml:"type-filter"`

	// Frontend is the frontend used to load programs, "go" or "java"
	Frontend string `yaml:"frontend"`
}

// NewDefault returns the default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			LogLevel:        int(InfoLevel),
			OutputDir:       ".",
			BaseName:        "",
			ReportControl:   true,
			ReportData:      true,
			ReportMethodMap: true,
			ReportDominance: false,
			Formats:         []string{FormatCSV},
			InnermostMethod: false,
			Workers:         1,
			TypeFilter:      "",
			Frontend:        FrontendGo,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename
	return cfg, nil
}

// Parse parses a yaml configuration and validates it. Absent options take their default value.
func Parse(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the options and normalizes them. It compiles the type filter.
func (c *Config) Validate() error {
	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if c.LogLevel == 0 {
		c.LogLevel = int(InfoLevel)
	}
	if c.LogLevel < int(ErrLevel) || c.LogLevel > int(TraceLevel) {
		return fmt.Errorf("log-level must be between %d and %d, got %d", ErrLevel, TraceLevel, c.LogLevel)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{FormatCSV}
	}
	for i, f := range c.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !funcutil.Contains(AllFormats, f) {
			return fmt.Errorf("unknown output format %q, expected one of %s", f, strings.Join(AllFormats, ", "))
		}
		c.Formats[i] = f
	}
	switch c.Frontend {
	case "":
		c.Frontend = FrontendGo
	case FrontendGo, FrontendJava:
	default:
		return fmt.Errorf("unknown frontend %q, expected %q or %q", c.Frontend, FrontendGo, FrontendJava)
	}
	c.typeFilterRegex = nil
	if c.TypeFilter != "" {
		r, err := regexp.Compile(c.TypeFilter)
		if err != nil {
			return fmt.Errorf("invalid type-filter: %w", err)
		}
		c.typeFilterRegex = r
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchTypeFilter returns true if the type name matches the type filter set in the config file. If no type filter
// has been set, it returns true.
func (c Config) MatchTypeFilter(typeName string) bool {
	if c.typeFilterRegex != nil {
		return c.typeFilterRegex.MatchString(typeName)
	}
	return true
}

// HasFormat returns true if the format is one of the output formats
func (c Config) HasFormat(format string) bool {
	return funcutil.Contains(c.Formats, format)
}

// BaseNameFor returns the base name of the relation files for the feature list file. The configured base name
// takes precedence; otherwise it is the name of the feature list up to its first dot.
func (c Config) BaseNameFor(featureList string) string {
	if c.BaseName != "" {
		return c.BaseName
	}
	name := filepath.Base(featureList)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultBaseName
	}
	return name
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

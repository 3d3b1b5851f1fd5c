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
	"io"
	"log"
	"os"
)

// LogLevel is the verbosity of a run. Higher levels print more.
type LogLevel int

const (
	// ErrLevel=1 - only errors are printed
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - warnings, e.g. a requested type that is not in the program or a file with syntax errors
	WarnLevel

	// InfoLevel=3 - the summary of the run
	InfoLevel

	// DebugLevel=4 - the progress on every analyzed type, and the skipped functions
	DebugLevel

	// TraceLevel=5 - the size of every analyzed method body. This is useful on small programs.
	TraceLevel
)

var levelNames = [...]string{"", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l LogLevel) String() string {
	if l >= ErrLevel && l <= TraceLevel {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// A LogGroup is a set of loggers, one per level, that print only when the group level is at least theirs.
type LogGroup struct {
	level   LogLevel
	loggers [TraceLevel + 1]*log.Logger
}

// NewLogGroup returns a log group at the level of the config. All loggers write to stderr with a [LEVEL] prefix.
func NewLogGroup(config *Config) *LogGroup {
	l := &LogGroup{level: LogLevel(config.LogLevel)}
	for level := ErrLevel; level <= TraceLevel; level++ {
		l.loggers[level] = log.New(os.Stderr, "["+level.String()+"] ", log.LstdFlags)
	}
	return l
}

// NewDiscardLogGroup returns a log group that discards everything, for tests and library uses.
func NewDiscardLogGroup() *LogGroup {
	l := NewLogGroup(NewDefault())
	l.SetAllOutput(io.Discard)
	return l
}

// Enabled returns true if messages at level are printed
func (l *LogGroup) Enabled(level LogLevel) bool {
	return l.level >= level
}

// SetAllOutput sets the output of every logger of the group
func (l *LogGroup) SetAllOutput(w io.Writer) {
	for _, lg := range l.loggers[ErrLevel:] {
		lg.SetOutput(w)
	}
}

// SetAllFlags sets the flags of every logger of the group, see log.SetFlags
func (l *LogGroup) SetAllFlags(x int) {
	for _, lg := range l.loggers[ErrLevel:] {
		lg.SetFlags(x)
	}
}

func (l *LogGroup) logf(level LogLevel, format string, v ...any) {
	if l.Enabled(level) {
		l.loggers[level].Printf(format, v...)
	}
}

// Tracef prints to the trace logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) { l.logf(TraceLevel, format, v...) }

// Debugf prints to the debug logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) { l.logf(DebugLevel, format, v...) }

// Infof prints to the info logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) { l.logf(InfoLevel, format, v...) }

// Warnf prints to the warning logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) { l.logf(WarnLevel, format, v...) }

// Errorf prints to the error logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) { l.logf(ErrLevel, format, v...) }

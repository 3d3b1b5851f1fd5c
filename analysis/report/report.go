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

// Package report writes the results of a dependence extraction run to files, and reads them back.
//
// Three encodings are supported:
//   - csv: one file per relation, <base>.cdg, <base>.ddg, <base>.mmap and <base>.dom, one pair per line
//   - msgpack: a single <base>.msgpack bundle holding every relation
//   - dot: one graphviz file per analyzed type, <base>.<type>.dot
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
)

// Extensions of the relation files
const (
	ControlExt   = ".cdg"
	DataExt      = ".ddg"
	MethodMapExt = ".mmap"
	DominanceExt = ".dom"
	BundleExt    = ".msgpack"
	DotExt       = ".dot"
)

// WriteAll writes the results in every output format of the config, in the config's output directory. It returns
// the names of the files written.
func WriteAll(ctx context.Context, res *pdg.Results, c *config.Config, base string) ([]string, error) {
	if err := os.MkdirAll(c.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("could not create directory %s: %w", c.OutputDir, err)
	}
	var written []string
	for _, format := range c.Formats {
		var files []string
		var err error
		switch format {
		case config.FormatCSV:
			files, err = WriteCSV(ctx, c.OutputDir, base, res, c)
		case config.FormatMsgpack:
			filename := filepath.Join(c.OutputDir, base+BundleExt)
			err = WriteBundle(ctx, filename, res)
			files = []string{filename}
		case config.FormatDot:
			files, err = WriteDOT(ctx, c.OutputDir, base, res)
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// WriteCSV writes one file per relation reported in the config. Existing files are truncated. Pairs are written in
// sorted order so that two runs on the same input produce the same files.
func WriteCSV(ctx context.Context, dir string, base string, res *pdg.Results, c *config.Config) ([]string, error) {
	type output struct {
		enabled bool
		ext     string
		write   func(io.Writer) error
	}
	outputs := []output{
		{c.ReportControl, ControlExt, func(w io.Writer) error { return WritePairs(w, res.Control.Pairs()) }},
		{c.ReportData, DataExt, func(w io.Writer) error { return WritePairs(w, res.Data.Pairs()) }},
		{c.ReportMethodMap, MethodMapExt, func(w io.Writer) error { return WriteMethodMap(w, res.Methods.Entries()) }},
		{c.ReportDominance, DominanceExt, func(w io.Writer) error { return WritePairs(w, res.Dominance.Pairs()) }},
	}
	var written []string
	for _, out := range outputs {
		if !out.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
		filename := filepath.Join(dir, base+out.ext)
		if err := toFile(filename, out.write); err != nil {
			return written, err
		}
		written = append(written, filename)
	}
	return written, nil
}

// WritePairs writes one "source,target" line per pair
func WritePairs(w io.Writer, pairs []stmt.Pair) error {
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "%s\n", p); err != nil {
			return err
		}
	}
	return nil
}

// WriteMethodMap writes one "statement,signature" line per entry. Signatures may contain commas; readers split on
// the first one.
func WriteMethodMap(w io.Writer, entries []stmt.MethodEntry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\n", e); err != nil {
			return err
		}
	}
	return nil
}

func toFile(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return fmt.Errorf("error while writing %s: %w", filename, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("error while writing %s: %w", filename, err)
	}
	return f.Close()
}

// ReadPairs reads pairs written by WritePairs. Blank lines are ignored.
func ReadPairs(r io.Reader) ([]stmt.Pair, error) {
	var pairs []stmt.Pair
	err := readLines(r, func(line string) error {
		source, target, ok := strings.Cut(line, ",")
		if !ok {
			return fmt.Errorf("expected source,target")
		}
		s, err := stmt.Parse(source)
		if err != nil {
			return err
		}
		t, err := stmt.Parse(target)
		if err != nil {
			return err
		}
		pairs = append(pairs, stmt.Pair{Source: s, Target: t})
		return nil
	})
	return pairs, err
}

// ReadMethodMap reads entries written by WriteMethodMap. Blank lines are ignored.
func ReadMethodMap(r io.Reader) ([]stmt.MethodEntry, error) {
	var entries []stmt.MethodEntry
	err := readLines(r, func(line string) error {
		statement, signature, ok := strings.Cut(line, ",")
		if !ok {
			return fmt.Errorf("expected statement,signature")
		}
		s, err := stmt.Parse(statement)
		if err != nil {
			return err
		}
		entries = append(entries, stmt.MethodEntry{Statement: s, Signature: signature})
		return nil
	})
	return entries, err
}

func readLines(r io.Reader, f func(string) error) error {
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := f(line); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	return scanner.Err()
}

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

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/report"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/awslabs/ar-go-pdg/internal/formatutil"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	limit := 0
	cmd := &cobra.Command{
		Use:   "inspect <bundle.msgpack | relation file>",
		Short: "Print the content of a bundle or of a relation file",
		Long: `Prints the statistics and the relations of a msgpack bundle, or the pairs of a single relation
file (.cdg, .ddg, .dom or .mmap).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch filepath.Ext(args[0]) {
			case report.ControlExt, report.DataExt, report.DominanceExt, report.MethodMapExt:
				return inspectRelationFile(cmd.OutOrStdout(), args[0], limit)
			}
			res, err := report.ReadBundle(args[0])
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), res, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of pairs printed per relation, negative for all")
	return cmd
}

func printResults(w io.Writer, res *pdg.Results, limit int) {
	fmt.Fprint(w, formatutil.KeyValues([][2]string{
		{"types", strconv.Itoa(res.Stats.Types)},
		{"methods", strconv.Itoa(res.Stats.Methods)},
		{"units", strconv.Itoa(res.Stats.Units)},
		{"duration", res.Stats.Duration.String()},
	}))
	width := formatutil.Width(120)
	printPairs(w, "control", res.Control.Pairs(), limit, width)
	printPairs(w, "data", res.Data.Pairs(), limit, width)
	printPairs(w, "dominance", res.Dominance.Pairs(), limit, width)
	printEntries(w, "method map", res.Methods.Entries(), limit, width)
}

func inspectRelationFile(w io.Writer, filename string, limit int) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open relation file: %w", err)
	}
	defer f.Close()
	name := filepath.Base(filename)
	if filepath.Ext(filename) == report.MethodMapExt {
		entries, err := report.ReadMethodMap(f)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		printEntries(w, name, entries, limit, formatutil.Width(120))
		return nil
	}
	pairs, err := report.ReadPairs(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	printPairs(w, name, pairs, limit, formatutil.Width(120))
	return nil
}

func printEntries(w io.Writer, name string, entries []stmt.MethodEntry, limit int, width int) {
	fmt.Fprintf(w, "%s (%d)\n", formatutil.Cyan(name), len(entries))
	for i, e := range entries {
		if limit >= 0 && i >= limit {
			fmt.Fprintln(w, formatutil.Faint("  ..."))
			return
		}
		fmt.Fprintf(w, "  %s\n", formatutil.Truncate(formatutil.Sanitize(e.String()), width-2))
	}
}

func printPairs(w io.Writer, name string, pairs []stmt.Pair, limit int, width int) {
	fmt.Fprintf(w, "%s (%d)\n", formatutil.Cyan(name), len(pairs))
	for i, p := range pairs {
		if limit >= 0 && i >= limit {
			fmt.Fprintln(w, formatutil.Faint("  ..."))
			return
		}
		fmt.Fprintf(w, "  %s\n", formatutil.Truncate(formatutil.Sanitize(p.String()), width-2))
	}
}

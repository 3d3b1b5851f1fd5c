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

// Argot-pdg extracts the per-method program dependence relations of the statements listed in a feature list.
//
// Usage:
//
//	argot-pdg extract --features-list features.csv [--config config.yaml] [--frontend go|java] path...
//	argot-pdg inspect out/features.msgpack
//	argot-pdg version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/awslabs/ar-go-pdg/internal/formatutil"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "argot-pdg",
		Short: "Extract control and data dependences of program statements",
		Long: `argot-pdg computes, for the methods containing the statements of a feature list, the control
dependences, the data dependences and the statement to method map, and writes them as relation files.

Commands:
  extract   Load a program, analyze the requested statements and write the relations
  inspect   Print the content of a msgpack bundle written by extract
  version   Print the version`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	noColor := false
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if noColor {
			formatutil.SetColors(false)
		}
	}
	root.AddCommand(newExtractCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(2)
	}
}

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
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/features"
	"github.com/awslabs/ar-go-pdg/analysis/frontend/gossa"
	"github.com/awslabs/ar-go-pdg/analysis/frontend/javasrc"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/report"
	"github.com/awslabs/ar-go-pdg/internal/formatutil"
	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"
)

type extractFlags struct {
	featuresList string
	configPath   string
	frontend     string
	outputDir    string
	verbose      bool
}

func newExtractCmd() *cobra.Command {
	flags := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract --features-list <file> [flags] <paths or package patterns...>",
		Short: "Analyze the statements of a feature list and write their relations",
		Long: `Loads the program, resolves the methods containing the statements of the feature list and writes
<base>.cdg (control dependences), <base>.ddg (data dependences) and <base>.mmap (statement to method
map) in the output directory. The go frontend takes package patterns, the java frontend takes source
files and directories.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), flags, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&flags.featuresList, "features-list", "f", "", "feature list file (required)")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "yaml config file")
	cmd.Flags().StringVar(&flags.frontend, "frontend", "", "frontend: go or java (overrides the config)")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "output directory (overrides the config)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")
	_ = cmd.MarkFlagRequired("features-list")
	return cmd
}

func loadConfig(flags *extractFlags) (*config.Config, error) {
	config.SetGlobalConfig(flags.configPath)
	c, err := config.LoadGlobal()
	if err != nil {
		return nil, err
	}
	if flags.frontend != "" {
		c.Frontend = flags.frontend
	}
	if flags.outputDir != "" {
		c.OutputDir = flags.outputDir
	} else if flags.configPath != "" && !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = c.RelPath(c.OutputDir)
	}
	if flags.verbose {
		c.LogLevel = int(config.DebugLevel)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func runExtract(ctx context.Context, flags *extractFlags, paths []string, out io.Writer) error {
	c, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(c)
	if c.Verbose() {
		logger.SetAllFlags(log.LstdFlags | log.Lmicroseconds)
	}
	requests, err := features.Load(flags.featuresList)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d requested statements in %d types", requests.Len(), len(requests.Types()))

	program, err := loadProgram(ctx, c, logger, paths)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d types with the %s frontend", len(program.Types), c.Frontend)

	res, err := pdg.Analyze(program, requests, c, logger)
	if err != nil {
		return err
	}
	files, err := report.WriteAll(ctx, res, c, c.BaseNameFor(flags.featuresList))
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatutil.KeyValues([][2]string{
		{"types", strconv.Itoa(res.Stats.Types)},
		{"methods", strconv.Itoa(res.Stats.Methods)},
		{"control", strconv.Itoa(res.Control.Len())},
		{"data", strconv.Itoa(res.Data.Len())},
		{"method map", strconv.Itoa(res.Methods.Len())},
	}))
	for _, f := range files {
		fmt.Fprintf(out, "%s %s\n", formatutil.Green("wrote"), f)
	}
	if c.HasFormat(config.FormatMsgpack) {
		fmt.Fprintf(out, "inspect the bundle with: argot-pdg inspect %s\n",
			filepath.Join(c.OutputDir, c.BaseNameFor(flags.featuresList)+report.BundleExt))
	}
	return nil
}

func loadProgram(ctx context.Context, c *config.Config, logger *config.LogGroup, paths []string) (*ir.Program, error) {
	switch c.Frontend {
	case config.FrontendJava:
		return javasrc.LoadFiles(ctx, logger, paths)
	default:
		loaded, err := gossa.LoadProgram(ctx, &packages.Config{Tests: false}, logger, paths)
		if err != nil {
			return nil, err
		}
		return loaded.Program, nil
	}
}

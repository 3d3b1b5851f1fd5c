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

// Package gossa loads Go programs into the intermediate representation of the dependence analyses.
//
// Packages are loaded and type checked with golang.org/x/tools/go/packages, and built into SSA form. Every source
// file of the initial packages becomes a type named <package path>/<file name>, whose methods are the functions
// declared in that file, anonymous functions included. Function bodies are lowered on first use.
package gossa

import (
	"context"
	"fmt"
	"go/token"
	"path/filepath"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	"github.com/awslabs/ar-go-pdg/internal/funcutil"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the loading mode of the frontend. Source files, syntax and types are needed to build SSA.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram is a program loaded by the frontend
type LoadedProgram struct {
	// Program is the lowered program
	Program *ir.Program

	// SSA is the SSA form the program has been lowered from
	SSA *ssa.Program
}

// LoadProgram loads the packages matching patterns and lowers their functions. To understand how to specify the
// patterns, look at the documentation of packages.Load. If pcfg is nil, the packages are loaded from the current
// directory.
func LoadProgram(ctx context.Context, pcfg *packages.Config, logger *config.LogGroup,
	patterns []string) (LoadedProgram, error) {
	if pcfg == nil {
		pcfg = &packages.Config{}
	}
	pcfg.Mode |= PkgLoadMode
	pcfg.Context = ctx
	if pcfg.Fset == nil {
		pcfg.Fset = token.NewFileSet()
	}

	// load, parse and type check the given packages
	initialPackages, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}
	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found while loading packages")
	}
	if err := ctx.Err(); err != nil {
		return LoadedProgram{}, err
	}

	program, ssaPackages := ssautil.AllPackages(initialPackages, ssa.BuilderMode(0))
	for i, p := range ssaPackages {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
	}
	program.Build()

	initial := map[*ssa.Package]bool{}
	for _, p := range ssaPackages {
		initial[p] = true
	}
	return LoadedProgram{Program: Lower(program, initial, logger), SSA: program}, nil
}

// Lower returns the program made of the source functions of pkgs. Functions are grouped by the file they are
// declared in.
func Lower(program *ssa.Program, pkgs map[*ssa.Package]bool, logger *config.LogGroup) *ir.Program {
	files := map[string][]*ssa.Function{}
	for f := range ssautil.AllFunctions(program) {
		if !pkgs[f.Package()] {
			continue
		}
		if f.Synthetic != "" {
			logger.Tracef("Skipping synthetic function %s: %s", f, f.Synthetic)
			continue
		}
		pos := safeFunctionPos(f)
		if !pos.IsValid() {
			logger.Debugf("Skipping function %s: no position", f)
			continue
		}
		name := TypeName(f.Package(), pos.Filename)
		files[name] = append(files[name], f)
	}

	res := &ir.Program{}
	for _, name := range funcutil.SortedKeys(files) {
		funcs := files[name]
		slices.SortFunc(funcs, func(a, b *ssa.Function) bool {
			if a.Pos() != b.Pos() {
				return a.Pos() < b.Pos()
			}
			return a.String() < b.String()
		})
		t := &ir.Type{Name: name}
		for _, f := range funcs {
			t.Methods = append(t.Methods, method(f))
		}
		res.Types = append(res.Types, t)
	}
	return res
}

// TypeName returns the name of the type of the functions of pkg declared in filename
func TypeName(pkg *ssa.Package, filename string) string {
	return pkg.Pkg.Path() + "/" + filepath.Base(filename)
}

func method(f *ssa.Function) *ir.Method {
	if isExternal(f) {
		return ir.NewAbstractMethod(f.Name(), f.String())
	}
	return ir.NewMethod(f.Name(), f.String(), func() (*ir.Body, error) {
		body, err := LowerFunction(f)
		if err != nil {
			return nil, fmt.Errorf("could not lower %s: %w", f, err)
		}
		return body, nil
	})
}

// isExternal returns true if function has no body (in ssa, when Blocks is nil)
func isExternal(f *ssa.Function) bool {
	return f.Blocks == nil
}

func safeFunctionPos(f *ssa.Function) token.Position {
	if f.Prog == nil || f.Prog.Fset == nil {
		return token.Position{}
	}
	return f.Prog.Fset.Position(f.Pos())
}

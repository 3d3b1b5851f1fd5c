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

package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/awslabs/ar-go-pdg/analysis/pdg"
	"github.com/awslabs/ar-go-pdg/analysis/stmt"
	"github.com/vmihailenco/msgpack/v5"
)

// BundleVersion is the version of the bundle format written by this package
const BundleVersion = 1

// ErrBundleVersion is returned when reading a bundle written in another format version
var ErrBundleVersion = errors.New("unsupported bundle version")

// A Bundle is the serialized form of the results of a run.
type Bundle struct {
	Version   int                `msgpack:"version"`
	Control   []stmt.Pair        `msgpack:"control"`
	Data      []stmt.Pair        `msgpack:"data"`
	Dominance []stmt.Pair        `msgpack:"dominance"`
	Methods   []stmt.MethodEntry `msgpack:"methods"`
	Stats     BundleStats        `msgpack:"stats"`
}

// BundleStats are the run statistics stored in a bundle
type BundleStats struct {
	Types    int   `msgpack:"types"`
	Methods  int   `msgpack:"methods"`
	Units    int   `msgpack:"units"`
	Duration int64 `msgpack:"duration-ns"`
}

// NewBundle returns the bundle of the results. Relations are sorted.
func NewBundle(res *pdg.Results) Bundle {
	return Bundle{
		Version:   BundleVersion,
		Control:   res.Control.Pairs(),
		Data:      res.Data.Pairs(),
		Dominance: res.Dominance.Pairs(),
		Methods:   res.Methods.Entries(),
		Stats: BundleStats{
			Types:    res.Stats.Types,
			Methods:  res.Stats.Methods,
			Units:    res.Stats.Units,
			Duration: int64(res.Stats.Duration),
		},
	}
}

// Results returns the results stored in the bundle
func (b Bundle) Results() *pdg.Results {
	res := pdg.NewResults()
	for _, p := range b.Control {
		res.Control.Add(p)
	}
	for _, p := range b.Data {
		res.Data.Add(p)
	}
	for _, p := range b.Dominance {
		res.Dominance.Add(p)
	}
	for _, e := range b.Methods {
		res.Methods.Add(e)
	}
	res.Stats = pdg.Stats{
		Types:    b.Stats.Types,
		Methods:  b.Stats.Methods,
		Units:    b.Stats.Units,
		Duration: time.Duration(b.Stats.Duration),
	}
	return res
}

// EncodeBundle writes the results to w using msgpack.
func EncodeBundle(w io.Writer, res *pdg.Results) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(NewBundle(res))
}

// DecodeBundle reads results written by EncodeBundle
func DecodeBundle(r io.Reader) (*pdg.Results, error) {
	var b Bundle
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("%w %d, expected %d", ErrBundleVersion, b.Version, BundleVersion)
	}
	return b.Results(), nil
}

// WriteBundle writes the results to the msgpack bundle filename. The file is truncated if it exists.
func WriteBundle(ctx context.Context, filename string, res *pdg.Results) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return toFile(filename, func(w io.Writer) error { return EncodeBundle(w, res) })
}

// ReadBundle reads the msgpack bundle filename
func ReadBundle(filename string) (*pdg.Results, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open bundle: %w", err)
	}
	defer f.Close()
	res, err := DecodeBundle(f)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", filename, err)
	}
	return res, nil
}

/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package aeris

import (
	"fmt"

	"github.com/aerislang/aeris/internal/opts"
)

// Preset names one of the built-in pipeline configurations.
type Preset int

const (
	// PresetDefault runs constant folding, dead-code elimination and
	// common-subexpression elimination.
	PresetDefault Preset = iota

	// PresetAdvanced adds the loop, interprocedural, vectorization
	// and inlining passes.
	PresetAdvanced

	// PresetWholeProgram runs the closed-world analysis first, then
	// the advanced set.
	PresetWholeProgram

	// PresetProfileGuided loads a profile file up front and applies
	// its counts as inlining and block-layout transforms.
	PresetProfileGuided
)

// Options configures one Optimize call.
type Options struct {
	Preset        Preset
	ProfilePath   string
	MaxIterations int
}

func defaultOptions() Options {
	return Options{Preset: PresetDefault}
}

// Option is the property setter function for Options.
type Option func(*Options)

// WithPreset selects the pipeline preset to run.
func WithPreset(p Preset) Option {
	return func(o *Options) { o.Preset = p }
}

// WithProfile selects the profile-guided preset reading counts from
// the given file.
func WithProfile(path string) Option {
	return func(o *Options) {
		o.Preset = PresetProfileGuided
		o.ProfilePath = path
	}
}

// WithMaxIterations caps the pipeline's fixed-point iteration count
// for this call.
//
// The default value of this option is "10".
func WithMaxIterations(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("aeris: invalid iteration cap: %d", n))
	}
	return func(o *Options) { o.MaxIterations = n }
}

// SetMaxInlineCost sets the default maximum body cost the inliner
// accepts for all runs from now on.
//
// This value can also be configured with the `AERIS_MAX_INLINE_COST`
// environment variable.
//
// The default value of this option is "20".
//
// Returns the old opts.MaxInlineCost value.
func SetMaxInlineCost(cost int) int {
	cost, opts.MaxInlineCost = opts.MaxInlineCost, cost
	return cost
}

// SetMaxUnrollIters sets the default maximum trip count the unroller
// accepts for all runs from now on.
//
// This value can also be configured with the `AERIS_MAX_UNROLL_ITERS`
// environment variable.
//
// The default value of this option is "16".
//
// Returns the old opts.MaxUnrollIters value.
func SetMaxUnrollIters(iters int) int {
	iters, opts.MaxUnrollIters = opts.MaxUnrollIters, iters
	return iters
}

// SetMaxUnrollSize sets the default maximum loop block count the
// unroller accepts for all runs from now on.
//
// This value can also be configured with the `AERIS_MAX_UNROLL_SIZE`
// environment variable.
//
// The default value of this option is "5".
//
// Returns the old opts.MaxUnrollSize value.
func SetMaxUnrollSize(size int) int {
	size, opts.MaxUnrollSize = opts.MaxUnrollSize, size
	return size
}

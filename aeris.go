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
	"github.com/aerislang/aeris/internal/mir"
	"github.com/aerislang/aeris/internal/opt"
)

// Validate checks a program against the IR well-formedness rules.
// It returns nil when the program is well-formed, otherwise every
// violation found.
func Validate(p *mir.Program) error {
	if errs := mir.ValidateProgram(p); len(errs) != 0 {
		return ValidationErrors(errs)
	}
	return nil
}

// Optimize runs an optimization pipeline over p, mutating it in
// place. The program must be well-formed going in; the pipeline
// re-checks well-formedness after every iteration and fails hard if
// any pass broke it.
func Optimize(p *mir.Program, options ...Option) (opt.Stats, error) {
	o := defaultOptions()
	for _, fn := range options {
		fn(&o)
	}

	if err := Validate(p); err != nil {
		return opt.Stats{}, err
	}

	mgr, err := managerFor(o)
	if err != nil {
		return opt.Stats{}, err
	}
	if o.MaxIterations > 0 {
		mgr.SetMaxIterations(o.MaxIterations)
	}
	return mgr.Run(p)
}

func managerFor(o Options) (*opt.Manager, error) {
	switch o.Preset {
	case PresetAdvanced:
		return opt.Advanced(), nil
	case PresetWholeProgram:
		return opt.WholeProgramPipeline(), nil
	case PresetProfileGuided:
		mgr, err := opt.ProfileGuided(o.ProfilePath)
		if err != nil {
			return nil, ProfileError{Path: o.ProfilePath, Reason: err}
		}
		return mgr, nil
	default:
		return opt.Default(), nil
	}
}

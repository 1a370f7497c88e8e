/*
 * Copyright 2022 ByteDance Inc.
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

package opt

import (
    `fmt`
    `os`

    `github.com/aerislang/aeris/internal/mir`
    `github.com/aerislang/aeris/internal/opts`
)

// Pass is one rewrite over the IR. Function passes are lifted over
// every function of the program; passes needing whole-program
// visibility implement RunOnProgram directly. Both report whether
// anything changed.
type Pass interface {
    Name() string
    RunOnFunction(fn *mir.Function) bool
    RunOnProgram(p *mir.Program) bool
}

type _PassDescriptor struct {
    pass Pass
    desc string
}

// runOnEachFunction lifts a function pass over the whole program in
// deterministic name order.
func runOnEachFunction(p *mir.Program, pass Pass) bool {
    rt := false
    for _, name := range p.FunctionNames() {
        if pass.RunOnFunction(p.Functions[name]) {
            rt = true
        }
    }
    return rt
}

// Stats records what one pipeline run did.
type Stats struct {
    Iterations int
    Changes    map[string]int
}

// Manager drives an ordered pass list to a fixed point: the list is
// repeated until no pass reports a change or the iteration cap is
// reached.
type Manager struct {
    passes  []_PassDescriptor
    maxiter int
}

func NewManager(passes ...Pass) *Manager {
    pd := make([]_PassDescriptor, 0, len(passes))
    for _, p := range passes {
        pd = append(pd, _PassDescriptor { pass: p, desc: p.Name() })
    }
    return &Manager { passes: pd, maxiter: opts.GetDefaultOptions().MaxPassIters }
}

// SetMaxIterations overrides the fixed-point iteration cap.
func (self *Manager) SetMaxIterations(n int) *Manager {
    if n < 1 {
        panic("opt: iteration cap must be positive")
    }
    self.maxiter = n
    return self
}

// Run executes the pipeline. The IR must be well-formed going in; a
// pass that breaks well-formedness is a hard failure.
func (self *Manager) Run(p *mir.Program) (Stats, error) {
    st := Stats { Changes: make(map[string]int) }

    /* repeat the pass list until a full quiet iteration */
    for st.Iterations < self.maxiter {
        changed := false
        st.Iterations++

        /* every pass, in pipeline order */
        for _, pd := range self.passes {
            if pd.pass.RunOnProgram(p) {
                changed = true
                st.Changes[pd.desc]++
            }
        }

        /* every pass must leave the program well-formed */
        if errs := mir.ValidateProgram(p); len(errs) != 0 {
            return st, fmt.Errorf("opt: IR invalid after iteration %d: %w", st.Iterations, errs[0])
        }
        if !changed {
            break
        }
    }

    /* optional visibility into what the pipeline did */
    if opts.Debug {
        fmt.Fprintf(os.Stderr, "opt: pipeline stats: %s", mir.DebugDump(st))
    }
    return st, nil
}

/* Preset pipelines. The pass order matters: folding first exposes
 * dead code, CSE runs after the reshaping passes. */

func Default() *Manager {
    return NewManager(
        new(ConstFold),
        new(DeadCode),
        new(ComSubExpr),
    )
}

func Advanced() *Manager {
    return NewManager(
        new(ConstFold),
        new(DeadCode),
        new(LoopOpt),
        new(Interproc),
        new(Vectorize),
        new(ComSubExpr),
        new(Inline),
    )
}

func WholeProgramPipeline() *Manager {
    return NewManager(
        new(WholeProgram),
        new(Interproc),
        new(ConstFold),
        new(DeadCode),
        new(LoopOpt),
        new(Vectorize),
        new(ComSubExpr),
        new(Inline),
    )
}

// ProfileGuided loads the profile up front; an unreadable or
// unparseable profile is a recoverable error, not a panic.
func ProfileGuided(path string) (*Manager, error) {
    pp, err := NewProfilePass(path)
    if err != nil {
        return nil, err
    }
    return NewManager(
        new(ConstFold),
        new(DeadCode),
        pp,
        new(LoopOpt),
        new(Interproc),
        new(Vectorize),
        new(ComSubExpr),
        new(Inline),
    ), nil
}

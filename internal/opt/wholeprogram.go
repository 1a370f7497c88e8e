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
    `github.com/aerislang/aeris/internal/mir`
    `github.com/oleiade/lane`
)

// FunctionAnalysis is the whole-program view of a single function,
// built from its own body plus the final call-graph summaries.
type FunctionAnalysis struct {
    Cost            int
    Calls           []string
    IsPure          bool
    IsRecursive     bool
    IsInlineable    bool
    ModifiesGlobals bool
}

// AnalyzeProgram builds the per-function analyses for every defined
// function.
func AnalyzeProgram(p *mir.Program) map[string]*FunctionAnalysis {
    cg := BuildCallGraph(p)
    sums := ComputeSummaries(p, cg)

    ret := make(map[string]*FunctionAnalysis, len(p.Functions))
    for _, name := range p.FunctionNames() {
        sm := sums[name]
        fa := &FunctionAnalysis {
            Cost            : inlineCost(p.Functions[name]),
            Calls           : cg.Callees[name],
            IsPure          : sm.IsPure(),
            IsRecursive     : sm.IsRecursive,
            ModifiesGlobals : len(sm.GlobalsModified) != 0,
        }
        fa.IsInlineable = fa.Cost <= 10 && fa.IsPure && !fa.IsRecursive
        ret[name] = fa
    }
    return ret
}

// WholeProgram is the closed-world pass: with every caller visible it
// removes everything unreachable from the entry points and splices
// tiny pure functions into their few call sites.
type WholeProgram struct{}

func (*WholeProgram) Name() string {
    return "Whole Program Optimization"
}

func (*WholeProgram) RunOnFunction(*mir.Function) bool {
    return false
}

func (self *WholeProgram) RunOnProgram(p *mir.Program) bool {
    rt := false
    if pruneUnreachableFunctions(p) {
        rt = true
    }
    if inlinePureFunctions(p) {
        rt = true
    }
    return rt
}

// pruneUnreachableFunctions walks the call graph forward from main
// and the externally declared names, and deletes everything the walk
// never touches.
func pruneUnreachableFunctions(p *mir.Program) bool {
    q := lane.NewQueue()
    live := make(map[string]bool, len(p.Functions))

    mark := func(name string) {
        if _, ok := p.Functions[name]; ok && !live[name] {
            live[name] = true
            q.Enqueue(name)
        }
    }

    /* entry points: main plus anything declared visible outside */
    mark("main")
    for name := range p.Externals {
        mark(name)
    }

    for !q.Empty() {
        name := q.Dequeue().(string)
        for _, callee := range calledNames(p.Functions[name]) {
            mark(callee)
        }
    }

    rt := false
    for _, name := range p.FunctionNames() {
        if !live[name] {
            delete(p.Functions, name)
            rt = true
        }
    }
    return rt
}

// inlinePureFunctions splices callees the closed-world analysis marks
// inlineable, provided they are called from at most a few sites. The
// splice machinery is shared with the local inliner.
func inlinePureFunctions(p *mir.Program) bool {
    fas := AnalyzeProgram(p)
    sites := countCallSites(p)

    rt := false
    for _, name := range p.FunctionNames() {
        caller := p.Functions[name]
        for _, bid := range caller.BlockIds() {
            call, ok := caller.Blocks[bid].Term.(*mir.CallTerm)
            if !ok || call.Func == name {
                continue
            }
            cfa := fas[call.Func]
            if cfa == nil || !cfa.IsInlineable {
                continue
            }
            if n := sites[call.Func]; n < 1 || n > 3 {
                continue
            }
            if spliceCall(caller, bid, p.Functions[call.Func]) {
                rt = true
            }
        }
    }
    return rt
}

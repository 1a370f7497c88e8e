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
    `sort`

    `github.com/aerislang/aeris/internal/mir`
    `github.com/aerislang/aeris/internal/pgo`
)

// InlineDecision classifies one call edge from profile counts.
type InlineDecision int

const (
    InlineDefault InlineDecision = iota
    AlwaysInline
    InlineHot
    NeverInline
)

func (self InlineDecision) String() string {
    switch self {
        case AlwaysInline : return "always"
        case InlineHot    : return "hot"
        case NeverInline  : return "never"
        default           : return "default"
    }
}

// ProfilePass applies collected execution counts as transforms: hot
// call edges are spliced inline and every function's blocks are laid
// out hot-first.
type ProfilePass struct {
    prof *pgo.Profile
}

// NewProfilePass loads a profile file, failing before the pipeline
// ever runs if the file cannot be read.
func NewProfilePass(path string) (*ProfilePass, error) {
    prof, err := pgo.Load(path)
    if err != nil {
        return nil, err
    }
    return &ProfilePass { prof: prof }, nil
}

// NewProfilePassWith wraps an already decoded profile.
func NewProfilePassWith(prof *pgo.Profile) *ProfilePass {
    return &ProfilePass { prof: prof }
}

func (*ProfilePass) Name() string {
    return "Profile-Guided Optimization"
}

func (*ProfilePass) RunOnFunction(*mir.Function) bool {
    return false
}

func (self *ProfilePass) RunOnProgram(p *mir.Program) bool {
    rt := false
    if self.applyInlining(p) {
        rt = true
    }
    for _, name := range p.FunctionNames() {
        if self.layoutBlocks(p.Functions[name]) {
            rt = true
        }
    }
    return rt
}

// DecideInline classifies one call edge. Frequency is how often the
// edge fires per caller invocation.
func (self *ProfilePass) DecideInline(caller string, callee string) InlineDecision {
    freq := self.prof.CallFrequency(caller, callee)
    switch {
        case self.prof.IsColdFunction(callee) : return NeverInline
        case freq < 0.01                      : return NeverInline
        case self.prof.IsHotFunction(callee) && freq > 0.8 : return AlwaysInline
        case self.prof.FunctionCounts[callee] >= pgo.HotBlockThreshold && freq > 0.5 : return InlineHot
        default : return InlineDefault
    }
}

// applyInlining splices every call edge classified AlwaysInline or
// InlineHot, sites the splicer cannot handle are skipped unchanged.
func (self *ProfilePass) applyInlining(p *mir.Program) bool {
    rt := false
    for _, name := range p.FunctionNames() {
        caller := p.Functions[name]
        for _, bid := range caller.BlockIds() {
            call, ok := caller.Blocks[bid].Term.(*mir.CallTerm)
            if !ok || call.Func == name {
                continue
            }
            callee, defined := p.Functions[call.Func]
            if !defined || callsSelf(callee) {
                continue
            }
            switch self.DecideInline(name, call.Func) {
                case AlwaysInline, InlineHot: {
                    if spliceCall(caller, bid, callee) {
                        rt = true
                    }
                }
            }
        }
    }
    return rt
}

// layoutBlocks reorders one function's block emission order: entry
// pinned first, then the hot partition by descending count, then the
// rest, with very likely (>0.8) branch targets pulled up right after
// their branch. Only the order changes, never an edge.
func (self *ProfilePass) layoutBlocks(fn *mir.Function) bool {
    count := func(id int) uint64 {
        return self.prof.BlockCounts[pgo.BlockKey{Func: fn.Name, Block: id}]
    }

    var hot []int
    var cold []int
    for _, id := range fn.BlockIds() {
        if id == fn.Entry {
            continue
        }
        if count(id) >= pgo.HotBlockThreshold {
            hot = append(hot, id)
        } else {
            cold = append(cold, id)
        }
    }

    byCount := func(ids []int) {
        sort.SliceStable(ids, func(i int, j int) bool {
            ci, cj := count(ids[i]), count(ids[j])
            if ci != cj {
                return ci > cj
            }
            return ids[i] < ids[j]
        })
    }
    byCount(hot)
    byCount(cold)

    order := make([]int, 0, len(fn.Blocks))
    order = append(order, fn.Entry)
    order = append(order, hot...)
    order = append(order, cold...)
    order = self.pullLikelyTargets(fn, order, count)

    if sameOrder(order, fn.LayoutOrder()) {
        return false
    }
    fn.Layout = order
    return true
}

// pullLikelyTargets moves the hottest successor of a very probable
// branch to the slot right after the branch block.
func (self *ProfilePass) pullLikelyTargets(fn *mir.Function, order []int, count func(int) uint64) []int {
    pos := make(map[int]int, len(order))
    for i, id := range order {
        pos[id] = i
    }

    for i := 0; i < len(order); i++ {
        id := order[i]
        br := self.prof.Branches[pgo.BlockKey{Func: fn.Name, Block: id}]
        if br == nil || br.Probability() <= 0.8 {
            continue
        }
        succs := fn.Blocks[id].Successors()
        if len(succs) < 2 {
            continue
        }

        /* hottest successor, excluding the entry which stays pinned */
        best := mir.NoBlock
        for _, s := range succs {
            if s == fn.Entry {
                continue
            }
            if best == mir.NoBlock || count(s) > count(best) {
                best = s
            }
        }
        if best == mir.NoBlock || pos[best] <= i + 1 {
            continue
        }

        /* slide it up to i+1 */
        j := pos[best]
        moved := order[j]
        copy(order[i + 2 : j + 1], order[i + 1 : j])
        order[i + 1] = moved
        for k := i + 1; k <= j; k++ {
            pos[order[k]] = k
        }
    }
    return order
}

func sameOrder(a []int, b []int) bool {
    if len(a) != len(b) {
        return false
    }
    for i := range a {
        if a[i] != b[i] {
            return false
        }
    }
    return true
}

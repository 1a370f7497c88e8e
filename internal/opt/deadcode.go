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
)

// DeadCode removes whatever cannot affect execution: blocks
// unreachable from the entry, assignments whose destination is never
// read, and locals left without any reference. Removing one dead
// assignment can expose another, so the phases repeat to a fixed
// point.
type DeadCode struct{}

func (*DeadCode) Name() string {
    return "Dead Code Elimination"
}

func (self *DeadCode) RunOnProgram(p *mir.Program) bool {
    return runOnEachFunction(p, self)
}

func (self *DeadCode) RunOnFunction(fn *mir.Function) bool {
    rt := false
    for {
        done := true

        /* Phase 1: drop blocks unreachable from the entry */
        reach := fn.Reachable()
        for _, bid := range fn.BlockIds() {
            if !reach[bid] {
                delete(fn.Blocks, bid)
                done = false
            }
        }

        /* Phase 2: drop assignments nobody reads */
        used := self.usedLocals(fn)
        for _, bid := range fn.BlockIds() {
            bb := fn.Blocks[bid]
            ins := bb.Ins[:0]
            for _, s := range bb.Ins {
                if self.deadAssign(s, used) {
                    done = false
                } else {
                    ins = append(ins, s)
                }
            }
            bb.Ins = ins
        }

        /* Phase 3: drop locals with no remaining reference */
        refd := self.referencedLocals(fn)
        for _, id := range fn.LocalIds() {
            if !refd[id] {
                delete(fn.Locals, id)
                done = false
            }
        }

        if done {
            return rt
        }
        rt = true
    }
}

// usedLocals collects every local that is read somewhere. Storage
// markers count as uses, parameters and the return local are always
// used.
func (self *DeadCode) usedLocals(fn *mir.Function) map[int]bool {
    used := make(map[int]bool, len(fn.Locals))
    for _, p := range fn.Params {
        used[p.Local] = true
    }
    if fn.ReturnLocal != mir.NoLocal {
        used[fn.ReturnLocal] = true
    }
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            for _, id := range mir.StmtReads(s) {
                used[id] = true
            }
            switch v := s.(type) {
                case *mir.StorageLive : used[v.Local] = true
                case *mir.StorageDead : used[v.Local] = true
            }
        }
        if bb.Term != nil {
            for _, id := range mir.TermReads(bb.Term) {
                used[id] = true
            }
        }
    }
    return used
}

// deadAssign reports whether an assignment can be dropped: its
// destination is an unread bare local and the rvalue is not a call,
// calls are always retained for their effects.
func (*DeadCode) deadAssign(s mir.Stmt, used map[int]bool) bool {
    v, ok := s.(*mir.Assign)
    if !ok || !v.Place.IsLocal() || used[v.Place.Local] {
        return false
    }
    if _, call := v.Rvalue.(*mir.Call); call {
        return false
    }
    return true
}

// referencedLocals collects every local mentioned at all, so that
// fully orphaned locals can be retired.
func (*DeadCode) referencedLocals(fn *mir.Function) map[int]bool {
    refd := make(map[int]bool, len(fn.Locals))
    for _, p := range fn.Params {
        refd[p.Local] = true
    }
    if fn.ReturnLocal != mir.NoLocal {
        refd[fn.ReturnLocal] = true
    }
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            for _, id := range mir.StmtRefLocals(s) {
                refd[id] = true
            }
        }
        if bb.Term != nil {
            for _, id := range mir.TermRefLocals(bb.Term) {
                refd[id] = true
            }
        }
    }
    return refd
}

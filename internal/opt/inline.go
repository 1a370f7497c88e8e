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
    `github.com/aerislang/aeris/internal/opts`
)

// Inline splices small non-recursive callees into their call sites.
// Callers are rewritten one at a time, a callee grown by an earlier
// splice is copied as it stands.
type Inline struct{}

func (*Inline) Name() string {
    return "Function Inlining"
}

func (*Inline) RunOnFunction(*mir.Function) bool {
    return false
}

func (self *Inline) RunOnProgram(p *mir.Program) bool {
    opt := opts.GetDefaultOptions()

    /* candidate set: cheap enough and not self-recursive */
    cand := make(map[string]bool, len(p.Functions))
    for _, name := range p.FunctionNames() {
        fn := p.Functions[name]
        if opt.CanInline(inlineCost(fn)) && !callsSelf(fn) {
            cand[name] = true
        }
    }

    /* only bother with callees invoked from a handful of sites */
    sites := countCallSites(p)

    rt := false
    for _, name := range p.FunctionNames() {
        caller := p.Functions[name]
        for _, bid := range caller.BlockIds() {
            call, ok := caller.Blocks[bid].Term.(*mir.CallTerm)
            if !ok || !cand[call.Func] || sites[call.Func] > 3 {
                continue
            }
            if spliceCall(caller, bid, p.Functions[call.Func]) {
                rt = true
            }
        }
    }
    return rt
}

// inlineCost weighs a function body: each statement costs 1, each
// terminator costs by kind (calls 5, switches 2, everything else 1).
func inlineCost(fn *mir.Function) int {
    cost := 0
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        cost += len(bb.Ins)
        switch bb.Term.(type) {
            case *mir.CallTerm  : cost += 5
            case *mir.SwitchInt : cost += 2
            default             : cost += 1
        }
    }
    return cost
}

func callsSelf(fn *mir.Function) bool {
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            if v, ok := s.(*mir.Assign); ok {
                if c, ok := v.Rvalue.(*mir.Call); ok && c.Func == fn.Name {
                    return true
                }
            }
        }
        if c, ok := bb.Term.(*mir.CallTerm); ok && c.Func == fn.Name {
            return true
        }
    }
    return false
}

func countCallSites(p *mir.Program) map[string]int {
    sites := make(map[string]int)
    for _, name := range p.FunctionNames() {
        fn := p.Functions[name]
        for _, bid := range fn.BlockIds() {
            bb := fn.Blocks[bid]
            for _, s := range bb.Ins {
                if v, ok := s.(*mir.Assign); ok {
                    if c, ok := v.Rvalue.(*mir.Call); ok {
                        sites[c.Func]++
                    }
                }
            }
            if c, ok := bb.Term.(*mir.CallTerm); ok {
                sites[c.Func]++
            }
        }
    }
    return sites
}

// spliceCall replaces the call terminator of one block with the
// callee's body: arguments are copied into fresh parameter locals,
// the callee's locals and blocks are renumbered into the caller's
// space, and every callee return becomes a jump to the continuation.
// Unsupported shapes (no return target, an unwind edge, argument
// count mismatch) are skipped, never half-rewritten.
func spliceCall(caller *mir.Function, bid int, callee *mir.Function) bool {
    call := caller.Blocks[bid].Term.(*mir.CallTerm)
    if call.Target == mir.NoBlock || call.Cleanup != mir.NoBlock || len(call.Args) != len(callee.Params) {
        return false
    }

    /* renumber callee locals into the caller's space */
    nextLocal := caller.NextLocalId()
    localMap := make(map[int]int, len(callee.Locals))
    for _, id := range callee.LocalIds() {
        lc := callee.Locals[id]
        localMap[id] = nextLocal
        caller.Locals[nextLocal] = &mir.Local { Ty: lc.Ty, Mutable: lc.Mutable, Info: lc.Info }
        nextLocal++
    }

    /* renumber callee blocks into the caller's space */
    nextBlock := caller.NextBlockId()
    blockMap := make(map[int]int, len(callee.Blocks))
    for _, id := range callee.BlockIds() {
        blockMap[id] = nextBlock
        nextBlock++
    }

    mapLocal := func(id int) int { return localMap[id] }
    mapBlock := func(id int) int { return blockMap[id] }

    /* bind arguments to the renumbered parameter locals at the call
     * block, then fall into the spliced entry */
    site := caller.Blocks[bid]
    for i, prm := range callee.Params {
        site.Ins = append(site.Ins, &mir.Assign {
            Place  : mir.LocalPlace(localMap[prm.Local]),
            Rvalue : &mir.Use { X: call.Args[i].Clone() },
        })
    }
    site.Term = &mir.Goto { Target: blockMap[callee.Entry] }

    /* copy the callee body, rewiring returns to the continuation */
    for _, id := range callee.BlockIds() {
        src := callee.Blocks[id]
        dst := &mir.BasicBlock { Id: blockMap[id] }

        for _, s := range src.Ins {
            cp := mir.CloneStmt(s)
            mir.RemapStmtLocals(cp, mapLocal)
            dst.Ins = append(dst.Ins, cp)
        }

        if _, ret := src.Term.(*mir.Return); ret {
            if call.Dest != nil && callee.ReturnLocal != mir.NoLocal {
                dst.Ins = append(dst.Ins, &mir.Assign {
                    Place  : call.Dest.Clone(),
                    Rvalue : &mir.Use { X: mir.CopyLocal(localMap[callee.ReturnLocal]) },
                })
            }
            dst.Term = &mir.Goto { Target: call.Target }
        } else {
            tm := src.Term.CloneTerm()
            mir.RemapTermLocals(tm, mapLocal)
            tm.RetargetBlocks(mapBlock)
            dst.Term = tm
        }

        caller.Blocks[dst.Id] = dst
    }
    return true
}

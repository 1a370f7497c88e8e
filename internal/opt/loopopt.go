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

// LoopOpt performs invariant hoisting, strength reduction and full
// unrolling over the natural loops of a function. Unrolling rebuilds
// the CFG, so at most one unroll happens per run; the pipeline's
// fixed-point loop picks up the rest.
type LoopOpt struct{}

func (*LoopOpt) Name() string {
    return "Loop Optimization"
}

func (self *LoopOpt) RunOnProgram(p *mir.Program) bool {
    return runOnEachFunction(p, self)
}

func (self *LoopOpt) RunOnFunction(fn *mir.Function) bool {
    rt := false
    opt := opts.GetDefaultOptions()
    forest := BuildLoopForest(fn)

    for _, lp := range forest.InnermostFirst() {
        basics := FindBasicIVs(fn, lp)

        /* body rewrites that keep the loop structure intact; the
         * statement positions shift after a hoist, so rescan */
        if hoistInvariants(fn, forest, lp, basics) {
            rt = true
            basics = FindBasicIVs(fn, lp)
        }
        if strengthReduce(fn, forest, lp, basics) {
            rt = true
            basics = FindBasicIVs(fn, lp)
        }

        /* unrolling invalidates the forest, stop after one */
        if unrollLoop(fn, forest, lp, basics, &opt) {
            return true
        }
    }
    return rt
}

/** Trip count estimation **/

// _CountedLoop is a loop in canonical counted shape: the header
// compares a basic induction variable against a constant bound and
// switches between the body and a single exit.
type _CountedLoop struct {
    iv    BasicIV
    start mir.Int128
    bound mir.Int128
    op    mir.BinOp
    trips int64
    exit  int
    body  int
}

func analyzeCounted(fn *mir.Function, forest *LoopForest, lp *Loop, basics []BasicIV) (_CountedLoop, bool) {
    var cl _CountedLoop

    /* header must switch on a boolean condition local, with the zero
     * value leaving the loop */
    head := fn.Blocks[lp.Header]
    sw, ok := head.Term.(*mir.SwitchInt)
    if !ok || sw.Disc.IsConst() || !sw.Disc.Place.IsLocal() {
        return cl, false
    }
    if len(sw.Targets.Values) != 1 || !sw.Targets.Values[0].IsZero() {
        return cl, false
    }
    cl.exit = sw.Targets.Blocks[0]
    cl.body = sw.Targets.Otherwise
    if lp.Contains(cl.exit) || !lp.Contains(cl.body) {
        return cl, false
    }

    /* the condition must be "iv < bound" computed in the header */
    cond := sw.Disc.Place.Local
    cmp := findCompare(head, cond, basics)
    if cmp == nil {
        return cl, false
    }
    cl.iv = cmp.iv
    cl.op = cmp.op
    cl.bound = cmp.bound

    /* the update must run exactly once per iteration */
    if cl.iv.Block != lp.Latch && !forest.Dom.Dominates(cl.iv.Block, lp.Latch) {
        return cl, false
    }

    /* the start value comes from the preheader */
    start, ok := preheaderInit(fn, lp, cl.iv.Local)
    if !ok {
        return cl, false
    }
    cl.start = start

    /* derive the trip count */
    trips, ok := tripCount(cl.start, cl.bound, cl.iv.Step, cl.op)
    if !ok {
        return cl, false
    }
    cl.trips = trips
    return cl, true
}

type _IvCompare struct {
    iv    BasicIV
    op    mir.BinOp
    bound mir.Int128
}

func findCompare(head *mir.BasicBlock, cond int, basics []BasicIV) *_IvCompare {
    for i := len(head.Ins) - 1; i >= 0; i-- {
        v, ok := head.Ins[i].(*mir.Assign)
        if !ok || !v.Place.IsLocal() || v.Place.Local != cond {
            continue
        }
        bin, ok := v.Rvalue.(*mir.BinaryOp)
        if !ok || !bin.Op.IsComparison() {
            return nil
        }
        for _, iv := range basics {
            if readsLocal(bin.L, iv.Local) && isIntConst(bin.R) {
                return &_IvCompare { iv: iv, op: bin.Op, bound: bin.R.Const.I }
            }
            if readsLocal(bin.R, iv.Local) && isIntConst(bin.L) {
                return &_IvCompare { iv: iv, op: flipCompare(bin.Op), bound: bin.L.Const.I }
            }
        }
        return nil
    }
    return nil
}

func flipCompare(op mir.BinOp) mir.BinOp {
    switch op {
        case mir.OpLt : return mir.OpGt
        case mir.OpLe : return mir.OpGe
        case mir.OpGt : return mir.OpLt
        case mir.OpGe : return mir.OpLe
        default       : return op
    }
}

// preheaderInit finds the last constant assignment to the local in
// the loop preheader.
func preheaderInit(fn *mir.Function, lp *Loop, id int) (mir.Int128, bool) {
    if lp.Preheader == mir.NoBlock {
        return mir.Int128{}, false
    }
    bb := fn.Blocks[lp.Preheader]
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        v, ok := bb.Ins[i].(*mir.Assign)
        if !ok || !v.Place.IsLocal() || v.Place.Local != id {
            continue
        }
        if u, ok := v.Rvalue.(*mir.Use); ok && isIntConst(u.X) {
            return u.X.Const.I, true
        }
        return mir.Int128{}, false
    }
    return mir.Int128{}, false
}

// tripCount solves the canonical counting patterns. Values outside
// the int64 range are rejected, such loops are never unrolled anyway.
func tripCount(start mir.Int128, bound mir.Int128, step mir.Int128, op mir.BinOp) (int64, bool) {
    s, ok1 := toInt64(start)
    b, ok2 := toInt64(bound)
    k, ok3 := toInt64(step)
    if !ok1 || !ok2 || !ok3 || k == 0 {
        return 0, false
    }

    var span int64
    switch {
        case op == mir.OpLt && k > 0 && s < b  : span = b - s
        case op == mir.OpLe && k > 0 && s <= b : span = b - s + 1
        case op == mir.OpGt && k < 0 && s > b  : span, k = s - b, -k
        case op == mir.OpGe && k < 0 && s >= b : span, k = s - b + 1, -k
        default                                : return 0, false
    }
    return (span + k - 1) / k, true
}

func toInt64(v mir.Int128) (int64, bool) {
    r := v.Int64()
    return r, mir.Int128FromInt64(r) == v
}

// estimatedTrips returns the static trip count when the loop is in
// counted shape and a conservative default otherwise.
func estimatedTrips(fn *mir.Function, forest *LoopForest, lp *Loop, basics []BasicIV) int64 {
    if cl, ok := analyzeCounted(fn, forest, lp, basics); ok {
        return cl.trips
    }
    return 10
}

/** Invariant code motion **/

// hoistInvariants moves loop-invariant assignments into the
// preheader. An assignment qualifies when every local it reads is
// never redefined inside the loop, the rvalue cannot call or trap,
// its destination has no other definition in the loop, and its block
// dominates every other loop block reading the destination. Hoisting
// only happens when the estimated trip count makes it worthwhile.
func hoistInvariants(fn *mir.Function, forest *LoopForest, lp *Loop, basics []BasicIV) bool {
    profit := estimatedTrips(fn, forest, lp, basics)
    if profit > 1000 {
        profit = 1000
    }
    if profit <= 10 {
        return false
    }

    redef := loopRedefs(fn, lp)
    var moves []*mir.Assign

    for _, bid := range lp.BlockIds() {
        bb := fn.Blocks[bid]

        /* detect first, then compact, so the scan never sees a
         * half-rewritten block */
        hoist := make(map[int]bool)
        for i, s := range bb.Ins {
            if v, ok := s.(*mir.Assign); ok && invariantAssign(fn, forest, lp, redef, bb, i, v) {
                hoist[i] = true
            }
        }
        if len(hoist) == 0 {
            continue
        }
        kept := make([]mir.Stmt, 0, len(bb.Ins) - len(hoist))
        for i, s := range bb.Ins {
            if hoist[i] {
                moves = append(moves, s.(*mir.Assign))
            } else {
                kept = append(kept, s)
            }
        }
        bb.Ins = kept
    }

    if len(moves) == 0 {
        return false
    }

    /* materialize a preheader if the header has several entry edges */
    if lp.Preheader == mir.NoBlock {
        lp.Preheader = splitPreheader(fn, lp)
    }
    pre := fn.Blocks[lp.Preheader]
    for _, v := range moves {
        pre.Ins = append(pre.Ins, v)
    }
    return true
}

func loopRedefs(fn *mir.Function, lp *Loop) map[int]int {
    redef := make(map[int]int)
    for _, bid := range lp.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            if v, ok := s.(*mir.Assign); ok {
                redef[v.Place.Local]++
            }
        }
        if c, ok := bb.Term.(*mir.CallTerm); ok && c.Dest != nil {
            redef[c.Dest.Local]++
        }
    }
    return redef
}

func invariantAssign(fn *mir.Function, forest *LoopForest, lp *Loop, redef map[int]int, bb *mir.BasicBlock, idx int, v *mir.Assign) bool {
    if !v.Place.IsLocal() || redef[v.Place.Local] != 1 {
        return false
    }

    /* calls have effects, division and remainder can trap */
    switch rv := v.Rvalue.(type) {
        case *mir.Call: {
            return false
        }
        case *mir.BinaryOp: {
            if rv.Op == mir.OpDiv || rv.Op == mir.OpRem {
                return false
            }
        }
        case *mir.Ref: {
            return false
        }
    }

    /* every read local must be loop-invariant */
    for _, id := range mir.StmtReads(v) {
        if redef[id] != 0 {
            return false
        }
    }

    /* the definition must reach every loop read of the destination */
    dst := v.Place.Local
    for _, bid := range lp.BlockIds() {
        other := fn.Blocks[bid]
        for i, s := range other.Ins {
            if bid == bb.Id && i <= idx {
                if i < idx && readsAny(mir.StmtReads(s), dst) {
                    return false
                }
                continue
            }
            if readsAny(mir.StmtReads(s), dst) && bid != bb.Id && !forest.Dom.Dominates(bb.Id, bid) {
                return false
            }
        }
        if other.Term != nil && readsAny(mir.TermReads(other.Term), dst) {
            if bid != bb.Id && !forest.Dom.Dominates(bb.Id, bid) {
                return false
            }
        }
    }
    return true
}

func readsAny(ids []int, id int) bool {
    for _, v := range ids {
        if v == id {
            return true
        }
    }
    return false
}

// splitPreheader gives the loop a dedicated preheader: every entering
// edge from outside the loop is redirected through a fresh block that
// falls into the header.
func splitPreheader(fn *mir.Function, lp *Loop) int {
    id := fn.NextBlockId()
    fn.Blocks[id] = &mir.BasicBlock { Id: id, Term: &mir.Goto { Target: lp.Header } }

    for _, p := range fn.Predecessors(lp.Header) {
        if !lp.Contains(p) && p != id {
            fn.Blocks[p].Term.RetargetBlocks(func(t int) int {
                if t == lp.Header {
                    return id
                }
                return t
            })
        }
    }
    return id
}

/** Strength reduction **/

// strengthReduce turns derived-IV multiplications into incremental
// additions: "y = x * c" inside the loop becomes an initialization in
// the preheader plus "y = y + step*c" at the original site.
func strengthReduce(fn *mir.Function, forest *LoopForest, lp *Loop, basics []BasicIV) bool {
    derived := FindDerivedIVs(fn, lp, basics)
    step := make(map[int]mir.Int128, len(basics))
    for _, iv := range basics {
        step[iv.Local] = iv.Step
    }

    rt := false
    for _, dv := range derived {
        /* only multiplications are worth rewriting */
        if dv.Offset.IsZero() && dv.Multiplier == mir.Int128FromInt64(1) {
            continue
        }
        if !dv.Offset.IsZero() {
            continue
        }

        /* the multiply must run before the base update, once per
         * iteration */
        base := findBasicIV(basics, dv.Base)
        if base == nil {
            continue
        }
        if !executesBefore(forest, dv.Block, dv.Index, base.Block, base.Index) {
            continue
        }
        if dv.Block != lp.Latch && !forest.Dom.Dominates(dv.Block, lp.Latch) {
            continue
        }

        /* a preheader is required to host the initialization */
        if lp.Preheader == mir.NoBlock {
            lp.Preheader = splitPreheader(fn, lp)
        }

        incr := step[dv.Base].Mul(dv.Multiplier)
        pre := fn.Blocks[lp.Preheader]
        pre.Ins = append(pre.Ins,
            &mir.Assign {
                Place  : mir.LocalPlace(dv.Local),
                Rvalue : &mir.BinaryOp { Op: mir.OpMul, L: mir.CopyLocal(dv.Base), R: mir.Const(mir.IntConst(dv.Multiplier)) },
            },
            &mir.Assign {
                Place  : mir.LocalPlace(dv.Local),
                Rvalue : &mir.BinaryOp { Op: mir.OpSub, L: mir.CopyLocal(dv.Local), R: mir.Const(mir.IntConst(incr)) },
            },
        )

        /* the in-loop multiply becomes an addition */
        fn.Blocks[dv.Block].Ins[dv.Index] = &mir.Assign {
            Place  : mir.LocalPlace(dv.Local),
            Rvalue : &mir.BinaryOp { Op: mir.OpAdd, L: mir.CopyLocal(dv.Local), R: mir.Const(mir.IntConst(incr)) },
        }
        rt = true
    }
    return rt
}

func findBasicIV(basics []BasicIV, id int) *BasicIV {
    for i := range basics {
        if basics[i].Local == id {
            return &basics[i]
        }
    }
    return nil
}

// executesBefore reports whether the statement at (b1, i1) runs before
// (b2, i2) within one iteration.
func executesBefore(forest *LoopForest, b1 int, i1 int, b2 int, i2 int) bool {
    if b1 == b2 {
        return i1 < i2
    }
    return forest.Dom.Dominates(b1, b2)
}

/** Unrolling **/

// unrollLoop fully expands a small counted loop: the body is
// replicated once per iteration with the back edge of copy k feeding
// the header of copy k+1, and the final header check replaced with a
// jump to the exit. The header replicas keep their statements, so the
// condition local stays correct for any use after the loop.
func unrollLoop(fn *mir.Function, forest *LoopForest, lp *Loop, basics []BasicIV, opt *opts.Options) bool {
    cl, ok := analyzeCounted(fn, forest, lp, basics)
    if !ok || cl.trips < 1 || !opt.CanUnroll(int(cl.trips), len(lp.Blocks)) {
        return false
    }

    /* a single back edge keeps the copy wiring simple */
    inside := 0
    for _, p := range fn.Predecessors(lp.Header) {
        if lp.Contains(p) {
            inside++
        }
    }
    if inside != 1 {
        return false
    }

    trips := int(cl.trips)
    body := lp.BlockIds()

    /* allocate ids for copies 1..trips-1 (full) and trips (header
     * only) */
    next := fn.NextBlockId()
    maps := make([]map[int]int, trips + 1)
    for k := 1; k < trips; k++ {
        maps[k] = make(map[int]int, len(body))
        for _, bid := range body {
            maps[k][bid] = next
            next++
        }
    }
    maps[trips] = map[int]int { lp.Header: next }

    /* remap one copy's edge: back to the header means the next
     * iteration, other loop-internal edges stay within the copy, and
     * loop exits keep their absolute target */
    edge := func(k int) func(int) int {
        return func(t int) int {
            if t == lp.Header {
                return maps[k + 1][lp.Header]
            }
            if lp.Contains(t) && k > 0 {
                return maps[k][t]
            }
            return t
        }
    }

    /* full copies 1..trips-1, cloned from the pristine originals
     * before copy 0 is rewired */
    head := fn.Blocks[lp.Header]
    for k := 1; k < trips; k++ {
        for _, bid := range body {
            src := fn.Blocks[bid]
            dst := &mir.BasicBlock { Id: maps[k][bid] }
            for _, s := range src.Ins {
                dst.Ins = append(dst.Ins, mir.CloneStmt(s))
            }
            if bid == lp.Header && cl.body != lp.Header {
                dst.Term = &mir.Goto { Target: maps[k][cl.body] }
            } else {
                /* a self-looping header is its own body, its switch
                 * stays and the back edge feeds the next copy */
                dst.Term = src.Term.CloneTerm()
                dst.Term.RetargetBlocks(edge(k))
            }
            fn.Blocks[dst.Id] = dst
        }
    }

    /* final header replica runs the exhausted check and leaves */
    last := &mir.BasicBlock { Id: maps[trips][lp.Header] }
    for _, s := range head.Ins {
        last.Ins = append(last.Ins, mir.CloneStmt(s))
    }
    last.Term = &mir.Goto { Target: cl.exit }
    fn.Blocks[last.Id] = last

    /* copy 0 reuses the original blocks */
    for _, bid := range body {
        if bid != lp.Header {
            fn.Blocks[bid].Term.RetargetBlocks(edge(0))
        }
    }
    if cl.body != lp.Header {
        head.Term = &mir.Goto { Target: cl.body }
    } else {
        head.Term.RetargetBlocks(edge(0))
    }
    return true
}

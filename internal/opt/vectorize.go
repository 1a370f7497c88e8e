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
    `github.com/klauspost/cpuid/v2`
)

// AccessPattern classifies how one candidate statement touches
// memory, which decides how profitable widening it is.
type AccessPattern int

const (
    Sequential AccessPattern = iota
    Broadcast
    Strided
    Irregular
)

func (self AccessPattern) String() string {
    switch self {
        case Sequential : return "sequential"
        case Broadcast  : return "broadcast"
        case Strided    : return "strided"
        default         : return "irregular"
    }
}

/* lane scaling from the host SIMD feature set; package variables so
 * tests can pin them */
var (
    simdAVX2   = cpuid.CPU.Supports(cpuid.AVX2)
    simdAVX512 = cpuid.CPU.Supports(cpuid.AVX512F)
)

// laneWidth is the SIMD lane count for one element type, zero for
// anything not vectorizable.
func laneWidth(ty *mir.Type) int {
    if ty == nil {
        return 0
    }
    switch ty.Kind {
        case mir.TypeInt, mir.TypeFloat: {
            w := 4
            if simdAVX2 {
                w *= 2
            }
            if simdAVX512 {
                w *= 2
            }
            return w
        }
        case mir.TypeBool: {
            w := 16
            if simdAVX2 {
                w *= 2
            }
            return w
        }
        default: {
            return 0
        }
    }
}

// VectorizedLoop records one applied widening.
type VectorizedLoop struct {
    Func   string
    Header int
    Width  int
    Score  float64
}

// Vectorize widens counted single-block loops: the induction variable
// strides by the lane count, the body statements run once per lane,
// and a scalar copy of the loop finishes the leftover trips.
type Vectorize struct {
    Applied []VectorizedLoop
}

func (*Vectorize) Name() string {
    return "Auto-Vectorization"
}

func (self *Vectorize) RunOnProgram(p *mir.Program) bool {
    return runOnEachFunction(p, self)
}

func (self *Vectorize) RunOnFunction(fn *mir.Function) bool {
    rt := false
    forest := BuildLoopForest(fn)

    for _, lp := range forest.InnermostFirst() {
        if self.vectorizeLoop(fn, forest, lp) {
            rt = true
            /* block set changed, the rest of the forest is stale */
            break
        }
    }
    return rt
}

func (self *Vectorize) vectorizeLoop(fn *mir.Function, forest *LoopForest, lp *Loop) bool {
    /* only the canonical shape: a header whose switch targets itself,
     * so the whole loop is that one block */
    if len(lp.Blocks) != 1 || !selfSwitching(fn.Blocks[lp.Header]) {
        return false
    }

    basics := FindBasicIVs(fn, lp)
    if len(basics) == 0 {
        return false
    }

    cl, counted := analyzeCounted(fn, forest, lp, basics)
    if !counted || cl.iv.Step.IsZero() {
        return false
    }

    /* loop-carried dependences make lanes interfere */
    if HasLoopCarried(fn, lp, basics) {
        return false
    }

    cands := collectCandidates(fn, lp, basics)
    if len(cands) == 0 {
        return false
    }

    width := minLaneWidth(cands)
    score := benefitScore(cands, counted, cl.trips)
    if score <= 1.0 || width <= 1 {
        return false
    }

    /* the first widened batch runs before any bound check, so there
     * must be room for it plus the conservative exit margin */
    if cl.trips < int64(2 * width) {
        return false
    }
    if !self.widenLoop(fn, lp, cl, width) {
        return false
    }

    self.Applied = append(self.Applied, VectorizedLoop {
        Func   : fn.Name,
        Header : lp.Header,
        Width  : width,
        Score  : score,
    })
    return true
}

func selfSwitching(bb *mir.BasicBlock) bool {
    sw, ok := bb.Term.(*mir.SwitchInt)
    if !ok {
        return false
    }
    for _, t := range sw.Targets.AllTargets() {
        if t == bb.Id {
            return true
        }
    }
    return false
}

type _VecCandidate struct {
    pattern AccessPattern
    width   int
}

// collectCandidates classifies the loop statements that compute over
// primitive numeric or boolean values. Division stays scalar, it can
// trap per lane.
func collectCandidates(fn *mir.Function, lp *Loop, basics []BasicIV) []_VecCandidate {
    var ret []_VecCandidate
    for _, bid := range lp.BlockIds() {
        for _, s := range fn.Blocks[bid].Ins {
            v, ok := s.(*mir.Assign)
            if !ok {
                continue
            }
            if !v.Place.IsLocal() {
                continue
            }
            lc := fn.Locals[v.Place.Local]
            if lc == nil {
                continue
            }
            w := laneWidth(lc.Ty)
            if w == 0 {
                continue
            }
            if !vectorizableRvalue(v.Rvalue) {
                continue
            }
            ret = append(ret, _VecCandidate {
                pattern : classifyAccess(v, basics),
                width   : w,
            })
        }
    }
    return ret
}

func vectorizableRvalue(rv mir.Rvalue) bool {
    switch v := rv.(type) {
        case *mir.Use     : return true
        case *mir.UnaryOp : return true
        case *mir.BinaryOp: {
            switch v.Op {
                case mir.OpDiv, mir.OpRem : return false
                default                   : return !v.Op.IsComparison()
            }
        }
        default: {
            return false
        }
    }
}

// classifyAccess tags one candidate: constants broadcast into every
// lane, bare local reads stream sequentially, indexed reads keyed on
// an induction variable stride, anything else is irregular.
func classifyAccess(v *mir.Assign, basics []BasicIV) AccessPattern {
    ops := v.Rvalue.Operands()
    for _, op := range ops {
        if op.IsConst() {
            return Broadcast
        }
    }

    plain := true
    for _, op := range ops {
        if len(op.Place.Proj) != 0 {
            plain = false
            break
        }
    }
    if plain && v.Place.IsLocal() {
        return Sequential
    }

    for _, op := range ops {
        for _, pj := range op.Place.Proj {
            if pj.Kind != mir.ProjIndex {
                continue
            }
            if findBasicIV(basics, pj.Index) == nil {
                return Irregular
            }
        }
    }
    return Strided
}

func patternGain(p AccessPattern) float64 {
    switch p {
        case Sequential : return 1.0
        case Broadcast  : return 0.5
        case Strided    : return 0.3
        default         : return -1.0
    }
}

// benefitScore weighs the widening: more candidates help, a known
// trip count helps, short loops barely pay for the setup.
func benefitScore(cands []_VecCandidate, counted bool, trips int64) float64 {
    score := 2.0 * float64(len(cands))
    if counted {
        score *= 1.5
    }
    for _, c := range cands {
        score += patternGain(c.pattern)
    }
    if counted && trips < 8 {
        score *= 0.5
    }
    return score
}

func minLaneWidth(cands []_VecCandidate) int {
    w := cands[0].width
    for _, c := range cands[1:] {
        if c.width < w {
            w = c.width
        }
    }
    return w
}

// widenLoop rewrites the single-block loop in place: the block's
// statements are replicated once per lane with the bound pulled in by
// a conservative margin, and a pristine scalar copy of the loop takes
// over for whatever trips remain. Giving up early into the scalar
// tail is always safe, the tail re-checks the exact original bound.
func (self *Vectorize) widenLoop(fn *mir.Function, lp *Loop, cl _CountedLoop, width int) bool {
    head := fn.Blocks[lp.Header]
    sw := head.Term.(*mir.SwitchInt)

    cmpAt := findCompareIndex(head, sw.Disc.Place.Local)
    if cmpAt < 0 {
        return false
    }

    /* scalar tail: an untouched copy of the loop block, looping on
     * itself and leaving through the original exit */
    tail := &mir.BasicBlock { Id: fn.NextBlockId() }
    for _, s := range head.Ins {
        tail.Ins = append(tail.Ins, mir.CloneStmt(s))
    }
    tm := head.Term.CloneTerm()
    tm.RetargetBlocks(func(id int) int {
        if id == lp.Header {
            return tail.Id
        }
        return id
    })
    tail.Term = tm
    fn.Blocks[tail.Id] = tail

    /* widened bound: stop while two full batches still fit, the tail
     * absorbs the difference */
    margin := cl.iv.Step.Mul(mir.Int128FromInt64(int64(2 * width)))
    vbound := mir.IntConst(cl.bound.Sub(margin))

    /* one statement batch per lane, every replica comparing against
     * the pulled-in bound */
    ins := make([]mir.Stmt, 0, len(head.Ins) * width)
    for lane := 0; lane < width; lane++ {
        for i, s := range head.Ins {
            cp := mir.CloneStmt(s)
            if i == cmpAt {
                retargetBound(cp.(*mir.Assign), vbound)
            }
            ins = append(ins, cp)
        }
    }
    head.Ins = ins

    /* leaving the widened loop now means "fewer than a batch left",
     * not "done": fall into the scalar tail */
    head.Term.RetargetBlocks(func(id int) int {
        if id == cl.exit {
            return tail.Id
        }
        return id
    })
    return true
}

// findCompareIndex locates the statement computing the switch
// condition, scanning backwards like the counted-loop analysis does.
func findCompareIndex(bb *mir.BasicBlock, cond int) int {
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        v, ok := bb.Ins[i].(*mir.Assign)
        if !ok || !v.Place.IsLocal() || v.Place.Local != cond {
            continue
        }
        bin, ok := v.Rvalue.(*mir.BinaryOp)
        if !ok || !bin.Op.IsComparison() {
            return -1
        }
        return i
    }
    return -1
}

// retargetBound swaps the constant side of the comparison for the
// widened bound, whichever side it sits on.
func retargetBound(v *mir.Assign, vbound *mir.Constant) {
    bin := v.Rvalue.(*mir.BinaryOp)
    if isIntConst(bin.R) {
        bin.R = mir.Const(vbound)
    } else if isIntConst(bin.L) {
        bin.L = mir.Const(vbound)
    }
}

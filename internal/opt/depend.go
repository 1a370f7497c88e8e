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

type DepKind uint8

const (
    DepFlow DepKind = iota
    DepAnti
    DepOutput
)

func (self DepKind) String() string {
    switch self {
        case DepFlow   : return "flow"
        case DepAnti   : return "anti"
        case DepOutput : return "output"
        default        : panic("opt: invalid dependence kind")
    }
}

// Dependence records one ordering constraint between two statements
// of a block.
type Dependence struct {
    Kind  DepKind
    From  mir.Location
    To    mir.Location
    Local int
}

// BlockDependences detects flow, anti and output dependences pairwise
// within one block, based on overlap of the written and read locals.
func BlockDependences(bb *mir.BasicBlock) []Dependence {
    var ret []Dependence

    for i := 0; i < len(bb.Ins); i++ {
        wi, iw := stmtWriteLocal(bb.Ins[i])
        ri := readMap(mir.StmtReads(bb.Ins[i]))
        for j := i + 1; j < len(bb.Ins); j++ {
            wj, jw := stmtWriteLocal(bb.Ins[j])
            rj := readMap(mir.StmtReads(bb.Ins[j]))
            from := mir.Location { Block: bb.Id, Index: i }
            to := mir.Location { Block: bb.Id, Index: j }

            /* write-then-read */
            if iw && rj[wi] {
                ret = append(ret, Dependence { Kind: DepFlow, From: from, To: to, Local: wi })
            }
            /* read-then-write */
            if jw && ri[wj] {
                ret = append(ret, Dependence { Kind: DepAnti, From: from, To: to, Local: wj })
            }
            /* write-then-write */
            if iw && jw && wi == wj {
                ret = append(ret, Dependence { Kind: DepOutput, From: from, To: to, Local: wi })
            }
        }
    }
    return ret
}

// stmtWriteLocal also counts stores through projections, attributing
// them to the base local: overlap through a projection is still a
// hazard.
func stmtWriteLocal(s mir.Stmt) (int, bool) {
    if v, ok := s.(*mir.Assign); ok {
        return v.Place.Local, true
    }
    return mir.NoLocal, false
}

func readMap(ids []int) map[int]bool {
    ret := make(map[int]bool, len(ids))
    for _, id := range ids {
        ret[id] = true
    }
    return ret
}

// HasLoopCarried conservatively reports whether the loop body carries
// a dependence across iterations that would block vectorizing it.
// Writes through an Index projection are safe only when the index is
// a basic induction variable and every read of the same base uses the
// same index local; anything else is assumed carried.
func HasLoopCarried(fn *mir.Function, lp *Loop, basics []BasicIV) bool {
    iv := make(map[int]bool, len(basics))
    for _, b := range basics {
        iv[b.Local] = true
    }

    /* index locals used per written / read base */
    wr := make(map[int]map[int]bool)
    rd := make(map[int]map[int]bool)
    record := func(tbl map[int]map[int]bool, p mir.Place) {
        for _, pj := range p.Proj {
            if pj.Kind == mir.ProjIndex {
                if tbl[p.Local] == nil {
                    tbl[p.Local] = make(map[int]bool)
                }
                tbl[p.Local][pj.Index] = true
            }
        }
    }

    for _, bid := range lp.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            v, ok := s.(*mir.Assign)
            if !ok {
                continue
            }
            if !v.Place.IsLocal() {
                record(wr, v.Place)
            }
            for _, op := range v.Rvalue.Operands() {
                if !op.IsConst() && !op.Place.IsLocal() {
                    record(rd, op.Place)
                }
            }
        }
    }

    for base, widx := range wr {
        /* every write index must be an induction variable */
        for idx := range widx {
            if !iv[idx] {
                return true
            }
        }
        /* every read of the same base must use a write index */
        for idx := range rd[base] {
            if !widx[idx] {
                return true
            }
        }
    }
    return false
}

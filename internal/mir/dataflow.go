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

package mir

import (
    `github.com/oleiade/lane`
)

type Direction uint8

const (
    Forward Direction = iota
    Backward
)

// Location addresses one program point: statement Index within Block,
// with Index == len(Ins) denoting the terminator.
type Location struct {
    Block int
    Index int
}

// Fact is the lattice element of a dataflow problem. Join must be
// idempotent and monotone, and Equal must be a true equality, or the
// fixed point is not guaranteed to terminate.
type Fact interface {
    Equal(Fact) bool
    Clone() Fact
}

// Analysis describes one dataflow problem over a function.
type Analysis interface {
    Direction() Direction
    Initial(fn *Function) Fact
    TransferStmt(in Fact, s Stmt, loc Location) Fact
    TransferTerm(in Fact, t Terminator, loc Location) Fact
    Join(facts []Fact) Fact
}

// DataflowResults holds the per-point facts of a completed analysis.
// For a forward problem the per-location fact is the state after that
// point, for a backward problem the state before it. BlockIn/BlockOut
// are direction-relative: the input to and output of the block's
// transfer chain, so a backward BlockOut is the fact at block start.
type DataflowResults struct {
    dir Direction
    at  map[Location]Fact
    in  map[int]Fact
    out map[int]Fact
}

func (self *DataflowResults) FactAt(loc Location) Fact { return self.at[loc] }
func (self *DataflowResults) BlockIn(id int) Fact      { return self.in[id] }
func (self *DataflowResults) BlockOut(id int) Fact     { return self.out[id] }

// RunAnalysis drives an analysis to its fixed point with an
// equality-gated worklist: a block's stored fact is only overwritten,
// and its neighbors only re-enqueued, when the recomputed fact
// actually differs.
func RunAnalysis(fn *Function, a Analysis) *DataflowResults {
    res := &DataflowResults {
        dir : a.Direction(),
        at  : make(map[Location]Fact),
        in  : make(map[int]Fact, len(fn.Blocks)),
        out : make(map[int]Fact, len(fn.Blocks)),
    }

    /* track membership to avoid duplicate queue entries */
    buf := lane.NewQueue()
    inq := make(map[int]bool, len(fn.Blocks))
    enq := func(id int) {
        if _, ok := fn.Blocks[id]; ok && !inq[id] {
            inq[id] = true
            buf.Enqueue(id)
        }
    }

    /* forward runs from the entry, backward from every return */
    preds := fn.PredecessorMap()
    if a.Direction() == Forward {
        enq(fn.Entry)
    } else {
        for _, id := range fn.BlockIds() {
            if _, ok := fn.Blocks[id].Term.(*Return); ok {
                enq(id)
            }
        }
    }

    for !buf.Empty() {
        id := buf.Dequeue().(int)
        inq[id] = false
        if a.Direction() == Forward {
            runForwardBlock(fn, a, res, preds, id, enq)
        } else {
            runBackwardBlock(fn, a, res, preds, id, enq)
        }
    }
    return res
}

func runForwardBlock(fn *Function, a Analysis, res *DataflowResults, preds map[int][]int, id int, enq func(int)) {
    bb := fn.Blocks[id]

    /* block input: initial for the entry, join of predecessor outputs otherwise */
    var cur Fact
    if id == fn.Entry {
        cur = a.Initial(fn)
    } else {
        var edges []Fact
        for _, p := range preds[id] {
            if f, ok := res.out[p]; ok {
                edges = append(edges, f)
            }
        }
        if len(edges) == 0 {
            cur = a.Initial(fn)
        } else {
            cur = a.Join(edges)
        }
    }
    res.in[id] = cur

    /* statements in order, terminator last */
    for i, ins := range bb.Ins {
        cur = a.TransferStmt(cur, ins, Location { Block: id, Index: i })
        res.at[Location { Block: id, Index: i }] = cur
    }
    loc := Location { Block: id, Index: len(bb.Ins) }
    cur = a.TransferTerm(cur, bb.Term, loc)
    res.at[loc] = cur

    /* propagate only on change */
    if old, ok := res.out[id]; !ok || !old.Equal(cur) {
        res.out[id] = cur
        for _, succ := range bb.Successors() {
            enq(succ)
        }
    }
}

func runBackwardBlock(fn *Function, a Analysis, res *DataflowResults, preds map[int][]int, id int, enq func(int)) {
    bb := fn.Blocks[id]

    /* block input: join of successor block-start facts, the mirror
     * image of the forward case */
    var cur Fact
    var edges []Fact
    for _, succ := range bb.Successors() {
        if f, ok := res.out[succ]; ok {
            edges = append(edges, f)
        }
    }
    if len(edges) == 0 {
        cur = a.Initial(fn)
    } else {
        cur = a.Join(edges)
    }
    res.in[id] = cur

    /* terminator first, then statements in reverse */
    loc := Location { Block: id, Index: len(bb.Ins) }
    cur = a.TransferTerm(cur, bb.Term, loc)
    res.at[loc] = cur
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        cur = a.TransferStmt(cur, bb.Ins[i], Location { Block: id, Index: i })
        res.at[Location { Block: id, Index: i }] = cur
    }

    /* propagate upward only on change */
    if old, ok := res.out[id]; !ok || !old.Equal(cur) {
        res.out[id] = cur
        for _, p := range preds[id] {
            enq(p)
        }
    }
}

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
    `github.com/oleiade/lane`
)

// Loop is one natural loop: the blocks closing a single back edge
// (Latch -> Header) without passing through the header from outside.
type Loop struct {
    Header    int
    Latch     int
    Blocks    map[int]bool
    Parent    *Loop
    Children  []*Loop
    Depth     int
    Preheader int
    Exits     []int
}

func (self *Loop) Contains(id int) bool {
    return self.Blocks[id]
}

// BlockIds returns the loop body in ascending block order.
func (self *Loop) BlockIds() []int {
    ret := make([]int, 0, len(self.Blocks))
    for id := range self.Blocks {
        ret = append(ret, id)
    }
    sort.Ints(ret)
    return ret
}

// LoopForest is every natural loop of a function, nested by block-set
// inclusion.
type LoopForest struct {
    Loops []*Loop
    Dom   *mir.DominatorTree
}

// BuildLoopForest runs the whole loop-discovery state machine:
// dominance, back edges, natural loops, nesting, preheaders and
// exits.
func BuildLoopForest(fn *mir.Function) *LoopForest {
    dom := mir.BuildDominatorTree(fn)

    /* Step 1: one natural loop per back edge */
    var loops []*Loop
    for _, e := range dom.BackEdges(fn) {
        loops = append(loops, &Loop {
            Header    : e[1],
            Latch     : e[0],
            Blocks    : naturalLoop(fn, e[0], e[1]),
            Preheader : mir.NoBlock,
        })
    }

    /* deterministic order: by header, then latch */
    sort.Slice(loops, func(i int, j int) bool {
        if loops[i].Header != loops[j].Header {
            return loops[i].Header < loops[j].Header
        }
        return loops[i].Latch < loops[j].Latch
    })

    /* Step 2: nest each loop under its smallest strict superset */
    for _, lp := range loops {
        for _, outer := range loops {
            if outer != lp && strictSuperset(outer.Blocks, lp.Blocks) {
                if lp.Parent == nil || strictSuperset(lp.Parent.Blocks, outer.Blocks) {
                    lp.Parent = outer
                }
            }
        }
    }
    for _, lp := range loops {
        if lp.Parent != nil {
            lp.Parent.Children = append(lp.Parent.Children, lp)
        }
    }
    for _, lp := range loops {
        for p := lp.Parent; p != nil; p = p.Parent {
            lp.Depth++
        }
    }

    /* Step 3: preheaders and exits */
    for _, lp := range loops {
        lp.Preheader = findPreheader(fn, lp)
        lp.Exits = findExits(fn, lp)
    }

    return &LoopForest { Loops: loops, Dom: dom }
}

// naturalLoop collects {head} plus every block reaching the tail by a
// backward search that never crosses the head.
func naturalLoop(fn *mir.Function, tail int, head int) map[int]bool {
    body := map[int]bool { head: true }
    stk := lane.NewStack()

    if !body[tail] {
        body[tail] = true
        stk.Push(tail)
    }

    preds := fn.PredecessorMap()
    for !stk.Empty() {
        id := stk.Pop().(int)
        for _, p := range preds[id] {
            if !body[p] {
                body[p] = true
                stk.Push(p)
            }
        }
    }
    return body
}

func strictSuperset(a map[int]bool, b map[int]bool) bool {
    if len(a) <= len(b) {
        return false
    }
    for id := range b {
        if !a[id] {
            return false
        }
    }
    return true
}

// findPreheader returns the header's unique predecessor outside the
// loop, NoBlock when the header has several entering edges.
func findPreheader(fn *mir.Function, lp *Loop) int {
    outside := mir.NoBlock
    for _, p := range fn.Predecessors(lp.Header) {
        if lp.Contains(p) {
            continue
        }
        if outside != mir.NoBlock {
            return mir.NoBlock
        }
        outside = p
    }
    return outside
}

// findExits returns the loop-internal blocks with a successor outside
// the loop, in ascending order.
func findExits(fn *mir.Function, lp *Loop) []int {
    var ret []int
    for _, id := range lp.BlockIds() {
        for _, succ := range fn.Blocks[id].Successors() {
            if !lp.Contains(succ) {
                ret = append(ret, id)
                break
            }
        }
    }
    return ret
}

// InnermostFirst returns the loops ordered deepest first, so that
// transforms see inner loops before their enclosing ones.
func (self *LoopForest) InnermostFirst() []*Loop {
    ret := append([]*Loop(nil), self.Loops...)
    sort.SliceStable(ret, func(i int, j int) bool {
        return ret[i].Depth > ret[j].Depth
    })
    return ret
}

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
    `sort`
)

// DominatorTree carries the full dominance relation of one function:
// per-block dominator sets, immediate dominators and the tree edges.
// The full sets are kept because loop detection tests membership
// directly.
type DominatorTree struct {
    Entry    int
    doms     map[int]map[int]bool
    idom     map[int]int
    children map[int][]int
}

// BuildDominatorTree computes dominance over every reachable block.
func BuildDominatorTree(fn *Function) *DominatorTree {
    reach := fn.Reachable()
    preds := fn.PredecessorMap()
    order := fn.ReversePostOrder()

    /* Step 1: the entry dominates only itself, everything else
     *         starts at the full block set */
    doms := make(map[int]map[int]bool, len(reach))
    for id := range reach {
        if id == fn.Entry {
            doms[id] = map[int]bool { id: true }
        } else {
            all := make(map[int]bool, len(reach))
            for b := range reach {
                all[b] = true
            }
            doms[id] = all
        }
    }

    /* Step 2: refine to the fixed point, dom(b) = {b} ∪ ⋂ dom(p)
     *         over reachable predecessors p */
    for {
        done := true
        for _, id := range order {
            if id == fn.Entry {
                continue
            }
            next := intersectDoms(doms, preds[id], reach)
            next[id] = true
            if !sameIntSet(next, doms[id]) {
                doms[id] = next
                done = false
            }
        }
        if done {
            break
        }
    }

    /* Step 3: the strict dominators of a block form a chain, so the
     *         immediate dominator is the one with the largest set */
    idom := make(map[int]int, len(reach))
    children := make(map[int][]int)
    for id := range reach {
        idom[id] = NoBlock
        if id == fn.Entry {
            continue
        }
        best := NoBlock
        for d := range doms[id] {
            if d == id {
                continue
            }
            if best == NoBlock || len(doms[d]) > len(doms[best]) {
                best = d
            }
        }
        idom[id] = best
        if best != NoBlock {
            children[best] = append(children[best], id)
        }
    }
    for id := range children {
        sort.Ints(children[id])
    }

    return &DominatorTree {
        Entry    : fn.Entry,
        doms     : doms,
        idom     : idom,
        children : children,
    }
}

func intersectDoms(doms map[int]map[int]bool, preds []int, reach map[int]bool) map[int]bool {
    var live []int
    for _, p := range preds {
        if reach[p] {
            live = append(live, p)
        }
    }
    ret := make(map[int]bool)
    if len(live) == 0 {
        return ret
    }
    for d := range doms[live[0]] {
        ret[d] = true
    }
    for _, p := range live[1:] {
        for d := range ret {
            if !doms[p][d] {
                delete(ret, d)
            }
        }
    }
    return ret
}

func sameIntSet(a map[int]bool, b map[int]bool) bool {
    if len(a) != len(b) {
        return false
    }
    for k := range a {
        if !b[k] {
            return false
        }
    }
    return true
}

// Dominates reports whether a dominates b. Every block dominates
// itself.
func (self *DominatorTree) Dominates(a int, b int) bool {
    return self.doms[b][a]
}

// Idom returns the immediate dominator, NoBlock for the entry and for
// unreachable blocks.
func (self *DominatorTree) Idom(id int) int {
    if d, ok := self.idom[id]; ok {
        return d
    }
    return NoBlock
}

// Children returns the dominance-tree children in ascending order.
func (self *DominatorTree) Children(id int) []int {
    return self.children[id]
}

// Dominators returns the sorted dominator set of a block.
func (self *DominatorTree) Dominators(id int) []int {
    ret := make([]int, 0, len(self.doms[id]))
    for d := range self.doms[id] {
        ret = append(ret, d)
    }
    sort.Ints(ret)
    return ret
}

// BackEdges returns every edge (tail, head) where the head dominates
// the tail, in deterministic order.
func (self *DominatorTree) BackEdges(fn *Function) [][2]int {
    var ret [][2]int
    for _, tail := range fn.BlockIds() {
        if _, ok := self.doms[tail]; !ok {
            continue
        }
        for _, head := range fn.Blocks[tail].Successors() {
            if self.doms[tail][head] {
                ret = append(ret, [2]int { tail, head })
            }
        }
    }
    return ret
}

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

    `github.com/oleiade/lane`
)

// Successors returns the successor block ids of a block, derived
// purely from its terminator.
func (self *BasicBlock) Successors() []int {
    if self.Term == nil {
        return nil
    }
    return self.Term.Successors()
}

// Predecessors returns the sorted predecessor ids of a block.
func (self *Function) Predecessors(id int) []int {
    var ret []int
    for _, bid := range self.BlockIds() {
        for _, succ := range self.Blocks[bid].Successors() {
            if succ == id {
                ret = append(ret, bid)
                break
            }
        }
    }
    sort.Ints(ret)
    return ret
}

// PredecessorMap computes the full predecessor relation in one scan.
func (self *Function) PredecessorMap() map[int][]int {
    ret := make(map[int][]int, len(self.Blocks))
    for _, bid := range self.BlockIds() {
        seen := make(map[int]bool)
        for _, succ := range self.Blocks[bid].Successors() {
            if !seen[succ] {
                seen[succ] = true
                ret[succ] = append(ret[succ], bid)
            }
        }
    }
    return ret
}

// Reachable returns the set of block ids reachable from the entry.
func (self *Function) Reachable() map[int]bool {
    ret := make(map[int]bool, len(self.Blocks))
    buf := lane.NewQueue()

    /* seed from the entry block */
    if _, ok := self.Blocks[self.Entry]; ok {
        ret[self.Entry] = true
        buf.Enqueue(self.Entry)
    }

    /* forward worklist over terminator edges */
    for !buf.Empty() {
        id := buf.Dequeue().(int)
        for _, succ := range self.Blocks[id].Successors() {
            if _, ok := self.Blocks[succ]; ok && !ret[succ] {
                ret[succ] = true
                buf.Enqueue(succ)
            }
        }
    }
    return ret
}

// DFS walks every reachable block in depth-first pre-order.
func (self *Function) DFS(visit func(*BasicBlock)) {
    vis := make(map[int]bool, len(self.Blocks))
    stk := lane.NewStack()

    /* handle empty functions */
    if _, ok := self.Blocks[self.Entry]; !ok {
        return
    }

    /* push the entry block */
    vis[self.Entry] = true
    stk.Push(self.Blocks[self.Entry])

    /* visit every block */
    for !stk.Empty() {
        bb := stk.Pop().(*BasicBlock)
        visit(bb)

        /* push successors in reverse for natural left-to-right order */
        succ := bb.Successors()
        for i := len(succ) - 1; i >= 0; i-- {
            if nx, ok := self.Blocks[succ[i]]; ok && !vis[succ[i]] {
                vis[succ[i]] = true
                stk.Push(nx)
            }
        }
    }
}

// PostOrder walks every reachable block in depth-first post-order.
func (self *Function) PostOrder(visit func(*BasicBlock)) {
    vis := make(map[int]bool, len(self.Blocks))
    self.postorder(self.Entry, vis, visit)
}

func (self *Function) postorder(id int, vis map[int]bool, visit func(*BasicBlock)) {
    bb, ok := self.Blocks[id]
    if !ok || vis[id] {
        return
    }
    vis[id] = true
    for _, succ := range bb.Successors() {
        self.postorder(succ, vis, visit)
    }
    visit(bb)
}

// ReversePostOrder returns reachable block ids in reverse post-order,
// the canonical iteration order for forward dataflow.
func (self *Function) ReversePostOrder() []int {
    var po []int
    self.PostOrder(func(bb *BasicBlock) { po = append(po, bb.Id) })
    for i, j := 0, len(po) - 1; i < j; i, j = i + 1, j - 1 {
        po[i], po[j] = po[j], po[i]
    }
    return po
}

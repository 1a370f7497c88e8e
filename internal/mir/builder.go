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
    `fmt`
)

// Builder constructs one Function at a time. Block and local ids are
// dense non-negative integers handed out by per-function counters, so
// cross-function construction never shares state.
type Builder struct {
    fn     *Function
    active int
    nextbb int
    nextlc int
    scopes [][]int
}

func NewBuilder() *Builder {
    return &Builder { active: NoBlock }
}

// StartFunction begins a new function: parameters are registered as
// the first locals, a return local is allocated when the return type
// is not unit, and a fresh entry block becomes active.
func (self *Builder) StartFunction(name string, params []Parameter, ret *Type) *Function {
    self.fn     = NewFunction(name, ret)
    self.nextbb = 0
    self.nextlc = 0
    self.scopes = self.scopes[:0]

    /* parameters occupy the first local ids */
    for i := range params {
        params[i].Local = self.NewLocal(params[i].Ty, false, nil)
    }
    self.fn.Params = params

    /* functions returning a value get a dedicated return local */
    if ret != nil && ret.Kind != TypeUnit {
        self.fn.ReturnLocal = self.NewLocal(ret, true, nil)
    }

    /* the entry block is created eagerly and made active */
    self.fn.Entry = self.NewBlock()
    self.active   = self.fn.Entry
    return self.fn
}

// NewLocal allocates a fresh local id.
func (self *Builder) NewLocal(ty *Type, mutable bool, info *SourceInfo) int {
    id := self.nextlc
    self.nextlc++
    self.fn.Locals[id] = &Local { Ty: ty, Mutable: mutable, Info: info }

    /* track scope membership for StorageDead emission */
    if n := len(self.scopes); n > 0 {
        self.scopes[n - 1] = append(self.scopes[n - 1], id)
    }
    return id
}

// NewBlock allocates a fresh block with an Unreachable placeholder
// terminator. The block does not become active.
func (self *Builder) NewBlock() int {
    id := self.nextbb
    self.nextbb++
    self.fn.Blocks[id] = &BasicBlock { Id: id, Term: &Unreachable{} }
    return id
}

// SwitchTo makes a block the target of subsequent Push / SetTerm.
func (self *Builder) SwitchTo(id int) {
    if _, ok := self.fn.Blocks[id]; !ok {
        panic(fmt.Sprintf("mir: switch to undefined block bb_%d", id))
    }
    self.active = id
}

// Active returns the block currently under construction.
func (self *Builder) Active() int {
    return self.active
}

// Push appends a statement to the active block.
func (self *Builder) Push(s Stmt) {
    bb := self.fn.Blocks[self.active]
    bb.Ins = append(bb.Ins, s)
}

// SetTerm sets the active block's terminator.
func (self *Builder) SetTerm(t Terminator) {
    self.fn.Blocks[self.active].Term = t
}

// PushScope opens a lexical scope for locals declared afterwards.
func (self *Builder) PushScope() {
    self.scopes = append(self.scopes, nil)
}

// PopScope closes the innermost scope, emitting StorageDead for every
// local it declared, in reverse declaration order.
func (self *Builder) PopScope() {
    n := len(self.scopes)
    if n == 0 {
        panic("mir: scope pop without a matching push")
    }
    ids := self.scopes[n - 1]
    self.scopes = self.scopes[:n - 1]
    for i := len(ids) - 1; i >= 0; i-- {
        self.Push(&StorageDead { Local: ids[i] })
    }
}

// FinishFunction ends construction, verifying that every reachable
// block was given a real terminator.
func (self *Builder) FinishFunction() (*Function, error) {
    fn := self.fn
    for id := range fn.Reachable() {
        if _, ok := fn.Blocks[id].Term.(*Unreachable); ok {
            return nil, fmt.Errorf("mir: function %q: block bb_%d has no terminator", fn.Name, id)
        }
    }
    self.fn     = nil
    self.active = NoBlock
    return fn, nil
}

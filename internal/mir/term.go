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
    `strings`
)

// Terminator is the single control transfer closing a basic block.
type Terminator interface {
    fmt.Stringer
    term()

    // Successors returns every block id this terminator may transfer
    // control to, in a deterministic order.
    Successors() []int

    // RetargetBlocks rewrites every block reference in place through
    // the mapping function.
    RetargetBlocks(fn func(int) int)

    // CloneTerm returns a deep copy sharing no mutable state.
    CloneTerm() Terminator
}

// SwitchTargets is the edge set of a SwitchInt: value i transfers to
// Blocks[i], everything else to Otherwise.
type SwitchTargets struct {
    Values    []Int128
    Blocks    []int
    Otherwise int
}

// AllTargets returns every target block including the fallback.
func (self *SwitchTargets) AllTargets() []int {
    return append(append([]int(nil), self.Blocks...), self.Otherwise)
}

// TargetFor returns the block a constant discriminant transfers to.
func (self *SwitchTargets) TargetFor(v Int128) int {
    for i, val := range self.Values {
        if val == v {
            return self.Blocks[i]
        }
    }
    return self.Otherwise
}

type AssertKind uint8

const (
    AssertBoundsCheck AssertKind = iota
    AssertOverflow
    AssertDivByZero
    AssertRemByZero
)

func (self AssertKind) String() string {
    switch self {
        case AssertBoundsCheck : return "index out of bounds"
        case AssertOverflow    : return "arithmetic overflow"
        case AssertDivByZero   : return "division by zero"
        case AssertRemByZero   : return "remainder by zero"
        default                : panic("mir: invalid assert kind")
    }
}

type (
    Goto        struct { Target int }
    SwitchInt   struct { Disc Operand; Ty *Type; Targets SwitchTargets }
    Return      struct{}
    Unreachable struct{}
    CallTerm    struct { Func string; Args []Operand; Dest *Place; Target int; Cleanup int }
    Drop        struct { Place Place; Target int; Unwind int }
    Assert      struct { Cond Operand; Expected bool; Msg AssertKind; Target int; Cleanup int }
)

func (*Goto)        term() {}
func (*SwitchInt)   term() {}
func (*Return)      term() {}
func (*Unreachable) term() {}
func (*CallTerm)    term() {}
func (*Drop)        term() {}
func (*Assert)      term() {}

func (self *Goto) Successors() []int { return []int { self.Target } }
func (*Return)    Successors() []int { return nil }
func (*Unreachable) Successors() []int { return nil }

func (self *SwitchInt) Successors() []int {
    return self.Targets.AllTargets()
}

func (self *CallTerm) Successors() []int {
    var ret []int
    if self.Target != NoBlock {
        ret = append(ret, self.Target)
    }
    if self.Cleanup != NoBlock {
        ret = append(ret, self.Cleanup)
    }
    return ret
}

func (self *Drop) Successors() []int {
    ret := []int { self.Target }
    if self.Unwind != NoBlock {
        ret = append(ret, self.Unwind)
    }
    return ret
}

func (self *Assert) Successors() []int {
    ret := []int { self.Target }
    if self.Cleanup != NoBlock {
        ret = append(ret, self.Cleanup)
    }
    return ret
}

func (self *Goto) RetargetBlocks(fn func(int) int) { self.Target = fn(self.Target) }
func (*Return)    RetargetBlocks(func(int) int)    {}
func (*Unreachable) RetargetBlocks(func(int) int)  {}

func (self *SwitchInt) RetargetBlocks(fn func(int) int) {
    for i, b := range self.Targets.Blocks {
        self.Targets.Blocks[i] = fn(b)
    }
    self.Targets.Otherwise = fn(self.Targets.Otherwise)
}

func (self *CallTerm) RetargetBlocks(fn func(int) int) {
    if self.Target != NoBlock {
        self.Target = fn(self.Target)
    }
    if self.Cleanup != NoBlock {
        self.Cleanup = fn(self.Cleanup)
    }
}

func (self *Drop) RetargetBlocks(fn func(int) int) {
    self.Target = fn(self.Target)
    if self.Unwind != NoBlock {
        self.Unwind = fn(self.Unwind)
    }
}

func (self *Assert) RetargetBlocks(fn func(int) int) {
    self.Target = fn(self.Target)
    if self.Cleanup != NoBlock {
        self.Cleanup = fn(self.Cleanup)
    }
}

func (self *Goto)      CloneTerm() Terminator { return &Goto { Target: self.Target } }
func (*Return)         CloneTerm() Terminator { return &Return{} }
func (*Unreachable)    CloneTerm() Terminator { return &Unreachable{} }

func (self *SwitchInt) CloneTerm() Terminator {
    return &SwitchInt {
        Disc : self.Disc.Clone(),
        Ty   : self.Ty,
        Targets : SwitchTargets {
            Values    : append([]Int128(nil), self.Targets.Values...),
            Blocks    : append([]int(nil), self.Targets.Blocks...),
            Otherwise : self.Targets.Otherwise,
        },
    }
}

func (self *CallTerm) CloneTerm() Terminator {
    r := &CallTerm {
        Func    : self.Func,
        Args    : cloneOperands(self.Args),
        Target  : self.Target,
        Cleanup : self.Cleanup,
    }
    if self.Dest != nil {
        p := self.Dest.Clone()
        r.Dest = &p
    }
    return r
}

func (self *Drop) CloneTerm() Terminator {
    return &Drop { Place: self.Place.Clone(), Target: self.Target, Unwind: self.Unwind }
}

func (self *Assert) CloneTerm() Terminator {
    return &Assert {
        Cond     : self.Cond.Clone(),
        Expected : self.Expected,
        Msg      : self.Msg,
        Target   : self.Target,
        Cleanup  : self.Cleanup,
    }
}

func (self *Goto)      String() string { return fmt.Sprintf("goto -> bb_%d", self.Target) }
func (*Return)         String() string { return "return" }
func (*Unreachable)    String() string { return "unreachable" }

func (self *SwitchInt) String() string {
    buf := make([]string, 0, len(self.Targets.Values) + 1)
    for i, v := range self.Targets.Values {
        buf = append(buf, fmt.Sprintf("%s: bb_%d", v, self.Targets.Blocks[i]))
    }
    buf = append(buf, fmt.Sprintf("otherwise: bb_%d", self.Targets.Otherwise))
    return fmt.Sprintf("switchInt(%s) -> [%s]", self.Disc, strings.Join(buf, ", "))
}

func (self *CallTerm) String() string {
    s := fmt.Sprintf("%s(%s)", self.Func, operandsrepr(self.Args))
    if self.Dest != nil {
        s = self.Dest.String() + " = " + s
    }
    if self.Target != NoBlock {
        s += fmt.Sprintf(" -> bb_%d", self.Target)
    }
    return s
}

func (self *Drop) String() string {
    return fmt.Sprintf("drop(%s) -> bb_%d", self.Place, self.Target)
}

func (self *Assert) String() string {
    return fmt.Sprintf("assert(%s == %v, %q) -> bb_%d", self.Cond, self.Expected, self.Msg.String(), self.Target)
}

// TermOperands returns the operand leaves a terminator reads.
func TermOperands(t Terminator) []Operand {
    switch v := t.(type) {
        case *SwitchInt : return []Operand { v.Disc }
        case *CallTerm  : return append([]Operand(nil), v.Args...)
        case *Drop      : return []Operand { Copy(v.Place) }
        case *Assert    : return []Operand { v.Cond }
        default         : return nil
    }
}

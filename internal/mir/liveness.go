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
    `strconv`
    `strings`
)

// LocalSet is the lattice element for set-of-locals analyses, joined
// by union.
type LocalSet map[int]bool

func (self LocalSet) Equal(other Fact) bool {
    rhs, ok := other.(LocalSet)
    if !ok || len(self) != len(rhs) {
        return false
    }
    for id := range self {
        if !rhs[id] {
            return false
        }
    }
    return true
}

func (self LocalSet) Clone() Fact {
    ret := make(LocalSet, len(self))
    for id := range self {
        ret[id] = true
    }
    return ret
}

func (self LocalSet) Contains(id int) bool {
    return self[id]
}

func (self LocalSet) Sorted() []int {
    ret := make([]int, 0, len(self))
    for id := range self {
        ret = append(ret, id)
    }
    sort.Ints(ret)
    return ret
}

func (self LocalSet) String() string {
    buf := make([]string, 0, len(self))
    for _, id := range self.Sorted() {
        buf = append(buf, "_" + strconv.Itoa(id))
    }
    return "{" + strings.Join(buf, ", ") + "}"
}

// Liveness is the canonical backward problem: a local is live at a
// point when some path from that point reads it before redefining it.
type Liveness struct {
    fn *Function
}

func NewLiveness(fn *Function) *Liveness {
    return &Liveness { fn: fn }
}

func (*Liveness) Direction() Direction { return Backward }

func (*Liveness) Initial(*Function) Fact {
    return make(LocalSet)
}

func (*Liveness) Join(facts []Fact) Fact {
    ret := make(LocalSet)
    for _, f := range facts {
        for id := range f.(LocalSet) {
            ret[id] = true
        }
    }
    return ret
}

// TransferStmt kills the assigned local, then adds every local the
// statement reads.
func (*Liveness) TransferStmt(in Fact, s Stmt, _ Location) Fact {
    cur := in.Clone().(LocalSet)
    if id, ok := StmtWrites(s); ok {
        delete(cur, id)
    }
    for _, id := range StmtReads(s) {
        cur[id] = true
    }
    return cur
}

// TransferTerm adds every local the terminator reads; returning makes
// the return local live.
func (self *Liveness) TransferTerm(in Fact, t Terminator, _ Location) Fact {
    cur := in.Clone().(LocalSet)
    if v, ok := t.(*CallTerm); ok && v.Dest != nil && v.Dest.IsLocal() {
        delete(cur, v.Dest.Local)
    }
    if _, ok := t.(*Return); ok && self.fn.ReturnLocal != NoLocal {
        cur[self.fn.ReturnLocal] = true
    }
    for _, id := range TermReads(t) {
        cur[id] = true
    }
    return cur
}

// LiveLocals runs liveness and returns the results.
func LiveLocals(fn *Function) *DataflowResults {
    return RunAnalysis(fn, NewLiveness(fn))
}

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

// Def identifies one definition of a local by its program point.
type Def struct {
    Local int
    Loc   Location
}

// DefSet is the lattice element for reaching definitions, joined by
// union.
type DefSet map[Def]bool

func (self DefSet) Equal(other Fact) bool {
    rhs, ok := other.(DefSet)
    if !ok || len(self) != len(rhs) {
        return false
    }
    for d := range self {
        if !rhs[d] {
            return false
        }
    }
    return true
}

func (self DefSet) Clone() Fact {
    ret := make(DefSet, len(self))
    for d := range self {
        ret[d] = true
    }
    return ret
}

// DefsOf returns every definition of one local in the set.
func (self DefSet) DefsOf(id int) []Def {
    var ret []Def
    for d := range self {
        if d.Local == id {
            ret = append(ret, d)
        }
    }
    return ret
}

// ReachingDefs is the canonical forward problem: which definitions of
// each local may still be current at a point. An assignment kills all
// prior definitions of its local and adds its own.
type ReachingDefs struct{}

func (*ReachingDefs) Direction() Direction { return Forward }

func (*ReachingDefs) Initial(*Function) Fact {
    return make(DefSet)
}

func (*ReachingDefs) Join(facts []Fact) Fact {
    ret := make(DefSet)
    for _, f := range facts {
        for d := range f.(DefSet) {
            ret[d] = true
        }
    }
    return ret
}

func (*ReachingDefs) TransferStmt(in Fact, s Stmt, loc Location) Fact {
    id, ok := StmtWrites(s)
    if !ok {
        return in
    }
    cur := in.Clone().(DefSet)
    for d := range cur {
        if d.Local == id {
            delete(cur, d)
        }
    }
    cur[Def { Local: id, Loc: loc }] = true
    return cur
}

func (*ReachingDefs) TransferTerm(in Fact, t Terminator, loc Location) Fact {
    v, ok := t.(*CallTerm)
    if !ok || v.Dest == nil || !v.Dest.IsLocal() {
        return in
    }
    cur := in.Clone().(DefSet)
    for d := range cur {
        if d.Local == v.Dest.Local {
            delete(cur, d)
        }
    }
    cur[Def { Local: v.Dest.Local, Loc: loc }] = true
    return cur
}

// ReachingDefinitions runs reaching definitions and returns the
// results.
func ReachingDefinitions(fn *Function) *DataflowResults {
    return RunAnalysis(fn, new(ReachingDefs))
}

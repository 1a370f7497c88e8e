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

// StmtReads returns every local a statement reads. An assignment to a
// projected place reads the projection base as well as the rvalue
// operands.
func StmtReads(s Stmt) []int {
    var ret []int
    switch v := s.(type) {
        case *Assign: {
            for _, op := range v.Rvalue.Operands() {
                ret = append(ret, op.ReadLocals()...)
            }
            if !v.Place.IsLocal() {
                ret = append(ret, v.Place.Local)
                ret = append(ret, v.Place.IndexLocals()...)
            }
        }
    }
    return ret
}

// StmtWrites returns the local an assignment defines, valid only when
// the place is the bare local (a projected store mutates through the
// base instead of redefining it).
func StmtWrites(s Stmt) (int, bool) {
    if v, ok := s.(*Assign); ok && v.Place.IsLocal() {
        return v.Place.Local, true
    }
    return NoLocal, false
}

// StmtRefLocals returns every local a statement mentions at all,
// including storage markers. Used for validation and use counting.
func StmtRefLocals(s Stmt) []int {
    switch v := s.(type) {
        case *Assign      : return append(StmtReads(s), v.Place.Local)
        case *StorageLive : return []int { v.Local }
        case *StorageDead : return []int { v.Local }
        default           : return nil
    }
}

// TermReads returns every local a terminator reads.
func TermReads(t Terminator) []int {
    var ret []int
    for _, op := range TermOperands(t) {
        ret = append(ret, op.ReadLocals()...)
    }
    if v, ok := t.(*CallTerm); ok && v.Dest != nil && !v.Dest.IsLocal() {
        ret = append(ret, v.Dest.Local)
        ret = append(ret, v.Dest.IndexLocals()...)
    }
    return ret
}

// TermRefLocals returns every local a terminator mentions, including
// the call destination.
func TermRefLocals(t Terminator) []int {
    ret := TermReads(t)
    if v, ok := t.(*CallTerm); ok && v.Dest != nil {
        ret = append(ret, v.Dest.Local)
    }
    return ret
}

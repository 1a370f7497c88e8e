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

// Local and block remapping for splicing one function's body into
// another numbering space. All remappers mutate in place and are only
// safe on freshly cloned nodes.

func remapPlace(p *Place, fn func(int) int) {
    p.Local = fn(p.Local)
    for i := range p.Proj {
        if p.Proj[i].Kind == ProjIndex {
            p.Proj[i].Index = fn(p.Proj[i].Index)
        }
    }
}

func remapOperand(op *Operand, fn func(int) int) {
    if op.Kind != OperandConst {
        remapPlace(&op.Place, fn)
    }
}

func remapRvalue(rv Rvalue, fn func(int) int) {
    switch v := rv.(type) {
        case *Use: {
            remapOperand(&v.X, fn)
        }
        case *BinaryOp: {
            remapOperand(&v.L, fn)
            remapOperand(&v.R, fn)
        }
        case *UnaryOp: {
            remapOperand(&v.X, fn)
        }
        case *Call: {
            for i := range v.Args {
                remapOperand(&v.Args[i], fn)
            }
        }
        case *Aggregate: {
            for i := range v.Elems {
                remapOperand(&v.Elems[i], fn)
            }
        }
        case *Cast: {
            remapOperand(&v.X, fn)
        }
        case *Ref: {
            remapPlace(&v.Place, fn)
        }
        case *Len: {
            remapPlace(&v.Place, fn)
        }
        case *Discriminant: {
            remapPlace(&v.Place, fn)
        }
    }
}

// RemapStmtLocals rewrites every local reference in a statement.
func RemapStmtLocals(s Stmt, fn func(int) int) {
    switch v := s.(type) {
        case *Assign: {
            remapPlace(&v.Place, fn)
            remapRvalue(v.Rvalue, fn)
        }
        case *StorageLive: {
            v.Local = fn(v.Local)
        }
        case *StorageDead: {
            v.Local = fn(v.Local)
        }
    }
}

// RemapTermLocals rewrites every local reference in a terminator.
func RemapTermLocals(t Terminator, fn func(int) int) {
    switch v := t.(type) {
        case *SwitchInt: {
            remapOperand(&v.Disc, fn)
        }
        case *CallTerm: {
            for i := range v.Args {
                remapOperand(&v.Args[i], fn)
            }
            if v.Dest != nil {
                remapPlace(v.Dest, fn)
            }
        }
        case *Drop: {
            remapPlace(&v.Place, fn)
        }
        case *Assert: {
            remapOperand(&v.Cond, fn)
        }
    }
}

// NextLocalId returns one past the highest allocated local id.
func (self *Function) NextLocalId() int {
    next := 0
    for id := range self.Locals {
        if id >= next {
            next = id + 1
        }
    }
    return next
}

// NextBlockId returns one past the highest allocated block id.
func (self *Function) NextBlockId() int {
    next := 0
    for id := range self.Blocks {
        if id >= next {
            next = id + 1
        }
    }
    return next
}

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
    `github.com/aerislang/aeris/internal/mir`
)

// BasicIV is a local advanced by a constant step inside the loop,
// the pattern "x = x + c".
type BasicIV struct {
    Local int
    Step  mir.Int128
    Block int
    Index int
}

// DerivedIV is a local computed affinely from a basic induction
// variable: "y = x * c" (multiplier c) or "y = x + c" (offset c).
type DerivedIV struct {
    Local      int
    Base       int
    Multiplier mir.Int128
    Offset     mir.Int128
    Block      int
    Index      int
}

// FindBasicIVs scans the loop body for constant-step self updates. A
// local updated more than once in the loop is not a usable induction
// variable and is dropped.
func FindBasicIVs(fn *mir.Function, lp *Loop) []BasicIV {
    var ret []BasicIV
    seen := make(map[int]int)

    for _, bid := range lp.BlockIds() {
        bb := fn.Blocks[bid]
        for i, s := range bb.Ins {
            v, ok := s.(*mir.Assign)
            if !ok || !v.Place.IsLocal() {
                continue
            }
            if step, ok := selfStep(v); ok {
                seen[v.Place.Local]++
                ret = append(ret, BasicIV { Local: v.Place.Local, Step: step, Block: bid, Index: i })
            } else {
                /* any other assignment disqualifies the local */
                seen[v.Place.Local] += 2
            }
        }
    }

    out := ret[:0]
    for _, iv := range ret {
        if seen[iv.Local] == 1 {
            out = append(out, iv)
        }
    }
    return out
}

// selfStep matches "x = x + c" with the constant on either side.
func selfStep(v *mir.Assign) (mir.Int128, bool) {
    bin, ok := v.Rvalue.(*mir.BinaryOp)
    if !ok || bin.Op != mir.OpAdd {
        return mir.Int128{}, false
    }
    x := v.Place.Local
    switch {
        case readsLocal(bin.L, x) && isIntConst(bin.R) : return bin.R.Const.I, true
        case readsLocal(bin.R, x) && isIntConst(bin.L) : return bin.L.Const.I, true
        default                                        : return mir.Int128{}, false
    }
}

// FindDerivedIVs scans for affine functions of the basic induction
// variables.
func FindDerivedIVs(fn *mir.Function, lp *Loop, basics []BasicIV) []DerivedIV {
    base := make(map[int]bool, len(basics))
    for _, iv := range basics {
        base[iv.Local] = true
    }

    var ret []DerivedIV
    for _, bid := range lp.BlockIds() {
        bb := fn.Blocks[bid]
        for i, s := range bb.Ins {
            v, ok := s.(*mir.Assign)
            if !ok || !v.Place.IsLocal() || base[v.Place.Local] {
                continue
            }
            bin, ok := v.Rvalue.(*mir.BinaryOp)
            if !ok {
                continue
            }
            if b, c, ok := affineOperands(bin, base); ok {
                switch bin.Op {
                    case mir.OpMul: {
                        ret = append(ret, DerivedIV {
                            Local      : v.Place.Local,
                            Base       : b,
                            Multiplier : c,
                            Block      : bid,
                            Index      : i,
                        })
                    }
                    case mir.OpAdd: {
                        ret = append(ret, DerivedIV {
                            Local      : v.Place.Local,
                            Base       : b,
                            Multiplier : mir.Int128FromInt64(1),
                            Offset     : c,
                            Block      : bid,
                            Index      : i,
                        })
                    }
                }
            }
        }
    }
    return ret
}

// affineOperands matches one basic-IV operand against one constant.
func affineOperands(bin *mir.BinaryOp, base map[int]bool) (int, mir.Int128, bool) {
    switch {
        case readsAnyBase(bin.L, base) && isIntConst(bin.R) : return bin.L.Place.Local, bin.R.Const.I, true
        case readsAnyBase(bin.R, base) && isIntConst(bin.L) : return bin.R.Place.Local, bin.L.Const.I, true
        default                                             : return 0, mir.Int128{}, false
    }
}

func readsLocal(op mir.Operand, id int) bool {
    return !op.IsConst() && op.Place.IsLocal() && op.Place.Local == id
}

func readsAnyBase(op mir.Operand, base map[int]bool) bool {
    return !op.IsConst() && op.Place.IsLocal() && base[op.Place.Local]
}

func isIntConst(op mir.Operand) bool {
    return op.IsConst() && op.Const.Kind == mir.ConstInt
}

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
    `math`

    `github.com/aerislang/aeris/internal/mir`
)

// ConstFold replaces operations over constant operands with the
// computed constant. Integer arithmetic wraps at 128 bits, shift
// amounts are masked to 6 bits, and division or remainder by a
// constant zero is never folded so the runtime trap is preserved.
type ConstFold struct{}

func (*ConstFold) Name() string {
    return "Constant Folding"
}

func (self *ConstFold) RunOnProgram(p *mir.Program) bool {
    return runOnEachFunction(p, self)
}

func (self *ConstFold) RunOnFunction(fn *mir.Function) bool {
    rt := false
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]

        /* fold statement rvalues */
        for _, ins := range bb.Ins {
            if v, ok := ins.(*mir.Assign); ok {
                if rv, ok := foldRvalue(v.Rvalue); ok {
                    v.Rvalue = rv
                    rt = true
                }
            }
        }

        /* a constant discriminant decides the switch at compile time */
        if sw, ok := bb.Term.(*mir.SwitchInt); ok && sw.Disc.IsConst() && sw.Disc.Const.Kind == mir.ConstInt {
            bb.Term = &mir.Goto { Target: sw.Targets.TargetFor(sw.Disc.Const.I) }
            rt = true
        }
    }
    return rt
}

func foldRvalue(rv mir.Rvalue) (mir.Rvalue, bool) {
    switch v := rv.(type) {
        case *mir.BinaryOp: {
            if v.L.IsConst() && v.R.IsConst() {
                if c, ok := evalBinary(v.Op, v.L.Const, v.R.Const); ok {
                    return &mir.Use { X: mir.Const(c) }, true
                }
            }
        }
        case *mir.UnaryOp: {
            if v.X.IsConst() {
                if c, ok := evalUnary(v.Op, v.X.Const); ok {
                    return &mir.Use { X: mir.Const(c) }, true
                }
            }
        }
    }
    return nil, false
}

func evalBinary(op mir.BinOp, l *mir.Constant, r *mir.Constant) (*mir.Constant, bool) {
    switch {
        case l.Kind == mir.ConstInt   && r.Kind == mir.ConstInt   : return evalIntBinary(op, l.I, r.I)
        case l.Kind == mir.ConstBool  && r.Kind == mir.ConstBool  : return evalBoolBinary(op, l.B, r.B)
        case l.Kind == mir.ConstStr   && r.Kind == mir.ConstStr   : return evalStrBinary(op, l.S, r.S)
        case l.Kind == mir.ConstChar  && r.Kind == mir.ConstChar  : return evalCharBinary(op, l.C, r.C)
        case isNumeric(l) && isNumeric(r)                         : return evalFloatBinary(op, numval(l), numval(r))
        default                                                   : return nil, false
    }
}

func evalIntBinary(op mir.BinOp, l mir.Int128, r mir.Int128) (*mir.Constant, bool) {
    switch op {
        case mir.OpAdd    : return mir.IntConst(l.Add(r)), true
        case mir.OpSub    : return mir.IntConst(l.Sub(r)), true
        case mir.OpMul    : return mir.IntConst(l.Mul(r)), true
        case mir.OpBitXor : return mir.IntConst(l.Xor(r)), true
        case mir.OpBitAnd : return mir.IntConst(l.And(r)), true
        case mir.OpBitOr  : return mir.IntConst(l.Or(r)), true
        case mir.OpShl    : return mir.IntConst(l.Shl(uint(r.Int64()) & 63)), true
        case mir.OpShr    : return mir.IntConst(l.Shr(uint(r.Int64()) & 63)), true
        case mir.OpEq     : return mir.BoolConst(l.Cmp(r) == 0), true
        case mir.OpLt     : return mir.BoolConst(l.Cmp(r) <  0), true
        case mir.OpLe     : return mir.BoolConst(l.Cmp(r) <= 0), true
        case mir.OpNe     : return mir.BoolConst(l.Cmp(r) != 0), true
        case mir.OpGe     : return mir.BoolConst(l.Cmp(r) >= 0), true
        case mir.OpGt     : return mir.BoolConst(l.Cmp(r) >  0), true
        case mir.OpDiv: {
            if r.IsZero() {
                return nil, false
            }
            return mir.IntConst(l.Div(r)), true
        }
        case mir.OpRem: {
            if r.IsZero() {
                return nil, false
            }
            return mir.IntConst(l.Rem(r)), true
        }
        default: {
            return nil, false
        }
    }
}

func evalFloatBinary(op mir.BinOp, l float64, r float64) (*mir.Constant, bool) {
    switch op {
        case mir.OpAdd : return mir.FloatConst(l + r), true
        case mir.OpSub : return mir.FloatConst(l - r), true
        case mir.OpMul : return mir.FloatConst(l * r), true
        case mir.OpEq  : return mir.BoolConst(math.Abs(l - r) < epsilon), true
        case mir.OpNe  : return mir.BoolConst(math.Abs(l - r) >= epsilon), true
        case mir.OpLt  : return mir.BoolConst(l < r), true
        case mir.OpLe  : return mir.BoolConst(l <= r), true
        case mir.OpGe  : return mir.BoolConst(l >= r), true
        case mir.OpGt  : return mir.BoolConst(l > r), true
        case mir.OpDiv: {
            if r == 0 {
                return nil, false
            }
            return mir.FloatConst(l / r), true
        }
        case mir.OpRem: {
            if r == 0 {
                return nil, false
            }
            return mir.FloatConst(math.Mod(l, r)), true
        }
        default: {
            return nil, false
        }
    }
}

func evalBoolBinary(op mir.BinOp, l bool, r bool) (*mir.Constant, bool) {
    switch op {
        case mir.OpBitAnd : return mir.BoolConst(l && r), true
        case mir.OpBitOr  : return mir.BoolConst(l || r), true
        case mir.OpBitXor : return mir.BoolConst(l != r), true
        case mir.OpEq     : return mir.BoolConst(l == r), true
        case mir.OpNe     : return mir.BoolConst(l != r), true
        default           : return nil, false
    }
}

func evalStrBinary(op mir.BinOp, l string, r string) (*mir.Constant, bool) {
    switch op {
        case mir.OpAdd : return mir.StrConst(l + r), true
        case mir.OpEq  : return mir.BoolConst(l == r), true
        case mir.OpNe  : return mir.BoolConst(l != r), true
        default        : return nil, false
    }
}

func evalCharBinary(op mir.BinOp, l rune, r rune) (*mir.Constant, bool) {
    switch op {
        case mir.OpEq : return mir.BoolConst(l == r), true
        case mir.OpNe : return mir.BoolConst(l != r), true
        default       : return nil, false
    }
}

func evalUnary(op mir.UnOp, x *mir.Constant) (*mir.Constant, bool) {
    switch {
        case op == mir.OpNeg && x.Kind == mir.ConstInt   : return mir.IntConst(x.I.Neg()), true
        case op == mir.OpNeg && x.Kind == mir.ConstFloat : return mir.FloatConst(-x.F), true
        case op == mir.OpNot && x.Kind == mir.ConstBool  : return mir.BoolConst(!x.B), true
        case op == mir.OpNot && x.Kind == mir.ConstInt   : return mir.IntConst(x.I.Xor(mir.Int128FromInt64(-1))), true
        default                                          : return nil, false
    }
}

// epsilon is the tolerance for folded float equality.
const epsilon = 2.220446049250313e-16

func isNumeric(c *mir.Constant) bool {
    return c.Kind == mir.ConstInt || c.Kind == mir.ConstFloat
}

// numval widens a numeric constant to float for mixed arithmetic: the
// result type is float whenever either operand is.
func numval(c *mir.Constant) float64 {
    if c.Kind == mir.ConstFloat {
        return c.F
    }
    return float64(c.I.Int64())
}

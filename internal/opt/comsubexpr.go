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
    `fmt`

    `github.com/aerislang/aeris/internal/mir`
)

// ComSubExpr eliminates repeated pure computations within one block:
// the second evaluation of an identical Use / BinaryOp / UnaryOp is
// replaced with a copy of the local that first computed it. Nothing
// propagates across block boundaries.
type ComSubExpr struct{}

// _AvailExpr is one table entry: the local holding the value and the
// locals the expression reads, kept for invalidation.
type _AvailExpr struct {
    local int
    reads map[int]bool
}

func (*ComSubExpr) Name() string {
    return "Common Subexpression Elimination"
}

func (self *ComSubExpr) RunOnProgram(p *mir.Program) bool {
    return runOnEachFunction(p, self)
}

func (self *ComSubExpr) RunOnFunction(fn *mir.Function) bool {
    rt := false
    for _, bid := range fn.BlockIds() {
        if self.runOnBlock(fn.Blocks[bid]) {
            rt = true
        }
    }
    return rt
}

func (self *ComSubExpr) runOnBlock(bb *mir.BasicBlock) bool {
    rt := false
    avail := make(map[string]_AvailExpr)

    for _, s := range bb.Ins {
        switch v := s.(type) {
            case *mir.Assign: {
                if self.visitAssign(v, avail) {
                    rt = true
                }
            }
            case *mir.StorageDead: {
                /* retiring a local kills every expression touching it */
                invalidate(avail, v.Local)
            }
        }
    }
    return rt
}

func (self *ComSubExpr) visitAssign(v *mir.Assign, avail map[string]_AvailExpr) bool {
    key, reads, ok := exprKey(v.Rvalue)

    /* a redefinition kills every expression reading or held by the
     * destination base, including the one being recorded; a store
     * through a projection still clobbers the base local */
    invalidate(avail, v.Place.Local)
    if !v.Place.IsLocal() {
        ok = false
    }

    /* not a pure keyable expression */
    if !ok {
        return false
    }

    /* hit: reuse the first computation; miss: record this one */
    if prev, hit := avail[key]; hit {
        v.Rvalue = &mir.Use { X: mir.CopyLocal(prev.local) }
        return true
    }
    avail[key] = _AvailExpr { local: v.Place.Local, reads: reads }
    return false
}

func invalidate(avail map[string]_AvailExpr, id int) {
    for key, e := range avail {
        if e.local == id || e.reads[id] {
            delete(avail, key)
        }
    }
}

// exprKey builds the value-identity string of a pure rvalue.
// Commutative operators sort their operand representations so that
// "a + b" and "b + a" collide.
func exprKey(rv mir.Rvalue) (string, map[int]bool, bool) {
    switch v := rv.(type) {
        case *mir.Use: {
            if v.X.IsConst() {
                return "", nil, false
            }
            return fmt.Sprintf("(use %s)", operandKey(v.X)), readSet(v.X), true
        }
        case *mir.UnaryOp: {
            return fmt.Sprintf("(%s %s)", v.Op, operandKey(v.X)), readSet(v.X), true
        }
        case *mir.BinaryOp: {
            x := operandKey(v.L)
            y := operandKey(v.R)
            if v.Op.IsCommutative() && y < x {
                x, y = y, x
            }
            return fmt.Sprintf("(%s %s %s)", v.Op, x, y), readSet(v.L, v.R), true
        }
        default: {
            return "", nil, false
        }
    }
}

func operandKey(op mir.Operand) string {
    if op.IsConst() {
        return "#" + op.Const.String()
    }
    return op.Place.String()
}

func readSet(ops ...mir.Operand) map[int]bool {
    ret := make(map[int]bool, len(ops))
    for _, op := range ops {
        for _, id := range op.ReadLocals() {
            ret[id] = true
        }
    }
    return ret
}

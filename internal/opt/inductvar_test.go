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
    `testing`

    `github.com/aerislang/aeris/internal/mir`
    `github.com/stretchr/testify/require`
)

func sumLoopOnly(t *testing.T, n int64, extra ...mir.Stmt) (*mir.Function, *Loop) {
    fn := sumLoop(t, n, extra...)
    forest := BuildLoopForest(fn)
    require.Len(t, forest.Loops, 1)
    return fn, forest.Loops[0]
}

func TestInductVar_Basic(t *testing.T) {
    fn, lp := sumLoopOnly(t, 8)
    basics := FindBasicIVs(fn, lp)
    require.Len(t, basics, 1)
    require.Equal(t, 1, basics[0].Local)
    require.Equal(t, mir.Int128FromInt64(1), basics[0].Step)
    require.Equal(t, 1, basics[0].Block)
}

func TestInductVar_ConstantOnLeft(t *testing.T) {
    fn, lp := sumLoopOnly(t, 8)

    /* flip the update to "_1 = 2 + _1" */
    head := fn.Blocks[lp.Header]
    head.Ins[1] = assign(1, intOp(mir.OpAdd, intConst(2), mir.CopyLocal(1)))

    basics := FindBasicIVs(fn, lp)
    require.Len(t, basics, 1)
    require.Equal(t, mir.Int128FromInt64(2), basics[0].Step)
}

func TestInductVar_DoubleUpdateDisqualifies(t *testing.T) {
    fn, lp := sumLoopOnly(t, 8, assign(1, intOp(mir.OpAdd, mir.CopyLocal(1), intConst(1))))
    require.Empty(t, FindBasicIVs(fn, lp))
}

func TestInductVar_NonConstStepRejected(t *testing.T) {
    fn, lp := sumLoopOnly(t, 8)

    /* "_1 = _1 + _0" has no constant step */
    head := fn.Blocks[lp.Header]
    head.Ins[1] = assign(1, intOp(mir.OpAdd, mir.CopyLocal(1), mir.CopyLocal(0)))

    require.Empty(t, FindBasicIVs(fn, lp))
}

func TestInductVar_Derived(t *testing.T) {
    fn := sumLoop(t, 8)
    forest := BuildLoopForest(fn)
    lp := forest.Loops[0]

    /* inject "_3 = _1 * 4" and "_4 = _1 + 2" into the body */
    y := fn.NextLocalId()
    z := y + 1
    fn.Locals[y] = &mir.Local { Ty: mir.IntType, Mutable: true }
    fn.Locals[z] = &mir.Local { Ty: mir.IntType, Mutable: true }
    head := fn.Blocks[lp.Header]
    head.Ins = append([]mir.Stmt {
        assign(y, intOp(mir.OpMul, mir.CopyLocal(1), intConst(4))),
        assign(z, intOp(mir.OpAdd, intConst(2), mir.CopyLocal(1))),
    }, head.Ins...)

    basics := FindBasicIVs(fn, lp)
    require.Len(t, basics, 1)

    derived := FindDerivedIVs(fn, lp, basics)
    require.Len(t, derived, 2)
    require.Equal(t, y, derived[0].Local)
    require.Equal(t, 1, derived[0].Base)
    require.Equal(t, mir.Int128FromInt64(4), derived[0].Multiplier)
    require.True(t, derived[0].Offset.IsZero())
    require.Equal(t, z, derived[1].Local)
    require.Equal(t, mir.Int128FromInt64(1), derived[1].Multiplier)
    require.Equal(t, mir.Int128FromInt64(2), derived[1].Offset)
}

func TestInductVar_BasicNotDerived(t *testing.T) {
    fn, lp := sumLoopOnly(t, 8)
    basics := FindBasicIVs(fn, lp)

    /* the induction update itself must not show up as derived */
    require.Empty(t, FindDerivedIVs(fn, lp, basics))
}

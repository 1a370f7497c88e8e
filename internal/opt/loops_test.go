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

// nestedLoops builds a two-level counted nest
//
//     bb0: i = 0              ; goto bb1
//     bb1: ci = i < 3         ; switch ci [0 -> bb6, else bb2]
//     bb2: j = 0              ; goto bb3
//     bb3: cj = j < 4         ; switch cj [0 -> bb5, else bb4]
//     bb4: j = j + 1          ; goto bb3
//     bb5: i = i + 1          ; goto bb1
//     bb6: _0 = i             ; return
//
// so the inner loop is {3, 4} and the outer one {1, 2, 3, 4, 5}.
func nestedLoops(t *testing.T) *mir.Function {
    b := mir.NewBuilder()
    fn := b.StartFunction("nest", nil, mir.IntType)

    i := b.NewLocal(mir.IntType, true, nil)
    j := b.NewLocal(mir.IntType, true, nil)
    ci := b.NewLocal(mir.BoolType, false, nil)
    cj := b.NewLocal(mir.BoolType, false, nil)

    outer := b.NewBlock()
    pre := b.NewBlock()
    inner := b.NewBlock()
    body := b.NewBlock()
    latch := b.NewBlock()
    exit := b.NewBlock()

    b.Push(assign(i, &mir.Use { X: intConst(0) }))
    b.SetTerm(&mir.Goto { Target: outer })

    b.SwitchTo(outer)
    b.Push(assign(ci, intOp(mir.OpLt, mir.CopyLocal(i), intConst(3))))
    b.SetTerm(boolSwitch(ci, exit, pre))

    b.SwitchTo(pre)
    b.Push(assign(j, &mir.Use { X: intConst(0) }))
    b.SetTerm(&mir.Goto { Target: inner })

    b.SwitchTo(inner)
    b.Push(assign(cj, intOp(mir.OpLt, mir.CopyLocal(j), intConst(4))))
    b.SetTerm(boolSwitch(cj, latch, body))

    b.SwitchTo(body)
    b.Push(assign(j, intOp(mir.OpAdd, mir.CopyLocal(j), intConst(1))))
    b.SetTerm(&mir.Goto { Target: inner })

    b.SwitchTo(latch)
    b.Push(assign(i, intOp(mir.OpAdd, mir.CopyLocal(i), intConst(1))))
    b.SetTerm(&mir.Goto { Target: outer })

    b.SwitchTo(exit)
    b.Push(assign(fn.ReturnLocal, &mir.Use { X: mir.CopyLocal(i) }))
    b.SetTerm(&mir.Return{})

    ret, err := b.FinishFunction()
    require.NoError(t, err)
    require.Empty(t, mir.Validate(ret))
    return ret
}

func TestLoopForest_NestedDiscovery(t *testing.T) {
    fn := nestedLoops(t)
    forest := BuildLoopForest(fn)
    require.Len(t, forest.Loops, 2)

    /* ordered by header: outer first */
    outer := forest.Loops[0]
    inner := forest.Loops[1]
    require.Equal(t, 1, outer.Header)
    require.Equal(t, 5, outer.Latch)
    require.Equal(t, []int { 1, 2, 3, 4, 5 }, outer.BlockIds())
    require.Equal(t, 3, inner.Header)
    require.Equal(t, 4, inner.Latch)
    require.Equal(t, []int { 3, 4 }, inner.BlockIds())
}

func TestLoopForest_Nesting(t *testing.T) {
    forest := BuildLoopForest(nestedLoops(t))
    outer, inner := forest.Loops[0], forest.Loops[1]

    require.Nil(t, outer.Parent)
    require.Same(t, outer, inner.Parent)
    require.Equal(t, []*Loop { inner }, outer.Children)
    require.Equal(t, 0, outer.Depth)
    require.Equal(t, 1, inner.Depth)

    first := forest.InnermostFirst()
    require.Same(t, inner, first[0])
    require.Same(t, outer, first[1])
}

func TestLoopForest_PreheadersAndExits(t *testing.T) {
    forest := BuildLoopForest(nestedLoops(t))
    outer, inner := forest.Loops[0], forest.Loops[1]

    require.Equal(t, 0, outer.Preheader)
    require.Equal(t, 2, inner.Preheader)
    require.Equal(t, []int { 1 }, outer.Exits)
    require.Equal(t, []int { 3 }, inner.Exits)
}

func TestLoopForest_SelfLoop(t *testing.T) {
    fn := sumLoop(t, 8)
    forest := BuildLoopForest(fn)
    require.Len(t, forest.Loops, 1)

    lp := forest.Loops[0]
    require.Equal(t, 1, lp.Header)
    require.Equal(t, 1, lp.Latch)
    require.Equal(t, []int { 1 }, lp.BlockIds())
    require.Equal(t, 0, lp.Preheader)
    require.Equal(t, []int { 1 }, lp.Exits)
    require.True(t, lp.Contains(1))
    require.False(t, lp.Contains(2))
}

func TestLoopForest_NoLoops(t *testing.T) {
    b := mir.NewBuilder()
    fn := b.StartFunction("line", nil, mir.IntType)
    b.Push(assign(fn.ReturnLocal, &mir.Use { X: intConst(7) }))
    b.SetTerm(&mir.Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)

    forest := BuildLoopForest(built)
    require.Empty(t, forest.Loops)
}

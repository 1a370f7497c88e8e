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
    `testing`

    `github.com/stretchr/testify/require`
)

func TestLiveness_CountingLoop(t *testing.T) {
    fn := buildCountingLoop(t)
    res := LiveLocals(fn)

    /* backward results: BlockOut is the fact at block start */
    require.Equal(t, []int { 0 }, res.BlockOut(0).(LocalSet).Sorted())
    require.Equal(t, []int { 0, 2 }, res.BlockOut(1).(LocalSet).Sorted())
    require.Equal(t, []int { 0, 2 }, res.BlockOut(2).(LocalSet).Sorted())
    require.Equal(t, []int { 2 }, res.BlockOut(3).(LocalSet).Sorted())

    /* nothing is live past the return */
    require.Empty(t, res.BlockIn(3).(LocalSet).Sorted())
}

func TestLiveness_ReturnLocal(t *testing.T) {
    b := NewBuilder()
    fn := b.StartFunction("ret", nil, IntType)
    b.Push(&Assign { Place: LocalPlace(fn.ReturnLocal), Rvalue: &Use { X: Const(IntConstFromInt64(7)) } })
    b.SetTerm(&Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)

    res := LiveLocals(built)

    /* the return terminator makes the return local live */
    loc := Location { Block: 0, Index: 1 }
    require.True(t, res.FactAt(loc).(LocalSet).Contains(built.ReturnLocal))

    /* its assignment kills it at block start */
    require.False(t, res.BlockOut(0).(LocalSet).Contains(built.ReturnLocal))
}

func TestReachingDefs_KillAndGen(t *testing.T) {
    b := NewBuilder()
    fn := b.StartFunction("redef", nil, IntType)
    x := b.NewLocal(IntType, true, nil)
    b.Push(&Assign { Place: LocalPlace(x), Rvalue: &Use { X: Const(IntConstFromInt64(1)) } })
    b.Push(&Assign { Place: LocalPlace(x), Rvalue: &Use { X: Const(IntConstFromInt64(2)) } })
    b.Push(&Assign { Place: LocalPlace(fn.ReturnLocal), Rvalue: &Use { X: CopyLocal(x) } })
    b.SetTerm(&Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)

    res := ReachingDefinitions(built)

    /* the redefinition kills the first def */
    after := res.FactAt(Location { Block: 0, Index: 1 }).(DefSet)
    require.Equal(t, []Def { { Local: x, Loc: Location { Block: 0, Index: 1 } } }, after.DefsOf(x))

    /* both defs flow one at a time, never together */
    first := res.FactAt(Location { Block: 0, Index: 0 }).(DefSet)
    require.Equal(t, []Def { { Local: x, Loc: Location { Block: 0, Index: 0 } } }, first.DefsOf(x))
}

func TestReachingDefs_JoinAtMerge(t *testing.T) {
    fn := buildDiamond(t)
    res := ReachingDefinitions(fn)

    /* both arm definitions of the return local reach the join */
    join := res.BlockIn(3).(DefSet)
    require.Len(t, join.DefsOf(fn.ReturnLocal), 2)
}

func TestLiveness_LoopFixedPoint(t *testing.T) {
    fn := buildCountingLoop(t)

    /* running twice is stable: the worklist reached a real fixed point */
    a := LiveLocals(fn)
    b := LiveLocals(fn)
    for _, id := range fn.BlockIds() {
        require.True(t, a.BlockOut(id).Equal(b.BlockOut(id)))
    }
}

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

func TestBuilder_StartFunction(t *testing.T) {
    b := NewBuilder()
    fn := b.StartFunction("add", []Parameter {
        { Name: "x", Ty: IntType },
        { Name: "y", Ty: IntType },
    }, IntType)

    /* parameters take the first local ids, then the return local */
    require.Equal(t, 0, fn.Params[0].Local)
    require.Equal(t, 1, fn.Params[1].Local)
    require.Equal(t, 2, fn.ReturnLocal)
    require.Equal(t, 0, fn.Entry)
    require.Equal(t, fn.Entry, b.Active())
}

func TestBuilder_UnitReturn(t *testing.T) {
    b := NewBuilder()
    fn := b.StartFunction("noop", nil, UnitType)
    require.Equal(t, NoLocal, fn.ReturnLocal)
}

func TestBuilder_MissingTerminator(t *testing.T) {
    b := NewBuilder()
    b.StartFunction("broken", nil, UnitType)
    dangling := b.NewBlock()
    b.SetTerm(&Goto { Target: dangling })

    /* the reachable dangling block still has its placeholder */
    _, err := b.FinishFunction()
    require.Error(t, err)
}

func TestBuilder_UnreachablePlaceholderOk(t *testing.T) {
    b := NewBuilder()
    b.StartFunction("orphan", nil, UnitType)
    b.NewBlock()
    b.SetTerm(&Return{})

    /* unreachable blocks may keep the placeholder */
    fn, err := b.FinishFunction()
    require.NoError(t, err)
    require.Empty(t, Validate(fn))
}

func TestBuilder_Scopes(t *testing.T) {
    b := NewBuilder()
    fn := b.StartFunction("scoped", nil, UnitType)

    b.PushScope()
    x := b.NewLocal(IntType, true, nil)
    y := b.NewLocal(IntType, true, nil)
    b.Push(&Assign { Place: LocalPlace(x), Rvalue: &Use { X: Const(IntConstFromInt64(1)) } })
    b.Push(&Assign { Place: LocalPlace(y), Rvalue: &Use { X: Const(IntConstFromInt64(2)) } })
    b.PopScope()
    b.SetTerm(&Return{})

    _, err := b.FinishFunction()
    require.NoError(t, err)

    /* StorageDead in reverse declaration order */
    ins := fn.Blocks[0].Ins
    require.Equal(t, &StorageDead { Local: y }, ins[len(ins) - 2])
    require.Equal(t, &StorageDead { Local: x }, ins[len(ins) - 1])
}

func TestBuilder_PopWithoutPush(t *testing.T) {
    b := NewBuilder()
    b.StartFunction("bad", nil, UnitType)
    require.Panics(t, func() { b.PopScope() })
}

func TestBuilder_SwitchToUndefined(t *testing.T) {
    b := NewBuilder()
    b.StartFunction("bad", nil, UnitType)
    require.Panics(t, func() { b.SwitchTo(99) })
}

func TestBuilder_IndependentCounters(t *testing.T) {
    b1 := NewBuilder()
    b2 := NewBuilder()
    f1 := b1.StartFunction("a", nil, IntType)
    f2 := b2.StartFunction("b", nil, UnitType)

    /* id allocation never crosses functions */
    require.Equal(t, 1, b1.NewBlock())
    require.Equal(t, 1, b2.NewBlock())
    require.Equal(t, 0, f1.ReturnLocal)
    require.Equal(t, NoLocal, f2.ReturnLocal)
}

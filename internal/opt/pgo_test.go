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
    `github.com/aerislang/aeris/internal/pgo`
    `github.com/stretchr/testify/require`
)

func TestProfilePass_DecideInline(t *testing.T) {
    prof := pgo.NewProfile()
    prof.FunctionCounts["main"] = 1000
    prof.FunctionCounts["hot"] = 5000
    prof.FunctionCounts["warm"] = 600
    prof.FunctionCounts["cold"] = 3
    prof.FunctionCounts["rare"] = 2000
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "hot"}] = 900
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "warm"}] = 700
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "cold"}] = 3
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "rare"}] = 5

    pp := NewProfilePassWith(prof)
    require.Equal(t, AlwaysInline, pp.DecideInline("main", "hot"))
    require.Equal(t, InlineHot, pp.DecideInline("main", "warm"))
    require.Equal(t, NeverInline, pp.DecideInline("main", "cold"))
    require.Equal(t, NeverInline, pp.DecideInline("main", "rare"))

    /* no counts at all: leave the static heuristics in charge */
    prof.FunctionCounts["meh"] = 2000
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "meh"}] = 300
    require.Equal(t, InlineDefault, pp.DecideInline("main", "meh"))
}

func TestProfilePass_DecisionString(t *testing.T) {
    require.Equal(t, "always", AlwaysInline.String())
    require.Equal(t, "hot", InlineHot.String())
    require.Equal(t, "never", NeverInline.String())
    require.Equal(t, "default", InlineDefault.String())
}

func TestProfilePass_InlinesHotEdge(t *testing.T) {
    p := callerProgram(t, leafFunc(t, "hot", 1))

    prof := pgo.NewProfile()
    prof.FunctionCounts["main"] = 1000
    prof.FunctionCounts["hot"] = 5000
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "hot"}] = 1000

    require.True(t, NewProfilePassWith(prof).RunOnProgram(p))
    require.Empty(t, callTerms(p.Functions["main"]))
    require.Empty(t, mir.ValidateProgram(p))
}

func TestProfilePass_LeavesColdEdge(t *testing.T) {
    p := callerProgram(t, leafFunc(t, "cold", 1))

    prof := pgo.NewProfile()
    prof.FunctionCounts["main"] = 1000
    prof.FunctionCounts["cold"] = 2
    prof.CallCounts[pgo.CallKey{Caller: "main", Callee: "cold"}] = 2

    NewProfilePassWith(prof).RunOnProgram(p)
    require.Len(t, callTerms(p.Functions["main"]), 1)
}

func TestProfilePass_LayoutHotFirst(t *testing.T) {
    fn := buildDiamondFn(t)

    prof := pgo.NewProfile()
    prof.BlockCounts[pgo.BlockKey{Func: "diamond", Block: 2}] = 900
    prof.BlockCounts[pgo.BlockKey{Func: "diamond", Block: 1}] = 100
    prof.BlockCounts[pgo.BlockKey{Func: "diamond", Block: 3}] = 1000

    pp := NewProfilePassWith(prof)
    require.True(t, pp.layoutBlocks(fn))

    /* entry pinned, then the hot join, then the arms by count */
    require.Equal(t, []int { 0, 3, 2, 1 }, fn.Layout)
    require.Equal(t, fn.Layout, fn.LayoutOrder())

    /* edges are untouched */
    require.ElementsMatch(t, []int { 1, 2 }, fn.Blocks[0].Successors())
    require.Empty(t, mir.Validate(fn))

    /* stable on a second run */
    require.False(t, pp.layoutBlocks(fn))
}

func TestProfilePass_LayoutPullsLikelyTarget(t *testing.T) {
    fn := buildDiamondFn(t)

    prof := pgo.NewProfile()
    prof.BlockCounts[pgo.BlockKey{Func: "diamond", Block: 2}] = 40
    prof.BlockCounts[pgo.BlockKey{Func: "diamond", Block: 1}] = 30
    prof.BlockCounts[pgo.BlockKey{Func: "diamond", Block: 3}] = 50
    prof.Branches[pgo.BlockKey{Func: "diamond", Block: 0}] = &pgo.BranchProfile { Total: 100, Taken: 95 }

    pp := NewProfilePassWith(prof)
    require.True(t, pp.layoutBlocks(fn))

    /* the likely successor of the entry branch comes right after it */
    require.Equal(t, 2, fn.Layout[1])
    require.Equal(t, 0, fn.Layout[0])
}

func TestProfilePass_NoProfileNoLayout(t *testing.T) {
    fn := buildDiamondFn(t)
    pp := NewProfilePassWith(pgo.NewProfile())

    /* without counts the order is already ascending */
    require.False(t, pp.layoutBlocks(fn))
    require.Empty(t, fn.Layout)
}

// buildDiamondFn is a four-block diamond: bb0 branches to bb1/bb2,
// both join at bb3.
func buildDiamondFn(t *testing.T) *mir.Function {
    b := mir.NewBuilder()
    fn := b.StartFunction("diamond", []mir.Parameter { { Name: "x", Ty: mir.IntType } }, mir.IntType)

    c := b.NewLocal(mir.BoolType, false, nil)
    then := b.NewBlock()
    els := b.NewBlock()
    join := b.NewBlock()

    b.Push(assign(c, intOp(mir.OpLt, mir.CopyLocal(fn.Params[0].Local), intConst(10))))
    b.SetTerm(boolSwitch(c, els, then))

    b.SwitchTo(then)
    b.Push(assign(fn.ReturnLocal, &mir.Use { X: intConst(1) }))
    b.SetTerm(&mir.Goto { Target: join })

    b.SwitchTo(els)
    b.Push(assign(fn.ReturnLocal, &mir.Use { X: intConst(2) }))
    b.SetTerm(&mir.Goto { Target: join })

    b.SwitchTo(join)
    b.SetTerm(&mir.Return{})

    built, err := b.FinishFunction()
    require.NoError(t, err)
    require.Empty(t, mir.Validate(built))
    return built
}

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

func callTerms(fn *mir.Function) []*mir.CallTerm {
    var ret []*mir.CallTerm
    for _, bid := range fn.BlockIds() {
        if c, ok := fn.Blocks[bid].Term.(*mir.CallTerm); ok {
            ret = append(ret, c)
        }
    }
    return ret
}

func TestInline_SplicesLeaf(t *testing.T) {
    p := callerProgram(t, leafFunc(t, "leaf", 41))
    main := p.Functions["main"]
    before := len(main.Blocks)

    require.True(t, new(Inline).RunOnProgram(p))

    /* the call terminator is gone, the body is spliced in */
    require.Empty(t, callTerms(main))
    require.Greater(t, len(main.Blocks), before)
    require.Empty(t, mir.ValidateProgram(p))

    /* the callee itself is untouched */
    require.Len(t, p.Functions["leaf"].Blocks, 1)
}

func TestInline_BindsArguments(t *testing.T) {
    b := mir.NewBuilder()
    callee := b.StartFunction("incr", []mir.Parameter { { Name: "x", Ty: mir.IntType } }, mir.IntType)
    b.Push(assign(callee.ReturnLocal, intOp(mir.OpAdd, mir.CopyLocal(callee.Params[0].Local), intConst(1))))
    b.SetTerm(&mir.Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)

    b = mir.NewBuilder()
    caller := b.StartFunction("main", nil, mir.IntType)
    next := b.NewBlock()
    dst := mir.LocalPlace(caller.ReturnLocal)
    b.SetTerm(&mir.CallTerm {
        Func   : "incr",
        Args   : []mir.Operand { intConst(41) },
        Dest   : &dst,
        Target : next,
        Cleanup: mir.NoBlock,
    })
    b.SwitchTo(next)
    b.SetTerm(&mir.Return{})
    main, err := b.FinishFunction()
    require.NoError(t, err)

    p := mir.NewProgram()
    p.Functions["incr"] = built
    p.Functions["main"] = main
    require.Empty(t, mir.ValidateProgram(p))

    require.True(t, new(Inline).RunOnProgram(p))
    require.Empty(t, callTerms(main))
    require.Empty(t, mir.ValidateProgram(p))

    /* the entry now binds the argument to the renumbered parameter */
    entry := main.Blocks[main.Entry]
    bind := entry.Ins[len(entry.Ins) - 1].(*mir.Assign)
    use := bind.Rvalue.(*mir.Use)
    require.Equal(t, intConst(41), use.X)
}

func TestInline_SkipsUnwindEdge(t *testing.T) {
    b := mir.NewBuilder()
    caller := b.StartFunction("main", nil, mir.IntType)
    next := b.NewBlock()
    unwind := b.NewBlock()
    dst := mir.LocalPlace(caller.ReturnLocal)
    b.Push(assign(caller.ReturnLocal, &mir.Use { X: intConst(0) }))
    b.SetTerm(&mir.CallTerm {
        Func   : "leaf",
        Dest   : &dst,
        Target : next,
        Cleanup: unwind,
    })
    b.SwitchTo(next)
    b.SetTerm(&mir.Return{})
    b.SwitchTo(unwind)
    b.SetTerm(&mir.Return{})
    main, err := b.FinishFunction()
    require.NoError(t, err)

    p := mir.NewProgram()
    p.Functions["leaf"] = leafFunc(t, "leaf", 7)
    p.Functions["main"] = main
    require.Empty(t, mir.ValidateProgram(p))

    /* splicing would drop the unwind handler, the site must be kept */
    require.False(t, new(Inline).RunOnProgram(p))
    require.Len(t, callTerms(main), 1)
    require.Contains(t, main.Blocks, unwind)
}

func TestInline_SkipsRecursive(t *testing.T) {
    b := mir.NewBuilder()
    rec := b.StartFunction("rec", nil, mir.IntType)
    next := b.NewBlock()
    dst := mir.LocalPlace(rec.ReturnLocal)
    b.SetTerm(&mir.CallTerm { Func: "rec", Dest: &dst, Target: next, Cleanup: mir.NoBlock })
    b.SwitchTo(next)
    b.SetTerm(&mir.Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)

    p := callerProgram(t, built)
    require.False(t, new(Inline).RunOnProgram(p))
    require.Len(t, callTerms(p.Functions["main"]), 1)
}

func TestInline_SkipsExpensive(t *testing.T) {
    /* 25 statements blow past the cost cap */
    big := make([]mir.Stmt, 0, 25)
    b := mir.NewBuilder()
    fn := b.StartFunction("big", nil, mir.IntType)
    b.Push(assign(fn.ReturnLocal, &mir.Use { X: intConst(0) }))
    for k := 0; k < 25; k++ {
        big = append(big, assign(fn.ReturnLocal, intOp(mir.OpAdd, mir.CopyLocal(fn.ReturnLocal), intConst(1))))
    }
    for _, s := range big {
        b.Push(s)
    }
    b.SetTerm(&mir.Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)

    p := callerProgram(t, built)
    require.False(t, new(Inline).RunOnProgram(p))
    require.Len(t, callTerms(p.Functions["main"]), 1)
}

func TestInline_SkipsManyCallSites(t *testing.T) {
    leaf := leafFunc(t, "leaf", 1)
    p := callerProgram(t, leaf, leaf, leaf, leaf)
    require.False(t, new(Inline).RunOnProgram(p))
    require.Len(t, callTerms(p.Functions["main"]), 4)
}

func TestInline_Cost(t *testing.T) {
    leaf := leafFunc(t, "leaf", 1)
    require.Equal(t, 2, inlineCost(leaf))

    fn := sumLoop(t, 4)
    /* 2+1 in bb0, 3+2 in bb1, 0+1 in bb2 */
    require.Equal(t, 9, inlineCost(fn))
}

func TestInline_Idempotent(t *testing.T) {
    p := callerProgram(t, leafFunc(t, "leaf", 41))
    require.True(t, new(Inline).RunOnProgram(p))
    require.False(t, new(Inline).RunOnProgram(p))
}

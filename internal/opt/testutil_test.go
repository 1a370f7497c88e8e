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

func assign(dst int, rv mir.Rvalue) *mir.Assign {
    return &mir.Assign { Place: mir.LocalPlace(dst), Rvalue: rv }
}

func intOp(op mir.BinOp, l mir.Operand, r mir.Operand) *mir.BinaryOp {
    return &mir.BinaryOp { Op: op, L: l, R: r }
}

func intConst(v int64) mir.Operand {
    return mir.Const(mir.IntConstFromInt64(v))
}

func boolSwitch(cond int, zero int, other int) *mir.SwitchInt {
    return &mir.SwitchInt {
        Disc    : mir.CopyLocal(cond),
        Ty      : mir.BoolType,
        Targets : mir.SwitchTargets { Values: []mir.Int128 { {} }, Blocks: []int { zero }, Otherwise: other },
    }
}

// sumLoop builds the canonical counted single-block loop
//
//     bb0: _1 = 0 ; _0 = 0    ; goto bb1
//     bb1: _0 = _0 + _1
//          <extra statements>
//          _1 = _1 + 1
//          _2 = _1 < n        ; switch _2 [0 -> bb2, else bb1]
//     bb2: return
//
// where _0 is the return local, _1 the induction variable and _2 the
// loop condition. Extra statements are inserted before the update.
func sumLoop(t *testing.T, n int64, extra ...mir.Stmt) *mir.Function {
    b := mir.NewBuilder()
    fn := b.StartFunction("sum", nil, mir.IntType)

    i := b.NewLocal(mir.IntType, true, nil)
    c := b.NewLocal(mir.BoolType, false, nil)
    head := b.NewBlock()
    exit := b.NewBlock()

    b.Push(assign(i, &mir.Use { X: intConst(0) }))
    b.Push(assign(fn.ReturnLocal, &mir.Use { X: intConst(0) }))
    b.SetTerm(&mir.Goto { Target: head })

    b.SwitchTo(head)
    b.Push(assign(fn.ReturnLocal, intOp(mir.OpAdd, mir.CopyLocal(fn.ReturnLocal), mir.CopyLocal(i))))
    for _, s := range extra {
        b.Push(s)
    }
    b.Push(assign(i, intOp(mir.OpAdd, mir.CopyLocal(i), intConst(1))))
    b.Push(assign(c, intOp(mir.OpLt, mir.CopyLocal(i), intConst(n))))
    b.SetTerm(boolSwitch(c, exit, head))

    b.SwitchTo(exit)
    b.SetTerm(&mir.Return{})

    ret, err := b.FinishFunction()
    require.NoError(t, err)
    require.Empty(t, mir.Validate(ret))
    return ret
}

// callerProgram builds a program where main invokes each callee once
// through a call terminator, in order, then returns the last result.
func callerProgram(t *testing.T, callees ...*mir.Function) *mir.Program {
    p := mir.NewProgram()
    for _, fn := range callees {
        p.Functions[fn.Name] = fn
    }

    b := mir.NewBuilder()
    fn := b.StartFunction("main", nil, mir.IntType)
    for _, callee := range callees {
        next := b.NewBlock()
        dst := mir.LocalPlace(fn.ReturnLocal)
        b.SetTerm(&mir.CallTerm {
            Func   : callee.Name,
            Dest   : &dst,
            Target : next,
            Cleanup: mir.NoBlock,
        })
        b.SwitchTo(next)
    }
    b.SetTerm(&mir.Return{})

    built, err := b.FinishFunction()
    require.NoError(t, err)
    p.Functions["main"] = built
    require.Empty(t, mir.ValidateProgram(p))
    return p
}

// leafFunc builds a function returning the sum of one constant and
// nothing else, straight-line and pure.
func leafFunc(t *testing.T, name string, v int64) *mir.Function {
    b := mir.NewBuilder()
    fn := b.StartFunction(name, nil, mir.IntType)
    b.Push(assign(fn.ReturnLocal, intOp(mir.OpAdd, intConst(v), intConst(1))))
    b.SetTerm(&mir.Return{})
    built, err := b.FinishFunction()
    require.NoError(t, err)
    return built
}

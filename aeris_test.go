/*
 * Copyright 2022 CloudWeGo Authors
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

package aeris

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aerislang/aeris/internal/mir"
	"github.com/aerislang/aeris/internal/pgo"
	"github.com/stretchr/testify/require"
)

func buildProgram(t *testing.T) *mir.Program {
	b := mir.NewBuilder()
	fn := b.StartFunction("main", nil, mir.IntType)
	x := b.NewLocal(mir.IntType, true, nil)
	b.Push(&mir.Assign{
		Place:  mir.LocalPlace(x),
		Rvalue: &mir.BinaryOp{Op: mir.OpMul, L: mir.Const(mir.IntConstFromInt64(6)), R: mir.Const(mir.IntConstFromInt64(7))},
	})
	b.Push(&mir.Assign{
		Place:  mir.LocalPlace(fn.ReturnLocal),
		Rvalue: &mir.Use{X: mir.CopyLocal(x)},
	})
	b.SetTerm(&mir.Return{})
	built, err := b.FinishFunction()
	require.NoError(t, err)

	p := mir.NewProgram()
	p.Functions["main"] = built
	return p
}

func TestOptimize_Default(t *testing.T) {
	p := buildProgram(t)
	st, err := Optimize(p)
	require.NoError(t, err)
	require.Greater(t, st.Iterations, 0)
	require.NoError(t, Validate(p))

	v := p.Functions["main"].Blocks[0].Ins[0].(*mir.Assign)
	use := v.Rvalue.(*mir.Use)
	require.True(t, use.X.IsConst())
}

func TestOptimize_Presets(t *testing.T) {
	for _, preset := range []Preset{PresetDefault, PresetAdvanced, PresetWholeProgram} {
		p := buildProgram(t)
		_, err := Optimize(p, WithPreset(preset))
		require.NoError(t, err)
		require.NoError(t, Validate(p))
	}
}

func TestOptimize_RejectsInvalidProgram(t *testing.T) {
	p := buildProgram(t)
	main := p.Functions["main"]
	main.Blocks[0].Ins = append(main.Blocks[0].Ins, &mir.Assign{
		Place:  mir.LocalPlace(main.ReturnLocal),
		Rvalue: &mir.Use{X: mir.CopyLocal(42)},
	})

	_, err := Optimize(p)
	require.Error(t, err)

	var verr ValidationErrors
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr)
}

func TestOptimize_ProfileGuided(t *testing.T) {
	prof := pgo.NewProfile()
	prof.FunctionCounts["main"] = 5000
	path := filepath.Join(t.TempDir(), "run.profile")
	require.NoError(t, prof.Save(path))

	p := buildProgram(t)
	_, err := Optimize(p, WithProfile(path))
	require.NoError(t, err)
	require.NoError(t, Validate(p))
}

func TestOptimize_ProfileGuidedMissingFile(t *testing.T) {
	p := buildProgram(t)
	_, err := Optimize(p, WithProfile(filepath.Join(t.TempDir(), "nope.profile")))
	require.Error(t, err)

	var perr ProfileError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, perr, os.ErrNotExist)
	require.Contains(t, perr.Path, "nope.profile")
}

func TestOptimize_MaxIterations(t *testing.T) {
	p := buildProgram(t)
	st, err := Optimize(p, WithMaxIterations(1))
	require.NoError(t, err)
	require.Equal(t, 1, st.Iterations)

	require.Panics(t, func() { WithMaxIterations(0) })
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	p := buildProgram(t)
	main := p.Functions["main"]
	main.Blocks[0].Ins = append(main.Blocks[0].Ins,
		&mir.Assign{Place: mir.LocalPlace(main.ReturnLocal), Rvalue: &mir.Use{X: mir.CopyLocal(42)}},
		&mir.Assign{Place: mir.LocalPlace(main.ReturnLocal), Rvalue: &mir.Use{X: mir.CopyLocal(43)}},
	)

	err := Validate(p)
	require.Error(t, err)
	require.True(t, errors.As(err, new(ValidationErrors)))
	require.Contains(t, err.Error(), "more")
}

func TestSetMaxInlineCost(t *testing.T) {
	old := SetMaxInlineCost(50)
	defer SetMaxInlineCost(old)
	require.Equal(t, 20, old)
	require.Equal(t, 50, SetMaxInlineCost(50))
}

func TestSetMaxUnrollLimits(t *testing.T) {
	oi := SetMaxUnrollIters(32)
	defer SetMaxUnrollIters(oi)
	require.Equal(t, 16, oi)

	sz := SetMaxUnrollSize(8)
	defer SetMaxUnrollSize(sz)
	require.Equal(t, 5, sz)
}

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
    `math`
    `math/big`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/stretchr/testify/require`
)

func wrap128(v *big.Int) *big.Int {
    m := new(big.Int).Lsh(big.NewInt(1), 128)
    r := new(big.Int).Mod(v, m)
    if r.Cmp(new(big.Int).Lsh(big.NewInt(1), 127)) >= 0 {
        r.Sub(r, m)
    }
    return r
}

func TestInt128_Arithmetic(t *testing.T) {
    a := Int128FromInt64(12345)
    b := Int128FromInt64(-678)
    require.Equal(t, "11667", a.Add(b).String())
    require.Equal(t, "13023", a.Sub(b).String())
    require.Equal(t, "-8369910", a.Mul(b).String())
    require.Equal(t, "-18", a.Div(b).String())
    require.Equal(t, "141", a.Rem(b).String())
    require.Equal(t, "-12345", a.Neg().String())
}

func TestInt128_Wrapping(t *testing.T) {
    require.Equal(t, MinInt128, MaxInt128.Add(Int128FromInt64(1)))
    require.Equal(t, MaxInt128, MinInt128.Sub(Int128FromInt64(1)))
    require.Equal(t, MinInt128, MinInt128.Div(Int128FromInt64(-1)))
    require.Equal(t, MinInt128, MinInt128.Neg())
}

func TestInt128_RandomAdd(t *testing.T) {
    f := gofakeit.New(0x5a5a)
    for i := 0; i < 1000; i++ {
        a := Int128FromInt64(f.Int64()).Mul(Int128FromInt64(f.Int64()))
        b := Int128FromInt64(f.Int64()).Mul(Int128FromInt64(f.Int64()))
        want := wrap128(new(big.Int).Add(a.big(), b.big()))
        require.Equal(t, want.String(), a.Add(b).String())
    }
}

func TestInt128_RandomMul(t *testing.T) {
    f := gofakeit.New(0xa5a5)
    for i := 0; i < 1000; i++ {
        a := Int128FromInt64(f.Int64())
        b := Int128FromInt64(f.Int64())
        want := wrap128(new(big.Int).Mul(a.big(), b.big()))
        require.Equal(t, want.String(), a.Mul(b).String())
    }
}

func TestInt128_Shifts(t *testing.T) {
    one := Int128FromInt64(1)
    require.Equal(t, "2", one.Shl(1).String())
    require.Equal(t, Int128 { hi: 1, lo: 0 }, one.Shl(64))
    require.Equal(t, one, one.Shl(64).Shr(64))

    /* arithmetic right shift keeps the sign */
    require.Equal(t, "-1", Int128FromInt64(-8).Shr(3).String())
    require.Equal(t, "-4", Int128FromInt64(-8).Shr(1).String())
}

func TestInt128_Compare(t *testing.T) {
    require.Equal(t, -1, MinInt128.Cmp(MaxInt128))
    require.Equal(t, 1, Int128FromInt64(1).Cmp(Int128FromInt64(-1)))
    require.Equal(t, 0, Int128FromInt64(42).Cmp(Int128FromInt64(42)))
    require.True(t, Int128{}.IsZero())
    require.Equal(t, -1, Int128FromInt64(-5).Sign())
}

func TestInt128_Int64(t *testing.T) {
    require.Equal(t, int64(math.MinInt64), Int128FromInt64(math.MinInt64).Int64())
    require.Equal(t, int64(math.MaxInt64), Int128FromInt64(math.MaxInt64).Int64())
    require.Equal(t, int64(0), Int128FromInt64(0).Int64())
}

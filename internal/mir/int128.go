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
    `math/big`
    `math/bits`
)

// Int128 represents a signed 128-bit integer with two's complement
// wrapping arithmetic. The high word carries the sign.
type Int128 struct {
    hi uint64
    lo uint64
}

var (
    MinInt128 = Int128 { hi: 1 << 63 }
    MaxInt128 = Int128 { hi: ^uint64(0) >> 1, lo: ^uint64(0) }
)

func Int128FromInt64(v int64) Int128 {
    if v >= 0 {
        return Int128 { lo: uint64(v) }
    } else {
        return Int128 { hi: ^uint64(0), lo: uint64(v) }
    }
}

func (self Int128) Add(v Int128) Int128 {
    lo, c := bits.Add64(self.lo, v.lo, 0)
    hi, _ := bits.Add64(self.hi, v.hi, c)
    return Int128 { hi: hi, lo: lo }
}

func (self Int128) Sub(v Int128) Int128 {
    lo, b := bits.Sub64(self.lo, v.lo, 0)
    hi, _ := bits.Sub64(self.hi, v.hi, b)
    return Int128 { hi: hi, lo: lo }
}

func (self Int128) Mul(v Int128) Int128 {
    hi, lo := bits.Mul64(self.lo, v.lo)
    hi += self.hi * v.lo + self.lo * v.hi
    return Int128 { hi: hi, lo: lo }
}

func (self Int128) Neg() Int128 {
    return Int128{}.Sub(self)
}

// Div performs truncated signed division. Division by zero is the
// caller's responsibility to rule out; MinInt128 / -1 wraps around to
// MinInt128 like every other overflow.
func (self Int128) Div(v Int128) Int128 {
    if self == MinInt128 && v == Int128FromInt64(-1) {
        return MinInt128
    }
    return int128FromBig(new(big.Int).Quo(self.big(), v.big()))
}

func (self Int128) Rem(v Int128) Int128 {
    if self == MinInt128 && v == Int128FromInt64(-1) {
        return Int128{}
    }
    return int128FromBig(new(big.Int).Rem(self.big(), v.big()))
}

func (self Int128) And(v Int128) Int128 { return Int128 { hi: self.hi & v.hi, lo: self.lo & v.lo } }
func (self Int128) Or(v Int128) Int128  { return Int128 { hi: self.hi | v.hi, lo: self.lo | v.lo } }
func (self Int128) Xor(v Int128) Int128 { return Int128 { hi: self.hi ^ v.hi, lo: self.lo ^ v.lo } }

func (self Int128) Shl(n uint) Int128 {
    switch {
        case n == 0  : return self
        case n >= 64 : return Int128 { hi: self.lo << (n - 64) }
        default      : return Int128 { hi: self.hi << n | self.lo >> (64 - n), lo: self.lo << n }
    }
}

// Shr is an arithmetic right shift, preserving the sign bit.
func (self Int128) Shr(n uint) Int128 {
    switch {
        case n == 0  : return self
        case n >= 64 : return Int128 { hi: uint64(int64(self.hi) >> 63), lo: uint64(int64(self.hi) >> (n - 64)) }
        default      : return Int128 { hi: uint64(int64(self.hi) >> n), lo: self.lo >> n | self.hi << (64 - n) }
    }
}

func (self Int128) IsZero() bool {
    return self.hi == 0 && self.lo == 0
}

func (self Int128) Sign() int {
    if self.IsZero() {
        return 0
    } else if int64(self.hi) < 0 {
        return -1
    } else {
        return 1
    }
}

func (self Int128) Cmp(v Int128) int {
    if self == v {
        return 0
    } else if int64(self.hi) < int64(v.hi) || (self.hi == v.hi && self.lo < v.lo) {
        return -1
    } else {
        return 1
    }
}

// Int64 truncates to the low 64 bits.
func (self Int128) Int64() int64 {
    return int64(self.lo)
}

func (self Int128) String() string {
    return self.big().String()
}

func (self Int128) big() *big.Int {
    r := new(big.Int)
    if int64(self.hi) >= 0 {
        r.SetUint64(self.hi)
        r.Lsh(r, 64)
        r.Or(r, new(big.Int).SetUint64(self.lo))
    } else {
        n := self.Neg()
        r.SetUint64(n.hi)
        r.Lsh(r, 64)
        r.Or(r, new(big.Int).SetUint64(n.lo))
        r.Neg(r)
    }
    return r
}

func int128FromBig(v *big.Int) Int128 {
    var r Int128
    u := new(big.Int).Abs(v)
    r.lo = u.Uint64()
    r.hi = new(big.Int).Rsh(u, 64).Uint64()
    if v.Sign() < 0 {
        r = r.Neg()
    }
    return r
}

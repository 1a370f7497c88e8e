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

package opts

import (
	"os"
	"strconv"
)

const (
	_DefaultMaxInlineCost  = 20 // cutoff for callee inlining cost
	_DefaultMaxUnrollIters = 16 // cutoff for full loop unrolling
	_DefaultMaxUnrollSize  = 5  // cutoff in blocks for unrollable loops
	_DefaultMaxPassIters   = 10 // cutoff for pipeline fixed-point iterations
)

var (
	MaxInlineCost  = parseOrDefault("AERIS_MAX_INLINE_COST", _DefaultMaxInlineCost, 1)
	MaxUnrollIters = parseOrDefault("AERIS_MAX_UNROLL_ITERS", _DefaultMaxUnrollIters, 1)
	MaxUnrollSize  = parseOrDefault("AERIS_MAX_UNROLL_SIZE", _DefaultMaxUnrollSize, 1)
	MaxPassIters   = parseOrDefault("AERIS_MAX_PASS_ITERS", _DefaultMaxPassIters, 1)
)

// Debug enables dumps of pass statistics and rewritten IR.
var Debug = os.Getenv("AERIS_DEBUG") != ""

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("aeris: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("aeris: value too small for " + key)
	} else {
		return ret
	}
}

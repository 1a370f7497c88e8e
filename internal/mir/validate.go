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
    `fmt`
)

type ErrorKind uint8

const (
    ErrNoEntry ErrorKind = iota
    ErrUndefinedLocal
    ErrMissingTerminator
    ErrInvalidEdge
    ErrUninitializedLocal
    ErrTypeMismatch
)

func (self ErrorKind) String() string {
    switch self {
        case ErrNoEntry            : return "entry block does not exist"
        case ErrUndefinedLocal     : return "undefined local"
        case ErrMissingTerminator  : return "missing terminator"
        case ErrInvalidEdge        : return "edge to undefined block"
        case ErrUninitializedLocal : return "local used before initialization"
        case ErrTypeMismatch       : return "type mismatch"
        default                    : panic("mir: invalid error kind")
    }
}

// ValidationError pinpoints one well-formedness violation. Violations
// are reported, never silently repaired.
type ValidationError struct {
    Kind  ErrorKind
    Func  string
    Block int
    Local int
}

func (self ValidationError) Error() string {
    s := fmt.Sprintf("mir: function %q: %s", self.Func, self.Kind)
    if self.Block != NoBlock {
        s += fmt.Sprintf(" (bb_%d)", self.Block)
    }
    if self.Local != NoLocal {
        s += fmt.Sprintf(" (_%d)", self.Local)
    }
    return s
}

// Validate checks every structural invariant of a function and
// returns the full violation list.
func Validate(fn *Function) []ValidationError {
    var ret []ValidationError
    ret = checkEntry(fn, ret)
    ret = checkLocals(fn, ret)
    ret = checkTerminators(fn, ret)
    ret = checkEdges(fn, ret)
    ret = checkInit(fn, ret)
    return ret
}

// ValidateProgram validates every function, in name order.
func ValidateProgram(p *Program) []ValidationError {
    var ret []ValidationError
    for _, name := range p.FunctionNames() {
        ret = append(ret, Validate(p.Functions[name])...)
    }
    return ret
}

func checkEntry(fn *Function, errs []ValidationError) []ValidationError {
    if _, ok := fn.Blocks[fn.Entry]; !ok {
        errs = append(errs, ValidationError { Kind: ErrNoEntry, Func: fn.Name, Block: fn.Entry, Local: NoLocal })
    }
    return errs
}

func checkLocals(fn *Function, errs []ValidationError) []ValidationError {
    seen := make(map[int]bool)
    report := func(bb int, id int) {
        if _, ok := fn.Locals[id]; !ok && !seen[id] {
            seen[id] = true
            errs = append(errs, ValidationError { Kind: ErrUndefinedLocal, Func: fn.Name, Block: bb, Local: id })
        }
    }
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        for _, ins := range bb.Ins {
            for _, id := range StmtRefLocals(ins) {
                report(bid, id)
            }
        }
        if bb.Term != nil {
            for _, id := range TermRefLocals(bb.Term) {
                report(bid, id)
            }
        }
    }
    return errs
}

func checkTerminators(fn *Function, errs []ValidationError) []ValidationError {
    reach := fn.Reachable()
    for _, bid := range fn.BlockIds() {
        if !reach[bid] {
            continue
        }
        bb := fn.Blocks[bid]
        if bb.Term == nil {
            errs = append(errs, ValidationError { Kind: ErrMissingTerminator, Func: fn.Name, Block: bid, Local: NoLocal })
        } else if _, ok := bb.Term.(*Unreachable); ok {
            errs = append(errs, ValidationError { Kind: ErrMissingTerminator, Func: fn.Name, Block: bid, Local: NoLocal })
        }
    }
    return errs
}

func checkEdges(fn *Function, errs []ValidationError) []ValidationError {
    for _, bid := range fn.BlockIds() {
        for _, succ := range fn.Blocks[bid].Successors() {
            if _, ok := fn.Blocks[succ]; !ok {
                errs = append(errs, ValidationError { Kind: ErrInvalidEdge, Func: fn.Name, Block: bid, Local: NoLocal })
            }
        }
    }
    return errs
}

// checkInit flags locals read in the entry block before any assignment
// to them. Only the straight-line entry prefix is checked: joins make
// the general problem a dataflow question, and a conservative checker
// must not produce false positives.
func checkInit(fn *Function, errs []ValidationError) []ValidationError {
    bb, ok := fn.Blocks[fn.Entry]
    if !ok {
        return errs
    }

    /* parameters start initialized */
    init := make(map[int]bool, len(fn.Params))
    for _, p := range fn.Params {
        init[p.Local] = true
    }

    /* linear scan of the entry block */
    for _, ins := range bb.Ins {
        for _, id := range StmtReads(ins) {
            if _, declared := fn.Locals[id]; declared && !init[id] {
                init[id] = true
                errs = append(errs, ValidationError { Kind: ErrUninitializedLocal, Func: fn.Name, Block: fn.Entry, Local: id })
            }
        }
        if id, ok := StmtWrites(ins); ok {
            init[id] = true
        }
    }
    return errs
}

// MultiAssigned returns every local assigned more than once. This is
// an observation, not a violation: the IR is deliberately not SSA.
func MultiAssigned(fn *Function) []int {
    count := make(map[int]int)
    for _, bid := range fn.BlockIds() {
        for _, ins := range fn.Blocks[bid].Ins {
            if id, ok := StmtWrites(ins); ok {
                count[id]++
            }
        }
    }
    var ret []int
    for _, id := range fn.LocalIds() {
        if count[id] > 1 {
            ret = append(ret, id)
        }
    }
    return ret
}

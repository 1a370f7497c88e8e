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
    `sort`
    `strings`
)

// NoBlock and NoLocal are the sentinels for optional block and local
// references on terminators and functions.
const (
    NoBlock = -1
    NoLocal = -1
)

// Program is the unit of optimization: every function, compile-time
// constant, external declaration and type definition of one
// compilation, keyed by name. Passes mutate it in place.
type Program struct {
    Functions map[string]*Function
    Constants map[string]*Constant
    Externals map[string]*ExternalFunction
    TypeDefs  map[string]*Type
}

func NewProgram() *Program {
    return &Program {
        Functions : make(map[string]*Function),
        Constants : make(map[string]*Constant),
        Externals : make(map[string]*ExternalFunction),
        TypeDefs  : make(map[string]*Type),
    }
}

// FunctionNames returns every function name in sorted order, so that
// passes iterating the program observe a deterministic sequence.
func (self *Program) FunctionNames() []string {
    ret := make([]string, 0, len(self.Functions))
    for name := range self.Functions {
        ret = append(ret, name)
    }
    sort.Strings(ret)
    return ret
}

type ExternalFunction struct {
    Name   string
    Params []*Type
    Return *Type
}

type SourceInfo struct {
    Line   int
    Column int
}

// Local is a function-scoped storage slot. Parameters occupy the
// first len(Params) local ids of their function.
type Local struct {
    Ty      *Type
    Mutable bool
    Info    *SourceInfo
}

type Parameter struct {
    Name  string
    Ty    *Type
    Local int
}

// Function owns its locals and blocks exclusively; cross-function
// references are by name only. Locals may be assigned more than once,
// this is not an SSA form.
type Function struct {
    Name        string
    Params      []Parameter
    ReturnTy    *Type
    Locals      map[int]*Local
    Blocks      map[int]*BasicBlock
    Entry       int
    ReturnLocal int

    // Layout is the block emission order, every block id exactly
    // once. Empty means ascending id order. Control flow never
    // depends on it, only downstream emission does.
    Layout []int
}

func NewFunction(name string, ret *Type) *Function {
    return &Function {
        Name        : name,
        ReturnTy    : ret,
        Locals      : make(map[int]*Local),
        Blocks      : make(map[int]*BasicBlock),
        Entry       : NoBlock,
        ReturnLocal : NoLocal,
    }
}

// IsParam reports whether the local id belongs to a parameter.
// Parameter locals always count as used.
func (self *Function) IsParam(id int) bool {
    for _, p := range self.Params {
        if p.Local == id {
            return true
        }
    }
    return false
}

// BlockIds returns every block id in ascending order.
func (self *Function) BlockIds() []int {
    ret := make([]int, 0, len(self.Blocks))
    for id := range self.Blocks {
        ret = append(ret, id)
    }
    sort.Ints(ret)
    return ret
}

// LayoutOrder returns the block emission order: the explicit Layout
// when it covers every block, ascending id order otherwise.
func (self *Function) LayoutOrder() []int {
    if len(self.Layout) != len(self.Blocks) {
        return self.BlockIds()
    }
    seen := make(map[int]bool, len(self.Layout))
    for _, id := range self.Layout {
        if _, ok := self.Blocks[id]; !ok || seen[id] {
            return self.BlockIds()
        }
        seen[id] = true
    }
    return self.Layout
}

// LocalIds returns every local id in ascending order.
func (self *Function) LocalIds() []int {
    ret := make([]int, 0, len(self.Locals))
    for id := range self.Locals {
        ret = append(ret, id)
    }
    sort.Ints(ret)
    return ret
}

// BasicBlock is a straight-line statement sequence closed by exactly
// one terminator.
type BasicBlock struct {
    Id   int
    Ins  []Stmt
    Term Terminator
}

func (self *BasicBlock) String() string {
    buf := make([]string, 0, len(self.Ins) + 2)
    buf = append(buf, fmt.Sprintf("bb_%d:", self.Id))
    for _, ins := range self.Ins {
        buf = append(buf, "    " + ins.String())
    }
    if self.Term != nil {
        buf = append(buf, "    " + self.Term.String())
    }
    return strings.Join(buf, "\n")
}

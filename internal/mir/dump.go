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
    `strings`

    `github.com/davecgh/go-spew/spew`
)

var debugSpew = spew.ConfigState {
    Indent                  : "    ",
    DisableMethods          : true,
    DisablePointerAddresses : true,
    DisableCapacities       : true,
    SortKeys                : true,
}

func (self *Function) String() string {
    buf := make([]string, 0, len(self.Blocks) + 2)

    /* signature line */
    args := make([]string, 0, len(self.Params))
    for _, p := range self.Params {
        args = append(args, fmt.Sprintf("%s: %s", p.Name, p.Ty))
    }
    buf = append(buf, fmt.Sprintf("fn %s(%s) -> %s {", self.Name, strings.Join(args, ", "), self.ReturnTy))

    /* locals that are not parameters */
    for _, id := range self.LocalIds() {
        if !self.IsParam(id) {
            buf = append(buf, fmt.Sprintf("    let _%d: %s", id, self.Locals[id].Ty))
        }
    }

    /* blocks in id order */
    for _, id := range self.LayoutOrder() {
        buf = append(buf, "")
        for _, ln := range strings.Split(self.Blocks[id].String(), "\n") {
            buf = append(buf, "    " + ln)
        }
    }

    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}

func (self *Program) String() string {
    buf := make([]string, 0, len(self.Functions))
    for _, name := range self.FunctionNames() {
        buf = append(buf, self.Functions[name].String())
    }
    return strings.Join(buf, "\n\n")
}

// DebugDump renders the raw node structure of a value, for diagnosing
// pass bugs where the pretty printer hides the problem.
func DebugDump(v interface{}) string {
    return debugSpew.Sdump(v)
}

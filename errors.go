/*
 * Copyright 2021 ByteDance Inc.
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
    `fmt`

    `github.com/aerislang/aeris/internal/mir`
)

// ValidationErrors occures when a program violates the IR
// well-formedness rules. Every violation is reported, never just the
// first.
type ValidationErrors []mir.ValidationError

func (self ValidationErrors) Error() string {
    if len(self) == 1 {
        return self[0].Error()
    } else {
        return fmt.Sprintf("%s (and %d more)", self[0].Error(), len(self) - 1)
    }
}

// ProfileError occures when profile data cannot be loaded or parsed.
type ProfileError struct {
    Path   string
    Reason error
}

func (self ProfileError) Error() string {
    return fmt.Sprintf("ProfileError(%s): %v", self.Path, self.Reason)
}

func (self ProfileError) Unwrap() error {
    return self.Reason
}

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

type Options struct {
	MaxInlineCost  int
	MaxUnrollIters int
	MaxUnrollSize  int
	MaxPassIters   int
}

func (self *Options) CanInline(cost int) bool {
	return self.MaxInlineCost >= cost || self.MaxInlineCost == 0
}

func (self *Options) CanUnroll(iters int, blocks int) bool {
	return (self.MaxUnrollIters >= iters || self.MaxUnrollIters == 0) && (self.MaxUnrollSize >= blocks || self.MaxUnrollSize == 0)
}

func GetDefaultOptions() Options {
	return Options{
		MaxInlineCost:  MaxInlineCost,
		MaxUnrollIters: MaxUnrollIters,
		MaxUnrollSize:  MaxUnrollSize,
		MaxPassIters:   MaxPassIters,
	}
}

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

package pgo

import (
    `fmt`
    `os`
    `sort`
    `strconv`
    `strings`
)

// Execution count thresholds for the hot/cold classification.
const (
    HotFunctionThreshold = 1000
    HotBlockThreshold    = 500
    ColdThreshold        = 10
)

// BlockKey addresses one basic block of one function.
type BlockKey struct {
    Func  string
    Block int
}

// CallKey addresses one static call edge.
type CallKey struct {
    Caller string
    Callee string
}

// BranchProfile is the observed outcome distribution of one branch
// block.
type BranchProfile struct {
    Total uint64
    Taken uint64
}

// Probability is the taken fraction, zero when the branch never
// executed.
func (self *BranchProfile) Probability() float64 {
    if self.Total == 0 {
        return 0
    }
    return float64(self.Taken) / float64(self.Total)
}

// LoopProfile is the observed trip behaviour of one loop header.
type LoopProfile struct {
    Entries    uint64
    TotalIters uint64
    MaxIters   uint64
}

// AvgIters is the mean trip count per entry, zero when the loop was
// never entered.
func (self *LoopProfile) AvgIters() float64 {
    if self.Entries == 0 {
        return 0
    }
    return float64(self.TotalIters) / float64(self.Entries)
}

// Profile is the execution-count tables collected from an
// instrumented run, one line-oriented record per entry.
type Profile struct {
    FunctionCounts map[string]uint64
    BlockCounts    map[BlockKey]uint64
    Branches       map[BlockKey]*BranchProfile
    CallCounts     map[CallKey]uint64
    Loops          map[BlockKey]*LoopProfile
}

func NewProfile() *Profile {
    return &Profile {
        FunctionCounts : make(map[string]uint64),
        BlockCounts    : make(map[BlockKey]uint64),
        Branches       : make(map[BlockKey]*BranchProfile),
        CallCounts     : make(map[CallKey]uint64),
        Loops          : make(map[BlockKey]*LoopProfile),
    }
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
    buf, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("pgo: cannot read profile %q: %w", path, err)
    }
    return Parse(string(buf)), nil
}

// Parse decodes the colon-separated line format. Malformed lines and
// unknown record kinds are skipped, not errors: a truncated profile
// still yields whatever it does contain.
func Parse(data string) *Profile {
    p := NewProfile()
    for _, line := range strings.Split(data, "\n") {
        line = strings.TrimSpace(line)
        if line == "" || strings.HasPrefix(line, "#") {
            continue
        }
        fields := strings.Split(line, ":")
        if len(fields) < 3 {
            continue
        }
        switch fields[0] {
            case "FUNC"   : p.parseFunc(fields[1:])
            case "BLOCK"  : p.parseBlock(fields[1:])
            case "BRANCH" : p.parseBranch(fields[1:])
            case "CALL"   : p.parseCall(fields[1:])
            case "LOOP"   : p.parseLoop(fields[1:])
        }
    }
    return p
}

func (self *Profile) parseFunc(v []string) {
    if len(v) != 2 {
        return
    }
    if n, ok := parseCount(v[1]); ok {
        self.FunctionCounts[v[0]] = n
    }
}

func (self *Profile) parseBlock(v []string) {
    if len(v) != 3 {
        return
    }
    bid, ok1 := parseId(v[1])
    n, ok2 := parseCount(v[2])
    if ok1 && ok2 {
        self.BlockCounts[BlockKey { v[0], bid }] = n
    }
}

func (self *Profile) parseBranch(v []string) {
    if len(v) != 4 {
        return
    }
    bid, ok1 := parseId(v[1])
    total, ok2 := parseCount(v[2])
    taken, ok3 := parseCount(v[3])
    if ok1 && ok2 && ok3 {
        self.Branches[BlockKey { v[0], bid }] = &BranchProfile { Total: total, Taken: taken }
    }
}

func (self *Profile) parseCall(v []string) {
    if len(v) != 3 {
        return
    }
    if n, ok := parseCount(v[2]); ok {
        self.CallCounts[CallKey { v[0], v[1] }] = n
    }
}

func (self *Profile) parseLoop(v []string) {
    if len(v) != 5 {
        return
    }
    bid, ok1 := parseId(v[1])
    en, ok2 := parseCount(v[2])
    ti, ok3 := parseCount(v[3])
    mi, ok4 := parseCount(v[4])
    if ok1 && ok2 && ok3 && ok4 {
        self.Loops[BlockKey { v[0], bid }] = &LoopProfile { Entries: en, TotalIters: ti, MaxIters: mi }
    }
}

func parseId(s string) (int, bool) {
    n, err := strconv.Atoi(s)
    return n, err == nil && n >= 0
}

func parseCount(s string) (uint64, bool) {
    n, err := strconv.ParseUint(s, 10, 64)
    return n, err == nil
}

// Dump encodes the tables back into the line format, records sorted
// within each kind so output is deterministic and parsing it again
// reproduces identical tables.
func (self *Profile) Dump() string {
    var sb strings.Builder

    fns := make([]string, 0, len(self.FunctionCounts))
    for name := range self.FunctionCounts {
        fns = append(fns, name)
    }
    sort.Strings(fns)
    for _, name := range fns {
        fmt.Fprintf(&sb, "FUNC:%s:%d\n", name, self.FunctionCounts[name])
    }

    for _, k := range sortedBlockKeys(self.BlockCounts) {
        fmt.Fprintf(&sb, "BLOCK:%s:%d:%d\n", k.Func, k.Block, self.BlockCounts[k])
    }

    brs := make([]BlockKey, 0, len(self.Branches))
    for k := range self.Branches {
        brs = append(brs, k)
    }
    sortBlockKeys(brs)
    for _, k := range brs {
        b := self.Branches[k]
        fmt.Fprintf(&sb, "BRANCH:%s:%d:%d:%d\n", k.Func, k.Block, b.Total, b.Taken)
    }

    calls := make([]CallKey, 0, len(self.CallCounts))
    for k := range self.CallCounts {
        calls = append(calls, k)
    }
    sort.Slice(calls, func(i int, j int) bool {
        if calls[i].Caller != calls[j].Caller {
            return calls[i].Caller < calls[j].Caller
        }
        return calls[i].Callee < calls[j].Callee
    })
    for _, k := range calls {
        fmt.Fprintf(&sb, "CALL:%s:%s:%d\n", k.Caller, k.Callee, self.CallCounts[k])
    }

    lps := make([]BlockKey, 0, len(self.Loops))
    for k := range self.Loops {
        lps = append(lps, k)
    }
    sortBlockKeys(lps)
    for _, k := range lps {
        l := self.Loops[k]
        fmt.Fprintf(&sb, "LOOP:%s:%d:%d:%d:%d\n", k.Func, k.Block, l.Entries, l.TotalIters, l.MaxIters)
    }
    return sb.String()
}

// Save writes the profile to a file in the same format Load reads.
func (self *Profile) Save(path string) error {
    if err := os.WriteFile(path, []byte(self.Dump()), 0644); err != nil {
        return fmt.Errorf("pgo: cannot write profile %q: %w", path, err)
    }
    return nil
}

func sortedBlockKeys(m map[BlockKey]uint64) []BlockKey {
    ks := make([]BlockKey, 0, len(m))
    for k := range m {
        ks = append(ks, k)
    }
    sortBlockKeys(ks)
    return ks
}

func sortBlockKeys(ks []BlockKey) {
    sort.Slice(ks, func(i int, j int) bool {
        if ks[i].Func != ks[j].Func {
            return ks[i].Func < ks[j].Func
        }
        return ks[i].Block < ks[j].Block
    })
}

// IsHotFunction reports whether the function cleared the hot
// threshold.
func (self *Profile) IsHotFunction(name string) bool {
    return self.FunctionCounts[name] >= HotFunctionThreshold
}

// IsHotBlock reports whether the block cleared the hot threshold.
func (self *Profile) IsHotBlock(fn string, block int) bool {
    return self.BlockCounts[BlockKey { fn, block }] >= HotBlockThreshold
}

// IsColdFunction reports whether the function barely ran.
func (self *Profile) IsColdFunction(name string) bool {
    return self.FunctionCounts[name] < ColdThreshold
}

// CallFrequency is how often one call edge fires per invocation of
// its caller, zero when the caller never ran.
func (self *Profile) CallFrequency(caller string, callee string) float64 {
    n := self.FunctionCounts[caller]
    if n == 0 {
        return 0
    }
    return float64(self.CallCounts[CallKey { caller, callee }]) / float64(n)
}

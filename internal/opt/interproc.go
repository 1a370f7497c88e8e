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

package opt

import (
    `sort`

    `github.com/aerislang/aeris/internal/mir`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/topo`
)

// CallGraph is the caller/callee relation over the defined functions
// of a program, by name. Strongly connected components expose
// recursion, their emission order gives a callees-first traversal.
type CallGraph struct {
    Callees map[string][]string
    Callers map[string][]string

    g     *simple.DirectedGraph
    ids   map[string]int64
    names map[int64]string
}

// BuildCallGraph scans every statement and terminator for calls.
// Edges are kept only between defined functions; calls to undefined
// names still appear in Callees for the summaries.
func BuildCallGraph(p *mir.Program) *CallGraph {
    cg := &CallGraph {
        Callees : make(map[string][]string),
        Callers : make(map[string][]string),
        g       : simple.NewDirectedGraph(),
        ids     : make(map[string]int64),
        names   : make(map[int64]string),
    }

    /* one node per defined function */
    for i, name := range p.FunctionNames() {
        id := int64(i)
        cg.ids[name] = id
        cg.names[id] = name
        cg.g.AddNode(simple.Node(id))
        cg.Callees[name] = nil
        cg.Callers[name] = nil
    }

    /* one edge per distinct caller/callee pair */
    for _, name := range p.FunctionNames() {
        seen := make(map[string]bool)
        for _, callee := range calledNames(p.Functions[name]) {
            if seen[callee] {
                continue
            }
            seen[callee] = true
            cg.Callees[name] = append(cg.Callees[name], callee)
            if _, ok := p.Functions[callee]; ok {
                cg.Callers[callee] = append(cg.Callers[callee], name)
                if callee != name {
                    cg.g.SetEdge(cg.g.NewEdge(simple.Node(cg.ids[name]), simple.Node(cg.ids[callee])))
                }
            }
        }
    }

    for name := range cg.Callees {
        sort.Strings(cg.Callees[name])
        sort.Strings(cg.Callers[name])
    }
    return cg
}

// calledNames lists every function name invoked, in block order.
func calledNames(fn *mir.Function) []string {
    var ret []string
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            if v, ok := s.(*mir.Assign); ok {
                if c, ok := v.Rvalue.(*mir.Call); ok {
                    ret = append(ret, c.Func)
                }
            }
        }
        if c, ok := bb.Term.(*mir.CallTerm); ok {
            ret = append(ret, c.Func)
        }
    }
    return ret
}

// SCCs returns the strongly connected components, callees first:
// Tarjan's algorithm emits a component only after everything it calls
// into, which is exactly the bottom-up summary order.
func (self *CallGraph) SCCs() [][]string {
    var ret [][]string
    for _, comp := range topo.TarjanSCC(self.g) {
        names := make([]string, 0, len(comp))
        for _, n := range comp {
            names = append(names, self.names[n.ID()])
        }
        sort.Strings(names)
        ret = append(ret, names)
    }
    return ret
}

// TopoOrder flattens the components into a callees-before-callers
// function order.
func (self *CallGraph) TopoOrder() []string {
    var ret []string
    for _, comp := range self.SCCs() {
        ret = append(ret, comp...)
    }
    return ret
}

// InSCC reports whether a function participates in a recursion cycle
// of two or more functions.
func (self *CallGraph) InSCC(name string) bool {
    for _, comp := range self.SCCs() {
        if len(comp) > 1 {
            for _, n := range comp {
                if n == name {
                    return true
                }
            }
        }
    }
    return false
}

// Summary is the per-function side-effect description, the pointwise
// OR/union of its own local effects and every callee's summary.
type Summary struct {
    ReadsMemory     bool
    WritesMemory    bool
    PerformsIO      bool
    MayThrow        bool
    IsRecursive     bool
    Callees         []string
    GlobalsRead     []string
    GlobalsModified []string
}

// IsPure reports whether calls to the function can be folded when
// their arguments are constants.
func (self *Summary) IsPure() bool {
    return !self.WritesMemory && !self.PerformsIO && !self.MayThrow && len(self.GlobalsModified) == 0
}

// ComputeSummaries processes the components callees-first so callee
// summaries exist when their callers are folded in. Calls into
// anything undefined are assumed to do everything.
func ComputeSummaries(p *mir.Program, cg *CallGraph) map[string]*Summary {
    ret := make(map[string]*Summary, len(p.Functions))
    for _, comp := range cg.SCCs() {
        /* members of a cycle conservatively share each other's yet
         * incomplete summaries, run the component twice */
        for pass := 0; pass < 2; pass++ {
            for _, name := range comp {
                ret[name] = summarize(p, cg, ret, name, len(comp) > 1)
            }
            if len(comp) == 1 {
                break
            }
        }
    }
    return ret
}

func summarize(p *mir.Program, cg *CallGraph, done map[string]*Summary, name string, inCycle bool) *Summary {
    fn := p.Functions[name]
    sm := &Summary { Callees: cg.Callees[name], IsRecursive: inCycle || callsSelf(fn) }

    /* locally observed effects */
    for _, bid := range fn.BlockIds() {
        bb := fn.Blocks[bid]
        for _, s := range bb.Ins {
            v, ok := s.(*mir.Assign)
            if !ok {
                continue
            }
            if !v.Place.IsLocal() {
                sm.WritesMemory = true
            }
            if placeDerefs(v.Place) {
                sm.ReadsMemory = true
            }
            switch rv := v.Rvalue.(type) {
                case *mir.Ref: {
                    sm.ReadsMemory = true
                }
                case *mir.BinaryOp: {
                    if rv.Op == mir.OpDiv || rv.Op == mir.OpRem {
                        sm.MayThrow = true
                    }
                }
                case *mir.Call: {
                    /* a zero-argument call naming a program constant
                     * is the read of that global; the constants are
                     * immutable, so only reads are observable */
                    if len(rv.Args) == 0 {
                        if _, isglobal := p.Constants[rv.Func]; isglobal {
                            sm.GlobalsRead = unionStrings(sm.GlobalsRead, []string { rv.Func })
                        }
                    }
                }
            }
            for _, op := range operandsOf(s) {
                if !op.IsConst() && placeDerefs(op.Place) {
                    sm.ReadsMemory = true
                }
            }
        }
        switch bb.Term.(type) {
            case *mir.Assert : sm.MayThrow = true
        }
    }

    /* fold in every callee; constant reads already counted above */
    for _, callee := range sm.Callees {
        if callee == name {
            continue
        }
        if _, isconst := p.Constants[callee]; isconst {
            continue
        }
        cs, defined := done[callee]
        if !defined {
            if _, isfn := p.Functions[callee]; isfn {
                /* cycle member not yet summarized */
                continue
            }
            /* undefined callees do everything */
            sm.ReadsMemory = true
            sm.WritesMemory = true
            sm.PerformsIO = true
            sm.MayThrow = true
            continue
        }
        sm.ReadsMemory = sm.ReadsMemory || cs.ReadsMemory
        sm.WritesMemory = sm.WritesMemory || cs.WritesMemory
        sm.PerformsIO = sm.PerformsIO || cs.PerformsIO
        sm.MayThrow = sm.MayThrow || cs.MayThrow
        sm.GlobalsRead = unionStrings(sm.GlobalsRead, cs.GlobalsRead)
        sm.GlobalsModified = unionStrings(sm.GlobalsModified, cs.GlobalsModified)
    }
    return sm
}

func operandsOf(s mir.Stmt) []mir.Operand {
    if v, ok := s.(*mir.Assign); ok {
        return v.Rvalue.Operands()
    }
    return nil
}

func placeDerefs(p mir.Place) bool {
    for _, pj := range p.Proj {
        if pj.Kind == mir.ProjDeref {
            return true
        }
    }
    return false
}

func unionStrings(a []string, b []string) []string {
    if len(b) == 0 {
        return a
    }
    set := make(map[string]bool, len(a) + len(b))
    for _, s := range a {
        set[s] = true
    }
    for _, s := range b {
        set[s] = true
    }
    ret := make([]string, 0, len(set))
    for s := range set {
        ret = append(ret, s)
    }
    sort.Strings(ret)
    return ret
}

// Interproc runs the whole-program applications of the call-graph
// summaries: named-constant reads are replaced with their literal,
// constant-argument calls to provably pure functions are evaluated,
// and functions nobody can reach are removed.
type Interproc struct{}

func (*Interproc) Name() string {
    return "Interprocedural Optimization"
}

func (*Interproc) RunOnFunction(*mir.Function) bool {
    return false
}

func (self *Interproc) RunOnProgram(p *mir.Program) bool {
    cg := BuildCallGraph(p)
    sums := ComputeSummaries(p, cg)

    rt := false
    if propagateConstants(p) {
        rt = true
    }
    if foldPureCalls(p, sums) {
        rt = true
    }
    if removeDeadFunctions(p, cg) {
        rt = true
    }
    return rt
}

// propagateConstants rewrites zero-argument calls naming a
// program-level constant into the literal itself. Lowering emits the
// read of a named constant as such a call.
func propagateConstants(p *mir.Program) bool {
    rt := false
    for _, name := range p.FunctionNames() {
        fn := p.Functions[name]
        for _, bid := range fn.BlockIds() {
            for _, s := range fn.Blocks[bid].Ins {
                v, ok := s.(*mir.Assign)
                if !ok {
                    continue
                }
                c, ok := v.Rvalue.(*mir.Call)
                if !ok || len(c.Args) != 0 {
                    continue
                }
                if k, ok := p.Constants[c.Func]; ok {
                    v.Rvalue = &mir.Use { X: mir.Const(k) }
                    rt = true
                }
            }
        }
    }
    return rt
}

// foldPureCalls evaluates constant-argument calls to pure functions
// whose body is a single straight-line block. Anything fancier is
// left for the inliner.
func foldPureCalls(p *mir.Program, sums map[string]*Summary) bool {
    rt := false
    for _, name := range p.FunctionNames() {
        fn := p.Functions[name]
        for _, bid := range fn.BlockIds() {
            for _, s := range fn.Blocks[bid].Ins {
                v, ok := s.(*mir.Assign)
                if !ok {
                    continue
                }
                c, ok := v.Rvalue.(*mir.Call)
                if !ok {
                    continue
                }
                callee, defined := p.Functions[c.Func]
                if !defined || c.Func == name {
                    continue
                }
                if sm := sums[c.Func]; sm == nil || !sm.IsPure() || sm.IsRecursive {
                    continue
                }
                if k, ok := evalPureCall(callee, c.Args); ok {
                    v.Rvalue = &mir.Use { X: mir.Const(k) }
                    rt = true
                }
            }
        }
    }
    return rt
}

// evalPureCall interprets a single-block function over constant
// arguments.
func evalPureCall(fn *mir.Function, args []mir.Operand) (*mir.Constant, bool) {
    if len(fn.Blocks) != 1 || len(args) != len(fn.Params) || fn.ReturnLocal == mir.NoLocal {
        return nil, false
    }
    bb := fn.Blocks[fn.Entry]
    if _, ok := bb.Term.(*mir.Return); !ok {
        return nil, false
    }

    /* bind constant arguments */
    env := make(map[int]*mir.Constant, len(fn.Locals))
    for i, prm := range fn.Params {
        if !args[i].IsConst() {
            return nil, false
        }
        env[prm.Local] = args[i].Const
    }

    /* straight-line evaluation */
    for _, s := range bb.Ins {
        v, ok := s.(*mir.Assign)
        if !ok {
            if _, nop := s.(*mir.Nop); nop {
                continue
            }
            switch s.(type) {
                case *mir.StorageLive, *mir.StorageDead: continue
            }
            return nil, false
        }
        if !v.Place.IsLocal() {
            return nil, false
        }
        k, ok := evalConstRvalue(v.Rvalue, env)
        if !ok {
            return nil, false
        }
        env[v.Place.Local] = k
    }

    if k, ok := env[fn.ReturnLocal]; ok {
        return k, true
    }
    return nil, false
}

func evalConstRvalue(rv mir.Rvalue, env map[int]*mir.Constant) (*mir.Constant, bool) {
    resolve := func(op mir.Operand) (*mir.Constant, bool) {
        if op.IsConst() {
            return op.Const, true
        }
        if !op.Place.IsLocal() {
            return nil, false
        }
        k, ok := env[op.Place.Local]
        return k, ok
    }

    switch v := rv.(type) {
        case *mir.Use: {
            return resolve(v.X)
        }
        case *mir.UnaryOp: {
            if x, ok := resolve(v.X); ok {
                return evalUnary(v.Op, x)
            }
        }
        case *mir.BinaryOp: {
            l, ok1 := resolve(v.L)
            r, ok2 := resolve(v.R)
            if ok1 && ok2 {
                return evalBinary(v.Op, l, r)
            }
        }
    }
    return nil, false
}

// removeDeadFunctions drops every function that is not main, is not
// externally declared, and has no remaining caller.
func removeDeadFunctions(p *mir.Program, cg *CallGraph) bool {
    rt := false
    for _, name := range p.FunctionNames() {
        if name == "main" {
            continue
        }
        if _, ext := p.Externals[name]; ext {
            continue
        }
        if len(cg.Callers[name]) == 0 {
            delete(p.Functions, name)
            rt = true
        }
    }
    return rt
}

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
    `strconv`
    `strings`
)

type (
    BinOp    uint8
    UnOp     uint8
    CastKind uint8
)

const (
    OpAdd BinOp = iota
    OpSub
    OpMul
    OpDiv
    OpRem
    OpBitXor
    OpBitAnd
    OpBitOr
    OpShl
    OpShr
    OpEq
    OpLt
    OpLe
    OpNe
    OpGe
    OpGt
)

const (
    OpNot UnOp = iota
    OpNeg
)

const (
    CastMisc CastKind = iota
    CastIntToInt
    CastIntToFloat
    CastFloatToInt
    CastFloatToFloat
    CastUnsize
)

func (self BinOp) String() string {
    switch self {
        case OpAdd    : return "+"
        case OpSub    : return "-"
        case OpMul    : return "*"
        case OpDiv    : return "/"
        case OpRem    : return "%"
        case OpBitXor : return "^"
        case OpBitAnd : return "&"
        case OpBitOr  : return "|"
        case OpShl    : return "<<"
        case OpShr    : return ">>"
        case OpEq     : return "=="
        case OpLt     : return "<"
        case OpLe     : return "<="
        case OpNe     : return "!="
        case OpGe     : return ">="
        case OpGt     : return ">"
        default       : panic("mir: invalid binary operator")
    }
}

func (self UnOp) String() string {
    switch self {
        case OpNot : return "!"
        case OpNeg : return "-"
        default    : panic("mir: invalid unary operator")
    }
}

// IsComparison reports whether the operator always yields a boolean.
func (self BinOp) IsComparison() bool {
    return self >= OpEq && self <= OpGt
}

// IsCommutative reports whether operand order does not matter, which
// lets value numbering canonicalize the operand order.
func (self BinOp) IsCommutative() bool {
    switch self {
        case OpAdd    : fallthrough
        case OpMul    : fallthrough
        case OpBitXor : fallthrough
        case OpBitAnd : fallthrough
        case OpBitOr  : fallthrough
        case OpEq     : fallthrough
        case OpNe     : return true
        default       : return false
    }
}

/** Places **/

type ProjKind uint8

const (
    ProjDeref ProjKind = iota
    ProjField
    ProjIndex
    ProjSubslice
)

type Projection struct {
    Kind  ProjKind
    Index int
    Ty    *Type
    From  int
    To    int
}

// Place is an addressable location: a local plus an ordered projection
// sequence over it. An empty projection denotes the local itself.
type Place struct {
    Local int
    Proj  []Projection
}

func LocalPlace(id int) Place {
    return Place { Local: id }
}

func (self Place) IsLocal() bool {
    return len(self.Proj) == 0
}

// IndexLocals returns every local used as an Index projection base.
func (self Place) IndexLocals() []int {
    var ret []int
    for _, p := range self.Proj {
        if p.Kind == ProjIndex {
            ret = append(ret, p.Index)
        }
    }
    return ret
}

func (self Place) Clone() Place {
    return Place { Local: self.Local, Proj: append([]Projection(nil), self.Proj...) }
}

func (self Place) String() string {
    s := fmt.Sprintf("_%d", self.Local)
    for _, p := range self.Proj {
        switch p.Kind {
            case ProjDeref    : s = "(*" + s + ")"
            case ProjField    : s += "." + strconv.Itoa(p.Index)
            case ProjIndex    : s += fmt.Sprintf("[_%d]", p.Index)
            case ProjSubslice : s += fmt.Sprintf("[%d..%d]", p.From, p.To)
        }
    }
    return s
}

/** Constants **/

type ConstKind uint8

const (
    ConstBool ConstKind = iota
    ConstInt
    ConstFloat
    ConstStr
    ConstChar
    ConstNull
)

// Constant is a typed literal value.
type Constant struct {
    Ty   *Type
    Kind ConstKind
    B    bool
    I    Int128
    F    float64
    S    string
    C    rune
}

func BoolConst(v bool) *Constant           { return &Constant { Ty: BoolType, Kind: ConstBool, B: v } }
func IntConst(v Int128) *Constant          { return &Constant { Ty: IntType, Kind: ConstInt, I: v } }
func IntConstFromInt64(v int64) *Constant  { return IntConst(Int128FromInt64(v)) }
func FloatConst(v float64) *Constant       { return &Constant { Ty: FloatType, Kind: ConstFloat, F: v } }
func StrConst(v string) *Constant          { return &Constant { Ty: StringType, Kind: ConstStr, S: v } }
func CharConst(v rune) *Constant           { return &Constant { Ty: CharType, Kind: ConstChar, C: v } }
func NullConst() *Constant                 { return &Constant { Ty: UnitType, Kind: ConstNull } }

func (self *Constant) Equal(other *Constant) bool {
    if self == nil || other == nil || self.Kind != other.Kind {
        return false
    }
    switch self.Kind {
        case ConstBool  : return self.B == other.B
        case ConstInt   : return self.I == other.I
        case ConstFloat : return self.F == other.F
        case ConstStr   : return self.S == other.S
        case ConstChar  : return self.C == other.C
        case ConstNull  : return true
        default         : return false
    }
}

func (self *Constant) String() string {
    switch self.Kind {
        case ConstBool  : return strconv.FormatBool(self.B)
        case ConstInt   : return self.I.String()
        case ConstFloat : return strconv.FormatFloat(self.F, 'g', -1, 64)
        case ConstStr   : return strconv.Quote(self.S)
        case ConstChar  : return strconv.QuoteRune(self.C)
        case ConstNull  : return "null"
        default         : panic("mir: invalid constant kind")
    }
}

/** Operands **/

type OperandKind uint8

const (
    OperandCopy OperandKind = iota
    OperandMove
    OperandConst
)

// Operand is the leaf of every rvalue: a non-consuming read, a
// consuming read, or a literal.
type Operand struct {
    Kind  OperandKind
    Place Place
    Const *Constant
}

func Copy(p Place) Operand       { return Operand { Kind: OperandCopy, Place: p } }
func Move(p Place) Operand       { return Operand { Kind: OperandMove, Place: p } }
func Const(c *Constant) Operand  { return Operand { Kind: OperandConst, Const: c } }

func CopyLocal(id int) Operand { return Copy(LocalPlace(id)) }

func (self Operand) IsConst() bool {
    return self.Kind == OperandConst
}

// ReadLocals returns every local this operand reads, including index
// projection bases.
func (self Operand) ReadLocals() []int {
    if self.Kind == OperandConst {
        return nil
    }
    return append([]int { self.Place.Local }, self.Place.IndexLocals()...)
}

func (self Operand) Clone() Operand {
    if self.Kind == OperandConst {
        return self
    }
    return Operand { Kind: self.Kind, Place: self.Place.Clone() }
}

func (self Operand) String() string {
    switch self.Kind {
        case OperandCopy  : return "copy " + self.Place.String()
        case OperandMove  : return "move " + self.Place.String()
        case OperandConst : return "const " + self.Const.String()
        default           : panic("mir: invalid operand kind")
    }
}

/** Rvalues **/

type Rvalue interface {
    fmt.Stringer
    rvalue()

    // Operands returns the operand leaves read by this rvalue.
    Operands() []Operand

    // CloneRvalue returns a deep copy that shares no mutable state
    // with the receiver.
    CloneRvalue() Rvalue
}

type (
    Use          struct { X Operand }
    BinaryOp     struct { Op BinOp; L Operand; R Operand }
    UnaryOp      struct { Op UnOp; X Operand }
    Call         struct { Func string; Args []Operand }
    Aggregate    struct { Kind AggKind; Ty *Type; Name string; Variant int; Elems []Operand }
    Cast         struct { Kind CastKind; X Operand; Ty *Type }
    Ref          struct { Place Place; Mutable bool }
    Len          struct { Place Place }
    Discriminant struct { Place Place }
)

type AggKind uint8

const (
    AggArray AggKind = iota
    AggStruct
    AggEnum
)

func (*Use)          rvalue() {}
func (*BinaryOp)     rvalue() {}
func (*UnaryOp)      rvalue() {}
func (*Call)         rvalue() {}
func (*Aggregate)    rvalue() {}
func (*Cast)         rvalue() {}
func (*Ref)          rvalue() {}
func (*Len)          rvalue() {}
func (*Discriminant) rvalue() {}

func (self *Use)          Operands() []Operand { return []Operand { self.X } }
func (self *BinaryOp)     Operands() []Operand { return []Operand { self.L, self.R } }
func (self *UnaryOp)      Operands() []Operand { return []Operand { self.X } }
func (self *Call)         Operands() []Operand { return append([]Operand(nil), self.Args...) }
func (self *Aggregate)    Operands() []Operand { return append([]Operand(nil), self.Elems...) }
func (self *Cast)         Operands() []Operand { return []Operand { self.X } }
func (self *Ref)          Operands() []Operand { return []Operand { Copy(self.Place) } }
func (self *Len)          Operands() []Operand { return []Operand { Copy(self.Place) } }
func (self *Discriminant) Operands() []Operand { return []Operand { Copy(self.Place) } }

func (self *Use)      CloneRvalue() Rvalue { return &Use { X: self.X.Clone() } }
func (self *BinaryOp) CloneRvalue() Rvalue { return &BinaryOp { Op: self.Op, L: self.L.Clone(), R: self.R.Clone() } }
func (self *UnaryOp)  CloneRvalue() Rvalue { return &UnaryOp { Op: self.Op, X: self.X.Clone() } }
func (self *Cast)     CloneRvalue() Rvalue { return &Cast { Kind: self.Kind, X: self.X.Clone(), Ty: self.Ty } }
func (self *Ref)      CloneRvalue() Rvalue { return &Ref { Place: self.Place.Clone(), Mutable: self.Mutable } }
func (self *Len)      CloneRvalue() Rvalue { return &Len { Place: self.Place.Clone() } }

func (self *Call) CloneRvalue() Rvalue {
    return &Call { Func: self.Func, Args: cloneOperands(self.Args) }
}

func (self *Aggregate) CloneRvalue() Rvalue {
    return &Aggregate {
        Kind    : self.Kind,
        Ty      : self.Ty,
        Name    : self.Name,
        Variant : self.Variant,
        Elems   : cloneOperands(self.Elems),
    }
}

func (self *Discriminant) CloneRvalue() Rvalue {
    return &Discriminant { Place: self.Place.Clone() }
}

func cloneOperands(ops []Operand) []Operand {
    ret := make([]Operand, len(ops))
    for i, op := range ops {
        ret[i] = op.Clone()
    }
    return ret
}

func (self *Use)      String() string { return self.X.String() }
func (self *BinaryOp) String() string { return fmt.Sprintf("%s %s %s", self.L, self.Op, self.R) }
func (self *UnaryOp)  String() string { return fmt.Sprintf("%s%s", self.Op, self.X) }
func (self *Cast)     String() string { return fmt.Sprintf("%s as %s", self.X, self.Ty) }
func (self *Len)      String() string { return fmt.Sprintf("len(%s)", self.Place) }

func (self *Call) String() string {
    return fmt.Sprintf("%s(%s)", self.Func, operandsrepr(self.Args))
}

func (self *Aggregate) String() string {
    switch self.Kind {
        case AggArray  : return fmt.Sprintf("[%s]", operandsrepr(self.Elems))
        case AggStruct : return fmt.Sprintf("%s { %s }", self.Name, operandsrepr(self.Elems))
        case AggEnum   : return fmt.Sprintf("%s::%d { %s }", self.Name, self.Variant, operandsrepr(self.Elems))
        default        : panic("mir: invalid aggregate kind")
    }
}

func (self *Ref) String() string {
    if self.Mutable {
        return "&mut " + self.Place.String()
    } else {
        return "&" + self.Place.String()
    }
}

func (self *Discriminant) String() string {
    return fmt.Sprintf("discriminant(%s)", self.Place)
}

func operandsrepr(ops []Operand) string {
    buf := make([]string, 0, len(ops))
    for _, op := range ops {
        buf = append(buf, op.String())
    }
    return strings.Join(buf, ", ")
}

/** Statements **/

type Stmt interface {
    fmt.Stringer
    stmt()
}

type (
    Assign      struct { Place Place; Rvalue Rvalue; Info *SourceInfo }
    StorageLive struct { Local int }
    StorageDead struct { Local int }
    Nop         struct{}
)

func (*Assign)      stmt() {}
func (*StorageLive) stmt() {}
func (*StorageDead) stmt() {}
func (*Nop)         stmt() {}

func (self *Assign)      String() string { return fmt.Sprintf("%s = %s", self.Place, self.Rvalue) }
func (self *StorageLive) String() string { return fmt.Sprintf("StorageLive(_%d)", self.Local) }
func (self *StorageDead) String() string { return fmt.Sprintf("StorageDead(_%d)", self.Local) }
func (*Nop)              String() string { return "nop" }

// CloneStmt deep-copies a statement for splicing one function's body
// into another.
func CloneStmt(s Stmt) Stmt {
    switch v := s.(type) {
        case *Assign      : return &Assign { Place: v.Place.Clone(), Rvalue: v.Rvalue.CloneRvalue(), Info: v.Info }
        case *StorageLive : return &StorageLive { Local: v.Local }
        case *StorageDead : return &StorageDead { Local: v.Local }
        case *Nop         : return &Nop{}
        default           : panic("mir: invalid statement")
    }
}

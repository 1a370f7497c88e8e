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
)

type TypeKind uint8

const (
    TypeInt TypeKind = iota
    TypeFloat
    TypeBool
    TypeString
    TypeChar
    TypeUnit
    TypeNever
    TypeNamed
    TypeArray
    TypeFunc
)

// Type describes the value category of a local, constant or expression.
// The optimizer only needs enough structure to compute result types and
// to classify primitive element kinds.
type Type struct {
    Kind TypeKind
    Name string
    Elem *Type
    Size int
    Args []*Type
    Ret  *Type
}

var (
    IntType    = &Type { Kind: TypeInt }
    FloatType  = &Type { Kind: TypeFloat }
    BoolType   = &Type { Kind: TypeBool }
    StringType = &Type { Kind: TypeString }
    CharType   = &Type { Kind: TypeChar }
    UnitType   = &Type { Kind: TypeUnit }
    NeverType  = &Type { Kind: TypeNever }
)

func NamedType(name string) *Type {
    return &Type { Kind: TypeNamed, Name: name }
}

func ArrayType(elem *Type, size int) *Type {
    return &Type { Kind: TypeArray, Elem: elem, Size: size }
}

func FuncType(args []*Type, ret *Type) *Type {
    return &Type { Kind: TypeFunc, Args: args, Ret: ret }
}

func (self *Type) IsNumeric() bool {
    return self != nil && (self.Kind == TypeInt || self.Kind == TypeFloat)
}

func (self *Type) IsPrimitive() bool {
    if self == nil {
        return false
    }
    switch self.Kind {
        case TypeInt    : fallthrough
        case TypeFloat  : fallthrough
        case TypeBool   : fallthrough
        case TypeString : fallthrough
        case TypeChar   : fallthrough
        case TypeUnit   : fallthrough
        case TypeNever  : return true
        default         : return false
    }
}

func (self *Type) String() string {
    if self == nil {
        return "<unknown>"
    }
    switch self.Kind {
        case TypeInt    : return "int"
        case TypeFloat  : return "float"
        case TypeBool   : return "bool"
        case TypeString : return "string"
        case TypeChar   : return "char"
        case TypeUnit   : return "()"
        case TypeNever  : return "!"
        case TypeNamed  : return self.Name
        case TypeArray  : return fmt.Sprintf("[%s; %d]", self.Elem, self.Size)
        case TypeFunc   : return self.funcrepr()
        default         : panic("mir: invalid type kind")
    }
}

func (self *Type) funcrepr() string {
    args := make([]string, 0, len(self.Args))
    for _, at := range self.Args {
        args = append(args, at.String())
    }
    return fmt.Sprintf("fn(%s) -> %s", strings.Join(args, ", "), self.Ret)
}

// Same reports whether two types are interchangeable for the purpose
// of rewriting: primitives compare by kind, named types by name, and
// composites structurally.
func (self *Type) Same(other *Type) bool {
    if self == nil || other == nil {
        return self == other
    }
    if self.Kind != other.Kind {
        return false
    }
    switch self.Kind {
        case TypeNamed : return self.Name == other.Name
        case TypeArray : return self.Size == other.Size && self.Elem.Same(other.Elem)
        case TypeFunc  : return self.samefunc(other)
        default        : return true
    }
}

func (self *Type) samefunc(other *Type) bool {
    if len(self.Args) != len(other.Args) || !self.Ret.Same(other.Ret) {
        return false
    }
    for i, at := range self.Args {
        if !at.Same(other.Args[i]) {
            return false
        }
    }
    return true
}

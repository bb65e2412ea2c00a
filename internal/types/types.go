package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindClass
	KindStruct
	KindInterface
	KindEnum
	KindDelegate
	KindArray
	KindPointer
	KindError
	KindTypeParam
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindDelegate:
		return "delegate"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	case KindError:
		return "error"
	case KindTypeParam:
		return "type parameter"
	case KindInstance:
		return "instance"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseNominalKind maps a declaration keyword onto a nominal Kind.
func ParseNominalKind(s string) (Kind, bool) {
	switch s {
	case "class":
		return KindClass, true
	case "struct":
		return KindStruct, true
	case "interface":
		return KindInterface, true
	case "enum":
		return KindEnum, true
	case "delegate":
		return KindDelegate, true
	}
	return KindInvalid, false
}

// Special marks the well-known roots of the type hierarchy.
type Special uint8

const (
	SpecialNone Special = iota
	SpecialObject
	SpecialValueType
	SpecialEnum
	SpecialArray
	SpecialString
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // for arrays and pointers
	Payload uint32 // nominal/instance slot or type-parameter handle
}

// MakeArray describes a single-dimensional array of elem.
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}

// MakePointer describes an unmanaged pointer to elem.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// Subst maps type parameters onto their replacements.
type Subst map[TypeID]TypeID

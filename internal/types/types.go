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
	KindVoid
	KindBool
	KindI32
	KindU32
	KindF32
	KindF16
	KindVector
	KindMatrix
	KindArray
	KindPointer
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindF32:
		return "f32"
	case KindF16:
		return "f16"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// AddressSpace is the memory region a pointer refers to.
type AddressSpace uint8

const (
	SpaceUndefined AddressSpace = iota
	SpaceFunction
	SpacePrivate
	SpaceWorkgroup
	SpaceUniform
	SpaceStorage
)

func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkgroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	default:
		return "undefined"
	}
}

// Access is the access mode of a pointer.
type Access uint8

const (
	AccessUndefined Access = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read_write"
	default:
		return "undefined"
	}
}

// ArrayRuntimeLength marks runtime-sized arrays (array<T>).
const ArrayRuntimeLength = ^uint32(0)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID       // vector/matrix scalar, array element, pointee
	Count   uint32       // vector width, matrix columns, array length
	Rows    uint8        // matrix rows
	Space   AddressSpace // for pointers
	Access  Access       // for pointers
	Payload uint32       // struct info slot
}

// Descriptor helpers ---------------------------------------------------------

// MakeVector describes vecN<elem>.
func MakeVector(elem TypeID, width uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: width}
}

// MakeMatrix describes matCxR<elem>.
func MakeMatrix(elem TypeID, columns uint32, rows uint8) Type {
	return Type{Kind: KindMatrix, Elem: elem, Count: columns, Rows: rows}
}

// MakeArray describes array<elem, count>. Use ArrayRuntimeLength for
// runtime-sized arrays.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakePointer describes ptr<space, elem, access>.
func MakePointer(space AddressSpace, elem TypeID, access Access) Type {
	return Type{Kind: KindPointer, Elem: elem, Space: space, Access: access}
}

package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the scalar types every module needs.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	I32     TypeID
	U32     TypeID
	F32     TypeID
	F16     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Two requests for structurally identical types return the same TypeID, so
// callers compare types by TypeID equality.
//
// An Interner is not safe for concurrent mutation. Once construction of a
// module is finished it may be shared read-only between goroutines.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
}

// NewInterner constructs an interner seeded with built-in scalars.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.I32 = in.Intern(Type{Kind: KindI32})
	in.builtins.U32 = in.Intern(Type{Kind: KindU32})
	in.builtins.F32 = in.Intern(Type{Kind: KindF32})
	in.builtins.F16 = in.Intern(Type{Kind: KindF16})
	return in
}

// Builtins returns TypeIDs for scalar types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	key := typeKey(t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// Find returns the TypeID of an already interned descriptor without
// interning it. Safe to call on a shared, read-only interner.
func (in *Interner) Find(t Type) TypeID {
	if in == nil || t.Kind == KindInvalid {
		return NoTypeID
	}
	return in.index[typeKey(t)]
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of interned types including the invalid sentinel.
func (in *Interner) Len() int {
	return len(in.types)
}

// Vec interns vecN<elem>.
func (in *Interner) Vec(elem TypeID, width uint32) TypeID {
	return in.Intern(MakeVector(elem, width))
}

// Mat interns matCxR<elem> together with its column vector type.
func (in *Interner) Mat(elem TypeID, columns uint32, rows uint8) TypeID {
	in.Vec(elem, uint32(rows))
	return in.Intern(MakeMatrix(elem, columns, rows))
}

// Array interns array<elem, count>.
func (in *Interner) Array(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// Ptr interns ptr<space, elem, access>.
func (in *Interner) Ptr(space AddressSpace, elem TypeID, access Access) TypeID {
	return in.Intern(MakePointer(space, elem, access))
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Rows    uint8
	Space   AddressSpace
	Access  Access
	Payload uint32
}

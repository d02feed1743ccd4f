package types

// Query helpers used by the validator and backends. All of them tolerate
// unknown ids and answer false / NoTypeID rather than panicking.

func (in *Interner) kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// IsScalar reports whether id is bool, i32, u32, f32 or f16.
func (in *Interner) IsScalar(id TypeID) bool {
	switch in.kind(id) {
	case KindBool, KindI32, KindU32, KindF32, KindF16:
		return true
	}
	return false
}

// IsVoid reports whether id is the void type.
func (in *Interner) IsVoid(id TypeID) bool {
	return in.kind(id) == KindVoid
}

// IsPointer reports whether id is a pointer type.
func (in *Interner) IsPointer(id TypeID) bool {
	return in.kind(id) == KindPointer
}

// ScalarOf returns the scalar of a scalar, vector or matrix type.
func (in *Interner) ScalarOf(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return NoTypeID
	}
	switch tt.Kind {
	case KindBool, KindI32, KindU32, KindF32, KindF16:
		return id
	case KindVector, KindMatrix:
		return tt.Elem
	}
	return NoTypeID
}

// Width returns the number of components of a vector, 1 for scalars and 0
// for anything else.
func (in *Interner) Width(id TypeID) uint32 {
	tt, ok := in.Lookup(id)
	if !ok {
		return 0
	}
	switch tt.Kind {
	case KindBool, KindI32, KindU32, KindF32, KindF16:
		return 1
	case KindVector:
		return tt.Count
	}
	return 0
}

// IsNumeric reports whether id is a numeric scalar or a vector of numeric
// scalars.
func (in *Interner) IsNumeric(id TypeID) bool {
	if in.kind(id) == KindMatrix {
		return false
	}
	switch in.kind(in.ScalarOf(id)) {
	case KindI32, KindU32, KindF32, KindF16:
		return true
	}
	return false
}

// IsInteger reports whether id is i32/u32 or a vector of them.
func (in *Interner) IsInteger(id TypeID) bool {
	if in.kind(id) == KindMatrix {
		return false
	}
	switch in.kind(in.ScalarOf(id)) {
	case KindI32, KindU32:
		return true
	}
	return false
}

// IsUnsigned reports whether id is u32 or a vector of u32.
func (in *Interner) IsUnsigned(id TypeID) bool {
	return in.kind(id) != KindMatrix && in.kind(in.ScalarOf(id)) == KindU32
}

// IsSigned reports whether id is a signed integer or float (scalar or vector).
func (in *Interner) IsSigned(id TypeID) bool {
	if in.kind(id) == KindMatrix {
		return false
	}
	switch in.kind(in.ScalarOf(id)) {
	case KindI32, KindF32, KindF16:
		return true
	}
	return false
}

// IsFloat reports whether id is f32/f16 or a vector of them.
func (in *Interner) IsFloat(id TypeID) bool {
	if in.kind(id) == KindMatrix {
		return false
	}
	switch in.kind(in.ScalarOf(id)) {
	case KindF32, KindF16:
		return true
	}
	return false
}

// IsBoolLike reports whether id is bool or a vector of bool.
func (in *Interner) IsBoolLike(id TypeID) bool {
	return in.kind(id) != KindMatrix && in.kind(in.ScalarOf(id)) == KindBool
}

// IsConstructible reports whether values of id can be created with a
// construct instruction or loaded from memory.
func (in *Interner) IsConstructible(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindBool, KindI32, KindU32, KindF32, KindF16, KindVector, KindMatrix, KindStruct:
		return true
	case KindArray:
		return tt.Count != ArrayRuntimeLength
	}
	return false
}

// WithScalar returns a type of the same shape as id whose scalar is s.
// vec3<f32> with s=bool yields vec3<bool>, provided that type was interned.
func (in *Interner) WithScalar(id, s TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return NoTypeID
	}
	if tt.Kind == KindVector {
		return in.Find(MakeVector(s, tt.Count))
	}
	if in.IsScalar(id) {
		return s
	}
	return NoTypeID
}

// Pointee returns the store type of a pointer.
func (in *Interner) Pointee(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindPointer {
		return NoTypeID
	}
	return tt.Elem
}

// NumElements returns the number of indexable elements of a composite.
// Runtime-sized arrays report ArrayRuntimeLength.
func (in *Interner) NumElements(id TypeID) uint32 {
	tt, ok := in.Lookup(id)
	if !ok {
		return 0
	}
	switch tt.Kind {
	case KindVector, KindMatrix, KindArray:
		return tt.Count
	case KindStruct:
		if info, ok := in.StructInfo(id); ok {
			return uint32(len(info.Members))
		}
	}
	return 0
}

// Element returns the type of element idx of a composite. For arrays,
// vectors and matrices idx is ignored because all elements share a type.
func (in *Interner) Element(id TypeID, idx uint32) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return NoTypeID
	}
	switch tt.Kind {
	case KindVector, KindArray:
		return tt.Elem
	case KindMatrix:
		return in.Find(MakeVector(tt.Elem, uint32(tt.Rows)))
	case KindStruct:
		info, ok := in.StructInfo(id)
		if !ok || int(idx) >= len(info.Members) {
			return NoTypeID
		}
		return info.Members[idx].Type
	}
	return NoTypeID
}

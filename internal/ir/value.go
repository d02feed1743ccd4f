package ir

import (
	"math"
	"slices"

	"shade/internal/types"
)

// ValueKind distinguishes how a value is defined.
type ValueKind uint8

const (
	// ValueResult is produced by an instruction.
	ValueResult ValueKind = iota
	// ValueParam is a function parameter.
	ValueParam
	// ValueConst is a module-owned constant.
	ValueConst
)

func (k ValueKind) String() string {
	switch k {
	case ValueResult:
		return "result"
	case ValueParam:
		return "param"
	case ValueConst:
		return "const"
	default:
		return "unknown"
	}
}

// Use is one operand slot that reads a value.
type Use struct {
	Inst InstID
	Slot int
}

// Const is the payload of a constant value. Scalars keep their bit pattern
// in Bits: bool as 0/1, i32 and u32 as the 32-bit pattern, f32 and f16 as
// IEEE binary32 bits. Zero marks the zero value of a composite type.
type Const struct {
	Bits uint64
	Zero bool
}

// Bool returns the constant as a bool.
func (c Const) Bool() bool { return c.Bits != 0 }

// I32 returns the constant as an i32.
func (c Const) I32() int32 { return int32(uint32(c.Bits)) } //nolint:gosec // bit reinterpretation

// U32 returns the constant as a u32.
func (c Const) U32() uint32 { return uint32(c.Bits) } //nolint:gosec // bit reinterpretation

// F32 returns the constant as a float32. f16 constants are stored widened.
func (c Const) F32() float32 { return math.Float32frombits(uint32(c.Bits)) } //nolint:gosec // bit reinterpretation

// Value is a typed SSA value. Its use list mirrors the operand slots of
// attached instructions that read it, in insertion order.
type Value struct {
	ID   ValueID
	Kind ValueKind
	Type types.TypeID
	Name string

	// ValueResult
	Inst  InstID
	Index int
	// ValueParam
	Func FuncID
	// ValueConst
	Const Const

	uses []Use
}

// Uses returns the use list. The slice must not be modified.
func (v *Value) Uses() []Use {
	return v.uses
}

// NumUses returns the number of operand slots reading v.
func (v *Value) NumUses() int {
	return len(v.uses)
}

// HasUses reports whether any operand slot reads v.
func (v *Value) HasUses() bool {
	return len(v.uses) > 0
}

// AddUse records a use. Adding a use that is already present is a no-op.
// Graph edits inside the package go through appendUse, which skips the
// membership scan because (inst, slot) pairs are unique by construction.
func (v *Value) AddUse(u Use) {
	if slices.Contains(v.uses, u) {
		return
	}
	v.appendUse(u)
}

func (v *Value) appendUse(u Use) {
	v.uses = append(v.uses, u)
}

// RemoveUse forgets a use and reports whether it was present.
func (v *Value) RemoveUse(u Use) bool {
	idx := slices.Index(v.uses, u)
	if idx < 0 {
		return false
	}
	v.uses = slices.Delete(v.uses, idx, idx+1)
	return true
}

package ir

import (
	"shade/internal/types"

	"golang.org/x/text/unicode/norm"
)

// Stage is the pipeline stage of an entry point.
type Stage uint8

const (
	// StageNone marks a function that is not an entry point.
	StageNone Stage = iota
	// StageCompute marks a compute entry point.
	StageCompute
	// StageVertex marks a vertex entry point.
	StageVertex
	// StageFragment marks a fragment entry point.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "none"
	}
}

// Func is a function: a name, parameters, a return type and a root block.
type Func struct {
	ID     FuncID
	Name   string
	Params []ValueID
	Return types.TypeID
	Block  BlockID

	Stage         Stage
	WorkgroupSize [3]uint32
}

// IsEntryPoint reports whether f is a pipeline entry point.
func (f *Func) IsEntryPoint() bool {
	return f.Stage != StageNone
}

// canonicalName returns the NFC form of a source-level identifier so that
// visually identical names compare equal.
func canonicalName(name string) string {
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}

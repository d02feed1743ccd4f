package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// IR structure
	IRInfo               Code = 1000
	IRUnterminatedBlock  Code = 1001
	IRTerminatorMidBlock Code = 1002
	IRRootTerminator     Code = 1003
	IRDanglingReference  Code = 1004
	IROwnership          Code = 1005
	IRSharedNode         Code = 1006
	IRExitContainment    Code = 1007
	IRExitNotRegistered  Code = 1008
	IRUseDefMismatch     Code = 1009
	IRMissingBlock       Code = 1010

	// IR types and signatures
	IRArity         Code = 1101
	IROperandType   Code = 1102
	IRResultType    Code = 1103
	IRReturnType    Code = 1104
	IRCallSignature Code = 1105
	IRExitArgs      Code = 1106
	IRSwitchCases   Code = 1107
	IRInvalidType   Code = 1108

	// IR scoping
	IRUseBeforeDef    Code = 1201
	IRValueOutOfScope Code = 1202

	// Binary codec
	BinInfo           Code = 2000
	BinMalformed      Code = 2001
	BinSchemaMismatch Code = 2002
	BinRoundTrip      Code = 2003

	// Backends
	EmitInfo        Code = 3000
	EmitUnsupported Code = 3001

	IOLoadFileError Code = 4001

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	IRInfo:               "IR information",
	IRUnterminatedBlock:  "Block has no terminator",
	IRTerminatorMidBlock: "Terminator is not the last instruction",
	IRRootTerminator:     "Function root block must end with return or unreachable",
	IRDanglingReference:  "Reference to a destroyed or unknown node",
	IROwnership:          "Ownership back-reference mismatch",
	IRSharedNode:         "Node owned by more than one parent",
	IRExitContainment:    "Exit is not nested inside its control instruction",
	IRExitNotRegistered:  "Exit is not registered on its control instruction",
	IRUseDefMismatch:     "Use list does not match operand references",
	IRMissingBlock:       "Control instruction is missing a required block",
	IRArity:              "Wrong number of operands or results",
	IROperandType:        "Operand type mismatch",
	IRResultType:         "Result type mismatch",
	IRReturnType:         "Return value does not match function return type",
	IRCallSignature:      "Call arguments do not match callee signature",
	IRExitArgs:           "Exit arguments do not match control instruction results",
	IRSwitchCases:        "Invalid switch case selectors",
	IRInvalidType:        "Invalid type",
	IRUseBeforeDef:       "Value used before its definition",
	IRValueOutOfScope:    "Value used outside of its scope",
	BinInfo:              "Binary codec information",
	BinMalformed:         "Malformed binary module",
	BinSchemaMismatch:    "Unsupported binary schema version",
	BinRoundTrip:         "Module changed across an encode/decode round trip",
	EmitInfo:             "Backend information",
	EmitUnsupported:      "Construct not expressible by the backend",
	IOLoadFileError:      "I/O load file error",
	ObsInfo:              "Observability information",
	ObsTimings:           "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("BIN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("EMIT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Package irbin serializes IR modules to a compact msgpack container.
//
// A file is the 4-byte magic "SHIR" followed by one msgpack payload. Node
// references inside the payload are dense indices into the payload's own
// tables, so arena tombstones and id gaps never reach the wire.
package irbin

// SchemaVersion is bumped whenever the payload layout changes.
const SchemaVersion uint16 = 1

var magic = [4]byte{'S', 'H', 'I', 'R'}

const noIndex int32 = -1

type payload struct {
	Schema  uint16
	Types   []typeRec
	Structs []structRec
	Values  []valueRec
	Funcs   []funcRec
	Blocks  []blockRec
	Insts   []instRec
	Root    uint32
}

type typeRec struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused // encoding directive

	Kind   uint8
	Elem   uint32
	Count  uint32
	Rows   uint8
	Space  uint8
	Access uint8
	Struct uint32 // index into Structs, 0 for none
}

type structRec struct {
	Name    string
	Members []memberRec
}

type memberRec struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused // encoding directive

	Name string
	Type uint32
}

type valueRec struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused // encoding directive

	Kind uint8
	Type uint32
	Name string
	Bits uint64
	Zero bool
}

type funcRec struct {
	Name      string
	Params    []uint32
	Return    uint32
	Block     uint32
	Stage     uint8
	Workgroup [3]uint32
}

type blockRec struct {
	Insts []uint32
}

type caseRec struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused // encoding directive

	Value   int32
	Default bool
}

type instRec struct {
	Kind     uint8
	Op       uint8
	Flags    uint8
	Operands []uint32
	Results  []uint32
	Callee   int32
	Func     int32
	Target   int32
	Blocks   []int32     `msgpack:",omitempty"`
	Cases    [][]caseRec `msgpack:",omitempty"`
}

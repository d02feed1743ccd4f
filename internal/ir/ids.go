package ir

// ValueID identifies a value inside a module arena.
type ValueID int32

// InstID identifies an instruction inside a module arena.
type InstID int32

// BlockID identifies a block inside a module arena.
type BlockID int32

// FuncID identifies a function inside a module arena.
type FuncID int32

const (
	// NoValueID marks the absence of a value.
	NoValueID ValueID = -1
	// NoInstID marks the absence of an instruction.
	NoInstID InstID = -1
	// NoBlockID marks the absence of a block.
	NoBlockID BlockID = -1
	// NoFuncID marks the absence of a function.
	NoFuncID FuncID = -1
)

package ir

import "errors"

// Errors returned by graph mutation operations. They describe misuse of the
// mutation API, not invalid programs; invalid programs are reported by
// Validate.
var (
	// ErrUnknownNode is returned when a handle does not name a live node.
	ErrUnknownNode = errors.New("ir: unknown or destroyed node")
	// ErrNotDetached is returned when inserting an instruction that is
	// already attached to a block.
	ErrNotDetached = errors.New("ir: instruction is already attached to a block")
	// ErrDetached is returned when an operation needs an attached instruction.
	ErrDetached = errors.New("ir: instruction is not attached to a block")
	// ErrValueInUse is returned when destroying a node whose results are
	// still used outside the destroyed subtree.
	ErrValueInUse = errors.New("ir: value is still in use")
	// ErrFuncInUse is returned when destroying a function that is still called.
	ErrFuncInUse = errors.New("ir: function is still called")
	// ErrRequiredBlock is returned when removing a block its control
	// instruction cannot exist without.
	ErrRequiredBlock = errors.New("ir: block is required by its control instruction")
	// ErrNotOwned is returned when a block does not belong to the given
	// control instruction.
	ErrNotOwned = errors.New("ir: block is not owned by the control instruction")
	// ErrBadSlot is returned for an operand or result index out of range.
	ErrBadSlot = errors.New("ir: slot out of range")
	// ErrNotControl is returned when a control instruction was expected.
	ErrNotControl = errors.New("ir: not a control instruction")
	// ErrNotExit is returned when an exit instruction was expected.
	ErrNotExit = errors.New("ir: not an exit instruction")
	// ErrNilModule is returned by Validate for a nil module.
	ErrNilModule = errors.New("ir: nil module")
)

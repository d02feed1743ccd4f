package ir

import "fmt"

// InstKind enumerates instruction kinds.
type InstKind uint8

const (
	// InstInvalid is the zero kind and never appears in a valid module.
	InstInvalid InstKind = iota
	// InstBinary applies a BinaryOp to two operands.
	InstBinary
	// InstUnary applies a UnaryOp to one operand.
	InstUnary
	// InstConvert converts a scalar or vector to another scalar type.
	InstConvert
	// InstLet names a value.
	InstLet
	// InstVar declares a variable and yields a pointer to it.
	InstVar
	// InstLoad reads through a pointer.
	InstLoad
	// InstStore writes through a pointer.
	InstStore
	// InstAccess indexes into a composite or a pointer to a composite.
	InstAccess
	// InstConstruct builds a composite or scalar from its components.
	InstConstruct
	// InstCall calls a function of the same module.
	InstCall
	// InstDiscard discards the current fragment invocation.
	InstDiscard
	// InstIf is a two-way structured branch.
	InstIf
	// InstLoop is a structured loop with optional initializer and continuing.
	InstLoop
	// InstSwitch is a multi-way structured branch.
	InstSwitch
	// InstReturn returns from the enclosing function.
	InstReturn
	// InstUnreachable marks a point control never reaches.
	InstUnreachable
	// InstExitIf leaves the enclosing if.
	InstExitIf
	// InstExitSwitch leaves a switch.
	InstExitSwitch
	// InstExitLoop leaves a loop.
	InstExitLoop
	// InstContinue jumps to a loop's continuing block.
	InstContinue
	// InstNextIteration starts the next iteration of a loop.
	InstNextIteration
	// InstBreakIf terminates a continuing block, leaving the loop when its
	// condition holds.
	InstBreakIf
)

var instKindNames = [...]string{
	InstInvalid:       "invalid",
	InstBinary:        "binary",
	InstUnary:         "unary",
	InstConvert:       "convert",
	InstLet:           "let",
	InstVar:           "var",
	InstLoad:          "load",
	InstStore:         "store",
	InstAccess:        "access",
	InstConstruct:     "construct",
	InstCall:          "call",
	InstDiscard:       "discard",
	InstIf:            "if",
	InstLoop:          "loop",
	InstSwitch:        "switch",
	InstReturn:        "ret",
	InstUnreachable:   "unreachable",
	InstExitIf:        "exit_if",
	InstExitSwitch:    "exit_switch",
	InstExitLoop:      "exit_loop",
	InstContinue:      "continue",
	InstNextIteration: "next_iteration",
	InstBreakIf:       "break_if",
}

func (k InstKind) String() string {
	if int(k) < len(instKindNames) {
		return instKindNames[k]
	}
	return fmt.Sprintf("InstKind(%d)", k)
}

// IsControl reports whether k owns nested blocks.
func (k InstKind) IsControl() bool {
	return k == InstIf || k == InstLoop || k == InstSwitch
}

// IsExit reports whether k transfers control to an enclosing control
// instruction.
func (k InstKind) IsExit() bool {
	switch k {
	case InstExitIf, InstExitSwitch, InstExitLoop, InstContinue, InstNextIteration, InstBreakIf:
		return true
	}
	return false
}

// IsTerminator reports whether k must be the last instruction of a block.
func (k InstKind) IsTerminator() bool {
	return k == InstReturn || k == InstUnreachable || k.IsExit()
}

// ExitTargetKind returns the control kind an exit of kind k must target.
func (k InstKind) ExitTargetKind() InstKind {
	switch k {
	case InstExitIf:
		return InstIf
	case InstExitSwitch:
		return InstSwitch
	case InstExitLoop, InstContinue, InstNextIteration, InstBreakIf:
		return InstLoop
	}
	return InstInvalid
}

// BinaryOp is the operator of an InstBinary.
type BinaryOp uint8

const (
	// OpAdd is addition.
	OpAdd BinaryOp = iota
	// OpSubtract is subtraction.
	OpSubtract
	// OpMultiply is multiplication.
	OpMultiply
	// OpDivide is division.
	OpDivide
	// OpModulo is the remainder.
	OpModulo
	// OpAnd is bitwise or logical and.
	OpAnd
	// OpOr is bitwise or logical or.
	OpOr
	// OpXor is bitwise exclusive or.
	OpXor
	// OpEqual compares for equality.
	OpEqual
	// OpNotEqual compares for inequality.
	OpNotEqual
	// OpLessThan is <.
	OpLessThan
	// OpGreaterThan is >.
	OpGreaterThan
	// OpLessThanEqual is <=.
	OpLessThanEqual
	// OpGreaterThanEqual is >=.
	OpGreaterThanEqual
	// OpShiftLeft is <<.
	OpShiftLeft
	// OpShiftRight is >>.
	OpShiftRight
)

var binaryOpNames = [...]string{
	OpAdd:              "add",
	OpSubtract:         "sub",
	OpMultiply:         "mul",
	OpDivide:           "div",
	OpModulo:           "mod",
	OpAnd:              "and",
	OpOr:               "or",
	OpXor:              "xor",
	OpEqual:            "eq",
	OpNotEqual:         "neq",
	OpLessThan:         "lt",
	OpGreaterThan:      "gt",
	OpLessThanEqual:    "lte",
	OpGreaterThanEqual: "gte",
	OpShiftLeft:        "shl",
	OpShiftRight:       "shr",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// IsComparison reports whether op yields a boolean result.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEqual && op <= OpGreaterThanEqual
}

// UnaryOp is the operator of an InstUnary.
type UnaryOp uint8

const (
	// OpNegation is arithmetic negation.
	OpNegation UnaryOp = iota
	// OpComplement is bitwise complement.
	OpComplement
	// OpNot is logical not.
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNegation:
		return "negation"
	case OpComplement:
		return "complement"
	case OpNot:
		return "not"
	default:
		return fmt.Sprintf("UnaryOp(%d)", op)
	}
}

// InstFlags carries per-instruction properties.
type InstFlags uint8

const (
	// FlagSequenced marks instructions that must not be reordered relative
	// to other sequenced instructions.
	FlagSequenced InstFlags = 1 << iota
)

// Inst is an instruction. Kind selects which payload fields are meaningful.
type Inst struct {
	ID       InstID
	Kind     InstKind
	Block    BlockID // NoBlockID while detached
	Operands []ValueID
	Results  []ValueID
	Flags    InstFlags

	Binary BinaryOp // InstBinary
	Unary  UnaryOp  // InstUnary
	Callee FuncID   // InstCall
	Func   FuncID   // InstReturn: the function being returned from
	Target InstID   // exits: the control instruction being exited
	Ctrl   *Control // InstIf, InstLoop, InstSwitch
}

// Attached reports whether the instruction sits in a block.
func (in *Inst) Attached() bool {
	return in.Block != NoBlockID
}

// Sequenced reports whether FlagSequenced is set.
func (in *Inst) Sequenced() bool {
	return in.Flags&FlagSequenced != 0
}

// HasSideEffects reports whether removing the instruction could change
// program behavior even when none of its results are used.
func (in *Inst) HasSideEffects() bool {
	switch in.Kind {
	case InstStore, InstCall, InstDiscard:
		return true
	}
	return in.Kind.IsControl() || in.Kind.IsTerminator()
}

// Result returns the i-th result or NoValueID.
func (in *Inst) Result(i int) ValueID {
	if i < 0 || i >= len(in.Results) {
		return NoValueID
	}
	return in.Results[i]
}

// Operand returns the i-th operand or NoValueID.
func (in *Inst) Operand(i int) ValueID {
	if i < 0 || i >= len(in.Operands) {
		return NoValueID
	}
	return in.Operands[i]
}

func defaultFlags(k InstKind) InstFlags {
	switch k {
	case InstLoad, InstStore, InstCall, InstDiscard, InstIf, InstLoop, InstSwitch:
		return FlagSequenced
	}
	return 0
}

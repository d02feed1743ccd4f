package ir

import (
	"errors"
	"math"

	"shade/internal/types"
)

// Builder constructs IR with a fluent API. Instructions are appended to the
// current block; with no current block they are created detached.
//
// Misuse of the underlying mutation API is recorded and returned by Err so
// construction code does not need to check every call.
type Builder struct {
	m     *Module
	ty    *types.Interner
	block BlockID
	err   error
}

// NewBuilder returns a builder for m with no current block.
func NewBuilder(m *Module) *Builder {
	return &Builder{m: m, ty: m.Types(), block: NoBlockID}
}

// Module returns the module being built.
func (b *Builder) Module() *Module { return b.m }

// Types returns the module's type interner.
func (b *Builder) Types() *types.Interner { return b.ty }

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if err != nil {
		b.err = errors.Join(b.err, err)
	}
}

// Block returns the current block.
func (b *Builder) Block() BlockID { return b.block }

// SetBlock makes blk the current block. NoBlockID creates detached
// instructions.
func (b *Builder) SetBlock(blk BlockID) { b.block = blk }

// InBlock runs fn with blk as the current block and restores the previous
// one afterwards.
func (b *Builder) InBlock(blk BlockID, fn func()) {
	prev := b.block
	b.block = blk
	defer func() { b.block = prev }()
	fn()
}

// Function declares a function and makes its root block current.
func (b *Builder) Function(name string, ret types.TypeID) FuncID {
	f := b.m.NewFunc(name, ret)
	b.block = b.m.Func(f).Block
	return f
}

// EntryPoint declares a compute entry point returning void.
func (b *Builder) EntryPoint(name string, x, y, z uint32) FuncID {
	f := b.Function(name, b.ty.Builtins().Void)
	fn := b.m.Func(f)
	fn.Stage = StageCompute
	fn.WorkgroupSize = [3]uint32{x, y, z}
	return f
}

// Param appends a parameter to f.
func (b *Builder) Param(f FuncID, name string, t types.TypeID) ValueID {
	v, err := b.m.AddParam(f, name, t)
	b.fail(err)
	return v
}

// Constants ---------------------------------------------------------------

// Bool returns a bool constant.
func (b *Builder) Bool(v bool) ValueID {
	var bits uint64
	if v {
		bits = 1
	}
	return b.m.Constant(b.ty.Builtins().Bool, Const{Bits: bits})
}

// I32 returns an i32 constant.
func (b *Builder) I32(v int32) ValueID {
	return b.m.Constant(b.ty.Builtins().I32, Const{Bits: uint64(uint32(v))}) //nolint:gosec // bit reinterpretation
}

// U32 returns a u32 constant.
func (b *Builder) U32(v uint32) ValueID {
	return b.m.Constant(b.ty.Builtins().U32, Const{Bits: uint64(v)})
}

// F32 returns an f32 constant.
func (b *Builder) F32(v float32) ValueID {
	return b.m.Constant(b.ty.Builtins().F32, Const{Bits: uint64(math.Float32bits(v))})
}

// F16 returns an f16 constant. The value is kept widened to binary32.
func (b *Builder) F16(v float32) ValueID {
	return b.m.Constant(b.ty.Builtins().F16, Const{Bits: uint64(math.Float32bits(v))})
}

// Zero returns the zero value of a constructible type.
func (b *Builder) Zero(t types.TypeID) ValueID {
	if b.ty.IsScalar(t) {
		return b.m.Constant(t, Const{})
	}
	return b.m.Constant(t, Const{Zero: true})
}

// Instructions --------------------------------------------------------------

func (b *Builder) emit(kind InstKind, operands []ValueID, results ...types.TypeID) *Inst {
	id := b.m.NewInst(kind, operands, results)
	if b.block != NoBlockID {
		b.fail(b.m.Append(b.block, id))
	}
	return b.m.Inst(id)
}

// Emit appends an instruction built with NewInst.
func (b *Builder) Emit(inst InstID) {
	if b.block != NoBlockID {
		b.fail(b.m.Append(b.block, inst))
	}
}

// Binary emits a binary instruction with an explicit result type.
func (b *Builder) Binary(op BinaryOp, t types.TypeID, lhs, rhs ValueID) ValueID {
	in := b.m.NewInst(InstBinary, []ValueID{lhs, rhs}, []types.TypeID{t})
	b.m.Inst(in).Binary = op
	b.Emit(in)
	return b.m.Result(in, 0)
}

func (b *Builder) arith(op BinaryOp, lhs, rhs ValueID) ValueID {
	t := b.m.ValueType(lhs)
	if b.ty.Width(t) == 1 {
		if w := b.ty.Width(b.m.ValueType(rhs)); w > 1 {
			t = b.m.ValueType(rhs)
		}
	}
	return b.Binary(op, t, lhs, rhs)
}

func (b *Builder) compare(op BinaryOp, lhs, rhs ValueID) ValueID {
	t := b.m.ValueType(lhs)
	res := b.ty.Builtins().Bool
	if w := b.ty.Width(t); w > 1 {
		res = b.ty.Vec(res, w)
	}
	return b.Binary(op, res, lhs, rhs)
}

// Add emits lhs + rhs.
func (b *Builder) Add(lhs, rhs ValueID) ValueID { return b.arith(OpAdd, lhs, rhs) }

// Sub emits lhs - rhs.
func (b *Builder) Sub(lhs, rhs ValueID) ValueID { return b.arith(OpSubtract, lhs, rhs) }

// Mul emits lhs * rhs.
func (b *Builder) Mul(lhs, rhs ValueID) ValueID { return b.arith(OpMultiply, lhs, rhs) }

// Div emits lhs / rhs.
func (b *Builder) Div(lhs, rhs ValueID) ValueID { return b.arith(OpDivide, lhs, rhs) }

// Mod emits lhs % rhs.
func (b *Builder) Mod(lhs, rhs ValueID) ValueID { return b.arith(OpModulo, lhs, rhs) }

// And emits lhs & rhs.
func (b *Builder) And(lhs, rhs ValueID) ValueID { return b.arith(OpAnd, lhs, rhs) }

// Or emits lhs | rhs.
func (b *Builder) Or(lhs, rhs ValueID) ValueID { return b.arith(OpOr, lhs, rhs) }

// Xor emits lhs ^ rhs.
func (b *Builder) Xor(lhs, rhs ValueID) ValueID { return b.arith(OpXor, lhs, rhs) }

// ShiftLeft emits lhs << rhs.
func (b *Builder) ShiftLeft(lhs, rhs ValueID) ValueID {
	return b.Binary(OpShiftLeft, b.m.ValueType(lhs), lhs, rhs)
}

// ShiftRight emits lhs >> rhs.
func (b *Builder) ShiftRight(lhs, rhs ValueID) ValueID {
	return b.Binary(OpShiftRight, b.m.ValueType(lhs), lhs, rhs)
}

// Equal emits lhs == rhs.
func (b *Builder) Equal(lhs, rhs ValueID) ValueID { return b.compare(OpEqual, lhs, rhs) }

// NotEqual emits lhs != rhs.
func (b *Builder) NotEqual(lhs, rhs ValueID) ValueID { return b.compare(OpNotEqual, lhs, rhs) }

// LessThan emits lhs < rhs.
func (b *Builder) LessThan(lhs, rhs ValueID) ValueID { return b.compare(OpLessThan, lhs, rhs) }

// GreaterThan emits lhs > rhs.
func (b *Builder) GreaterThan(lhs, rhs ValueID) ValueID { return b.compare(OpGreaterThan, lhs, rhs) }

// LessThanEqual emits lhs <= rhs.
func (b *Builder) LessThanEqual(lhs, rhs ValueID) ValueID {
	return b.compare(OpLessThanEqual, lhs, rhs)
}

// GreaterThanEqual emits lhs >= rhs.
func (b *Builder) GreaterThanEqual(lhs, rhs ValueID) ValueID {
	return b.compare(OpGreaterThanEqual, lhs, rhs)
}

// Unary emits a unary instruction with the operand's type.
func (b *Builder) Unary(op UnaryOp, v ValueID) ValueID {
	in := b.m.NewInst(InstUnary, []ValueID{v}, []types.TypeID{b.m.ValueType(v)})
	b.m.Inst(in).Unary = op
	b.Emit(in)
	return b.m.Result(in, 0)
}

// Negate emits -v.
func (b *Builder) Negate(v ValueID) ValueID { return b.Unary(OpNegation, v) }

// Complement emits ~v.
func (b *Builder) Complement(v ValueID) ValueID { return b.Unary(OpComplement, v) }

// Not emits !v.
func (b *Builder) Not(v ValueID) ValueID { return b.Unary(OpNot, v) }

// Convert emits a conversion of v to t.
func (b *Builder) Convert(t types.TypeID, v ValueID) ValueID {
	return b.emit(InstConvert, []ValueID{v}, t).Results[0]
}

// Let emits a named copy of v.
func (b *Builder) Let(name string, v ValueID) ValueID {
	r := b.emit(InstLet, []ValueID{v}, b.m.ValueType(v)).Results[0]
	b.fail(b.m.SetName(r, name))
	return r
}

// Var declares a read_write variable of store type t in space. init may be
// NoValueID.
func (b *Builder) Var(name string, space types.AddressSpace, t types.TypeID, init ValueID) ValueID {
	var ops []ValueID
	if init != NoValueID {
		ops = []ValueID{init}
	}
	ptr := b.ty.Ptr(space, t, types.AccessReadWrite)
	r := b.emit(InstVar, ops, ptr).Results[0]
	if name != "" {
		b.fail(b.m.SetName(r, name))
	}
	return r
}

// GlobalVar declares a private variable in the module root block.
func (b *Builder) GlobalVar(name string, t types.TypeID, init ValueID) ValueID {
	var r ValueID
	b.InBlock(b.m.Root(), func() {
		r = b.Var(name, types.SpacePrivate, t, init)
	})
	return r
}

// Load emits a read through ptr.
func (b *Builder) Load(ptr ValueID) ValueID {
	return b.emit(InstLoad, []ValueID{ptr}, b.ty.Pointee(b.m.ValueType(ptr))).Results[0]
}

// Store emits a write of v through ptr.
func (b *Builder) Store(ptr, v ValueID) InstID {
	return b.emit(InstStore, []ValueID{ptr, v}).ID
}

// Access emits an access chain into base yielding type t.
func (b *Builder) Access(t types.TypeID, base ValueID, indices ...ValueID) ValueID {
	ops := append([]ValueID{base}, indices...)
	return b.emit(InstAccess, ops, t).Results[0]
}

// Construct emits a constructor of t from args.
func (b *Builder) Construct(t types.TypeID, args ...ValueID) ValueID {
	return b.emit(InstConstruct, args, t).Results[0]
}

// Call emits a call of f. Void functions produce no result.
func (b *Builder) Call(f FuncID, args ...ValueID) InstID {
	var results []types.TypeID
	if fn := b.m.Func(f); fn != nil && !b.ty.IsVoid(fn.Return) {
		results = append(results, fn.Return)
	} else if fn == nil {
		b.fail(ErrUnknownNode)
	}
	in := b.emit(InstCall, args, results...)
	in.Callee = f
	return in.ID
}

// CallValue emits a call and returns its result or NoValueID.
func (b *Builder) CallValue(f FuncID, args ...ValueID) ValueID {
	return b.m.Result(b.Call(f, args...), 0)
}

// Return emits a return from f with an optional value.
func (b *Builder) Return(f FuncID, v ...ValueID) InstID {
	in := b.emit(InstReturn, v)
	in.Func = f
	return in.ID
}

// Unreachable emits an unreachable terminator.
func (b *Builder) Unreachable() InstID {
	return b.emit(InstUnreachable, nil).ID
}

// Discard emits a fragment discard.
func (b *Builder) Discard() InstID {
	return b.emit(InstDiscard, nil).ID
}

// Control instructions ------------------------------------------------------

// If emits an if on cond with empty true and false blocks.
func (b *Builder) If(cond ValueID, results ...types.TypeID) InstID {
	in := b.emit(InstIf, []ValueID{cond}, results...)
	b.fail(b.m.SetControlBlock(in.ID, IfTrue, b.m.NewBlock()))
	b.fail(b.m.SetControlBlock(in.ID, IfFalse, b.m.NewBlock()))
	return in.ID
}

// Loop emits a loop with an empty body block.
func (b *Builder) Loop(results ...types.TypeID) InstID {
	in := b.emit(InstLoop, nil, results...)
	b.fail(b.m.SetControlBlock(in.ID, LoopBody, b.m.NewBlock()))
	return in.ID
}

// Switch emits a switch on sel without cases.
func (b *Builder) Switch(sel ValueID, results ...types.TypeID) InstID {
	return b.emit(InstSwitch, []ValueID{sel}, results...).ID
}

// Case adds a case selecting the given constants and returns its block.
func (b *Builder) Case(sw InstID, selectors ...ValueID) BlockID {
	sels := make([]CaseSelector, 0, len(selectors))
	for _, s := range selectors {
		sels = append(sels, CaseSelector{Value: s})
	}
	return b.addCase(sw, sels)
}

// DefaultCase adds a case holding the default selector plus the given
// constants and returns its block.
func (b *Builder) DefaultCase(sw InstID, selectors ...ValueID) BlockID {
	sels := make([]CaseSelector, 0, len(selectors)+1)
	for _, s := range selectors {
		sels = append(sels, CaseSelector{Value: s})
	}
	sels = append(sels, CaseSelector{Value: NoValueID, Default: true})
	return b.addCase(sw, sels)
}

func (b *Builder) addCase(sw InstID, sels []CaseSelector) BlockID {
	blk := b.m.NewBlock()
	b.fail(b.m.AddCase(sw, sels, blk))
	return blk
}

// TrueBlock returns the true block of an if.
func (b *Builder) TrueBlock(ifInst InstID) BlockID { return b.ctrlBlock(ifInst, IfTrue) }

// FalseBlock returns the false block of an if.
func (b *Builder) FalseBlock(ifInst InstID) BlockID { return b.ctrlBlock(ifInst, IfFalse) }

// Body returns the body block of a loop.
func (b *Builder) Body(loop InstID) BlockID { return b.ctrlBlock(loop, LoopBody) }

// Initializer returns the initializer block of a loop, creating it on first
// use.
func (b *Builder) Initializer(loop InstID) BlockID { return b.ensureSlot(loop, LoopInitializer) }

// Continuing returns the continuing block of a loop, creating it on first
// use.
func (b *Builder) Continuing(loop InstID) BlockID { return b.ensureSlot(loop, LoopContinuing) }

func (b *Builder) ctrlBlock(ctrl InstID, slot int) BlockID {
	in := b.m.Inst(ctrl)
	if in == nil {
		b.fail(ErrUnknownNode)
		return NoBlockID
	}
	return in.Ctrl.Block(slot)
}

func (b *Builder) ensureSlot(loop InstID, slot int) BlockID {
	if blk := b.ctrlBlock(loop, slot); blk != NoBlockID {
		return blk
	}
	blk := b.m.NewBlock()
	b.fail(b.m.SetControlBlock(loop, slot, blk))
	return blk
}

// Exits ---------------------------------------------------------------------

func (b *Builder) exit(kind InstKind, target InstID, args []ValueID) InstID {
	in := b.emit(kind, args)
	b.fail(b.m.SetExitTarget(in.ID, target))
	return in.ID
}

// ExitIf leaves ifInst, passing its result values.
func (b *Builder) ExitIf(ifInst InstID, args ...ValueID) InstID {
	return b.exit(InstExitIf, ifInst, args)
}

// ExitSwitch leaves sw, passing its result values.
func (b *Builder) ExitSwitch(sw InstID, args ...ValueID) InstID {
	return b.exit(InstExitSwitch, sw, args)
}

// ExitLoop leaves loop, passing its result values.
func (b *Builder) ExitLoop(loop InstID, args ...ValueID) InstID {
	return b.exit(InstExitLoop, loop, args)
}

// Continue jumps to the continuing block of loop.
func (b *Builder) Continue(loop InstID) InstID {
	return b.exit(InstContinue, loop, nil)
}

// NextIteration starts the next iteration of loop.
func (b *Builder) NextIteration(loop InstID) InstID {
	return b.exit(InstNextIteration, loop, nil)
}

// BreakIf ends the continuing block of loop, leaving it when cond holds.
func (b *Builder) BreakIf(loop InstID, cond ValueID) InstID {
	return b.exit(InstBreakIf, loop, []ValueID{cond})
}

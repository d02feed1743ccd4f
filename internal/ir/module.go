package ir

import (
	"fmt"
	"iter"
	"slices"

	"fortio.org/safecast"

	"shade/internal/types"
)

// Module is the arena owning every node of a program. Nodes reference each
// other by id; destroyed nodes leave a nil tombstone so ids are never
// reused.
//
// A Module is not safe for concurrent mutation. Read-only use, such as
// validation or printing, may proceed from several goroutines once
// construction is finished.
type Module struct {
	types *types.Interner

	values []*Value
	insts  []*Inst
	blocks []*Block
	funcs  []*Func

	order  []FuncID
	root   BlockID
	consts map[constKey]ValueID
	cOrder []ValueID
}

type constKey struct {
	Type types.TypeID
	Bits uint64
	Zero bool
}

// NewModule creates an empty module. A nil interner gets a fresh one.
func NewModule(in *types.Interner) *Module {
	if in == nil {
		in = types.NewInterner()
	}
	m := &Module{
		types:  in,
		consts: make(map[constKey]ValueID),
	}
	m.root = m.NewBlock()
	return m
}

// Types returns the type interner of the module.
func (m *Module) Types() *types.Interner {
	return m.types
}

// Root returns the module-scope block holding global variables.
func (m *Module) Root() BlockID {
	return m.root
}

func arenaID(n int) int32 {
	id, err := safecast.Conv[int32](n)
	if err != nil {
		panic(fmt.Errorf("ir: arena overflow: %w", err))
	}
	return id
}

// Value returns the value with the given id or nil.
func (m *Module) Value(id ValueID) *Value {
	if id < 0 || int(id) >= len(m.values) {
		return nil
	}
	return m.values[id]
}

// Inst returns the instruction with the given id or nil.
func (m *Module) Inst(id InstID) *Inst {
	if id < 0 || int(id) >= len(m.insts) {
		return nil
	}
	return m.insts[id]
}

// Block returns the block with the given id or nil.
func (m *Module) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(m.blocks) {
		return nil
	}
	return m.blocks[id]
}

// Func returns the function with the given id or nil.
func (m *Module) Func(id FuncID) *Func {
	if id < 0 || int(id) >= len(m.funcs) {
		return nil
	}
	return m.funcs[id]
}

// ValueType returns the type of a value or NoTypeID.
func (m *Module) ValueType(id ValueID) types.TypeID {
	if v := m.Value(id); v != nil {
		return v.Type
	}
	return types.NoTypeID
}

// Result returns the i-th result of an instruction or NoValueID.
func (m *Module) Result(inst InstID, i int) ValueID {
	in := m.Inst(inst)
	if in == nil {
		return NoValueID
	}
	return in.Result(i)
}

// Terminator returns the last instruction of blk when it is a terminator.
func (m *Module) Terminator(blk BlockID) *Inst {
	b := m.Block(blk)
	if b == nil {
		return nil
	}
	last := m.Inst(b.Last())
	if last == nil || !last.Kind.IsTerminator() {
		return nil
	}
	return last
}

// NumFuncs returns the number of live functions.
func (m *Module) NumFuncs() int {
	return len(m.order)
}

// FuncIDs returns live functions in declaration order.
func (m *Module) FuncIDs() []FuncID {
	return slices.Clone(m.order)
}

// Functions iterates live functions in declaration order.
func (m *Module) Functions() iter.Seq[*Func] {
	return func(yield func(*Func) bool) {
		for _, id := range m.order {
			if f := m.Func(id); f != nil && !yield(f) {
				return
			}
		}
	}
}

// FuncByName returns the first function with the given name.
func (m *Module) FuncByName(name string) (*Func, bool) {
	name = canonicalName(name)
	for f := range m.Functions() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Instructions iterates the instructions of blk in order. The sequence is a
// snapshot, so the block may be edited during iteration.
func (m *Module) Instructions(blk BlockID) iter.Seq[*Inst] {
	return func(yield func(*Inst) bool) {
		b := m.Block(blk)
		if b == nil {
			return
		}
		for _, id := range slices.Clone(b.insts) {
			in := m.Inst(id)
			if in == nil {
				continue
			}
			if !yield(in) {
				return
			}
		}
	}
}

// Values iterates every live value in id order.
func (m *Module) Values() iter.Seq[*Value] {
	return func(yield func(*Value) bool) {
		for _, v := range m.values {
			if v != nil && !yield(v) {
				return
			}
		}
	}
}

// Insts iterates every live instruction in id order, attached or not.
func (m *Module) Insts() iter.Seq[*Inst] {
	return func(yield func(*Inst) bool) {
		for _, in := range m.insts {
			if in != nil && !yield(in) {
				return
			}
		}
	}
}

// Blocks iterates every live block in id order.
func (m *Module) Blocks() iter.Seq[*Block] {
	return func(yield func(*Block) bool) {
		for _, b := range m.blocks {
			if b != nil && !yield(b) {
				return
			}
		}
	}
}

// Constants returns the interned constants in creation order.
func (m *Module) Constants() []ValueID {
	return slices.Clone(m.cOrder)
}

// NewFunc appends a function with an empty root block to the module.
func (m *Module) NewFunc(name string, ret types.TypeID) FuncID {
	id := FuncID(arenaID(len(m.funcs)))
	blk := m.NewBlock()
	f := &Func{
		ID:     id,
		Name:   canonicalName(name),
		Return: ret,
		Block:  blk,
	}
	m.funcs = append(m.funcs, f)
	m.order = append(m.order, id)
	m.blocks[blk].Func = id
	return id
}

// AddParam appends a parameter to f.
func (m *Module) AddParam(f FuncID, name string, t types.TypeID) (ValueID, error) {
	fn := m.Func(f)
	if fn == nil {
		return NoValueID, fmt.Errorf("add param to func %d: %w", f, ErrUnknownNode)
	}
	v := m.newValue(ValueParam, t)
	v.Name = canonicalName(name)
	v.Func = f
	fn.Params = append(fn.Params, v.ID)
	return v.ID, nil
}

// NewBlock allocates an unowned block.
func (m *Module) NewBlock() BlockID {
	id := BlockID(arenaID(len(m.blocks)))
	m.blocks = append(m.blocks, &Block{ID: id, Parent: NoInstID, Func: NoFuncID})
	return id
}

// NewInst allocates a detached instruction with fresh result values.
// Kind-specific payload (operator, callee, exit target) is set by the caller
// on the returned node; control instructions get an empty Control.
func (m *Module) NewInst(kind InstKind, operands []ValueID, resultTypes []types.TypeID) InstID {
	id := InstID(arenaID(len(m.insts)))
	in := &Inst{
		ID:       id,
		Kind:     kind,
		Block:    NoBlockID,
		Operands: slices.Clone(operands),
		Flags:    defaultFlags(kind),
		Callee:   NoFuncID,
		Func:     NoFuncID,
		Target:   NoInstID,
	}
	if kind.IsControl() {
		in.Ctrl = newControl(kind)
	}
	m.insts = append(m.insts, in)
	for i, t := range resultTypes {
		v := m.newValue(ValueResult, t)
		v.Inst = id
		v.Index = i
		in.Results = append(in.Results, v.ID)
	}
	return id
}

func (m *Module) newValue(kind ValueKind, t types.TypeID) *Value {
	v := &Value{
		ID:   ValueID(arenaID(len(m.values))),
		Kind: kind,
		Type: t,
		Inst: NoInstID,
		Func: NoFuncID,
	}
	m.values = append(m.values, v)
	return v
}

// Constant returns the interned constant of type t with payload c.
func (m *Module) Constant(t types.TypeID, c Const) ValueID {
	key := constKey{Type: t, Bits: c.Bits, Zero: c.Zero}
	if id, ok := m.consts[key]; ok {
		return id
	}
	v := m.newValue(ValueConst, t)
	v.Const = c
	m.consts[key] = v.ID
	m.cOrder = append(m.cOrder, v.ID)
	return v.ID
}

// SetName renames a value.
func (m *Module) SetName(id ValueID, name string) error {
	v := m.Value(id)
	if v == nil {
		return fmt.Errorf("set name of value %d: %w", id, ErrUnknownNode)
	}
	v.Name = canonicalName(name)
	return nil
}

// SetControlBlock installs an unowned block into slot of an if or loop.
func (m *Module) SetControlBlock(ctrl InstID, slot int, blk BlockID) error {
	in, b, err := m.claimBlock(ctrl, blk)
	if err != nil {
		return err
	}
	if in.Kind == InstSwitch || slot < 0 || slot >= len(in.Ctrl.Blocks) {
		return fmt.Errorf("set block slot %d of %s: %w", slot, in.Kind, ErrBadSlot)
	}
	if old := in.Ctrl.Blocks[slot]; old != NoBlockID {
		if ob := m.Block(old); ob != nil {
			ob.Parent = NoInstID
		}
	}
	in.Ctrl.Blocks[slot] = blk
	b.Parent = ctrl
	return nil
}

// AddCase appends a case to a switch.
func (m *Module) AddCase(ctrl InstID, selectors []CaseSelector, blk BlockID) error {
	in, b, err := m.claimBlock(ctrl, blk)
	if err != nil {
		return err
	}
	if in.Kind != InstSwitch {
		return fmt.Errorf("add case to %s: %w", in.Kind, ErrNotControl)
	}
	in.Ctrl.Blocks = append(in.Ctrl.Blocks, blk)
	in.Ctrl.Cases = append(in.Ctrl.Cases, slices.Clone(selectors))
	b.Parent = ctrl
	return nil
}

func (m *Module) claimBlock(ctrl InstID, blk BlockID) (*Inst, *Block, error) {
	in := m.Inst(ctrl)
	if in == nil {
		return nil, nil, fmt.Errorf("control %d: %w", ctrl, ErrUnknownNode)
	}
	if in.Ctrl == nil {
		return nil, nil, fmt.Errorf("%s %d: %w", in.Kind, ctrl, ErrNotControl)
	}
	b := m.Block(blk)
	if b == nil {
		return nil, nil, fmt.Errorf("block %d: %w", blk, ErrUnknownNode)
	}
	if b.Parent != NoInstID || b.Func != NoFuncID || blk == m.root {
		return nil, nil, fmt.Errorf("block %d already owned: %w", blk, ErrNotOwned)
	}
	return in, b, nil
}

// EnclosingFunc returns the function whose body contains blk, or NoFuncID
// for the module root and for orphaned blocks.
func (m *Module) EnclosingFunc(blk BlockID) FuncID {
	for range len(m.blocks) + 1 {
		b := m.Block(blk)
		if b == nil {
			return NoFuncID
		}
		if b.Func != NoFuncID {
			return b.Func
		}
		parent := m.Inst(b.Parent)
		if parent == nil {
			return NoFuncID
		}
		blk = parent.Block
	}
	return NoFuncID
}

package ir

import (
	"fmt"
	"slices"
)

// Append attaches a detached instruction at the end of blk. When the block
// already ends in a terminator the instruction goes right before it.
func (m *Module) Append(blk BlockID, inst InstID) error {
	b, in, err := m.prepareInsert(blk, inst)
	if err != nil {
		return err
	}
	pos := len(b.insts)
	if last := m.Inst(b.Last()); last != nil && last.Kind.IsTerminator() && !in.Kind.IsTerminator() {
		pos--
	}
	m.insertAt(b, pos, in)
	return nil
}

// Prepend attaches a detached instruction at the start of blk.
func (m *Module) Prepend(blk BlockID, inst InstID) error {
	b, in, err := m.prepareInsert(blk, inst)
	if err != nil {
		return err
	}
	m.insertAt(b, 0, in)
	return nil
}

// InsertBefore attaches a detached instruction right before anchor.
func (m *Module) InsertBefore(anchor, inst InstID) error {
	return m.insertNear(anchor, inst, 0)
}

// InsertAfter attaches a detached instruction right after anchor.
func (m *Module) InsertAfter(anchor, inst InstID) error {
	return m.insertNear(anchor, inst, 1)
}

func (m *Module) insertNear(anchor, inst InstID, offset int) error {
	a := m.Inst(anchor)
	if a == nil {
		return fmt.Errorf("anchor %d: %w", anchor, ErrUnknownNode)
	}
	if !a.Attached() {
		return fmt.Errorf("anchor %d: %w", anchor, ErrDetached)
	}
	b, in, err := m.prepareInsert(a.Block, inst)
	if err != nil {
		return err
	}
	pos := slices.Index(b.insts, anchor)
	m.insertAt(b, pos+offset, in)
	return nil
}

func (m *Module) prepareInsert(blk BlockID, inst InstID) (*Block, *Inst, error) {
	b := m.Block(blk)
	if b == nil {
		return nil, nil, fmt.Errorf("block %d: %w", blk, ErrUnknownNode)
	}
	in := m.Inst(inst)
	if in == nil {
		return nil, nil, fmt.Errorf("inst %d: %w", inst, ErrUnknownNode)
	}
	if in.Attached() {
		return nil, nil, fmt.Errorf("inst %d in block %d: %w", inst, in.Block, ErrNotDetached)
	}
	return b, in, nil
}

func (m *Module) insertAt(b *Block, pos int, in *Inst) {
	b.insts = slices.Insert(b.insts, pos, in.ID)
	in.Block = b.ID
	for slot, op := range in.Operands {
		if v := m.Value(op); v != nil {
			v.appendUse(Use{Inst: in.ID, Slot: slot})
		}
	}
}

// Remove detaches an instruction from its block. Its operands are kept so
// it can be inserted again, but they no longer count as uses.
func (m *Module) Remove(inst InstID) error {
	in := m.Inst(inst)
	if in == nil {
		return fmt.Errorf("inst %d: %w", inst, ErrUnknownNode)
	}
	if !in.Attached() {
		return fmt.Errorf("inst %d: %w", inst, ErrDetached)
	}
	if b := m.Block(in.Block); b != nil {
		if idx := slices.Index(b.insts, inst); idx >= 0 {
			b.insts = slices.Delete(b.insts, idx, idx+1)
		}
	}
	m.dropUses(in)
	in.Block = NoBlockID
	return nil
}

func (m *Module) dropUses(in *Inst) {
	for slot, op := range in.Operands {
		if v := m.Value(op); v != nil {
			v.RemoveUse(Use{Inst: in.ID, Slot: slot})
		}
	}
}

// SetOperand replaces operand slot of inst, keeping use lists in sync.
func (m *Module) SetOperand(inst InstID, slot int, v ValueID) error {
	in := m.Inst(inst)
	if in == nil {
		return fmt.Errorf("inst %d: %w", inst, ErrUnknownNode)
	}
	if slot < 0 || slot >= len(in.Operands) {
		return fmt.Errorf("operand %d of %s: %w", slot, in.Kind, ErrBadSlot)
	}
	nv := m.Value(v)
	if nv == nil {
		return fmt.Errorf("value %d: %w", v, ErrUnknownNode)
	}
	u := Use{Inst: inst, Slot: slot}
	if in.Attached() {
		if old := m.Value(in.Operands[slot]); old != nil {
			old.RemoveUse(u)
		}
		nv.appendUse(u)
	}
	in.Operands[slot] = v
	return nil
}

// AppendOperand adds a trailing operand, such as an exit argument.
func (m *Module) AppendOperand(inst InstID, v ValueID) error {
	in := m.Inst(inst)
	if in == nil {
		return fmt.Errorf("inst %d: %w", inst, ErrUnknownNode)
	}
	nv := m.Value(v)
	if nv == nil {
		return fmt.Errorf("value %d: %w", v, ErrUnknownNode)
	}
	in.Operands = append(in.Operands, v)
	if in.Attached() {
		nv.appendUse(Use{Inst: inst, Slot: len(in.Operands) - 1})
	}
	return nil
}

// ReplaceAllUsesWith rewrites every use of old to read repl instead. It is a
// no-op when old and repl are the same value.
func (m *Module) ReplaceAllUsesWith(old, repl ValueID) error {
	if old == repl {
		return nil
	}
	ov := m.Value(old)
	if ov == nil {
		return fmt.Errorf("value %d: %w", old, ErrUnknownNode)
	}
	nv := m.Value(repl)
	if nv == nil {
		return fmt.Errorf("value %d: %w", repl, ErrUnknownNode)
	}
	uses := ov.uses
	ov.uses = nil
	nv.uses = slices.Grow(nv.uses, len(uses))
	for _, u := range uses {
		if in := m.Inst(u.Inst); in != nil && u.Slot < len(in.Operands) {
			in.Operands[u.Slot] = repl
			nv.appendUse(u)
		}
	}
	return nil
}

// SetExitTarget points an exit at a control instruction, moving its
// registration from the previous target.
func (m *Module) SetExitTarget(exit, ctrl InstID) error {
	e := m.Inst(exit)
	if e == nil {
		return fmt.Errorf("exit %d: %w", exit, ErrUnknownNode)
	}
	if !e.Kind.IsExit() {
		return fmt.Errorf("%s %d: %w", e.Kind, exit, ErrNotExit)
	}
	c := m.Inst(ctrl)
	if c == nil {
		return fmt.Errorf("control %d: %w", ctrl, ErrUnknownNode)
	}
	if c.Ctrl == nil {
		return fmt.Errorf("%s %d: %w", c.Kind, ctrl, ErrNotControl)
	}
	if prev := m.Inst(e.Target); prev != nil && prev.Ctrl != nil {
		prev.Ctrl.RemoveExit(exit)
	}
	e.Target = ctrl
	c.Ctrl.AddExit(exit)
	return nil
}

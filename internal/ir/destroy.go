package ir

import (
	"fmt"
	"slices"
)

// subtree collects an instruction and everything nested below it.
type subtree struct {
	insts  map[InstID]struct{}
	blocks []BlockID
}

func (m *Module) collectInst(s *subtree, id InstID) {
	in := m.Inst(id)
	if in == nil {
		return
	}
	if _, seen := s.insts[id]; seen {
		return
	}
	s.insts[id] = struct{}{}
	in.Ctrl.ForeachBlock(func(b BlockID) { m.collectBlock(s, b) })
}

func (m *Module) collectBlock(s *subtree, id BlockID) {
	b := m.Block(id)
	if b == nil || slices.Contains(s.blocks, id) {
		return
	}
	s.blocks = append(s.blocks, id)
	for _, inst := range b.insts {
		m.collectInst(s, inst)
	}
}

// checkEscapes fails when a result inside s is read from outside s.
func (m *Module) checkEscapes(s *subtree) error {
	for id := range s.insts {
		for _, r := range m.insts[id].Results {
			v := m.Value(r)
			if v == nil {
				continue
			}
			for _, u := range v.uses {
				if _, inside := s.insts[u.Inst]; !inside {
					return fmt.Errorf("value %d read by inst %d: %w", r, u.Inst, ErrValueInUse)
				}
			}
		}
	}
	return nil
}

// DestroyInst destroys an instruction and, for control instructions, every
// nested block and instruction. The operation is atomic: it fails without
// changes when a result of the subtree is still used outside of it.
func (m *Module) DestroyInst(inst InstID) error {
	in := m.Inst(inst)
	if in == nil {
		return fmt.Errorf("inst %d: %w", inst, ErrUnknownNode)
	}
	s := &subtree{insts: make(map[InstID]struct{})}
	m.collectInst(s, inst)
	if err := m.checkEscapes(s); err != nil {
		return err
	}
	if in.Attached() {
		if err := m.Remove(inst); err != nil {
			return err
		}
	}
	m.teardownInst(in)
	return nil
}

// teardownInst releases an instruction whose uses are already dropped or
// about to be dropped by the caller's cascade.
func (m *Module) teardownInst(in *Inst) {
	if in.Attached() {
		m.dropUses(in)
		in.Block = NoBlockID
	}
	if in.Kind.IsExit() {
		if t := m.Inst(in.Target); t != nil && t.Ctrl != nil {
			t.Ctrl.RemoveExit(in.ID)
		}
	}
	if in.Ctrl != nil {
		for _, e := range in.Ctrl.Exits() {
			if ex := m.Inst(e); ex != nil && ex.Target == in.ID {
				ex.Target = NoInstID
			}
		}
		in.Ctrl.Destroy(m.teardownBlock)
	}
	for _, r := range in.Results {
		if int(r) >= 0 && int(r) < len(m.values) {
			m.values[r] = nil
		}
	}
	m.insts[in.ID] = nil
}

// teardownBlock destroys a block's instructions in reverse order so users
// go before the values they read.
func (m *Module) teardownBlock(id BlockID) {
	b := m.Block(id)
	if b == nil {
		return
	}
	for _, inst := range slices.Backward(b.insts) {
		if in := m.Inst(inst); in != nil {
			m.teardownInst(in)
		}
	}
	b.insts = nil
	m.blocks[id] = nil
}

// RemoveBlock destroys an optional block of a control instruction: a switch
// case or a loop initializer or continuing block. Exits inside the block are
// unregistered from their targets.
func (m *Module) RemoveBlock(ctrl InstID, blk BlockID) error {
	in := m.Inst(ctrl)
	if in == nil {
		return fmt.Errorf("control %d: %w", ctrl, ErrUnknownNode)
	}
	if in.Ctrl == nil {
		return fmt.Errorf("%s %d: %w", in.Kind, ctrl, ErrNotControl)
	}
	slot := in.Ctrl.SlotOf(blk)
	if slot < 0 {
		return fmt.Errorf("block %d of %s %d: %w", blk, in.Kind, ctrl, ErrNotOwned)
	}
	switch {
	case in.Kind == InstIf, in.Kind == InstLoop && slot == LoopBody:
		return fmt.Errorf("block %d of %s %d: %w", blk, in.Kind, ctrl, ErrRequiredBlock)
	}
	s := &subtree{insts: make(map[InstID]struct{})}
	m.collectBlock(s, blk)
	if err := m.checkEscapes(s); err != nil {
		return err
	}
	if in.Kind == InstSwitch {
		in.Ctrl.Blocks = slices.Delete(in.Ctrl.Blocks, slot, slot+1)
		in.Ctrl.Cases = slices.Delete(in.Ctrl.Cases, slot, slot+1)
	} else {
		in.Ctrl.Blocks[slot] = NoBlockID
	}
	m.teardownBlock(blk)
	return nil
}

// DestroyFunction removes a function, its parameters and its body. It fails
// while any call instruction still names the function.
func (m *Module) DestroyFunction(f FuncID) error {
	fn := m.Func(f)
	if fn == nil {
		return fmt.Errorf("func %d: %w", f, ErrUnknownNode)
	}
	for in := range m.Insts() {
		if in.Kind == InstCall && in.Callee == f {
			return fmt.Errorf("func %q called by inst %d: %w", fn.Name, in.ID, ErrFuncInUse)
		}
	}
	s := &subtree{insts: make(map[InstID]struct{})}
	m.collectBlock(s, fn.Block)
	if err := m.checkEscapes(s); err != nil {
		return err
	}
	for _, p := range fn.Params {
		if v := m.Value(p); v != nil {
			for _, u := range v.uses {
				if _, inside := s.insts[u.Inst]; !inside {
					return fmt.Errorf("param %d read by inst %d: %w", p, u.Inst, ErrValueInUse)
				}
			}
		}
	}
	m.teardownBlock(fn.Block)
	for _, p := range fn.Params {
		if int(p) >= 0 && int(p) < len(m.values) {
			m.values[p] = nil
		}
	}
	m.order = slices.DeleteFunc(m.order, func(id FuncID) bool { return id == f })
	m.funcs[f] = nil
	return nil
}

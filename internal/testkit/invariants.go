package testkit

import (
	"errors"
	"fmt"

	"shade/internal/ir"
)

// CheckUseDef verifies that use lists and operand slots describe the same
// set of edges:
// 1) every operand slot of an attached instruction appears in the operand
// value's use list
// 2) every use names a live, attached instruction whose slot reads the value
// 3) detached instructions contribute no uses
// 4) no use is recorded twice
func CheckUseDef(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	var errs []error

	// 1) and 3) operand side
	for in := range m.Insts() {
		for slot, op := range in.Operands {
			v := m.Value(op)
			if v == nil {
				if in.Attached() {
					errs = append(errs, fmt.Errorf("inst %d slot %d: operand %d is dead", in.ID, slot, op))
				}
				continue
			}
			has := containsUse(v.Uses(), ir.Use{Inst: in.ID, Slot: slot})
			switch {
			case in.Attached() && !has:
				errs = append(errs, fmt.Errorf("inst %d slot %d: missing from uses of value %d", in.ID, slot, op))
			case !in.Attached() && has:
				errs = append(errs, fmt.Errorf("detached inst %d slot %d: still recorded as use of value %d", in.ID, slot, op))
			}
		}
	}

	// 2) and 4) use side
	for v := range m.Values() {
		seen := make(map[ir.Use]bool, v.NumUses())
		for _, u := range v.Uses() {
			if seen[u] {
				errs = append(errs, fmt.Errorf("value %d: duplicate use %+v", v.ID, u))
			}
			seen[u] = true
			in := m.Inst(u.Inst)
			switch {
			case in == nil:
				errs = append(errs, fmt.Errorf("value %d: use by dead inst %d", v.ID, u.Inst))
			case !in.Attached():
				errs = append(errs, fmt.Errorf("value %d: use by detached inst %d", v.ID, u.Inst))
			case in.Operand(u.Slot) != v.ID:
				errs = append(errs, fmt.Errorf("value %d: inst %d slot %d reads %d", v.ID, u.Inst, u.Slot, in.Operand(u.Slot)))
			}
		}
	}
	return errors.Join(errs...)
}

// CheckExitRegistry verifies that control instructions and exits agree:
// 1) every registered exit is a live exit targeting the control instruction
// 2) every live, attached exit is registered on its target
func CheckExitRegistry(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	var errs []error
	for in := range m.Insts() {
		if in.Ctrl != nil {
			for _, e := range in.Ctrl.Exits() {
				ex := m.Inst(e)
				if ex == nil || !ex.Kind.IsExit() || ex.Target != in.ID {
					errs = append(errs, fmt.Errorf("%s %d: stale exit %d", in.Kind, in.ID, e))
				}
			}
		}
		if in.Kind.IsExit() && in.Attached() {
			t := m.Inst(in.Target)
			if t == nil || t.Ctrl == nil || !t.Ctrl.HasExit(in.ID) {
				errs = append(errs, fmt.Errorf("%s %d: not registered on target %d", in.Kind, in.ID, in.Target))
			}
		}
	}
	return errors.Join(errs...)
}

// CheckOwnership verifies parent back-references: every instruction listed
// in a block points back at it and every block owned by a control
// instruction points back at its owner.
func CheckOwnership(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	var errs []error
	for b := range m.Blocks() {
		for _, id := range b.Insts() {
			in := m.Inst(id)
			if in == nil {
				errs = append(errs, fmt.Errorf("block %d: dead inst %d", b.ID, id))
				continue
			}
			if in.Block != b.ID {
				errs = append(errs, fmt.Errorf("block %d: inst %d points at block %d", b.ID, id, in.Block))
			}
			if in.Ctrl == nil {
				continue
			}
			in.Ctrl.ForeachBlock(func(nb ir.BlockID) {
				child := m.Block(nb)
				if child == nil {
					errs = append(errs, fmt.Errorf("%s %d: dead block %d", in.Kind, id, nb))
					return
				}
				if child.Parent != id {
					errs = append(errs, fmt.Errorf("%s %d: block %d points at parent %d", in.Kind, id, nb, child.Parent))
				}
			})
		}
	}
	return errors.Join(errs...)
}

// CheckAll runs every structural invariant.
func CheckAll(m *ir.Module) error {
	return errors.Join(CheckUseDef(m), CheckExitRegistry(m), CheckOwnership(m))
}

func containsUse(uses []ir.Use, u ir.Use) bool {
	for _, x := range uses {
		if x == u {
			return true
		}
	}
	return false
}

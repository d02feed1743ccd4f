package ir

import "slices"

// RemoveDeadValues destroys instructions without side effects whose results
// are never read, repeating until nothing changes. Returns the number of
// instructions removed. Module-scope variables are kept.
func RemoveDeadValues(m *Module) int {
	if m == nil {
		return 0
	}
	removed := 0
	for {
		n := 0
		for f := range m.Functions() {
			n += m.sweepBlock(f.Block)
		}
		if n == 0 {
			return removed
		}
		removed += n
	}
}

func (m *Module) sweepBlock(id BlockID) int {
	b := m.Block(id)
	if b == nil {
		return 0
	}
	n := 0
	for _, inst := range slices.Backward(slices.Clone(b.insts)) {
		in := m.Inst(inst)
		if in == nil {
			continue
		}
		if in.Ctrl != nil {
			in.Ctrl.ForeachBlock(func(nb BlockID) { n += m.sweepBlock(nb) })
			continue
		}
		if in.HasSideEffects() || m.resultsUsed(in) {
			continue
		}
		if m.DestroyInst(inst) == nil {
			n++
		}
	}
	return n
}

func (m *Module) resultsUsed(in *Inst) bool {
	for _, r := range in.Results {
		if v := m.Value(r); v != nil && v.HasUses() {
			return true
		}
	}
	return false
}

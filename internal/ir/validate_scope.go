package ir

import "shade/internal/diag"

// 5. Scoping -----------------------------------------------------------------
//
// A value is visible after its defining instruction in the same block and
// in every block nested below that point. Loop initializer values are
// visible in the body and continuing blocks. The continuing block sees the
// top-level body values defined before the first body instruction that
// can reach a continue of the loop. Values defined inside a nested block
// never leave it: a control instruction hands values out only through the
// arguments of its exits, which become its results.

type scope struct {
	vals   map[ValueID]struct{}
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vals: make(map[ValueID]struct{}), parent: parent}
}

func (s *scope) define(id ValueID) {
	s.vals[id] = struct{}{}
}

func (s *scope) has(id ValueID) bool {
	for c := s; c != nil; c = c.parent {
		if _, ok := c.vals[id]; ok {
			return true
		}
	}
	return false
}

func (v *validator) checkScopes() {
	global := v.scopeBlock(v.m.root, nil, NoFuncID)
	for f := range v.m.Functions() {
		fs := newScope(global)
		for _, p := range f.Params {
			fs.define(p)
		}
		v.scopeBlock(f.Block, fs, f.ID)
	}
}

func (v *validator) scopeBlock(id BlockID, parent *scope, fn FuncID) *scope {
	s := newScope(parent)
	b := v.m.Block(id)
	if b == nil {
		return s
	}
	for _, inst := range b.insts {
		in := v.m.Inst(inst)
		if in == nil {
			continue
		}
		for slot, op := range in.Operands {
			v.checkVisible(in, slot, op, s, fn)
		}
		if c := in.Ctrl; c != nil {
			switch in.Kind {
			case InstLoop:
				outer := s
				if init := c.Block(LoopInitializer); init != NoBlockID {
					outer = v.scopeBlock(init, s, fn)
				}
				bodyID := c.Block(LoopBody)
				v.scopeBlock(bodyID, outer, fn)
				if cont := c.Block(LoopContinuing); cont != NoBlockID {
					v.scopeBlock(cont, v.continuingScope(in, bodyID, outer), fn)
				}
			default:
				c.ForeachBlock(func(nb BlockID) { v.scopeBlock(nb, s, fn) })
			}
		}
		for _, r := range in.Results {
			s.define(r)
		}
	}
	return s
}

func (v *validator) checkVisible(in *Inst, slot int, op ValueID, s *scope, fn FuncID) {
	val := v.m.Value(op)
	if val == nil {
		return
	}
	switch val.Kind {
	case ValueConst:
		return
	case ValueParam:
		if val.Func != fn {
			v.errorf(diag.IRValueOutOfScope, v.instNode(in), "operand %d reads parameter %s of another function", slot, v.valueName(op))
		}
		return
	}
	if s.has(op) {
		return
	}
	producer := v.m.Inst(val.Inst)
	if producer != nil && producer.Block == in.Block && v.pos[producer.ID] >= v.pos[in.ID] {
		v.errorf(diag.IRUseBeforeDef, v.instNode(in), "operand %d reads %s before its definition", slot, v.valueName(op))
		return
	}
	v.errorf(diag.IRValueOutOfScope, v.instNode(in), "operand %d reads %s outside of its scope", slot, v.valueName(op))
}

// continuingScope returns the body values every continue of loop has
// passed through.
func (v *validator) continuingScope(loop *Inst, body BlockID, outer *scope) *scope {
	s := newScope(outer)
	b := v.m.Block(body)
	if b == nil {
		return s
	}
	cut := len(b.insts)
	for _, exit := range loop.Ctrl.Exits() {
		e := v.m.Inst(exit)
		if e == nil || e.Kind != InstContinue || e.Target != loop.ID {
			continue
		}
		if top := v.topLevelIn(e, body); top != nil && v.pos[top.ID] < cut {
			cut = v.pos[top.ID]
		}
	}
	for _, inst := range b.insts[:cut] {
		if in := v.m.Inst(inst); in != nil {
			for _, r := range in.Results {
				s.define(r)
			}
		}
	}
	return s
}

// topLevelIn walks from in up through owning control instructions and
// returns the ancestor placed directly in block, or nil.
func (v *validator) topLevelIn(in *Inst, block BlockID) *Inst {
	for in != nil && in.Block != block {
		b := v.m.Block(in.Block)
		if b == nil || b.Parent == NoInstID {
			return nil
		}
		in = v.m.Inst(b.Parent)
	}
	return in
}

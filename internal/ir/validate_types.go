package ir

import (
	"strings"

	"shade/internal/diag"
	"shade/internal/types"
)

// 4. Types -------------------------------------------------------------------

func (v *validator) checkTypes() {
	for f := range v.m.Functions() {
		v.checkSignature(f)
	}
	for _, id := range v.reached {
		in := v.m.Inst(id)
		node := v.instNode(in)
		for i, r := range in.Results {
			t := v.m.ValueType(r)
			if _, ok := v.ty.Lookup(t); !ok || v.ty.IsVoid(t) {
				v.errorf(diag.IRInvalidType, node, "result %d has invalid type %s", i, v.ty.String(t))
			}
		}
		v.checkInstTypes(in, node)
	}
}

func (v *validator) checkSignature(f *Func) {
	node := v.funcNode(f)
	if _, ok := v.ty.Lookup(f.Return); !ok {
		v.errorf(diag.IRInvalidType, node, "function has invalid return type")
	}
	for _, p := range f.Params {
		t := v.m.ValueType(p)
		if _, ok := v.ty.Lookup(t); !ok || v.ty.IsVoid(t) {
			v.errorf(diag.IRInvalidType, node, "parameter %s has invalid type %s", v.valueName(p), v.ty.String(t))
		}
	}
	if f.Stage == StageCompute {
		if !v.ty.IsVoid(f.Return) {
			v.errorf(diag.IRReturnType, node, "compute entry point must return void")
		}
		for _, n := range f.WorkgroupSize {
			if n == 0 {
				v.errorf(diag.IRInvalidType, node, "workgroup size must be positive")
				break
			}
		}
	}
}

func (v *validator) arity(in *Inst, node diag.Node, ops, results int) bool {
	if len(in.Operands) != ops || len(in.Results) != results {
		v.errorf(diag.IRArity, node, "%s expects %d operands and %d results, got %d and %d",
			in.Kind, ops, results, len(in.Operands), len(in.Results))
		return false
	}
	return true
}

func (v *validator) opType(in *Inst, i int) types.TypeID {
	return v.m.ValueType(in.Operand(i))
}

func (v *validator) resType(in *Inst, i int) types.TypeID {
	return v.m.ValueType(in.Result(i))
}

func (v *validator) mismatch(code diag.Code, node diag.Node, what string, got, want types.TypeID) {
	v.errorf(code, node, "%s has type %s, expected %s", what, v.ty.String(got), v.ty.String(want))
}

func (v *validator) checkInstTypes(in *Inst, node diag.Node) {
	b := v.ty.Builtins()
	switch in.Kind {
	case InstBinary:
		if v.arity(in, node, 2, 1) {
			v.checkBinary(in, node)
		}
	case InstUnary:
		if !v.arity(in, node, 1, 1) {
			return
		}
		t := v.opType(in, 0)
		var ok bool
		switch in.Unary {
		case OpNegation:
			ok = v.ty.IsSigned(t)
		case OpComplement:
			ok = v.ty.IsInteger(t)
		case OpNot:
			ok = v.ty.IsBoolLike(t)
		}
		if !ok {
			v.errorf(diag.IROperandType, node, "%s is not defined for %s", in.Unary, v.ty.String(t))
		}
		if r := v.resType(in, 0); r != t {
			v.mismatch(diag.IRResultType, node, "result", r, t)
		}
	case InstConvert:
		if !v.arity(in, node, 1, 1) {
			return
		}
		from, to := v.opType(in, 0), v.resType(in, 0)
		if v.ty.Width(from) == 0 || v.ty.Width(from) != v.ty.Width(to) {
			v.errorf(diag.IROperandType, node, "cannot convert %s to %s", v.ty.String(from), v.ty.String(to))
		}
	case InstLet:
		if v.arity(in, node, 1, 1) && v.opType(in, 0) != v.resType(in, 0) {
			v.mismatch(diag.IRResultType, node, "result", v.resType(in, 0), v.opType(in, 0))
		}
	case InstVar:
		v.checkVar(in, node)
	case InstLoad:
		if !v.arity(in, node, 1, 1) {
			return
		}
		ptr := v.opType(in, 0)
		if !v.ty.IsPointer(ptr) {
			v.errorf(diag.IROperandType, node, "load from non-pointer %s", v.ty.String(ptr))
			return
		}
		if r := v.resType(in, 0); r != v.ty.Pointee(ptr) {
			v.mismatch(diag.IRResultType, node, "result", r, v.ty.Pointee(ptr))
		}
	case InstStore:
		if !v.arity(in, node, 2, 0) {
			return
		}
		ptr := v.opType(in, 0)
		tt, ok := v.ty.Lookup(ptr)
		if !ok || tt.Kind != types.KindPointer {
			v.errorf(diag.IROperandType, node, "store to non-pointer %s", v.ty.String(ptr))
			return
		}
		if tt.Access == types.AccessRead {
			v.errorf(diag.IROperandType, node, "store through read-only pointer")
		}
		if val := v.opType(in, 1); val != tt.Elem {
			v.mismatch(diag.IROperandType, node, "stored value", val, tt.Elem)
		}
	case InstAccess:
		v.checkAccess(in, node)
	case InstConstruct:
		v.checkConstruct(in, node)
	case InstCall:
		v.checkCall(in, node)
	case InstReturn:
		v.checkReturn(in, node)
	case InstUnreachable, InstDiscard, InstLoop, InstContinue, InstNextIteration:
		if in.Kind != InstLoop {
			v.arity(in, node, 0, 0)
		} else if len(in.Operands) != 0 {
			v.errorf(diag.IRArity, node, "loop takes no operands")
		}
	case InstIf:
		if len(in.Operands) != 1 {
			v.errorf(diag.IRArity, node, "if takes one condition operand")
			return
		}
		if c := v.opType(in, 0); c != b.Bool {
			v.mismatch(diag.IROperandType, node, "condition", c, b.Bool)
		}
	case InstSwitch:
		v.checkSwitch(in, node)
	case InstBreakIf:
		if v.arity(in, node, 1, 0) {
			if c := v.opType(in, 0); c != b.Bool {
				v.mismatch(diag.IROperandType, node, "condition", c, b.Bool)
			}
		}
		// break_if carries no exit values, so it cannot define loop results.
		if t := v.m.Inst(in.Target); t != nil && len(t.Results) > 0 {
			v.errorf(diag.IRExitArgs, node, "break_if leaves %s, which has %d results; use exit_loop",
				v.n.ctrl(t), len(t.Results))
		}
	case InstExitIf, InstExitSwitch, InstExitLoop:
		v.checkExitArgs(in, node)
	}
}

func (v *validator) checkBinary(in *Inst, node diag.Node) {
	l, r, res := v.opType(in, 0), v.opType(in, 1), v.resType(in, 0)
	op := in.Binary
	switch {
	case op.IsComparison():
		ok := l == r && v.ty.Width(l) > 0
		if op != OpEqual && op != OpNotEqual {
			ok = ok && v.ty.IsNumeric(l)
		}
		if !ok {
			v.errorf(diag.IROperandType, node, "%s is not defined for %s and %s", op, v.ty.String(l), v.ty.String(r))
			return
		}
		if want := v.ty.WithScalar(l, v.ty.Builtins().Bool); res != want {
			v.mismatch(diag.IRResultType, node, "result", res, want)
		}
	case op == OpShiftLeft || op == OpShiftRight:
		if !v.ty.IsInteger(l) || !v.ty.IsUnsigned(r) || v.ty.Width(l) != v.ty.Width(r) {
			v.errorf(diag.IROperandType, node, "%s is not defined for %s and %s", op, v.ty.String(l), v.ty.String(r))
			return
		}
		if res != l {
			v.mismatch(diag.IRResultType, node, "result", res, l)
		}
	default:
		var ok bool
		switch op {
		case OpAnd, OpOr, OpXor:
			ok = v.ty.IsInteger(l) || v.ty.IsBoolLike(l)
		default:
			ok = v.ty.IsNumeric(l)
		}
		want := l
		switch {
		case l == r:
		case v.ty.ScalarOf(l) == v.ty.ScalarOf(r) && v.ty.Width(l) == 1 && v.ty.Width(r) > 1:
			want = r
		case v.ty.ScalarOf(l) == v.ty.ScalarOf(r) && v.ty.Width(r) == 1 && v.ty.Width(l) > 1:
		default:
			ok = false
		}
		if !ok {
			v.errorf(diag.IROperandType, node, "%s is not defined for %s and %s", op, v.ty.String(l), v.ty.String(r))
			return
		}
		if res != want {
			v.mismatch(diag.IRResultType, node, "result", res, want)
		}
	}
}

func (v *validator) checkVar(in *Inst, node diag.Node) {
	if len(in.Operands) > 1 || len(in.Results) != 1 {
		v.errorf(diag.IRArity, node, "var takes an optional initializer and yields one pointer")
		return
	}
	tt, ok := v.ty.Lookup(v.resType(in, 0))
	if !ok || tt.Kind != types.KindPointer || tt.Space == types.SpaceUndefined {
		v.errorf(diag.IRResultType, node, "var must yield a pointer with an address space")
		return
	}
	global := v.instFunc[in.ID] == NoFuncID
	switch {
	case global && tt.Space == types.SpaceFunction:
		v.errorf(diag.IRResultType, node, "module-scope variable cannot live in the function address space")
	case !global && tt.Space != types.SpaceFunction:
		v.errorf(diag.IRResultType, node, "function-scope variable cannot live in the %s address space", tt.Space)
	}
	if len(in.Operands) == 1 {
		if init := v.opType(in, 0); init != tt.Elem {
			v.mismatch(diag.IROperandType, node, "initializer", init, tt.Elem)
		}
	}
}

func (v *validator) checkAccess(in *Inst, node diag.Node) {
	if len(in.Operands) < 2 || len(in.Results) != 1 {
		v.errorf(diag.IRArity, node, "access takes a base, at least one index and yields one result")
		return
	}
	base := v.opType(in, 0)
	cur := base
	ptr, isPtr := v.ty.Lookup(base)
	isPtr = isPtr && ptr.Kind == types.KindPointer
	if isPtr {
		cur = ptr.Elem
	}
	for i, idx := range in.Operands[1:] {
		it := v.m.ValueType(idx)
		if !v.ty.IsInteger(it) || v.ty.Width(it) != 1 {
			v.errorf(diag.IROperandType, node, "index %d has non-integer type %s", i, v.ty.String(it))
			return
		}
		tt, ok := v.ty.Lookup(cur)
		if !ok {
			break
		}
		var elem uint32
		if iv := v.m.Value(idx); iv != nil && iv.Kind == ValueConst {
			elem = iv.Const.U32()
			if n := v.ty.NumElements(cur); n != types.ArrayRuntimeLength && elem >= n {
				v.errorf(diag.IROperandType, node, "index %d (%d) out of bounds for %s", i, elem, v.ty.String(cur))
				return
			}
		} else if tt.Kind == types.KindStruct {
			v.errorf(diag.IROperandType, node, "struct member index %d must be a constant", i)
			return
		}
		next := v.ty.Element(cur, elem)
		if next == types.NoTypeID {
			v.errorf(diag.IROperandType, node, "%s cannot be indexed", v.ty.String(cur))
			return
		}
		cur = next
	}
	want := cur
	if isPtr {
		want = v.ty.Find(types.MakePointer(ptr.Space, cur, ptr.Access))
	}
	if res := v.resType(in, 0); res != want {
		v.mismatch(diag.IRResultType, node, "result", res, want)
	}
}

func (v *validator) checkConstruct(in *Inst, node diag.Node) {
	if len(in.Results) != 1 {
		v.errorf(diag.IRArity, node, "construct yields exactly one result")
		return
	}
	t := v.resType(in, 0)
	if !v.ty.IsConstructible(t) {
		v.errorf(diag.IRResultType, node, "%s is not constructible", v.ty.String(t))
		return
	}
	args := in.Operands
	if len(args) == 0 {
		return
	}
	tt, _ := v.ty.Lookup(t)
	bad := func() {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = v.ty.String(v.m.ValueType(a))
		}
		v.errorf(diag.IROperandType, node, "cannot construct %s from (%s)", v.ty.String(t), strings.Join(parts, ", "))
	}
	switch tt.Kind {
	case types.KindVector:
		var total uint32
		for _, a := range args {
			at := v.m.ValueType(a)
			if v.ty.ScalarOf(at) != tt.Elem || v.ty.Width(at) == 0 {
				bad()
				return
			}
			total += v.ty.Width(at)
		}
		if total != tt.Count && (len(args) != 1 || v.ty.Width(v.m.ValueType(args[0])) != 1) {
			bad()
		}
	case types.KindMatrix:
		col := v.ty.Element(t, 0)
		switch uint32(len(args)) {
		case tt.Count:
			for _, a := range args {
				if v.m.ValueType(a) != col {
					bad()
					return
				}
			}
		case tt.Count * uint32(tt.Rows):
			for _, a := range args {
				if v.m.ValueType(a) != tt.Elem {
					bad()
					return
				}
			}
		default:
			bad()
		}
	case types.KindArray, types.KindStruct:
		if uint32(len(args)) != v.ty.NumElements(t) {
			bad()
			return
		}
		for i, a := range args {
			if v.m.ValueType(a) != v.ty.Element(t, uint32(i)) { //nolint:gosec // bounded by NumElements
				bad()
				return
			}
		}
	default:
		if len(args) != 1 || v.m.ValueType(args[0]) != t {
			bad()
		}
	}
}

func (v *validator) checkCall(in *Inst, node diag.Node) {
	f := v.m.Func(in.Callee)
	if f == nil {
		return
	}
	if len(in.Operands) != len(f.Params) {
		v.errorf(diag.IRCallSignature, node, "call of %s passes %d arguments, expected %d",
			v.n.function(f.ID), len(in.Operands), len(f.Params))
		return
	}
	for i, p := range f.Params {
		if got, want := v.opType(in, i), v.m.ValueType(p); got != want {
			v.errorf(diag.IRCallSignature, node, "argument %d has type %s, expected %s", i, v.ty.String(got), v.ty.String(want))
		}
	}
	if f.IsEntryPoint() {
		v.errorf(diag.IRCallSignature, node, "entry point %s cannot be called", v.n.function(f.ID))
	}
	wantResults := 1
	if v.ty.IsVoid(f.Return) {
		wantResults = 0
	}
	if len(in.Results) != wantResults {
		v.errorf(diag.IRArity, node, "call of %s yields %d results, expected %d", v.n.function(f.ID), len(in.Results), wantResults)
		return
	}
	if wantResults == 1 && v.resType(in, 0) != f.Return {
		v.mismatch(diag.IRResultType, node, "call result", v.resType(in, 0), f.Return)
	}
}

func (v *validator) checkReturn(in *Inst, node diag.Node) {
	fn := v.instFunc[in.ID]
	f := v.m.Func(fn)
	if f == nil || in.Func != fn {
		v.errorf(diag.IRReturnType, node, "ret does not belong to the enclosing function")
		return
	}
	if len(in.Results) != 0 {
		v.errorf(diag.IRArity, node, "ret yields no results")
	}
	if v.ty.IsVoid(f.Return) {
		if len(in.Operands) != 0 {
			v.errorf(diag.IRReturnType, node, "void function returns a value")
		}
		return
	}
	if len(in.Operands) != 1 {
		v.errorf(diag.IRReturnType, node, "function returning %s must return one value", v.ty.String(f.Return))
		return
	}
	if got := v.opType(in, 0); got != f.Return {
		v.mismatch(diag.IRReturnType, node, "return value", got, f.Return)
	}
}

func (v *validator) checkSwitch(in *Inst, node diag.Node) {
	if len(in.Operands) != 1 {
		v.errorf(diag.IRArity, node, "switch takes one selector operand")
		return
	}
	sel := v.opType(in, 0)
	if !v.ty.IsInteger(sel) || v.ty.Width(sel) != 1 {
		v.errorf(diag.IROperandType, node, "switch selector has non-integer type %s", v.ty.String(sel))
		return
	}
	defaults := 0
	seen := make(map[uint64]struct{})
	for _, sels := range in.Ctrl.Cases {
		if len(sels) == 0 {
			v.errorf(diag.IRSwitchCases, node, "case without selectors")
		}
		for _, s := range sels {
			if s.Default {
				defaults++
				continue
			}
			sv := v.m.Value(s.Value)
			if sv == nil || sv.Kind != ValueConst || sv.Type != sel {
				v.errorf(diag.IRSwitchCases, node, "case selector must be a %s constant", v.ty.String(sel))
				continue
			}
			if _, dup := seen[sv.Const.Bits]; dup {
				v.errorf(diag.IRSwitchCases, node, "duplicate case selector %s", v.valueName(s.Value))
			}
			seen[sv.Const.Bits] = struct{}{}
		}
	}
	if defaults != 1 {
		v.errorf(diag.IRSwitchCases, node, "switch needs exactly one default selector, found %d", defaults)
	}
}

func (v *validator) checkExitArgs(in *Inst, node diag.Node) {
	t := v.m.Inst(in.Target)
	if t == nil {
		return
	}
	if len(in.Results) != 0 {
		v.errorf(diag.IRArity, node, "%s yields no results", in.Kind)
	}
	if len(in.Operands) != len(t.Results) {
		v.errorf(diag.IRExitArgs, node, "%s passes %d values but %s has %d results",
			in.Kind, len(in.Operands), v.n.ctrl(t), len(t.Results))
		return
	}
	for i, r := range t.Results {
		if got, want := v.opType(in, i), v.m.ValueType(r); got != want {
			v.errorf(diag.IRExitArgs, node, "exit value %d has type %s, expected %s", i, v.ty.String(got), v.ty.String(want))
		}
	}
}

package glsl

import (
	"fmt"
	"strings"

	"shade/internal/ir"
	"shade/internal/types"
)

func (w *writer) writeBlock(id ir.BlockID) error {
	for in := range w.m.Instructions(id) {
		if err := w.writeInst(in); err != nil {
			return err
		}
	}
	return nil
}

// expr renders an operand: constants inline, everything else by name.
func (w *writer) expr(id ir.ValueID) (string, error) {
	v := w.m.Value(id)
	if v == nil {
		return "", fmt.Errorf("value %d: %w", id, ir.ErrUnknownNode)
	}
	if v.Kind == ir.ValueConst {
		return w.literal(v)
	}
	if s, ok := w.values[id]; ok {
		return s, nil
	}
	return "", fmt.Errorf("value %d used before its definition was emitted", id)
}

func (w *writer) exprs(ids []ir.ValueID) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		s, err := w.expr(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// define binds result r to expr. Pointer results become aliases; other
// results get a local, or an assignment when the local was hoisted.
func (w *writer) define(r ir.ValueID, expr string) error {
	t := w.m.ValueType(r)
	if w.ty.IsPointer(t) {
		w.values[r] = expr
		return nil
	}
	if w.hoisted[r] {
		w.line("%s = %s;", w.values[r], expr)
		return nil
	}
	tn, err := w.typeName(t)
	if err != nil {
		return err
	}
	w.line("%s %s = %s;", tn, w.valueName(r), expr)
	return nil
}

// declare emits an uninitialized local for r unless it was hoisted.
func (w *writer) declare(r ir.ValueID) error {
	if w.hoisted[r] {
		return nil
	}
	tn, err := w.typeName(w.m.ValueType(r))
	if err != nil {
		return err
	}
	w.line("%s %s;", tn, w.valueName(r))
	return nil
}

func (w *writer) writeVar(in *ir.Inst, qualifier string) error {
	r := in.Results[0]
	elem := w.ty.Pointee(w.m.ValueType(r))
	init, err := w.zero(elem)
	if err != nil {
		return err
	}
	if len(in.Operands) == 1 {
		if init, err = w.expr(in.Operands[0]); err != nil {
			return err
		}
	}
	if w.hoisted[r] {
		w.line("%s = %s;", w.values[r], init)
		return nil
	}
	tn, err := w.typeName(elem)
	if err != nil {
		return err
	}
	name := w.valueName(r)
	if qualifier == "shared " {
		// Workgroup memory cannot carry an initializer.
		w.line("shared %s %s;", tn, name)
		return nil
	}
	w.line("%s%s %s = %s;", qualifier, tn, name, init)
	return nil
}

func (w *writer) writeInst(in *ir.Inst) error {
	switch in.Kind {
	case ir.InstBinary:
		s, err := w.binary(in)
		if err != nil {
			return err
		}
		return w.define(in.Results[0], s)
	case ir.InstUnary:
		s, err := w.unary(in)
		if err != nil {
			return err
		}
		return w.define(in.Results[0], s)
	case ir.InstConvert, ir.InstConstruct:
		args, err := w.exprs(in.Operands)
		if err != nil {
			return err
		}
		t := w.m.ValueType(in.Results[0])
		if len(args) == 0 {
			z, err := w.zero(t)
			if err != nil {
				return err
			}
			return w.define(in.Results[0], z)
		}
		tn, err := w.typeName(t)
		if err != nil {
			return err
		}
		return w.define(in.Results[0], tn+"("+strings.Join(args, ", ")+")")
	case ir.InstLet, ir.InstLoad:
		s, err := w.expr(in.Operands[0])
		if err != nil {
			return err
		}
		return w.define(in.Results[0], s)
	case ir.InstVar:
		return w.writeVar(in, "")
	case ir.InstAccess:
		s, err := w.access(in)
		if err != nil {
			return err
		}
		return w.define(in.Results[0], s)
	case ir.InstStore:
		args, err := w.exprs(in.Operands)
		if err != nil {
			return err
		}
		w.line("%s = %s;", args[0], args[1])
		return nil
	case ir.InstCall:
		args, err := w.exprs(in.Operands)
		if err != nil {
			return err
		}
		call := w.funcNames[in.Callee] + "(" + strings.Join(args, ", ") + ")"
		if len(in.Results) == 0 {
			w.line("%s;", call)
			return nil
		}
		return w.define(in.Results[0], call)
	case ir.InstReturn:
		if len(in.Operands) == 0 {
			w.line("return;")
			return nil
		}
		s, err := w.expr(in.Operands[0])
		if err != nil {
			return err
		}
		w.line("return %s;", s)
		return nil
	case ir.InstUnreachable, ir.InstNextIteration:
		return nil
	case ir.InstDiscard:
		w.line("discard;")
		return nil
	case ir.InstIf:
		return w.writeIf(in)
	case ir.InstLoop:
		return w.writeLoop(in)
	case ir.InstSwitch:
		return w.writeSwitch(in)
	case ir.InstExitIf, ir.InstExitSwitch, ir.InstExitLoop:
		if err := w.exitValues(in); err != nil {
			return err
		}
		if in.Kind != ir.InstExitIf {
			w.line("break;")
		}
		return nil
	case ir.InstContinue:
		w.line("continue;")
		return nil
	case ir.InstBreakIf:
		cond, err := w.expr(in.Operands[0])
		if err != nil {
			return err
		}
		w.line("if (%s) {", cond)
		w.line("  break;")
		w.line("}")
		return nil
	}
	return fmt.Errorf("%s: %w", in.Kind, ErrUnsupported)
}

// exitValues assigns exit arguments to the result locals of the target.
func (w *writer) exitValues(in *ir.Inst) error {
	target := w.m.Inst(in.Target)
	if target == nil {
		return fmt.Errorf("%s without target: %w", in.Kind, ir.ErrUnknownNode)
	}
	for i, arg := range in.Operands {
		if i >= len(target.Results) {
			break
		}
		s, err := w.expr(arg)
		if err != nil {
			return err
		}
		w.line("%s = %s;", w.values[target.Results[i]], s)
	}
	return nil
}

func (w *writer) nestedBlock(id ir.BlockID) (string, error) {
	return w.capture(func() error {
		w.indent++
		defer func() { w.indent-- }()
		return w.writeBlock(id)
	})
}

func (w *writer) writeIf(in *ir.Inst) error {
	for _, r := range in.Results {
		if err := w.declare(r); err != nil {
			return err
		}
	}
	cond, err := w.expr(in.Operands[0])
	if err != nil {
		return err
	}
	then, err := w.nestedBlock(in.Ctrl.Block(ir.IfTrue))
	if err != nil {
		return err
	}
	els, err := w.nestedBlock(in.Ctrl.Block(ir.IfFalse))
	if err != nil {
		return err
	}
	w.line("if (%s) {", cond)
	w.out.WriteString(then)
	if els != "" {
		w.line("} else {")
		w.out.WriteString(els)
	}
	w.line("}")
	return nil
}

// writeLoop lowers a loop to while (true). The continuing block runs at the
// top of every iteration after the first, so `continue` reaches it.
// Top-level body values are declared before the loop because continuing
// may read them.
func (w *writer) writeLoop(in *ir.Inst) error {
	for _, r := range in.Results {
		if err := w.declare(r); err != nil {
			return err
		}
	}
	init := in.Ctrl.Block(ir.LoopInitializer)
	cont := in.Ctrl.Block(ir.LoopContinuing)
	scoped := init != ir.NoBlockID || cont != ir.NoBlockID
	if scoped {
		w.line("{")
		w.indent++
	}
	if init != ir.NoBlockID {
		if err := w.writeBlock(init); err != nil {
			return err
		}
	}
	flag := ""
	if cont != ir.NoBlockID {
		if err := w.hoistBody(in.Ctrl.Block(ir.LoopBody)); err != nil {
			return err
		}
		flag = w.names.call("loop_init")
		w.line("bool %s = true;", flag)
	}
	w.line("while (true) {")
	w.indent++
	if flag != "" {
		w.line("if (!%s) {", flag)
		w.indent++
		if err := w.writeBlock(cont); err != nil {
			return err
		}
		w.indent--
		w.line("}")
		w.line("%s = false;", flag)
	}
	if err := w.writeBlock(in.Ctrl.Block(ir.LoopBody)); err != nil {
		return err
	}
	w.indent--
	w.line("}")
	if scoped {
		w.indent--
		w.line("}")
	}
	return nil
}

func (w *writer) hoistBody(body ir.BlockID) error {
	for in := range w.m.Instructions(body) {
		for _, r := range in.Results {
			t := w.m.ValueType(r)
			if in.Kind == ir.InstVar {
				t = w.ty.Pointee(t)
			} else if w.ty.IsPointer(t) {
				continue
			}
			tn, err := w.typeName(t)
			if err != nil {
				return err
			}
			w.line("%s %s;", tn, w.valueName(r))
			w.hoisted[r] = true
		}
	}
	return nil
}

func (w *writer) writeSwitch(in *ir.Inst) error {
	for _, r := range in.Results {
		if err := w.declare(r); err != nil {
			return err
		}
	}
	sel, err := w.expr(in.Operands[0])
	if err != nil {
		return err
	}
	w.line("switch (%s) {", sel)
	w.indent++
	for i, blk := range in.Ctrl.Blocks {
		sels := in.Ctrl.Cases[i]
		for j, cs := range sels {
			label := "default"
			if !cs.Default {
				v, err := w.expr(cs.Value)
				if err != nil {
					return err
				}
				label = "case " + v
			}
			if j == len(sels)-1 {
				w.line("%s: {", label)
			} else {
				w.line("%s:", label)
			}
		}
		body, err := w.nestedBlock(blk)
		if err != nil {
			return err
		}
		w.out.WriteString(body)
		w.line("}")
	}
	w.indent--
	w.line("}")
	return nil
}

var binaryOps = map[ir.BinaryOp]string{
	ir.OpAdd: "+", ir.OpSubtract: "-", ir.OpMultiply: "*", ir.OpDivide: "/",
	ir.OpModulo: "%", ir.OpAnd: "&", ir.OpOr: "|", ir.OpXor: "^",
	ir.OpEqual: "==", ir.OpNotEqual: "!=", ir.OpLessThan: "<", ir.OpGreaterThan: ">",
	ir.OpLessThanEqual: "<=", ir.OpGreaterThanEqual: ">=",
	ir.OpShiftLeft: "<<", ir.OpShiftRight: ">>",
}

var vectorCompare = map[ir.BinaryOp]string{
	ir.OpEqual: "equal", ir.OpNotEqual: "notEqual", ir.OpLessThan: "lessThan",
	ir.OpGreaterThan: "greaterThan", ir.OpLessThanEqual: "lessThanEqual",
	ir.OpGreaterThanEqual: "greaterThanEqual",
}

var boolOps = map[ir.BinaryOp]string{ir.OpAnd: "&&", ir.OpOr: "||", ir.OpXor: "^^"}

func (w *writer) binary(in *ir.Inst) (string, error) {
	args, err := w.exprs(in.Operands)
	if err != nil {
		return "", err
	}
	l, r := args[0], args[1]
	lt := w.m.ValueType(in.Operands[0])
	vector := w.ty.Width(lt) > 1
	op := in.Binary
	switch {
	case op.IsComparison() && vector:
		return fmt.Sprintf("%s(%s, %s)", vectorCompare[op], l, r), nil
	case w.ty.IsBoolLike(lt) && !op.IsComparison():
		if !vector {
			return fmt.Sprintf("(%s %s %s)", l, boolOps[op], r), nil
		}
		rt, err := w.typeName(w.m.ValueType(in.Results[0]))
		if err != nil {
			return "", err
		}
		ut := fmt.Sprintf("uvec%d", w.ty.Width(lt))
		return fmt.Sprintf("%s(%s(%s) %s %s(%s))", rt, ut, l, binaryOps[op], ut, r), nil
	case op == ir.OpModulo && w.ty.IsFloat(lt):
		return fmt.Sprintf("(%s - %s * trunc(%s / %s))", l, r, l, r), nil
	}
	return fmt.Sprintf("(%s %s %s)", l, binaryOps[op], r), nil
}

func (w *writer) unary(in *ir.Inst) (string, error) {
	x, err := w.expr(in.Operands[0])
	if err != nil {
		return "", err
	}
	switch in.Unary {
	case ir.OpNegation:
		return "-(" + x + ")", nil
	case ir.OpComplement:
		return "~(" + x + ")", nil
	default:
		if w.ty.Width(w.m.ValueType(in.Operands[0])) > 1 {
			return "not(" + x + ")", nil
		}
		return "!(" + x + ")", nil
	}
}

// access renders an index chain. Struct members are selected by constant
// index; everything else is subscripted.
func (w *writer) access(in *ir.Inst) (string, error) {
	base, err := w.expr(in.Operands[0])
	if err != nil {
		return "", err
	}
	cur := w.m.ValueType(in.Operands[0])
	if w.ty.IsPointer(cur) {
		cur = w.ty.Pointee(cur)
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, idx := range in.Operands[1:] {
		tt, _ := w.ty.Lookup(cur)
		if tt.Kind == types.KindStruct {
			v := w.m.Value(idx)
			info, _ := w.ty.StructInfo(cur)
			n := v.Const.U32()
			if int(n) >= len(info.Members) {
				return "", fmt.Errorf("member %d of %s: %w", n, info.Name, ErrUnsupported)
			}
			sb.WriteString("." + escapeKeyword(sanitize(info.Members[n].Name)))
			cur = info.Members[n].Type
			continue
		}
		s, err := w.expr(idx)
		if err != nil {
			return "", err
		}
		sb.WriteString("[" + s + "]")
		cur = w.ty.Element(cur, 0)
	}
	return sb.String(), nil
}

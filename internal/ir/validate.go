package ir

import (
	"fmt"
	"slices"
	"strings"

	"shade/internal/diag"
	"shade/internal/types"
)

// Options configures Validate.
type Options struct {
	// Reporter receives every diagnostic as it is produced. Optional.
	Reporter diag.Reporter
	// MaxErrors caps the number of diagnostics. Zero means no cap.
	MaxErrors int
}

// ValidationError is returned by Validate for an invalid module.
type ValidationError struct {
	Diagnostics []diag.Diagnostic
}

func (e *ValidationError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "invalid module"
	}
	first := e.Diagnostics[0].Short()
	if more := len(e.Diagnostics) - 1; more > 0 {
		return fmt.Sprintf("%s (and %d more)", first, more)
	}
	return first
}

// Validate checks module invariants and returns a *ValidationError listing
// every violation found, or nil for a valid module. A nil module yields
// ErrNilModule.
//
// Checks run in phases. Structural problems (ownership, termination, exit
// nesting, dangling references) stop validation after their phase because
// later phases rely on a well-formed graph. Use-list, type and scoping
// problems are accumulated.
func Validate(m *Module, opts Options) error {
	if m == nil {
		return ErrNilModule
	}
	v := &validator{
		m:          m,
		ty:         m.types,
		n:          newNamer(m),
		bag:        diag.NewBag(opts.MaxErrors),
		seenBlocks: make(map[BlockID]struct{}),
		seenInsts:  make(map[InstID]struct{}),
		instFunc:   make(map[InstID]FuncID),
		pos:        make(map[InstID]int),
	}
	sinks := diag.MultiReporter{diag.BagReporter{Bag: v.bag}}
	if opts.Reporter != nil {
		sinks = append(sinks, opts.Reporter)
	}
	v.report = diag.NewDedupReporter(sinks)
	v.run()
	if v.bag.Len() == 0 {
		return nil
	}
	return &ValidationError{Diagnostics: slices.Clone(v.bag.Items())}
}

type validator struct {
	m      *Module
	ty     *types.Interner
	n      *namer
	bag    *diag.Bag
	report diag.Reporter
	fatal  bool

	seenBlocks map[BlockID]struct{}
	seenInsts  map[InstID]struct{}
	instFunc   map[InstID]FuncID
	pos        map[InstID]int
	reached    []InstID
}

func (v *validator) run() {
	// 1. Ownership, termination and required blocks.
	v.checkStructure()
	if v.fatal {
		return
	}
	// 2. Exit registration and nesting.
	v.checkExits()
	if v.fatal {
		return
	}
	// 3. Operand and use-list agreement.
	v.checkUseDef()
	if v.fatal {
		return
	}
	// 4. Types and signatures.
	v.checkTypes()
	// 5. Definitions dominate uses.
	v.checkScopes()
}

func (v *validator) errorf(code diag.Code, node diag.Node, format string, args ...any) {
	if v.bag.Full() {
		return
	}
	diag.ReportError(v.report, code, node, fmt.Sprintf(format, args...)).Emit()
}

func (v *validator) fatalf(code diag.Code, node diag.Node, format string, args ...any) {
	v.fatal = true
	v.errorf(code, node, format, args...)
}

// Node paths ---------------------------------------------------------------

func (v *validator) scopePath(blk BlockID) string {
	if f := v.m.Func(v.m.EnclosingFunc(blk)); f != nil {
		return "func " + strings.TrimPrefix(v.n.function(f.ID), "%")
	}
	return "root"
}

func (v *validator) funcNode(f *Func) diag.Node {
	return diag.Node{Kind: diag.NodeFunc, ID: int32(f.ID), Path: "func " + strings.TrimPrefix(v.n.function(f.ID), "%")}
}

func (v *validator) blockNode(id BlockID) diag.Node {
	return diag.Node{Kind: diag.NodeBlock, ID: int32(id), Path: v.scopePath(id) + " / " + v.n.block(id)}
}

func (v *validator) instNode(in *Inst) diag.Node {
	label := in.Kind.String()
	switch {
	case in.Ctrl != nil:
		label = v.n.ctrl(in)
	case in.Kind == InstBinary:
		label = in.Binary.String()
	case in.Kind == InstUnary:
		label = in.Unary.String()
	}
	if len(in.Results) > 0 && in.Ctrl == nil {
		label = v.n.value(in.Results[0]) + " = " + label
	}
	path := "<detached> / " + label
	if in.Attached() {
		path = v.scopePath(in.Block) + " / " + v.n.block(in.Block) + " / " + label
	}
	return diag.Node{Kind: diag.NodeInst, ID: int32(in.ID), Path: path}
}

func (v *validator) valueNode(val *Value) diag.Node {
	path := v.n.value(val.ID)
	if val.Kind == ValueParam {
		if f := v.m.Func(val.Func); f != nil {
			path = v.funcNode(f).Path + " / " + path
		}
	}
	return diag.Node{Kind: diag.NodeValue, ID: int32(val.ID), Path: path}
}

func (v *validator) valueName(id ValueID) string {
	return v.n.value(id)
}

// 1. Structure ---------------------------------------------------------------

type blockCtx struct {
	fn     FuncID
	parent InstID
	root   bool
}

func (v *validator) checkStructure() {
	v.walkBlock(v.m.root, blockCtx{fn: NoFuncID, parent: NoInstID, root: true})
	for f := range v.m.Functions() {
		fnode := v.funcNode(f)
		for i, p := range f.Params {
			pv := v.m.Value(p)
			switch {
			case pv == nil:
				v.fatalf(diag.IRDanglingReference, fnode, "parameter %d refers to a destroyed value", i)
			case pv.Kind != ValueParam || pv.Func != f.ID:
				v.fatalf(diag.IROwnership, v.valueNode(pv), "parameter %d is not owned by this function", i)
			}
		}
		b := v.m.Block(f.Block)
		if b == nil {
			v.fatalf(diag.IRDanglingReference, fnode, "function has no root block")
			continue
		}
		if b.Func != f.ID || b.Parent != NoInstID {
			v.fatalf(diag.IROwnership, v.blockNode(f.Block), "root block is not owned by this function")
		}
		v.walkBlock(f.Block, blockCtx{fn: f.ID, parent: NoInstID})
	}
	for in := range v.m.Insts() {
		if _, seen := v.seenInsts[in.ID]; !seen && in.Attached() && !v.inDetachedSubtree(in) {
			v.fatalf(diag.IROwnership, v.instNode(in), "instruction is attached to block %d, which no function or control instruction owns", in.Block)
		}
	}
}

// inDetachedSubtree reports whether in hangs below a control instruction
// that was removed from its block and may be inserted again.
func (v *validator) inDetachedSubtree(in *Inst) bool {
	for range len(v.m.insts) {
		if in == nil || !in.Attached() {
			break
		}
		b := v.m.Block(in.Block)
		if b == nil || b.Parent == NoInstID {
			return false
		}
		in = v.m.Inst(b.Parent)
	}
	return in != nil && !in.Attached()
}

func (v *validator) walkBlock(id BlockID, ctx blockCtx) {
	b := v.m.Block(id)
	if b == nil {
		v.fatalf(diag.IRDanglingReference, diag.Node{Kind: diag.NodeBlock, ID: int32(id)}, "reference to destroyed block")
		return
	}
	if _, dup := v.seenBlocks[id]; dup {
		v.fatalf(diag.IRSharedNode, v.blockNode(id), "block is owned by more than one parent")
		return
	}
	v.seenBlocks[id] = struct{}{}
	if ctx.parent != NoInstID && b.Parent != ctx.parent {
		v.fatalf(diag.IROwnership, v.blockNode(id), "block parent does not match its control instruction")
	}
	v.checkTermination(b, ctx)

	for i, inst := range b.insts {
		in := v.m.Inst(inst)
		if in == nil {
			v.fatalf(diag.IRDanglingReference, v.blockNode(id), "instruction %d refers to a destroyed node", i)
			continue
		}
		if _, dup := v.seenInsts[inst]; dup {
			v.fatalf(diag.IRSharedNode, v.instNode(in), "instruction appears in more than one block")
			continue
		}
		v.seenInsts[inst] = struct{}{}
		v.instFunc[inst] = ctx.fn
		v.pos[inst] = i
		v.reached = append(v.reached, inst)
		if in.Block != id {
			v.fatalf(diag.IROwnership, v.instNode(in), "instruction block back-reference does not match")
		}
		if in.Kind == InstInvalid || in.Kind > InstBreakIf {
			v.fatalf(diag.IRArity, v.instNode(in), "unknown instruction kind %d", in.Kind)
			continue
		}
		if in.Kind.IsControl() != (in.Ctrl != nil) {
			v.fatalf(diag.IRMissingBlock, v.instNode(in), "control payload does not match instruction kind")
			continue
		}
		if in.Ctrl != nil {
			v.walkControl(in, ctx.fn)
		}
	}
}

func (v *validator) checkTermination(b *Block, ctx blockCtx) {
	if ctx.root {
		for _, inst := range b.insts {
			in := v.m.Inst(inst)
			if in == nil {
				continue
			}
			if in.Kind.IsTerminator() {
				v.fatalf(diag.IRRootTerminator, v.instNode(in), "module root block must not contain terminators")
			} else if in.Kind != InstVar {
				v.fatalf(diag.IROwnership, v.instNode(in), "module root block may only hold var instructions")
			}
		}
		return
	}
	if b.Empty() {
		v.fatalf(diag.IRUnterminatedBlock, v.blockNode(b.ID), "block is empty and has no terminator")
		return
	}
	for i, inst := range b.insts {
		in := v.m.Inst(inst)
		if in == nil {
			continue
		}
		last := i == len(b.insts)-1
		switch {
		case last && !in.Kind.IsTerminator():
			v.fatalf(diag.IRUnterminatedBlock, v.blockNode(b.ID), "block does not end in a terminator")
		case !last && in.Kind.IsTerminator():
			v.fatalf(diag.IRTerminatorMidBlock, v.instNode(in), "%s must be the last instruction of its block", in.Kind)
		case last && ctx.parent == NoInstID && in.Kind.IsExit():
			v.fatalf(diag.IRRootTerminator, v.instNode(in), "function root block must end in ret or unreachable")
		}
	}
}

func (v *validator) walkControl(in *Inst, fn FuncID) {
	c := in.Ctrl
	node := v.instNode(in)
	switch in.Kind {
	case InstIf:
		if len(c.Blocks) != 2 || c.Blocks[IfTrue] == NoBlockID || c.Blocks[IfFalse] == NoBlockID {
			v.fatalf(diag.IRMissingBlock, node, "if requires a true and a false block")
			return
		}
	case InstLoop:
		if len(c.Blocks) != 3 || c.Blocks[LoopBody] == NoBlockID {
			v.fatalf(diag.IRMissingBlock, node, "loop requires a body block")
			return
		}
	case InstSwitch:
		if len(c.Blocks) == 0 {
			v.fatalf(diag.IRMissingBlock, node, "switch requires at least one case")
			return
		}
		if len(c.Cases) != len(c.Blocks) {
			v.fatalf(diag.IRMissingBlock, node, "switch has %d case blocks but %d selector lists", len(c.Blocks), len(c.Cases))
			return
		}
	}
	c.ForeachBlock(func(blk BlockID) {
		v.walkBlock(blk, blockCtx{fn: fn, parent: in.ID})
	})
}

// 2. Exits -------------------------------------------------------------------

func (v *validator) reachable(id InstID) bool {
	_, ok := v.seenInsts[id]
	return ok
}

func (v *validator) checkExits() {
	for _, id := range v.reached {
		in := v.m.Inst(id)
		if in.Ctrl != nil {
			for _, e := range in.Ctrl.Exits() {
				ex := v.m.Inst(e)
				switch {
				case ex == nil:
					v.fatalf(diag.IRDanglingReference, v.instNode(in), "registered exit %d was destroyed", e)
				case !ex.Kind.IsExit():
					v.fatalf(diag.IRExitContainment, v.instNode(in), "registered exit %s is not an exit instruction", ex.Kind)
				case ex.Target != id:
					v.fatalf(diag.IRExitContainment, v.instNode(ex), "exit is registered on %s but targets another instruction", v.n.ctrl(in))
				case !v.reachable(e):
					v.fatalf(diag.IRExitContainment, v.instNode(ex), "registered exit of %s is not reachable from its function", v.n.ctrl(in))
				}
			}
		}
		if in.Kind.IsExit() {
			v.checkExit(in)
		}
	}
}

func (v *validator) checkExit(ex *Inst) {
	node := v.instNode(ex)
	t := v.m.Inst(ex.Target)
	if t == nil || t.Ctrl == nil {
		v.fatalf(diag.IRDanglingReference, node, "%s has no live control target", ex.Kind)
		return
	}
	if t.Kind != ex.Kind.ExitTargetKind() {
		v.fatalf(diag.IRExitContainment, node, "%s cannot target %s", ex.Kind, t.Kind)
		return
	}
	if !t.Ctrl.HasExit(ex.ID) {
		v.fatalf(diag.IRExitNotRegistered, node, "%s is not registered on %s", ex.Kind, v.n.ctrl(t))
	}

	var crossed []InstKind
	slot := -1
	blk := ex.Block
	for range len(v.m.blocks) + 1 {
		b := v.m.Block(blk)
		if b == nil || b.Parent == NoInstID {
			break
		}
		if b.Parent == t.ID {
			slot = t.Ctrl.SlotOf(blk)
			break
		}
		p := v.m.Inst(b.Parent)
		if p == nil {
			break
		}
		crossed = append(crossed, p.Kind)
		blk = p.Block
	}
	if slot < 0 {
		v.fatalf(diag.IRExitContainment, node, "%s is not nested inside %s", ex.Kind, v.n.ctrl(t))
		return
	}

	onlyThrough := func(allowed ...InstKind) bool {
		for _, k := range crossed {
			if !slices.Contains(allowed, k) {
				return false
			}
		}
		return true
	}
	var problem string
	switch ex.Kind {
	case InstExitIf:
		if len(crossed) > 0 {
			problem = "exit_if must be directly inside a block of its if"
		}
	case InstExitSwitch:
		if !onlyThrough(InstIf) {
			problem = "exit_switch may only leave nested ifs"
		}
	case InstExitLoop:
		if !onlyThrough(InstIf) || slot != LoopBody {
			problem = "exit_loop must be in the loop body, nested only in ifs"
		}
	case InstContinue:
		if !onlyThrough(InstIf, InstSwitch) || slot != LoopBody {
			problem = "continue must be in the loop body, nested only in ifs or switches"
		}
	case InstNextIteration:
		if len(crossed) > 0 || (slot != LoopInitializer && slot != LoopContinuing) {
			problem = "next_iteration must terminate the loop initializer or continuing block"
		}
	case InstBreakIf:
		if len(crossed) > 0 || slot != LoopContinuing {
			problem = "break_if must terminate the loop continuing block"
		}
	}
	if problem != "" {
		v.fatalf(diag.IRExitContainment, node, "%s", problem)
	}
}

// 3. Use-def ----------------------------------------------------------------

func (v *validator) checkUseDef() {
	for _, id := range v.reached {
		in := v.m.Inst(id)
		node := v.instNode(in)
		for slot, op := range in.Operands {
			val := v.m.Value(op)
			if val == nil {
				v.fatalf(diag.IRDanglingReference, node, "operand %d refers to a destroyed value", slot)
				continue
			}
			if !slices.Contains(val.uses, Use{Inst: id, Slot: slot}) {
				v.errorf(diag.IRUseDefMismatch, node, "operand %d (%s) is missing from the value's use list", slot, v.valueName(op))
			}
		}
		for i, r := range in.Results {
			rv := v.m.Value(r)
			if rv == nil {
				v.fatalf(diag.IRDanglingReference, node, "result %d refers to a destroyed value", i)
				continue
			}
			if rv.Kind != ValueResult || rv.Inst != id || rv.Index != i {
				v.fatalf(diag.IROwnership, node, "result %d is not owned by this instruction", i)
			}
		}
		if in.Kind == InstCall && v.m.Func(in.Callee) == nil {
			v.fatalf(diag.IRDanglingReference, node, "call of a destroyed function")
		}
	}
	for val := range v.m.Values() {
		seen := make(map[Use]struct{}, len(val.uses))
		for _, u := range val.uses {
			if _, dup := seen[u]; dup {
				v.errorf(diag.IRUseDefMismatch, v.valueNode(val), "use list records slot %d of the same instruction twice", u.Slot)
				continue
			}
			seen[u] = struct{}{}
			user := v.m.Inst(u.Inst)
			switch {
			case user == nil:
				v.errorf(diag.IRUseDefMismatch, v.valueNode(val), "use list names a destroyed instruction")
			case !v.reachable(u.Inst):
				v.errorf(diag.IRUseDefMismatch, v.valueNode(val), "use list names an instruction outside the module")
			case u.Slot < 0 || u.Slot >= len(user.Operands) || user.Operands[u.Slot] != val.ID:
				v.errorf(diag.IRUseDefMismatch, v.valueNode(val), "use list names operand %d of %s which reads another value", u.Slot, user.Kind)
			}
		}
	}
}

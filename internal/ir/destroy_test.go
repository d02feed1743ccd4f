package ir_test

import (
	"errors"
	"testing"

	"shade/internal/ir"
	"shade/internal/testkit"
)

func TestDestroyControlCascades(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.Void)
	c := b.Param(f, "c", ty.Bool)
	x := b.Param(f, "x", ty.I32)
	ifi := b.If(c)
	var nested ir.ValueID
	b.InBlock(b.TrueBlock(ifi), func() {
		nested = b.Add(x, b.I32(1))
		b.Let("t", nested)
		b.ExitIf(ifi)
	})
	b.InBlock(b.FalseBlock(ifi), func() { b.ExitIf(ifi) })
	b.Return(f)
	mustNoErr(t, b.Err())

	trueBlk := b.TrueBlock(ifi)
	mustNoErr(t, m.DestroyInst(ifi))

	if m.Inst(ifi) != nil || m.Block(trueBlk) != nil {
		t.Fatalf("if and its blocks should be destroyed")
	}
	if m.Value(nested) != nil {
		t.Fatalf("nested result should be destroyed")
	}
	if m.Value(c).HasUses() || m.Value(x).HasUses() {
		t.Fatalf("destroyed instructions still count as uses")
	}
	mustNoErr(t, testkit.CheckAll(m))
	mustNoErr(t, ir.Validate(m, ir.Options{}))
}

func TestDestroyRejectsLiveResults(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	c := b.Param(f, "c", ty.Bool)
	ifi := b.If(c, ty.I32)
	b.InBlock(b.TrueBlock(ifi), func() { b.ExitIf(ifi, b.I32(1)) })
	b.InBlock(b.FalseBlock(ifi), func() { b.ExitIf(ifi, b.I32(2)) })
	ret := b.Return(f, m.Result(ifi, 0))
	mustNoErr(t, b.Err())

	before := ir.Disassemble(m)
	if err := m.DestroyInst(ifi); !errors.Is(err, ir.ErrValueInUse) {
		t.Fatalf("err = %v, want ErrValueInUse", err)
	}
	if after := ir.Disassemble(m); after != before {
		t.Fatalf("failed destroy changed the module:\n%s", after)
	}

	mustNoErr(t, m.DestroyInst(ret))
	mustNoErr(t, m.DestroyInst(ifi))
	b.SetBlock(m.Func(f).Block)
	b.Return(f, b.I32(0))
	mustNoErr(t, testkit.CheckAll(m))
	mustNoErr(t, ir.Validate(m, ir.Options{}))
}

func TestRemoveBlock(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.Void)
	sel := b.Param(f, "s", ty.I32)
	sw := b.Switch(sel)
	one := b.Case(sw, b.I32(1))
	b.InBlock(one, func() { b.ExitSwitch(sw) })
	def := b.DefaultCase(sw)
	b.InBlock(def, func() { b.ExitSwitch(sw) })
	loop := b.Loop()
	b.InBlock(b.Body(loop), func() { b.ExitLoop(loop) })
	b.InBlock(b.Continuing(loop), func() { b.NextIteration(loop) })
	b.Return(f)
	mustNoErr(t, b.Err())

	ctrl := m.Inst(sw).Ctrl
	if ctrl.NumExits() != 2 {
		t.Fatalf("switch exits = %d, want 2", ctrl.NumExits())
	}
	mustNoErr(t, m.RemoveBlock(sw, one))
	if len(ctrl.Blocks) != 1 || len(ctrl.Cases) != 1 || ctrl.Blocks[0] != def {
		t.Fatalf("case not removed: %v", ctrl.Blocks)
	}
	if ctrl.NumExits() != 1 {
		t.Fatalf("exit of removed case still registered")
	}

	cont := b.Continuing(loop)
	mustNoErr(t, m.RemoveBlock(loop, cont))
	if m.Inst(loop).Ctrl.Block(ir.LoopContinuing) != ir.NoBlockID || m.Block(cont) != nil {
		t.Fatalf("continuing block not removed")
	}
	if err := m.RemoveBlock(loop, b.Body(loop)); !errors.Is(err, ir.ErrRequiredBlock) {
		t.Fatalf("removing loop body: err = %v", err)
	}
	if err := m.RemoveBlock(sw, b.Body(loop)); !errors.Is(err, ir.ErrNotOwned) {
		t.Fatalf("removing foreign block: err = %v", err)
	}
	mustNoErr(t, testkit.CheckAll(m))
	mustNoErr(t, ir.Validate(m, ir.Options{}))
}

func TestRemoveIfBlockIsRejected(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.Void)
	ifi := b.If(b.Bool(true))
	b.InBlock(b.TrueBlock(ifi), func() { b.ExitIf(ifi) })
	b.InBlock(b.FalseBlock(ifi), func() { b.ExitIf(ifi) })
	b.Return(f)
	if err := m.RemoveBlock(ifi, b.FalseBlock(ifi)); !errors.Is(err, ir.ErrRequiredBlock) {
		t.Fatalf("err = %v, want ErrRequiredBlock", err)
	}
}

func TestDestroyFunction(t *testing.T) {
	m, b, ty := newModule()
	callee := b.Function("callee", ty.I32)
	p := b.Param(callee, "p", ty.I32)
	b.Return(callee, b.Add(p, p))
	caller := b.Function("caller", ty.I32)
	b.Return(caller, b.CallValue(callee, b.I32(4)))
	mustNoErr(t, b.Err())

	if err := m.DestroyFunction(callee); !errors.Is(err, ir.ErrFuncInUse) {
		t.Fatalf("err = %v, want ErrFuncInUse", err)
	}
	mustNoErr(t, m.DestroyFunction(caller))
	mustNoErr(t, m.DestroyFunction(callee))
	if m.NumFuncs() != 0 || m.Value(p) != nil {
		t.Fatalf("functions not destroyed")
	}
	if got := m.Value(b.I32(4)).NumUses(); got != 0 {
		t.Fatalf("constant still used %d times", got)
	}
	mustNoErr(t, testkit.CheckAll(m))
}

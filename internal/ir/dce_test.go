package ir_test

import (
	"testing"

	"shade/internal/ir"
	"shade/internal/testkit"
	"shade/internal/types"
)

func TestRemoveDeadValues(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	x := b.Param(f, "x", ty.I32)
	a := b.Add(x, x)
	b.Mul(a, a)
	v := b.Var("unused", types.SpaceFunction, ty.I32, ir.NoValueID)
	kept := b.Var("kept", types.SpaceFunction, ty.I32, ir.NoValueID)
	b.Store(kept, x)
	ifi := b.If(b.Bool(true))
	b.InBlock(b.TrueBlock(ifi), func() {
		b.Negate(x)
		b.ExitIf(ifi)
	})
	b.InBlock(b.FalseBlock(ifi), func() { b.ExitIf(ifi) })
	b.Return(f, x)
	mustNoErr(t, b.Err())

	if got := ir.RemoveDeadValues(m); got != 4 {
		t.Fatalf("removed %d instructions, want 4\n%s", got, ir.Disassemble(m))
	}
	if m.Value(a) != nil || m.Value(v) != nil {
		t.Fatalf("dead values survived")
	}
	if m.Value(kept) == nil {
		t.Fatalf("stored-to variable was removed")
	}
	if got := m.Value(x).NumUses(); got != 2 {
		t.Fatalf("x uses = %d, want 2 (store and ret)", got)
	}
	if ir.RemoveDeadValues(m) != 0 {
		t.Fatalf("second run should be a no-op")
	}
	mustNoErr(t, testkit.CheckAll(m))
	mustNoErr(t, ir.Validate(m, ir.Options{}))
}

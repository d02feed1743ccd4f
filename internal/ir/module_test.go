package ir_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"shade/internal/ir"
	"shade/internal/testkit"
	"shade/internal/types"
)

func newModule() (*ir.Module, *ir.Builder, types.Builtins) {
	m := ir.NewModule(nil)
	return m, ir.NewBuilder(m), m.Types().Builtins()
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func producer(t *testing.T, m *ir.Module, v ir.ValueID) ir.InstID {
	t.Helper()
	val := m.Value(v)
	if val == nil || val.Kind != ir.ValueResult {
		t.Fatalf("value %d is not an instruction result", v)
	}
	return val.Inst
}

func TestScenarioReturnFalse(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("a", ty.Bool)
	b.Return(f, b.Bool(false))
	mustNoErr(t, b.Err())

	if err := ir.Validate(m, ir.Options{}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	fn := m.Func(f)
	blk := m.Block(fn.Block)
	if blk.Len() != 1 {
		t.Fatalf("root block has %d instructions, want 1", blk.Len())
	}
	ret := m.Terminator(fn.Block)
	if ret == nil || ret.Kind != ir.InstReturn {
		t.Fatalf("missing return terminator")
	}
	c := m.Value(ret.Operand(0))
	if c.Kind != ir.ValueConst || c.Const.Bool() {
		t.Fatalf("return operand should be the false constant")
	}
	if c.NumUses() != 1 || c.Uses()[0] != (ir.Use{Inst: ret.ID, Slot: 0}) {
		t.Fatalf("constant uses = %v", c.Uses())
	}
}

func TestConstantsAreInterned(t *testing.T) {
	m, b, ty := newModule()
	if b.I32(3) != b.I32(3) {
		t.Fatalf("equal constants should share a value")
	}
	if b.I32(0) == b.U32(0) {
		t.Fatalf("constants of different types must differ")
	}
	if b.Zero(ty.F32) != b.F32(0) {
		t.Fatalf("scalar zero should equal the 0.0 literal")
	}
	v4 := m.Types().Vec(ty.F32, 4)
	if b.Zero(v4) != b.Zero(v4) {
		t.Fatalf("composite zero should be interned")
	}
	if got := len(m.Constants()); got != 5 {
		t.Fatalf("got %d constants, want 5", got)
	}
}

func TestAppendKeepsTerminatorLast(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	x := b.Param(f, "x", ty.I32)
	ret := b.Return(f, x)

	sum := m.NewInst(ir.InstBinary, []ir.ValueID{x, x}, []types.TypeID{ty.I32})
	mustNoErr(t, m.Append(m.Func(f).Block, sum))
	insts := m.Block(m.Func(f).Block).Insts()
	if len(insts) != 2 || insts[0] != sum || insts[1] != ret {
		t.Fatalf("insts = %v, want [%d %d]", insts, sum, ret)
	}

	let := m.NewInst(ir.InstLet, []ir.ValueID{x}, []types.TypeID{ty.I32})
	mustNoErr(t, m.Prepend(m.Func(f).Block, let))
	if got := m.Block(m.Func(f).Block).First(); got != let {
		t.Fatalf("prepend put %d first, want %d", got, let)
	}
	if err := m.Append(m.Func(f).Block, let); !errors.Is(err, ir.ErrNotDetached) {
		t.Fatalf("append of attached inst: err = %v", err)
	}
	mustNoErr(t, testkit.CheckAll(m))
}

func TestRemoveAndReinsert(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	x := b.Param(f, "x", ty.I32)
	sum := b.Add(x, x)
	b.Return(f, sum)
	add := producer(t, m, sum)

	mustNoErr(t, m.Remove(add))
	if m.Value(x).NumUses() != 0 {
		t.Fatalf("removed instruction still counts as a use")
	}
	if got := m.Inst(add).Operands; len(got) != 2 {
		t.Fatalf("remove must keep operands, got %v", got)
	}
	if err := m.Remove(add); !errors.Is(err, ir.ErrDetached) {
		t.Fatalf("second remove: err = %v", err)
	}
	mustNoErr(t, testkit.CheckUseDef(m))

	mustNoErr(t, m.InsertBefore(m.Block(m.Func(f).Block).Last(), add))
	if m.Value(x).NumUses() != 2 {
		t.Fatalf("reinserted instruction uses = %d, want 2", m.Value(x).NumUses())
	}
	mustNoErr(t, ir.Validate(m, ir.Options{}))
}

func TestSetOperandAndReplaceAllUses(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	x := b.Param(f, "x", ty.I32)
	y := b.Param(f, "y", ty.I32)
	sum := b.Add(x, x)
	b.Return(f, sum)
	add := producer(t, m, sum)

	mustNoErr(t, m.SetOperand(add, 1, y))
	if m.Value(x).NumUses() != 1 || m.Value(y).NumUses() != 1 {
		t.Fatalf("uses after SetOperand: x=%d y=%d", m.Value(x).NumUses(), m.Value(y).NumUses())
	}
	if err := m.SetOperand(add, 2, y); !errors.Is(err, ir.ErrBadSlot) {
		t.Fatalf("out of range slot: err = %v", err)
	}

	before := append([]ir.Use(nil), m.Value(x).Uses()...)
	mustNoErr(t, m.ReplaceAllUsesWith(x, x))
	if got := m.Value(x).Uses(); len(got) != len(before) || got[0] != before[0] {
		t.Fatalf("self replacement changed uses: %v", got)
	}

	mustNoErr(t, m.ReplaceAllUsesWith(x, y))
	if m.Value(x).HasUses() {
		t.Fatalf("old value still used")
	}
	if m.Value(y).NumUses() != 2 {
		t.Fatalf("new value uses = %d, want 2", m.Value(y).NumUses())
	}
	mustNoErr(t, testkit.CheckUseDef(m))
}

func TestSetExitTargetMovesRegistration(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.Void)
	c := b.Param(f, "c", ty.Bool)
	outer := b.If(c)
	var inner, exit ir.InstID
	b.InBlock(b.TrueBlock(outer), func() {
		inner = b.If(c)
		b.InBlock(b.TrueBlock(inner), func() { exit = b.ExitIf(outer) })
		b.InBlock(b.FalseBlock(inner), func() { b.ExitIf(inner) })
		b.ExitIf(outer)
	})
	b.InBlock(b.FalseBlock(outer), func() { b.ExitIf(outer) })
	b.Return(f)
	mustNoErr(t, b.Err())

	if !m.Inst(outer).Ctrl.HasExit(exit) {
		t.Fatalf("exit should start registered on the outer if")
	}
	mustNoErr(t, m.SetExitTarget(exit, inner))
	if m.Inst(outer).Ctrl.HasExit(exit) || !m.Inst(inner).Ctrl.HasExit(exit) {
		t.Fatalf("registration did not move")
	}
	if got := m.Inst(inner).Ctrl.NumExits(); got != 2 {
		t.Fatalf("inner exits = %d, want 2", got)
	}
	m.Inst(inner).Ctrl.AddExit(exit)
	if got := m.Inst(inner).Ctrl.NumExits(); got != 2 {
		t.Fatalf("duplicate AddExit changed the set: %d", got)
	}
	mustNoErr(t, testkit.CheckExitRegistry(m))
	mustNoErr(t, ir.Validate(m, ir.Options{}))
}

func TestNamesAreNormalized(t *testing.T) {
	m, b, ty := newModule()
	b.Function("cafe\u0301", ty.Void)
	if _, ok := m.FuncByName("caf\u00e9"); !ok {
		t.Fatalf("decomposed and composed names should match")
	}
}

// TestRandomEditsKeepUseListsInSync applies random edits and checks the
// operand/use bijection after each one.
func TestRandomEditsKeepUseListsInSync(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	vals := []ir.ValueID{b.Param(f, "p", ty.I32), b.I32(1), b.I32(2)}
	var insts []ir.InstID
	for i := range 24 {
		v := b.Add(vals[i%len(vals)], vals[(i*7)%len(vals)])
		vals = append(vals, v)
		insts = append(insts, producer(t, m, v))
	}
	b.Return(f, vals[len(vals)-1])
	mustNoErr(t, b.Err())

	rng := rand.New(rand.NewPCG(7, 11))
	blk := m.Func(f).Block
	for step := range 500 {
		inst := insts[rng.IntN(len(insts))]
		in := m.Inst(inst)
		switch rng.IntN(4) {
		case 0:
			mustNoErr(t, m.SetOperand(inst, rng.IntN(2), vals[rng.IntN(len(vals))]))
		case 1:
			if in.Attached() {
				mustNoErr(t, m.Remove(inst))
			} else {
				mustNoErr(t, m.Prepend(blk, inst))
			}
		case 2:
			mustNoErr(t, m.ReplaceAllUsesWith(vals[rng.IntN(len(vals))], vals[rng.IntN(len(vals))]))
		case 3:
			if !in.Attached() {
				anchor := m.Block(blk).Last()
				mustNoErr(t, m.InsertBefore(anchor, inst))
			}
		}
		if err := testkit.CheckUseDef(m); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
}

func TestReplaceAllUsesWithManyUses(t *testing.T) {
	m, b, ty := newModule()
	f := b.Function("f", ty.I32)
	x := b.Param(f, "x", ty.I32)
	y := b.Param(f, "y", ty.I32)
	sum := b.I32(0)
	for range 500 {
		sum = b.Add(sum, b.Mul(x, x))
	}
	b.Return(f, sum)
	mustNoErr(t, b.Err())

	mustNoErr(t, m.ReplaceAllUsesWith(x, y))
	if n := len(m.Value(y).Uses()); n != 1000 {
		t.Fatalf("y has %d uses, want 1000", n)
	}
	if m.Value(x).HasUses() {
		t.Fatalf("x still has uses")
	}
	if err := testkit.CheckUseDef(m); err != nil {
		t.Fatal(err)
	}
	if err := ir.Validate(m, ir.Options{}); err != nil {
		t.Fatal(err)
	}
}

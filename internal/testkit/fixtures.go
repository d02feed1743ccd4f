package testkit

import (
	"shade/internal/ir"
	"shade/internal/types"
)

// Fixture builds one small, valid module.
type Fixture struct {
	Name  string
	Build func(b *ir.Builder)
}

// Fixtures returns modules covering every instruction family. Each one
// passes validation.
func Fixtures() []Fixture {
	return []Fixture{
		{Name: "return_false", Build: ReturnFalse},
		{Name: "pick", Build: Pick},
		{Name: "count_loop", Build: CountLoop},
		{Name: "switch_global", Build: SwitchGlobal},
		{Name: "composites", Build: Composites},
	}
}

// NewModule builds a fixture into a fresh module.
func NewModule(build func(b *ir.Builder)) (*ir.Module, error) {
	m := ir.NewModule(nil)
	b := ir.NewBuilder(m)
	build(b)
	return m, b.Err()
}

// ReturnFalse builds `func a():bool { ret false }`.
func ReturnFalse(b *ir.Builder) {
	f := b.Function("a", b.Types().Builtins().Bool)
	b.Return(f, b.Bool(false))
}

// Pick selects between two constants with a value-producing if.
func Pick(b *ir.Builder) {
	ty := b.Types().Builtins()
	f := b.Function("pick", ty.I32)
	c := b.Param(f, "c", ty.Bool)
	ifi := b.If(c, ty.I32)
	b.InBlock(b.TrueBlock(ifi), func() { b.ExitIf(ifi, b.I32(1)) })
	b.InBlock(b.FalseBlock(ifi), func() { b.ExitIf(ifi, b.I32(2)) })
	b.Return(f, b.Module().Result(ifi, 0))
}

// CountLoop counts a function variable to ten using all three loop blocks.
func CountLoop(b *ir.Builder) {
	ty := b.Types().Builtins()
	f := b.Function("count", ty.Void)
	loop := b.Loop()
	var i ir.ValueID
	b.InBlock(b.Initializer(loop), func() {
		i = b.Var("i", types.SpaceFunction, ty.I32, b.I32(0))
		b.NextIteration(loop)
	})
	b.InBlock(b.Body(loop), func() {
		ifi := b.If(b.LessThan(b.Load(i), b.I32(10)))
		b.InBlock(b.TrueBlock(ifi), func() { b.ExitIf(ifi) })
		b.InBlock(b.FalseBlock(ifi), func() { b.ExitLoop(loop) })
		b.Continue(loop)
	})
	b.InBlock(b.Continuing(loop), func() {
		b.Store(i, b.Add(b.Load(i), b.I32(1)))
		b.BreakIf(loop, b.GreaterThanEqual(b.Load(i), b.I32(100)))
	})
	b.Return(f)
}

// SwitchGlobal is a compute entry point switching over a private global.
func SwitchGlobal(b *ir.Builder) {
	ty := b.Types().Builtins()
	g := b.GlobalVar("counter", ty.U32, b.U32(0))
	f := b.EntryPoint("main", 64, 1, 1)
	sw := b.Switch(b.Load(g), ty.U32)
	b.InBlock(b.Case(sw, b.U32(1), b.U32(2)), func() { b.ExitSwitch(sw, b.U32(10)) })
	b.InBlock(b.DefaultCase(sw), func() {
		b.Store(g, b.U32(7))
		b.ExitSwitch(sw, b.Load(g))
	})
	b.Store(g, b.Module().Result(sw, 0))
	b.Return(f)
}

// Composites exercises calls, vectors, arrays, structs and pointer access.
func Composites(b *ir.Builder) {
	ty := b.Types().Builtins()
	in := b.Types()
	v3 := in.Vec(ty.F32, 3)
	pair := in.RegisterStruct("Pair", []types.StructMember{
		{Name: "a", Type: ty.F32},
		{Name: "b", Type: ty.I32},
	})
	g := b.GlobalVar("scale", ty.F32, b.F32(2))

	helper := b.Function("splat", v3)
	x := b.Param(helper, "x", ty.F32)
	b.Return(helper, b.Construct(v3, x))

	main := b.EntryPoint("main", 8, 1, 1)
	s := b.Load(g)
	v := b.CallValue(helper, s)
	y := b.Access(ty.F32, v, b.U32(1))
	sum := b.Add(y, b.Convert(ty.F32, b.I32(3)))
	arr := in.Array(ty.F32, 2)
	local := b.Var("pair", types.SpaceFunction, arr, b.Construct(arr, sum, b.Negate(sum)))
	elem := b.Access(in.Ptr(types.SpaceFunction, ty.F32, types.AccessReadWrite), local, b.I32(0))
	b.Store(elem, b.Mul(sum, b.F32(0.5)))
	p := b.Let("p", b.Construct(pair, b.Load(elem), b.I32(4)))
	b.Store(g, b.Access(ty.F32, p, b.U32(0)))
	b.Return(main)
}

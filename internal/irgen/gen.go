// Package irgen builds random, valid IR modules from a seed.
//
// Generated modules exercise every instruction family the validator knows
// about. They are used by fuzz targets and by `shade gen` to produce corpora
// for the codec and the emitters.
package irgen

import (
	"fmt"
	"math/rand/v2"

	"shade/internal/ir"
	"shade/internal/types"
)

// Options tunes the shape of generated modules. Zero fields take defaults.
type Options struct {
	Seed      uint64
	Funcs     int // helper functions besides the entry point
	MaxDepth  int // control nesting
	MaxStmts  int // statements per block
	NoGlobals bool
}

func (o Options) withDefaults() Options {
	if o.Funcs <= 0 {
		o.Funcs = 3
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.MaxStmts <= 0 {
		o.MaxStmts = 6
	}
	return o
}

// Generate returns a module that passes ir.Validate. The same options always
// produce the same disassembly.
func Generate(opts Options) (*ir.Module, error) {
	opts = opts.withDefaults()
	m := ir.NewModule(nil)
	g := &generator{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)), //nolint:gosec // deterministic corpus
		b:    ir.NewBuilder(m),
		ty:   m.Types().Builtins(),
	}
	g.scalars = []types.TypeID{g.ty.I32, g.ty.U32, g.ty.F32, g.ty.Bool}
	g.module()
	if err := g.b.Err(); err != nil {
		return nil, fmt.Errorf("irgen: seed %d: %w", opts.Seed, err)
	}
	return m, nil
}

type generator struct {
	opts    Options
	rng     *rand.Rand
	b       *ir.Builder
	ty      types.Builtins
	scalars []types.TypeID

	scope   []map[types.TypeID][]ir.ValueID
	funcs   []ir.FuncID
	globals []ir.ValueID
	names   int
}

func (g *generator) module() {
	if !g.opts.NoGlobals {
		for range 1 + g.rng.IntN(2) {
			t := g.numeric()
			g.globals = append(g.globals, g.b.GlobalVar(g.name("g"), t, g.constant(t)))
		}
	}
	for range g.opts.Funcs {
		g.function()
	}
	g.entryPoint()
}

func (g *generator) name(prefix string) string {
	g.names++
	return fmt.Sprintf("%s%d", prefix, g.names)
}

func (g *generator) numeric() types.TypeID {
	return g.scalars[g.rng.IntN(3)]
}

func (g *generator) scalar() types.TypeID {
	return g.scalars[g.rng.IntN(len(g.scalars))]
}

// Scopes ---------------------------------------------------------------------

func (g *generator) push() {
	g.scope = append(g.scope, make(map[types.TypeID][]ir.ValueID))
}

func (g *generator) pop() {
	g.scope = g.scope[:len(g.scope)-1]
}

func (g *generator) define(v ir.ValueID) {
	if v == ir.NoValueID {
		return
	}
	t := g.b.Module().ValueType(v)
	top := g.scope[len(g.scope)-1]
	top[t] = append(top[t], v)
}

func (g *generator) visible(t types.TypeID) []ir.ValueID {
	var out []ir.ValueID
	for _, s := range g.scope {
		out = append(out, s[t]...)
	}
	return out
}

func (g *generator) constant(t types.TypeID) ir.ValueID {
	switch t {
	case g.ty.I32:
		return g.b.I32(int32(g.rng.IntN(200)) - 100) //nolint:gosec // bounded
	case g.ty.U32:
		return g.b.U32(uint32(g.rng.IntN(100))) //nolint:gosec // bounded
	case g.ty.F32:
		return g.b.F32(float32(g.rng.IntN(64)) / 4)
	default:
		return g.b.Bool(g.rng.IntN(2) == 0)
	}
}

// operand returns a visible value of type t, or a constant.
func (g *generator) operand(t types.TypeID) ir.ValueID {
	vals := g.visible(t)
	if len(vals) == 0 || g.rng.IntN(4) == 0 {
		return g.constant(t)
	}
	return vals[g.rng.IntN(len(vals))]
}

// Functions ------------------------------------------------------------------

func (g *generator) function() {
	ret := g.scalar()
	f := g.b.Function(g.name("fn"), ret)
	g.push()
	for range g.rng.IntN(4) {
		g.define(g.b.Param(f, g.name("p"), g.scalar()))
	}
	g.stmts(0)
	g.b.Return(f, g.operand(ret))
	g.pop()
	g.funcs = append(g.funcs, f)
}

func (g *generator) entryPoint() {
	f := g.b.EntryPoint("main", uint32(1+g.rng.IntN(64)), 1, 1) //nolint:gosec // bounded
	g.push()
	g.stmts(0)
	for _, gv := range g.globals {
		t := g.b.Types().Pointee(g.b.Module().ValueType(gv))
		g.b.Store(gv, g.operand(t))
	}
	g.b.Return(f)
	g.pop()
}

// Statements -----------------------------------------------------------------

func (g *generator) stmts(depth int) {
	for range 1 + g.rng.IntN(g.opts.MaxStmts) {
		g.stmt(depth)
	}
}

func (g *generator) stmt(depth int) {
	choice := g.rng.IntN(10)
	if depth >= g.opts.MaxDepth && choice >= 6 {
		choice = g.rng.IntN(6)
	}
	switch choice {
	case 0, 1:
		g.arith()
	case 2:
		g.compare()
	case 3:
		g.unaryOrConvert()
	case 4:
		g.memory()
	case 5:
		g.call()
	case 6, 7:
		g.ifStmt(depth)
	case 8:
		g.loop(depth)
	default:
		g.switchStmt(depth)
	}
}

func (g *generator) arith() {
	t := g.scalar()
	if t == g.ty.Bool {
		ops := []ir.BinaryOp{ir.OpAnd, ir.OpOr, ir.OpXor}
		g.define(g.b.Binary(ops[g.rng.IntN(len(ops))], t, g.operand(t), g.operand(t)))
		return
	}
	ops := []ir.BinaryOp{ir.OpAdd, ir.OpSubtract, ir.OpMultiply, ir.OpDivide, ir.OpModulo}
	if t != g.ty.F32 {
		ops = append(ops, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShiftLeft, ir.OpShiftRight)
	}
	op := ops[g.rng.IntN(len(ops))]
	rhs := g.operand(t)
	if op == ir.OpShiftLeft || op == ir.OpShiftRight {
		rhs = g.b.U32(uint32(g.rng.IntN(8))) //nolint:gosec // bounded
	}
	g.define(g.b.Binary(op, t, g.operand(t), rhs))
}

func (g *generator) compare() {
	t := g.numeric()
	ops := []ir.BinaryOp{
		ir.OpEqual, ir.OpNotEqual, ir.OpLessThan,
		ir.OpGreaterThan, ir.OpLessThanEqual, ir.OpGreaterThanEqual,
	}
	g.define(g.b.Binary(ops[g.rng.IntN(len(ops))], g.ty.Bool, g.operand(t), g.operand(t)))
}

func (g *generator) unaryOrConvert() {
	switch g.rng.IntN(4) {
	case 0:
		t := []types.TypeID{g.ty.I32, g.ty.F32}[g.rng.IntN(2)]
		g.define(g.b.Negate(g.operand(t)))
	case 1:
		t := []types.TypeID{g.ty.I32, g.ty.U32}[g.rng.IntN(2)]
		g.define(g.b.Complement(g.operand(t)))
	case 2:
		g.define(g.b.Not(g.operand(g.ty.Bool)))
	default:
		from, to := g.numeric(), g.numeric()
		g.define(g.b.Convert(to, g.operand(from)))
	}
}

func (g *generator) memory() {
	t := g.numeric()
	if len(g.globals) > 0 && g.rng.IntN(3) == 0 {
		gv := g.globals[g.rng.IntN(len(g.globals))]
		g.define(g.b.Load(gv))
		return
	}
	ptr := g.b.Var(g.name("v"), types.SpaceFunction, t, g.operand(t))
	g.b.Store(ptr, g.operand(t))
	g.define(g.b.Load(ptr))
}

func (g *generator) call() {
	if len(g.funcs) == 0 {
		g.arith()
		return
	}
	f := g.b.Module().Func(g.funcs[g.rng.IntN(len(g.funcs))])
	args := make([]ir.ValueID, 0, len(f.Params))
	for _, p := range f.Params {
		args = append(args, g.operand(g.b.Module().ValueType(p)))
	}
	g.define(g.b.CallValue(f.ID, args...))
}

// nested emits statements into blk inside a fresh scope, then finish.
func (g *generator) nested(blk ir.BlockID, depth int, finish func()) {
	g.b.InBlock(blk, func() {
		g.push()
		if g.rng.IntN(3) > 0 {
			g.stmts(depth + 1)
		}
		finish()
		g.pop()
	})
}

func (g *generator) resultTypes() []types.TypeID {
	n := g.rng.IntN(3)
	out := make([]types.TypeID, 0, n)
	for range n {
		out = append(out, g.scalar())
	}
	return out
}

func (g *generator) args(ts []types.TypeID) []ir.ValueID {
	out := make([]ir.ValueID, 0, len(ts))
	for _, t := range ts {
		out = append(out, g.operand(t))
	}
	return out
}

func (g *generator) defineResults(inst ir.InstID) {
	for _, r := range g.b.Module().Inst(inst).Results {
		g.define(r)
	}
}

func (g *generator) ifStmt(depth int) {
	rts := g.resultTypes()
	ifi := g.b.If(g.operand(g.ty.Bool), rts...)
	g.nested(g.b.TrueBlock(ifi), depth, func() { g.b.ExitIf(ifi, g.args(rts)...) })
	g.nested(g.b.FalseBlock(ifi), depth, func() { g.b.ExitIf(ifi, g.args(rts)...) })
	g.defineResults(ifi)
}

func (g *generator) loop(depth int) {
	rts := g.resultTypes()
	loop := g.b.Loop(rts...)
	var counter ir.ValueID
	g.b.InBlock(g.b.Initializer(loop), func() {
		counter = g.b.Var(g.name("i"), types.SpaceFunction, g.ty.U32, g.b.U32(0))
		g.b.NextIteration(loop)
	})
	g.nested(g.b.Body(loop), depth, func() {
		done := g.b.GreaterThanEqual(g.b.Load(counter), g.b.U32(uint32(1+g.rng.IntN(8)))) //nolint:gosec // bounded
		ifi := g.b.If(done)
		g.nested(g.b.TrueBlock(ifi), depth+1, func() { g.b.ExitLoop(loop, g.args(rts)...) })
		g.b.InBlock(g.b.FalseBlock(ifi), func() { g.b.ExitIf(ifi) })
		g.b.Continue(loop)
	})
	g.b.InBlock(g.b.Continuing(loop), func() {
		next := g.b.Add(g.b.Load(counter), g.b.U32(1))
		g.b.Store(counter, next)
		// break_if leaves without exit values, so only void loops use it.
		if len(rts) == 0 && g.rng.IntN(2) == 0 {
			g.b.BreakIf(loop, g.b.GreaterThan(next, g.b.U32(64)))
		} else {
			g.b.NextIteration(loop)
		}
	})
	g.defineResults(loop)
}

func (g *generator) switchStmt(depth int) {
	sel := []types.TypeID{g.ty.I32, g.ty.U32}[g.rng.IntN(2)]
	rts := g.resultTypes()
	sw := g.b.Switch(g.operand(sel), rts...)
	used := make(map[int]bool)
	for range 1 + g.rng.IntN(3) {
		var sels []ir.ValueID
		for range 1 + g.rng.IntN(2) {
			n := g.rng.IntN(16)
			if used[n] {
				continue
			}
			used[n] = true
			if sel == g.ty.I32 {
				sels = append(sels, g.b.I32(int32(n))) //nolint:gosec // bounded
			} else {
				sels = append(sels, g.b.U32(uint32(n))) //nolint:gosec // bounded
			}
		}
		if len(sels) == 0 {
			continue
		}
		g.nested(g.b.Case(sw, sels...), depth, func() { g.b.ExitSwitch(sw, g.args(rts)...) })
	}
	g.nested(g.b.DefaultCase(sw), depth, func() { g.b.ExitSwitch(sw, g.args(rts)...) })
	g.defineResults(sw)
}

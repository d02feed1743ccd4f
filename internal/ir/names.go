package ir

import (
	"fmt"
	"strconv"
	"strings"

	"shade/internal/types"
)

// namer assigns the display names used by the disassembler and by
// diagnostic paths. Names depend only on traversal order, so structurally
// equal modules get equal names regardless of arena ids.
type namer struct {
	m      *Module
	values map[ValueID]string
	blocks map[BlockID]int
	ctrls  map[InstID]string
	funcs  map[FuncID]string
	taken  map[string]struct{}

	nextValue int
	nextBlock int
	ctrlCount map[InstKind]int
}

func newNamer(m *Module) *namer {
	n := &namer{
		m:         m,
		values:    make(map[ValueID]string),
		blocks:    make(map[BlockID]int),
		ctrls:     make(map[InstID]string),
		funcs:     make(map[FuncID]string),
		taken:     make(map[string]struct{}),
		ctrlCount: make(map[InstKind]int),
	}
	n.walk()
	return n
}

// walk names everything reachable in printing order.
func (n *namer) walk() {
	for f := range n.m.Functions() {
		n.function(f.ID)
	}
	if rb := n.m.Block(n.m.root); rb != nil && !rb.Empty() {
		n.walkBlock(n.m.root, 0)
	}
	for f := range n.m.Functions() {
		for _, p := range f.Params {
			n.value(p)
		}
		n.walkBlock(f.Block, 0)
	}
}

func (n *namer) walkBlock(id BlockID, depth int) {
	b := n.m.Block(id)
	if b == nil || depth > len(n.m.blocks) {
		return
	}
	n.block(id)
	for _, inst := range b.insts {
		in := n.m.Inst(inst)
		if in == nil {
			continue
		}
		for _, r := range in.Results {
			n.value(r)
		}
		if in.Ctrl != nil {
			n.ctrl(in)
			in.Ctrl.ForeachBlock(func(nb BlockID) { n.walkBlock(nb, depth+1) })
		}
	}
}

func (n *namer) unique(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, ok := n.taken[name]; !ok {
			n.taken[name] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

func (n *namer) function(id FuncID) string {
	if s, ok := n.funcs[id]; ok {
		return s
	}
	f := n.m.Func(id)
	if f == nil {
		return "<dangling>"
	}
	base := f.Name
	if base == "" {
		base = "f"
	}
	s := n.unique("%" + base)
	n.funcs[id] = s
	return s
}

func (n *namer) value(id ValueID) string {
	if s, ok := n.values[id]; ok {
		return s
	}
	v := n.m.Value(id)
	if v == nil {
		return "<dangling>"
	}
	if v.Kind == ValueConst {
		return n.literal(v)
	}
	var s string
	if v.Name != "" {
		s = n.unique("%" + v.Name)
	} else {
		for {
			n.nextValue++
			s = "%" + strconv.Itoa(n.nextValue)
			if _, ok := n.taken[s]; !ok {
				n.taken[s] = struct{}{}
				break
			}
		}
	}
	n.values[id] = s
	return s
}

func (n *namer) block(id BlockID) string {
	num, ok := n.blocks[id]
	if !ok {
		n.nextBlock++
		num = n.nextBlock
		n.blocks[id] = num
	}
	return "$B" + strconv.Itoa(num)
}

func (n *namer) ctrl(in *Inst) string {
	if s, ok := n.ctrls[in.ID]; ok {
		return s
	}
	if in.Ctrl == nil {
		return "<dangling>"
	}
	n.ctrlCount[in.Kind]++
	s := fmt.Sprintf("%s_%d", in.Kind, n.ctrlCount[in.Kind])
	n.ctrls[in.ID] = s
	return s
}

func (n *namer) target(id InstID) string {
	in := n.m.Inst(id)
	if in == nil || in.Ctrl == nil {
		return "<dangling>"
	}
	return n.ctrl(in)
}

func (n *namer) literal(v *Value) string {
	in := n.m.types
	tt, ok := in.Lookup(v.Type)
	if !ok {
		return "<invalid const>"
	}
	if v.Const.Zero {
		return in.String(v.Type) + "()"
	}
	switch tt.Kind {
	case types.KindBool:
		return strconv.FormatBool(v.Const.Bool())
	case types.KindI32:
		return strconv.FormatInt(int64(v.Const.I32()), 10) + "i"
	case types.KindU32:
		return strconv.FormatUint(uint64(v.Const.U32()), 10) + "u"
	case types.KindF32:
		return formatFloat(v.Const.F32()) + "f"
	case types.KindF16:
		return formatFloat(v.Const.F32()) + "h"
	default:
		return in.String(v.Type) + "(" + strconv.FormatUint(v.Const.Bits, 10) + ")"
	}
}

func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

// typed renders a value with its type, as in result lists and parameters.
func (n *namer) typed(id ValueID) string {
	return n.value(id) + ":" + n.m.types.String(n.m.ValueType(id))
}

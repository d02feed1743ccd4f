package irbin

import (
	"bytes"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"shade/internal/ir"
	"shade/internal/types"
)

// Encode writes m to w. Only nodes reachable from the module root block and
// the functions are written. Modules that reference destroyed or unreachable
// nodes are rejected with an *EncodeError.
func Encode(w io.Writer, m *ir.Module) error {
	p, err := buildPayload(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return enc.Encode(p)
}

// Marshal returns the encoded form of m.
func Marshal(m *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	m  *ir.Module
	ty *types.Interner
	p  *payload

	values map[ir.ValueID]uint32
	insts  map[ir.InstID]uint32
	blocks map[ir.BlockID]uint32
	funcs  map[ir.FuncID]uint32
	order  []ir.InstID
}

func buildPayload(m *ir.Module) (*payload, error) {
	if m == nil {
		return nil, &EncodeError{Msg: "nil module"}
	}
	e := &encoder{
		m:      m,
		ty:     m.Types(),
		p:      &payload{Schema: SchemaVersion},
		values: make(map[ir.ValueID]uint32),
		insts:  make(map[ir.InstID]uint32),
		blocks: make(map[ir.BlockID]uint32),
		funcs:  make(map[ir.FuncID]uint32),
	}
	e.encodeTypes()

	for f := range m.Functions() {
		e.funcs[f.ID] = dense(len(e.p.Funcs))
		e.p.Funcs = append(e.p.Funcs, funcRec{})
	}
	root, err := e.walkBlock(m.Root())
	if err != nil {
		return nil, err
	}
	e.p.Root = root
	for f := range m.Functions() {
		rec := funcRec{
			Name:      f.Name,
			Return:    uint32(f.Return),
			Stage:     uint8(f.Stage),
			Workgroup: f.WorkgroupSize,
		}
		for _, param := range f.Params {
			idx, err := e.value(param)
			if err != nil {
				return nil, err
			}
			rec.Params = append(rec.Params, idx)
		}
		blk, err := e.walkBlock(f.Block)
		if err != nil {
			return nil, err
		}
		rec.Block = blk
		e.p.Funcs[e.funcs[f.ID]] = rec
	}
	for _, id := range e.order {
		if err := e.encodeInst(id); err != nil {
			return nil, err
		}
	}
	return e.p, nil
}

func dense(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("irbin: table overflow: %w", err))
	}
	return v
}

func denseSigned(n int) int32 {
	v, err := safecast.Conv[int32](n)
	if err != nil {
		panic(fmt.Errorf("irbin: table overflow: %w", err))
	}
	return v
}

func (e *encoder) encodeTypes() {
	e.p.Structs = append(e.p.Structs, structRec{})
	for i := 1; i < e.ty.Len(); i++ {
		id := types.TypeID(dense(i))
		tt, _ := e.ty.Lookup(id)
		rec := typeRec{
			Kind:   uint8(tt.Kind),
			Elem:   uint32(tt.Elem),
			Count:  tt.Count,
			Rows:   tt.Rows,
			Space:  uint8(tt.Space),
			Access: uint8(tt.Access),
		}
		if info, ok := e.ty.StructInfo(id); ok {
			sr := structRec{Name: info.Name}
			for _, mem := range info.Members {
				sr.Members = append(sr.Members, memberRec{Name: mem.Name, Type: uint32(mem.Type)})
			}
			rec.Struct = dense(len(e.p.Structs))
			e.p.Structs = append(e.p.Structs, sr)
		}
		e.p.Types = append(e.p.Types, rec)
	}
}

// walkBlock assigns indices to a block, its instructions and their results
// in preorder.
func (e *encoder) walkBlock(id ir.BlockID) (uint32, error) {
	b := e.m.Block(id)
	if b == nil {
		return 0, &EncodeError{Msg: fmt.Sprintf("block %d is destroyed", id)}
	}
	if _, dup := e.blocks[id]; dup {
		return 0, &EncodeError{Msg: fmt.Sprintf("block %d is shared", id)}
	}
	idx := dense(len(e.p.Blocks))
	e.blocks[id] = idx
	e.p.Blocks = append(e.p.Blocks, blockRec{})
	insts := make([]uint32, 0, b.Len())
	for _, inst := range b.Insts() {
		in := e.m.Inst(inst)
		if in == nil {
			return 0, &EncodeError{Msg: fmt.Sprintf("block %d holds destroyed instruction %d", id, inst)}
		}
		if _, dup := e.insts[inst]; dup {
			return 0, &EncodeError{Msg: fmt.Sprintf("instruction %d is shared", inst)}
		}
		ii := dense(len(e.order))
		e.insts[inst] = ii
		e.order = append(e.order, inst)
		insts = append(insts, ii)
		for _, r := range in.Results {
			if _, err := e.value(r); err != nil {
				return 0, err
			}
		}
		if in.Ctrl != nil {
			var err error
			in.Ctrl.ForeachBlock(func(nb ir.BlockID) {
				if err == nil {
					_, err = e.walkBlock(nb)
				}
			})
			if err != nil {
				return 0, err
			}
		}
	}
	e.p.Blocks[idx].Insts = insts
	return idx, nil
}

// value returns the table index of v. Constants are added on first use;
// parameters and results are added while walking their owner.
func (e *encoder) value(id ir.ValueID) (uint32, error) {
	if idx, ok := e.values[id]; ok {
		return idx, nil
	}
	v := e.m.Value(id)
	if v == nil {
		return 0, &EncodeError{Msg: fmt.Sprintf("reference to destroyed value %d", id)}
	}
	idx := dense(len(e.p.Values))
	e.values[id] = idx
	e.p.Values = append(e.p.Values, valueRec{
		Kind: uint8(v.Kind),
		Type: uint32(v.Type),
		Name: v.Name,
		Bits: v.Const.Bits,
		Zero: v.Const.Zero,
	})
	return idx, nil
}

func (e *encoder) reachedValue(id ir.ValueID) (uint32, error) {
	if idx, ok := e.values[id]; ok {
		return idx, nil
	}
	v := e.m.Value(id)
	if v != nil && v.Kind == ir.ValueConst {
		return e.value(id)
	}
	return 0, &EncodeError{Msg: fmt.Sprintf("value %d is not reachable from the module", id)}
}

func (e *encoder) funcIndex(id ir.FuncID) (int32, error) {
	if id == ir.NoFuncID {
		return noIndex, nil
	}
	idx, ok := e.funcs[id]
	if !ok {
		return 0, &EncodeError{Msg: fmt.Sprintf("reference to destroyed function %d", id)}
	}
	return int32(idx), nil //nolint:gosec // bounded by table size
}

func (e *encoder) encodeInst(id ir.InstID) error {
	in := e.m.Inst(id)
	rec := instRec{
		Kind:   uint8(in.Kind),
		Flags:  uint8(in.Flags),
		Target: noIndex,
	}
	switch in.Kind {
	case ir.InstBinary:
		rec.Op = uint8(in.Binary)
	case ir.InstUnary:
		rec.Op = uint8(in.Unary)
	}
	for _, op := range in.Operands {
		idx, err := e.reachedValue(op)
		if err != nil {
			return err
		}
		rec.Operands = append(rec.Operands, idx)
	}
	for _, r := range in.Results {
		rec.Results = append(rec.Results, e.values[r])
	}
	var err error
	if rec.Callee, err = e.funcIndex(in.Callee); err != nil {
		return err
	}
	if rec.Func, err = e.funcIndex(in.Func); err != nil {
		return err
	}
	if in.Kind.IsExit() {
		t, ok := e.insts[in.Target]
		if !ok {
			return &EncodeError{Msg: fmt.Sprintf("exit %d targets an unreachable instruction", id)}
		}
		rec.Target = int32(t) //nolint:gosec // bounded by table size
	}
	if c := in.Ctrl; c != nil {
		for _, blk := range c.Blocks {
			if blk == ir.NoBlockID {
				rec.Blocks = append(rec.Blocks, noIndex)
				continue
			}
			rec.Blocks = append(rec.Blocks, int32(e.blocks[blk])) //nolint:gosec // bounded by table size
		}
		for _, sels := range c.Cases {
			cases := make([]caseRec, 0, len(sels))
			for _, s := range sels {
				cr := caseRec{Value: noIndex, Default: s.Default}
				if !s.Default {
					idx, err := e.reachedValue(s.Value)
					if err != nil {
						return err
					}
					cr.Value = denseSigned(int(idx))
				}
				cases = append(cases, cr)
			}
			rec.Cases = append(rec.Cases, cases)
		}
	}
	e.p.Insts = append(e.p.Insts, rec)
	return nil
}

package irbin

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"shade/internal/diag"
	"shade/internal/ir"
	"shade/internal/types"
)

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// Reporter, when set, receives one diagnostic describing a failed decode.
	Reporter diag.Reporter
}

// Decode reads a module written by Encode. The result is structurally
// rebuilt through the module editing API, so use lists and exit
// registrations are consistent; it is not validated.
func Decode(r io.Reader, opts DecodeOptions) (*ir.Module, error) {
	m, err := decode(r)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			de = &DecodeError{Code: diag.BinMalformed, Msg: "read payload", Err: err}
		}
		if opts.Reporter != nil {
			diag.ReportError(opts.Reporter, de.Code, diag.Node{Kind: diag.NodeModule}, de.Error()).Emit()
		}
		return nil, de
	}
	return m, nil
}

// Unmarshal decodes a module from data.
func Unmarshal(data []byte) (*ir.Module, error) {
	return Decode(bytes.NewReader(data), DecodeOptions{})
}

func decode(r io.Reader) (m *ir.Module, err error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, &DecodeError{Code: diag.BinMalformed, Msg: "read magic", Err: ErrBadMagic}
	}
	if head != magic {
		return nil, &DecodeError{Code: diag.BinMalformed, Msg: fmt.Sprintf("magic %q", head[:]), Err: ErrBadMagic}
	}
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, &DecodeError{Code: diag.BinMalformed, Msg: "decode payload", Err: err}
	}
	if p.Schema != SchemaVersion {
		return nil, &DecodeError{
			Code: diag.BinSchemaMismatch,
			Msg:  fmt.Sprintf("schema version %d, want %d", p.Schema, SchemaVersion),
		}
	}
	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = malformed("corrupt payload: %v", rec)
		}
	}()
	d := &decoder{p: &p, ty: types.NewInterner()}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.m, nil
}

type decoder struct {
	p  *payload
	ty *types.Interner
	m  *ir.Module

	typeMap []types.TypeID // payload type index + 1 -> interned id
	values  []ir.ValueID
	funcs   []ir.FuncID
	insts   []ir.InstID
	blocks  []ir.BlockID
	placed  []bool
}

func (d *decoder) run() error {
	steps := []func() error{
		d.decodeTypes,
		d.decodeConsts,
		d.decodeFuncs,
		d.decodeInsts,
		d.decodeBlocks,
		d.linkInsts,
		d.attach,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// typeID maps a payload type reference. Zero stays NoTypeID.
func (d *decoder) typeID(ref uint32) (types.TypeID, error) {
	if int(ref) >= len(d.typeMap) {
		return types.NoTypeID, malformed("type reference %d out of range", ref)
	}
	return d.typeMap[ref], nil
}

func (d *decoder) decodeTypes() error {
	d.typeMap = make([]types.TypeID, 1, len(d.p.Types)+1)
	for i, rec := range d.p.Types {
		kind := types.Kind(rec.Kind)
		if kind == types.KindInvalid || kind > types.KindStruct {
			return malformed("type %d: unknown kind %d", i+1, rec.Kind)
		}
		if kind == types.KindStruct {
			if rec.Struct == 0 || int(rec.Struct) >= len(d.p.Structs) {
				return malformed("type %d: struct index %d out of range", i+1, rec.Struct)
			}
			sr := d.p.Structs[rec.Struct]
			members := make([]types.StructMember, 0, len(sr.Members))
			for _, mem := range sr.Members {
				mt, err := d.typeID(mem.Type)
				if err != nil {
					return err
				}
				members = append(members, types.StructMember{Name: mem.Name, Type: mt})
			}
			d.typeMap = append(d.typeMap, d.ty.RegisterStruct(sr.Name, members))
			continue
		}
		elem, err := d.typeID(rec.Elem)
		if err != nil {
			return err
		}
		if rec.Space > uint8(types.SpaceStorage) || rec.Access > uint8(types.AccessReadWrite) {
			return malformed("type %d: bad pointer attributes", i+1)
		}
		d.typeMap = append(d.typeMap, d.ty.Intern(types.Type{
			Kind:   kind,
			Elem:   elem,
			Count:  rec.Count,
			Rows:   rec.Rows,
			Space:  types.AddressSpace(rec.Space),
			Access: types.Access(rec.Access),
		}))
	}
	d.m = ir.NewModule(d.ty)
	return nil
}

func (d *decoder) decodeConsts() error {
	d.values = make([]ir.ValueID, len(d.p.Values))
	for i, rec := range d.p.Values {
		d.values[i] = ir.NoValueID
		if ir.ValueKind(rec.Kind) != ir.ValueConst {
			if ir.ValueKind(rec.Kind) > ir.ValueConst {
				return malformed("value %d: unknown kind %d", i, rec.Kind)
			}
			continue
		}
		t, err := d.typeID(rec.Type)
		if err != nil {
			return err
		}
		d.values[i] = d.m.Constant(t, ir.Const{Bits: rec.Bits, Zero: rec.Zero})
	}
	return nil
}

// claimValue hands out a param or result record exactly once.
func (d *decoder) claimValue(idx uint32, kind ir.ValueKind) (valueRec, error) {
	if int(idx) >= len(d.p.Values) {
		return valueRec{}, malformed("value reference %d out of range", idx)
	}
	rec := d.p.Values[idx]
	if ir.ValueKind(rec.Kind) != kind {
		return valueRec{}, malformed("value %d is a %s, want %s", idx, ir.ValueKind(rec.Kind), kind)
	}
	if d.values[idx] != ir.NoValueID {
		return valueRec{}, malformed("value %d defined twice", idx)
	}
	return rec, nil
}

func (d *decoder) decodeFuncs() error {
	d.funcs = make([]ir.FuncID, 0, len(d.p.Funcs))
	for i, rec := range d.p.Funcs {
		ret, err := d.typeID(rec.Return)
		if err != nil {
			return err
		}
		if ir.Stage(rec.Stage) > ir.StageFragment {
			return malformed("func %d: unknown stage %d", i, rec.Stage)
		}
		f := d.m.NewFunc(rec.Name, ret)
		fn := d.m.Func(f)
		fn.Stage = ir.Stage(rec.Stage)
		fn.WorkgroupSize = rec.Workgroup
		for _, pi := range rec.Params {
			vr, err := d.claimValue(pi, ir.ValueParam)
			if err != nil {
				return err
			}
			t, err := d.typeID(vr.Type)
			if err != nil {
				return err
			}
			v, err := d.m.AddParam(f, vr.Name, t)
			if err != nil {
				return err
			}
			d.values[pi] = v
		}
		d.funcs = append(d.funcs, f)
	}
	return nil
}

func (d *decoder) decodeInsts() error {
	d.insts = make([]ir.InstID, 0, len(d.p.Insts))
	for i, rec := range d.p.Insts {
		kind := ir.InstKind(rec.Kind)
		if kind == ir.InstInvalid || kind > ir.InstBreakIf {
			return malformed("inst %d: unknown kind %d", i, rec.Kind)
		}
		resultTypes := make([]types.TypeID, 0, len(rec.Results))
		for _, ri := range rec.Results {
			vr, err := d.claimValue(ri, ir.ValueResult)
			if err != nil {
				return err
			}
			t, err := d.typeID(vr.Type)
			if err != nil {
				return err
			}
			resultTypes = append(resultTypes, t)
			// Mark claimed so a second reference fails.
			d.values[ri] = ir.ValueID(-2)
		}
		id := d.m.NewInst(kind, nil, resultTypes)
		in := d.m.Inst(id)
		in.Flags = ir.InstFlags(rec.Flags) & ir.FlagSequenced
		switch kind {
		case ir.InstBinary:
			if ir.BinaryOp(rec.Op) > ir.OpShiftRight {
				return malformed("inst %d: unknown binary op %d", i, rec.Op)
			}
			in.Binary = ir.BinaryOp(rec.Op)
		case ir.InstUnary:
			if ir.UnaryOp(rec.Op) > ir.OpNot {
				return malformed("inst %d: unknown unary op %d", i, rec.Op)
			}
			in.Unary = ir.UnaryOp(rec.Op)
		}
		for j, ri := range rec.Results {
			d.values[ri] = in.Results[j]
			if name := d.p.Values[ri].Name; name != "" {
				if err := d.m.SetName(in.Results[j], name); err != nil {
					return err
				}
			}
		}
		d.insts = append(d.insts, id)
	}
	d.placed = make([]bool, len(d.insts))
	return nil
}

// decodeBlocks allocates module blocks. The root record maps to the module
// root and each function record's block to that function's body.
func (d *decoder) decodeBlocks() error {
	d.blocks = make([]ir.BlockID, len(d.p.Blocks))
	for i := range d.blocks {
		d.blocks[i] = ir.NoBlockID
	}
	bind := func(idx uint32, blk ir.BlockID) error {
		if int(idx) >= len(d.blocks) {
			return malformed("block reference %d out of range", idx)
		}
		if d.blocks[idx] != ir.NoBlockID {
			return malformed("block %d is shared", idx)
		}
		d.blocks[idx] = blk
		return nil
	}
	if err := bind(d.p.Root, d.m.Root()); err != nil {
		return err
	}
	for i, rec := range d.p.Funcs {
		if err := bind(rec.Block, d.m.Func(d.funcs[i]).Block); err != nil {
			return err
		}
	}
	for i := range d.blocks {
		if d.blocks[i] == ir.NoBlockID {
			d.blocks[i] = d.m.NewBlock()
		}
	}
	return nil
}

func (d *decoder) value(idx uint32) (ir.ValueID, error) {
	if int(idx) >= len(d.values) || d.values[idx] < 0 {
		return ir.NoValueID, malformed("value reference %d out of range", idx)
	}
	return d.values[idx], nil
}

func (d *decoder) funcRef(idx int32) (ir.FuncID, error) {
	if idx == noIndex {
		return ir.NoFuncID, nil
	}
	if idx < 0 || int(idx) >= len(d.funcs) {
		return ir.NoFuncID, malformed("function reference %d out of range", idx)
	}
	return d.funcs[idx], nil
}

func (d *decoder) blockRef(idx int32) (ir.BlockID, error) {
	if idx < 0 || int(idx) >= len(d.blocks) {
		return ir.NoBlockID, malformed("block reference %d out of range", idx)
	}
	return d.blocks[idx], nil
}

// linkInsts fills operands, callees, control blocks and exit targets while
// every instruction is still detached.
func (d *decoder) linkInsts() error {
	for i, rec := range d.p.Insts {
		id := d.insts[i]
		in := d.m.Inst(id)
		for _, oi := range rec.Operands {
			v, err := d.value(oi)
			if err != nil {
				return err
			}
			in.Operands = append(in.Operands, v)
		}
		var err error
		if in.Callee, err = d.funcRef(rec.Callee); err != nil {
			return err
		}
		if in.Func, err = d.funcRef(rec.Func); err != nil {
			return err
		}
		if err := d.linkControl(id, in, rec); err != nil {
			return err
		}
		if in.Kind.IsExit() {
			if rec.Target < 0 || int(rec.Target) >= len(d.insts) {
				return malformed("inst %d: exit target %d out of range", i, rec.Target)
			}
			if err := d.m.SetExitTarget(id, d.insts[rec.Target]); err != nil {
				return malformed("inst %d: %v", i, err)
			}
		}
	}
	return nil
}

func (d *decoder) linkControl(id ir.InstID, in *ir.Inst, rec instRec) error {
	if in.Ctrl == nil {
		if len(rec.Blocks) > 0 || len(rec.Cases) > 0 {
			return malformed("%s carries nested blocks", in.Kind)
		}
		return nil
	}
	if in.Kind == ir.InstSwitch {
		if len(rec.Cases) != len(rec.Blocks) {
			return malformed("switch has %d cases for %d blocks", len(rec.Cases), len(rec.Blocks))
		}
		for ci, bi := range rec.Blocks {
			blk, err := d.blockRef(bi)
			if err != nil {
				return err
			}
			sels := make([]ir.CaseSelector, 0, len(rec.Cases[ci]))
			for _, cr := range rec.Cases[ci] {
				sel := ir.CaseSelector{Value: ir.NoValueID, Default: cr.Default}
				if !cr.Default {
					if cr.Value < 0 {
						return malformed("case selector %d out of range", cr.Value)
					}
					v, err := d.value(uint32(cr.Value))
					if err != nil {
						return err
					}
					sel.Value = v
				}
				sels = append(sels, sel)
			}
			if err := d.m.AddCase(id, sels, blk); err != nil {
				return malformed("%v", err)
			}
		}
		return nil
	}
	if len(rec.Blocks) != len(in.Ctrl.Blocks) || len(rec.Cases) > 0 {
		return malformed("%s has %d block slots", in.Kind, len(rec.Blocks))
	}
	for slot, bi := range rec.Blocks {
		if bi == noIndex {
			continue
		}
		blk, err := d.blockRef(bi)
		if err != nil {
			return err
		}
		if err := d.m.SetControlBlock(id, slot, blk); err != nil {
			return malformed("%v", err)
		}
	}
	return nil
}

// attach places instructions into blocks in recorded order. Uses are
// registered by the insertion itself.
func (d *decoder) attach() error {
	for bi, rec := range d.p.Blocks {
		blk := d.blocks[bi]
		prev := ir.NoInstID
		for _, ii := range rec.Insts {
			if int(ii) >= len(d.insts) {
				return malformed("block %d: instruction reference %d out of range", bi, ii)
			}
			if d.placed[ii] {
				return malformed("instruction %d placed twice", ii)
			}
			d.placed[ii] = true
			id := d.insts[ii]
			var err error
			if prev == ir.NoInstID {
				err = d.m.Prepend(blk, id)
			} else {
				err = d.m.InsertAfter(prev, id)
			}
			if err != nil {
				return malformed("block %d: %v", bi, err)
			}
			prev = id
		}
	}
	for i, ok := range d.placed {
		if !ok {
			return malformed("instruction %d is not in any block", i)
		}
	}
	return nil
}

package irbin_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"shade/internal/diag"
	"shade/internal/ir"
	"shade/internal/irbin"
	"shade/internal/testkit"
	"shade/internal/types"
)

func mustBuild(t *testing.T, build func(b *ir.Builder)) *ir.Module {
	t.Helper()
	m, err := testkit.NewModule(build)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	for _, fx := range testkit.Fixtures() {
		t.Run(fx.Name, func(t *testing.T) {
			m := mustBuild(t, fx.Build)
			data, err := irbin.Marshal(m)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := irbin.Unmarshal(data)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if want, have := ir.Disassemble(m), ir.Disassemble(got); want != have {
				t.Fatalf("round trip changed the module\n--- before ---\n%s\n--- after ---\n%s", want, have)
			}
			if err := testkit.CheckAll(got); err != nil {
				t.Fatalf("decoded module is inconsistent: %v", err)
			}
			if err := ir.Validate(got, ir.Options{}); err != nil {
				t.Fatalf("decoded module does not validate: %v", err)
			}
			again, err := irbin.Marshal(got)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if !bytes.Equal(data, again) {
				t.Fatalf("encoding is not stable across a round trip")
			}
		})
	}
}

// TestRoundTripSkipsTombstones checks that destroyed nodes do not leak into
// the encoding.
func TestRoundTripSkipsTombstones(t *testing.T) {
	m := mustBuild(t, testkit.Pick)
	b := ir.NewBuilder(m)
	f, _ := m.FuncByName("pick")
	b.SetBlock(f.Block)
	dead := b.Add(b.I32(1), b.I32(2))
	if err := m.DestroyInst(m.Value(dead).Inst); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	data, err := irbin.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := irbin.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want, have := ir.Disassemble(m), ir.Disassemble(got); want != have {
		t.Fatalf("mismatch\n%s\n---\n%s", want, have)
	}
}

func TestEncodeRejectsUnreachableOperands(t *testing.T) {
	m := mustBuild(t, testkit.ReturnFalse)
	ty := m.Types().Builtins()
	orphan := m.NewInst(ir.InstLet, []ir.ValueID{m.Constant(ty.I32, ir.Const{Bits: 1})}, []types.TypeID{ty.I32})
	f, _ := m.FuncByName("a")
	use := m.NewInst(ir.InstLet, []ir.ValueID{m.Result(orphan, 0)}, []types.TypeID{ty.I32})
	if err := m.Prepend(f.Block, use); err != nil {
		t.Fatalf("prepend: %v", err)
	}
	_, err := irbin.Marshal(m)
	var ee *irbin.EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EncodeError, got %v", err)
	}
}

func encodePayload(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("SHIR")
	if err := msgpack.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeErrors(t *testing.T) {
	valid, err := irbin.Marshal(mustBuild(t, testkit.Pick))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	tests := []struct {
		name string
		data []byte
		code diag.Code
	}{
		{"empty", nil, diag.BinMalformed},
		{"bad_magic", []byte("ELF\x7fxxxx"), diag.BinMalformed},
		{"truncated", valid[:len(valid)/2], diag.BinMalformed},
		{"garbage_payload", append([]byte("SHIR"), 0xc1, 0xc1, 0xc1), diag.BinMalformed},
		{
			name: "schema_mismatch",
			data: encodePayload(t, map[string]any{"Schema": 99}),
			code: diag.BinSchemaMismatch,
		},
		{
			name: "root_out_of_range",
			data: encodePayload(t, map[string]any{"Schema": irbin.SchemaVersion, "Root": 3}),
			code: diag.BinMalformed,
		},
		{
			name: "unknown_type_kind",
			data: encodePayload(t, map[string]any{
				"Schema": irbin.SchemaVersion,
				"Types":  []any{[]any{200, 0, 0, 0, 0, 0, 0}},
				"Blocks": []any{map[string]any{}},
			}),
			code: diag.BinMalformed,
		},
		{
			name: "operand_out_of_range",
			data: encodePayload(t, map[string]any{
				"Schema": irbin.SchemaVersion,
				"Blocks": []any{map[string]any{"Insts": []uint32{0}}},
				"Insts": []any{map[string]any{
					"Kind": uint8(ir.InstLet), "Operands": []uint32{42},
					"Callee": -1, "Func": -1, "Target": -1,
				}},
			}),
			code: diag.BinMalformed,
		},
		{
			name: "instruction_placed_twice",
			data: encodePayload(t, map[string]any{
				"Schema": irbin.SchemaVersion,
				"Blocks": []any{map[string]any{"Insts": []uint32{0, 0}}},
				"Insts": []any{map[string]any{
					"Kind": uint8(ir.InstUnreachable), "Callee": -1, "Func": -1, "Target": -1,
				}},
			}),
			code: diag.BinMalformed,
		},
		{
			name: "exit_targets_non_control",
			data: encodePayload(t, map[string]any{
				"Schema": irbin.SchemaVersion,
				"Blocks": []any{map[string]any{"Insts": []uint32{0, 1}}},
				"Insts": []any{
					map[string]any{"Kind": uint8(ir.InstUnreachable), "Callee": -1, "Func": -1, "Target": -1},
					map[string]any{"Kind": uint8(ir.InstExitIf), "Callee": -1, "Func": -1, "Target": 0},
				},
			}),
			code: diag.BinMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := diag.NewBag(0)
			m, err := irbin.Decode(bytes.NewReader(tt.data), irbin.DecodeOptions{Reporter: &diag.BagReporter{Bag: bag}})
			if err == nil {
				t.Fatalf("decode succeeded:\n%s", ir.Disassemble(m))
			}
			var de *irbin.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T: %v", err, err)
			}
			if de.Code != tt.code {
				t.Fatalf("code = %s, want %s (%v)", de.Code.ID(), tt.code.ID(), err)
			}
			if bag.Len() != 1 || bag.Items()[0].Code != tt.code {
				t.Fatalf("reporter got %d diagnostics", bag.Len())
			}
		})
	}
}

func TestDecodeBadMagicUnwraps(t *testing.T) {
	_, err := irbin.Unmarshal([]byte("NOPE...."))
	if !errors.Is(err, irbin.ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

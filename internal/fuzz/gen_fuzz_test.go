package fuzztests

import (
	"testing"

	"shade/internal/glsl"
	"shade/internal/ir"
	"shade/internal/irbin"
	"shade/internal/irgen"
	"shade/internal/testkit"
)

func FuzzGenRoundTrip(f *testing.F) {
	for seed := range uint64(8) {
		f.Add(seed, uint8(seed%4), uint8(seed%5))
	}
	f.Fuzz(func(t *testing.T, seed uint64, funcs, depth uint8) {
		opts := irgen.Options{Seed: seed, Funcs: int(funcs % 6), MaxDepth: int(depth % 5)}
		m, err := irgen.Generate(opts)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if err := ir.Validate(m, ir.Options{}); err != nil {
			t.Fatalf("generated module is invalid: %v\n%s", err, ir.Disassemble(m))
		}
		if err := testkit.CheckAll(m); err != nil {
			t.Fatalf("generated module is inconsistent: %v", err)
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
			t.Fatalf("round trip changed the module\n%s\n---\n%s", want, have)
		}
		if _, err := glsl.Generate(got, glsl.Options{SkipValidation: true}); err != nil {
			t.Fatalf("glsl: %v", err)
		}
	})
}

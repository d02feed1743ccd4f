package irgen_test

import (
	"testing"

	"shade/internal/ir"
	"shade/internal/irgen"
	"shade/internal/testkit"
)

func TestGeneratedModulesValidate(t *testing.T) {
	for seed := range uint64(64) {
		m, err := irgen.Generate(irgen.Options{Seed: seed})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if err := ir.Validate(m, ir.Options{}); err != nil {
			t.Fatalf("seed %d: %v\n%s", seed, err, ir.Disassemble(m))
		}
		if err := testkit.CheckAll(m); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	opts := irgen.Options{Seed: 42, Funcs: 5, MaxDepth: 4}
	a, err := irgen.Generate(opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := irgen.Generate(opts)
	if err != nil {
		t.Fatal(err)
	}
	if ir.Disassemble(a) != ir.Disassemble(b) {
		t.Fatalf("same seed produced different modules")
	}
	c, err := irgen.Generate(irgen.Options{Seed: 43, Funcs: 5, MaxDepth: 4})
	if err != nil {
		t.Fatal(err)
	}
	if ir.Disassemble(a) == ir.Disassemble(c) {
		t.Fatalf("different seeds produced identical modules")
	}
}

func TestGenerateOptions(t *testing.T) {
	m, err := irgen.Generate(irgen.Options{Seed: 1, Funcs: 2, NoGlobals: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.NumFuncs(); got != 3 {
		t.Fatalf("NumFuncs = %d, want 3", got)
	}
	if !m.Block(m.Root()).Empty() {
		t.Fatalf("root block should be empty without globals")
	}
	main, ok := m.FuncByName("main")
	if !ok || !main.IsEntryPoint() {
		t.Fatalf("entry point missing")
	}
}

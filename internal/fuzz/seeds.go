package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"shade/internal/irbin"
	"shade/internal/irgen"
	"shade/internal/testkit"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB
	maxFuzzInput = 1 << 16
)

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addFixtureSeeds(f)
	f.Add([]byte{})
	f.Add([]byte("SHIR"))
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".tirb" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(data))
		return nil
	})
}

func addFixtureSeeds(f *testing.F) {
	for _, fx := range testkit.Fixtures() {
		m, err := testkit.NewModule(fx.Build)
		if err != nil {
			continue
		}
		if data, err := irbin.Marshal(m); err == nil {
			f.Add(clampSeed(data))
		}
	}
	for seed := range uint64(4) {
		m, err := irgen.Generate(irgen.Options{Seed: seed, Funcs: 2})
		if err != nil {
			continue
		}
		if data, err := irbin.Marshal(m); err == nil {
			f.Add(clampSeed(data))
		}
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

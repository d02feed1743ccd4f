package prof_test

import (
	"os"
	"path/filepath"
	"testing"

	"shade/internal/prof"
)

func TestSessionWritesFiles(t *testing.T) {
	dir := t.TempDir()
	opts := prof.Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "rt.trace"),
	}
	s, err := prof.Start(opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, p := range []string{opts.CPU, opts.Mem, opts.Trace} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestStartBadPath(t *testing.T) {
	if _, err := prof.Start(prof.Options{CPU: filepath.Join(t.TempDir(), "no", "such", "cpu.pprof")}); err == nil {
		t.Fatalf("expected error")
	}
	var nilSession *prof.Session
	if err := nilSession.Stop(); err != nil {
		t.Fatal(err)
	}
}

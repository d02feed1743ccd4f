package driver_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"shade/internal/diag"
	"shade/internal/driver"
	"shade/internal/glsl"
	"shade/internal/ir"
	"shade/internal/irbin"
	"shade/internal/testkit"
)

func writeModule(t *testing.T, dir, name string, build func(b *ir.Builder)) string {
	t.Helper()
	m, err := testkit.NewModule(build)
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	data, err := irbin.Marshal(m)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	return writeFile(t, dir, name, data)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// brokenModule encodes a function whose block has no terminator.
func brokenModule(t *testing.T) []byte {
	t.Helper()
	m := ir.NewModule(nil)
	m.NewFunc("broken", m.Types().Builtins().Void)
	data, err := irbin.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeModule(t, dir, "a.tirb", testkit.ReturnFalse),
		writeFile(t, dir, "garbage.tirb", []byte("not a module")),
		writeFile(t, dir, "broken.tirb", brokenModule(t)),
		filepath.Join(dir, "missing.tirb"),
	}
	results, err := driver.Run(context.Background(), paths, driver.Options{Jobs: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(paths) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Fatalf("result %d is for %s, want %s", i, r.Path, paths[i])
		}
	}
	if results[0].Failed() || results[0].Bag.Len() != 0 {
		t.Fatalf("valid module failed: %v", codes(results[0].Bag))
	}
	if got := codes(results[1].Bag); len(got) != 1 || got[0] != diag.BinMalformed {
		t.Fatalf("garbage codes = %v", got)
	}
	if !results[2].Failed() {
		t.Fatalf("broken module passed")
	}
	if got := codes(results[3].Bag); len(got) != 1 || got[0] != diag.IOLoadFileError {
		t.Fatalf("missing file codes = %v", got)
	}
	if n := driver.CountFailed(results); n != 3 {
		t.Fatalf("CountFailed = %d", n)
	}
	if results[0].Module != nil {
		t.Fatalf("module kept without KeepModules")
	}
}

func TestRunTargets(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "a.tirb", testkit.ReturnFalse)
	tests := []struct {
		name   string
		opts   driver.Options
		output string
	}{
		{"validate", driver.Options{Target: driver.TargetValidate}, ""},
		{"dis", driver.Options{Target: driver.TargetDisasm}, "ret false"},
		{"glsl", driver.Options{Target: driver.TargetGLSL}, "bool a() {\n  return false;\n}"},
		{"glsl_450", driver.Options{Target: driver.TargetGLSL, GLSL: glsl.Options{Version: glsl.Version450}}, "#version 450\n"},
		{"roundtrip", driver.Options{Target: driver.TargetRoundTrip, KeepModules: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := driver.Run(context.Background(), []string{path}, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			r := results[0]
			if r.Failed() {
				t.Fatalf("failed: %v", codes(r.Bag))
			}
			if tt.output == "" && len(r.Output) != 0 {
				t.Fatalf("unexpected output %q", r.Output)
			}
			if !strings.Contains(string(r.Output), tt.output) {
				t.Fatalf("output missing %q:\n%s", tt.output, r.Output)
			}
			if tt.opts.KeepModules && r.Module == nil {
				t.Fatalf("module not kept")
			}
		})
	}
}

func TestRunRoundTripsFixtures(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, fx := range testkit.Fixtures() {
		paths = append(paths, writeModule(t, dir, fx.Name+".tirb", fx.Build))
	}
	results, err := driver.Run(context.Background(), paths, driver.Options{Target: driver.TargetRoundTrip})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Failed() {
			t.Fatalf("%s: %s", r.Path, diag.FormatShortDiagnostics(r.Bag.Items(), false))
		}
	}
}

func TestRunStdin(t *testing.T) {
	m, err := testkit.NewModule(testkit.Pick)
	if err != nil {
		t.Fatal(err)
	}
	data, err := irbin.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	results, err := driver.Run(context.Background(), []string{"-"}, driver.Options{
		Target: driver.TargetDisasm,
		Stdin:  bytes.NewReader(data),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(results[0].Output), "%pick = func(%c:bool):i32") {
		t.Fatalf("unexpected output:\n%s", results[0].Output)
	}
	if _, err := driver.Run(context.Background(), []string{"-", "-"}, driver.Options{}); err == nil {
		t.Fatalf("stdin accepted twice")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []driver.Event
}

func (s *recordingSink) OnEvent(ev driver.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestRunEvents(t *testing.T) {
	dir := t.TempDir()
	good := writeModule(t, dir, "a.tirb", testkit.CountLoop)
	bad := writeFile(t, dir, "b.tirb", brokenModule(t))
	sink := &recordingSink{}
	if _, err := driver.Run(context.Background(), []string{good, bad}, driver.Options{Target: driver.TargetGLSL, Sink: sink, Jobs: 1}); err != nil {
		t.Fatal(err)
	}
	final := make(map[string]driver.Event)
	stages := make(map[string][]driver.Stage)
	for _, ev := range sink.events {
		if ev.Finished() {
			if _, dup := final[ev.File]; dup {
				t.Fatalf("%s finished twice", ev.File)
			}
			final[ev.File] = ev
		} else if ev.Status == driver.StatusWorking {
			stages[ev.File] = append(stages[ev.File], ev.Stage)
		}
	}
	if final[good].Status != driver.StatusDone || final[bad].Status != driver.StatusError {
		t.Fatalf("final events: %+v", final)
	}
	if final[bad].Stage != driver.StageValidate {
		t.Fatalf("broken module stopped at %s", final[bad].Stage)
	}
	want := []driver.Stage{driver.StageRead, driver.StageDecode, driver.StageValidate, driver.StageEmit}
	if got := stages[good]; len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
}

func TestRunTimings(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "a.tirb", testkit.ReturnFalse)
	results, err := driver.Run(context.Background(), []string{path}, driver.Options{Timings: true})
	if err != nil {
		t.Fatal(err)
	}
	r := results[0]
	if got := codes(r.Bag); len(got) != 1 || got[0] != diag.ObsTimings {
		t.Fatalf("codes = %v", got)
	}
	if r.Failed() || len(r.Timings.Phases) != 3 {
		t.Fatalf("timings = %+v", r.Timings)
	}
	if !strings.Contains(r.Bag.Items()[0].Notes[0].Msg, `"phases"`) {
		t.Fatalf("timing note: %q", r.Bag.Items()[0].Notes[0].Msg)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "a.tirb", testkit.ReturnFalse)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.Run(ctx, []string{path}, driver.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "sub/b.tirb", nil)
	a := writeFile(t, dir, "a.tirb", nil)
	writeFile(t, dir, "notes.txt", nil)
	got, err := driver.ListInputs([]string{dir, a, "-"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{a, b, "-"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ListInputs = %v, want %v", got, want)
	}
	empty := t.TempDir()
	writeFile(t, empty, "readme.md", nil)
	if _, err := driver.ListInputs([]string{empty}); err == nil {
		t.Fatalf("expected error for directory without inputs")
	}
}

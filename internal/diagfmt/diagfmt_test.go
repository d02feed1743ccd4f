package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"shade/internal/diag"
	"shade/internal/diagfmt"
)

func sampleFiles() []diagfmt.File {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.IRUnterminatedBlock,
		diag.Node{Kind: diag.NodeBlock, ID: 3, Path: "func main / $B3"},
		"block has no terminator").
		WithNote(diag.Node{Kind: diag.NodeFunc, ID: 0, Path: "func main"}, "in this function"))
	bag.Add(diag.New(diag.SevWarning, diag.BinSchemaMismatch, diag.Node{Kind: diag.NodeModule}, "old schema"))
	return []diagfmt.File{
		{Path: "shaders/blur.tirb", Bag: bag},
		{Path: "shaders/empty.tirb", Bag: diag.NewBag(10)},
		{Path: "skipped.tirb"},
	}
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	opts := diagfmt.PrettyOpts{PathMode: diagfmt.PathModeBasename, ShowNotes: true, ShowTitle: true}
	if err := diagfmt.Pretty(&buf, sampleFiles(), opts); err != nil {
		t.Fatal(err)
	}
	want := "blur.tirb: func main / $B3: ERROR IR1001: block has no terminator\n" +
		"  = Block has no terminator\n" +
		"  note: func main: in this function\n" +
		"blur.tirb: module#0: WARNING BIN2002: old schema\n" +
		"  = Unsupported binary schema version\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	if err := diagfmt.Pretty(&buf, sampleFiles(), diagfmt.PrettyOpts{Color: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected color escapes in %q", buf.String())
	}
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes")
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := diagfmt.JSON(&buf, sampleFiles(), diagfmt.JSONOpts{PathMode: diagfmt.PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}
	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "IR1001" || d.Severity != "ERROR" || d.Location.File != "blur.tirb" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Location.Kind != "block" || d.Location.ID == nil || *d.Location.ID != 3 {
		t.Fatalf("unexpected location %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.Node != "func main" {
		t.Fatalf("unexpected notes %+v", d.Notes)
	}
}

func TestJSONMax(t *testing.T) {
	out := diagfmt.BuildDiagnosticsOutput(sampleFiles(), diagfmt.JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Notes != nil {
		t.Fatalf("unexpected output %+v", out)
	}
	empty := diagfmt.BuildDiagnosticsOutput(nil, diagfmt.JSONOpts{})
	if empty.Diagnostics == nil || empty.Count != 0 {
		t.Fatalf("empty output must have a non-nil list")
	}
}

func TestSarif(t *testing.T) {
	var buf bytes.Buffer
	meta := diagfmt.SarifRunMeta{ToolName: "shade", ToolVersion: "0.1.0", InvocationArgs: []string{"validate"}}
	if err := diagfmt.Sarif(&buf, sampleFiles(), meta); err != nil {
		t.Fatal(err)
	}
	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Invocations []struct {
				ExecutionSuccessful bool `json:"executionSuccessful"`
			} `json:"invocations"`
			Results []struct {
				Level string `json:"level"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatal(err)
	}
	run := log.Runs[0]
	if log.Version != "2.1.0" || len(run.Results) != 2 || run.Results[0].Level != "error" {
		t.Fatalf("unexpected log:\n%s", buf.String())
	}
	if len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "BIN2002" {
		t.Fatalf("rules not sorted:\n%s", buf.String())
	}
	if run.Invocations[0].ExecutionSuccessful {
		t.Fatalf("run with errors marked successful")
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]diagfmt.PathMode{
		"":         diagfmt.PathModeAuto,
		"absolute": diagfmt.PathModeAbsolute,
		"relative": diagfmt.PathModeRelative,
		"basename": diagfmt.PathModeBasename,
	} {
		got, ok := diagfmt.ParsePathMode(in)
		if !ok || got != want {
			t.Fatalf("ParsePathMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := diagfmt.ParsePathMode("full"); ok {
		t.Fatalf("accepted unknown mode")
	}
}

func TestRelativePaths(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "sub", "a.tirb")
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.IRArity, diag.Node{}, "x"))
	out := diagfmt.BuildDiagnosticsOutput([]diagfmt.File{{Path: file, Bag: bag}},
		diagfmt.JSONOpts{PathMode: diagfmt.PathModeRelative, BaseDir: base})
	if got := out.Diagnostics[0].Location.File; got != filepath.Join("sub", "a.tirb") {
		t.Fatalf("file = %q", got)
	}
}

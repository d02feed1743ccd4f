package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shade/internal/version"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(append([]string{"--color", "off"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func genModule(t *testing.T, dir, name string, seed string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if code, _, stderr := runCLI(t, "gen", "--seed", seed, "-o", path); code != 0 {
		t.Fatalf("gen exited %d: %s", code, stderr)
	}
	return path
}

func TestCLIGenValidate(t *testing.T) {
	dir := t.TempDir()
	genModule(t, dir, "a.tirb", "1")
	genModule(t, dir, "b.tirb", "2")

	code, stdout, stderr := runCLI(t, "validate", "--ui", "off", dir)
	if code != 0 {
		t.Fatalf("validate exited %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}
	if !strings.Contains(stderr, "2 modules checked, 0 failed") {
		t.Fatalf("unexpected summary: %q", stderr)
	}
}

func TestCLIValidateMalformed(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.tirb")
	if err := os.WriteFile(bad, []byte("not a module"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := runCLI(t, "validate", "--ui", "off", bad)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stdout, "bad.tirb") {
		t.Fatalf("diagnostics missing file name:\n%s", stdout)
	}
	if !strings.Contains(stderr, "1 modules checked, 1 failed") {
		t.Fatalf("unexpected summary: %q", stderr)
	}
}

func TestCLIValidateJSON(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.tirb")
	if err := os.WriteFile(bad, []byte{0xff}, 0o600); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ := runCLI(t, "validate", "--ui", "off", "--format", "json", bad)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !json.Valid([]byte(stdout)) {
		t.Fatalf("output is not JSON:\n%s", stdout)
	}
}

func TestCLIConvert(t *testing.T) {
	dir := t.TempDir()
	path := genModule(t, dir, "m.tirb", "7")

	code, stdout, stderr := runCLI(t, "dis", path)
	if code != 0 {
		t.Fatalf("dis exited %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "func") {
		t.Fatalf("unexpected disassembly:\n%s", stdout)
	}

	glslPath := filepath.Join(dir, "m.comp")
	if code, _, stderr = runCLI(t, "glsl", "--glsl-version", "450", "-o", glslPath, path); code != 0 {
		t.Fatalf("glsl exited %d: %s", code, stderr)
	}
	data, err := os.ReadFile(glslPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#version 450\n") {
		t.Fatalf("unexpected GLSL header:\n%s", data)
	}

	code, stdout, stderr = runCLI(t, "roundtrip", path)
	if code != 0 {
		t.Fatalf("roundtrip exited %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "ok ") {
		t.Fatalf("unexpected roundtrip output: %q", stdout)
	}
}

func TestCLIGenDump(t *testing.T) {
	code, a, _ := runCLI(t, "gen", "--seed", "5", "--dump")
	if code != 0 || a == "" {
		t.Fatalf("gen --dump exited %d with %q", code, a)
	}
	_, b, _ := runCLI(t, "gen", "--seed", "5", "--dump")
	if a != b {
		t.Fatalf("same seed produced different modules")
	}
}

func TestCLIGenRequiresOutput(t *testing.T) {
	for _, args := range [][]string{{"gen"}, {"gen", "-o", "-"}} {
		code, _, stderr := runCLI(t, args...)
		if code != 1 || !strings.HasPrefix(stderr, "shade: ") {
			t.Fatalf("%v: exit %d, stderr %q", args, code, stderr)
		}
	}
}

func TestCLIVersionJSON(t *testing.T) {
	code, stdout, _ := runCLI(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("version exited %d", code)
	}
	var info version.Info
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if info.Tool != "shade" || info.Version == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestParseGLSLVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "450", want: "450"},
		{in: "310es", want: "310 es"},
		{in: "320 ES", want: "320 es"},
		{in: "es", wantErr: true},
		{in: "99", wantErr: true},
		{in: "70000", wantErr: true},
	}
	for _, tt := range tests {
		v, err := parseGLSLVersion(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseGLSLVersion(%q) succeeded with %s", tt.in, v)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseGLSLVersion(%q): %v", tt.in, err)
		}
		if v.String() != tt.want {
			t.Fatalf("parseGLSLVersion(%q) = %s, want %s", tt.in, v, tt.want)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
	var buf bytes.Buffer
	if shouldUseTUI(uiModeAuto, &buf, 10) {
		t.Fatalf("auto mode must not use the TUI on a buffer")
	}
	if !shouldUseTUI(uiModeOn, &buf, 1) {
		t.Fatalf("on mode must force the TUI")
	}
}

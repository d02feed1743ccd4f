package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, configName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", configName, err)
	}
	return path
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := findConfig(nested)
	if err != nil || !ok {
		t.Fatalf("findConfig: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("findConfig = %q, want %q", got, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "ok", data: "[validate]\njobs = 2\n[glsl]\nversion = 450\n"},
		{name: "unknown_key", data: "[validate]\nthreads = 2\n", wantErr: "unknown keys: validate.threads"},
		{name: "bad_version", data: "[glsl]\nversion = 9000\n", wantErr: "out of range"},
		{name: "syntax", data: "[validate\n", wantErr: "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.data)
			cfg, err := loadConfigFile(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfigFile: %v", err)
			}
			if cfg.Validate.Jobs == nil || *cfg.Validate.Jobs != 2 {
				t.Fatalf("jobs not decoded: %+v", cfg.Validate)
			}
		})
	}
}

func TestApplyConfigKeepsExplicitFlags(t *testing.T) {
	a := &app{}
	root := newRootCmd(a)
	validate, _, err := root.Find([]string{"validate"})
	if err != nil {
		t.Fatal(err)
	}
	if err := validate.Flags().Set("format", "short"); err != nil {
		t.Fatal(err)
	}
	jobs, es := 4, true
	version := 320
	format := "json"
	cfg := config{
		Validate: validateConfig{Jobs: &jobs, Format: &format},
		GLSL:     glslConfig{Version: &version, ES: &es},
	}
	if err := applyConfig(validate, cfg); err != nil {
		t.Fatalf("applyConfig: %v", err)
	}
	assertFlag(t, validate, "jobs", "4")
	assertFlag(t, validate, "format", "short")

	glslCmd, _, err := root.Find([]string{"glsl"})
	if err != nil {
		t.Fatal(err)
	}
	if err := applyConfig(glslCmd, cfg); err != nil {
		t.Fatalf("applyConfig: %v", err)
	}
	assertFlag(t, glslCmd, "glsl-version", "320es")
}

func assertFlag(t *testing.T, cmd *cobra.Command, name, want string) {
	t.Helper()
	f := lookupFlag(cmd, name)
	if f == nil {
		t.Fatalf("flag %s not found", name)
	}
	if got := f.Value.String(); got != want {
		t.Fatalf("--%s = %q, want %q", name, got, want)
	}
}

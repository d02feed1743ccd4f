package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const configName = "shade.toml"

// config mirrors shade.toml. Pointer fields distinguish "unset" from zero.
type config struct {
	Validate validateConfig `toml:"validate"`
	GLSL     glslConfig     `toml:"glsl"`
	Trace    traceConfig    `toml:"trace"`
}

type validateConfig struct {
	Jobs           *int    `toml:"jobs"`
	MaxDiagnostics *int    `toml:"max_diagnostics"`
	Cache          *bool   `toml:"cache"`
	Format         *string `toml:"format"`
}

type glslConfig struct {
	Version    *int    `toml:"version"`
	ES         *bool   `toml:"es"`
	EntryPoint *string `toml:"entry_point"`
}

type traceConfig struct {
	Level  *string `toml:"level"`
	Output *string `toml:"output"`
	Mode   *string `toml:"mode"`
	Format *string `toml:"format"`
}

// findConfig walks from startDir to the filesystem root looking for
// shade.toml.
func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// loadConfigFile decodes path and rejects unknown keys.
func loadConfigFile(path string) (config, error) {
	var cfg config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.GLSL.Version != nil && (*cfg.GLSL.Version < 100 || *cfg.GLSL.Version > 460) {
		return config{}, fmt.Errorf("%s: [glsl] version %d out of range", path, *cfg.GLSL.Version)
	}
	return cfg, nil
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if path == "" {
		var ok bool
		path, ok, err = findConfig(".")
		if err != nil || !ok {
			return err
		}
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.cfgPath = path
	return applyConfig(cmd, cfg)
}

// applyConfig fills flags the user did not set explicitly. Flags missing on
// cmd are skipped so one file serves every subcommand.
func applyConfig(cmd *cobra.Command, cfg config) error {
	values := map[string]string{}
	setInt := func(name string, v *int) {
		if v != nil {
			values[name] = strconv.Itoa(*v)
		}
	}
	setBool := func(name string, v *bool) {
		if v != nil {
			values[name] = strconv.FormatBool(*v)
		}
	}
	setString := func(name string, v *string) {
		if v != nil {
			values[name] = *v
		}
	}
	setInt("jobs", cfg.Validate.Jobs)
	setInt("max-diagnostics", cfg.Validate.MaxDiagnostics)
	setBool("cache", cfg.Validate.Cache)
	if cmd.Name() == "validate" {
		setString("format", cfg.Validate.Format)
	}
	if cfg.GLSL.Version != nil {
		v := strconv.Itoa(*cfg.GLSL.Version)
		if cfg.GLSL.ES != nil && *cfg.GLSL.ES {
			v += "es"
		}
		values["glsl-version"] = v
	}
	setString("entry", cfg.GLSL.EntryPoint)
	setString("trace-level", cfg.Trace.Level)
	setString("trace", cfg.Trace.Output)
	setString("trace-mode", cfg.Trace.Mode)
	setString("trace-format", cfg.Trace.Format)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := lookupFlag(cmd, name)
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(values[name]); err != nil {
			return fmt.Errorf("%s: invalid value for %s: %w", configName, name, err)
		}
	}
	return nil
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.Root().PersistentFlags().Lookup(name)
}

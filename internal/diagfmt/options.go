// Package diagfmt renders diagnostic bags for the CLI.
package diagfmt

import (
	"path/filepath"

	"shade/internal/diag"
)

// PathMode specifies how input paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shows paths relative to the base directory when they lie
	// under it and absolute otherwise.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// ParsePathMode accepts auto, absolute, relative or basename.
func ParsePathMode(s string) (PathMode, bool) {
	switch s {
	case "", "auto":
		return PathModeAuto, true
	case "absolute":
		return PathModeAbsolute, true
	case "relative":
		return PathModeRelative, true
	case "basename":
		return PathModeBasename, true
	}
	return PathModeAuto, false
}

// File pairs an input path with its diagnostics.
type File struct {
	Path string
	Bag  *diag.Bag
}

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string
	ShowNotes bool
	ShowTitle bool // adds the code's description under each diagnostic
}

// JSONOpts configures JSON output.
type JSONOpts struct {
	PathMode     PathMode
	BaseDir      string
	Max          int // truncates the output, not the bags
	IncludeNotes bool
}

// SarifRunMeta describes the tool run in SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}

func formatPath(path string, mode PathMode, base string) string {
	if path == "" || path == "-" {
		return "<stdin>"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	switch mode {
	case PathModeAbsolute:
		return abs
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if base == "" {
			if mode == PathModeRelative {
				return path
			}
			return filepath.Clean(path)
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || (mode == PathModeAuto && !filepath.IsLocal(rel)) {
			return abs
		}
		return rel
	}
	return path
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shade/internal/diag"
	"shade/internal/diagfmt"
	"shade/internal/driver"
	"shade/internal/version"
)

type diagFormat string

const (
	formatPretty diagFormat = "pretty"
	formatJSON   diagFormat = "json"
	formatSARIF  diagFormat = "sarif"
	formatShort  diagFormat = "short"
)

func readDiagFormat(s string) (diagFormat, error) {
	switch f := diagFormat(s); f {
	case formatPretty, formatJSON, formatSARIF, formatShort:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (expected pretty|json|sarif|short)", s)
}

type renderOptions struct {
	format    diagFormat
	withNotes bool
	fullPath  bool
	max       int
}

func resultFiles(results []driver.Result) []diagfmt.File {
	files := make([]diagfmt.File, len(results))
	for i := range results {
		files[i] = diagfmt.File{Path: results[i].Path, Bag: results[i].Bag}
	}
	return files
}

// renderDiagnostics writes the diagnostics of every result to w.
func renderDiagnostics(w io.Writer, results []driver.Result, opts renderOptions) error {
	files := resultFiles(results)
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	base, err := os.Getwd()
	if err != nil {
		base = ""
	}
	switch opts.format {
	case formatJSON:
		return diagfmt.JSON(w, files, diagfmt.JSONOpts{
			PathMode:     pathMode,
			BaseDir:      base,
			Max:          opts.max,
			IncludeNotes: opts.withNotes,
		})
	case formatSARIF:
		return diagfmt.Sarif(w, files, diagfmt.SarifRunMeta{
			ToolName:       "shade",
			ToolVersion:    version.Current().Version,
			InvocationArgs: os.Args[1:],
		})
	case formatShort:
		for _, f := range files {
			if f.Bag == nil || f.Bag.Len() == 0 {
				continue
			}
			name := f.Path
			if !opts.fullPath {
				name = filepath.Base(name)
			}
			for _, line := range splitLines(diag.FormatShortDiagnostics(f.Bag.Items(), opts.withNotes)) {
				if _, err := fmt.Fprintf(w, "%s: %s\n", name, line); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return diagfmt.Pretty(w, files, diagfmt.PrettyOpts{
		Color:     colorEnabled(w),
		PathMode:  pathMode,
		BaseDir:   base,
		ShowNotes: opts.withNotes,
	})
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// commonRunFlags reads the persistent flags every pipeline command uses.
func commonRunFlags(cmd *cobra.Command) (maxDiag int, timings, quiet bool, err error) {
	pf := cmd.Root().PersistentFlags()
	if maxDiag, err = pf.GetInt("max-diagnostics"); err != nil {
		return 0, false, false, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if timings, err = pf.GetBool("timings"); err != nil {
		return 0, false, false, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if quiet, err = pf.GetBool("quiet"); err != nil {
		return 0, false, false, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	return maxDiag, timings, quiet, nil
}

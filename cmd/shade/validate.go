package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shade/internal/driver"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [flags] <file.tirb|dir>...",
		Short: "Decode and validate binary IR modules",
		Long:  "Decode and validate binary IR modules. Directories are searched recursively for *.tirb files; - reads standard input.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args)
		},
	}
	f := cmd.Flags()
	f.String("format", "pretty", "diagnostic format (pretty|json|sarif|short)")
	f.Int("jobs", 0, "parallel workers (0 = GOMAXPROCS)")
	f.String("ui", "auto", "progress view (auto|on|off)")
	f.Bool("cache", false, "reuse results from the on-disk cache")
	f.Bool("clear-cache", false, "empty the cache before running")
	f.Bool("with-notes", false, "include diagnostic notes")
	f.Bool("fullpath", false, "print absolute paths")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, args []string) error {
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := readDiagFormat(formatStr)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiStr)
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	maxDiag, timings, quiet, err := commonRunFlags(cmd)
	if err != nil {
		return err
	}
	cache, err := openCacheFromFlags(cmd)
	if err != nil {
		return err
	}

	files, err := driver.ListInputs(args)
	if err != nil {
		return err
	}
	opts := driver.Options{
		Target:         driver.TargetValidate,
		Jobs:           jobs,
		MaxDiagnostics: maxDiag,
		Cache:          cache,
		Timings:        timings,
		Stdin:          cmd.InOrStdin(),
	}

	idx := a.timer.Begin("validate")
	var results []driver.Result
	if format == formatPretty && shouldUseTUI(mode, cmd.OutOrStdout(), len(files)) {
		results, err = runWithUI(cmd.Context(), "validate", files, opts, cmd.OutOrStdout())
	} else {
		results, err = driver.Run(cmd.Context(), files, opts)
	}
	a.timer.End(idx, fmt.Sprintf("%d modules", len(files)))
	if err != nil {
		return err
	}

	idx = a.timer.Begin("render")
	err = renderDiagnostics(cmd.OutOrStdout(), results, renderOptions{
		format:    format,
		withNotes: withNotes,
		fullPath:  fullPath,
		max:       maxDiag,
	})
	a.timer.End(idx, "")
	if err != nil {
		return err
	}

	failed := driver.CountFailed(results)
	if !quiet && format == formatPretty {
		cached := 0
		for i := range results {
			if results[i].Cached {
				cached++
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d modules checked, %d failed", len(results), failed)
		if cached > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), ", %d from cache", cached)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if failed > 0 {
		return errFailed
	}
	return nil
}

// openCacheFromFlags opens the result cache when --cache is set.
func openCacheFromFlags(cmd *cobra.Command) (*driver.Cache, error) {
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache flag: %w", err)
	}
	clearFirst, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get clear-cache flag: %w", err)
	}
	if !useCache && !clearFirst {
		return nil, nil
	}
	cache, err := driver.OpenCache("shade")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if clearFirst {
		if err := cache.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if !useCache {
		return nil, nil
	}
	return cache, nil
}

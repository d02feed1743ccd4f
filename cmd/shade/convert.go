package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"shade/internal/driver"
	"shade/internal/glsl"
)

func newDisCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [flags] <file.tirb>",
		Short: "Disassemble a binary IR module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := cmd.Flags().GetBool("ids")
			if err != nil {
				return fmt.Errorf("failed to get ids flag: %w", err)
			}
			return a.convert(cmd, args[0], driver.Options{Target: driver.TargetDisasm, ShowIDs: ids})
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	cmd.Flags().Bool("ids", false, "annotate instructions with arena ids")
	return cmd
}

func newGLSLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glsl [flags] <file.tirb>",
		Short: "Translate a binary IR module to GLSL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionStr, err := cmd.Flags().GetString("glsl-version")
			if err != nil {
				return fmt.Errorf("failed to get glsl-version flag: %w", err)
			}
			v, err := parseGLSLVersion(versionStr)
			if err != nil {
				return err
			}
			entry, err := cmd.Flags().GetString("entry")
			if err != nil {
				return fmt.Errorf("failed to get entry flag: %w", err)
			}
			return a.convert(cmd, args[0], driver.Options{
				Target: driver.TargetGLSL,
				GLSL:   glsl.Options{Version: v, EntryPoint: entry},
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	cmd.Flags().String("glsl-version", "310es", "GLSL version (e.g. 310es, 320es, 450)")
	cmd.Flags().String("entry", "", "entry point emitted as main (default: first entry point)")
	return cmd
}

// parseGLSLVersion accepts "450", "310es" and "310 es".
func parseGLSLVersion(s string) (glsl.Version, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	num, es := strings.CutSuffix(s, "es")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 100 {
		return glsl.Version{}, fmt.Errorf("invalid GLSL version %q (expected e.g. 310es or 450)", s)
	}
	number, err := safecast.Conv[uint16](n)
	if err != nil {
		return glsl.Version{}, fmt.Errorf("invalid GLSL version %q: %w", s, err)
	}
	return glsl.Version{Number: number, ES: es}, nil
}

// convert runs one module through the driver and writes its output to the
// -o file or stdout. Diagnostics go to stderr.
func (a *app) convert(cmd *cobra.Command, path string, opts driver.Options) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	maxDiag, timings, _, err := commonRunFlags(cmd)
	if err != nil {
		return err
	}
	opts.MaxDiagnostics = maxDiag
	opts.Timings = timings
	opts.Stdin = cmd.InOrStdin()

	idx := a.timer.Begin(opts.Target.String())
	results, err := driver.Run(cmd.Context(), []string{path}, opts)
	a.timer.End(idx, path)
	if err != nil {
		return err
	}
	res := results[0]
	if res.Bag.Len() > 0 {
		if err := renderDiagnostics(cmd.ErrOrStderr(), results, renderOptions{format: formatPretty, withNotes: true}); err != nil {
			return err
		}
	}
	if res.Failed() {
		return errFailed
	}
	return writeOutput(cmd.OutOrStdout(), output, res.Output)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // generated sources are meant to be readable
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func newRoundTripCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip <file.tirb|dir>...",
		Short: "Check that modules survive decode, validate, encode and decode unchanged",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxDiag, timings, quiet, err := commonRunFlags(cmd)
			if err != nil {
				return err
			}
			files, err := driver.ListInputs(args)
			if err != nil {
				return err
			}
			idx := a.timer.Begin("roundtrip")
			results, err := driver.Run(cmd.Context(), files, driver.Options{
				Target:         driver.TargetRoundTrip,
				MaxDiagnostics: maxDiag,
				Timings:        timings,
				Stdin:          cmd.InOrStdin(),
			})
			a.timer.End(idx, fmt.Sprintf("%d modules", len(files)))
			if err != nil {
				return err
			}
			if err := renderDiagnostics(cmd.ErrOrStderr(), results, renderOptions{format: formatPretty, withNotes: true}); err != nil {
				return err
			}
			if !quiet {
				for i := range results {
					if !results[i].Failed() {
						fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", results[i].Path)
					}
				}
			}
			if driver.CountFailed(results) > 0 {
				return errFailed
			}
			return nil
		},
	}
}

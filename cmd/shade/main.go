package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"shade/internal/observ"
	"shade/internal/trace"
	"shade/internal/version"
)

// errFailed is returned after diagnostics have been printed; main exits 1
// without printing anything else.
var errFailed = errors.New("failed")

// app carries state set up by the persistent pre-run hook.
type app struct {
	cfg      config
	cfgPath  string
	tracer   trace.Tracer
	timer    *observ.Timer
	cleanups []func()
}

func (a *app) cleanup() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "shade",
		Short:         "Structured shader IR toolkit",
		Long:          "shade validates, disassembles and converts binary shader IR modules (*.tirb)",
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics per module")
	pf.String("config", "", "path to shade.toml (default: search upward from the working directory)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson|chrome)")
	pf.Int("trace-ring-size", 4096, "events kept in the trace ring buffer")
	pf.Duration("trace-heartbeat", 0, "emit a trace heartbeat at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(
		newValidateCmd(a),
		newDisCmd(a),
		newGLSLCmd(a),
		newRoundTripCmd(a),
		newGenCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.timer = observ.NewTimer()
	idx := a.timer.Begin("setup")
	defer a.timer.End(idx, "")

	if err := setupColor(cmd); err != nil {
		return err
	}
	if err := a.loadConfig(cmd); err != nil {
		return err
	}
	stopTrace, err := a.setupTracing(cmd)
	if err != nil {
		return err
	}
	a.cleanups = append(a.cleanups, stopTrace)
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	a.cleanups = append(a.cleanups, stopProf)
	return nil
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// colorEnabled reports whether output to w should be colored.
func colorEnabled(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{tracer: trace.Nop}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		a.dumpTraceRing(stderr)
	}
	a.cleanup()
	if quiet, _ := root.PersistentFlags().GetBool("quiet"); !quiet && a.timer != nil {
		if timings, _ := root.PersistentFlags().GetBool("timings"); timings {
			fmt.Fprint(stderr, a.timer.Summary())
		}
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errFailed):
		return 1
	}
	fmt.Fprintf(stderr, "shade: %v\n", err)
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

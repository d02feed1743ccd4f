// Package driver checks and converts batches of binary IR modules. Each input
// is independent: it gets its own diagnostic bag and timer, and inputs are
// processed in parallel up to Options.Jobs.
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"shade/internal/diag"
	"shade/internal/glsl"
	"shade/internal/ir"
	"shade/internal/irbin"
	"shade/internal/observ"
	"shade/internal/trace"
)

// Target selects what the pipeline produces after validation.
type Target uint8

const (
	TargetValidate  Target = iota // diagnostics only
	TargetDisasm                  // textual disassembly
	TargetGLSL                    // GLSL source
	TargetRoundTrip               // encode, decode and compare
)

func (t Target) String() string {
	switch t {
	case TargetValidate:
		return "validate"
	case TargetDisasm:
		return "dis"
	case TargetGLSL:
		return "glsl"
	case TargetRoundTrip:
		return "roundtrip"
	}
	return "target(" + strconv.Itoa(int(t)) + ")"
}

// InputExt is the extension of binary IR files picked up from directories.
const InputExt = ".tirb"

// Options configures Run.
type Options struct {
	Target         Target
	Jobs           int // <= 0 means GOMAXPROCS
	MaxDiagnostics int
	ShowIDs        bool // disassembly only
	GLSL           glsl.Options
	Cache          *Cache
	Sink           ProgressSink
	Timings        bool      // attach an ObsTimings diagnostic per module
	KeepModules    bool      // keep decoded modules in results
	Stdin          io.Reader // read for the "-" path; defaults to os.Stdin
}

// Result is the outcome for one input.
type Result struct {
	Path    string
	Module  *ir.Module
	Bag     *diag.Bag
	Output  []byte
	Cached  bool
	Timings observ.Report
}

// Failed reports whether the input produced any error diagnostic.
func (r *Result) Failed() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// CountFailed returns the number of failed results.
func CountFailed(results []Result) int {
	n := 0
	for i := range results {
		if results[i].Failed() {
			n++
		}
	}
	return n
}

// ListInputs expands directories to the *.tirb files below them, sorted,
// and keeps explicit files and "-" as given. Duplicates are dropped.
func ListInputs(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, arg := range args {
		if arg == "-" {
			add(arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, InputExt) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		for _, p := range found {
			add(p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s inputs found in %s", InputExt, strings.Join(args, ", "))
	}
	return out, nil
}

// Run processes every path and returns one result per path in input order.
// The error is non-nil only when ctx is cancelled; per-module failures are
// reported through the result bags.
func Run(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if slices.Contains(paths[slices.Index(paths, "-")+1:], "-") {
		return nil, errors.New("standard input given more than once")
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	for _, p := range paths {
		opts.Sink.OnEvent(Event{File: p, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runOne(gctx, path, &opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

type job struct {
	ctx   context.Context
	path  string
	opts  *Options
	bag   *diag.Bag
	timer *observ.Timer
	start time.Time
}

func (j *job) stage(s Stage, fn func() error) error {
	j.opts.Sink.OnEvent(Event{File: j.path, Stage: s, Status: StatusWorking, Elapsed: time.Since(j.start)})
	_, span := trace.BeginCtx(j.ctx, trace.ScopePass, string(s))
	idx := j.timer.Begin(string(s))
	err := fn()
	j.timer.End(idx, "")
	if err != nil {
		span.WithExtra("error", err.Error())
	}
	span.End(j.path)
	return err
}

func runOne(ctx context.Context, path string, opts *Options) Result {
	ctx, span := trace.BeginCtx(ctx, trace.ScopeModule, "module:"+path)
	j := &job{
		ctx:   ctx,
		path:  path,
		opts:  opts,
		bag:   diag.NewBag(opts.MaxDiagnostics),
		timer: observ.NewTimer(),
		start: time.Now(),
	}
	res := Result{Path: path, Bag: j.bag}
	stage, failed := j.run(&res)

	res.Timings = j.timer.Report()
	if opts.Timings {
		appendTimingDiagnostic(j.bag, path, res.Timings)
	}
	j.bag.Dedup()
	j.bag.Sort()

	status := StatusDone
	switch {
	case res.Cached:
		status = StatusCached
	case failed != nil || res.Failed():
		status = StatusError
	}
	opts.Sink.OnEvent(Event{File: path, Stage: stage, Status: status, Err: failed, Elapsed: time.Since(j.start)})
	span.End(string(status))
	return res
}

// run returns the first stage error, if any, and the stage it stopped at.
func (j *job) run(res *Result) (Stage, error) {
	var data []byte
	err := j.stage(StageRead, func() error {
		var err error
		data, err = j.read()
		if err != nil {
			diag.ReportError(diag.BagReporter{Bag: j.bag}, diag.IOLoadFileError,
				diag.Node{Kind: diag.NodeModule}, "failed to load file: "+err.Error()).Emit()
		}
		return err
	})
	if err != nil {
		return StageRead, err
	}

	var key Digest
	if j.opts.Cache != nil {
		key = CacheKey(data, j.opts.Target, j.opts.variant())
		if e, ok, _ := j.opts.Cache.Get(key); ok {
			e.restore(j.bag)
			res.Output = e.Output
			res.Cached = true
			trace.Point(trace.FromContext(j.ctx), trace.ScopeModule, "cache-hit", j.path)
			return StageRead, nil
		}
	}

	reporter := diag.BagReporter{Bag: j.bag}
	var m *ir.Module
	err = j.stage(StageDecode, func() error {
		var err error
		m, err = irbin.Decode(bytes.NewReader(data), irbin.DecodeOptions{Reporter: reporter})
		return err
	})
	if err != nil {
		j.store(key, res)
		return StageDecode, err
	}
	if j.opts.KeepModules {
		res.Module = m
	}

	err = j.stage(StageValidate, func() error {
		j.traceFuncs(m)
		return ir.Validate(m, ir.Options{Reporter: reporter, MaxErrors: j.opts.MaxDiagnostics})
	})
	if err != nil {
		j.store(key, res)
		return StageValidate, err
	}

	if j.opts.Target != TargetValidate {
		err = j.stage(StageEmit, func() error { return j.emit(m, res) })
		if err != nil {
			j.store(key, res)
			return StageEmit, err
		}
	}
	j.store(key, res)
	return StageEmit, nil
}

func (j *job) read() ([]byte, error) {
	if j.path == "-" {
		return io.ReadAll(j.opts.Stdin)
	}
	return os.ReadFile(j.path)
}

func (j *job) traceFuncs(m *ir.Module) {
	t := trace.FromContext(j.ctx)
	if !t.Level().ShouldEmit(trace.ScopeFunc) {
		return
	}
	for f := range m.Functions() {
		trace.Point(t, trace.ScopeFunc, "func:"+f.Name, strconv.Itoa(len(f.Params))+" params")
	}
}

func (j *job) emit(m *ir.Module, res *Result) error {
	reporter := diag.BagReporter{Bag: j.bag}
	switch j.opts.Target {
	case TargetDisasm:
		var buf bytes.Buffer
		if err := ir.DumpModule(&buf, m, ir.DumpOptions{ShowIDs: j.opts.ShowIDs}); err != nil {
			return err
		}
		res.Output = buf.Bytes()
	case TargetGLSL:
		opts := j.opts.GLSL
		opts.SkipValidation = true
		out, err := glsl.Generate(m, opts)
		if err != nil {
			diag.ReportError(reporter, diag.EmitUnsupported, diag.Node{Kind: diag.NodeModule}, err.Error()).Emit()
			return err
		}
		res.Output = []byte(out.GLSL)
	case TargetRoundTrip:
		if err := roundTrip(m); err != nil {
			diag.ReportError(reporter, diag.BinRoundTrip, diag.Node{Kind: diag.NodeModule}, err.Error()).Emit()
			return err
		}
	}
	return nil
}

// roundTrip encodes m, decodes it again and requires identical disassembly
// and a byte-identical second encoding.
func roundTrip(m *ir.Module) error {
	first, err := irbin.Marshal(m)
	if err != nil {
		return err
	}
	back, err := irbin.Unmarshal(first)
	if err != nil {
		return fmt.Errorf("decode of fresh encoding: %w", err)
	}
	if want, got := ir.Disassemble(m), ir.Disassemble(back); want != got {
		return fmt.Errorf("disassembly differs after round trip:\n--- before ---\n%s--- after ---\n%s", want, got)
	}
	second, err := irbin.Marshal(back)
	if err != nil {
		return err
	}
	if !bytes.Equal(first, second) {
		return errors.New("re-encoding is not byte-identical")
	}
	return nil
}

func (j *job) store(key Digest, res *Result) {
	if j.opts.Cache == nil {
		return
	}
	if err := j.opts.Cache.Put(key, newCacheEntry(res.Output, j.bag)); err != nil {
		trace.Point(trace.FromContext(j.ctx), trace.ScopeModule, "cache-write-failed", err.Error())
	}
}

// variant folds the options that change a target's output into the cache key.
func (o *Options) variant() string {
	switch o.Target {
	case TargetDisasm:
		return "ids=" + strconv.FormatBool(o.ShowIDs)
	case TargetGLSL:
		return fmt.Sprintf("glsl=%s entry=%s", o.GLSL.Version, o.GLSL.EntryPoint)
	}
	return ""
}

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

func appendTimingDiagnostic(bag *diag.Bag, path string, r observ.Report) {
	data, err := json.Marshal(timingPayload{Kind: "module", Path: path, TotalMS: r.TotalMS, Phases: r.Phases})
	if err != nil {
		return
	}
	d := diag.New(diag.SevInfo, diag.ObsTimings, diag.Node{Kind: diag.NodeModule},
		fmt.Sprintf("timings: total %.2f ms", r.TotalMS)).
		WithNote(diag.Node{Kind: diag.NodeModule}, string(data))
	if bag.Add(d) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(d)
	bag.Merge(overflow)
}

package trace_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"shade/internal/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    trace.Level
		wantErr bool
	}{
		{"off", trace.LevelOff, false},
		{"PHASE", trace.LevelPhase, false},
		{"Detail", trace.LevelDetail, false},
		{"debug", trace.LevelDebug, false},
		{"loud", trace.LevelOff, true},
	}
	for _, tt := range tests {
		got, err := trace.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShouldEmit(t *testing.T) {
	if trace.LevelPhase.ShouldEmit(trace.ScopeModule) {
		t.Fatalf("phase level must not emit module scope")
	}
	if !trace.LevelDetail.ShouldEmit(trace.ScopeModule) {
		t.Fatalf("detail level must emit module scope")
	}
	if trace.LevelDetail.ShouldEmit(trace.ScopeFunc) || !trace.LevelDebug.ShouldEmit(trace.ScopeFunc) {
		t.Fatalf("func scope is debug only")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := trace.New(trace.Config{Level: trace.LevelPhase, Mode: trace.ModeStream, Format: trace.FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	ctx := trace.WithTracer(context.Background(), tr)
	ctx, outer := trace.BeginCtx(ctx, trace.ScopeDriver, "shade validate")
	_, inner := trace.BeginCtx(ctx, trace.ScopePass, "validate")
	inner.WithExtra("modules", "2").End("ok")
	_, skipped := trace.BeginCtx(ctx, trace.ScopeModule, "module:a.tirb")
	skipped.End("")
	outer.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var ev struct {
		Kind     string            `json:"kind"`
		Name     string            `json:"name"`
		ParentID uint64            `json:"parent_id"`
		Detail   string            `json:"detail"`
		Extra    map[string]string `json:"extra"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "end" || ev.Name != "validate" || ev.Detail != "ok" || ev.Extra["modules"] != "2" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.ParentID != outer.ID() {
		t.Fatalf("parent = %d, want %d", ev.ParentID, outer.ID())
	}
}

func TestChromeStreamIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatChrome)
	span := trace.Begin(tr, trace.ScopePass, "emit", 0)
	trace.Point(tr, trace.ScopePass, "cache-hit", "a.tirb")
	span.End("")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome trace: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 || doc.TraceEvents[0]["ph"] != "B" || doc.TraceEvents[2]["ph"] != "E" {
		t.Fatalf("unexpected events %v", doc.TraceEvents)
	}
}

func TestRingWraps(t *testing.T) {
	r := trace.NewRingTracer(3, trace.LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		trace.Point(r, trace.ScopeFunc, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Fatalf("snap[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, trace.FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump:\n%s", buf.String())
	}
}

func TestRingErrorLevelKeepsPasses(t *testing.T) {
	tr, err := trace.New(trace.Config{Level: trace.LevelError, Mode: trace.ModeRing})
	if err != nil {
		t.Fatal(err)
	}
	trace.Begin(tr, trace.ScopePass, "decode", 0).End("")
	trace.Begin(tr, trace.ScopeFunc, "fn", 0).End("")
	ring := trace.RingOf(tr)
	if ring == nil {
		t.Fatalf("ring mode without ring")
	}
	if n := len(ring.Snapshot()); n != 2 {
		t.Fatalf("ring kept %d events, want 2", n)
	}
}

func TestOffIsNop(t *testing.T) {
	tr, err := trace.New(trace.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() || tr != trace.Nop {
		t.Fatalf("off level should yield Nop")
	}
	if span := trace.Begin(tr, trace.ScopeDriver, "x", 0); span.End("") != 0 || span.ID() != 0 {
		t.Fatalf("nop span recorded")
	}
}

func TestHeartbeatStopTwice(t *testing.T) {
	h := trace.StartHeartbeat(trace.NewRingTracer(8, trace.LevelPhase), 1_000_000)
	h.Stop()
	h.Stop()
	var nilBeat *trace.Heartbeat
	nilBeat.Stop()
}

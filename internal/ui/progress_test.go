package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"shade/internal/driver"
)

func TestProgressModelApply(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("validate", []string{"a.tirb", "b.tirb"}, events).(*progressModel)

	m.apply(driver.Event{File: "a.tirb", Stage: driver.StageValidate, Status: driver.StatusWorking})
	if m.items[0].status != "validating" {
		t.Fatalf("status = %q", m.items[0].status)
	}
	if got := m.percent(); got != 0.25 {
		t.Fatalf("percent = %v", got)
	}
	m.apply(driver.Event{File: "a.tirb", Stage: driver.StageEmit, Status: driver.StatusDone})
	m.apply(driver.Event{File: "b.tirb", Stage: driver.StageDecode, Status: driver.StatusError})
	m.apply(driver.Event{File: "b.tirb", Stage: driver.StageDecode, Status: driver.StatusError})
	m.apply(driver.Event{File: "unknown.tirb", Status: driver.StatusDone})
	if m.failed != 1 || m.percent() != 1 {
		t.Fatalf("failed = %d, percent = %v", m.failed, m.percent())
	}

	m.Update(doneMsg{})
	view := m.View()
	for _, want := range []string{"done: validate 2/2, 1 failed", "a.tirb", "b.tirb", "error"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelCached(t *testing.T) {
	m := NewProgressModel("glsl", []string{"x.tirb"}, nil).(*progressModel)
	m.apply(driver.Event{File: "x.tirb", Status: driver.StatusCached})
	if !strings.Contains(m.View(), "1/1, 1 cached") {
		t.Fatalf("view:\n%s", m.View())
	}
}

func TestEmptyModel(t *testing.T) {
	m := NewProgressModel("validate", nil, nil).(*progressModel)
	if m.View() != "" || m.percent() != 1 {
		t.Fatalf("empty model renders")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.tirb", 20, "short.tirb"},
		{"shaders/deep/nested/blur.tirb", 15, "...ed/blur.tirb"},
		{"abcdef", 3, "abc"},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.width)
		if got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if tt.width > 0 && runewidth.StringWidth(got) > tt.width {
			t.Fatalf("truncate(%q, %d) too wide: %q", tt.in, tt.width, got)
		}
	}
}

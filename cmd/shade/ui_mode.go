package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"shade/internal/driver"
	"shade/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI decides whether to show the progress view on out. Auto mode
// needs a terminal and more than one input.
func shouldUseTUI(mode uiMode, out io.Writer, inputs int) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	f, ok := out.(*os.File)
	return ok && inputs > 1 && isTerminal(f)
}

type runOutcome struct {
	results []driver.Result
	err     error
}

// runWithUI runs the driver while a Bubble Tea program renders its events.
func runWithUI(ctx context.Context, title string, files []string, opts driver.Options, out io.Writer) ([]driver.Result, error) {
	events := make(chan driver.Event, 256)
	done := make(chan runOutcome, 1)
	go func() {
		opts.Sink = driver.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, files, opts)
		close(events)
		done <- runOutcome{results: res, err: err}
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// The view may quit early; keep draining so the driver never blocks.
	go func() {
		for range events {
		}
	}()
	outcome := <-done
	if outcome.err == nil && uiErr != nil && ctx.Err() == nil {
		return outcome.results, fmt.Errorf("progress view: %w", uiErr)
	}
	return outcome.results, outcome.err
}

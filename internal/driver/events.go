package driver

import "time"

// Stage is a step of the per-module pipeline.
type Stage string

const (
	StageRead     Stage = "read"
	StageDecode   Stage = "decode"
	StageValidate Stage = "validate"
	StageEmit     Stage = "emit"
)

// Status is the state of a module within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusCached  Status = "cached"
	StatusError   Status = "error"
)

// Event reports progress for one input file.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Finished reports whether ev is the last event for its file.
func (ev Event) Finished() bool {
	switch ev.Status {
	case StatusDone, StatusCached, StatusError:
		return true
	}
	return false
}

// ProgressSink consumes events. OnEvent is called from worker goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch != nil {
		s.Ch <- ev
	}
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}

// Package progress carries per-assembly progress of a merge to whoever
// renders it.
package progress

import "time"

// Stage is the step an assembly (or the whole merge) is in.
type Stage string

const (
	// StageLoad decodes the image.
	StageLoad Stage = "load"
	// StageMerge copies the assembly into the target.
	StageMerge Stage = "merge"
	// StageFixup remaps handles of the copied nodes.
	StageFixup Stage = "fixup"
	// StageAccess repairs override accessibility.
	StageAccess Stage = "access"
	// StageWrite stores the output image.
	StageWrite Stage = "write"
)

// Status is the state of a task within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports a change. An empty Assembly means the event is about the
// merge as a whole.
type Event struct {
	Assembly string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
}

// Sink consumes progress events. Implementations must be safe for use by
// several goroutines.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// Emit sends ev to s when s is set.
func Emit(s Sink, ev Event) {
	if s != nil {
		s.OnEvent(ev)
	}
}

// Track emits a working event and returns the function that emits the
// matching done or error event.
func Track(s Sink, assembly string, stage Stage) func(err error) {
	if s == nil {
		return func(error) {}
	}
	start := time.Now()
	s.OnEvent(Event{Assembly: assembly, Stage: stage, Status: StatusWorking})
	return func(err error) {
		ev := Event{Assembly: assembly, Stage: stage, Status: StatusDone, Elapsed: time.Since(start)}
		if err != nil {
			ev.Status, ev.Err = StatusError, err
		}
		s.OnEvent(ev)
	}
}

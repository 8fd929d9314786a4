package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// Mode selects where events are kept.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written as they happen
	ModeRing                   // last N in memory, dumped when a run fails
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m Mode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode is case-insensitive.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n != "" && n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("invalid trace mode %q (want stream|ring|both)", s)
}

// DefaultRingSize is used when Config.RingSize is not positive.
const DefaultRingSize = 4096

// Config describes a tracer. Output wins over OutputPath; "-" and ""
// mean stderr.
type Config struct {
	Level      Level
	Mode       Mode
	Format     Format
	Output     io.Writer
	OutputPath string
	RingSize   int
	Heartbeat  time.Duration
}

// New builds the tracer for cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}
	format := cfg.Format
	if format == FormatAuto {
		format = formatFor(cfg.OutputPath)
	}

	switch cfg.Mode {
	case ModeStream:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewStreamTracer(w, cfg.Level, format), nil
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return fanout{NewStreamTracer(w, cfg.Level, format), NewRingTracer(cfg.RingSize, cfg.Level)}, nil
	}
	return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
}

func formatFor(path string) Format {
	switch filepath.Ext(path) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(cfg Config) (io.WriteCloser, error) {
	if cfg.Output != nil {
		if wc, ok := cfg.Output.(io.WriteCloser); ok {
			return wc, nil
		}
		return nopCloser{cfg.Output}, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// Ring returns the in-memory buffer behind t, if it keeps one.
func Ring(t Tracer) (*RingTracer, bool) {
	switch t := t.(type) {
	case *RingTracer:
		return t, true
	case fanout:
		for _, inner := range t {
			if r, ok := Ring(inner); ok {
				return r, true
			}
		}
	}
	return nil, false
}

// fanout отдаёт событие каждому трейсеру по очереди.
type fanout []Tracer

func (f fanout) Emit(ev *Event) {
	for _, t := range f {
		t.Emit(ev)
	}
}

func (f fanout) Flush() error {
	var errs []error
	for _, t := range f {
		errs = append(errs, t.Flush())
	}
	return errors.Join(errs...)
}

func (f fanout) Close() error {
	var errs []error
	for _, t := range f {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

func (f fanout) Level() Level {
	var l Level
	for _, t := range f {
		l = max(l, t.Level())
	}
	return l
}

func (f fanout) Enabled() bool { return f.Level() > LevelOff }

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything.
var Nop Tracer = nopTracer{}

package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes each accepted event through a buffer. Write errors
// are remembered and returned by Flush; the merge itself never fails on
// them.
type StreamTracer struct {
	mu     sync.Mutex
	out    io.WriteCloser
	buf    *bufio.Writer
	level  Level
	format Format
	err    error
}

// NewStreamTracer wraps w. Close closes w.
func NewStreamTracer(w io.WriteCloser, level Level, format Format) *StreamTracer {
	return &StreamTracer{out: w, buf: bufio.NewWriter(w), level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	if _, err := t.buf.Write(data); err != nil {
		t.err = err
	}
	// heartbeat должен дойти до файла сразу, иначе зависание не видно
	if ev.Kind == KindHeartbeat || ev.Scope <= ScopePass {
		if err := t.buf.Flush(); err != nil && t.err == nil {
			t.err = err
		}
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.err = t.buf.Flush()
	return t.err
}

func (t *StreamTracer) Close() error {
	flushErr := t.Flush()
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.out.Close(); err != nil {
		return err
	}
	return flushErr
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

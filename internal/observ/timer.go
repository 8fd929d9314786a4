// Package observ measures merge phases for --timings.
package observ

import (
	"slices"
	"time"
)

// Phase is one measured step.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records phases in the order they begin. A nil *Timer is valid and
// records nothing.
type Timer struct {
	phases []Phase
	now    func() time.Time
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8), now: time.Now} }

// Track begins a phase and returns the function that ends it.
//
//	done := timer.Track("closure")
//	defer done("")
func (t *Timer) Track(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	idx := len(t.phases)
	t.phases = append(t.phases, Phase{Name: name, Start: t.now()})
	return func(note string) {
		p := &t.phases[idx]
		p.Dur = t.now().Sub(p.Start)
		p.Note = note
	}
}

// PhaseReport is one serializable row of a Report.
type PhaseReport struct {
	Name       string  `json:"name" yaml:"name"`
	DurationMS float64 `json:"duration_ms" yaml:"duration_ms"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Report lists the phases and their sum in milliseconds.
type Report struct {
	TotalMS float64       `json:"total_ms" yaml:"total_ms"`
	Phases  []PhaseReport `json:"phases" yaml:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	r := Report{Phases: make([]PhaseReport, len(t.phases))}
	for i, p := range t.phases {
		ms := millis(p.Dur)
		r.Phases[i] = PhaseReport{Name: p.Name, DurationMS: ms, Note: p.Note}
		r.TotalMS += ms
	}
	return r
}

// Splice inserts inner's phases after the phase named after; when there is
// no such phase they are appended. Totals add up.
func (r Report) Splice(after string, inner Report) Report {
	at := len(r.Phases)
	if i := slices.IndexFunc(r.Phases, func(p PhaseReport) bool { return p.Name == after }); i >= 0 {
		at = i + 1
	}
	return Report{
		TotalMS: r.TotalMS + inner.TotalMS,
		Phases:  slices.Insert(slices.Clone(r.Phases), at, inner.Phases...),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

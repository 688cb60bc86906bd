// Package sequencer walks a pattern step by step, pushing each step's
// frequencies to a Tuner and holding them for the step's duration.
// Playback loops until cancelled.
//
// A Sequencer is not safe for concurrent use. Its owner drives Begin,
// Queue and Cancel and must hand it a Clock whose callbacks run under the
// same lock (see SerialClock). Every armed callback carries the generation
// it was armed in and does nothing once that generation has passed, so a
// timer that fires after Cancel cannot touch the tuner.
package sequencer

import (
	"go-dualtone/debug"
	"go-dualtone/pattern"
	"go-dualtone/tone"
)

// Tuner receives the frequencies of each step as it starts
type Tuner interface {
	Tune(pair tone.Pair)
}

// TunerFunc adapts a function to Tuner
type TunerFunc func(tone.Pair)

func (f TunerFunc) Tune(p tone.Pair) { f(p) }

// Sequencer owns the step cursor. Nothing outside writes the index.
type Sequencer struct {
	clock Clock
	tuner Tuner

	pattern pattern.Pattern
	queued  pattern.Pattern // replaces pattern at the next step boundary
	index   int
	timer   Timer
	gen     uint64
	running bool

	// OnStep is called after each step is applied, if set
	OnStep func(index, count int)
}

// New returns an idle sequencer
func New(clock Clock, tuner Tuner) *Sequencer {
	return &Sequencer{clock: clock, tuner: tuner}
}

// Begin starts p from its first step. A run already in progress is
// cancelled first.
func (s *Sequencer) Begin(p pattern.Pattern) {
	s.Cancel()
	if len(p) == 0 {
		return
	}
	s.pattern = p
	s.queued = nil
	s.index = 0
	s.running = true
	debug.Log("seq", "begin %d steps, cycle %v", len(p), p.Cycle())
	s.apply()
}

// Queue replaces the running pattern once the current step has finished;
// playback continues from the new pattern's first step. It does nothing
// when idle; use Begin.
func (s *Sequencer) Queue(p pattern.Pattern) {
	if !s.running || len(p) == 0 {
		return
	}
	s.queued = p
	debug.Log("seq", "queued %d steps", len(p))
}

// Cancel disarms the pending timer. It is safe to call when idle.
func (s *Sequencer) Cancel() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.running {
		debug.Log("seq", "cancel at step %d", s.index)
	}
	s.running = false
	s.queued = nil
}

// Running reports whether a timer is armed
func (s *Sequencer) Running() bool { return s.running }

// Position returns the current step index and the pattern length
func (s *Sequencer) Position() (index, count int) {
	if !s.running {
		return 0, 0
	}
	return s.index, len(s.pattern)
}

// Pattern returns the pattern being played
func (s *Sequencer) Pattern() pattern.Pattern { return s.pattern }

func (s *Sequencer) apply() {
	step := s.pattern[s.index]
	s.tuner.Tune(step.Pair)
	if s.OnStep != nil {
		s.OnStep(s.index, len(s.pattern))
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(step.Duration, func() { s.fire(gen) })
}

func (s *Sequencer) fire(gen uint64) {
	if gen != s.gen || !s.running {
		debug.Log("seq", "stale timer ignored (gen %d, now %d)", gen, s.gen)
		return
	}
	if s.queued != nil {
		s.pattern, s.queued = s.queued, nil
		s.index = 0
	} else {
		s.index = (s.index + 1) % len(s.pattern)
	}
	s.apply()
}

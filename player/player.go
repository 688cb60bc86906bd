// Package player binds user intents to the signal graph and the sequencer.
//
// The controller is a small state machine over (Playback × Mode). All
// intents and all sequencer timer fires run under one mutex, so they are
// observed in a single order, and the graph session exists exactly while
// the playback state is Playing.
package player

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go-dualtone/debug"
	"go-dualtone/graph"
	"go-dualtone/pattern"
	"go-dualtone/sequencer"
	"go-dualtone/tone"
	"go-dualtone/visual"
)

var (
	ErrManualOnly = errors.New("player: frequencies follow the pattern in pattern mode")
	ErrNoPattern  = errors.New("player: no valid pattern to play")
	ErrClosed     = errors.New("player: closed")
)

// Playback is whether sound is being produced
type Playback int

const (
	Stopped Playback = iota
	Playing
)

func (p Playback) String() string {
	if p == Playing {
		return "playing"
	}
	return "stopped"
}

// Mode is where the frequencies come from
type Mode int

const (
	Manual Mode = iota
	Pattern
)

func (m Mode) String() string {
	if m == Pattern {
		return "pattern"
	}
	return "manual"
}

// ParseMode is the inverse of Mode.String
func ParseMode(s string) (Mode, error) {
	switch s {
	case "manual":
		return Manual, nil
	case "pattern":
		return Pattern, nil
	}
	return Manual, fmt.Errorf("unknown mode %q", s)
}

// State is a snapshot for the UI
type State struct {
	Playback   Playback
	Mode       Mode
	Pair       tone.Pair
	Volume     float64
	Muted      bool
	StepIndex  int // 0-based, valid while StepCount > 0
	StepCount  int
	Steps      int   // length of the current valid pattern, 0 if none
	PatternErr error // why the latest pattern text was rejected
	Err        error // last device or playback error
}

// Options configures a Controller
type Options struct {
	Pair        tone.Pair // initial manual frequencies
	MinHz       float64   // manual edits are clamped to MinHz..MaxHz
	MaxHz       float64
	Volume      float64
	Muted       bool
	Mode        Mode
	PatternText string

	Clock   sequencer.Clock  // nil means the system clock
	Now     func() time.Time // nil means time.Now
	History *visual.History  // nil means a 60 s history
}

// Controller is the top-level orchestrator
type Controller struct {
	mu sync.Mutex

	graph   *graph.Graph
	session *graph.Session
	seq     *sequencer.Sequencer
	history *visual.History
	now     func() time.Time

	minHz, maxHz float64

	playback Playback
	mode     Mode
	pair     tone.Pair
	volume   float64
	muted    bool

	text       string
	pattern    pattern.Pattern // last valid pattern
	patternErr error

	err    error
	closed bool

	// UpdateChan is poked (non-blocking) whenever the state changes on its own
	UpdateChan chan struct{}
}

// New returns a controller in Stopped state
func New(g *graph.Graph, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = sequencer.SystemClock{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.History == nil {
		opts.History = visual.NewHistory(1024, time.Minute)
	}
	if opts.MinHz <= 0 {
		opts.MinHz = 20
	}
	if opts.MaxHz <= opts.MinHz {
		opts.MaxHz = 500
	}
	if !opts.Pair.Valid() {
		opts.Pair = tone.Pair{A: 100, B: 100}
	}
	if opts.PatternText == "" {
		opts.PatternText = pattern.DefaultText
	}

	c := &Controller{
		graph:      g,
		history:    opts.History,
		now:        opts.Now,
		minHz:      opts.MinHz,
		maxHz:      opts.MaxHz,
		mode:       opts.Mode,
		pair:       opts.Pair,
		volume:     clampVolume(opts.Volume),
		muted:      opts.Muted,
		text:       opts.PatternText,
		UpdateChan: make(chan struct{}, 1),
	}
	c.seq = sequencer.New(sequencer.SerialClock(opts.Clock, &c.mu), sequencer.TunerFunc(c.tune))
	c.seq.OnStep = func(i, n int) {
		debug.Log("player", "step %d of %d", i+1, n)
		c.notify()
	}
	c.reparse()
	c.history.Add(c.now(), c.pair)
	return c
}

// State returns a snapshot of the controller
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, n := c.seq.Position()
	return State{
		Playback:   c.playback,
		Mode:       c.mode,
		Pair:       c.pair,
		Volume:     c.volume,
		Muted:      c.muted,
		StepIndex:  idx,
		StepCount:  n,
		Steps:      len(c.pattern),
		PatternErr: c.patternErr,
		Err:        c.err,
	}
}

// PatternText returns the text last given to EditPattern
func (c *Controller) PatternText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// History returns the frequency history the controller writes to
func (c *Controller) History() *visual.History { return c.history }

// Frame assembles what the visual feed needs for one tick
func (c *Controller) Frame(dt time.Duration) visual.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	fr := visual.Frame{
		Playing:    c.playback == Playing,
		Now:        c.now(),
		Dt:         dt,
		SampleRate: c.graph.Options().SampleRate,
		Pair:       c.pair,
		History:    c.history.Snapshot(),
	}
	if c.session != nil {
		if tap, err := c.session.Tap(); err == nil {
			fr.Scope = tap
		}
	}
	return fr
}

// TogglePlay starts or stops playback in the current mode
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.playback == Playing {
		return c.stop()
	}
	return c.start()
}

// Play starts playback if stopped
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.playback == Playing {
		return nil
	}
	return c.start()
}

// Stop stops playback if playing
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.stop()
}

// ToggleMode switches between manual and pattern mode. Playback is
// stopped first; switching the frequency source while live is not allowed.
// Entering pattern mode re-parses the pattern text and returns its error.
func (c *Controller) ToggleMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.stop(); err != nil {
		return err
	}
	if c.mode == Manual {
		c.mode = Pattern
		debug.Log("player", "mode -> pattern")
		return c.reparse()
	}
	c.mode = Manual
	debug.Log("player", "mode -> manual")
	return nil
}

// SetFrequency sets one channel in manual mode, clamped to the slider range
func (c *Controller) SetFrequency(ch tone.Channel, hz float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setFrequency(ch, hz)
}

// AdjustFrequency nudges one channel by delta Hz in manual mode
func (c *Controller) AdjustFrequency(ch tone.Channel, delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setFrequency(ch, c.pair.Get(ch)+delta)
}

// setFrequency must be called with c.mu held
func (c *Controller) setFrequency(ch tone.Channel, hz float64) error {
	if c.closed {
		return ErrClosed
	}
	if c.mode != Manual {
		return ErrManualOnly
	}
	if math.IsNaN(hz) {
		return fmt.Errorf("%w: %v", graph.ErrInvalidFrequency, hz)
	}
	c.tune(c.pair.With(ch, tone.Clamp(hz, c.minHz, c.maxHz)))
	return nil
}

// EditPattern re-parses text. A valid, different pattern replaces the
// current one; if the sequencer is running it switches at the next step
// boundary. An invalid text is recorded and returned, and whatever is
// playing keeps playing.
func (c *Controller) EditPattern(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.text = text
	return c.reparse()
}

// SetVolume sets the volume (0..1). While playing the gain ramps to it.
func (c *Controller) SetVolume(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVolume(v)
}

// AdjustVolume nudges the volume by delta
func (c *Controller) AdjustVolume(delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVolume(c.volume + delta)
}

func (c *Controller) setVolume(v float64) error {
	if c.closed {
		return ErrClosed
	}
	c.volume = clampVolume(v)
	return c.applyVolume()
}

// ToggleMute silences the output without stopping it. The volume is kept.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.muted = !c.muted
	return c.applyVolume()
}

// Close forces Stopped from any state. Only the first call does anything.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	err := c.stop()
	c.closed = true
	debug.Log("player", "closed")
	return err
}

// start must be called with c.mu held and playback Stopped
func (c *Controller) start() error {
	first := c.pair
	if c.mode == Pattern {
		if c.patternErr != nil {
			return fmt.Errorf("%w: %v", ErrNoPattern, c.patternErr)
		}
		if len(c.pattern) == 0 {
			return ErrNoPattern
		}
		first = c.pattern[0].Pair
	}

	s, err := c.graph.Start(first, c.effectiveVolume())
	if err != nil {
		c.err = err
		debug.Log("player", "start failed: %v", err)
		return err
	}
	c.session = s
	c.playback = Playing
	c.err = nil
	debug.Log("player", "playing (%s)", c.mode)

	if c.mode == Pattern {
		c.seq.Begin(c.pattern)
	}
	return nil
}

// stop must be called with c.mu held. It is a no-op when stopped.
func (c *Controller) stop() error {
	if c.playback == Stopped {
		return nil
	}
	c.seq.Cancel()
	s := c.session
	c.session = nil
	c.playback = Stopped
	debug.Log("player", "stopped")
	if err := s.Stop(); err != nil {
		c.err = err
		return err
	}
	return nil
}

// tune is the sequencer's tuner and the path for manual edits. Must be
// called with c.mu held.
func (c *Controller) tune(p tone.Pair) {
	if p == c.pair {
		return
	}
	c.pair = p
	c.history.Add(c.now(), p)
	if c.session != nil {
		if err := c.session.Retune(p); err != nil {
			c.err = err
			debug.Log("player", "retune %v: %v", p, err)
		}
	}
	c.notify()
}

func (c *Controller) reparse() error {
	p, err := pattern.Parse(c.text)
	if err != nil {
		c.patternErr = err
		debug.Log("player", "pattern rejected: %v", err)
		return err
	}
	c.patternErr = nil
	if p.Equal(c.pattern) {
		return nil
	}
	c.pattern = p
	if c.seq.Running() {
		c.seq.Queue(p)
	}
	debug.Log("player", "pattern accepted: %d steps", len(p))
	return nil
}

func (c *Controller) applyVolume() error {
	if c.session == nil {
		return nil
	}
	if err := c.session.SetVolume(c.effectiveVolume()); err != nil {
		c.err = err
		return err
	}
	return nil
}

func (c *Controller) effectiveVolume() float64 {
	if c.muted {
		return 0
	}
	return c.volume
}

func (c *Controller) notify() {
	select {
	case c.UpdateChan <- struct{}{}:
	default:
	}
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

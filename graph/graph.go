// Package graph owns the live audio signal chain: one sine oscillator per
// channel, each panned hard to its side, summed into a shared gain stage
// that feeds the output sink, with an analysis tap hanging off the gain.
//
// At most one Session is live per Graph. Start fails while one exists and
// Stop releases the output stream so a later Start builds a fresh chain.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go-dualtone/debug"
	"go-dualtone/dsp"
	"go-dualtone/tone"
)

var (
	ErrAlreadyRunning    = errors.New("graph: already running")
	ErrNotRunning        = errors.New("graph: not running")
	ErrDeviceUnavailable = errors.New("graph: audio device unavailable")
	ErrInvalidFrequency  = errors.New("graph: frequency must be finite and greater than 0")
)

// Source renders interleaved stereo float32 frames (L, R, L, R, ...)
type Source interface {
	Render(out []float32)
}

// Stream is an open output; Close stops it and releases the device
type Stream interface {
	Close() error
}

// Sink opens an output that pulls from src until closed
type Sink interface {
	Play(sampleRate int, src Source) (Stream, error)
}

// Options configures the chain built by Start
type Options struct {
	SampleRate int
	RampWindow time.Duration // gain ramp length for volume changes
	TapSize    int           // analysis window, power of two
}

// DefaultOptions matches the defaults of the config package
func DefaultOptions() Options {
	return Options{
		SampleRate: 44100,
		RampWindow: 100 * time.Millisecond,
		TapSize:    dsp.DefaultTapSize,
	}
}

// Graph hands out the single live Session for one output sink
type Graph struct {
	mu   sync.Mutex
	sink Sink
	opts Options
	live *Session
}

// New creates a graph that plays through sink
func New(sink Sink, opts Options) *Graph {
	def := DefaultOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.RampWindow < 0 {
		opts.RampWindow = 0
	}
	if opts.TapSize <= 0 {
		opts.TapSize = def.TapSize
	}
	return &Graph{sink: sink, opts: opts}
}

// Options returns the options the graph was built with
func (g *Graph) Options() Options { return g.opts }

// Live returns the running session, or nil
func (g *Graph) Live() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// Start builds the chain, tuned to pair, and opens the sink. The gain
// ramps up from silence to volume over the ramp window.
func (g *Graph) Start(pair tone.Pair, volume float64) (*Session, error) {
	if !pair.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrequency, pair)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.live != nil {
		return nil, ErrAlreadyRunning
	}

	tap, err := dsp.NewTap(g.opts.TapSize)
	if err != nil {
		return nil, fmt.Errorf("graph: analysis tap: %w", err)
	}

	sr := float64(g.opts.SampleRate)
	s := &Session{
		graph:      g,
		oscA:       dsp.NewOscillator(sr, pair.A),
		oscB:       dsp.NewOscillator(sr, pair.B),
		panA:       dsp.NewPanner(-1),
		panB:       dsp.NewPanner(1),
		gain:       dsp.NewGain(0),
		tap:        tap,
		pair:       pair,
		rampFrames: g.rampFrames(),
	}
	s.gain.RampTo(clampVolume(volume), s.rampFrames)

	stream, err := g.sink.Play(g.opts.SampleRate, s)
	if err != nil {
		debug.Log("graph", "start failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.stream = stream
	g.live = s
	debug.Log("graph", "started %v vol=%.2f sr=%d", pair, volume, g.opts.SampleRate)
	return s, nil
}

func (g *Graph) rampFrames() int {
	return int(g.opts.RampWindow.Seconds() * float64(g.opts.SampleRate))
}

func (g *Graph) release(s *Session) {
	g.mu.Lock()
	if g.live == s {
		g.live = nil
	}
	g.mu.Unlock()
}

// Session is the handle to one running chain
type Session struct {
	graph *Graph

	mu         sync.Mutex
	oscA, oscB *dsp.Oscillator
	panA, panB dsp.Panner
	gain       *dsp.Gain
	tap        *dsp.Tap
	pair       tone.Pair
	rampFrames int
	mono       []float64
	stopped    bool

	stream Stream
}

// Retune sets both oscillator frequencies in place. Phase is preserved so
// the change does not click and no nodes are rebuilt.
func (s *Session) Retune(pair tone.Pair) error {
	if !pair.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, pair)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrNotRunning
	}
	s.oscA.SetFreq(pair.A)
	s.oscB.SetFreq(pair.B)
	s.pair = pair
	debug.LogEvery(50, "graph", "retune %v", pair)
	return nil
}

// SetVolume ramps the shared gain to volume over the ramp window.
// Muting is SetVolume(0); the chain and its tap keep running.
func (s *Session) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrNotRunning
	}
	s.gain.RampTo(clampVolume(volume), s.rampFrames)
	return nil
}

// Pair returns the frequencies the oscillators are tuned to
func (s *Session) Pair() tone.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// Gain returns the current gain and its ramp target
func (s *Session) Gain() (value, target float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain.Value(), s.gain.Target()
}

// Tap returns the analysis tap while the session runs
func (s *Session) Tap() (*dsp.Tap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrNotRunning
	}
	return s.tap, nil
}

// Running reports whether Stop has not been called yet
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Stop halts the oscillators, detaches the tap and closes the stream.
// Calling it again returns ErrNotRunning.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.stopped = true
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	// Close outside the lock: backends may wait for an in-flight Render.
	var err error
	if stream != nil {
		err = stream.Close()
	}
	s.tap.Reset()
	s.graph.release(s)
	debug.Log("graph", "stopped")
	if err != nil {
		return fmt.Errorf("graph: close stream: %w", err)
	}
	return nil
}

// Render implements Source. A stopped session renders silence.
func (s *Session) Render(out []float32) {
	frames := len(out) / 2

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		for i := range out {
			out[i] = 0
		}
		return
	}
	if cap(s.mono) < frames {
		s.mono = make([]float64, frames)
	}
	mono := s.mono[:frames]
	for i := 0; i < frames; i++ {
		la, ra := s.panA.Process(s.oscA.Next())
		lb, rb := s.panB.Process(s.oscB.Next())
		g := s.gain.Next()
		l, r := (la+lb)*g, (ra+rb)*g
		out[2*i] = float32(l)
		out[2*i+1] = float32(r)
		mono[i] = (l + r) / 2
	}
	s.mu.Unlock()

	s.tap.Write(mono...)
	debug.LogEvery(500, "graph", "render %d frames", frames)
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

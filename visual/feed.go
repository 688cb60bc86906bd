// Package visual turns analysis data or tone history into 2-D traces. It
// only reads: nothing here changes the tone, the pattern or the graph.
package visual

import (
	"fmt"
	"math"
	"time"

	"go-dualtone/tone"
)

// Mode selects what the feed draws
type Mode int

const (
	ModeWaveform  Mode = iota // time-domain samples from the analysis tap
	ModeSpectrum              // frequency bins from the analysis tap
	ModeSine                  // synthetic sine approximation of both channels
	ModeHistory               // frequency of both channels over time
	ModeLissajous             // A against B; the figure turns at the beat frequency
	numModes
)

var modeNames = [...]string{"waveform", "spectrum", "sine", "history", "lissajous"}

func (m Mode) String() string {
	if m >= 0 && m < numModes {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Next cycles to the following mode
func (m Mode) Next() Mode { return (m + 1) % numModes }

// ParseMode is the inverse of String
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown visual mode %q", s)
}

// Canvas is the drawing surface: pixel coordinates, origin top left
type Canvas interface {
	Size() (w, h int)
	Clear()
	Line(x0, y0, x1, y1 float64, rgb [3]uint8)
}

// Scope is the analysis tap of a live graph
type Scope interface {
	Size() int
	Bins() int
	TimeDomain(dst []byte) int
	FrequencyData(dst []byte) int
}

// Frame is everything one tick may draw from
type Frame struct {
	Playing    bool
	Now        time.Time
	Dt         time.Duration // since the previous frame
	Scope      Scope         // nil unless playing
	SampleRate int
	Pair       tone.Pair
	History    []Sample
}

// Colors used for the traces
type Colors struct {
	Trace [3]uint8
	A, B  [3]uint8
}

// Point is a vertex of a trace
type Point struct{ X, Y float64 }

// Feed renders one frame per tick
type Feed struct {
	Mode   Mode
	Colors Colors

	// SineWindow is the time span across the width in ModeSine
	SineWindow time.Duration
	// HistoryWindow is the time span across the width in ModeHistory
	HistoryWindow time.Duration
	// MinHz and MaxHz bound the vertical axis in ModeHistory and the
	// horizontal axis in ModeSpectrum
	MinHz, MaxHz float64

	phase float64
	beat  float64 // relative phase of B against A, for ModeLissajous
	buf   []byte
}

// SineRate is the animation rate of the synthetic trace, in Hz
const SineRate = 2.0

// NewFeed returns a feed with the defaults used by the player
func NewFeed(mode Mode, colors Colors) *Feed {
	return &Feed{
		Mode:          mode,
		Colors:        colors,
		SineWindow:    25 * time.Millisecond,
		HistoryWindow: 60 * time.Second,
		MinHz:         20,
		MaxHz:         500,
	}
}

// Phase returns the accumulated animation phase of ModeSine, in radians
func (f *Feed) Phase() float64 { return f.phase }

// Render draws fr onto c. When not playing it only clears the canvas.
func (f *Feed) Render(fr Frame, c Canvas) {
	c.Clear()
	if !fr.Playing {
		return
	}
	w, h := c.Size()
	switch f.Mode {
	case ModeWaveform:
		if fr.Scope != nil {
			f.stroke(c, f.Waveform(fr.Scope, w, h), f.Colors.Trace)
		}
	case ModeSpectrum:
		if fr.Scope != nil {
			f.stroke(c, f.Spectrum(fr.Scope, fr.SampleRate, w, h), f.Colors.Trace)
		}
	case ModeSine:
		f.Advance(fr.Dt)
		a, b := f.Sine(fr.Pair, w, h)
		f.stroke(c, a, f.Colors.A)
		f.stroke(c, b, f.Colors.B)
	case ModeHistory:
		a, b := f.HistoryTrace(fr.History, fr.Now, w, h)
		f.stroke(c, a, f.Colors.A)
		f.stroke(c, b, f.Colors.B)
	case ModeLissajous:
		f.AdvanceBeat(fr.Pair, fr.Dt)
		f.stroke(c, f.Lissajous(fr.Pair, w, h), f.Colors.Trace)
	}
}

func (f *Feed) stroke(c Canvas, pts []Point, rgb [3]uint8) {
	for i := 1; i < len(pts); i++ {
		c.Line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, rgb)
	}
}

// Waveform maps time-domain bytes across the width; 128 sits at mid height
func (f *Feed) Waveform(s Scope, w, h int) []Point {
	n := s.Size()
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	data := f.buf[:n]
	s.TimeDomain(data)

	pts := make([]Point, 0, n+1)
	slice := float64(w) / float64(n)
	for i, b := range data {
		v := float64(b) / 128
		pts = append(pts, Point{X: float64(i) * slice, Y: v * float64(h) / 2})
	}
	return append(pts, Point{X: float64(w), Y: float64(h) / 2})
}

// Spectrum maps frequency bins from 0 Hz to twice MaxHz across the width
func (f *Feed) Spectrum(s Scope, sampleRate, w, h int) []Point {
	bins := s.Bins()
	if cap(f.buf) < bins {
		f.buf = make([]byte, bins)
	}
	data := f.buf[:bins]
	s.FrequencyData(data)

	shown := bins
	if sampleRate > 0 {
		binHz := float64(sampleRate) / float64(2*bins)
		shown = int(math.Ceil(2*f.MaxHz/binHz)) + 1
		shown = max(2, min(shown, bins))
	}
	pts := make([]Point, shown)
	for i := 0; i < shown; i++ {
		pts[i] = Point{
			X: float64(i) * float64(w) / float64(shown-1),
			Y: float64(h) * (1 - float64(data[i])/255),
		}
	}
	return pts
}

// Advance moves the synthetic phase on by 2π·SineRate·dt
func (f *Feed) Advance(dt time.Duration) {
	f.phase = math.Mod(f.phase+2*math.Pi*SineRate*dt.Seconds(), 2*math.Pi)
}

// Sine samples sin(2π·f·t + phase) for both channels across the width.
// This is a visual approximation driven by the feed's own phase, not
// the phase of the audio oscillators.
func (f *Feed) Sine(p tone.Pair, w, h int) (a, b []Point) {
	a = make([]Point, w+1)
	b = make([]Point, w+1)
	mid := float64(h) / 2
	amp := float64(h) * 0.4
	for x := 0; x <= w; x++ {
		t := float64(x) / float64(max(w, 1)) * f.SineWindow.Seconds()
		a[x] = Point{X: float64(x), Y: mid - amp*math.Sin(2*math.Pi*p.A*t+f.phase)}
		b[x] = Point{X: float64(x), Y: mid - amp*math.Sin(2*math.Pi*p.B*t+f.phase)}
	}
	return a, b
}

// AdvanceBeat turns the relative phase by 2π·(A-B)·dt
func (f *Feed) AdvanceBeat(p tone.Pair, dt time.Duration) {
	f.beat = math.Mod(f.beat+2*math.Pi*(p.A-p.B)*dt.Seconds(), 2*math.Pi)
}

// Beat returns the relative phase used by ModeLissajous, in radians
func (f *Feed) Beat() float64 { return f.beat }

// lissajousPoints is the resolution of one figure
const lissajousPoints = 256

// Lissajous plots channel A on the x axis against channel B on the y axis
// over one SineWindow. Equal frequencies give a still ellipse whose
// shape follows the relative phase.
func (f *Feed) Lissajous(p tone.Pair, w, h int) []Point {
	cx, cy := float64(w)/2, float64(h)/2
	r := math.Min(cx, cy) * 0.9
	pts := make([]Point, lissajousPoints+1)
	for i := range pts {
		t := float64(i) / lissajousPoints * f.SineWindow.Seconds()
		pts[i] = Point{
			X: cx + r*math.Sin(2*math.Pi*p.A*t),
			Y: cy - r*math.Sin(2*math.Pi*p.B*t+f.beat),
		}
	}
	return pts
}

// HistoryTrace draws each channel as a step line ending at now on the
// right edge
func (f *Feed) HistoryTrace(samples []Sample, now time.Time, w, h int) (a, b []Point) {
	if len(samples) == 0 {
		return nil, nil
	}
	window := f.HistoryWindow.Seconds()
	xAt := func(t time.Time) float64 {
		age := now.Sub(t).Seconds()
		return math.Max(0, float64(w)*(1-age/window))
	}
	yAt := func(hz float64) float64 {
		norm := (tone.Clamp(hz, f.MinHz, f.MaxHz) - f.MinHz) / (f.MaxHz - f.MinHz)
		return float64(h) * (1 - norm)
	}

	for i, s := range samples {
		x := xAt(s.At)
		if i > 0 {
			// hold the previous value until this change
			a = append(a, Point{X: x, Y: a[len(a)-1].Y})
			b = append(b, Point{X: x, Y: b[len(b)-1].Y})
		}
		a = append(a, Point{X: x, Y: yAt(s.Pair.A)})
		b = append(b, Point{X: x, Y: yAt(s.Pair.B)})
	}
	last := samples[len(samples)-1].Pair
	a = append(a, Point{X: float64(w), Y: yAt(last.A)})
	b = append(b, Point{X: float64(w), Y: yAt(last.B)})
	return a, b
}

// Package dsp holds the per-sample building blocks of the tone graph:
// sine oscillators, stereo panners, a ramped gain stage and an analysis tap.
package dsp

import "math"

// Oscillator is a phase-accumulating sine oscillator. Changing the
// frequency keeps the phase continuous, so retuning never clicks.
type Oscillator struct {
	SampleRate float64
	freq       float64
	phase      float64 // 0..1
}

// NewOscillator returns a sine oscillator at freq Hz
func NewOscillator(sampleRate, freq float64) *Oscillator {
	return &Oscillator{SampleRate: sampleRate, freq: freq}
}

// SetFreq changes the frequency without resetting the phase
func (o *Oscillator) SetFreq(freq float64) { o.freq = freq }

// Freq returns the current frequency
func (o *Oscillator) Freq() float64 { return o.freq }

// Next returns the next sample in [-1, 1]
func (o *Oscillator) Next() float64 {
	y := math.Sin(2 * math.Pi * o.phase)
	_, o.phase = math.Modf(o.phase + o.freq/o.SampleRate)
	return y
}

// Panner places a mono signal in the stereo field with equal-power gains.
// Pan -1 is hard left, +1 is hard right.
type Panner struct {
	left, right float64
}

// NewPanner returns a panner fixed at pan
func NewPanner(pan float64) Panner {
	pan = math.Max(-1, math.Min(1, pan))
	x := (pan + 1) / 2
	return Panner{
		left:  math.Cos(x * math.Pi / 2),
		right: math.Sin(x * math.Pi / 2),
	}
}

// Process returns the stereo frame for a mono sample
func (p Panner) Process(x float64) (l, r float64) {
	return x * p.left, x * p.right
}

// Gain is a gain stage whose target is approached by a linear ramp
type Gain struct {
	value     float64
	target    float64
	step      float64
	remaining int
}

// NewGain returns a gain stage resting at v
func NewGain(v float64) *Gain {
	return &Gain{value: v, target: v}
}

// RampTo moves linearly from the current value to target over n samples.
// A new ramp starts from wherever the previous one had got to.
func (g *Gain) RampTo(target float64, n int) {
	g.target = target
	if n <= 0 {
		g.value = target
		g.remaining = 0
		return
	}
	g.step = (target - g.value) / float64(n)
	g.remaining = n
}

// Value returns the gain that the next sample will use
func (g *Gain) Value() float64 { return g.value }

// Target returns the value the gain is ramping towards
func (g *Gain) Target() float64 { return g.target }

// Next advances the ramp by one sample and returns the gain to apply
func (g *Gain) Next() float64 {
	v := g.value
	if g.remaining > 0 {
		g.remaining--
		if g.remaining == 0 {
			g.value = g.target
		} else {
			g.value += g.step
		}
	}
	return v
}

package dsp

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/ktye/fft"
)

// Analyser defaults, matching what browsers use for an analyser node
const (
	DefaultTapSize   = 2048
	MinDecibels      = -100.0
	MaxDecibels      = -30.0
	DefaultSmoothing = 0.8
)

// Tap is a non-destructive analysis point. The audio thread writes mono
// samples into a ring buffer; the render loop reads snapshots from it.
type Tap struct {
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int

	fft       fft.FFT
	window    []float64
	smoothed  []float64
	Smoothing float64
}

// NewTap returns a tap holding the last size samples. size must be a power of two.
func NewTap(size int) (*Tap, error) {
	f, err := fft.New(size)
	if err != nil {
		return nil, err
	}
	window := make([]float64, size)
	// Blackman
	for i := range window {
		x := 2 * math.Pi * float64(i) / float64(size)
		window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return &Tap{
		buf:       make([]float64, size),
		size:      size,
		fft:       f,
		window:    window,
		smoothed:  make([]float64, size/2),
		Smoothing: DefaultSmoothing,
	}, nil
}

// Size returns the number of samples held
func (t *Tap) Size() int { return t.size }

// Bins returns the number of frequency bins
func (t *Tap) Bins() int { return t.size / 2 }

// Write appends samples to the ring buffer
func (t *Tap) Write(samples ...float64) {
	t.mu.Lock()
	for _, s := range samples {
		t.buf[t.pos] = s
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
}

// Reset clears the buffer to silence
func (t *Tap) Reset() {
	t.mu.Lock()
	for i := range t.buf {
		t.buf[i] = 0
	}
	for i := range t.smoothed {
		t.smoothed[i] = 0
	}
	t.pos = 0
	t.mu.Unlock()
}

// Samples copies the most recent len(dst) samples into dst in time order
func (t *Tap) Samples(dst []float64) int {
	n := len(dst)
	if n > t.size {
		n = t.size
	}
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		dst[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return n
}

// TimeDomain fills dst with the latest samples as bytes, 128 meaning silence
func (t *Tap) TimeDomain(dst []byte) int {
	f := make([]float64, len(dst))
	n := t.Samples(f)
	for i := 0; i < n; i++ {
		v := 128 * (1 + f[i])
		dst[i] = byte(math.Max(0, math.Min(255, math.Floor(v))))
	}
	return n
}

// FrequencyData fills dst with smoothed magnitudes as bytes, scaled so
// MinDecibels maps to 0 and MaxDecibels to 255
func (t *Tap) FrequencyData(dst []byte) int {
	x := make([]complex128, t.size)
	f := make([]float64, t.size)
	t.Samples(f)
	for i := range f {
		x[i] = complex(f[i]*t.window[i], 0)
	}
	x = t.fft.Transform(x)

	n := len(dst)
	if n > t.Bins() {
		n = t.Bins()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < t.Bins(); i++ {
		mag := cmplx.Abs(x[i]) / float64(t.size)
		t.smoothed[i] = t.Smoothing*t.smoothed[i] + (1-t.Smoothing)*mag
	}
	for i := 0; i < n; i++ {
		db := MinDecibels
		if t.smoothed[i] > 0 {
			db = 20 * math.Log10(t.smoothed[i])
		}
		v := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
		dst[i] = byte(math.Max(0, math.Min(255, v)))
	}
	return n
}

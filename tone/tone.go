// Package tone holds the two-channel frequency pair and its helpers.
package tone

import (
	"fmt"
	"math"
)

// Channel identifies one of the two stereo outputs
type Channel int

const (
	ChannelA Channel = iota // left
	ChannelB                // right
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// Pair is the instantaneous target tone, one frequency per channel (Hz)
type Pair struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Get returns the frequency of one channel
func (p Pair) Get(c Channel) float64 {
	if c == ChannelB {
		return p.B
	}
	return p.A
}

// With returns a copy of p with one channel replaced
func (p Pair) With(c Channel, hz float64) Pair {
	if c == ChannelB {
		p.B = hz
	} else {
		p.A = hz
	}
	return p
}

// Valid reports whether both frequencies are finite and strictly positive
func (p Pair) Valid() bool {
	return ValidHz(p.A) && ValidHz(p.B)
}

func (p Pair) String() string {
	return fmt.Sprintf("{%g,%g}", p.A, p.B)
}

// ValidHz reports whether hz is usable as an oscillator frequency
func ValidHz(hz float64) bool {
	return hz > 0 && !math.IsInf(hz, 0) && !math.IsNaN(hz)
}

// Clamp limits hz to [lo, hi]
func Clamp(hz, lo, hi float64) float64 {
	if hz < lo {
		return lo
	}
	if hz > hi {
		return hi
	}
	return hz
}

// NoteToHz converts a MIDI note number to equal-tempered Hz (A4 = 440)
func NoteToHz(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}

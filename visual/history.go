package visual

import (
	"sync"
	"time"

	"go-dualtone/tone"
)

// Sample is the tone that became current at At
type Sample struct {
	At   time.Time
	Pair tone.Pair
}

// History is a bounded, time-ordered record of tone changes. The player
// appends to it; the feed reads snapshots.
type History struct {
	mu      sync.Mutex
	samples []Sample
	max     int
	window  time.Duration
}

// NewHistory keeps at most max samples and drops anything older than
// window, except the sample that was current when the window began
func NewHistory(max int, window time.Duration) *History {
	if max < 2 {
		max = 2
	}
	return &History{max: max, window: window}
}

// Window returns the span of time the history covers
func (h *History) Window() time.Duration { return h.window }

// Add records that p became current at at. Out-of-order samples are dropped.
func (h *History) Add(at time.Time, p tone.Pair) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.samples); n > 0 && at.Before(h.samples[n-1].At) {
		return
	}
	h.samples = append(h.samples, Sample{At: at, Pair: p})

	cut := 0
	start := at.Add(-h.window)
	for cut+1 < len(h.samples) && !h.samples[cut+1].At.After(start) {
		cut++
	}
	if over := len(h.samples) - h.max; over > cut {
		cut = over
	}
	if cut > 0 {
		h.samples = append(h.samples[:0], h.samples[cut:]...)
	}
}

// Snapshot returns a copy of the samples, oldest first
func (h *History) Snapshot() []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Reset forgets everything
func (h *History) Reset() {
	h.mu.Lock()
	h.samples = h.samples[:0]
	h.mu.Unlock()
}

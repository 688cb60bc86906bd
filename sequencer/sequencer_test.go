package sequencer

import (
	"sync"
	"testing"
	"time"

	"go-dualtone/pattern"
	"go-dualtone/tone"
)

type recorder struct {
	pairs []tone.Pair
}

func (r *recorder) Tune(p tone.Pair) { r.pairs = append(r.pairs, p) }

func (r *recorder) last() tone.Pair {
	if len(r.pairs) == 0 {
		return tone.Pair{}
	}
	return r.pairs[len(r.pairs)-1]
}

func mustParse(t *testing.T, text string) pattern.Pattern {
	t.Helper()
	p, err := pattern.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return p
}

func TestSequencerCycles(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	s := New(clock, rec)
	s.Begin(mustParse(t, `{"pattern": [[100,90,100],[90,100,50]]}`))

	if rec.last() != (tone.Pair{A: 100, B: 90}) {
		t.Fatalf("after begin = %v, want {100,90}", rec.last())
	}
	clock.Advance(99 * time.Millisecond)
	if rec.last() != (tone.Pair{A: 100, B: 90}) {
		t.Fatalf("step changed early: %v", rec.last())
	}
	clock.Advance(1 * time.Millisecond)
	if rec.last() != (tone.Pair{A: 90, B: 100}) {
		t.Fatalf("after 100ms = %v, want {90,100}", rec.last())
	}
	clock.Advance(50 * time.Millisecond)
	if rec.last() != (tone.Pair{A: 100, B: 90}) {
		t.Fatalf("after 150ms = %v, want wrap to {100,90}", rec.last())
	}
	if idx, n := s.Position(); idx != 0 || n != 2 {
		t.Errorf("Position = %d/%d, want 0/2", idx, n)
	}
	if len(rec.pairs) != 3 {
		t.Errorf("tuned %d times, want 3", len(rec.pairs))
	}
}

func TestSequencerLongRun(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	s := New(clock, rec)
	p := mustParse(t, pattern.DefaultText)
	s.Begin(p)

	clock.Advance(3 * p.Cycle())
	// three full cycles plus the first step of the fourth
	if len(rec.pairs) != 3*p.Len()+1 {
		t.Errorf("tuned %d times, want %d", len(rec.pairs), 3*p.Len()+1)
	}
	for i, got := range rec.pairs {
		if want := p.At(i).Pair; got != want {
			t.Fatalf("step %d = %v, want %v", i, got, want)
		}
	}
	if clock.Pending() != 1 {
		t.Errorf("%d timers armed, want 1", clock.Pending())
	}
}

func TestSequencerCancel(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	s := New(clock, rec)
	s.Begin(mustParse(t, `{"pattern": [[100,90,100],[90,100,50]]}`))
	s.Cancel()

	clock.Advance(time.Second)
	if len(rec.pairs) != 1 {
		t.Errorf("tuned %d times after cancel, want 1", len(rec.pairs))
	}
	if s.Running() || clock.Pending() != 0 {
		t.Error("timer still armed after cancel")
	}

	// idempotent
	s.Cancel()
	s.Cancel()
}

func TestSequencerBeginCancelsPriorRun(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	s := New(clock, rec)
	s.Begin(mustParse(t, `{"pattern": [[100,90,100],[90,100,50]]}`))
	s.Begin(mustParse(t, `{"pattern": [[300,310,30]]}`))

	if clock.Pending() != 1 {
		t.Fatalf("%d timers armed, want 1", clock.Pending())
	}
	clock.Advance(100 * time.Millisecond)
	for _, p := range rec.pairs[1:] {
		if p != (tone.Pair{A: 300, B: 310}) {
			t.Fatalf("old run leaked a step: %v", p)
		}
	}
}

// leakyClock models a timer that has already fired when Stop is called:
// Stop reports failure and the callback still runs later.
type leakyClock struct {
	pending []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(d time.Duration, f func()) Timer {
	c.pending = append(c.pending, f)
	return leakyTimer{}
}

func (c *leakyClock) fireAll() {
	fs := c.pending
	c.pending = nil
	for _, f := range fs {
		f()
	}
}

func TestSequencerStaleCallbackIgnored(t *testing.T) {
	clock := &leakyClock{}
	rec := &recorder{}
	s := New(clock, rec)
	s.Begin(mustParse(t, `{"pattern": [[100,90,100],[90,100,50]]}`))
	s.Cancel()

	clock.fireAll()
	if len(rec.pairs) != 1 || rec.last() != (tone.Pair{A: 100, B: 90}) {
		t.Errorf("stale callback changed the tone: %v", rec.pairs)
	}

	// a callback from a previous run must not advance a new one
	s.Begin(mustParse(t, `{"pattern": [[1,2,10],[3,4,10]]}`))
	stale := clock.pending[0]
	s.Begin(mustParse(t, `{"pattern": [[5,6,10],[7,8,10]]}`))
	stale()
	if rec.last() != (tone.Pair{A: 5, B: 6}) {
		t.Errorf("stale callback advanced the new run: %v", rec.last())
	}
}

func TestSequencerQueueWaitsForStepBoundary(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	s := New(clock, rec)
	s.Begin(mustParse(t, `{"pattern": [[100,90,100],[90,100,50]]}`))

	clock.Advance(40 * time.Millisecond)
	s.Queue(mustParse(t, `{"pattern": [[200,210,20],[220,230,20]]}`))
	if rec.last() != (tone.Pair{A: 100, B: 90}) {
		t.Fatal("queue interrupted the in-flight step")
	}
	clock.Advance(60 * time.Millisecond)
	if rec.last() != (tone.Pair{A: 200, B: 210}) {
		t.Fatalf("after boundary = %v, want first step of new pattern", rec.last())
	}
	clock.Advance(20 * time.Millisecond)
	if rec.last() != (tone.Pair{A: 220, B: 230}) {
		t.Fatalf("new pattern did not advance: %v", rec.last())
	}
}

func TestSequencerQueueIdleIsNoop(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	s := New(clock, rec)
	s.Queue(mustParse(t, `{"pattern": [[200,210,20]]}`))
	clock.Advance(time.Second)
	if len(rec.pairs) != 0 || s.Running() {
		t.Error("Queue started an idle sequencer")
	}
}

func TestSequencerOnStep(t *testing.T) {
	clock := NewManualClock()
	s := New(clock, TunerFunc(func(tone.Pair) {}))
	var steps []int
	s.OnStep = func(i, n int) { steps = append(steps, i) }
	s.Begin(mustParse(t, `{"pattern": [[1,1,10],[2,2,10],[3,3,10]]}`))
	clock.Advance(40 * time.Millisecond)
	want := []int{0, 1, 2, 0, 1}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps = %v, want %v", steps, want)
		}
	}
}

func TestSerialClockHoldsLock(t *testing.T) {
	var mu sync.Mutex
	clock := NewManualClock()
	locked := false
	SerialClock(clock, &mu).AfterFunc(time.Millisecond, func() {
		locked = !mu.TryLock()
	})
	clock.Advance(time.Millisecond)
	if !locked {
		t.Error("callback ran without the owner's lock")
	}
}

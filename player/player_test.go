package player

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go-dualtone/graph"
	"go-dualtone/pattern"
	"go-dualtone/sequencer"
	"go-dualtone/tone"
)

type fakeStream struct{ closed int }

func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

type fakeSink struct {
	err     error
	streams []*fakeStream
}

func (f *fakeSink) Play(sampleRate int, src graph.Source) (graph.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeStream{}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeSink) open() int {
	n := 0
	for _, s := range f.streams {
		if s.closed == 0 {
			n++
		}
	}
	return n
}

const twoSteps = `{"pattern": [[100,90,100],[90,100,50]]}`

type rig struct {
	c     *Controller
	g     *graph.Graph
	sink  *fakeSink
	clock *sequencer.ManualClock
}

func newRig(t *testing.T, opts Options) *rig {
	t.Helper()
	sink := &fakeSink{}
	g := graph.New(sink, graph.Options{SampleRate: 1000, RampWindow: 100 * time.Millisecond, TapSize: 64})
	clock := sequencer.NewManualClock()
	opts.Clock = clock
	base := time.Unix(1000, 0)
	opts.Now = func() time.Time { return base.Add(clock.Now()) }
	c := New(g, opts)
	t.Cleanup(func() { c.Close() })
	return &rig{c: c, g: g, sink: sink, clock: clock}
}

// checkSession verifies that a graph session exists iff playing
func (r *rig) checkSession(t *testing.T) {
	t.Helper()
	st := r.c.State()
	live := r.g.Live() != nil
	if live != (st.Playback == Playing) {
		t.Fatalf("playback %v but live session = %v", st.Playback, live)
	}
	if r.sink.open() > 1 {
		t.Fatalf("%d streams open at once", r.sink.open())
	}
	wantTimer := st.Playback == Playing && st.Mode == Pattern
	if got := r.clock.Pending() > 0; got != wantTimer {
		t.Fatalf("timer armed = %v in %v/%v", got, st.Playback, st.Mode)
	}
}

func TestInitialState(t *testing.T) {
	r := newRig(t, Options{})
	st := r.c.State()
	if st.Playback != Stopped || st.Mode != Manual {
		t.Errorf("initial = %v/%v, want stopped/manual", st.Playback, st.Mode)
	}
	if st.Pair != (tone.Pair{A: 100, B: 100}) || st.Volume != 0 {
		t.Errorf("initial pair %v volume %v", st.Pair, st.Volume)
	}
	if st.Steps != 12 || st.PatternErr != nil {
		t.Errorf("default pattern: steps=%d err=%v", st.Steps, st.PatternErr)
	}
	r.checkSession(t)
}

func TestManualPlayPauseCycles(t *testing.T) {
	r := newRig(t, Options{Pair: tone.Pair{A: 120, B: 130}, Volume: 0.5})
	for i := 0; i < 5; i++ {
		if err := r.c.TogglePlay(); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
		r.checkSession(t)
		if got := r.g.Live().Pair(); got != (tone.Pair{A: 120, B: 130}) {
			t.Fatalf("session pair = %v", got)
		}
		if err := r.c.TogglePlay(); err != nil {
			t.Fatalf("pause %d: %v", i, err)
		}
		r.checkSession(t)
	}
	if len(r.sink.streams) != 5 {
		t.Errorf("opened %d streams, want 5", len(r.sink.streams))
	}
	for i, s := range r.sink.streams {
		if s.closed != 1 {
			t.Errorf("stream %d closed %d times", i, s.closed)
		}
	}
}

func TestPatternPlaybackCycles(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps, Mode: Pattern, Volume: 0.5})
	if err := r.c.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	r.checkSession(t)

	steps := []struct {
		advance time.Duration
		want    tone.Pair
		index   int
	}{
		{0, tone.Pair{A: 100, B: 90}, 0},
		{100 * time.Millisecond, tone.Pair{A: 90, B: 100}, 1},
		{50 * time.Millisecond, tone.Pair{A: 100, B: 90}, 0},
	}
	for _, s := range steps {
		r.clock.Advance(s.advance)
		st := r.c.State()
		if st.Pair != s.want {
			t.Fatalf("after %v: pair %v, want %v", r.clock.Now(), st.Pair, s.want)
		}
		if got := r.g.Live().Pair(); got != s.want {
			t.Fatalf("after %v: oscillators at %v, want %v", r.clock.Now(), got, s.want)
		}
		if st.StepIndex != s.index || st.StepCount != 2 {
			t.Fatalf("after %v: step %d/%d", r.clock.Now(), st.StepIndex, st.StepCount)
		}
	}
	if len(r.sink.streams) != 1 {
		t.Error("pattern steps rebuilt the graph")
	}
}

func TestStopCancelsSequencer(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps, Mode: Pattern})
	r.c.TogglePlay()
	r.clock.Advance(100 * time.Millisecond)
	r.c.TogglePlay()
	r.checkSession(t)

	before := r.c.State().Pair
	r.clock.Advance(time.Second)
	if got := r.c.State().Pair; got != before {
		t.Errorf("pair changed after stop: %v -> %v", before, got)
	}
}

func TestModeSwitchWhilePlayingStops(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps})
	r.c.TogglePlay()
	session := r.g.Live()

	if err := r.c.ToggleMode(); err != nil {
		t.Fatal(err)
	}
	st := r.c.State()
	if st.Playback != Stopped || st.Mode != Pattern {
		t.Fatalf("after toggle = %v/%v, want stopped/pattern", st.Playback, st.Mode)
	}
	if session.Running() {
		t.Error("old session still running")
	}
	r.checkSession(t)

	r.c.TogglePlay()
	r.checkSession(t)
	r.c.ToggleMode()
	st = r.c.State()
	if st.Playback != Stopped || st.Mode != Manual {
		t.Fatalf("after toggle = %v/%v, want stopped/manual", st.Playback, st.Mode)
	}
	r.checkSession(t)
}

func TestInvalidEditKeepsPlaying(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps, Mode: Pattern})
	r.c.TogglePlay()

	err := r.c.EditPattern(`{"pattern": [[100, 90`)
	if !pattern.IsKind(err, pattern.Malformed) {
		t.Fatalf("EditPattern = %v, want malformed", err)
	}
	if st := r.c.State(); st.PatternErr == nil || st.Steps != 2 {
		t.Errorf("state after bad edit: %+v", st)
	}

	r.clock.Advance(100 * time.Millisecond)
	if got := r.c.State().Pair; got != (tone.Pair{A: 90, B: 100}) {
		t.Errorf("sequencer disturbed by bad edit: %v", got)
	}
	r.checkSession(t)

	// a bad pattern blocks starting a new pattern session
	r.c.TogglePlay()
	if err := r.c.TogglePlay(); !errors.Is(err, ErrNoPattern) {
		t.Errorf("TogglePlay = %v, want ErrNoPattern", err)
	}
	r.checkSession(t)

	// fixing the text clears the error
	if err := r.c.EditPattern(twoSteps); err != nil {
		t.Fatal(err)
	}
	if err := r.c.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	r.checkSession(t)
}

func TestEnteringPatternModeReparses(t *testing.T) {
	r := newRig(t, Options{})
	r.c.EditPattern(`{"pattern": []}`)
	err := r.c.ToggleMode()
	if !pattern.IsKind(err, pattern.Empty) {
		t.Fatalf("ToggleMode = %v, want empty pattern error", err)
	}
	if r.c.State().Mode != Pattern {
		t.Error("mode did not switch")
	}
}

func TestValidEditSwitchesAtBoundary(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps, Mode: Pattern})
	r.c.TogglePlay()
	r.clock.Advance(30 * time.Millisecond)

	if err := r.c.EditPattern(`{"pattern": [[300,310,40],[320,330,40]]}`); err != nil {
		t.Fatal(err)
	}
	if got := r.c.State().Pair; got != (tone.Pair{A: 100, B: 90}) {
		t.Fatalf("edit interrupted the step: %v", got)
	}
	r.clock.Advance(70 * time.Millisecond)
	if st := r.c.State(); st.Pair != (tone.Pair{A: 300, B: 310}) || st.StepIndex != 0 || st.StepCount != 2 {
		t.Fatalf("after boundary: %+v", st)
	}
	r.checkSession(t)
}

func TestManualFrequencyEdits(t *testing.T) {
	r := newRig(t, Options{MinHz: 20, MaxHz: 500})
	if err := r.c.SetFrequency(tone.ChannelA, 150); err != nil {
		t.Fatal(err)
	}
	r.c.TogglePlay()
	if err := r.c.SetFrequency(tone.ChannelB, 9000); err != nil {
		t.Fatal(err)
	}
	want := tone.Pair{A: 150, B: 500}
	if got := r.g.Live().Pair(); got != want {
		t.Errorf("oscillators at %v, want %v", got, want)
	}
	r.c.AdjustFrequency(tone.ChannelA, -1000)
	if got := r.c.State().Pair.A; got != 20 {
		t.Errorf("A = %v, want clamped to 20", got)
	}

	r.c.ToggleMode()
	if err := r.c.SetFrequency(tone.ChannelA, 200); !errors.Is(err, ErrManualOnly) {
		t.Errorf("SetFrequency in pattern mode = %v", err)
	}
}

func TestConcurrentNudgesAccumulate(t *testing.T) {
	r := newRig(t, Options{Pair: tone.Pair{A: 100, B: 100}, MinHz: 20, MaxHz: 500})
	r.c.TogglePlay()

	const workers, nudges = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < nudges; n++ {
				r.c.AdjustFrequency(tone.ChannelA, 1)
				r.c.AdjustVolume(0.001)
			}
		}()
	}
	wg.Wait()

	st := r.c.State()
	if st.Pair.A != 100+workers*nudges {
		t.Errorf("A = %v, want %v", st.Pair.A, 100+workers*nudges)
	}
	if want := 0.001 * workers * nudges; math.Abs(st.Volume-want) > 1e-9 {
		t.Errorf("Volume = %v, want %v", st.Volume, want)
	}
}

func TestVolumeAndMute(t *testing.T) {
	r := newRig(t, Options{Volume: 0.5})
	r.c.SetVolume(0.8)
	r.c.TogglePlay()
	if _, target := r.g.Live().Gain(); target != 0.8 {
		t.Errorf("start target = %v, want 0.8", target)
	}

	r.c.ToggleMute()
	session := r.g.Live()
	if _, target := session.Gain(); target != 0 {
		t.Errorf("muted target = %v", target)
	}
	if st := r.c.State(); st.Volume != 0.8 || !st.Muted || st.Playback != Playing {
		t.Errorf("mute state: %+v", st)
	}
	if _, err := session.Tap(); err != nil {
		t.Error("mute detached the tap")
	}

	r.c.ToggleMute()
	r.c.AdjustVolume(0.5)
	if _, target := session.Gain(); target != 1 {
		t.Errorf("target = %v, want clamped to 1", target)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	r := newRig(t, Options{})
	r.sink.err = errors.New("audio device busy")

	err := r.c.TogglePlay()
	if !errors.Is(err, graph.ErrDeviceUnavailable) {
		t.Fatalf("TogglePlay = %v", err)
	}
	st := r.c.State()
	if st.Playback != Stopped || !errors.Is(st.Err, graph.ErrDeviceUnavailable) {
		t.Errorf("state = %+v", st)
	}
	r.checkSession(t)

	r.sink.err = nil
	if err := r.c.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	if r.c.State().Err != nil {
		t.Error("error not cleared by a successful start")
	}
}

func TestCloseFromPatternPlaying(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps, Mode: Pattern})
	r.c.TogglePlay()

	if err := r.c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.c.Close(); err != nil {
		t.Fatal(err)
	}
	if r.sink.streams[0].closed != 1 {
		t.Errorf("stream closed %d times", r.sink.streams[0].closed)
	}
	if r.clock.Pending() != 0 || r.g.Live() != nil {
		t.Error("close left the sequencer or graph running")
	}
	if err := r.c.TogglePlay(); !errors.Is(err, ErrClosed) {
		t.Errorf("TogglePlay after close = %v", err)
	}
}

func TestHistoryAndFrame(t *testing.T) {
	r := newRig(t, Options{PatternText: twoSteps, Mode: Pattern})
	r.c.TogglePlay()
	r.clock.Advance(150 * time.Millisecond)

	got := r.c.History().Snapshot()
	// initial manual pair, then three steps
	if len(got) != 4 {
		t.Fatalf("history has %d samples, want 4", len(got))
	}
	if d := got[3].At.Sub(got[1].At); d != 150*time.Millisecond {
		t.Errorf("history spacing = %v", d)
	}

	fr := r.c.Frame(time.Second / 30)
	if !fr.Playing || fr.Scope == nil || fr.SampleRate != 1000 {
		t.Errorf("frame = %+v", fr)
	}
	r.c.TogglePlay()
	if fr := r.c.Frame(0); fr.Playing || fr.Scope != nil {
		t.Error("stopped frame still has a scope")
	}
}

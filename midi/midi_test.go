package midi

import (
	"errors"
	"math"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-dualtone/config"
	"go-dualtone/tone"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		msg  gomidi.Message
		want Event
		ok   bool
	}{
		{"note on", gomidi.NoteOn(1, 69, 100), Event{Type: NoteOn, Channel: 1, Data1: 69, Data2: 100}, true},
		{"note on zero velocity", gomidi.NoteOn(0, 60, 0), Event{}, false},
		{"note off", gomidi.NoteOff(0, 60), Event{}, false},
		{"cc", gomidi.ControlChange(0, 7, 64), Event{Type: CC, Channel: 0, Data1: 7, Data2: 64}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.msg)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Decode = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func testMapper() Mapper {
	cfg := config.DefaultConfig()
	return NewMapper(cfg.MIDI, cfg.Frequency)
}

func TestMapNotes(t *testing.T) {
	m := testMapper()

	in, ok := m.Map(Event{Type: NoteOn, Channel: 0, Data1: 69, Data2: 90})
	if !ok || in.Kind != IntentFrequency || in.Channel != tone.ChannelA || in.Value != 440 {
		t.Errorf("channel 1 note = %v, %v", in, ok)
	}
	in, ok = m.Map(Event{Type: NoteOn, Channel: 1, Data1: 57, Data2: 90})
	if !ok || in.Channel != tone.ChannelB || math.Abs(in.Value-220) > 1e-9 {
		t.Errorf("channel 2 note = %v, %v", in, ok)
	}
	if _, ok := m.Map(Event{Type: NoteOn, Channel: 9, Data1: 60, Data2: 90}); ok {
		t.Error("unassigned channel mapped")
	}
}

func TestMapControllers(t *testing.T) {
	m := testMapper()
	tests := []struct {
		ev   Event
		want Intent
	}{
		{Event{Type: CC, Data1: 20, Data2: 0}, Intent{Kind: IntentFrequency, Channel: tone.ChannelA, Value: 20}},
		{Event{Type: CC, Data1: 21, Data2: 127}, Intent{Kind: IntentFrequency, Channel: tone.ChannelB, Value: 500}},
		{Event{Type: CC, Data1: 7, Data2: 127}, Intent{Kind: IntentVolume, Value: 1}},
		{Event{Type: CC, Data1: 7, Data2: 0}, Intent{Kind: IntentVolume, Value: 0}},
	}
	for _, tt := range tests {
		got, ok := m.Map(tt.ev)
		if !ok || got != tt.want {
			t.Errorf("Map(%v) = %v, %v; want %v", tt.ev, got, ok, tt.want)
		}
	}
	if _, ok := m.Map(Event{Type: CC, Data1: 64, Data2: 127}); ok {
		t.Error("unassigned controller mapped")
	}
}

type fakeTarget struct {
	freqs  map[tone.Channel]float64
	volume float64
	err    error
}

func (f *fakeTarget) SetFrequency(ch tone.Channel, hz float64) error {
	if f.err != nil {
		return f.err
	}
	f.freqs[ch] = hz
	return nil
}

func (f *fakeTarget) SetVolume(v float64) error {
	f.volume = v
	return nil
}

func TestRoute(t *testing.T) {
	target := &fakeTarget{freqs: map[tone.Channel]float64{}}
	events := make(chan Event, 4)
	events <- Event{Type: NoteOn, Channel: 0, Data1: 69, Data2: 1}
	events <- Event{Type: CC, Data1: 7, Data2: 127}
	events <- Event{Type: CC, Data1: 64, Data2: 1}
	close(events)

	Route(events, testMapper(), target)
	if target.freqs[tone.ChannelA] != 440 || target.volume != 1 {
		t.Errorf("target = %+v", target)
	}
}

func TestApplyReturnsTargetError(t *testing.T) {
	errManual := errors.New("manual only")
	target := &fakeTarget{freqs: map[tone.Channel]float64{}, err: errManual}
	err := testMapper().Apply(Event{Type: NoteOn, Data1: 60, Data2: 1}, target)
	if !errors.Is(err, errManual) {
		t.Errorf("Apply = %v", err)
	}
}

func TestMatches(t *testing.T) {
	if !Matches("Arturia KeyStep 32", "") {
		t.Error("empty filter should match")
	}
	if !Matches("Arturia KeyStep 32", "keystep") {
		t.Error("filter should be case-insensitive")
	}
	if Matches("Midi Through Port-0", "keystep") {
		t.Error("unrelated port matched")
	}
}

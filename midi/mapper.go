package midi

import (
	"fmt"

	"go-dualtone/config"
	"go-dualtone/debug"
	"go-dualtone/tone"
)

// IntentKind is what a mapped event asks the player to do
type IntentKind int

const (
	IntentFrequency IntentKind = iota
	IntentVolume
)

// Intent is a player action derived from a MIDI event
type Intent struct {
	Kind    IntentKind
	Channel tone.Channel // for IntentFrequency
	Value   float64      // Hz or volume 0..1
}

func (in Intent) String() string {
	if in.Kind == IntentVolume {
		return fmt.Sprintf("volume %.2f", in.Value)
	}
	return fmt.Sprintf("%s = %.2f Hz", in.Channel, in.Value)
}

// Target receives mapped intents. *player.Controller satisfies it.
type Target interface {
	SetFrequency(ch tone.Channel, hz float64) error
	SetVolume(v float64) error
}

// Mapper turns note-on and CC events into intents. Channels are 0-based.
type Mapper struct {
	ChannelA, ChannelB uint8
	CCA, CCB, CCVolume uint8
	MinHz, MaxHz       float64
}

// NewMapper builds a mapper from the MIDI settings (1-based channels)
func NewMapper(m config.MIDIConfig, f config.FrequencyConfig) Mapper {
	return Mapper{
		ChannelA: uint8(m.ChannelA - 1),
		ChannelB: uint8(m.ChannelB - 1),
		CCA:      uint8(m.CCA),
		CCB:      uint8(m.CCB),
		CCVolume: uint8(m.CCVolume),
		MinHz:    f.Min,
		MaxHz:    f.Max,
	}
}

// Map returns the intent for ev, if it has one. A note-on tunes the
// channel its MIDI channel is assigned to; the frequency CCs sweep the
// slider range and the volume CC sweeps 0..1.
func (m Mapper) Map(ev Event) (Intent, bool) {
	switch ev.Type {
	case NoteOn:
		hz := tone.NoteToHz(ev.Data1)
		switch ev.Channel {
		case m.ChannelA:
			return Intent{Kind: IntentFrequency, Channel: tone.ChannelA, Value: hz}, true
		case m.ChannelB:
			return Intent{Kind: IntentFrequency, Channel: tone.ChannelB, Value: hz}, true
		}
	case CC:
		frac := float64(ev.Data2) / 127
		switch ev.Data1 {
		case m.CCA:
			return Intent{Kind: IntentFrequency, Channel: tone.ChannelA, Value: m.MinHz + frac*(m.MaxHz-m.MinHz)}, true
		case m.CCB:
			return Intent{Kind: IntentFrequency, Channel: tone.ChannelB, Value: m.MinHz + frac*(m.MaxHz-m.MinHz)}, true
		case m.CCVolume:
			return Intent{Kind: IntentVolume, Value: frac}, true
		}
	}
	return Intent{}, false
}

// Apply sends the intent for ev to t. Events without a mapping are ignored.
func (m Mapper) Apply(ev Event, t Target) error {
	in, ok := m.Map(ev)
	if !ok {
		return nil
	}
	if in.Kind == IntentVolume {
		return t.SetVolume(in.Value)
	}
	return t.SetFrequency(in.Channel, in.Value)
}

// Route applies every event from events until the channel closes.
// Rejected intents (say, a note while in pattern mode) are logged and dropped.
func Route(events <-chan Event, m Mapper, t Target) {
	for ev := range events {
		if err := m.Apply(ev, t); err != nil {
			debug.Log("midi", "%v: %v", ev, err)
		}
	}
}

package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn uint8 = 0x90
	CC     uint8 = 0xB0
)

// Event is a decoded channel message from an input port
type Event struct {
	Type    uint8 // NoteOn or CC
	Channel uint8 // 0-15
	Data1   uint8 // note or controller number
	Data2   uint8 // velocity or value
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("ch%d note %d vel %d", e.Channel+1, e.Data1, e.Data2)
	case CC:
		return fmt.Sprintf("ch%d cc %d = %d", e.Channel+1, e.Data1, e.Data2)
	}
	return fmt.Sprintf("ch%d %#x %d %d", e.Channel+1, e.Type, e.Data1, e.Data2)
}

// Decode keeps the messages the player reacts to: note-on with a non-zero
// velocity and control change.
func Decode(msg gomidi.Message) (Event, bool) {
	var channel, a, b uint8
	switch {
	case msg.GetNoteOn(&channel, &a, &b):
		if b == 0 {
			return Event{}, false
		}
		return Event{Type: NoteOn, Channel: channel, Data1: a, Data2: b}, true
	case msg.GetControlChange(&channel, &a, &b):
		return Event{Type: CC, Channel: channel, Data1: a, Data2: b}, true
	}
	return Event{}, false
}

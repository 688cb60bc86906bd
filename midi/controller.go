package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-dualtone/debug"
)

// Controller is a MIDI input device
type Controller interface {
	ID() string
	Events() <-chan Event
	Close() error
}

// InputController listens to one input port
type InputController struct {
	id       string
	inPort   drivers.In
	stopFunc func()

	mu     sync.Mutex
	closed bool
	events chan Event
}

// NewInputController opens inPort and starts decoding its messages
func NewInputController(id string, inPort drivers.In) (*InputController, error) {
	ic := &InputController{
		id:     id,
		inPort: inPort,
		events: make(chan Event, 32),
	}

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		if ev, ok := Decode(msg); ok {
			ic.deliver(ev)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	ic.stopFunc = stop
	debug.Log("midi", "listening on %s", id)
	return ic, nil
}

// deliver drops events when the reader falls behind
func (ic *InputController) deliver(ev Event) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.closed {
		return
	}
	select {
	case ic.events <- ev:
	default:
		debug.LogEvery(20, "midi", "dropped %v", ev)
	}
}

func (ic *InputController) ID() string {
	return ic.id
}

func (ic *InputController) Events() <-chan Event {
	return ic.events
}

func (ic *InputController) Close() error {
	if ic.stopFunc != nil {
		ic.stopFunc()
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if !ic.closed {
		ic.closed = true
		close(ic.events)
	}
	return nil
}

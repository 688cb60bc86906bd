package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-dualtone/config"
	dtmidi "go-dualtone/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "listen":
		filter := ""
		if len(os.Args) > 2 {
			filter = os.Args[2]
		}
		listen(filter)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List all MIDI input ports")
	fmt.Println("  listen [filter] - Print events and the player action each maps to")
	fmt.Println("  poll            - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- midi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		for i, p := range ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI service is not answering.")
	}
}

// listen runs the same device manager and mapper as the player
func listen(filter string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if filter == "" {
		filter = cfg.MIDI.PortName
	}
	mapper := dtmidi.NewMapper(cfg.MIDI, cfg.Frequency)
	fmt.Printf("Channel A: midi ch %d, cc %d\n", cfg.MIDI.ChannelA, cfg.MIDI.CCA)
	fmt.Printf("Channel B: midi ch %d, cc %d\n", cfg.MIDI.ChannelB, cfg.MIDI.CCB)
	fmt.Printf("Volume:    cc %d\n", cfg.MIDI.CCVolume)
	fmt.Println("Listening. Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dm := dtmidi.NewDeviceManager(filter)
	go dm.Run(ctx)

	for event := range dm.Events() {
		switch event.Type {
		case dtmidi.DeviceConnected:
			fmt.Printf("[%s] connected: %s\n", time.Now().Format("15:04:05"), event.ID)
			go printEvents(event.ID, event.Controller.Events(), mapper)
		case dtmidi.DeviceDisconnected:
			fmt.Printf("[%s] disconnected: %s\n", time.Now().Format("15:04:05"), event.ID)
		}
	}
}

func printEvents(id string, events <-chan dtmidi.Event, mapper dtmidi.Mapper) {
	for ev := range events {
		if in, ok := mapper.Map(ev); ok {
			fmt.Printf("  %s: %v -> %v\n", id, ev, in)
		} else {
			fmt.Printf("  %s: %v (unmapped)\n", id, ev)
		}
	}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	last := ""

	for {
		var names []string
		for _, p := range midi.GetInPorts() {
			names = append(names, p.String())
		}

		current := strings.Join(names, ",")
		if current != last {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", names)
			last = current
		}

		time.Sleep(2 * time.Second)
	}
}

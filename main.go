package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mitchellh/go-homedir"

	"go-dualtone/config"
	"go-dualtone/debug"
	"go-dualtone/device"
	"go-dualtone/graph"
	"go-dualtone/midi"
	"go-dualtone/player"
	"go-dualtone/theme"
	"go-dualtone/tui"
	"go-dualtone/visual"
)

type flags struct {
	config  string
	out     string
	pattern string
	mode    string
	debug   bool
	midi    bool
	save    bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "config file (default ~/.config/go-dualtone/config.json)")
	flag.StringVar(&f.out, "out", "", "output: device, null or wav:<path>")
	flag.StringVar(&f.pattern, "pattern", "", "file holding the initial pattern text")
	flag.StringVar(&f.mode, "mode", "", "start in manual or pattern mode")
	flag.BoolVar(&f.debug, "debug", false, "write a debug log to "+debug.DefaultPath())
	flag.BoolVar(&f.midi, "midi", false, "take frequencies and volume from MIDI input")
	flag.BoolVar(&f.save, "save", false, "write the effective settings to the config file and exit")
	flag.Parse()

	if err := run(f); err != nil {
		if issue := fmsg.GetIssue(err); issue != "" {
			fmt.Fprintf(os.Stderr, "go-dualtone: %s\n  %v\n", issue, err)
		} else {
			fmt.Fprintf(os.Stderr, "go-dualtone: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(f flags) error {
	if f.debug {
		if err := debug.Enable(""); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if f.save {
		if f.config != "" {
			return cfg.SaveFile(f.config)
		}
		return cfg.Save()
	}

	th := theme.New(nil)
	if cfg.UI.Palette != "" {
		palette, err := loadPalette(cfg.UI.Palette)
		if err != nil {
			return fault.Wrap(err, fmsg.WithDesc("load palette",
				"The palette in ui.palette could not be read. Remove the setting to use the built-in colours."))
		}
		th = theme.New(palette)
	}

	var text string
	if f.pattern != "" {
		data, err := readFile(f.pattern)
		if err != nil {
			return fault.Wrap(err, fmsg.WithDesc("read pattern",
				"The -pattern file could not be read."))
		}
		text = string(data)
	}

	sink, err := device.Open(cfg.Audio.Output)
	if err != nil {
		return fault.Wrap(err, fmsg.WithDesc("open output",
			"Use -out device, -out null or -out wav:<path>."))
	}
	debug.Log("device", "output %s (%s)", cfg.Audio.Output, device.Name(sink))

	g := graph.New(sink, graph.Options{
		SampleRate: cfg.Audio.SampleRate,
		RampWindow: cfg.RampWindow(),
		TapSize:    cfg.Audio.TapSize,
	})

	mode := player.Manual
	if cfg.UI.StartInPattern {
		mode = player.Pattern
	}
	p := player.New(g, player.Options{
		Pair:        cfg.Pair(),
		MinHz:       cfg.Frequency.Min,
		MaxHz:       cfg.Frequency.Max,
		Volume:      cfg.Audio.Volume,
		Muted:       cfg.Audio.Muted,
		Mode:        mode,
		PatternText: text,
		History:     visual.NewHistory(4096, cfg.HistoryWindow()),
	})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deviceMgr *midi.DeviceManager
	if cfg.MIDI.Enabled {
		deviceMgr = midi.NewDeviceManager(cfg.MIDI.PortName)
		go deviceMgr.Run(ctx)
	}

	m := tui.NewModel(p, deviceMgr, th, cfg)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return err
	}
	return nil
}

// loadConfig reads the config file and applies the command-line overrides
func loadConfig(f flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.config != "" {
		cfg, err = config.LoadFile(f.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("load config",
			"The config file could not be used. Fix it, or point -config at another file."))
	}

	if f.out != "" {
		cfg.Audio.Output = f.out
	}
	if f.midi {
		cfg.MIDI.Enabled = true
	}
	if f.mode != "" {
		mode, err := player.ParseMode(f.mode)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("parse -mode",
				"The -mode flag takes manual or pattern."))
		}
		cfg.UI.StartInPattern = mode == player.Pattern
	}
	debug.Log("config", "loaded: output=%s midi=%v pattern=%v", cfg.Audio.Output, cfg.MIDI.Enabled, cfg.UI.StartInPattern)
	return cfg, nil
}

func loadPalette(path string) (*theme.Palette, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return theme.LoadGPL(path)
}

func readFile(path string) ([]byte, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

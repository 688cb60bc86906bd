package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"

	"go-dualtone/tone"
)

// FrequencyConfig holds the manual-mode tone settings
type FrequencyConfig struct {
	A          float64 `json:"a"`
	B          float64 `json:"b"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Step       float64 `json:"step"`
	CoarseStep float64 `json:"coarseStep"`
}

// AudioConfig defines the signal graph
type AudioConfig struct {
	Output     string  `json:"output,omitempty"` // device | null | wav:<path>
	SampleRate int     `json:"sampleRate"`
	RampMs     int     `json:"rampMs"`
	TapSize    int     `json:"tapSize"`
	Volume     float64 `json:"volume"`
	Muted      bool    `json:"muted,omitempty"`
}

// MIDIConfig maps a MIDI controller onto the tone controls
type MIDIConfig struct {
	Enabled  bool   `json:"enabled"`
	PortName string `json:"portName,omitempty"` // substring filter, empty = all inputs
	ChannelA int    `json:"channelA"`           // 1-16, note-on tunes channel A
	ChannelB int    `json:"channelB"`           // 1-16, note-on tunes channel B
	CCA      int    `json:"ccA"`
	CCB      int    `json:"ccB"`
	CCVolume int    `json:"ccVolume"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	FPS            int    `json:"fps"`
	Visual         string `json:"visual"`
	Palette        string `json:"palette,omitempty"` // GIMP .gpl file, empty = built in
	HistorySeconds int    `json:"historySeconds"`
	SineWindowMs   int    `json:"sineWindowMs"`
	StartInPattern bool   `json:"startInPattern,omitempty"`
}

// Config is the main configuration structure. Patterns are deliberately
// not part of it.
type Config struct {
	Frequency FrequencyConfig `json:"frequency"`
	Audio     AudioConfig     `json:"audio"`
	MIDI      MIDIConfig      `json:"midi"`
	UI        UIConfig        `json:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Frequency: FrequencyConfig{
			A:          100,
			B:          100,
			Min:        20,
			Max:        500,
			Step:       1,
			CoarseStep: 10,
		},
		Audio: AudioConfig{
			Output:     "device",
			SampleRate: 44100,
			RampMs:     100,
			TapSize:    2048,
			Volume:     0.5,
		},
		MIDI: MIDIConfig{
			ChannelA: 1,
			ChannelB: 2,
			CCA:      20,
			CCB:      21,
			CCVolume: 7,
		},
		UI: UIConfig{
			FPS:            30,
			Visual:         "waveform",
			HistorySeconds: 60,
			SineWindowMs:   25,
		},
	}
}

// Pair returns the initial manual frequencies
func (c *Config) Pair() tone.Pair {
	return tone.Pair{A: c.Frequency.A, B: c.Frequency.B}
}

// RampWindow returns the volume ramp length
func (c *Config) RampWindow() time.Duration {
	return time.Duration(c.Audio.RampMs) * time.Millisecond
}

// HistoryWindow returns the span of the frequency history
func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.UI.HistorySeconds) * time.Second
}

// SineWindow returns the span of the synthetic sine trace
func (c *Config) SineWindow() time.Duration {
	return time.Duration(c.UI.SineWindowMs) * time.Millisecond
}

// FrameInterval returns the time between visual frames
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.UI.FPS)
}

// Validate rejects settings the player cannot run with
func (c *Config) Validate() error {
	var errs []error
	f := c.Frequency
	if !(f.Min > 0 && f.Max > f.Min) {
		errs = append(errs, fmt.Errorf("frequency range %g..%g is empty", f.Min, f.Max))
	}
	if f.A < f.Min || f.A > f.Max || f.B < f.Min || f.B > f.Max {
		errs = append(errs, fmt.Errorf("default frequencies %g/%g outside %g..%g", f.A, f.B, f.Min, f.Max))
	}
	if f.Step <= 0 || f.CoarseStep <= 0 {
		errs = append(errs, errors.New("frequency steps must be positive"))
	}
	a := c.Audio
	if a.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("sample rate %d too low", a.SampleRate))
	}
	if a.RampMs < 0 {
		errs = append(errs, errors.New("rampMs must not be negative"))
	}
	if a.TapSize < 32 || a.TapSize&(a.TapSize-1) != 0 {
		errs = append(errs, fmt.Errorf("tap size %d is not a power of two >= 32", a.TapSize))
	}
	if a.Volume < 0 || a.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume %g outside 0..1", a.Volume))
	}
	m := c.MIDI
	if m.ChannelA < 1 || m.ChannelA > 16 || m.ChannelB < 1 || m.ChannelB > 16 {
		errs = append(errs, errors.New("MIDI channels must be 1-16"))
	}
	if c.UI.FPS < 1 || c.UI.FPS > 120 {
		errs = append(errs, fmt.Errorf("fps %d outside 1..120", c.UI.FPS))
	}
	if c.UI.HistorySeconds < 1 || c.UI.SineWindowMs < 1 {
		errs = append(errs, errors.New("history and sine windows must be positive"))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-dualtone"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Fields missing from the file keep
// their defaults. A leading ~ is expanded.
func LoadFile(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

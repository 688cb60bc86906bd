package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Southclaws/fault/fmsg"
)

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"audio": {"output": "null", "volume": 0.25}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(flags{config: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Output != "null" || cfg.Audio.Volume != 0.25 || cfg.UI.StartInPattern {
		t.Errorf("file settings not applied: %+v", cfg.Audio)
	}

	cfg, err = loadConfig(flags{config: path, out: "wav:/tmp/x.wav", mode: "pattern", midi: true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Output != "wav:/tmp/x.wav" || !cfg.UI.StartInPattern || !cfg.MIDI.Enabled {
		t.Errorf("flags not applied: %+v", cfg)
	}

	_, err = loadConfig(flags{config: path, mode: "drone"})
	if err == nil {
		t.Fatal("unknown mode accepted")
	}
	if issue := fmsg.GetIssue(err); !strings.Contains(issue, "manual or pattern") {
		t.Errorf("issue = %q", issue)
	}
}

package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"go-dualtone/widgets"
)

// Key builds a binding whose help text shows the first key
func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	Play, Mode, Visual, Mute, Edit, Help, Quit key.Binding

	AUp, ADown, AUpCoarse, ADownCoarse key.Binding
	BUp, BDown, BUpCoarse, BDownCoarse key.Binding

	VolumeUp, VolumeDown key.Binding

	Leave key.Binding // leaves the pattern editor
}

var keys = keyMap{
	Play:   key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play / stop")),
	Mode:   Key("manual / pattern", "m"),
	Visual: Key("next visual", "v"),
	Mute:   Key("mute", "u"),
	Edit:   Key("edit pattern", "tab"),
	Help:   Key("toggle help", "?"),
	Quit:   Key("quit", "q", "ctrl+c"),

	AUp:         Key("A up", "a"),
	ADown:       Key("A down", "z"),
	AUpCoarse:   Key("A up (coarse)", "A"),
	ADownCoarse: Key("A down (coarse)", "Z"),
	BUp:         Key("B up", "s"),
	BDown:       Key("B down", "x"),
	BUpCoarse:   Key("B up (coarse)", "S"),
	BDownCoarse: Key("B down (coarse)", "X"),

	VolumeUp:   Key("volume up", "+", "="),
	VolumeDown: Key("volume down", "-", "_"),

	Leave: Key("leave editor", "esc", "tab"),
}

func (k keyMap) sections() []widgets.KeySection {
	section := func(title string, bs ...key.Binding) widgets.KeySection {
		s := widgets.KeySection{Title: title}
		for _, b := range bs {
			s.Keys = append(s.Keys, widgets.KeyBinding{Key: b.Help().Key, Desc: b.Help().Desc})
		}
		return s
	}
	return []widgets.KeySection{
		section("Playback", k.Play, k.Mode, k.Mute, k.VolumeUp, k.VolumeDown),
		section("Frequency (manual)", k.AUp, k.ADown, k.AUpCoarse, k.ADownCoarse, k.BUp, k.BDown, k.BUpCoarse, k.BDownCoarse),
		section("View", k.Visual, k.Edit, k.Leave, k.Help, k.Quit),
	}
}

package theme

import (
	"github.com/charmbracelet/lipgloss"

	"go-dualtone/tone"
	"go-dualtone/visual"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols

	fallback *Palette
}

type Symbols struct {
	Playing rune // ▶
	Stopped rune // ■
	Muted   rune // ×

	// Step indicator
	StepDone    rune // ● already played this cycle
	StepCurrent rune // ◉ sounding now
	StepAhead   rune // · still to come

	BarFull  rune // █
	BarEmpty rune // ░
}

// Color roles, matched against the names in the palette file
const (
	RoleBG      = "background"
	RoleSurface = "surface"
	RoleFG      = "text"
	RoleMuted   = "overlay"
	RoleTrace   = "trace"
	RoleA       = "channel-a"
	RoleB       = "channel-b"
	RoleWarning = "warning"
	RoleSuccess = "success"
)

// New builds a theme over palette. Roles the palette does not name come
// from the built-in palette; nil means the built-in palette alone.
func New(palette *Palette) *Theme {
	def := Default()
	if palette == nil {
		palette = def
	}
	return &Theme{
		Palette:  palette,
		fallback: def,
		Symbols: Symbols{
			Playing: '▶',
			Stopped: '■',
			Muted:   '×',

			StepDone:    '●',
			StepCurrent: '◉',
			StepAhead:   '·',

			BarFull:  '█',
			BarEmpty: '░',
		},
	}
}

// RGB returns the raw colour for a role
func (t *Theme) RGB(role string) RGB {
	if c, ok := t.Palette.Named(role); ok {
		return c
	}
	c, _ := t.fallback.Named(role)
	return c
}

// Style helpers

func (t *Theme) BG() lipgloss.Color      { return t.color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color      { return t.color(RoleFG) }
func (t *Theme) Muted() lipgloss.Color   { return t.color(RoleMuted) }
func (t *Theme) Trace() lipgloss.Color   { return t.color(RoleTrace) }
func (t *Theme) Warning() lipgloss.Color { return t.color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.color(RoleSuccess) }

// Channel returns the colour a channel is drawn in
func (t *Theme) Channel(ch tone.Channel) lipgloss.Color {
	if ch == tone.ChannelB {
		return t.color(RoleB)
	}
	return t.color(RoleA)
}

// Visual returns the trace colours for the visual feed
func (t *Theme) Visual() visual.Colors {
	return visual.Colors{
		Trace: t.RGB(RoleTrace),
		A:     t.RGB(RoleA),
		B:     t.RGB(RoleB),
	}
}

func (t *Theme) color(role string) lipgloss.Color {
	return lipgloss.Color(t.RGB(role).Hex())
}

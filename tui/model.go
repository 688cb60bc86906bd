package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"go-dualtone/config"
	"go-dualtone/debug"
	"go-dualtone/midi"
	"go-dualtone/player"
	"go-dualtone/theme"
	"go-dualtone/tone"
	"go-dualtone/visual"
	"go-dualtone/widgets"
)

const (
	editorHeight = 6
	chromeHeight = 9 // header, status lines, spacing and help line
)

type Model struct {
	Player    *player.Controller
	DeviceMgr *midi.DeviceManager // nil when MIDI is off
	Theme     *theme.Theme
	Config    *config.Config

	feed     *visual.Feed
	canvas   *widgets.Braille
	editor   textarea.Model
	mapper   midi.Mapper
	lastErr  error
	lastTick time.Time

	// slider thumbs glide to new frequencies instead of jumping
	spring harmonica.Spring
	thumbs [2]thumb

	showHelp bool
	quitting bool
}

type thumb struct{ pos, vel float64 }

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

// FrameMsg drives the visual feed at the configured frame rate
type FrameMsg time.Time

func NewModel(p *player.Controller, deviceMgr *midi.DeviceManager, th *theme.Theme, cfg *config.Config) Model {
	mode, err := visual.ParseMode(cfg.UI.Visual)
	if err != nil {
		mode = visual.ModeWaveform
	}
	feed := visual.NewFeed(mode, th.Visual())
	feed.SineWindow = cfg.SineWindow()
	feed.HistoryWindow = cfg.HistoryWindow()
	feed.MinHz, feed.MaxHz = cfg.Frequency.Min, cfg.Frequency.Max

	ed := textarea.New()
	ed.ShowLineNumbers = false
	ed.CharLimit = 0
	ed.Placeholder = `{"pattern": [[100, 90, 500]]}`
	ed.SetHeight(editorHeight)
	ed.SetWidth(60)
	ed.SetValue(p.PatternText())
	ed.Blur()

	pair := p.State().Pair
	return Model{
		spring:    harmonica.NewSpring(harmonica.FPS(cfg.UI.FPS), 8.0, 1.0),
		thumbs:    [2]thumb{{pos: pair.A}, {pos: pair.B}},
		Player:    p,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Config:    cfg,
		feed:      feed,
		canvas:    widgets.NewBraille(60, 10),
		editor:    ed,
		mapper:    midi.NewMapper(cfg.MIDI, cfg.Frequency),
	}
}

func ListenForUpdates(p *player.Controller) tea.Cmd {
	return func() tea.Msg {
		<-p.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Player),
		ListenForDevices(m.DeviceMgr),
		tick(m.Config.FrameInterval()),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editor.Focused() {
			return m.updateEditor(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		rows := max(msg.Height-chromeHeight-editorHeight-2, 4)
		m.canvas.Resize(max(msg.Width-2, 10), rows)
		m.editor.SetWidth(max(msg.Width-4, 20))

	case FrameMsg:
		now := time.Time(msg)
		var dt time.Duration
		if !m.lastTick.IsZero() {
			dt = now.Sub(m.lastTick)
		}
		m.lastTick = now
		fr := m.Player.Frame(dt)
		m.feed.Render(fr, m.canvas)
		for i, target := range [2]float64{fr.Pair.A, fr.Pair.B} {
			th := &m.thumbs[i]
			th.pos, th.vel = m.spring.Update(th.pos, th.vel, target)
		}
		return m, tick(m.Config.FrameInterval())

	case UpdateMsg:
		return m, ListenForUpdates(m.Player)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			debug.Log("tui", "midi connected: %s", event.ID)
			go midi.Route(event.Controller.Events(), m.mapper, m.Player)
		case midi.DeviceDisconnected:
			debug.Log("tui", "midi disconnected: %s", event.ID)
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.Config.Frequency
	var err error
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Play):
		err = m.Player.TogglePlay()
	case key.Matches(msg, keys.Mode):
		err = m.Player.ToggleMode()
	case key.Matches(msg, keys.Mute):
		err = m.Player.ToggleMute()
	case key.Matches(msg, keys.VolumeUp):
		err = m.Player.AdjustVolume(0.05)
	case key.Matches(msg, keys.VolumeDown):
		err = m.Player.AdjustVolume(-0.05)
	case key.Matches(msg, keys.AUp):
		err = m.Player.AdjustFrequency(tone.ChannelA, f.Step)
	case key.Matches(msg, keys.ADown):
		err = m.Player.AdjustFrequency(tone.ChannelA, -f.Step)
	case key.Matches(msg, keys.AUpCoarse):
		err = m.Player.AdjustFrequency(tone.ChannelA, f.CoarseStep)
	case key.Matches(msg, keys.ADownCoarse):
		err = m.Player.AdjustFrequency(tone.ChannelA, -f.CoarseStep)
	case key.Matches(msg, keys.BUp):
		err = m.Player.AdjustFrequency(tone.ChannelB, f.Step)
	case key.Matches(msg, keys.BDown):
		err = m.Player.AdjustFrequency(tone.ChannelB, -f.Step)
	case key.Matches(msg, keys.BUpCoarse):
		err = m.Player.AdjustFrequency(tone.ChannelB, f.CoarseStep)
	case key.Matches(msg, keys.BDownCoarse):
		err = m.Player.AdjustFrequency(tone.ChannelB, -f.CoarseStep)
	case key.Matches(msg, keys.Visual):
		m.feed.Mode = m.feed.Mode.Next()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, keys.Edit):
		return m, m.editor.Focus()
	default:
		return m, nil
	}
	m.lastErr = err
	return m, nil
}

// updateEditor forwards keys to the pattern editor. Every change is
// offered to the player, which keeps the last valid pattern.
func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Leave) {
		m.editor.Blur()
		return m, nil
	}
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if text := m.editor.Value(); text != before {
		// the rejection shows up as State.PatternErr
		m.Player.EditPattern(text)
	}
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Player.State()
	th := m.Theme

	headerStyle := lipgloss.NewStyle().Foreground(th.Trace()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())
	aStyle := lipgloss.NewStyle().Foreground(th.Channel(tone.ChannelA))
	bStyle := lipgloss.NewStyle().Foreground(th.Channel(tone.ChannelB))

	playState := fmt.Sprintf("%c %s", th.Symbols.Stopped, st.Playback)
	if st.Playback == player.Playing {
		playState = fmt.Sprintf("%c %s", th.Symbols.Playing, st.Playback)
	}
	midiStatus := ""
	if m.DeviceMgr != nil {
		midiStatus = fmt.Sprintf("  midi:%d", len(m.DeviceMgr.Controllers()))
	}
	header := headerStyle.Render(fmt.Sprintf("go-dualtone  %s  %s  %s%s", playState, st.Mode, m.feed.Mode, midiStatus))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	sliderWidth := 30
	f := m.Config.Frequency
	out.WriteString(aStyle.Render(fmt.Sprintf("A %7.2f Hz ", st.Pair.A)))
	out.WriteString(widgets.RenderSlider(m.thumbs[0].pos, f.Min, f.Max, sliderWidth, th.Channel(tone.ChannelA)))
	out.WriteString("\n")
	out.WriteString(bStyle.Render(fmt.Sprintf("B %7.2f Hz ", st.Pair.B)))
	out.WriteString(widgets.RenderSlider(m.thumbs[1].pos, f.Min, f.Max, sliderWidth, th.Channel(tone.ChannelB)))
	out.WriteString("\n")

	vol := fmt.Sprintf("vol  %3.0f%% ", st.Volume*100)
	barColor := th.Success()
	if st.Muted {
		vol = fmt.Sprintf("vol  %c    ", th.Symbols.Muted)
		barColor = th.Muted()
	}
	out.WriteString(vol)
	out.WriteString(widgets.RenderBar(st.Volume, sliderWidth+1, th.Symbols.BarFull, th.Symbols.BarEmpty, barColor))
	out.WriteString("\n")

	if st.Mode == player.Pattern && st.StepCount > 0 {
		out.WriteString(fmt.Sprintf("step %d of %d  ", st.StepIndex+1, st.StepCount))
		out.WriteString(widgets.RenderSteps(st.StepCount, st.StepIndex,
			th.Symbols.StepDone, th.Symbols.StepCurrent, th.Symbols.StepAhead, th.Trace()))
	}
	out.WriteString("\n\n")

	out.WriteString(m.canvas.String())
	out.WriteString("\n\n")

	out.WriteString(m.editor.View())
	out.WriteString("\n")

	if msg := errorText(st, m.lastErr); msg != "" {
		out.WriteString(warnStyle.Render(msg))
	}
	out.WriteString("\n")

	if m.showHelp {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(keys.sections())))
	} else if m.editor.Focused() {
		out.WriteString(dimStyle.Render("editing pattern  esc/tab:done"))
	} else {
		out.WriteString(dimStyle.Render("space:play  m:mode  a/z s/x:freq  +/-:vol  u:mute  v:visual  tab:edit  ?:help  q:quit"))
	}

	return out.String()
}

// errorText picks the most relevant problem to show
func errorText(st player.State, last error) string {
	switch {
	case st.Err != nil:
		return st.Err.Error()
	case st.PatternErr != nil:
		return "pattern: " + st.PatternErr.Error()
	case last != nil && !errors.Is(last, player.ErrManualOnly):
		return last.Error()
	case last != nil:
		return "frequencies follow the pattern; switch to manual (m) to edit them"
	}
	return ""
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if err := m.Player.Close(); err != nil {
		m.lastErr = err
		debug.Log("tui", "close player: %v", err)
	}
	return m, tea.Quit
}

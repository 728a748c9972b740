package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"djsync/djlink"
	"djsync/output"
	"djsync/theme"
	"djsync/timecode"
	"djsync/widgets"
)

// refresh is how often the screen polls the registry and outputs
const refresh = 100 * time.Millisecond

// logLines is how many log lines fit under the status block
const logLines = 8

// Registry is the read side of the DJ Link device registry
type Registry interface {
	GetDevices() []djlink.Device
	GetCurrentMaster() (uint8, bool)
	GetLastBeatInfo() (djlink.BeatInfo, bool)
}

// Outputs is the read side of the output manager
type Outputs interface {
	Status() []output.Status
	LinkState() (output.LinkState, bool)
	Timecode() (timecode.Value, bool)
}

// Logs hands out the most recent log lines
type Logs interface {
	Lines() []string
}

type Model struct {
	Registry Registry
	Outputs  Outputs
	Logs     Logs
	Theme    *theme.Theme

	// Reload re-reads the config and rebuilds the outputs
	Reload func() error

	now      func() time.Time
	notice   string
	quitting bool
}

type tickMsg time.Time

type reloadedMsg struct{ err error }

func NewModel(reg Registry, outs Outputs, logs Logs, th *theme.Theme, reload func() error) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Registry: reg,
		Outputs:  outs,
		Logs:     logs,
		Theme:    th,
		Reload:   reload,
		now:      time.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) reload() tea.Cmd {
	return func() tea.Msg {
		if m.Reload == nil {
			return reloadedMsg{}
		}
		return reloadedMsg{err: m.Reload()}
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "r":
			m.notice = "reloading..."
			return m, m.reload()
		}

	case reloadedMsg:
		if msg.err != nil {
			m.notice = "reload failed: " + msg.err.Error()
		} else {
			m.notice = "config reloaded"
		}

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	headerStyle := th.Style(theme.RoleAccent).Bold(true)
	labelStyle := th.Style(theme.RoleMuted)
	valueStyle := th.Style(theme.RoleFG)
	dimStyle := th.Style(theme.RoleMuted)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render("djsync"))
	out.WriteString("  ")
	out.WriteString(dimStyle.Render(m.now().Format("15:04:05")))
	out.WriteString("\n\n")

	out.WriteString(m.beatView(labelStyle, valueStyle))
	out.WriteString("\n")
	out.WriteString(m.timecodeView(labelStyle, valueStyle))
	out.WriteString("\n\n")

	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.devicesView(labelStyle, valueStyle),
		"    ",
		m.outputsView(labelStyle, valueStyle),
	))
	out.WriteString("\n\n")

	if m.Logs != nil {
		lines := m.Logs.Lines()
		if len(lines) > logLines {
			lines = lines[len(lines)-logLines:]
		}
		for _, l := range lines {
			out.WriteString(dimStyle.Render(l))
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	if m.notice != "" {
		out.WriteString(th.Style(theme.RoleWarning).Render(m.notice))
		out.WriteString("\n")
	}
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeyBinding{
		{Key: "r", Desc: "reload config"},
		{Key: "q", Desc: "quit"},
	})))
	return out.String()
}

func (m Model) beatView(label, value lipgloss.Style) string {
	th := m.Theme
	lit := th.Style(theme.RoleSuccess)

	beat, ok := m.Registry.GetLastBeatInfo()
	if !ok {
		return label.Render("beat    ") + value.Render("waiting for beats")
	}
	row := widgets.RenderBeatRow(4, int(beat.BeatInMeasure), th.Symbols.BeatOn, th.Symbols.BeatOff, lit, label)
	line := label.Render("beat    ") + row + "  " +
		value.Render(fmt.Sprintf("%6.2f BPM  from %d", beat.BPM, beat.DeviceID))

	if st, ok := m.Outputs.LinkState(); ok {
		bar := widgets.RenderPhaseBar(st.Phase, 16, th.Symbols.PhaseFull, th.Symbols.PhaseEmpty, th.Style(theme.RoleAccent))
		line += "\n" + label.Render("link    ") + bar + "  " +
			value.Render(fmt.Sprintf("%6.2f BPM  beat %d/%g", st.Tempo, st.Beat+1, st.Quantum))
	}
	return line
}

func (m Model) timecodeView(label, value lipgloss.Style) string {
	v, ok := m.Outputs.Timecode()
	if !ok {
		return label.Render("tc      ") + label.Render("off")
	}
	return label.Render("tc      ") + value.Bold(true).Render(v.String()) +
		label.Render(fmt.Sprintf("  %d fps", v.FrameRate))
}

func (m Model) devicesView(label, value lipgloss.Style) string {
	th := m.Theme
	master, hasMaster := m.Registry.GetCurrentMaster()

	lines := []string{label.Render("devices")}
	devs := m.Registry.GetDevices()
	if len(devs) == 0 {
		lines = append(lines, label.Render("  none"))
	}
	for _, d := range devs {
		sym := th.Style(theme.RoleSuccess).Render(string(th.Symbols.Online))
		if hasMaster && d.ID == master {
			sym = th.Style(theme.RoleWarning).Render(string(th.Symbols.Master))
		}
		lines = append(lines, fmt.Sprintf("  %s %s", sym, value.Render(fmt.Sprintf("%-2d %-16s %s", d.ID, d.Name, d.Address))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) outputsView(label, value lipgloss.Style) string {
	th := m.Theme
	lines := []string{label.Render("outputs")}
	for _, st := range m.Outputs.Status() {
		var sym, state string
		switch {
		case st.Available:
			sym, state = th.Style(theme.RoleSuccess).Render(string(th.Symbols.Online)), "running"
		case st.Enabled:
			sym, state = th.Style(theme.RoleError).Render(string(th.Symbols.Failed)), "unavailable"
		default:
			sym, state = label.Render(string(th.Symbols.Offline)), "off"
		}
		lines = append(lines, fmt.Sprintf("  %s %s", sym, value.Render(fmt.Sprintf("%-12s %s", st.Kind, state))))
	}
	return strings.Join(lines, "\n")
}

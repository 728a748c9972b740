package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Online  rune // ● sink running / device seen
	Offline rune // ○ sink disabled
	Failed  rune // ✕ sink enabled but unavailable
	Master  rune // ★ tempo master

	BeatOn  rune // ■ current beat in the bar
	BeatOff rune // □ other beats

	PhaseFull  rune // █ elapsed part of the bar
	PhaseEmpty rune // ░ remaining part
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Online:  '●',
			Offline: '○',
			Failed:  '✕',
			Master:  '★',

			BeatOn:  '■',
			BeatOff: '□',

			PhaseFull:  '█',
			PhaseEmpty: '░',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.125
	RoleMuted   = 0.25
	RoleFG      = 0.5
	RoleAccent  = 0.625
	RoleSuccess = 0.75
	RoleWarning = 0.875
	RoleError   = 1.0
)

func (t *Theme) BG() lipgloss.Color      { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.Color(RoleSurface) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Error() lipgloss.Color   { return t.Color(RoleError) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

// Style is a foreground-only style in the given role
func (t *Theme) Style(role float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Color(role))
}

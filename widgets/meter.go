package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderBeatRow draws one cell per beat of the bar with the current beat
// (1-based) lit. beat 0 lights nothing.
func RenderBeatRow(beats, beat int, on, off rune, lit, dim lipgloss.Style) string {
	var out strings.Builder
	for i := 1; i <= beats; i++ {
		if i > 1 {
			out.WriteString(" ")
		}
		if i == beat {
			out.WriteString(lit.Render(string(on)))
		} else {
			out.WriteString(dim.Render(string(off)))
		}
	}
	return out.String()
}

// RenderPhaseBar draws phase (0..1) as a bar width cells wide
func RenderPhaseBar(phase float64, width int, full, empty rune, style lipgloss.Style) string {
	if width <= 0 {
		return ""
	}
	phase = math.Max(0, math.Min(1, phase))
	n := int(math.Round(phase * float64(width)))
	return style.Render(strings.Repeat(string(full), n) + strings.Repeat(string(empty), width-n))
}

// RenderKeyHelp formats key bindings on one line: "r reload  q quit"
func RenderKeyHelp(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %s", k.Key, k.Desc)
	}
	return strings.Join(parts, "  ")
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

package widgets

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestRenderBeatRow(t *testing.T) {
	plain := lipgloss.NewStyle()
	assert.Equal(t, "□ ■ □ □", RenderBeatRow(4, 2, '■', '□', plain, plain))
	assert.Equal(t, "□ □ □", RenderBeatRow(3, 0, '■', '□', plain, plain))
}

func TestRenderPhaseBar(t *testing.T) {
	plain := lipgloss.NewStyle()
	assert.Equal(t, "##--", RenderPhaseBar(0.5, 4, '#', '-', plain))
	assert.Equal(t, "----", RenderPhaseBar(-2, 4, '#', '-', plain))
	assert.Equal(t, "####", RenderPhaseBar(1.5, 4, '#', '-', plain))
	assert.Equal(t, "", RenderPhaseBar(0.5, 0, '#', '-', plain))
}

func TestRenderKeyHelp(t *testing.T) {
	got := RenderKeyHelp([]KeyBinding{{"r", "reload"}, {"q", "quit"}})
	assert.Equal(t, "r reload  q quit", got)
}

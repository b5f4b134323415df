package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestStatusLine_Render(t *testing.T) {
	styles := DefaultStyles()
	line := NewStatusLine(80, &styles).Render(StatusLineInfo{
		State:     "ready",
		KeyHints:  []KeyHint{{Key: "R", Desc: "run"}, {Key: "q", Desc: "quit"}},
		FocusPane: FocusPaneResults,
	})

	assert.Contains(t, line, "R run")
	assert.Contains(t, line, "q quit")
	assert.Contains(t, line, "ready")
	assert.Contains(t, line, "focus:results")
	assert.LessOrEqual(t, lipgloss.Width(line), 80)
}

func TestStatusLine_TruncatesHints(t *testing.T) {
	styles := DefaultStyles()
	hints := make([]KeyHint, 20)
	for i := range hints {
		hints[i] = KeyHint{Key: "x", Desc: strings.Repeat("long", 3)}
	}
	line := NewStatusLine(40, &styles).Render(StatusLineInfo{KeyHints: hints})

	assert.Contains(t, line, "...")
	assert.Contains(t, line, "focus:operations")
}

func TestModel_GetStatusInfo(t *testing.T) {
	m, _ := newTestModel(t, nil)

	info := m.GetStatusInfo()
	assert.Equal(t, FocusPaneOperations, info.FocusPane)
	assert.Contains(t, info.State, "2 not ready")
	assert.NotEmpty(t, info.KeyHints)

	m.mode = ModeEdit
	assert.Equal(t, FocusPaneEditor, m.GetStatusInfo().FocusPane)

	m.mode = ModeWord
	assert.Equal(t, FocusPaneResults, m.GetStatusInfo().FocusPane)

	m.mode = ModeConfirm
	assert.Nil(t, m.GetStatusInfo().KeyHints)

	m.mode = ModeNormal
	m.running = true
	assert.Contains(t, m.GetStatusInfo().State, "running")
}

func TestModel_StateReady(t *testing.T) {
	m, _ := newTestModel(t, promptTriples())

	assert.Contains(t, m.GetStatusInfo().State, "ready")
	assert.NotContains(t, m.GetStatusInfo().State, "not ready")
}

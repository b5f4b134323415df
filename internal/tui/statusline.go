package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FocusPane represents which pane is currently focused.
type FocusPane int

const (
	FocusPaneOperations FocusPane = iota
	FocusPaneEditor
	FocusPaneResults
)

func (f FocusPane) String() string {
	switch f {
	case FocusPaneOperations:
		return "operations"
	case FocusPaneEditor:
		return "editor"
	case FocusPaneResults:
		return "results"
	default:
		return "unknown"
	}
}

// StatusLineInfo contains information for rendering the status line.
// Fields are ordered to minimize memory padding.
type StatusLineInfo struct {
	State     string // Script readiness or activity, shown on the right
	KeyHints  []KeyHint
	FocusPane FocusPane
}

// KeyHint represents a key and its description.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusLine renders a unified status line at the bottom of the screen.
// Fields are ordered to minimize memory padding.
type StatusLine struct {
	styles *Styles
	width  int
}

// NewStatusLine creates a new StatusLine with the given width and styles.
func NewStatusLine(width int, styles *Styles) *StatusLine {
	return &StatusLine{
		width:  width,
		styles: styles,
	}
}

// SetWidth updates the status line width.
func (s *StatusLine) SetWidth(width int) {
	s.width = width
}

// Render renders the status line with the given info.
func (s *StatusLine) Render(info StatusLineInfo) string {
	keyStyle := s.styles.FooterKey
	mutedStyle := lipgloss.NewStyle().Foreground(Colors.Muted)

	hints := make([]string, 0, len(info.KeyHints))
	for _, h := range info.KeyHints {
		hints = append(hints, keyStyle.Render(h.Key)+" "+h.Desc)
	}
	content := strings.Join(hints, "  ")

	focusIndicator := mutedStyle.Render("focus:" + info.FocusPane.String())

	contentWidth := s.width - 2 // Account for padding

	rightContent := focusIndicator
	if info.State != "" {
		rightContent = info.State + "  " + focusIndicator
	}
	rightLen := lipgloss.Width(rightContent)
	contentLen := lipgloss.Width(content)

	maxContentWidth := contentWidth - rightLen - 2
	if contentLen > maxContentWidth {
		if maxContentWidth <= 3 {
			content = "..."
		} else {
			truncateStyle := lipgloss.NewStyle().MaxWidth(maxContentWidth - 3)
			content = truncateStyle.Render(content) + "..."
		}
		contentLen = lipgloss.Width(content)
	}

	spacing := contentWidth - contentLen - rightLen
	if spacing < 1 {
		spacing = 1
	}

	fullContent := content + strings.Repeat(" ", spacing) + rightContent
	return s.styles.Footer.Width(s.width).Render(fullContent)
}

// GetStatusInfo returns status line info for the TUI model.
func (m *Model) GetStatusInfo() StatusLineInfo {
	info := StatusLineInfo{
		FocusPane: FocusPaneOperations,
		State:     m.stateText(),
	}

	switch m.mode {
	case ModeNormal:
		info.KeyHints = []KeyHint{
			{Key: "j/k", Desc: "nav"},
			{Key: "e", Desc: "edit"},
			{Key: "a/c/b", Desc: "add"},
			{Key: "R", Desc: "run"},
			{Key: "tab", Desc: "results"},
			{Key: "?", Desc: "help"},
			{Key: "q", Desc: "quit"},
		}
	case ModeEdit:
		info.FocusPane = FocusPaneEditor
		info.KeyHints = []KeyHint{
			{Key: "esc", Desc: "done"},
		}
	case ModeResults:
		info.FocusPane = FocusPaneResults
		info.KeyHints = []KeyHint{
			{Key: "h/l", Desc: "word"},
			{Key: "j/k", Desc: "generated word"},
			{Key: "enter", Desc: "alternatives"},
			{Key: "tab", Desc: "operations"},
		}
	case ModeWord:
		info.FocusPane = FocusPaneResults
		info.KeyHints = []KeyHint{
			{Key: "space", Desc: "toggle"},
			{Key: "n", Desc: "custom"},
			{Key: "enter", Desc: "apply"},
			{Key: "esc", Desc: "cancel"},
		}
	case ModeCustom, ModeSaveAs:
		info.KeyHints = []KeyHint{
			{Key: "enter", Desc: "ok"},
			{Key: "esc", Desc: "cancel"},
		}
	case ModeConfirm, ModeHelp:
		// Dialog modes - no hints in status line
		info.KeyHints = nil
	}

	return info
}

// stateText summarizes what the script is waiting for.
func (m *Model) stateText() string {
	switch {
	case m.running:
		return m.spinner.View() + " running"
	case m.tokenizing > 0:
		return m.spinner.View() + fmt.Sprintf(" tokenizing %d", m.tokenizing)
	}
	if invalid := m.script.Invalid(); len(invalid) > 0 {
		return m.styles.StatusInvalid.Render(fmt.Sprintf("%d not ready", len(invalid)))
	}
	return m.styles.Checked.Render("ready")
}

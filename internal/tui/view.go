package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/runoshun/tokenscope/internal/domain"
)

// barWidth is the width of a full candidate weight bar.
const barWidth = 20

// View renders the TUI.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.mode {
	case ModeHelp:
		content = m.viewHelp()
	case ModeNormal, ModeEdit, ModeResults, ModeWord, ModeCustom, ModeSaveAs, ModeConfirm:
		content = m.viewMain()
	}

	return m.styles.App.Render(content)
}

// viewMain renders the operation pane above the editor or results pane.
func (m *Model) viewMain() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	opsStyle := m.styles.Pane
	if m.mode == ModeNormal || m.mode == ModeConfirm || m.mode == ModeSaveAs {
		opsStyle = m.styles.PaneFocused
	}
	b.WriteString(opsStyle.Width(m.paneWidth()).Render(m.viewOperations()))
	b.WriteString("\n")

	switch m.mode {
	case ModeEdit:
		b.WriteString(m.styles.PaneFocused.Width(m.paneWidth()).Render(m.editor.View()))
	case ModeWord, ModeCustom:
		b.WriteString(m.viewPopup())
	case ModeResults:
		b.WriteString(m.styles.PaneFocused.Width(m.paneWidth()).Render(m.resultsView.View()))
	case ModeNormal, ModeHelp, ModeSaveAs, ModeConfirm:
		b.WriteString(m.styles.Pane.Width(m.paneWidth()).Render(m.resultsView.View()))
	}
	b.WriteString("\n")

	switch m.mode {
	case ModeConfirm:
		b.WriteString(m.viewConfirmDialog())
		b.WriteString("\n")
	case ModeSaveAs:
		b.WriteString(m.styles.InputPrompt.Render("Save as: "))
		b.WriteString(m.nameInput.View())
		b.WriteString("\n")
	case ModeNormal, ModeEdit, ModeResults, ModeWord, ModeCustom, ModeHelp:
	}

	switch {
	case m.err != nil:
		b.WriteString(m.styles.ErrorMsg.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(m.styles.HeaderText.Render(m.notice))
		b.WriteString("\n")
	}
	for _, w := range m.warnings {
		b.WriteString(m.styles.Warning.Render("Warning: " + w))
		b.WriteString("\n")
	}

	b.WriteString(NewStatusLine(m.width-2, &m.styles).Render(m.GetStatusInfo()))
	return b.String()
}

// viewHeader renders the title with the script size and scale.
func (m *Model) viewHeader() string {
	title := "tokenscope"
	if m.scriptName != "" {
		title += " · " + m.scriptName
	}
	left := m.styles.Header.Render(title)

	right := fmt.Sprintf("%d operations", m.script.Len())
	if m.results != nil && !m.results.Scale.Empty() {
		right += fmt.Sprintf("  logits [%.2f, %.2f]", m.results.Scale.Min, m.results.Scale.Max)
	}
	rightText := m.styles.HeaderText.Render(right)

	spacing := m.paneWidth() - lipgloss.Width(left) - lipgloss.Width(rightText)
	if spacing < 1 {
		spacing = 1
	}
	return left + strings.Repeat(" ", spacing) + rightText
}

func (m *Model) viewOperations() string {
	if len(m.opList.Items()) == 0 {
		return m.styles.OpPlaceholder.Render("No operations. Press a to add text, c to add a completion.")
	}
	return m.opList.View()
}

func (m *Model) viewConfirmDialog() string {
	op := m.SelectedOp()
	if op == nil {
		return ""
	}
	prompt := fmt.Sprintf("%s #%d? ", m.confirmAction, op.ID())
	return m.styles.Dialog.Render(
		m.styles.DialogTitle.Render("Confirm") + "\n\n" +
			m.styles.DialogPrompt.Render(prompt) + m.styles.FooterKey.Render("y") + " / any key to cancel")
}

func (m *Model) viewHelp() string {
	return m.styles.Help.Render(m.styles.DialogTitle.Render("Keys") + "\n\n" + m.help.FullHelpView(m.keys.FullHelp()))
}

// viewPopup renders the candidates of the word being edited.
func (m *Model) viewPopup() string {
	p := m.popup
	if p == nil {
		return ""
	}
	var b strings.Builder
	w := p.word
	_, _ = fmt.Fprintf(&b, "%s  logit %.3f\n\n",
		m.styles.DialogTitle.Render(fmt.Sprintf("Word %d %q", w.Index+1, w.Text)), w.Logit)

	for i, c := range w.Candidates {
		cursor := "  "
		if i == p.cursor {
			cursor = m.styles.SelectionIndicator.Render("> ")
		}
		box := m.styles.Unchecked.Render("[ ]")
		if p.checked[i] {
			box = m.styles.Checked.Render("[x]")
		}
		text := runewidth.Truncate(escapeNewlines(m.results.Lookup(c.Token)), 24, "…")
		filled := int(p.weights[i]*barWidth + 0.5)
		bar := m.styles.Bar.Render(strings.Repeat("█", filled)) +
			m.styles.BarEmpty.Render(strings.Repeat("░", barWidth-filled))
		_, _ = fmt.Fprintf(&b, "%s%s %-24s %s %7.3f\n", cursor, box, text, bar, c.Value)
	}
	for i, text := range p.custom {
		cursor := "  "
		if len(w.Candidates)+i == p.cursor {
			cursor = m.styles.SelectionIndicator.Render("> ")
		}
		_, _ = fmt.Fprintf(&b, "%s%s %s\n", cursor, m.styles.Checked.Render("[+]"), escapeNewlines(text))
	}
	if m.mode == ModeCustom {
		b.WriteString("\n" + m.styles.InputPrompt.Render("Custom: ") + m.customInput.View())
	}
	return m.styles.Dialog.Width(m.paneWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

// paneWidth is the inner width of the panes.
func (m *Model) paneWidth() int {
	return max(40, m.width-4)
}

// updateLayoutSizes sizes the panes to the window.
func (m *Model) updateLayoutSizes() {
	// Header, status line and two pane borders each.
	available := max(6, m.height-2-4)
	opsHeight := max(3, available*2/5)
	bottom := max(3, available-opsHeight)

	m.opList.SetSize(m.paneWidth(), opsHeight)
	m.editor.SetWidth(m.paneWidth())
	m.editor.SetHeight(bottom)
	m.resultsView.Width = m.paneWidth()
	m.resultsView.Height = bottom
	m.updateResultsView()
}

// updateResultsView re-renders the results and scrolls the cursor word into
// view.
func (m *Model) updateResultsView() {
	if m.results == nil {
		m.resultsView.SetContent(m.styles.OpPlaceholder.Render("Press R to run the script."))
		return
	}
	content, cursorLine := m.renderResults(m.paneWidth())
	m.resultsView.SetContent(content)
	if m.mode != ModeResults && m.mode != ModeWord {
		return
	}
	if cursorLine < m.resultsView.YOffset {
		m.resultsView.SetYOffset(cursorLine)
	} else if h := m.resultsView.Height; h > 0 && cursorLine >= m.resultsView.YOffset+h {
		m.resultsView.SetYOffset(cursorLine - h + 1)
	}
}

// renderResults draws every output with words on their logit color, and
// returns the line holding the cursor word.
func (m *Model) renderResults(width int) (string, int) {
	var b strings.Builder
	lines, cursorLine := 0, 0
	var cursor *domain.Word
	if m.wordCursor < len(m.words) && (m.mode == ModeResults || m.mode == ModeWord) {
		cursor = m.words[m.wordCursor]
	}

	write := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
		lines += strings.Count(s, "\n") + 1
	}

	m.results.Walk(func(o *domain.OperationOutput, depth int) {
		pad := uint(depth * 2)
		write(indent.String(m.styles.ResultLabel.Render(m.resultLabel(o)), pad))
		if o.Name == domain.OpBranch {
			return
		}
		var line strings.Builder
		for _, w := range o.Words {
			if w == cursor {
				before := wordwrap.String(line.String(), width-int(pad)-2)
				cursorLine = lines + strings.Count(before, "\n")
			}
			line.WriteString(m.renderWord(w, w == cursor))
		}
		body := wordwrap.String(strings.TrimRight(line.String(), "\n"), width-int(pad)-2)
		write(indent.String(body, pad+2))
	})
	return strings.TrimRight(b.String(), "\n"), cursorLine
}

// renderWord draws one word on its color, with its line break hints.
func (m *Model) renderWord(w *domain.Word, cursor bool) string {
	style := m.styles.Word
	if cursor {
		style = m.styles.WordCursor
	}
	text := escapeNewlines(w.Text)
	var b strings.Builder
	if w.BreakBefore {
		b.WriteString("\n")
	}
	b.WriteString(style.Background(lipgloss.Color(w.Color)).Render(text))
	if w.BreakAfter {
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) resultLabel(o *domain.OperationOutput) string {
	if op, err := m.script.ByKey(o.OperationKey); err == nil {
		return fmt.Sprintf("#%d %s (%s)", op.ID(), o.Name, op.Role())
	}
	return fmt.Sprintf("[%s] %s", o.RequestID, o.Name)
}

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/runoshun/tokenscope/internal/domain"
)

// opItem is one visible row of the operation list. Only the selected option
// of each branch is expanded.
type opItem struct {
	op    *domain.Operation
	depth int
}

func (i opItem) FilterValue() string {
	if p, ok := i.op.Text(); ok {
		return p.Raw
	}
	return string(i.op.Kind())
}

// flattenOps returns the visible rows of ops, depth first.
func flattenOps(ops []*domain.Operation, depth int) []list.Item {
	var items []list.Item
	for _, op := range ops {
		items = append(items, opItem{op: op, depth: depth})
		if b, ok := op.Branch(); ok && len(b.Options) > 0 {
			items = append(items, flattenOps(b.Options[b.Selected].Operations(), depth+1)...)
		}
	}
	return items
}

// escapeNewlines replaces newline characters with ↵ for single-line display.
func escapeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "↵")
	s = strings.ReplaceAll(s, "\n", "↵")
	s = strings.ReplaceAll(s, "\r", "↵")
	return s
}

type opDelegate struct {
	styles Styles
}

func newOpDelegate(styles Styles) opDelegate {
	return opDelegate{styles: styles}
}

func (d opDelegate) Height() int {
	return 1
}

func (d opDelegate) Spacing() int {
	return 0
}

func (d opDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d opDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	oi, ok := item.(opItem)
	if !ok {
		return
	}
	op := oi.op
	selected := index == m.Index()

	indicator := " "
	if selected {
		indicator = ">"
	}
	prefix := fmt.Sprintf("%s%s%3d %s ", indicator, strings.Repeat("  ", oi.depth), op.ID(), KindIcon(op.Kind()))
	role := fmt.Sprintf("%-9s ", op.Role())
	status := d.statusMark(op)

	maxLen := m.Width() - runewidth.StringWidth(prefix) - runewidth.StringWidth(role) - 3
	if maxLen < 10 {
		maxLen = 10
	}
	summary, placeholder := d.summary(op)
	if runewidth.StringWidth(summary) > maxLen {
		summary = runewidth.Truncate(summary, maxLen, "…")
	}

	textStyle := d.styles.OpText
	if selected {
		textStyle = d.styles.OpTextSelected
	}
	if placeholder {
		textStyle = d.styles.OpPlaceholder
	}

	line := d.styles.SelectionIndicator.Render(prefix[:1]) +
		d.styles.OpID.Render(prefix[1:]) +
		d.styles.RoleStyle(op.Role()).Render(role) +
		textStyle.Render(summary)
	if status != "" {
		line += " " + status
	}
	_, _ = fmt.Fprint(w, line)
}

// summary returns the one-line description of op and whether it is a
// placeholder for missing content.
func (d opDelegate) summary(op *domain.Operation) (string, bool) {
	switch p := op.Params().(type) {
	case *domain.TextParams:
		if p.Raw == "" {
			return "(empty)", true
		}
		return escapeNewlines(p.Raw), false
	case *domain.CompletionParams:
		return fmt.Sprintf("generate up to %d tokens", p.MaxTokens), true
	case *domain.BranchParams:
		if len(p.Options) == 0 {
			return "(no options)", true
		}
		tabs := make([]string, len(p.Options))
		for i := range p.Options {
			tabs[i] = fmt.Sprint(i + 1)
			if i == p.Selected {
				tabs[i] = "[" + tabs[i] + "]"
			}
		}
		return "options " + strings.Join(tabs, " "), false
	}
	return "", true
}

// statusMark renders the tokenize state of text operations.
func (d opDelegate) statusMark(op *domain.Operation) string {
	status, err := op.TokenizeStatus()
	switch status {
	case domain.TokenizePending:
		return d.styles.StatusPending.Render("⋯")
	case domain.TokenizeFailed:
		msg := "✗ tokenize failed"
		if err != nil {
			msg = "✗ " + err.Error()
		}
		return d.styles.StatusFailed.Render(runewidth.Truncate(msg, 40, "…"))
	case domain.TokenizeIdle:
	}
	if !op.Valid() {
		return d.styles.StatusInvalid.Render("○")
	}
	return ""
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Color modes accepted by --color.
const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// wrapWidth is the line width of rendered results.
const wrapWidth = 100

// newRenderer returns a lipgloss renderer for w honoring the --color mode.
func newRenderer(w io.Writer, mode string) (*lipgloss.Renderer, error) {
	r := lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	switch mode {
	case colorAuto, "":
	case colorAlways:
		r.SetColorProfile(termenv.TrueColor)
	case colorNever:
		r.SetColorProfile(termenv.Ascii)
	default:
		return nil, fmt.Errorf("invalid --color %q (want auto, always or never)", mode)
	}
	return r, nil
}

// resultPrinter writes results as colored words, one block per operation.
type resultPrinter struct {
	script *domain.Script
	header lipgloss.Style
	word   lipgloss.Style
	r      *lipgloss.Renderer
}

func newResultPrinter(r *lipgloss.Renderer, script *domain.Script) *resultPrinter {
	return &resultPrinter{
		script: script,
		header: r.NewStyle().Faint(true),
		word:   r.NewStyle().Foreground(lipgloss.Color("#1e1e2e")),
		r:      r,
	}
}

// Word renders one word on its logit color. Line breaks inside the text are
// shown as ↵ and emitted around the word according to its break hints.
func (p *resultPrinter) Word(w *domain.Word) string {
	text := strings.ReplaceAll(w.Text, "\n", "↵")
	var b strings.Builder
	if w.BreakBefore {
		b.WriteString("\n")
	}
	b.WriteString(p.word.Background(lipgloss.Color(w.Color)).Render(text))
	if w.BreakAfter {
		b.WriteString("\n")
	}
	return b.String()
}

// Print writes every output of res.
func (p *resultPrinter) Print(w io.Writer, res *domain.Results) {
	p.printList(w, res.Outputs, 0)
	_, _ = fmt.Fprintln(w, p.header.Render(fmt.Sprintf("logit scale [%.3f, %.3f]", res.Scale.Min, res.Scale.Max)))
}

func (p *resultPrinter) printList(w io.Writer, outs []*domain.OperationOutput, depth int) {
	pad := uint(depth * 2)
	for _, o := range outs {
		_, _ = fmt.Fprintln(w, indent.String(p.header.Render(p.label(o)), pad))
		if o.Name == domain.OpBranch {
			for i, fork := range o.Forks {
				_, _ = fmt.Fprintln(w, indent.String(p.header.Render(fmt.Sprintf("option %d", i+1)), pad+2))
				p.printList(w, fork, depth+2)
			}
			continue
		}
		var line strings.Builder
		for _, word := range o.Words {
			line.WriteString(p.Word(word))
		}
		body := wordwrap.String(strings.TrimRight(line.String(), "\n"), wrapWidth)
		_, _ = fmt.Fprintln(w, indent.String(body, pad+2))
	}
}

func (p *resultPrinter) label(o *domain.OperationOutput) string {
	if p.script != nil {
		if op, err := p.script.ByKey(o.OperationKey); err == nil {
			return fmt.Sprintf("#%d %s (%s)", op.ID(), o.Name, op.Role())
		}
	}
	return fmt.Sprintf("[%s] %s", o.RequestID, o.Name)
}

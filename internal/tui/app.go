package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/infra/editor"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// Model is the main bubbletea model for the TUI.
type Model struct {
	// Dependencies (pointers first for alignment)
	container *app.Container
	program   *tea.Program
	script    *domain.Script
	results   *domain.Results
	popup     *wordPopup
	err       error
	cancelRun context.CancelFunc

	// State (slices and maps)
	words    []*domain.Word
	warnings []string
	editSeq  map[string]uint64

	// Components (structs with pointers)
	keys        KeyMap
	styles      Styles
	help        help.Model
	opList      list.Model
	resultsView viewport.Model
	spinner     spinner.Model
	editor      textarea.Model
	customInput textinput.Model
	nameInput   textinput.Model

	// Strings
	editKey    string
	notice     string
	scriptName string

	// Numeric state (smaller types last)
	mode          Mode
	confirmAction ConfirmAction
	width         int
	height        int
	wordCursor    int
	tokenizing    int
	runID         int
	running       bool
	dirty         bool
}

// wordPopup is the candidate editor of one generated word.
type wordPopup struct {
	word    *domain.Word
	weights []float64
	checked []bool
	custom  []string
	cursor  int
}

// rows returns the number of selectable popup rows.
func (p *wordPopup) rows() int {
	return len(p.word.Candidates) + len(p.custom)
}

// New creates a new TUI Model editing the working script.
func New(c *app.Container) (*Model, error) {
	out, err := c.LoadStateUseCase().Execute(context.Background(), usecase.LoadStateInput{})
	if err != nil {
		return nil, err
	}

	styles := DefaultStyles()
	opList := list.New([]list.Item{}, newOpDelegate(styles), 0, 0)
	opList.SetShowTitle(false)
	opList.SetShowStatusBar(false)
	opList.SetShowHelp(false)
	opList.SetShowPagination(false)
	opList.SetFilteringEnabled(false)
	opList.DisableQuitKeybindings()

	ta := textarea.New()
	ta.Placeholder = "Text sent to the model"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	ci := textinput.New()
	ci.Placeholder = "Custom text"
	ci.CharLimit = 500

	ni := textinput.New()
	ni.Placeholder = "Script name"
	ni.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.StatusPending

	m := &Model{
		container:   c,
		keys:        DefaultKeyMap(),
		styles:      styles,
		help:        help.New(),
		opList:      opList,
		resultsView: viewport.New(0, 0),
		spinner:     sp,
		editor:      ta,
		customInput: ci,
		nameInput:   ni,
		editSeq:     make(map[string]uint64),
		mode:        ModeNormal,
	}
	if c.AppConfig != nil {
		m.warnings = c.AppConfig.Warnings
	}
	m.setScript(out.Script)
	return m, nil
}

// SetProgram gives the model the program it runs in, so streamed updates can
// be sent from outside the event loop.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
}

// Init initializes the model and returns the initial command.
func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, op := range m.script.Index().Order() {
		if m.needsTokenize(op) {
			cmds = append(cmds, m.beginTokenize(op.Key()))
		}
	}
	return tea.Batch(cmds...)
}

// Script returns the script being edited.
func (m *Model) Script() *domain.Script {
	return m.script
}

// setScript replaces the edited script and subscribes to its changes.
func (m *Model) setScript(s *domain.Script) {
	m.script = s
	s.Subscribe(func(domain.Event) { m.dirty = true })
	m.refreshOps("")
}

// refreshOps rebuilds the visible rows, keeping the operation with the given
// key (or the current one) selected.
func (m *Model) refreshOps(selectKey string) {
	if selectKey == "" {
		if op := m.SelectedOp(); op != nil {
			selectKey = op.Key()
		}
	}
	items := flattenOps(m.script.Operations(), 0)
	m.opList.SetItems(items)
	for i, it := range items {
		if it.(opItem).op.Key() == selectKey {
			m.opList.Select(i)
			return
		}
	}
	if m.opList.Index() >= len(items) && len(items) > 0 {
		m.opList.Select(len(items) - 1)
	}
}

// SelectedOp returns the currently selected operation, or nil if none.
func (m *Model) SelectedOp() *domain.Operation {
	if m.opList.SelectedItem() == nil {
		return nil
	}
	if oi, ok := m.opList.SelectedItem().(opItem); ok {
		return oi.op
	}
	return nil
}

// needsTokenize reports whether op is a text operation with text but without
// tokens.
func (m *Model) needsTokenize(op *domain.Operation) bool {
	p, ok := op.Text()
	if !ok || p.Raw == "" || len(p.Tokenized) > 0 {
		return false
	}
	status, _ := op.TokenizeStatus()
	return status != domain.TokenizePending
}

// busy reports whether a request is in flight.
func (m *Model) busy() bool {
	return m.running || m.tokenizing > 0
}

// debounce schedules a tokenize of the operation once editing pauses.
func (m *Model) debounce(key string) tea.Cmd {
	m.editSeq[key]++
	seq := m.editSeq[key]
	return tea.Tick(m.container.AppConfig.Editor.Debounce(), func(_ time.Time) tea.Msg {
		return MsgTokenizeDue{OperationKey: key, Seq: seq}
	})
}

// beginTokenize marks the operation pending and returns the call to make.
// The script is only touched here and when MsgTokenized arrives.
func (m *Model) beginTokenize(key string) tea.Cmd {
	op, err := m.script.ByKey(key)
	if err != nil {
		return nil
	}
	if p, ok := op.Text(); !ok || p.Raw == "" {
		return nil
	}
	req, err := m.script.BeginTokenize(op.ID())
	if err != nil {
		return func() tea.Msg { return MsgError{Err: err} }
	}
	m.tokenizing++
	uc := m.container.TokenizeTextUseCase()
	call := func() tea.Msg {
		out, err := uc.Execute(context.Background(), usecase.TokenizeTextInput{Request: req})
		if err != nil {
			return MsgTokenized{Request: req, Err: err}
		}
		return MsgTokenized{Request: req, Tokens: out.Tokens}
	}
	return tea.Batch(call, m.spinner.Tick)
}

// saveState persists a snapshot of the working script.
func (m *Model) saveState() tea.Cmd {
	triples := m.script.Triples()
	uc := m.container.SaveStateUseCase()
	return func() tea.Msg {
		if _, err := uc.Execute(context.Background(), usecase.SaveStateInput{Triples: triples}); err != nil {
			return MsgError{Err: err}
		}
		return MsgStateSaved{}
	}
}

// run submits the script, streaming when configured.
func (m *Model) run() tea.Cmd {
	submit := m.container.SubmitScriptUseCase()
	sub, err := submit.Prepare(m.script)
	if err != nil {
		m.err = err
		return nil
	}
	if m.cancelRun != nil {
		m.cancelRun()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	m.running = true
	m.runID++
	runID := m.runID

	if !m.container.AppConfig.Editor.Stream {
		call := func() tea.Msg {
			out, err := submit.Execute(ctx, usecase.SubmitScriptInput{Submission: sub})
			if err != nil {
				return MsgStreamDone{Err: err, Run: runID}
			}
			return MsgSubmitted{Results: out.Results, Run: runID}
		}
		return tea.Batch(call, m.spinner.Tick)
	}

	stream := m.container.StreamScriptUseCase()
	p := m.program
	call := func() tea.Msg {
		out, err := stream.Execute(ctx, usecase.StreamScriptInput{
			Submission: sub,
			OnUpdate: func(res *domain.Results, _ domain.Assembly) {
				if p != nil {
					p.Send(MsgStreamUpdate{Results: res.Clone(), Run: runID})
				}
			},
		})
		if err != nil {
			return MsgStreamDone{Err: err, Run: runID}
		}
		return MsgStreamDone{Results: out.Results, Run: runID}
	}
	return tea.Batch(call, m.spinner.Tick)
}

// stopRun cancels the request in flight, if any.
func (m *Model) stopRun() {
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}
	m.running = false
}

// setResults installs results and collects their words for the cursor.
func (m *Model) setResults(res *domain.Results) {
	m.results = res
	m.words = m.words[:0]
	if res != nil {
		res.Walk(func(o *domain.OperationOutput, _ int) {
			m.words = append(m.words, o.Words...)
		})
	}
	if m.wordCursor >= len(m.words) {
		m.wordCursor = max(0, len(m.words)-1)
	}
	m.updateResultsView()
}

// openPopup opens the candidate editor for the word under the cursor.
func (m *Model) openPopup() {
	if m.wordCursor >= len(m.words) {
		return
	}
	w := m.words[m.wordCursor]
	if !w.Editable {
		m.notice = "only generated words can be edited"
		return
	}
	m.popup = &wordPopup{
		word:    w,
		weights: domain.CandidateWeights(w.Candidates),
		checked: make([]bool, len(w.Candidates)),
	}
	m.mode = ModeWord
}

// applyPopup rewrites the script from the popup selection and tokenizes the
// custom texts it produced.
func (m *Model) applyPopup() tea.Cmd {
	p := m.popup
	sel := domain.EditSelection{
		OperationKey: p.word.OperationKey,
		Index:        p.word.Index,
		CustomTexts:  p.custom,
	}
	for i, c := range p.word.Candidates {
		if p.checked[i] {
			sel.Tokens = append(sel.Tokens, c.Token)
		}
	}

	out, err := m.container.ApplyEditUseCase().Execute(context.Background(), usecase.ApplyEditInput{
		Script:    m.script,
		Results:   m.results,
		Selection: sel,
	})
	if err != nil {
		m.err = err
		return nil
	}

	m.popup = nil
	m.mode = ModeNormal
	m.setResults(nil)
	m.refreshOps(out.Outcome.Branch.Key())

	var cmds []tea.Cmd
	for _, leaf := range out.Outcome.Untokenized {
		cmds = append(cmds, m.beginTokenize(leaf.Key()))
	}
	return tea.Batch(cmds...)
}

// editExternally opens the text of a text operation in $EDITOR.
func (m *Model) editExternally(op *domain.Operation) tea.Cmd {
	p, ok := op.Text()
	if !ok {
		return nil
	}
	dir, err := os.MkdirTemp("", "tokenscope-edit-")
	if err != nil {
		return func() tea.Msg { return MsgError{Err: err} }
	}
	path := filepath.Join(dir, fmt.Sprintf("op-%d.txt", op.ID()))
	if err := os.WriteFile(path, []byte(p.Raw), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return func() tea.Msg { return MsgError{Err: err} }
	}
	key := op.Key()
	return tea.ExecProcess(editor.Command(path), func(err error) tea.Msg {
		defer func() { _ = os.RemoveAll(dir) }()
		if err != nil {
			return MsgEditorClosed{OperationKey: key, Err: err}
		}
		data, err := os.ReadFile(path)
		return MsgEditorClosed{OperationKey: key, Text: string(data), Err: err}
	})
}

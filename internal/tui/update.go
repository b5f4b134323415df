package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// maxTokensStep is how much +/- change a completion's length limit.
const maxTokensStep = 50

// Update handles messages and updates the model. Any change to the script
// refreshes the operation list and persists the working state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if !m.dirty {
		return m, cmd
	}
	m.dirty = false
	m.refreshOps("")
	return m, tea.Batch(cmd, m.saveState())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.updateLayoutSizes()
		return nil

	case spinner.TickMsg:
		if !m.busy() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case MsgTokenizeDue:
		if m.editSeq[msg.OperationKey] != msg.Seq {
			return nil
		}
		return m.beginTokenize(msg.OperationKey)

	case MsgTokenized:
		m.tokenizing = max(0, m.tokenizing-1)
		var err error
		if msg.Err != nil {
			_, err = m.script.FailTokenize(msg.Request.OperationKey, msg.Request.Seq, msg.Err)
		} else {
			_, err = m.script.ApplyTokenized(msg.Request.OperationKey, msg.Request.Seq, msg.Tokens)
		}
		// The operation may have been removed while the call was in flight.
		if err != nil && !errors.Is(err, domain.ErrOperationNotFound) {
			m.err = err
		}
		return nil

	case MsgSubmitted:
		if msg.Run != m.runID {
			return nil
		}
		m.running = false
		m.cancelRun = nil
		m.setResults(msg.Results)
		return nil

	case MsgStreamUpdate:
		if msg.Run == m.runID && m.running {
			m.setResults(msg.Results)
		}
		return nil

	case MsgStreamDone:
		if msg.Run != m.runID {
			return nil
		}
		m.running = false
		m.cancelRun = nil
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.err = msg.Err
			}
			return nil
		}
		m.setResults(msg.Results)
		return nil

	case MsgEditorClosed:
		if msg.Err != nil {
			m.err = msg.Err
			return nil
		}
		op, err := m.script.ByKey(msg.OperationKey)
		if err != nil {
			m.err = err
			return nil
		}
		if err := m.script.SetRaw(op.ID(), strings.TrimSuffix(msg.Text, "\n")); err != nil {
			m.err = err
			return nil
		}
		return m.beginTokenize(msg.OperationKey)

	case MsgStateSaved:
		return nil

	case MsgError:
		m.err = msg.Err
		m.mode = ModeNormal
		m.confirmAction = ConfirmNone
		return nil

	case MsgClearError:
		m.err = nil
		return nil
	}

	if m.mode == ModeEdit {
		return m.updateEditor(msg)
	}
	return nil
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	// Clear error and notice on any key press
	m.err = nil
	m.notice = ""

	if msg.String() == "ctrl+c" {
		m.stopRun()
		return tea.Quit
	}

	switch m.mode {
	case ModeNormal:
		return m.handleNormalMode(msg)
	case ModeEdit:
		return m.handleEditMode(msg)
	case ModeResults:
		return m.handleResultsMode(msg)
	case ModeWord:
		return m.handleWordMode(msg)
	case ModeCustom:
		return m.handleCustomMode(msg)
	case ModeSaveAs:
		return m.handleSaveAsMode(msg)
	case ModeConfirm:
		return m.handleConfirmMode(msg)
	case ModeHelp:
		return m.handleHelpMode(msg)
	}
	return nil
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) tea.Cmd {
	op := m.SelectedOp()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopRun()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp
		return nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.opList, cmd = m.opList.Update(msg)
		return cmd

	case key.Matches(msg, m.keys.Focus):
		if len(m.words) == 0 {
			m.notice = "no results yet"
			return nil
		}
		m.mode = ModeResults
		m.updateResultsView()
		return nil

	case key.Matches(msg, m.keys.Run):
		cmd := m.run()
		if m.err != nil {
			return nil
		}
		return cmd

	case key.Matches(msg, m.keys.AddText):
		return m.addOperation(op, domain.KindText)

	case key.Matches(msg, m.keys.AddCompletion):
		return m.addOperation(op, domain.KindCompletion)

	case key.Matches(msg, m.keys.AddBranch):
		return m.addOperation(op, domain.KindBranch)

	case key.Matches(msg, m.keys.SaveAs):
		m.mode = ModeSaveAs
		m.nameInput.SetValue(m.scriptName)
		return m.nameInput.Focus()
	}

	if op == nil {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Edit):
		if _, ok := op.Text(); !ok {
			m.notice = fmt.Sprintf("#%d is not a text operation", op.ID())
			return nil
		}
		return m.startEdit(op)

	case key.Matches(msg, m.keys.ExternalEdit):
		return m.editExternally(op)

	case key.Matches(msg, m.keys.Delete):
		m.mode = ModeConfirm
		m.confirmAction = ConfirmDelete
		return nil

	case key.Matches(msg, m.keys.Role):
		if err := m.script.SetRole(op.ID(), op.Role().Next()); err != nil {
			m.err = err
			return nil
		}
		// The role is part of the tokenized text.
		return m.beginTokenize(op.Key())

	case key.Matches(msg, m.keys.MoreTokens), key.Matches(msg, m.keys.FewerTokens):
		p, ok := op.Completion()
		if !ok {
			return nil
		}
		n := p.MaxTokens + maxTokensStep
		if key.Matches(msg, m.keys.FewerTokens) {
			n = max(1, p.MaxTokens-maxTokensStep)
		}
		if err := m.script.SetMaxTokens(op.ID(), n); err != nil {
			m.err = err
		}
		return nil

	case key.Matches(msg, m.keys.Tokenize):
		return m.beginTokenize(op.Key())

	case key.Matches(msg, m.keys.AddOption):
		i, err := m.script.AddOption(op.ID())
		if err != nil {
			m.err = err
			return nil
		}
		if err := m.script.SelectOption(op.ID(), i); err != nil {
			m.err = err
		}
		return nil

	case key.Matches(msg, m.keys.RemoveOption):
		if b, ok := op.Branch(); ok && len(b.Options) > 0 {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmRemoveOption
		}
		return nil

	case key.Matches(msg, m.keys.PrevOption), key.Matches(msg, m.keys.NextOption):
		b, ok := op.Branch()
		if !ok || len(b.Options) < 2 {
			return nil
		}
		step := 1
		if key.Matches(msg, m.keys.PrevOption) {
			step = len(b.Options) - 1
		}
		if err := m.script.SelectOption(op.ID(), (b.Selected+step)%len(b.Options)); err != nil {
			m.err = err
		}
		return nil
	}

	return nil
}

// addOperation inserts a new operation after the selected one, in the same
// list. New text operations open in the editor.
func (m *Model) addOperation(after *domain.Operation, kind domain.Kind) tea.Cmd {
	ref, afterID, role := domain.Root, 0, domain.RoleUser
	if after != nil {
		var err error
		if ref, err = m.script.RefOf(after.ID()); err != nil {
			m.err = err
			return nil
		}
		afterID = after.ID()
		role = after.Role().Next()
	}
	if kind == domain.KindCompletion {
		role = domain.RoleAssistant
	}

	op, err := m.script.AddOperation(ref, afterID, kind, role)
	if err != nil {
		m.err = err
		return nil
	}
	m.refreshOps(op.Key())
	if kind == domain.KindText {
		return m.startEdit(op)
	}
	return nil
}

func (m *Model) startEdit(op *domain.Operation) tea.Cmd {
	p, _ := op.Text()
	m.editKey = op.Key()
	m.editor.SetValue(p.Raw)
	m.mode = ModeEdit
	return m.editor.Focus()
}

func (m *Model) handleEditMode(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Escape) {
		m.editor.Blur()
		m.mode = ModeNormal
		m.editKey = ""
		return nil
	}
	return m.updateEditor(msg)
}

// updateEditor forwards msg to the textarea and writes any change to the
// operation, scheduling a debounced tokenize.
func (m *Model) updateEditor(msg tea.Msg) tea.Cmd {
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	after := m.editor.Value()
	if after == before {
		return cmd
	}

	op, err := m.script.ByKey(m.editKey)
	if err != nil {
		// Removed while editing.
		m.mode = ModeNormal
		m.editKey = ""
		return cmd
	}
	if err := m.script.SetRaw(op.ID(), after); err != nil {
		m.err = err
		return cmd
	}
	return tea.Batch(cmd, m.debounce(m.editKey))
}

func (m *Model) handleResultsMode(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopRun()
		return tea.Quit
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Focus):
		m.mode = ModeNormal
	case key.Matches(msg, m.keys.Left):
		m.moveWordCursor(-1, false)
	case key.Matches(msg, m.keys.Right):
		m.moveWordCursor(1, false)
	case key.Matches(msg, m.keys.Up):
		m.moveWordCursor(-1, true)
	case key.Matches(msg, m.keys.Down):
		m.moveWordCursor(1, true)
	case key.Matches(msg, m.keys.Enter):
		m.openPopup()
	case key.Matches(msg, m.keys.Run):
		return m.run()
	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp
	}
	m.updateResultsView()
	return nil
}

// moveWordCursor moves by step words, or to the next editable word when
// editable is set.
func (m *Model) moveWordCursor(step int, editable bool) {
	for i := m.wordCursor + step; i >= 0 && i < len(m.words); i += step {
		if !editable || m.words[i].Editable {
			m.wordCursor = i
			return
		}
	}
}

func (m *Model) handleWordMode(msg tea.KeyMsg) tea.Cmd {
	p := m.popup
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.popup = nil
		m.mode = ModeResults
	case key.Matches(msg, m.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if p.cursor < p.rows()-1 {
			p.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if p.cursor < len(p.checked) {
			p.checked[p.cursor] = !p.checked[p.cursor]
		} else if i := p.cursor - len(p.checked); i < len(p.custom) {
			p.custom = append(p.custom[:i], p.custom[i+1:]...)
			p.cursor = min(p.cursor, max(0, p.rows()-1))
		}
	case key.Matches(msg, m.keys.Custom):
		m.mode = ModeCustom
		m.customInput.Reset()
		return m.customInput.Focus()
	case key.Matches(msg, m.keys.Apply):
		return m.applyPopup()
	}
	return nil
}

func (m *Model) handleCustomMode(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.customInput.Blur()
		m.mode = ModeWord
		return nil
	case msg.Type == tea.KeyEnter:
		if text := m.customInput.Value(); text != "" {
			m.popup.custom = append(m.popup.custom, text)
		}
		m.customInput.Blur()
		m.mode = ModeWord
		return nil
	}
	var cmd tea.Cmd
	m.customInput, cmd = m.customInput.Update(msg)
	return cmd
}

func (m *Model) handleSaveAsMode(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.nameInput.Blur()
		m.mode = ModeNormal
		return nil
	case msg.Type == tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		out, err := m.container.SaveScriptUseCase().Execute(context.Background(), usecase.SaveScriptInput{
			Script: m.script,
			Name:   name,
		})
		if err != nil {
			m.err = err
			return nil
		}
		m.nameInput.Blur()
		m.mode = ModeNormal
		m.scriptName = out.Name
		m.notice = fmt.Sprintf("saved %s (%d operations)", out.Name, out.Operations)
		return nil
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return cmd
}

func (m *Model) handleConfirmMode(msg tea.KeyMsg) tea.Cmd {
	action := m.confirmAction
	m.mode = ModeNormal
	m.confirmAction = ConfirmNone
	if !key.Matches(msg, m.keys.Confirm) {
		return nil
	}

	op := m.SelectedOp()
	if op == nil {
		return nil
	}
	switch action {
	case ConfirmDelete:
		if _, err := m.script.RemoveOperation(op.ID()); err != nil {
			m.err = err
		}
	case ConfirmRemoveOption:
		b, ok := op.Branch()
		if !ok {
			return nil
		}
		if err := m.script.RemoveOption(op.ID(), b.Selected); err != nil {
			m.err = err
		}
	case ConfirmNone:
	}
	return nil
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Quit) {
		m.mode = ModeNormal
	}
	return nil
}

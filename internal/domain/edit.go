package domain

import (
	"fmt"
	"strings"
)

// EditSelection is the user's choice of alternatives for one generated word.
type EditSelection struct {
	OperationKey string
	Tokens       []Token
	CustomTexts  []string
	Index        int
}

// EditOutcome describes the rewrite performed by ApplyEdit.
type EditOutcome struct {
	// Text replaces the edited completion and holds the words before Index.
	// It is nil when the edit starts at the first word.
	Text *Operation
	// Branch follows Text with one option per alternative.
	Branch *Operation
	// Untokenized lists the custom-text leaves that still need tokenizing.
	Untokenized []*Operation
}

// ApplyEdit rewrites the tree around a generated word: the completion that
// produced it is replaced by the text generated before the word, followed by
// a branch with one option per chosen alternative. An edit of the first word
// replaces the completion by the branch alone. Ids are renumbered.
func (s *Script) ApplyEdit(res *Results, sel EditSelection) (EditOutcome, error) {
	out, ok := res.Output(sel.OperationKey)
	if !ok {
		return EditOutcome{}, fmt.Errorf("%w: key %s", ErrUnknownOutput, sel.OperationKey)
	}
	if out.Name != OpCompletion {
		return EditOutcome{}, fmt.Errorf("%w: %s output", ErrNotEditable, out.Name)
	}
	if sel.Index < 0 || sel.Index >= len(out.Words) {
		return EditOutcome{}, fmt.Errorf("%w: %d of %d", ErrWordOutOfRange, sel.Index, len(out.Words))
	}
	op, err := s.ByKey(sel.OperationKey)
	if err != nil {
		return EditOutcome{}, err
	}

	var outcome EditOutcome
	var options []*OperationList
	seen := make(map[Token]bool)
	for _, t := range sel.Tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		leaf := NewText(RoleAssistant, res.Lookup(t), []Token{t})
		options = append(options, NewOperationList(RoleAssistant, leaf))
	}
	for _, text := range sel.CustomTexts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		leaf := NewText(RoleAssistant, text, nil)
		options = append(options, NewOperationList(RoleAssistant, leaf))
		outcome.Untokenized = append(outcome.Untokenized, leaf)
	}
	if len(options) == 0 {
		return EditOutcome{}, ErrEmptyEdit
	}

	outcome.Branch = NewBranch(RoleAssistant, options...)
	if sel.Index == 0 {
		if _, err := s.ReplaceOperation(op.id, outcome.Branch); err != nil {
			return EditOutcome{}, err
		}
		return outcome, nil
	}

	prefix := out.Words[:sel.Index]
	tokens := make([]Token, 0, len(prefix))
	var raw strings.Builder
	for _, w := range prefix {
		tokens = append(tokens, w.Token)
		raw.WriteString(res.Lookup(w.Token))
	}
	outcome.Text = NewText(op.Role(), raw.String(), tokens)

	l, ok := s.index.Parent(op.id)
	if !ok {
		return EditOutcome{}, fmt.Errorf("%w: #%d", ErrOperationNotFound, op.id)
	}
	ref, err := s.refOf(l)
	if err != nil {
		return EditOutcome{}, err
	}
	if err := s.InsertOperation(ref, op.id, outcome.Branch); err != nil {
		return EditOutcome{}, err
	}
	if _, err := s.ReplaceOperation(op.id, outcome.Text); err != nil {
		_, _ = s.RemoveOperation(outcome.Branch.id)
		return EditOutcome{}, err
	}
	return outcome, nil
}

// refOf returns the address of a list attached to the script.
func (s *Script) refOf(l *OperationList) (ListRef, error) {
	owner, ok := s.index.OwnerOf(l)
	if !ok {
		return ListRef{}, fmt.Errorf("%w: list is not attached to the script", ErrSnapshotDrift)
	}
	if owner.IsRoot() {
		return Root, nil
	}
	return ListRef{BranchID: owner.Branch.id, Option: owner.Option}, nil
}

// RefOf returns the address of the list that contains the operation with
// the given id.
func (s *Script) RefOf(id int) (ListRef, error) {
	l, ok := s.index.Parent(id)
	if !ok {
		return ListRef{}, fmt.Errorf("%w: #%d", ErrOperationNotFound, id)
	}
	return s.refOf(l)
}

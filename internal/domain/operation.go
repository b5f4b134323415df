// Package domain contains the prompt-script model: operations, the operation
// tree, its renumbering index, the wire protocol, result matching and the
// streaming token assembler.
package domain

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Role is the chat role an operation is fed under.
type Role string

// Valid roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AllRoles returns all roles in display order.
func AllRoles() []Role {
	return []Role{RoleSystem, RoleUser, RoleAssistant}
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Next returns the role after r in display order, wrapping around.
func (r Role) Next() Role {
	roles := AllRoles()
	i := slices.Index(roles, r)
	return roles[(i+1)%len(roles)]
}

// Kind tags the operation variant.
type Kind string

// Operation kinds.
const (
	KindText       Kind = "text"
	KindCompletion Kind = "completion"
	KindBranch     Kind = "branch"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindCompletion, KindBranch:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Token is a token identifier produced by the tokenizer.
type Token int

// DefaultMaxTokens is the completion length used for new completion operations.
const DefaultMaxTokens = 300

// Params is the variant payload of an operation.
// Implementations are *TextParams, *CompletionParams and *BranchParams.
//
// go-sumtype:decl Params
type Params interface {
	Kind() Kind
	sealed()
}

// TextParams feeds a fixed piece of text.
// Tokenized is the submit payload; Raw is only shown to the user.
type TextParams struct {
	Raw       string
	Tokenized []Token
}

// Kind returns KindText.
func (*TextParams) Kind() Kind { return KindText }
func (*TextParams) sealed()    {}

// CompletionParams asks the model to generate up to MaxTokens tokens.
type CompletionParams struct {
	MaxTokens int
}

// Kind returns KindCompletion.
func (*CompletionParams) Kind() Kind { return KindCompletion }
func (*CompletionParams) sealed()    {}

// BranchParams forks the script into parallel sub-scripts.
// Options holds the live child lists; options mirrors them in serializable
// form and is re-derived whenever a child list changes.
type BranchParams struct {
	Options  []*OperationList
	options  []OptionSnapshot
	Selected int
}

// Kind returns KindBranch.
func (*BranchParams) Kind() Kind { return KindBranch }
func (*BranchParams) sealed()    {}

// Snapshot returns the serializable mirror of the options.
func (p *BranchParams) Snapshot() []OptionSnapshot {
	return slices.Clone(p.options)
}

// rederive rebuilds the whole options mirror from the live lists.
func (p *BranchParams) rederive() {
	p.options = make([]OptionSnapshot, len(p.Options))
	for i, l := range p.Options {
		p.options[i] = OptionSnapshot{Operations: l.Snapshot()}
	}
}

// rederiveOption refreshes the mirror of a single option.
func (p *BranchParams) rederiveOption(i int) error {
	if len(p.options) != len(p.Options) || i < 0 || i >= len(p.Options) {
		return fmt.Errorf("%w: branch has %d options, mirror has %d", ErrSnapshotDrift, len(p.Options), len(p.options))
	}
	p.options[i] = OptionSnapshot{Operations: p.Options[i].Snapshot()}
	return nil
}

// TokenizeStatus tracks the asynchronous tokenization of a text operation.
type TokenizeStatus int

// Tokenize states.
const (
	TokenizeIdle TokenizeStatus = iota
	TokenizePending
	TokenizeFailed
)

// String returns the string representation of the status.
func (s TokenizeStatus) String() string {
	switch s {
	case TokenizeIdle:
		return "idle"
	case TokenizePending:
		return "pending"
	case TokenizeFailed:
		return "failed"
	}
	return "unknown"
}

// Operation is one node of a script.
// Its id is a positional label reassigned after every structural edit;
// its key is stable for the lifetime of the node.
// Fields are ordered to minimize memory padding.
type Operation struct {
	params      Params
	tokenizeErr error
	key         string
	role        Role
	id          int
	tokenizeSeq uint64
	tokenize    TokenizeStatus
	valid       bool
}

func newOperation(role Role, params Params) *Operation {
	op := &Operation{
		key:    uuid.NewString(),
		role:   role,
		params: params,
	}
	op.checkValid()
	return op
}

// NewText creates a text operation.
func NewText(role Role, raw string, tokenized []Token) *Operation {
	if tokenized == nil {
		tokenized = []Token{}
	}
	return newOperation(role, &TextParams{Raw: raw, Tokenized: slices.Clone(tokenized)})
}

// NewCompletion creates a completion operation.
// A non-positive maxTokens selects DefaultMaxTokens.
func NewCompletion(role Role, maxTokens int) *Operation {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return newOperation(role, &CompletionParams{MaxTokens: maxTokens})
}

// NewBranch creates a branch operation with the given options.
func NewBranch(role Role, options ...*OperationList) *Operation {
	p := &BranchParams{Options: slices.Clone(options)}
	if p.Options == nil {
		p.Options = []*OperationList{}
	}
	p.rederive()
	return newOperation(role, p)
}

// NewOperation creates an operation of the given kind with default parameters.
// Branches start with one option seeded with an empty text operation.
func NewOperation(kind Kind, role Role) (*Operation, error) {
	switch kind {
	case KindText:
		return NewText(role, "", nil), nil
	case KindCompletion:
		return NewCompletion(role, DefaultMaxTokens), nil
	case KindBranch:
		return NewBranch(role, NewOperationList(role)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}

// ID returns the positional id assigned by the last renumbering (0 if detached).
func (o *Operation) ID() int { return o.id }

// Key returns the stable identity of the node.
func (o *Operation) Key() string { return o.key }

// Role returns the operation role.
func (o *Operation) Role() Role { return o.role }

// Kind returns the variant tag.
func (o *Operation) Kind() Kind { return o.params.Kind() }

// Params returns the variant payload. Callers must mutate through Script.
func (o *Operation) Params() Params { return o.params }

// Valid reports whether the operation can be submitted.
func (o *Operation) Valid() bool { return o.valid }

// TokenizeStatus returns the tokenization state and the last failure, if any.
func (o *Operation) TokenizeStatus() (TokenizeStatus, error) {
	return o.tokenize, o.tokenizeErr
}

// Text returns the text payload if this is a text operation.
func (o *Operation) Text() (*TextParams, bool) {
	p, ok := o.params.(*TextParams)
	return p, ok
}

// Completion returns the completion payload if this is a completion operation.
func (o *Operation) Completion() (*CompletionParams, bool) {
	p, ok := o.params.(*CompletionParams)
	return p, ok
}

// Branch returns the branch payload if this is a branch operation.
func (o *Operation) Branch() (*BranchParams, bool) {
	p, ok := o.params.(*BranchParams)
	return p, ok
}

func (o *Operation) setID(id int) { o.id = id }

// checkValid recomputes valid from the current parameters and reports whether
// it changed.
func (o *Operation) checkValid() bool {
	before := o.valid
	switch p := o.params.(type) {
	case *TextParams:
		o.valid = len(p.Tokenized) > 0
	case *CompletionParams:
		o.valid = true
	case *BranchParams:
		o.valid = len(p.Options) > 0
		for _, l := range p.Options {
			if !l.IsValid() {
				o.valid = false
				break
			}
		}
	}
	return before != o.valid
}

// Triple returns the serializable [type, role, parameters] form.
func (o *Operation) Triple() Triple {
	t := Triple{Kind: o.Kind(), Role: o.role}
	switch p := o.params.(type) {
	case *TextParams:
		t.Text = &TextParams{Raw: p.Raw, Tokenized: slices.Clone(p.Tokenized)}
	case *CompletionParams:
		t.Completion = &CompletionParams{MaxTokens: p.MaxTokens}
	case *BranchParams:
		t.Options = p.Snapshot()
	}
	return t
}

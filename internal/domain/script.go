package domain

import (
	"fmt"
	"slices"
)

// Script is the whole operation tree: a top-level list whose branches nest
// further lists to any depth. All mutation goes through Script so that ids,
// snapshots and validity are never observed stale.
//
// Script is not safe for concurrent use; it is owned by a single event loop.
type Script struct {
	root  *OperationList
	subs  map[int]func(Event)
	index Index
	next  int
}

// ListRef addresses an operation list: the top level when BranchID is zero,
// otherwise option Option of the branch with id BranchID.
type ListRef struct {
	BranchID int
	Option   int
}

// Root addresses the top-level list.
var Root = ListRef{}

// NewScript creates a script from the given top-level operations.
func NewScript(ops ...*Operation) *Script {
	s := &Script{root: newRootList(ops...), subs: make(map[int]func(Event))}
	s.renumber()
	return s
}

// DefaultScript returns the starting script: a system prompt, a user prompt
// and an assistant completion.
func DefaultScript() *Script {
	return NewScript(
		NewText(RoleSystem, "", nil),
		NewText(RoleUser, "", nil),
		NewCompletion(RoleAssistant, DefaultMaxTokens),
	)
}

// ScriptFromTriples rebuilds a script from its persisted form.
func ScriptFromTriples(triples []Triple) (*Script, error) {
	ops, err := buildAll(triples)
	if err != nil {
		return nil, fmt.Errorf("restore script: %w", err)
	}
	return NewScript(ops...), nil
}

// Triples returns the persisted form of the top-level list.
func (s *Script) Triples() []Triple { return s.root.Snapshot() }

// Len returns the number of operations in the whole tree.
func (s *Script) Len() int { return s.index.Len() }

// Operations returns the top-level operations.
func (s *Script) Operations() []*Operation { return s.root.Operations() }

// Index returns the current id assignment. It is replaced after every
// structural change.
func (s *Script) Index() Index { return s.index }

// Get returns the operation with the given id.
func (s *Script) Get(id int) (*Operation, error) {
	op, ok := s.index.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrOperationNotFound, id)
	}
	return op, nil
}

// ByKey returns the operation with the given stable key.
func (s *Script) ByKey(key string) (*Operation, error) {
	op, ok := s.index.ByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: key %s", ErrOperationNotFound, key)
	}
	return op, nil
}

// Ready reports whether the script can be submitted: it is non-empty and every
// reachable operation is valid.
func (s *Script) Ready() bool {
	return s.root.Len() > 0 && s.root.IsValid()
}

// Invalid returns every reachable operation that is not valid, in id order.
func (s *Script) Invalid() []*Operation {
	var out []*Operation
	for _, op := range s.index.order {
		if !op.Valid() {
			out = append(out, op)
		}
	}
	return out
}

// Subscribe registers fn to be called after every change. The returned func
// removes the subscription.
func (s *Script) Subscribe(fn func(Event)) func() {
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

// AddOperation creates an operation of the given kind and inserts it into the
// list addressed by ref, at the end or right after afterID.
func (s *Script) AddOperation(ref ListRef, afterID int, kind Kind, role Role) (*Operation, error) {
	op, err := NewOperation(kind, role)
	if err != nil {
		return nil, err
	}
	if err := s.InsertOperation(ref, afterID, op); err != nil {
		return nil, err
	}
	return op, nil
}

// InsertOperation inserts a detached operation into the list addressed by ref.
func (s *Script) InsertOperation(ref ListRef, afterID int, op *Operation) error {
	if _, attached := s.index.ByKey(op.key); attached {
		return fmt.Errorf("insert #%d: operation already in script", op.id)
	}
	l, err := s.list(ref)
	if err != nil {
		return err
	}
	if err := l.insert(op, afterID); err != nil {
		return err
	}
	return s.structural(l, Event{OperationKey: op.key, Kind: EventAdded})
}

// RemoveOperation detaches the operation with the given id, together with any
// lists nested below it. The last operation of a branch option cannot be
// removed; remove the option instead.
func (s *Script) RemoveOperation(id int) (*Operation, error) {
	l, ok := s.index.Parent(id)
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrOperationNotFound, id)
	}
	if owner, _ := s.index.OwnerOf(l); !owner.IsRoot() && l.Len() == 1 {
		return nil, fmt.Errorf("%w: #%d", ErrLastOptionOperation, id)
	}
	op, err := l.remove(id)
	if err != nil {
		return nil, err
	}
	if err := s.structural(l, Event{OperationKey: op.key, Kind: EventRemoved}); err != nil {
		return nil, err
	}
	return op, nil
}

// ReplaceOperation swaps the operation with the given id for a detached one.
func (s *Script) ReplaceOperation(id int, op *Operation) (*Operation, error) {
	if _, attached := s.index.ByKey(op.key); attached {
		return nil, fmt.Errorf("replace #%d: operation already in script", id)
	}
	l, ok := s.index.Parent(id)
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrOperationNotFound, id)
	}
	old, err := l.replace(id, op)
	if err != nil {
		return nil, err
	}
	if err := s.structural(l, Event{OperationKey: op.key, Kind: EventReplaced}); err != nil {
		return nil, err
	}
	return old, nil
}

// SetRole changes the role of an operation. Text operations must be
// re-tokenized afterwards since the role is part of the tokenized text.
func (s *Script) SetRole(id int, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	op, err := s.Get(id)
	if err != nil {
		return err
	}
	op.role = role
	return s.updated(op, EventUpdated)
}

// SetRaw replaces the displayed text of a text operation. The tokenized
// payload is left untouched until a tokenize response arrives.
func (s *Script) SetRaw(id int, raw string) error {
	op, err := s.Get(id)
	if err != nil {
		return err
	}
	p, ok := op.Text()
	if !ok {
		return fmt.Errorf("%w: #%d", ErrNotText, id)
	}
	p.Raw = raw
	return s.updated(op, EventUpdated)
}

// SetMaxTokens changes the length limit of a completion operation.
func (s *Script) SetMaxTokens(id, maxTokens int) error {
	op, err := s.Get(id)
	if err != nil {
		return err
	}
	p, ok := op.Completion()
	if !ok {
		return fmt.Errorf("%w: #%d", ErrNotCompletion, id)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	p.MaxTokens = maxTokens
	return s.updated(op, EventUpdated)
}

// TokenizeRequest describes one tokenize call issued for a text operation.
// Seq orders requests for the same operation; only the latest is applied.
type TokenizeRequest struct {
	OperationKey string
	Text         string
	Seq          uint64
}

// BeginTokenize marks a text operation as pending and returns the request to
// send. Any request issued earlier for the same operation becomes stale.
func (s *Script) BeginTokenize(id int) (TokenizeRequest, error) {
	op, err := s.Get(id)
	if err != nil {
		return TokenizeRequest{}, err
	}
	p, ok := op.Text()
	if !ok {
		return TokenizeRequest{}, fmt.Errorf("%w: #%d", ErrNotText, id)
	}
	op.tokenizeSeq++
	op.tokenize = TokenizePending
	op.tokenizeErr = nil
	if err := s.updated(op, EventUpdated); err != nil {
		return TokenizeRequest{}, err
	}
	return TokenizeRequest{
		OperationKey: op.key,
		Text:         RoleWrap(op.role, p.Raw),
		Seq:          op.tokenizeSeq,
	}, nil
}

// ApplyTokenized installs a tokenize response. It reports false without error
// when seq has been superseded by a newer request for the same operation.
func (s *Script) ApplyTokenized(key string, seq uint64, tokens []Token) (bool, error) {
	op, err := s.ByKey(key)
	if err != nil {
		return false, err
	}
	p, ok := op.Text()
	if !ok {
		return false, fmt.Errorf("%w: #%d", ErrNotText, op.id)
	}
	if seq < op.tokenizeSeq {
		return false, nil
	}
	if tokens == nil {
		tokens = []Token{}
	}
	p.Tokenized = slices.Clone(tokens)
	op.tokenize = TokenizeIdle
	op.tokenizeErr = nil
	return true, s.updated(op, EventTokenized)
}

// FailTokenize records a failed tokenize call. Failures of superseded
// requests are ignored.
func (s *Script) FailTokenize(key string, seq uint64, cause error) (bool, error) {
	op, err := s.ByKey(key)
	if err != nil {
		return false, err
	}
	if seq < op.tokenizeSeq {
		return false, nil
	}
	op.tokenize = TokenizeFailed
	op.tokenizeErr = cause
	return true, s.updated(op, EventUpdated)
}

// AddOption appends a new option to a branch, seeded with an empty text
// operation in the branch role, and returns its position.
func (s *Script) AddOption(branchID int) (int, error) {
	op, b, err := s.branch(branchID)
	if err != nil {
		return 0, err
	}
	b.Options = append(b.Options, NewOperationList(op.role))
	b.rederive()
	return len(b.Options) - 1, s.optionsChanged(op)
}

// RemoveOption deletes option i of a branch and everything in it.
func (s *Script) RemoveOption(branchID, i int) error {
	op, b, err := s.branch(branchID)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(b.Options) {
		return fmt.Errorf("%w: #%d option %d", ErrOptionNotFound, branchID, i+1)
	}
	b.Options = slices.Delete(b.Options, i, i+1)
	if b.Selected >= len(b.Options) {
		b.Selected = max(0, len(b.Options)-1)
	}
	b.rederive()
	return s.optionsChanged(op)
}

// SelectOption changes which option of a branch is displayed. It has no effect
// on validity or on what is submitted.
func (s *Script) SelectOption(branchID, i int) error {
	op, b, err := s.branch(branchID)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(b.Options) {
		return fmt.Errorf("%w: #%d option %d", ErrOptionNotFound, branchID, i+1)
	}
	b.Selected = i
	s.notify(Event{OperationKey: op.key, Kind: EventOptionSelected})
	return nil
}

// RoleWrap formats text the way the model expects a chat turn.
func RoleWrap(role Role, text string) string {
	return "<|" + string(role) + "|>\n" + text + "<|end|>\n"
}

func (s *Script) branch(id int) (*Operation, *BranchParams, error) {
	op, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	b, ok := op.Branch()
	if !ok {
		return nil, nil, fmt.Errorf("%w: #%d", ErrNotBranch, id)
	}
	return op, b, nil
}

func (s *Script) list(ref ListRef) (*OperationList, error) {
	if ref.BranchID == 0 {
		return s.root, nil
	}
	_, b, err := s.branch(ref.BranchID)
	if err != nil {
		return nil, err
	}
	if ref.Option < 0 || ref.Option >= len(b.Options) {
		return nil, fmt.Errorf("%w: #%d option %d", ErrOptionNotFound, ref.BranchID, ref.Option+1)
	}
	return b.Options[ref.Option], nil
}

func (s *Script) renumber() {
	s.index = Renumber(s.root)
}

// structural renumbers the tree after a change to l and propagates ev.
func (s *Script) structural(l *OperationList, ev Event) error {
	s.renumber()
	return s.propagate(l, ev)
}

// updated re-validates op in place and propagates the change from its list.
func (s *Script) updated(op *Operation, kind EventKind) error {
	l, ok := s.index.Parent(op.id)
	if !ok {
		return fmt.Errorf("%w: #%d", ErrOperationNotFound, op.id)
	}
	ev := Event{OperationKey: op.key, Kind: kind, ValidityChanged: op.checkValid()}
	return s.propagate(l, ev)
}

// optionsChanged handles a change to the option set of a branch.
func (s *Script) optionsChanged(op *Operation) error {
	s.renumber()
	l, ok := s.index.Parent(op.id)
	if !ok {
		return fmt.Errorf("%w: #%d", ErrOperationNotFound, op.id)
	}
	ev := Event{OperationKey: op.key, Kind: EventOptionsChanged, ValidityChanged: op.checkValid()}
	return s.propagate(l, ev)
}

// propagate hands ev to l and then to every enclosing list up to the top
// level. Each owning branch refreshes the mirror of the option that changed
// and re-checks its own validity on the way.
func (s *Script) propagate(l *OperationList, ev Event) error {
	for {
		if err := l.handle(ev); err != nil {
			return err
		}
		owner, ok := s.index.OwnerOf(l)
		if !ok {
			return fmt.Errorf("%w: list is not attached to the script", ErrSnapshotDrift)
		}
		if owner.IsRoot() {
			break
		}
		b, _ := owner.Branch.Branch()
		if err := b.rederiveOption(owner.Option); err != nil {
			return err
		}
		if owner.Branch.checkValid() {
			ev.ValidityChanged = true
		}
		l, ok = s.index.Parent(owner.Branch.id)
		if !ok {
			return fmt.Errorf("%w: #%d", ErrOperationNotFound, owner.Branch.id)
		}
	}
	s.notify(ev)
	return nil
}

func (s *Script) notify(ev Event) {
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s.subs[k](ev)
	}
}

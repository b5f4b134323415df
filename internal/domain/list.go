package domain

import (
	"fmt"
	"slices"
)

// OperationList is an ordered sequence of operations: either the top level of
// a script or one option of a branch. It keeps a serializable snapshot of its
// operations that is re-derived on every change.
type OperationList struct {
	ops      []*Operation
	snapshot []Triple
}

// NewOperationList creates a branch option list. An empty list is seeded with
// an empty text operation using seedRole.
func NewOperationList(seedRole Role, ops ...*Operation) *OperationList {
	if len(ops) == 0 {
		ops = []*Operation{NewText(seedRole, "", nil)}
	}
	l := &OperationList{ops: slices.Clone(ops)}
	l.rederive()
	return l
}

// newRootList creates a top-level list, which is never seeded.
func newRootList(ops ...*Operation) *OperationList {
	l := &OperationList{ops: slices.Clone(ops)}
	if l.ops == nil {
		l.ops = []*Operation{}
	}
	l.rederive()
	return l
}

// Operations returns the operations in order.
func (l *OperationList) Operations() []*Operation {
	return slices.Clone(l.ops)
}

// Len returns the number of operations in the list.
func (l *OperationList) Len() int { return len(l.ops) }

// At returns the operation at position i.
func (l *OperationList) At(i int) *Operation { return l.ops[i] }

// IsValid reports whether every operation in the list is valid.
// An empty list is valid.
func (l *OperationList) IsValid() bool {
	for _, op := range l.ops {
		if !op.Valid() {
			return false
		}
	}
	return true
}

// Snapshot returns the serializable form of the list.
func (l *OperationList) Snapshot() []Triple {
	return slices.Clone(l.snapshot)
}

// indexOf returns the position of the operation with the given id, or -1.
func (l *OperationList) indexOf(id int) int {
	return slices.IndexFunc(l.ops, func(op *Operation) bool { return op.id == id })
}

// insert adds op at the end, or right after the operation with afterID when
// afterID is non-zero.
func (l *OperationList) insert(op *Operation, afterID int) error {
	pos := len(l.ops)
	if afterID != 0 {
		i := l.indexOf(afterID)
		if i < 0 {
			return fmt.Errorf("%w: insert after #%d", ErrOperationNotFound, afterID)
		}
		pos = i + 1
	}
	l.ops = slices.Insert(l.ops, pos, op)
	return nil
}

// remove detaches the operation with the given id.
func (l *OperationList) remove(id int) (*Operation, error) {
	i := l.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: #%d", ErrOperationNotFound, id)
	}
	op := l.ops[i]
	l.ops = slices.Delete(l.ops, i, i+1)
	return op, nil
}

// replace swaps the operation with the given id for op.
func (l *OperationList) replace(id int, op *Operation) (*Operation, error) {
	i := l.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: #%d", ErrOperationNotFound, id)
	}
	old := l.ops[i]
	l.ops[i] = op
	return old, nil
}

// handle consumes an event from a child and re-derives the snapshot.
func (l *OperationList) handle(Event) error {
	l.rederive()
	return l.checkMirror()
}

func (l *OperationList) rederive() {
	l.snapshot = make([]Triple, len(l.ops))
	for i, op := range l.ops {
		l.snapshot[i] = op.Triple()
	}
}

// checkMirror asserts that the snapshot matches the live operations.
func (l *OperationList) checkMirror() error {
	if len(l.snapshot) != len(l.ops) {
		return fmt.Errorf("%w: list has %d operations, snapshot has %d", ErrSnapshotDrift, len(l.ops), len(l.snapshot))
	}
	for i, op := range l.ops {
		if l.snapshot[i].Kind != op.Kind() {
			return fmt.Errorf("%w: position %d is %s, snapshot says %s", ErrSnapshotDrift, i, op.Kind(), l.snapshot[i].Kind)
		}
	}
	return nil
}

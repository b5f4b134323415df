package domain

// EventKind classifies a change inside a script.
type EventKind int

// Event kinds.
const (
	EventAdded EventKind = iota
	EventRemoved
	EventReplaced
	EventUpdated
	EventTokenized
	EventOptionsChanged
	EventOptionSelected
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventReplaced:
		return "replaced"
	case EventUpdated:
		return "updated"
	case EventTokenized:
		return "tokenized"
	case EventOptionsChanged:
		return "options_changed"
	case EventOptionSelected:
		return "option_selected"
	}
	return "unknown"
}

// Structural reports whether the event changed the shape of the tree,
// invalidating every previously held id.
func (k EventKind) Structural() bool {
	switch k {
	case EventAdded, EventRemoved, EventReplaced, EventOptionsChanged:
		return true
	}
	return false
}

// Event is emitted by a mutated operation and consumed by each enclosing list
// on its way to the top level. Subscribers of a script receive it once, after
// every enclosing snapshot has been re-derived.
type Event struct {
	OperationKey string
	Kind         EventKind
	// ValidityChanged is set when the mutated operation, or any enclosing
	// branch, flipped its valid flag.
	ValidityChanged bool
}

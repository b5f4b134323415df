package domain

// Owner identifies the branch option that owns an operation list.
// A zero Owner (nil Branch) is the top level of the script.
type Owner struct {
	Branch *Operation
	Option int
}

// IsRoot reports whether the owner is the top level of the script.
func (o Owner) IsRoot() bool { return o.Branch == nil }

// Index is an immutable snapshot of the id assignment of a script.
// It is rebuilt wholesale after every structural edit; ids held across an
// edit must be re-resolved through a fresh Index.
type Index struct {
	byID    map[int]*Operation
	byKey   map[string]*Operation
	parents map[int]*OperationList
	owners  map[*OperationList]Owner
	order   []*Operation
}

// Renumber assigns ids 1..N to every operation reachable from root in
// depth-first, option-major order and returns the resulting index.
func Renumber(root *OperationList) Index {
	idx := Index{
		byID:    make(map[int]*Operation),
		byKey:   make(map[string]*Operation),
		parents: make(map[int]*OperationList),
		owners:  map[*OperationList]Owner{root: {}},
	}
	idx.visitList(root)
	return idx
}

func (idx *Index) visitList(l *OperationList) {
	for _, op := range l.ops {
		id := len(idx.order) + 1
		op.setID(id)
		idx.order = append(idx.order, op)
		idx.byID[id] = op
		idx.byKey[op.key] = op
		idx.parents[id] = l

		if b, ok := op.Branch(); ok {
			for i, child := range b.Options {
				idx.owners[child] = Owner{Branch: op, Option: i}
				idx.visitList(child)
			}
		}
	}
}

// Len returns the number of indexed operations.
func (idx Index) Len() int { return len(idx.order) }

// Get returns the operation with the given id.
func (idx Index) Get(id int) (*Operation, bool) {
	op, ok := idx.byID[id]
	return op, ok
}

// ByKey returns the operation with the given stable key.
func (idx Index) ByKey(key string) (*Operation, bool) {
	op, ok := idx.byKey[key]
	return op, ok
}

// Parent returns the list that directly contains the operation with the given id.
func (idx Index) Parent(id int) (*OperationList, bool) {
	l, ok := idx.parents[id]
	return l, ok
}

// OwnerOf returns the branch option owning l.
func (idx Index) OwnerOf(l *OperationList) (Owner, bool) {
	o, ok := idx.owners[l]
	return o, ok
}

// Depth returns the branch nesting depth of the operation (0 at top level).
func (idx Index) Depth(id int) int {
	depth := 0
	for {
		l, ok := idx.parents[id]
		if !ok {
			return depth
		}
		owner := idx.owners[l]
		if owner.IsRoot() {
			return depth
		}
		depth++
		id = owner.Branch.id
	}
}

// Order returns all operations in id order.
func (idx Index) Order() []*Operation {
	out := make([]*Operation, len(idx.order))
	copy(out, idx.order)
	return out
}

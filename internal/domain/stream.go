package domain

import (
	"container/heap"
	"fmt"
	"maps"
)

// TokenArrival is one streamed token position for a submitted leaf.
// Arrivals for the same request may come in any order.
type TokenArrival struct {
	TokenMap   map[Token]string
	RequestID  string
	Candidates []Logit
	Index      int
}

// Assembly reports what an arrival changed.
type Assembly struct {
	// Rendered are the words appended by this arrival, in index order.
	Rendered []*Word
	// Recolored is set when the scale widened and every rendered word,
	// across all outputs, received a new color.
	Recolored bool
}

// Assembler turns out-of-order token arrivals into gap-free, in-order words
// per operation while keeping one global color scale.
type Assembler struct {
	res     *Results
	streams map[string]*tokenStream
}

type tokenStream struct {
	out     *OperationOutput
	target  SubmitTarget
	pending arrivalHeap
	seen    map[int]bool
	next    int
	closed  bool
}

// NewAssembler prepares empty outputs for every operation in sub.
func NewAssembler(sub *Submission) *Assembler {
	a := &Assembler{res: newResults(), streams: make(map[string]*tokenStream)}
	a.res.Outputs = a.skeleton(sub, sub.Request.Operations)
	return a
}

func (a *Assembler) skeleton(sub *Submission, reqs []OperationRequest) []*OperationOutput {
	outs := make([]*OperationOutput, 0, len(reqs))
	for _, req := range reqs {
		target, _ := sub.Target(req.ID)
		out := &OperationOutput{OperationKey: target.OperationKey, RequestID: req.ID, Name: req.Name}
		if req.Branch != nil {
			out.Forks = make([][]*OperationOutput, len(req.Branch.Forks))
			for i, fork := range req.Branch.Forks {
				out.Forks[i] = a.skeleton(sub, fork)
			}
		} else {
			a.streams[req.ID] = &tokenStream{out: out, target: target, seen: make(map[int]bool)}
		}
		a.res.byKey[out.OperationKey] = out
		outs = append(outs, out)
	}
	return outs
}

// Add buffers an arrival and renders every word that has become contiguous.
// Duplicate positions are ignored.
func (a *Assembler) Add(t TokenArrival) (Assembly, error) {
	s, ok := a.streams[t.RequestID]
	if !ok {
		return Assembly{}, fmt.Errorf("%w: request id %s", ErrUnknownOutput, t.RequestID)
	}
	if s.closed {
		return Assembly{}, fmt.Errorf("%w: %s", ErrStreamClosed, t.RequestID)
	}
	if t.Index < s.next || s.seen[t.Index] {
		return Assembly{}, nil
	}
	if s.target.Kind == KindText && t.Index >= len(s.target.Fed) {
		return Assembly{}, fmt.Errorf("%w: %s position %d beyond %d fed tokens", ErrResultShapeMismatch, t.RequestID, t.Index, len(s.target.Fed))
	}

	maps.Copy(a.res.TokenMap, t.TokenMap)
	widened := a.res.Scale.ObserveAll(t.Candidates)
	s.seen[t.Index] = true
	heap.Push(&s.pending, t)

	var rendered []*Word
	for s.pending.Len() > 0 && s.pending[0].Index == s.next {
		next := heap.Pop(&s.pending).(TokenArrival)
		delete(s.seen, next.Index)
		w, err := newWord(s.target, next.RequestID, next.Index, next.Candidates, a.res)
		if err != nil {
			return Assembly{}, err
		}
		s.out.Words = append(s.out.Words, w)
		s.next++
		rendered = append(rendered, w)
	}

	if widened {
		a.res.Recolor()
	} else {
		for _, w := range rendered {
			w.Color = a.res.Scale.Color(w.Logit)
		}
	}
	return Assembly{Rendered: rendered, Recolored: widened}, nil
}

// Close marks the end of the stream for one request. It fails if positions
// are still missing: a gap before buffered arrivals, or fed tokens that never
// came back.
func (a *Assembler) Close(requestID string) error {
	s, ok := a.streams[requestID]
	if !ok {
		return fmt.Errorf("%w: request id %s", ErrUnknownOutput, requestID)
	}
	s.closed = true
	if s.incomplete() {
		return fmt.Errorf("%w: %s is missing position %d", ErrStreamClosed, requestID, s.next)
	}
	return nil
}

// incomplete reports whether positions are missing. Only fed text has a
// known length; a completion may stop early.
func (s *tokenStream) incomplete() bool {
	if s.pending.Len() > 0 {
		return true
	}
	return s.target.Kind == KindText && s.next < len(s.target.Fed)
}

// Pending returns the number of buffered arrivals waiting for a gap to fill.
func (a *Assembler) Pending() int {
	n := 0
	for _, s := range a.streams {
		n += s.pending.Len()
	}
	return n
}

// Done reports whether every leaf stream has been closed with nothing pending.
func (a *Assembler) Done() bool {
	for _, s := range a.streams {
		if !s.closed || s.incomplete() {
			return false
		}
	}
	return true
}

// Results returns the outputs assembled so far. The value is live: later
// arrivals keep extending it.
func (a *Assembler) Results() *Results { return a.res }

// arrivalHeap orders buffered arrivals by index.
type arrivalHeap []TokenArrival

func (h arrivalHeap) Len() int           { return len(h) }
func (h arrivalHeap) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h arrivalHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *arrivalHeap) Push(x any) { *h = append(*h, x.(TokenArrival)) }

func (h *arrivalHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

package domain

import (
	"fmt"
	"maps"
	"strings"
)

// endMarker closes a chat turn in generated text.
const endMarker = "<|end|>"

// Word is one rendered token of a result.
// Fields are ordered to minimize memory padding.
type Word struct {
	Candidates   []Logit
	OperationKey string
	RequestID    string
	Text         string
	Color        string
	Logit        float64
	Index        int
	Token        Token
	Editable     bool
	BreakBefore  bool
	BreakAfter   bool
}

// OperationOutput is the result attached to one submitted operation.
// Leaves carry Words; branches carry one output list per fork.
type OperationOutput struct {
	OperationKey string
	RequestID    string
	Name         string
	Words        []*Word
	Forks        [][]*OperationOutput
}

// Text returns the concatenated text of the output's words.
func (o *OperationOutput) Text() string {
	var b strings.Builder
	for _, w := range o.Words {
		b.WriteString(w.Text)
	}
	return b.String()
}

// Results is a response distributed back onto the submitted operations.
type Results struct {
	TokenMap map[Token]string
	byKey    map[string]*OperationOutput
	Outputs  []*OperationOutput
	Scale    Scale
}

func newResults() *Results {
	return &Results{
		TokenMap: make(map[Token]string),
		byKey:    make(map[string]*OperationOutput),
	}
}

// Output returns the output attached to the operation with the given key.
func (r *Results) Output(key string) (*OperationOutput, bool) {
	o, ok := r.byKey[key]
	return o, ok
}

// Walk visits every output depth first with its branch nesting depth.
func (r *Results) Walk(fn func(o *OperationOutput, depth int)) {
	var visit func([]*OperationOutput, int)
	visit = func(outs []*OperationOutput, depth int) {
		for _, o := range outs {
			fn(o, depth)
			for _, fork := range o.Forks {
				visit(fork, depth+1)
			}
		}
	}
	visit(r.Outputs, 0)
}

// Recolor recomputes every word color from the current scale.
func (r *Results) Recolor() {
	r.Walk(func(o *OperationOutput, _ int) {
		for _, w := range o.Words {
			w.Color = r.Scale.Color(w.Logit)
		}
	})
}

// Clone returns a deep copy that shares nothing mutable with r. Words are
// copied; candidate slices are shared since they are never modified.
func (r *Results) Clone() *Results {
	c := newResults()
	maps.Copy(c.TokenMap, r.TokenMap)
	c.Scale = r.Scale
	var clone func([]*OperationOutput) []*OperationOutput
	clone = func(outs []*OperationOutput) []*OperationOutput {
		cp := make([]*OperationOutput, len(outs))
		for i, o := range outs {
			n := &OperationOutput{
				OperationKey: o.OperationKey,
				RequestID:    o.RequestID,
				Name:         o.Name,
				Words:        make([]*Word, len(o.Words)),
			}
			for j, w := range o.Words {
				wc := *w
				n.Words[j] = &wc
			}
			if o.Forks != nil {
				n.Forks = make([][]*OperationOutput, len(o.Forks))
				for k, fork := range o.Forks {
					n.Forks[k] = clone(fork)
				}
			}
			if n.OperationKey != "" {
				c.byKey[n.OperationKey] = n
			}
			cp[i] = n
		}
		return cp
	}
	c.Outputs = clone(r.Outputs)
	return c
}

// Lookup returns the display text of a token, from the merged token map.
func (r *Results) Lookup(t Token) string {
	if s, ok := r.TokenMap[t]; ok {
		return s
	}
	return fmt.Sprintf("<%d>", t)
}

// MatchResults walks the response in lock-step with the submission and
// attaches every record to the node it was generated from. Any divergence in
// shape fails the whole match with ErrResultShapeMismatch; nothing is
// returned partially applied.
func MatchResults(sub *Submission, resp []OperationResult) (*Results, error) {
	res := newResults()
	outs, err := matchList(sub, sub.Request.Operations, resp, res, "top level")
	if err != nil {
		return nil, err
	}
	res.Outputs = outs
	res.Walk(func(o *OperationOutput, _ int) {
		for _, w := range o.Words {
			res.Scale.ObserveAll(w.Candidates)
		}
	})
	res.Recolor()
	return res, nil
}

func matchList(sub *Submission, reqs []OperationRequest, resp []OperationResult, res *Results, where string) ([]*OperationOutput, error) {
	if len(reqs) != len(resp) {
		return nil, fmt.Errorf("%w: %s submitted %d operations, got %d results", ErrResultShapeMismatch, where, len(reqs), len(resp))
	}
	outs := make([]*OperationOutput, 0, len(reqs))
	for i := range reqs {
		out, err := matchOne(sub, reqs[i], resp[i], res)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func matchOne(sub *Submission, req OperationRequest, r OperationResult, res *Results) (*OperationOutput, error) {
	if req.ID != r.ID || req.Name != r.Name {
		return nil, fmt.Errorf("%w: submitted %s %s, got %s %s", ErrResultShapeMismatch, req.Name, req.ID, r.Name, r.ID)
	}
	target, ok := sub.Target(req.ID)
	if !ok {
		return nil, fmt.Errorf("%w: request id %s", ErrUnknownOutput, req.ID)
	}
	out := &OperationOutput{OperationKey: target.OperationKey, RequestID: req.ID, Name: req.Name}

	if req.Name == OpBranch {
		if len(req.Branch.Forks) != len(r.Forks) {
			return nil, fmt.Errorf("%w: branch %s submitted %d forks, got %d", ErrResultShapeMismatch, req.ID, len(req.Branch.Forks), len(r.Forks))
		}
		out.Forks = make([][]*OperationOutput, len(r.Forks))
		for i := range r.Forks {
			fork, err := matchList(sub, req.Branch.Forks[i], r.Forks[i], res, fmt.Sprintf("branch %s fork %d", req.ID, i+1))
			if err != nil {
				return nil, err
			}
			out.Forks[i] = fork
		}
		res.byKey[out.OperationKey] = out
		return out, nil
	}

	if r.Tokens == nil {
		return nil, fmt.Errorf("%w: %s %s has no result", ErrResultShapeMismatch, r.Name, r.ID)
	}
	if req.Name == OpFeedTokens && len(r.Tokens.Logits) != len(target.Fed) {
		return nil, fmt.Errorf("%w: %s fed %d tokens, got %d positions", ErrResultShapeMismatch, req.ID, len(target.Fed), len(r.Tokens.Logits))
	}
	maps.Copy(res.TokenMap, r.Tokens.TokenMap)
	out.Words = make([]*Word, 0, len(r.Tokens.Logits))
	for i, candidates := range r.Tokens.Logits {
		w, err := newWord(target, req.ID, i, candidates, res)
		if err != nil {
			return nil, err
		}
		out.Words = append(out.Words, w)
	}
	res.byKey[out.OperationKey] = out
	return out, nil
}

// newWord builds the word at position index of a leaf output. For fed text the
// word is the fed token scored by its own candidate entry (0 if the model did
// not rank it); for a completion it is the top candidate.
func newWord(target SubmitTarget, requestID string, index int, candidates []Logit, res *Results) (*Word, error) {
	w := &Word{
		Candidates:   candidates,
		OperationKey: target.OperationKey,
		RequestID:    requestID,
		Index:        index,
	}
	switch target.Kind {
	case KindText:
		if index >= len(target.Fed) {
			return nil, fmt.Errorf("%w: %s position %d beyond %d fed tokens", ErrResultShapeMismatch, requestID, index, len(target.Fed))
		}
		w.Token = target.Fed[index]
		for _, c := range candidates {
			if c.Token == w.Token {
				w.Logit = c.Value
			}
		}
	case KindCompletion:
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: %s position %d has no candidates", ErrResultShapeMismatch, requestID, index)
		}
		w.Token = candidates[0].Token
		w.Logit = candidates[0].Value
		w.Editable = true
	default:
		return nil, fmt.Errorf("%w: %s is a %s and cannot produce tokens", ErrResultShapeMismatch, requestID, target.Kind)
	}
	w.Text = res.Lookup(w.Token)
	w.BreakBefore = strings.HasPrefix(w.Text, "\n")
	w.BreakAfter = strings.HasSuffix(w.Text, "\n") || strings.HasSuffix(w.Text, endMarker)
	return w, nil
}

package domain

import (
	"fmt"
	"slices"
	"strconv"
)

// SubmitOptions tunes the generated request.
type SubmitOptions struct {
	// TopP is sent with every feed_tokens and completion operation.
	// Zero selects DefaultTopP.
	TopP int
}

// SubmitTarget remembers which node a request id was generated from.
// Fields are ordered to minimize memory padding.
type SubmitTarget struct {
	OperationKey string
	Kind         Kind
	Fed          []Token
	ID           int
}

// Submission is a linearized script together with the node each request id
// refers to. Results are matched against the submission, never against the
// live script, so later edits cannot misroute them.
type Submission struct {
	targets map[string]SubmitTarget
	Request CompletionRequest
}

// Target returns the node the request id was generated from.
func (s *Submission) Target(requestID string) (SubmitTarget, bool) {
	t, ok := s.targets[requestID]
	return t, ok
}

// Targets returns every submitted leaf and branch in request order.
func (s *Submission) Targets() []SubmitTarget {
	var out []SubmitTarget
	var visit func([]OperationRequest)
	visit = func(reqs []OperationRequest) {
		for _, r := range reqs {
			out = append(out, s.targets[r.ID])
			if r.Branch != nil {
				for _, fork := range r.Branch.Forks {
					visit(fork)
				}
			}
		}
	}
	visit(s.Request.Operations)
	return out
}

// Submit linearizes the script into one request. It fails with
// ErrScriptNotReady if any reachable operation is not valid; a partial
// request is never produced.
func (s *Script) Submit(opts SubmitOptions) (*Submission, error) {
	if opts.TopP == 0 {
		opts.TopP = DefaultTopP
	}
	if s.root.Len() == 0 {
		return nil, fmt.Errorf("%w: script is empty", ErrScriptNotReady)
	}
	sub := &Submission{targets: make(map[string]SubmitTarget, s.index.Len())}
	reqs, err := submitList(s.root, opts, sub)
	if err != nil {
		return nil, err
	}
	sub.Request = CompletionRequest{Operations: reqs}
	return sub, nil
}

func submitList(l *OperationList, opts SubmitOptions, sub *Submission) ([]OperationRequest, error) {
	reqs := make([]OperationRequest, 0, l.Len())
	for _, op := range l.ops {
		req, err := op.submit(opts, sub)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, fmt.Errorf("%w: #%d", ErrScriptNotReady, op.id)
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScriptNotReady, err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, nil
}

// submit returns the request for this operation, or nil when it is not valid.
func (o *Operation) submit(opts SubmitOptions, sub *Submission) (*OperationRequest, error) {
	if !o.valid {
		return nil, nil
	}
	id := strconv.Itoa(o.id)
	target := SubmitTarget{OperationKey: o.key, Kind: o.Kind(), ID: o.id}
	req := &OperationRequest{ID: id}

	switch p := o.params.(type) {
	case *TextParams:
		target.Fed = slices.Clone(p.Tokenized)
		req.Name = OpFeedTokens
		req.FeedTokens = &FeedTokensRequest{Tokens: slices.Clone(p.Tokenized), TopP: opts.TopP}
	case *CompletionParams:
		req.Name = OpCompletion
		req.Completion = &CompletionOptions{MaxTokens: p.MaxTokens, TopP: opts.TopP}
	case *BranchParams:
		req.Name = OpBranch
		forks := make([][]OperationRequest, 0, len(p.Options))
		for _, l := range p.Options {
			fork, err := submitList(l, opts, sub)
			if err != nil {
				return nil, err
			}
			forks = append(forks, fork)
		}
		req.Branch = &BranchRequest{Forks: forks}
	}

	if _, dup := sub.targets[id]; dup {
		return nil, fmt.Errorf("%w: duplicate request id %s", ErrSnapshotDrift, id)
	}
	sub.targets[id] = target
	return req, nil
}

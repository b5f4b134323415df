package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// TokenizeScriptInput contains the input for the TokenizeScript use case.
type TokenizeScriptInput struct {
	Script *domain.Script
	IDs    []int // Operations to tokenize; empty means every text operation that needs it
	All    bool  // Retokenize text operations that already have tokens
}

// TokenizeScriptOutput contains the output of the TokenizeScript use case.
type TokenizeScriptOutput struct {
	Tokenized []int // Ids that received tokens
	Failed    []int // Ids whose tokenize call failed
}

// TokenizeScript tokenizes text operations of a script one after another on
// the calling goroutine. It is the synchronous counterpart of the editor's
// debounced tokenize flow.
type TokenizeScript struct {
	tokenize *TokenizeText
}

// NewTokenizeScript creates a new TokenizeScript use case.
func NewTokenizeScript(tokenize *TokenizeText) *TokenizeScript {
	return &TokenizeScript{tokenize: tokenize}
}

// Execute tokenizes the selected operations. Texts with an empty raw string
// are skipped. If any call fails the output lists it and the error wraps
// domain.ErrTokenizeFailed.
func (uc *TokenizeScript) Execute(ctx context.Context, in TokenizeScriptInput) (*TokenizeScriptOutput, error) {
	ids := in.IDs
	if len(ids) == 0 {
		for _, op := range in.Script.Index().Order() {
			p, ok := op.Text()
			if !ok || p.Raw == "" {
				continue
			}
			if in.All || len(p.Tokenized) == 0 {
				ids = append(ids, op.ID())
			}
		}
	}

	out := &TokenizeScriptOutput{}
	for _, id := range ids {
		req, err := in.Script.BeginTokenize(id)
		if err != nil {
			return out, err
		}
		res, err := uc.tokenize.Execute(ctx, TokenizeTextInput{Request: req})
		if err != nil {
			if _, ferr := in.Script.FailTokenize(req.OperationKey, req.Seq, err); ferr != nil {
				return out, ferr
			}
			out.Failed = append(out.Failed, id)
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		if _, err := in.Script.ApplyTokenized(req.OperationKey, req.Seq, res.Tokens); err != nil {
			return out, err
		}
		out.Tokenized = append(out.Tokenized, id)
	}

	if len(out.Failed) > 0 {
		return out, fmt.Errorf("%d of %d operations: %w", len(out.Failed), len(ids), domain.ErrTokenizeFailed)
	}
	return out, nil
}

package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// ApplyEditInput contains the input for the ApplyEdit use case.
type ApplyEditInput struct {
	Script    *domain.Script
	Results   *domain.Results
	Selection domain.EditSelection
	Tokenize  bool // Tokenize custom-text alternatives before returning
}

// ApplyEditOutput contains the output of the ApplyEdit use case.
type ApplyEditOutput struct {
	Outcome domain.EditOutcome
	Failed  []int // Custom-text leaves whose tokenize call failed
}

// ApplyEdit turns a generated word into a branch of alternatives.
type ApplyEdit struct {
	tokenize *TokenizeText
	logger   domain.Logger
}

// NewApplyEdit creates a new ApplyEdit use case.
func NewApplyEdit(tokenize *TokenizeText, logger domain.Logger) *ApplyEdit {
	return &ApplyEdit{
		tokenize: tokenize,
		logger:   logger,
	}
}

// Execute rewrites the script around the selected word. The rewrite is kept
// even if tokenizing a custom text fails; the leaf stays invalid and Failed
// lists it.
func (uc *ApplyEdit) Execute(ctx context.Context, in ApplyEditInput) (*ApplyEditOutput, error) {
	outcome, err := in.Script.ApplyEdit(in.Results, in.Selection)
	if err != nil {
		return nil, err
	}
	uc.logger.Info(in.Selection.OperationKey, "edit",
		fmt.Sprintf("word %d split into %d alternatives", in.Selection.Index, optionCount(outcome.Branch)))

	out := &ApplyEditOutput{Outcome: outcome}
	if !in.Tokenize {
		return out, nil
	}
	for _, leaf := range outcome.Untokenized {
		req, err := in.Script.BeginTokenize(leaf.ID())
		if err != nil {
			return out, err
		}
		res, err := uc.tokenize.Execute(ctx, TokenizeTextInput{Request: req})
		if err != nil {
			if _, ferr := in.Script.FailTokenize(req.OperationKey, req.Seq, err); ferr != nil {
				return out, ferr
			}
			out.Failed = append(out.Failed, leaf.ID())
			continue
		}
		if _, err := in.Script.ApplyTokenized(req.OperationKey, req.Seq, res.Tokens); err != nil {
			return out, err
		}
	}
	return out, nil
}

func optionCount(op *domain.Operation) int {
	if p, ok := op.Branch(); ok {
		return len(p.Options)
	}
	return 0
}

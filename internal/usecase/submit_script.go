package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// SubmitScriptInput contains the input for the SubmitScript use case.
type SubmitScriptInput struct {
	Submission *domain.Submission // From SubmitScript.Prepare
}

// SubmitScriptOutput contains the output of the SubmitScript use case.
type SubmitScriptOutput struct {
	Results *domain.Results
}

// SubmitScript runs a script on the inference server and waits for the
// whole response.
type SubmitScript struct {
	completer domain.Completer
	logger    domain.Logger
	topP      int
}

// NewSubmitScript creates a new SubmitScript use case.
func NewSubmitScript(completer domain.Completer, logger domain.Logger, cfg domain.EditorConfig) *SubmitScript {
	return &SubmitScript{
		completer: completer,
		logger:    logger,
		topP:      cfg.TopP,
	}
}

// Prepare builds the request from the script. It reads the script and must
// run on the goroutine that owns it.
func (uc *SubmitScript) Prepare(script *domain.Script) (*domain.Submission, error) {
	return prepare(script, uc.topP)
}

func prepare(script *domain.Script, topP int) (*domain.Submission, error) {
	sub, err := script.Submit(domain.SubmitOptions{TopP: topP})
	if err != nil {
		if invalid := script.Invalid(); len(invalid) > 0 {
			return nil, fmt.Errorf("%w: first is #%d", err, invalid[0].ID())
		}
		return nil, err
	}
	return sub, nil
}

// Execute sends the submission and matches the response onto it.
func (uc *SubmitScript) Execute(ctx context.Context, in SubmitScriptInput) (*SubmitScriptOutput, error) {
	ops := len(in.Submission.Request.Operations)
	uc.logger.Info("", "submit", fmt.Sprintf("sending %d operations", ops))

	resp, err := uc.completer.Complete(ctx, in.Submission.Request)
	if err != nil {
		uc.logger.Error("", "submit", err.Error())
		return nil, err
	}

	res, err := domain.MatchResults(in.Submission, resp)
	if err != nil {
		uc.logger.Error("", "submit", err.Error())
		return nil, err
	}
	uc.logger.Info("", "submit", fmt.Sprintf("matched %d results, logits in [%g, %g]", len(resp), res.Scale.Min, res.Scale.Max))
	return &SubmitScriptOutput{Results: res}, nil
}

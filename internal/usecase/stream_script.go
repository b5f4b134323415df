package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// StreamScriptInput contains the input for the StreamScript use case.
type StreamScriptInput struct {
	Submission *domain.Submission // From SubmitScript.Prepare
	// OnUpdate is called after every arrival that rendered or recolored
	// words, on the goroutine running Execute. Results must not be retained
	// across calls without cloning.
	OnUpdate func(res *domain.Results, a domain.Assembly)
}

// StreamScriptOutput contains the output of the StreamScript use case.
type StreamScriptOutput struct {
	Results *domain.Results
}

// StreamScript runs a script and assembles generated tokens as they arrive.
type StreamScript struct {
	streamer domain.Streamer
	logger   domain.Logger
}

// NewStreamScript creates a new StreamScript use case.
func NewStreamScript(streamer domain.Streamer, logger domain.Logger) *StreamScript {
	return &StreamScript{
		streamer: streamer,
		logger:   logger,
	}
}

// Execute streams the submission. It fails with domain.ErrStreamClosed if
// the stream ends while positions are still missing.
func (uc *StreamScript) Execute(ctx context.Context, in StreamScriptInput) (*StreamScriptOutput, error) {
	asm := domain.NewAssembler(in.Submission)

	err := uc.streamer.Stream(ctx, in.Submission.Request, func(ev domain.StreamEvent) error {
		switch ev.Kind {
		case domain.StreamToken:
			a, err := asm.Add(ev.Arrival)
			if err != nil {
				return err
			}
			if in.OnUpdate != nil && (len(a.Rendered) > 0 || a.Recolored) {
				in.OnUpdate(asm.Results(), a)
			}
		case domain.StreamDone:
			if err := asm.Close(ev.RequestID); err != nil {
				return err
			}
			uc.logger.Debug(ev.RequestID, "stream", "done")
		case domain.StreamEnd:
			if !asm.Done() {
				return fmt.Errorf("%w: %d positions missing", domain.ErrStreamClosed, asm.Pending())
			}
		}
		return nil
	})
	if err != nil {
		uc.logger.Error("", "stream", err.Error())
		return nil, err
	}

	res := asm.Results()
	uc.logger.Info("", "stream", fmt.Sprintf("complete, logits in [%g, %g]", res.Scale.Min, res.Scale.Max))
	return &StreamScriptOutput{Results: res}, nil
}

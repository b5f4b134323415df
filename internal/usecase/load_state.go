package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// LoadStateInput contains the input for the LoadState use case.
type LoadStateInput struct{}

// LoadStateOutput contains the output of the LoadState use case.
type LoadStateOutput struct {
	Script  *domain.Script
	Default bool // True when nothing was saved and the default script was created
}

// LoadState restores the working script saved by the editor.
type LoadState struct {
	state  domain.StateStore
	logger domain.Logger
}

// NewLoadState creates a new LoadState use case.
func NewLoadState(state domain.StateStore, logger domain.Logger) *LoadState {
	return &LoadState{
		state:  state,
		logger: logger,
	}
}

// Execute loads the saved script, falling back to the default script when
// nothing was saved.
func (uc *LoadState) Execute(_ context.Context, _ LoadStateInput) (*LoadStateOutput, error) {
	triples, err := uc.state.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if triples == nil {
		uc.logger.Debug("", "state", "no saved state, using default script")
		return &LoadStateOutput{Script: domain.DefaultScript(), Default: true}, nil
	}

	script, err := domain.ScriptFromTriples(triples)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("", "state", fmt.Sprintf("restored %d operations", script.Len()))
	return &LoadStateOutput{Script: script}, nil
}

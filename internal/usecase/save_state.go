package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// SaveStateInput contains the input for the SaveState use case.
type SaveStateInput struct {
	Triples []domain.Triple // Persisted form of the working script
}

// SaveStateOutput contains the output of the SaveState use case.
type SaveStateOutput struct{}

// SaveState persists the working script.
type SaveState struct {
	state domain.StateStore
}

// NewSaveState creates a new SaveState use case.
func NewSaveState(state domain.StateStore) *SaveState {
	return &SaveState{state: state}
}

// Execute writes the triples to the state store.
func (uc *SaveState) Execute(_ context.Context, in SaveStateInput) (*SaveStateOutput, error) {
	if err := uc.state.Save(in.Triples); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return &SaveStateOutput{}, nil
}

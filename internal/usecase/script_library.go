package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// SaveScriptInput contains the input for the SaveScript use case.
type SaveScriptInput struct {
	Script *domain.Script
	Name   string
}

// SaveScriptOutput contains the output of the SaveScript use case.
type SaveScriptOutput struct {
	Name       string
	Operations int
}

// SaveScript stores a script in the library under a name.
type SaveScript struct {
	scripts domain.ScriptRepository
	logger  domain.Logger
}

// NewSaveScript creates a new SaveScript use case.
func NewSaveScript(scripts domain.ScriptRepository, logger domain.Logger) *SaveScript {
	return &SaveScript{
		scripts: scripts,
		logger:  logger,
	}
}

// Execute saves the script, replacing any script with the same name.
func (uc *SaveScript) Execute(_ context.Context, in SaveScriptInput) (*SaveScriptOutput, error) {
	if err := domain.ValidateScriptName(in.Name); err != nil {
		return nil, err
	}
	if err := uc.scripts.Save(in.Name, in.Script.Triples()); err != nil {
		return nil, fmt.Errorf("save script: %w", err)
	}
	uc.logger.Info("", "library", "saved "+in.Name)
	return &SaveScriptOutput{Name: in.Name, Operations: in.Script.Len()}, nil
}

// LoadScriptInput contains the input for the LoadScript use case.
type LoadScriptInput struct {
	Name     string
	Activate bool // Also replace the editor's working script
}

// LoadScriptOutput contains the output of the LoadScript use case.
type LoadScriptOutput struct {
	Script *domain.Script
}

// LoadScript reads a script from the library.
type LoadScript struct {
	scripts domain.ScriptRepository
	state   domain.StateStore
	logger  domain.Logger
}

// NewLoadScript creates a new LoadScript use case.
func NewLoadScript(scripts domain.ScriptRepository, state domain.StateStore, logger domain.Logger) *LoadScript {
	return &LoadScript{
		scripts: scripts,
		state:   state,
		logger:  logger,
	}
}

// Execute loads the named script.
func (uc *LoadScript) Execute(_ context.Context, in LoadScriptInput) (*LoadScriptOutput, error) {
	triples, err := uc.scripts.Get(in.Name)
	if err != nil {
		return nil, err
	}
	script, err := domain.ScriptFromTriples(triples)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", in.Name, err)
	}
	if in.Activate {
		if err := uc.state.Save(script.Triples()); err != nil {
			return nil, fmt.Errorf("save state: %w", err)
		}
		uc.logger.Info("", "library", "activated "+in.Name)
	}
	return &LoadScriptOutput{Script: script}, nil
}

// ListScriptsInput contains the input for the ListScripts use case.
type ListScriptsInput struct{}

// ListScriptsOutput contains the output of the ListScripts use case.
type ListScriptsOutput struct {
	Scripts []domain.ScriptInfo
}

// ListScripts lists the script library.
type ListScripts struct {
	scripts domain.ScriptRepository
}

// NewListScripts creates a new ListScripts use case.
func NewListScripts(scripts domain.ScriptRepository) *ListScripts {
	return &ListScripts{scripts: scripts}
}

// Execute returns every saved script sorted by name.
func (uc *ListScripts) Execute(_ context.Context, _ ListScriptsInput) (*ListScriptsOutput, error) {
	infos, err := uc.scripts.List()
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return &ListScriptsOutput{Scripts: infos}, nil
}

// DeleteScriptInput contains the input for the DeleteScript use case.
type DeleteScriptInput struct {
	Name string
}

// DeleteScriptOutput contains the output of the DeleteScript use case.
type DeleteScriptOutput struct{}

// DeleteScript removes a script from the library.
type DeleteScript struct {
	scripts domain.ScriptRepository
	logger  domain.Logger
}

// NewDeleteScript creates a new DeleteScript use case.
func NewDeleteScript(scripts domain.ScriptRepository, logger domain.Logger) *DeleteScript {
	return &DeleteScript{
		scripts: scripts,
		logger:  logger,
	}
}

// Execute deletes the named script.
func (uc *DeleteScript) Execute(_ context.Context, in DeleteScriptInput) (*DeleteScriptOutput, error) {
	if err := uc.scripts.Delete(in.Name); err != nil {
		return nil, err
	}
	uc.logger.Info("", "library", "deleted "+in.Name)
	return &DeleteScriptOutput{}, nil
}

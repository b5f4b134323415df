package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/tokenscope/internal/domain"
)

// ImportScriptInput contains the input for the ImportScript use case.
type ImportScriptInput struct {
	Content  string // Script file content (operations with frontmatter)
	Name     string // Library name; empty replaces the working script instead
	Tokenize bool   // Tokenize text operations before saving
	DryRun   bool   // Parse and build without saving or tokenizing
}

// ImportScriptOutput contains the output of the ImportScript use case.
type ImportScriptOutput struct {
	Script *domain.Script
	Failed []int // Text operations whose tokenize call failed
}

// ImportScript builds a script from a text file.
type ImportScript struct {
	tokenize *TokenizeScript
	scripts  domain.ScriptRepository
	state    domain.StateStore
	logger   domain.Logger
}

// NewImportScript creates a new ImportScript use case.
func NewImportScript(
	tokenize *TokenizeScript,
	scripts domain.ScriptRepository,
	state domain.StateStore,
	logger domain.Logger,
) *ImportScript {
	return &ImportScript{
		tokenize: tokenize,
		scripts:  scripts,
		state:    state,
		logger:   logger,
	}
}

// Execute parses the content and stores the resulting script. A failed
// tokenize call does not stop the import; the operation is saved without
// tokens and listed in Failed.
func (uc *ImportScript) Execute(ctx context.Context, in ImportScriptInput) (*ImportScriptOutput, error) {
	if in.Name != "" {
		if err := domain.ValidateScriptName(in.Name); err != nil {
			return nil, err
		}
	}

	drafts, err := domain.ParseScriptDrafts(in.Content)
	if err != nil {
		return nil, err
	}
	script := domain.BuildDraftScript(drafts)
	out := &ImportScriptOutput{Script: script}
	if in.DryRun {
		return out, nil
	}

	if in.Tokenize {
		res, err := uc.tokenize.Execute(ctx, TokenizeScriptInput{Script: script})
		if err != nil && !errors.Is(err, domain.ErrTokenizeFailed) {
			return nil, err
		}
		if res != nil {
			out.Failed = res.Failed
		}
	}

	triples := script.Triples()
	if in.Name == "" {
		if err := uc.state.Save(triples); err != nil {
			return nil, fmt.Errorf("save state: %w", err)
		}
		uc.logger.Info("", "library", fmt.Sprintf("imported %d operations into the working script", script.Len()))
		return out, nil
	}
	if err := uc.scripts.Save(in.Name, triples); err != nil {
		return nil, fmt.Errorf("save script: %w", err)
	}
	uc.logger.Info("", "library", fmt.Sprintf("imported %d operations as %s", script.Len(), in.Name))
	return out, nil
}

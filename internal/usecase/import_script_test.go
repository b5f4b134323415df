package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
	"github.com/runoshun/tokenscope/internal/usecase"
)

const draftContent = `---
role: system
---
You are terse.

---
role: user
---
Name a color.

---
type: completion
max_tokens: 8
---
`

func newImportScript(tokenizer domain.Tokenizer, repo domain.ScriptRepository, state domain.StateStore) *usecase.ImportScript {
	tokenize := usecase.NewTokenizeScript(newTokenizeText(tokenizer, noRetry))
	return usecase.NewImportScript(tokenize, repo, state, &testutil.MockLogger{})
}

func TestImportScript_Execute(t *testing.T) {
	t.Run("saves into the library", func(t *testing.T) {
		repo := testutil.NewMockScriptRepository()
		state := &testutil.MockStateStore{}
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Tokens: []domain.Token{1}}}}

		out, err := newImportScript(tokenizer, repo, state).Execute(context.Background(), usecase.ImportScriptInput{
			Content:  draftContent,
			Name:     "colors",
			Tokenize: true,
		})

		require.NoError(t, err)
		assert.Equal(t, 3, out.Script.Len())
		assert.True(t, out.Script.Ready())
		assert.Equal(t, 2, tokenizer.Calls())
		assert.Len(t, repo.Scripts["colors"], 3)
		assert.Zero(t, state.SaveCalls)
	})

	t.Run("replaces the working script without a name", func(t *testing.T) {
		repo := testutil.NewMockScriptRepository()
		state := &testutil.MockStateStore{}

		out, err := newImportScript(&testutil.MockTokenizer{}, repo, state).Execute(context.Background(), usecase.ImportScriptInput{
			Content: draftContent,
		})

		require.NoError(t, err)
		assert.False(t, out.Script.Ready())
		assert.Equal(t, 1, state.SaveCalls)
		assert.Len(t, state.Triples, 3)
		assert.Empty(t, repo.Scripts)
	})

	t.Run("dry run stores nothing", func(t *testing.T) {
		repo := testutil.NewMockScriptRepository()
		state := &testutil.MockStateStore{}
		tokenizer := &testutil.MockTokenizer{}

		out, err := newImportScript(tokenizer, repo, state).Execute(context.Background(), usecase.ImportScriptInput{
			Content:  draftContent,
			Name:     "colors",
			Tokenize: true,
			DryRun:   true,
		})

		require.NoError(t, err)
		assert.Equal(t, 3, out.Script.Len())
		assert.Zero(t, tokenizer.Calls())
		assert.Empty(t, repo.Scripts)
		assert.Zero(t, state.SaveCalls)
	})

	t.Run("tokenize failures are reported but saved", func(t *testing.T) {
		repo := testutil.NewMockScriptRepository()
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Err: errors.New("down")}}}

		out, err := newImportScript(tokenizer, repo, &testutil.MockStateStore{}).Execute(context.Background(), usecase.ImportScriptInput{
			Content:  draftContent,
			Name:     "colors",
			Tokenize: true,
		})

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, out.Failed)
		assert.Contains(t, repo.Scripts, "colors")
	})

	t.Run("parse errors", func(t *testing.T) {
		_, err := newImportScript(&testutil.MockTokenizer{}, testutil.NewMockScriptRepository(), &testutil.MockStateStore{}).
			Execute(context.Background(), usecase.ImportScriptInput{Content: ""})

		require.ErrorIs(t, err, domain.ErrEmptyFile)
	})

	t.Run("invalid name is rejected before parsing", func(t *testing.T) {
		_, err := newImportScript(&testutil.MockTokenizer{}, testutil.NewMockScriptRepository(), &testutil.MockStateStore{}).
			Execute(context.Background(), usecase.ImportScriptInput{Content: draftContent, Name: "a b"})

		require.ErrorIs(t, err, domain.ErrInvalidScriptName)
	})
}

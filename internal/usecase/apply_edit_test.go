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

func matchedPrompt(t *testing.T) (*domain.Script, *domain.Results) {
	t.Helper()
	s := promptScript()
	res, err := domain.MatchResults(submitted(t, s), promptResponse())
	require.NoError(t, err)
	return s, res
}

func TestApplyEdit_Execute(t *testing.T) {
	t.Run("splits the completion at the word", func(t *testing.T) {
		s, res := matchedPrompt(t)
		completion, _ := s.Get(2)
		tokenizer := &testutil.MockTokenizer{}

		uc := usecase.NewApplyEdit(newTokenizeText(tokenizer, noRetry), &testutil.MockLogger{})
		out, err := uc.Execute(context.Background(), usecase.ApplyEditInput{
			Script:  s,
			Results: res,
			Selection: domain.EditSelection{
				OperationKey: completion.Key(),
				Index:        1,
				Tokens:       []domain.Token{12, 11},
			},
		})

		require.NoError(t, err)
		assert.Zero(t, tokenizer.Calls())
		assert.Empty(t, out.Outcome.Untokenized)

		// prompt, prefix text, branch, two option leaves
		assert.Equal(t, 5, s.Len())
		prefix, _ := s.Get(2)
		p, ok := prefix.Text()
		require.True(t, ok)
		assert.Equal(t, "Hello", p.Raw)
		assert.Equal(t, []domain.Token{10}, p.Tokenized)

		branch, _ := s.Get(3)
		assert.Equal(t, domain.KindBranch, branch.Kind())
		leaf, _ := s.Get(5)
		lp, _ := leaf.Text()
		assert.Equal(t, "Hey", lp.Raw)
		assert.True(t, s.Ready())
	})

	t.Run("tokenizes custom alternatives", func(t *testing.T) {
		s, res := matchedPrompt(t)
		completion, _ := s.Get(2)
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Tokens: []domain.Token{42, 43}}}}

		uc := usecase.NewApplyEdit(newTokenizeText(tokenizer, noRetry), &testutil.MockLogger{})
		out, err := uc.Execute(context.Background(), usecase.ApplyEditInput{
			Script:  s,
			Results: res,
			Selection: domain.EditSelection{
				OperationKey: completion.Key(),
				Index:        0,
				CustomTexts:  []string{"Howdy", "  "},
			},
			Tokenize: true,
		})

		require.NoError(t, err)
		require.Len(t, out.Outcome.Untokenized, 1)
		assert.Equal(t, []string{"<|assistant|>\nHowdy<|end|>\n"}, tokenizer.Texts)

		lp, _ := out.Outcome.Untokenized[0].Text()
		assert.Equal(t, []domain.Token{42, 43}, lp.Tokenized)
		assert.Empty(t, out.Failed)
	})

	t.Run("keeps the rewrite when tokenizing fails", func(t *testing.T) {
		s, res := matchedPrompt(t)
		completion, _ := s.Get(2)
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Err: errors.New("down")}}}

		uc := usecase.NewApplyEdit(newTokenizeText(tokenizer, noRetry), &testutil.MockLogger{})
		out, err := uc.Execute(context.Background(), usecase.ApplyEditInput{
			Script:  s,
			Results: res,
			Selection: domain.EditSelection{
				OperationKey: completion.Key(),
				Index:        1,
				CustomTexts:  []string{"?"},
			},
			Tokenize: true,
		})

		require.NoError(t, err)
		require.Len(t, out.Failed, 1)
		leaf, _ := s.Get(out.Failed[0])
		status, _ := leaf.TokenizeStatus()
		assert.Equal(t, domain.TokenizeFailed, status)
		assert.False(t, s.Ready())
	})

	t.Run("prompt words are not editable", func(t *testing.T) {
		s, res := matchedPrompt(t)
		prompt, _ := s.Get(1)

		uc := usecase.NewApplyEdit(newTokenizeText(&testutil.MockTokenizer{}, noRetry), &testutil.MockLogger{})
		_, err := uc.Execute(context.Background(), usecase.ApplyEditInput{
			Script:    s,
			Results:   res,
			Selection: domain.EditSelection{OperationKey: prompt.Key(), Tokens: []domain.Token{2}},
		})

		require.ErrorIs(t, err, domain.ErrNotEditable)
		assert.Equal(t, 2, s.Len())
	})
}

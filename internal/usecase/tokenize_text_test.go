package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
	"github.com/runoshun/tokenscope/internal/usecase"
)

func TestTokenizeText_Execute(t *testing.T) {
	req := domain.TokenizeRequest{OperationKey: "op-1", Text: "<|user|>\nhi<|end|>\n", Seq: 3}
	cfg := domain.TokenizeConfig{Retries: 2, BackoffMS: 200}
	unavailable := errors.New("connection refused")

	t.Run("returns tokens on first attempt", func(t *testing.T) {
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Tokens: []domain.Token{4, 5}}}}
		sleeper := &testutil.MockSleeper{}

		uc := usecase.NewTokenizeText(tokenizer, sleeper, &testutil.MockLogger{}, cfg)
		out, err := uc.Execute(context.Background(), usecase.TokenizeTextInput{Request: req})

		require.NoError(t, err)
		assert.Equal(t, []domain.Token{4, 5}, out.Tokens)
		assert.Equal(t, req, out.Request)
		assert.Equal(t, 1, out.Attempts)
		assert.Equal(t, []string{req.Text}, tokenizer.Texts)
		assert.Empty(t, sleeper.Delays)
	})

	t.Run("retries with doubling backoff", func(t *testing.T) {
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{
			{Err: unavailable},
			{Err: unavailable},
			{Tokens: []domain.Token{9}},
		}}
		sleeper := &testutil.MockSleeper{}

		uc := usecase.NewTokenizeText(tokenizer, sleeper, &testutil.MockLogger{}, cfg)
		out, err := uc.Execute(context.Background(), usecase.TokenizeTextInput{Request: req})

		require.NoError(t, err)
		assert.Equal(t, 3, out.Attempts)
		assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, sleeper.Delays)
	})

	t.Run("gives up after the last retry", func(t *testing.T) {
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Err: unavailable}}}
		sleeper := &testutil.MockSleeper{}
		logger := &testutil.MockLogger{}

		uc := usecase.NewTokenizeText(tokenizer, sleeper, logger, cfg)
		_, err := uc.Execute(context.Background(), usecase.TokenizeTextInput{Request: req})

		require.ErrorIs(t, err, domain.ErrTokenizeFailed)
		require.ErrorIs(t, err, unavailable)
		assert.Equal(t, 3, tokenizer.Calls())
		assert.Len(t, sleeper.Delays, 2)

		last := logger.Entries[len(logger.Entries)-1]
		assert.Equal(t, "ERROR", last.Level)
		assert.Equal(t, "op-1", last.Scope)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Err: context.Canceled}}}
		sleeper := &testutil.MockSleeper{}

		uc := usecase.NewTokenizeText(tokenizer, sleeper, &testutil.MockLogger{}, cfg)
		_, err := uc.Execute(ctx, usecase.TokenizeTextInput{Request: req})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, tokenizer.Calls())
		assert.Empty(t, sleeper.Delays)
	})

	t.Run("stops when the sleep is interrupted", func(t *testing.T) {
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Err: unavailable}}}
		sleeper := &testutil.MockSleeper{Err: context.DeadlineExceeded}

		uc := usecase.NewTokenizeText(tokenizer, sleeper, &testutil.MockLogger{}, cfg)
		_, err := uc.Execute(context.Background(), usecase.TokenizeTextInput{Request: req})

		require.ErrorIs(t, err, domain.ErrTokenizeFailed)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, tokenizer.Calls())
	})
}

func TestTokenizeScript_Execute(t *testing.T) {
	twoTexts := func() *domain.Script {
		return domain.NewScript(
			domain.NewText(domain.RoleSystem, "be brief", nil),
			domain.NewText(domain.RoleUser, "hi", []domain.Token{7}),
			domain.NewText(domain.RoleUser, "", nil),
			domain.NewCompletion(domain.RoleAssistant, 4),
		)
	}

	t.Run("tokenizes texts without tokens", func(t *testing.T) {
		s := twoTexts()
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Tokens: []domain.Token{1, 2}}}}

		uc := usecase.NewTokenizeScript(newTokenizeText(tokenizer, noRetry))
		out, err := uc.Execute(context.Background(), usecase.TokenizeScriptInput{Script: s})

		require.NoError(t, err)
		assert.Equal(t, []int{1}, out.Tokenized)
		assert.Equal(t, []string{"<|system|>\nbe brief<|end|>\n"}, tokenizer.Texts)

		op, _ := s.Get(1)
		p, _ := op.Text()
		assert.Equal(t, []domain.Token{1, 2}, p.Tokenized)
		// The empty text keeps the script from being ready.
		assert.False(t, s.Ready())
	})

	t.Run("retokenizes everything with All", func(t *testing.T) {
		s := twoTexts()
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{{Tokens: []domain.Token{3}}}}

		uc := usecase.NewTokenizeScript(newTokenizeText(tokenizer, noRetry))
		out, err := uc.Execute(context.Background(), usecase.TokenizeScriptInput{Script: s, All: true})

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, out.Tokenized)
		op, _ := s.Get(2)
		p, _ := op.Text()
		assert.Equal(t, []domain.Token{3}, p.Tokenized)
	})

	t.Run("records failures and continues", func(t *testing.T) {
		s := twoTexts()
		tokenizer := &testutil.MockTokenizer{Results: []testutil.TokenizeResult{
			{Err: errors.New("boom")},
			{Tokens: []domain.Token{3}},
		}}

		uc := usecase.NewTokenizeScript(newTokenizeText(tokenizer, noRetry))
		out, err := uc.Execute(context.Background(), usecase.TokenizeScriptInput{Script: s, All: true})

		require.ErrorIs(t, err, domain.ErrTokenizeFailed)
		assert.Equal(t, []int{1}, out.Failed)
		assert.Equal(t, []int{2}, out.Tokenized)

		op, _ := s.Get(1)
		status, cause := op.TokenizeStatus()
		assert.Equal(t, domain.TokenizeFailed, status)
		require.ErrorIs(t, cause, domain.ErrTokenizeFailed)
	})

	t.Run("explicit ids must be text operations", func(t *testing.T) {
		s := twoTexts()
		tokenizer := &testutil.MockTokenizer{}

		uc := usecase.NewTokenizeScript(newTokenizeText(tokenizer, noRetry))
		_, err := uc.Execute(context.Background(), usecase.TokenizeScriptInput{Script: s, IDs: []int{4}})

		require.ErrorIs(t, err, domain.ErrNotText)
		assert.Zero(t, tokenizer.Calls())
	})
}

package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// noRetry disables retries so failures surface on the first call.
var noRetry = domain.TokenizeConfig{Retries: 0, BackoffMS: 10}

func newTokenizeText(tokenizer domain.Tokenizer, cfg domain.TokenizeConfig) *usecase.TokenizeText {
	return usecase.NewTokenizeText(tokenizer, &testutil.MockSleeper{}, &testutil.MockLogger{}, cfg)
}

// promptScript returns a tokenized user prompt followed by a two-token completion.
func promptScript() *domain.Script {
	return domain.NewScript(
		domain.NewText(domain.RoleUser, "hi", []domain.Token{1}),
		domain.NewCompletion(domain.RoleAssistant, 2),
	)
}

// promptResponse answers promptScript: the prompt scored -1 and the
// completion generated "Hello" then "!".
func promptResponse() []domain.OperationResult {
	return []domain.OperationResult{
		{ID: "1", Name: domain.OpFeedTokens, Tokens: &domain.TokenResult{
			TokenMap: map[domain.Token]string{1: "hi"},
			Logits:   [][]domain.Logit{{{Token: 1, Value: -1}}},
		}},
		{ID: "2", Name: domain.OpCompletion, Tokens: &domain.TokenResult{
			TokenMap: map[domain.Token]string{10: "Hello", 11: "Hey", 12: "!"},
			Logits: [][]domain.Logit{
				{{Token: 10, Value: 3}, {Token: 11, Value: 1}},
				{{Token: 12, Value: 2}},
			},
		}},
	}
}

func submitted(t *testing.T, s *domain.Script) *domain.Submission {
	t.Helper()
	sub, err := s.Submit(domain.SubmitOptions{})
	require.NoError(t, err)
	return sub
}

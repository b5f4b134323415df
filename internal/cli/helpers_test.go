package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
)

// testDeps are the doubles behind a container built by newMockContainer.
type testDeps struct {
	scripts   *testutil.MockScriptRepository
	state     *testutil.MockStateStore
	tokenizer *testutil.MockTokenizer
	completer *testutil.MockCompleter
	streamer  *testutil.MockStreamer
}

func newMockContainer(t *testing.T) (*app.Container, *testDeps) {
	t.Helper()
	d := &testDeps{
		scripts:   testutil.NewMockScriptRepository(),
		state:     &testutil.MockStateStore{},
		tokenizer: &testutil.MockTokenizer{},
		completer: &testutil.MockCompleter{},
		streamer:  &testutil.MockStreamer{},
	}
	cfg := domain.NewDefaultConfig()
	cfg.Tokenize.Retries = 0
	c := app.NewWithDeps(app.Config{}, cfg, d.scripts, d.state, &testutil.MockLogger{})
	c.Tokenizer = d.tokenizer
	c.Completer = d.completer
	c.Streamer = d.streamer
	c.Sleeper = &testutil.MockSleeper{}
	return c, d
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// promptTriples is a tokenized user prompt followed by a two-token completion.
func promptTriples() []domain.Triple {
	return domain.NewScript(
		domain.NewText(domain.RoleUser, "hi", []domain.Token{1}),
		domain.NewCompletion(domain.RoleAssistant, 2),
	).Triples()
}

// promptResponse answers promptTriples with "Hello" then "!".
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

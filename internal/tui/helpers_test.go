package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
)

type testDeps struct {
	state     *testutil.MockStateStore
	scripts   *testutil.MockScriptRepository
	tokenizer *testutil.MockTokenizer
	completer *testutil.MockCompleter
	streamer  *testutil.MockStreamer
}

func newTestContainer(t *testing.T, triples []domain.Triple) (*app.Container, *testDeps) {
	t.Helper()
	d := &testDeps{
		state:     &testutil.MockStateStore{Triples: triples},
		scripts:   testutil.NewMockScriptRepository(),
		tokenizer: &testutil.MockTokenizer{},
		completer: &testutil.MockCompleter{},
		streamer:  &testutil.MockStreamer{},
	}
	cfg := domain.NewDefaultConfig()
	cfg.Editor.DebounceMS = 1
	cfg.Tokenize.Retries = 0
	c := app.NewWithDeps(app.Config{}, cfg, d.scripts, d.state, &testutil.MockLogger{})
	c.Tokenizer = d.tokenizer
	c.Completer = d.completer
	c.Streamer = d.streamer
	c.Sleeper = &testutil.MockSleeper{}
	return c, d
}

func newTestModel(t *testing.T, triples []domain.Triple) (*Model, *testDeps) {
	t.Helper()
	c, d := newTestContainer(t, triples)
	m, err := New(c)
	require.NoError(t, err)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, d
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// press sends a key and returns the resulting command.
func press(m *Model, k tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(k)
	return cmd
}

// collect runs cmd and any batched commands and returns their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// drain runs cmd and feeds every application message back into m until no
// more are produced.
func drain(m *Model, cmd tea.Cmd) {
	for _, msg := range collect(cmd) {
		if _, ok := msg.(Msg); !ok {
			continue
		}
		_, next := m.Update(msg)
		drain(m, next)
	}
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

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/testutil"
)

func TestTokenizeCommand(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantText string
		wantOut  string
	}{
		{
			name:     "wraps in user markers",
			args:     []string{"hi", "there"},
			wantText: "<|user|>\nhi there<|end|>\n",
			wantOut:  "5 6 7\n",
		},
		{
			name:     "system role",
			args:     []string{"-r", "system", "be brief"},
			wantText: "<|system|>\nbe brief<|end|>\n",
			wantOut:  "5 6 7\n",
		},
		{
			name:     "raw from stdin",
			stdin:    "plain",
			args:     []string{"--raw"},
			wantText: "plain",
			wantOut:  "5 6 7\n",
		},
		{
			name:     "json",
			args:     []string{"--json", "--raw", "x"},
			wantText: "x",
			wantOut:  "[5,6,7]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d := newMockContainer(t)
			d.tokenizer.Results = []testutil.TokenizeResult{{Tokens: []domain.Token{5, 6, 7}}}

			out, _, err := execute(newTokenizeCommand(c), tt.stdin, tt.args...)

			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantText}, d.tokenizer.Texts)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

func TestTokenizeCommand_InvalidRole(t *testing.T) {
	c, d := newMockContainer(t)

	_, _, err := execute(newTokenizeCommand(c), "", "--role", "narrator", "x")

	require.ErrorIs(t, err, domain.ErrInvalidRole)
	assert.Zero(t, d.tokenizer.Calls())
}

func TestTokenizeCommand_ServerError(t *testing.T) {
	c, d := newMockContainer(t)
	d.tokenizer.Results = []testutil.TokenizeResult{{Err: domain.ErrServerResponse}}

	_, _, err := execute(newTokenizeCommand(c), "", "x")

	require.ErrorIs(t, err, domain.ErrServerResponse)
}

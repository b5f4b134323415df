package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleCompletion(t *testing.T) (*Script, *Submission) {
	t.Helper()
	s := NewScript(NewCompletion(RoleAssistant, 3))
	sub, err := s.Submit(SubmitOptions{})
	require.NoError(t, err)
	return s, sub
}

func arrival(id string, index int, candidates ...Logit) TokenArrival {
	tm := make(map[Token]string, len(candidates))
	for _, c := range candidates {
		tm[c.Token] = string(rune('A' + int(c.Token)))
	}
	return TokenArrival{RequestID: id, Index: index, Candidates: candidates, TokenMap: tm}
}

func TestAssembler_ReordersOutOfOrderArrivals(t *testing.T) {
	s, sub := singleCompletion(t)
	a := NewAssembler(sub)

	got, err := a.Add(arrival("1", 2, Logit{Token: 7, Value: -1}))
	require.NoError(t, err)
	assert.Empty(t, got.Rendered)
	assert.Equal(t, 1, a.Pending())

	got, err = a.Add(arrival("1", 0, Logit{Token: 5, Value: 2}))
	require.NoError(t, err)
	require.Len(t, got.Rendered, 1)
	assert.Equal(t, 0, got.Rendered[0].Index)
	assert.True(t, got.Recolored)

	got, err = a.Add(arrival("1", 1, Logit{Token: 6, Value: 0.5}, Logit{Token: 9, Value: -3}))
	require.NoError(t, err)
	require.Len(t, got.Rendered, 2)
	assert.Equal(t, []int{1, 2}, []int{got.Rendered[0].Index, got.Rendered[1].Index})
	assert.True(t, got.Recolored)
	assert.Zero(t, a.Pending())

	op, _ := s.Get(1)
	out, ok := a.Results().Output(op.Key())
	require.True(t, ok)
	require.Len(t, out.Words, 3)
	for i, w := range out.Words {
		assert.Equal(t, i, w.Index)
	}
	assert.Equal(t, []Token{5, 6, 7}, []Token{out.Words[0].Token, out.Words[1].Token, out.Words[2].Token})

	final := a.Results().Scale
	assert.Equal(t, -3.0, final.Min)
	assert.Equal(t, 2.0, final.Max)
	want := NewScale(-3, 2)
	for _, w := range out.Words {
		assert.Equal(t, want.Color(w.Logit), w.Color, "word %d", w.Index)
	}
}

func TestAssembler_NoRecolorWithinScale(t *testing.T) {
	_, sub := singleCompletion(t)
	a := NewAssembler(sub)

	_, err := a.Add(arrival("1", 0, Logit{Token: 1, Value: 5}, Logit{Token: 2, Value: -5}))
	require.NoError(t, err)

	got, err := a.Add(arrival("1", 1, Logit{Token: 3, Value: 0}))
	require.NoError(t, err)

	assert.False(t, got.Recolored)
	require.Len(t, got.Rendered, 1)
	assert.Equal(t, NewScale(-5, 5).Color(0), got.Rendered[0].Color)
}

func TestAssembler_ScaleIsSharedAcrossOperations(t *testing.T) {
	s := NewScript(
		NewBranch(RoleAssistant,
			NewOperationList(RoleAssistant, NewCompletion(RoleAssistant, 2)),
			NewOperationList(RoleAssistant, NewCompletion(RoleAssistant, 2)),
		),
	)
	sub, err := s.Submit(SubmitOptions{})
	require.NoError(t, err)
	a := NewAssembler(sub)

	_, err = a.Add(arrival("2", 0, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	first, _ := s.Get(2)
	out, _ := a.Results().Output(first.Key())
	before := out.Words[0].Color

	got, err := a.Add(arrival("3", 0, Logit{Token: 2, Value: 10}))
	require.NoError(t, err)

	assert.True(t, got.Recolored)
	assert.NotEqual(t, before, out.Words[0].Color)
	assert.Equal(t, NewScale(1, 10).Color(1), out.Words[0].Color)
}

func TestAssembler_DuplicatesIgnored(t *testing.T) {
	_, sub := singleCompletion(t)
	a := NewAssembler(sub)

	_, err := a.Add(arrival("1", 1, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	got, err := a.Add(arrival("1", 1, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	assert.Empty(t, got.Rendered)
	assert.Equal(t, 1, a.Pending())

	_, err = a.Add(arrival("1", 0, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	got, err = a.Add(arrival("1", 0, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	assert.Empty(t, got.Rendered)
}

func TestAssembler_Errors(t *testing.T) {
	_, sub := singleCompletion(t)
	a := NewAssembler(sub)

	_, err := a.Add(arrival("8", 0, Logit{Token: 1, Value: 1}))
	require.ErrorIs(t, err, ErrUnknownOutput)

	_, err = a.Add(arrival("1", 1, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	require.ErrorIs(t, a.Close("1"), ErrStreamClosed)
	assert.False(t, a.Done())

	_, err = a.Add(arrival("1", 0, Logit{Token: 1, Value: 1}))
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestAssembler_Done(t *testing.T) {
	_, sub := singleCompletion(t)
	a := NewAssembler(sub)

	_, err := a.Add(arrival("1", 0, Logit{Token: 1, Value: 1}))
	require.NoError(t, err)
	assert.False(t, a.Done())

	require.NoError(t, a.Close("1"))
	assert.True(t, a.Done())
}

func TestAssembler_CloseBeforeAllFedTokens(t *testing.T) {
	s := NewScript(tokenized(RoleUser, "abc", 4, 5, 6))
	sub, err := s.Submit(SubmitOptions{})
	require.NoError(t, err)
	a := NewAssembler(sub)

	_, err = a.Add(arrival("1", 0, Logit{Token: 4, Value: 1}))
	require.NoError(t, err)

	require.ErrorIs(t, a.Close("1"), ErrStreamClosed)
	assert.False(t, a.Done())
}

func TestAssembler_CloseAfterAllFedTokens(t *testing.T) {
	s := NewScript(tokenized(RoleUser, "ab", 4, 5))
	sub, err := s.Submit(SubmitOptions{})
	require.NoError(t, err)
	a := NewAssembler(sub)

	_, err = a.Add(arrival("1", 1, Logit{Token: 5, Value: 1}))
	require.NoError(t, err)
	_, err = a.Add(arrival("1", 0, Logit{Token: 4, Value: 1}))
	require.NoError(t, err)

	require.NoError(t, a.Close("1"))
	assert.True(t, a.Done())
}

func TestAssembler_FedTokensBeyondInput(t *testing.T) {
	s := NewScript(tokenized(RoleUser, "x", 4))
	sub, err := s.Submit(SubmitOptions{})
	require.NoError(t, err)
	a := NewAssembler(sub)

	_, err = a.Add(arrival("1", 1, Logit{Token: 4, Value: 1}))

	require.ErrorIs(t, err, ErrResultShapeMismatch)
}

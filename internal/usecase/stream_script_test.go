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

func tokenEvent(id string, index int, tokenMap map[domain.Token]string, candidates ...domain.Logit) domain.StreamEvent {
	return domain.StreamEvent{
		Kind:      domain.StreamToken,
		RequestID: id,
		Arrival: domain.TokenArrival{
			TokenMap:   tokenMap,
			RequestID:  id,
			Candidates: candidates,
			Index:      index,
		},
	}
}

func doneEvent(id string) domain.StreamEvent {
	return domain.StreamEvent{Kind: domain.StreamDone, RequestID: id}
}

var endEvent = domain.StreamEvent{Kind: domain.StreamEnd}

// promptEvents streams promptResponse with the completion out of order.
func promptEvents() []domain.StreamEvent {
	return []domain.StreamEvent{
		tokenEvent("2", 1, map[domain.Token]string{12: "!"}, domain.Logit{Token: 12, Value: 2}),
		tokenEvent("2", 0, map[domain.Token]string{10: "Hello", 11: "Hey"},
			domain.Logit{Token: 10, Value: 3}, domain.Logit{Token: 11, Value: 1}),
		tokenEvent("1", 0, map[domain.Token]string{1: "hi"}, domain.Logit{Token: 1, Value: -1}),
		doneEvent("1"),
		doneEvent("2"),
		endEvent,
	}
}

func TestStreamScript_Execute(t *testing.T) {
	t.Run("assembles out of order arrivals", func(t *testing.T) {
		s := promptScript()
		sub := submitted(t, s)
		streamer := &testutil.MockStreamer{Events: promptEvents()}

		var rendered []string
		var recolored int
		uc := usecase.NewStreamScript(streamer, &testutil.MockLogger{})
		out, err := uc.Execute(context.Background(), usecase.StreamScriptInput{
			Submission: sub,
			OnUpdate: func(_ *domain.Results, a domain.Assembly) {
				for _, w := range a.Rendered {
					rendered = append(rendered, w.Text)
				}
				if a.Recolored {
					recolored++
				}
			},
		})

		require.NoError(t, err)
		assert.Equal(t, []domain.CompletionRequest{sub.Request}, streamer.Requests)
		assert.Equal(t, []string{"Hello", "!", "hi"}, rendered)
		assert.Equal(t, 3, recolored)

		completion, _ := s.Get(2)
		o, ok := out.Results.Output(completion.Key())
		require.True(t, ok)
		assert.Equal(t, "Hello!", o.Text())
		assert.Equal(t, -1.0, out.Results.Scale.Min)
		assert.Equal(t, 3.0, out.Results.Scale.Max)
	})

	t.Run("matches the non-streamed result", func(t *testing.T) {
		s := promptScript()
		sub := submitted(t, s)
		want, err := domain.MatchResults(sub, promptResponse())
		require.NoError(t, err)

		uc := usecase.NewStreamScript(&testutil.MockStreamer{Events: promptEvents()}, &testutil.MockLogger{})
		out, err := uc.Execute(context.Background(), usecase.StreamScriptInput{Submission: sub})
		require.NoError(t, err)

		for _, op := range s.Index().Order() {
			got, _ := out.Results.Output(op.Key())
			exp, _ := want.Output(op.Key())
			require.Len(t, got.Words, len(exp.Words))
			for i := range exp.Words {
				assert.Equal(t, exp.Words[i].Token, got.Words[i].Token)
				assert.Equal(t, exp.Words[i].Color, got.Words[i].Color)
			}
		}
	})

	t.Run("end before every request is done", func(t *testing.T) {
		events := []domain.StreamEvent{
			tokenEvent("1", 0, nil, domain.Logit{Token: 1, Value: 0}),
			doneEvent("1"),
			endEvent,
		}
		uc := usecase.NewStreamScript(&testutil.MockStreamer{Events: events}, &testutil.MockLogger{})

		_, err := uc.Execute(context.Background(), usecase.StreamScriptInput{Submission: submitted(t, promptScript())})

		require.ErrorIs(t, err, domain.ErrStreamClosed)
	})

	t.Run("done with a gap", func(t *testing.T) {
		events := []domain.StreamEvent{
			tokenEvent("2", 1, nil, domain.Logit{Token: 12, Value: 0}),
			doneEvent("2"),
		}
		uc := usecase.NewStreamScript(&testutil.MockStreamer{Events: events}, &testutil.MockLogger{})

		_, err := uc.Execute(context.Background(), usecase.StreamScriptInput{Submission: submitted(t, promptScript())})

		require.ErrorIs(t, err, domain.ErrStreamClosed)
	})

	t.Run("unknown request id", func(t *testing.T) {
		events := []domain.StreamEvent{tokenEvent("9", 0, nil, domain.Logit{Token: 1, Value: 0})}
		uc := usecase.NewStreamScript(&testutil.MockStreamer{Events: events}, &testutil.MockLogger{})

		_, err := uc.Execute(context.Background(), usecase.StreamScriptInput{Submission: submitted(t, promptScript())})

		require.ErrorIs(t, err, domain.ErrUnknownOutput)
	})

	t.Run("transport errors are returned", func(t *testing.T) {
		cause := errors.New("connection reset")
		uc := usecase.NewStreamScript(&testutil.MockStreamer{Err: cause}, &testutil.MockLogger{})

		_, err := uc.Execute(context.Background(), usecase.StreamScriptInput{Submission: submitted(t, promptScript())})

		require.ErrorIs(t, err, cause)
	})
}

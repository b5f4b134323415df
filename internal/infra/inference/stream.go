package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Stream message types sent by the server.
const (
	msgToken = "token"
	msgDone  = "done"
	msgEnd   = "end"
	msgError = "error"
)

// streamMessage is one websocket frame of a streamed response.
// Fields are ordered to minimize memory padding.
type streamMessage struct {
	TokenMap map[domain.Token]string `json:"token_map,omitempty"`
	Type     string                  `json:"type"`
	ID       string                  `json:"id,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Logits   []domain.Logit          `json:"logits,omitempty"`
	Index    int                     `json:"index"`
}

// Stream opens a websocket to the stream endpoint, sends req as the first
// message and reports every server message to fn until an "end" message.
func (c *Client) Stream(ctx context.Context, req domain.CompletionRequest, fn func(domain.StreamEvent) error) error {
	endpoint, err := c.endpoint(c.server.StreamPath, true)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadJSON when ctx is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return fmt.Errorf("%w: connection closed before end", domain.ErrStreamClosed)
			}
			return fmt.Errorf("read stream: %w", err)
		}

		ev, err := msg.event()
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
		if ev.Kind == domain.StreamEnd {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}

func (m streamMessage) event() (domain.StreamEvent, error) {
	switch m.Type {
	case msgToken:
		return domain.StreamEvent{
			Kind:      domain.StreamToken,
			RequestID: m.ID,
			Arrival: domain.TokenArrival{
				TokenMap:   m.TokenMap,
				RequestID:  m.ID,
				Candidates: m.Logits,
				Index:      m.Index,
			},
		}, nil
	case msgDone:
		return domain.StreamEvent{Kind: domain.StreamDone, RequestID: m.ID}, nil
	case msgEnd:
		return domain.StreamEvent{Kind: domain.StreamEnd}, nil
	case msgError:
		return domain.StreamEvent{}, fmt.Errorf("%w: %s", domain.ErrServerResponse, m.Error)
	default:
		return domain.StreamEvent{}, errors.New("unknown stream message type: " + m.Type)
	}
}

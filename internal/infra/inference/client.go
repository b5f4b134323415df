// Package inference talks to the inference server: tokenizing text, running
// submitted scripts over HTTP and streaming generated tokens over a websocket.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Ensure Client implements the inference ports.
var (
	_ domain.Tokenizer = (*Client)(nil)
	_ domain.Completer = (*Client)(nil)
	_ domain.Streamer  = (*Client)(nil)
)

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// Client is the inference server client.
// Fields are ordered to minimize memory padding.
type Client struct {
	http   *http.Client
	dialer *websocket.Dialer
	server domain.ServerConfig
}

// New creates a Client for the configured server.
func New(server domain.ServerConfig) *Client {
	timeout := server.RequestTimeout()
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = timeout
	return &Client{
		http:   &http.Client{Timeout: timeout},
		dialer: &dialer,
		server: server,
	}
}

// NewWithHTTPClient creates a Client using hc for plain HTTP calls.
func NewWithHTTPClient(server domain.ServerConfig, hc *http.Client) *Client {
	c := New(server)
	c.http = hc
	return c
}

type tokenizeRequest struct {
	Text string `json:"text"`
}

// Tokenize posts {"text": text} and decodes the token list.
func (c *Client) Tokenize(ctx context.Context, text string) ([]domain.Token, error) {
	var tokens []domain.Token
	if err := c.post(ctx, c.server.TokenizePath, tokenizeRequest{Text: text}, &tokens); err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if tokens == nil {
		tokens = []domain.Token{}
	}
	return tokens, nil
}

// Complete posts the submitted operations and decodes one result per operation.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) ([]domain.OperationResult, error) {
	var results []domain.OperationResult
	if err := c.post(ctx, c.server.CompletionPath, req, &results); err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return results, nil
}

// post sends body as JSON to path and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint, err := c.endpoint(path, false)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %s", domain.ErrServerResponse, resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// endpoint joins the server URL and path. With ws set, the scheme is
// switched to ws or wss.
func (c *Client) endpoint(path string, ws bool) (string, error) {
	base, err := url.Parse(c.server.URL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("parse server url: %q is not absolute", c.server.URL)
	}
	u := base.JoinPath(path)
	if ws {
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		case "http":
			u.Scheme = "ws"
		}
	}
	return u.String(), nil
}

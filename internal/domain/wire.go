package domain

import (
	"encoding/json"
	"fmt"
)

// Request operation names.
const (
	OpFeedTokens = "feed_tokens"
	OpCompletion = "completion"
	OpBranch     = "branch"
)

// DefaultTopP is the top_p sent with feed_tokens and completion requests.
const DefaultTopP = 10

// CompletionRequest is the body of a completion call.
type CompletionRequest struct {
	Operations []OperationRequest `json:"operations"`
}

// OperationRequest is one submitted operation. Exactly one of FeedTokens,
// Completion or Branch is set, selected by Name.
type OperationRequest struct {
	FeedTokens *FeedTokensRequest `json:"feed_tokens,omitempty"`
	Completion *CompletionOptions `json:"completion,omitempty"`
	Branch     *BranchRequest     `json:"branch,omitempty"`
	ID         string             `json:"id"`
	Name       string             `json:"name"`
}

// FeedTokensRequest feeds a fixed token sequence.
type FeedTokensRequest struct {
	Tokens []Token `json:"tokens"`
	TopP   int     `json:"top_p"`
}

// CompletionOptions asks for up to MaxTokens generated tokens.
type CompletionOptions struct {
	MaxTokens int `json:"max_tokens"`
	TopP      int `json:"top_p"`
}

// BranchRequest runs each fork as an independent continuation.
type BranchRequest struct {
	Forks [][]OperationRequest `json:"forks"`
}

// Validate mirrors the server-side checks so that malformed requests are
// refused before they are sent.
func (r OperationRequest) Validate() error {
	switch r.Name {
	case OpFeedTokens:
		if r.FeedTokens == nil || len(r.FeedTokens.Tokens) == 0 {
			return fmt.Errorf("operation %s: %w", r.ID, ErrEmptyFeedTokens)
		}
	case OpCompletion:
		if r.Completion == nil {
			return fmt.Errorf("operation %s: completion parameters missing", r.ID)
		}
	case OpBranch:
		if r.Branch == nil || len(r.Branch.Forks) == 0 {
			return fmt.Errorf("operation %s: branch has no forks", r.ID)
		}
		for _, fork := range r.Branch.Forks {
			for _, child := range fork {
				if err := child.Validate(); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("operation %s: unknown name %q", r.ID, r.Name)
	}
	return nil
}

// Logit is one candidate token with its score, encoded as [token, value].
type Logit struct {
	Token Token
	Value float64
}

// MarshalJSON encodes the logit as a two-element array.
func (l Logit) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{l.Token, l.Value})
}

// UnmarshalJSON decodes a [token, value] pair.
func (l *Logit) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode logit: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode logit: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &l.Token); err != nil {
		return fmt.Errorf("decode logit token: %w", err)
	}
	if err := json.Unmarshal(pair[1], &l.Value); err != nil {
		return fmt.Errorf("decode logit value: %w", err)
	}
	return nil
}

// TokenResult is the result of a feed_tokens or completion operation.
// Logits holds, per position, the candidates ordered best first.
type TokenResult struct {
	TokenMap map[Token]string `json:"token_map"`
	Logits   [][]Logit        `json:"logits"`
}

// OperationResult is one record of a completion response. For a branch,
// Forks holds one result list per submitted fork; otherwise Tokens is set.
type OperationResult struct {
	Tokens *TokenResult        `json:"-"`
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Forks  [][]OperationResult `json:"-"`
}

type operationResultJSON struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result"`
}

// MarshalJSON encodes the record with its name-dependent result.
func (r OperationResult) MarshalJSON() ([]byte, error) {
	var result any
	switch r.Name {
	case OpBranch:
		forks := r.Forks
		if forks == nil {
			forks = [][]OperationResult{}
		}
		result = forks
	default:
		result = r.Tokens
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(operationResultJSON{ID: r.ID, Name: r.Name, Result: raw})
}

// UnmarshalJSON decodes the result according to the record name.
func (r *OperationResult) UnmarshalJSON(data []byte) error {
	var raw operationResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode operation result: %w", err)
	}
	out := OperationResult{ID: raw.ID, Name: raw.Name}
	if len(raw.Result) > 0 && string(raw.Result) != "null" {
		switch raw.Name {
		case OpBranch:
			if err := json.Unmarshal(raw.Result, &out.Forks); err != nil {
				return fmt.Errorf("decode branch result %s: %w", raw.ID, err)
			}
		case OpFeedTokens, OpCompletion:
			out.Tokens = &TokenResult{}
			if err := json.Unmarshal(raw.Result, out.Tokens); err != nil {
				return fmt.Errorf("decode %s result %s: %w", raw.Name, raw.ID, err)
			}
		default:
			return fmt.Errorf("decode operation result %s: unknown name %q", raw.ID, raw.Name)
		}
	}
	*r = out
	return nil
}

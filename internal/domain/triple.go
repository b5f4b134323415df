package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Triple is the persisted form of one operation: [type, role, parameters].
// Exactly one of Text, Completion or Options is meaningful, selected by Kind.
// Fields are ordered to minimize memory padding.
type Triple struct {
	Text       *TextParams
	Completion *CompletionParams
	Kind       Kind
	Role       Role
	Options    []OptionSnapshot
}

// OptionSnapshot is the persisted form of one branch option.
type OptionSnapshot struct {
	Operations []Triple `json:"operations"`
}

type textParamsJSON struct {
	Raw       string  `json:"raw"`
	Tokenized []Token `json:"tokenized"`
}

type completionParamsJSON struct {
	MaxTokens int `json:"maxTokens"`
}

type branchParamsJSON struct {
	Options []OptionSnapshot `json:"options"`
}

// MarshalJSON encodes the triple as a three-element array.
func (t Triple) MarshalJSON() ([]byte, error) {
	var params any
	switch t.Kind {
	case KindText:
		p := textParamsJSON{Tokenized: []Token{}}
		if t.Text != nil {
			p.Raw = t.Text.Raw
			if t.Text.Tokenized != nil {
				p.Tokenized = t.Text.Tokenized
			}
		}
		params = p
	case KindCompletion:
		p := completionParamsJSON{MaxTokens: DefaultMaxTokens}
		if t.Completion != nil {
			p.MaxTokens = t.Completion.MaxTokens
		}
		params = p
	case KindBranch:
		p := branchParamsJSON{Options: t.Options}
		if p.Options == nil {
			p.Options = []OptionSnapshot{}
		}
		params = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	return json.Marshal([]any{t.Kind, t.Role, params})
}

// UnmarshalJSON decodes a three-element [type, role, parameters] array.
func (t *Triple) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode operation triple: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("%w: triple has %d elements", ErrInvalidTriple, len(parts))
	}

	var kind, role string
	if err := json.Unmarshal(parts[0], &kind); err != nil {
		return fmt.Errorf("decode operation type: %w", err)
	}
	if err := json.Unmarshal(parts[1], &role); err != nil {
		return fmt.Errorf("decode operation role: %w", err)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return err
	}
	r, err := ParseRole(role)
	if err != nil {
		return err
	}

	out := Triple{Kind: k, Role: r}
	switch k {
	case KindText:
		var p textParamsJSON
		if err := json.Unmarshal(parts[2], &p); err != nil {
			return fmt.Errorf("decode text parameters: %w", err)
		}
		if p.Tokenized == nil {
			p.Tokenized = []Token{}
		}
		out.Text = &TextParams{Raw: p.Raw, Tokenized: p.Tokenized}
	case KindCompletion:
		var p completionParamsJSON
		if err := json.Unmarshal(parts[2], &p); err != nil {
			return fmt.Errorf("decode completion parameters: %w", err)
		}
		out.Completion = &CompletionParams{MaxTokens: p.MaxTokens}
	case KindBranch:
		var p branchParamsJSON
		if err := json.Unmarshal(parts[2], &p); err != nil {
			return fmt.Errorf("decode branch parameters: %w", err)
		}
		out.Options = p.Options
	}
	*t = out
	return nil
}

// UnmarshalJSON accepts a token as a JSON number or a numeric string.
func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("decode token %s: %w", data, err)
	}
	*t = Token(n)
	return nil
}

// Build materializes the triple into a detached operation tree.
func (t Triple) Build() (*Operation, error) {
	switch t.Kind {
	case KindText:
		if t.Text == nil {
			return NewText(t.Role, "", nil), nil
		}
		return NewText(t.Role, t.Text.Raw, t.Text.Tokenized), nil
	case KindCompletion:
		if t.Completion == nil {
			return NewCompletion(t.Role, DefaultMaxTokens), nil
		}
		return NewCompletion(t.Role, t.Completion.MaxTokens), nil
	case KindBranch:
		options := make([]*OperationList, 0, len(t.Options))
		for i, opt := range t.Options {
			ops, err := buildAll(opt.Operations)
			if err != nil {
				return nil, fmt.Errorf("option %d: %w", i+1, err)
			}
			options = append(options, NewOperationList(t.Role, ops...))
		}
		return NewBranch(t.Role, options...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
}

func buildAll(triples []Triple) ([]*Operation, error) {
	ops := make([]*Operation, 0, len(triples))
	for i, t := range triples {
		op, err := t.Build()
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Equal reports whether two triples carry the same type, role and parameters.
func (t Triple) Equal(o Triple) bool {
	if t.Kind != o.Kind || t.Role != o.Role {
		return false
	}
	switch t.Kind {
	case KindText:
		a, b := t.Text, o.Text
		if a == nil || b == nil {
			return a == b
		}
		return a.Raw == b.Raw && slices.Equal(a.Tokenized, b.Tokenized)
	case KindCompletion:
		a, b := t.Completion, o.Completion
		if a == nil || b == nil {
			return a == b
		}
		return a.MaxTokens == b.MaxTokens
	case KindBranch:
		return slices.EqualFunc(t.Options, o.Options, func(x, y OptionSnapshot) bool {
			return slices.EqualFunc(x.Operations, y.Operations, Triple.Equal)
		})
	}
	return false
}

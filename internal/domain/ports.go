package domain

import (
	"context"
	"time"
)

// Tokenizer turns role-wrapped text into tokens.
type Tokenizer interface {
	// Tokenize returns the tokens of text. An empty result means the text
	// has no valid tokenization.
	Tokenize(ctx context.Context, text string) ([]Token, error)
}

// Completer runs a submitted script on the inference server.
type Completer interface {
	// Complete sends the request and returns the whole response.
	Complete(ctx context.Context, req CompletionRequest) ([]OperationResult, error)
}

// StreamEventKind classifies a streaming message.
type StreamEventKind int

// Stream event kinds.
const (
	// StreamToken carries one token arrival.
	StreamToken StreamEventKind = iota
	// StreamDone marks the end of one request's tokens.
	StreamDone
	// StreamEnd marks the end of the whole response.
	StreamEnd
)

// StreamEvent is one message of a streamed response.
type StreamEvent struct {
	Arrival   TokenArrival
	RequestID string
	Kind      StreamEventKind
}

// Streamer runs a submitted script and reports tokens as they are generated.
type Streamer interface {
	// Stream sends the request and calls fn for every message until the
	// response ends, fn returns an error, or ctx is cancelled.
	Stream(ctx context.Context, req CompletionRequest, fn func(StreamEvent) error) error
}

// StateStore persists the editor's working script.
type StateStore interface {
	// Load returns the saved script, or nil if nothing was saved.
	Load() ([]Triple, error)

	// Save replaces the saved script.
	Save(triples []Triple) error
}

// ScriptInfo describes an entry of the script library.
// Fields are ordered to minimize memory padding.
type ScriptInfo struct {
	UpdatedAt  time.Time
	Name       string
	Operations int
}

// ScriptRepository manages the named script library.
type ScriptRepository interface {
	// Get retrieves a script by name. Returns ErrScriptNotFound if missing.
	Get(name string) ([]Triple, error)

	// List returns all scripts sorted by name.
	List() ([]ScriptInfo, error)

	// Save creates or replaces a script.
	Save(name string, triples []Triple) error

	// Delete removes a script. Returns ErrScriptNotFound if missing.
	Delete(name string) error
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (project + global).
	Load() (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)

	// LoadWithOptions returns the configuration merged from the selected sources.
	LoadWithOptions(opts LoadConfigOptions) (*Config, error)
}

// ConfigManager inspects and creates config files.
type ConfigManager interface {
	// GetProjectConfigInfo returns information about the project config.
	GetProjectConfigInfo() ConfigInfo

	// GetGlobalConfigInfo returns information about the global config.
	GetGlobalConfigInfo() ConfigInfo

	// InitProjectConfig creates the project config file.
	InitProjectConfig(cfg *Config) error

	// InitGlobalConfig creates the global config file.
	InitGlobalConfig(cfg *Config) error
}

// Logger writes diagnostic logs. An empty scope logs globally only.
type Logger interface {
	Info(scope, category, msg string)
	Debug(scope, category, msg string)
	Warn(scope, category, msg string)
	Error(scope, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Sleeper waits between retries. It returns early with ctx's error when ctx
// is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper implements Sleeper with a timer.
type RealSleeper struct{}

// Sleep waits for d or until ctx is done.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string       `toml:"-"`
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Log      LogConfig      `toml:"log"`
	Editor   EditorConfig   `toml:"editor"`
	Tokenize TokenizeConfig `toml:"tokenize"`
}

// ServerConfig holds inference server settings from [server] section.
type ServerConfig struct {
	URL            string `toml:"url"`             // Base URL of the inference server
	TokenizePath   string `toml:"tokenize_path"`   // POST {text} -> [token...]
	CompletionPath string `toml:"completion_path"` // POST {operations} -> [result...]
	StreamPath     string `toml:"stream_path"`     // Websocket endpoint for token streaming
	Timeout        string `toml:"timeout"`         // Per-request timeout (Go duration)
}

// RequestTimeout parses Timeout, falling back to DefaultTimeout.
func (c ServerConfig) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// EditorConfig holds editing behavior from [editor] section.
// Fields are ordered to minimize memory padding.
type EditorConfig struct {
	DebounceMS int  `toml:"debounce_ms"` // Quiescence window before tokenizing an edit
	TopP       int  `toml:"top_p"`       // top_p sent with every operation
	MaxTokens  int  `toml:"max_tokens"`  // Length of new completion operations
	Stream     bool `toml:"stream"`      // Stream tokens instead of waiting for the whole response
}

// Debounce returns the debounce window as a duration.
func (c EditorConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// TokenizeConfig holds retry settings from [tokenize] section.
type TokenizeConfig struct {
	Retries   int `toml:"retries"`    // Attempts after the first failure
	BackoffMS int `toml:"backoff_ms"` // First retry delay, doubled per attempt
}

// Backoff returns the first retry delay as a duration.
func (c TokenizeConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}

// StoreConfig holds script library settings from [store] section.
type StoreConfig struct {
	Backend   string `toml:"backend"`   // "json" (default) or "git"
	Namespace string `toml:"namespace"` // Git namespace for refs
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level"` // Log level: debug, info, warn, error
}

// Store backends.
const (
	StoreBackendJSON = "json"
	StoreBackendGit  = "git"
)

// Default configuration values.
const (
	DefaultServerURL      = "http://localhost:8888"
	DefaultTokenizePath   = "/tokenize"
	DefaultCompletionPath = "/streaming_completion"
	DefaultStreamPath     = "/stream"
	DefaultTimeout        = 2 * time.Minute
	DefaultDebounceMS     = 300
	DefaultRetries        = 3
	DefaultBackoffMS      = 200
	DefaultNamespace      = "tokenscope"
	DefaultLogLevel       = "info"
)

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            DefaultServerURL,
			TokenizePath:   DefaultTokenizePath,
			CompletionPath: DefaultCompletionPath,
			StreamPath:     DefaultStreamPath,
			Timeout:        DefaultTimeout.String(),
		},
		Editor: EditorConfig{
			DebounceMS: DefaultDebounceMS,
			TopP:       DefaultTopP,
			MaxTokens:  DefaultMaxTokens,
		},
		Tokenize: TokenizeConfig{
			Retries:   DefaultRetries,
			BackoffMS: DefaultBackoffMS,
		},
		Store: StoreConfig{
			Backend:   StoreBackendJSON,
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigInfo describes a config file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// RenderConfigTemplate renders a commented config file holding the values of cfg.
func RenderConfigTemplate(cfg *Config) string {
	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		// Should never happen with valid data
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}
	return buf.String()
}

// LoadConfigOptions selects which config files are merged.
type LoadConfigOptions struct {
	IgnoreGlobal  bool // Skip the global config
	IgnoreProject bool // Skip the project config
}

// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/tokenscope/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	projectDir    string // Path to <project>/.tokenscope
	globalConfDir string // Path to global config directory (e.g., ~/.config/tokenscope)
}

// NewLoader creates a new Loader.
func NewLoader(projectDir string) *Loader {
	return &Loader{
		projectDir:    projectDir,
		globalConfDir: DefaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(projectDir, globalConfDir string) *Loader {
	return &Loader{
		projectDir:    projectDir,
		globalConfDir: globalConfDir,
	}
}

// DefaultGlobalConfigDir returns the default global config directory.
func DefaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalDir(configHome)
}

// Load returns the merged configuration (project + global).
// Project config takes precedence over global config.
func (l *Loader) Load() (*domain.Config, error) {
	return l.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// LoadProject returns only the project configuration.
func (l *Loader) LoadProject() (*domain.Config, error) {
	if l.projectDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.projectDir, domain.ConfigFileName))
}

// LoadWithOptions returns the merged configuration with options to ignore sources.
func (l *Loader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	var global, project *domain.Config
	var err error

	if !opts.IgnoreGlobal {
		global, err = l.LoadGlobal()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load global config: %w", err)
		}
	}

	if !opts.IgnoreProject {
		project, err = l.LoadProject()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load project config: %w", err)
		}
	}

	// Merge: default <- global <- project (later takes precedence)
	base := domain.NewDefaultConfig()
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if project != nil {
		base = mergeConfigs(base, project)
	}
	return base, nil
}

// loadFile loads a configuration from a file.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return convertRawToDomainConfig(raw), nil
}

// convertRawToDomainConfig converts the raw map to domain config and collects warnings.
// Values of the wrong type are ignored.
func convertRawToDomainConfig(raw map[string]any) *domain.Config {
	res := &domain.Config{}
	var warnings []string

	unknown := func(section, key string) {
		warnings = append(warnings, fmt.Sprintf("unknown key in [%s]: %s", section, key))
	}

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
			continue
		}
		switch section {
		case "server":
			for k, v := range m {
				switch k {
				case "url":
					setString(&res.Server.URL, v)
				case "tokenize_path":
					setString(&res.Server.TokenizePath, v)
				case "completion_path":
					setString(&res.Server.CompletionPath, v)
				case "stream_path":
					setString(&res.Server.StreamPath, v)
				case "timeout":
					setString(&res.Server.Timeout, v)
				default:
					unknown(section, k)
				}
			}
		case "editor":
			for k, v := range m {
				switch k {
				case "debounce_ms":
					setInt(&res.Editor.DebounceMS, v)
				case "top_p":
					setInt(&res.Editor.TopP, v)
				case "max_tokens":
					setInt(&res.Editor.MaxTokens, v)
				case "stream":
					if b, ok := v.(bool); ok {
						res.Editor.Stream = b
					}
				default:
					unknown(section, k)
				}
			}
		case "tokenize":
			for k, v := range m {
				switch k {
				case "retries":
					setInt(&res.Tokenize.Retries, v)
				case "backoff_ms":
					setInt(&res.Tokenize.BackoffMS, v)
				default:
					unknown(section, k)
				}
			}
		case "store":
			for k, v := range m {
				switch k {
				case "backend":
					setString(&res.Store.Backend, v)
				case "namespace":
					setString(&res.Store.Namespace, v)
				default:
					unknown(section, k)
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					setString(&res.Log.Level, v)
				default:
					unknown(section, k)
				}
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
		}
	}

	sort.Strings(warnings)
	res.Warnings = warnings
	return res
}

func setString(dst *string, v any) {
	if s, ok := v.(string); ok {
		*dst = s
	}
}

// setInt accepts the int64 go-toml produces for integers.
func setInt(dst *int, v any) {
	switch n := v.(type) {
	case int64:
		*dst = int(n)
	case int:
		*dst = n
	}
}

// mergeConfigs merges two configs, with override taking precedence.
// Zero values in override do not replace base values, except Editor.Stream
// which is only ever switched on.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := *base
	if len(override.Warnings) > 0 {
		result.Warnings = append(append([]string{}, base.Warnings...), override.Warnings...)
	}

	mergeString(&result.Server.URL, override.Server.URL)
	mergeString(&result.Server.TokenizePath, override.Server.TokenizePath)
	mergeString(&result.Server.CompletionPath, override.Server.CompletionPath)
	mergeString(&result.Server.StreamPath, override.Server.StreamPath)
	mergeString(&result.Server.Timeout, override.Server.Timeout)

	mergeInt(&result.Editor.DebounceMS, override.Editor.DebounceMS)
	mergeInt(&result.Editor.TopP, override.Editor.TopP)
	mergeInt(&result.Editor.MaxTokens, override.Editor.MaxTokens)
	if override.Editor.Stream {
		result.Editor.Stream = true
	}

	mergeInt(&result.Tokenize.Retries, override.Tokenize.Retries)
	mergeInt(&result.Tokenize.BackoffMS, override.Tokenize.BackoffMS)

	mergeString(&result.Store.Backend, override.Store.Backend)
	mergeString(&result.Store.Namespace, override.Store.Namespace)

	mergeString(&result.Log.Level, override.Log.Level)

	return &result
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/runoshun/tokenscope/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockSleeper records requested delays without waiting.
type MockSleeper struct {
	Err    error
	Delays []time.Duration
}

// Sleep records d and returns Err, or ctx's error if ctx is done.
func (m *MockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	m.Delays = append(m.Delays, d)
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Err
}

// MockTokenizer is a test double for domain.Tokenizer.
// Results are consumed in order; when exhausted, the last one repeats.
// Fields are ordered to minimize memory padding.
type MockTokenizer struct {
	Results []TokenizeResult
	Texts   []string
	mu      sync.Mutex
}

// TokenizeResult is one scripted answer of MockTokenizer.
type TokenizeResult struct {
	Err    error
	Tokens []domain.Token
}

// Ensure MockTokenizer implements domain.Tokenizer.
var _ domain.Tokenizer = (*MockTokenizer)(nil)

// Tokenize records text and returns the next scripted result.
func (m *MockTokenizer) Tokenize(_ context.Context, text string) ([]domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Texts = append(m.Texts, text)
	if len(m.Results) == 0 {
		return nil, fmt.Errorf("no scripted tokenize result for %q", text)
	}
	r := m.Results[0]
	if len(m.Results) > 1 {
		m.Results = m.Results[1:]
	}
	return r.Tokens, r.Err
}

// Calls returns the number of Tokenize calls.
func (m *MockTokenizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Texts)
}

// MockCompleter is a test double for domain.Completer.
type MockCompleter struct {
	Err      error
	Requests []domain.CompletionRequest
	Response []domain.OperationResult
}

// Ensure MockCompleter implements domain.Completer.
var _ domain.Completer = (*MockCompleter)(nil)

// Complete records req and returns the configured response.
func (m *MockCompleter) Complete(_ context.Context, req domain.CompletionRequest) ([]domain.OperationResult, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

// MockStreamer is a test double for domain.Streamer that replays Events.
type MockStreamer struct {
	Err      error
	Requests []domain.CompletionRequest
	Events   []domain.StreamEvent
}

// Ensure MockStreamer implements domain.Streamer.
var _ domain.Streamer = (*MockStreamer)(nil)

// Stream replays Events through fn, then returns Err.
func (m *MockStreamer) Stream(ctx context.Context, req domain.CompletionRequest, fn func(domain.StreamEvent) error) error {
	m.Requests = append(m.Requests, req)
	for _, ev := range m.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return m.Err
}

// MockStateStore is a test double for domain.StateStore.
type MockStateStore struct {
	LoadErr   error
	SaveErr   error
	Triples   []domain.Triple
	SaveCalls int
}

// Ensure MockStateStore implements domain.StateStore.
var _ domain.StateStore = (*MockStateStore)(nil)

// Load returns the stored triples.
func (m *MockStateStore) Load() ([]domain.Triple, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Triples, nil
}

// Save stores triples.
func (m *MockStateStore) Save(triples []domain.Triple) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Triples = triples
	return nil
}

// MockScriptRepository is an in-memory domain.ScriptRepository.
type MockScriptRepository struct {
	Scripts map[string][]domain.Triple
	Clock   domain.Clock
	ListErr error
	SaveErr error
	updated map[string]time.Time
}

// NewMockScriptRepository creates an empty MockScriptRepository.
func NewMockScriptRepository() *MockScriptRepository {
	return &MockScriptRepository{
		Scripts: make(map[string][]domain.Triple),
		Clock:   &MockClock{},
		updated: make(map[string]time.Time),
	}
}

// Ensure MockScriptRepository implements domain.ScriptRepository.
var _ domain.ScriptRepository = (*MockScriptRepository)(nil)

// Get returns a stored script.
func (m *MockScriptRepository) Get(name string) ([]domain.Triple, error) {
	t, ok := m.Scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
	}
	return t, nil
}

// List returns all scripts sorted by name.
func (m *MockScriptRepository) List() ([]domain.ScriptInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	names := make([]string, 0, len(m.Scripts))
	for name := range m.Scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	infos := make([]domain.ScriptInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, domain.ScriptInfo{
			Name:       name,
			UpdatedAt:  m.updated[name],
			Operations: len(m.Scripts[name]),
		})
	}
	return infos, nil
}

// Save stores a script.
func (m *MockScriptRepository) Save(name string, triples []domain.Triple) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	m.Scripts[name] = triples
	m.updated[name] = m.Clock.Now()
	return nil
}

// Delete removes a script.
func (m *MockScriptRepository) Delete(name string) error {
	if _, ok := m.Scripts[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
	}
	delete(m.Scripts, name)
	delete(m.updated, name)
	return nil
}

// MockConfigLoader is a test double for domain.ConfigLoader.
// Fields are ordered to minimize memory padding.
type MockConfigLoader struct {
	Config       *domain.Config
	GlobalConfig *domain.Config
	LoadErr      error
	GlobalErr    error
	LastOptions  domain.LoadConfigOptions
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{
		Config: domain.NewDefaultConfig(),
	}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured global config or error.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.GlobalErr != nil {
		return nil, m.GlobalErr
	}
	if m.GlobalConfig != nil {
		return m.GlobalConfig, nil
	}
	return m.Config, nil
}

// LoadWithOptions records opts and behaves like Load, or like LoadGlobal
// when the project config is ignored.
func (m *MockConfigLoader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	m.LastOptions = opts
	switch {
	case opts.IgnoreGlobal && opts.IgnoreProject:
		return domain.NewDefaultConfig(), nil
	case opts.IgnoreProject:
		return m.LoadGlobal()
	}
	return m.Load()
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	InitProjectErr    error
	InitGlobalErr     error
	ProjectConfigInfo domain.ConfigInfo
	GlobalConfigInfo  domain.ConfigInfo
	InitProjectCalled bool
	InitGlobalCalled  bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		ProjectConfigInfo: domain.ConfigInfo{Path: "/test/.tokenscope/config.toml"},
		GlobalConfigInfo:  domain.ConfigInfo{Path: "/home/test/.config/tokenscope/config.toml"},
	}
}

// Ensure MockConfigManager implements domain.ConfigManager interface.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GetProjectConfigInfo returns the configured project config info.
func (m *MockConfigManager) GetProjectConfigInfo() domain.ConfigInfo {
	return m.ProjectConfigInfo
}

// GetGlobalConfigInfo returns the configured global config info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitProjectConfig records the call and returns the configured error.
func (m *MockConfigManager) InitProjectConfig(_ *domain.Config) error {
	m.InitProjectCalled = true
	return m.InitProjectErr
}

// InitGlobalConfig records the call and returns the configured error.
func (m *MockConfigManager) InitGlobalConfig(_ *domain.Config) error {
	m.InitGlobalCalled = true
	return m.InitGlobalErr
}

// LogEntry is one message captured by MockLogger.
type LogEntry struct {
	Level    string
	Scope    string
	Category string
	Msg      string
}

// MockLogger captures log entries in memory.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

// Ensure MockLogger implements domain.Logger.
var _ domain.Logger = (*MockLogger)(nil)

func (m *MockLogger) add(level, scope, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Scope: scope, Category: category, Msg: msg})
}

// Info records an info entry.
func (m *MockLogger) Info(scope, category, msg string) { m.add("INFO", scope, category, msg) }

// Debug records a debug entry.
func (m *MockLogger) Debug(scope, category, msg string) { m.add("DEBUG", scope, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(scope, category, msg string) { m.add("WARN", scope, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(scope, category, msg string) { m.add("ERROR", scope, category, msg) }

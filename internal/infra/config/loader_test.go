package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoader_Load_ProjectConfigOnly(t *testing.T) {
	projectDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, projectDir, `
[server]
url = "http://gpu-box:9000"
timeout = "30s"

[editor]
debounce_ms = 150
stream = true

[log]
level = "debug"
`)

	loader := NewLoaderWithGlobalDir(projectDir, globalDir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:9000", cfg.Server.URL)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout())
	assert.Equal(t, domain.DefaultTokenizePath, cfg.Server.TokenizePath)
	assert.Equal(t, 150*time.Millisecond, cfg.Editor.Debounce())
	assert.True(t, cfg.Editor.Stream)
	assert.Equal(t, domain.DefaultTopP, cfg.Editor.TopP)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Empty(t, cfg.Warnings)
}

func TestLoader_Load_GlobalConfigOnly(t *testing.T) {
	projectDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, globalDir, `
[tokenize]
retries = 5
backoff_ms = 50

[store]
backend = "git"
`)

	loader := NewLoaderWithGlobalDir(projectDir, globalDir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Tokenize.Retries)
	assert.Equal(t, 50*time.Millisecond, cfg.Tokenize.Backoff())
	assert.Equal(t, domain.StoreBackendGit, cfg.Store.Backend)
	assert.Equal(t, domain.DefaultNamespace, cfg.Store.Namespace)
}

func TestLoader_Load_MergeProjectOverridesGlobal(t *testing.T) {
	projectDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, globalDir, `
[server]
url = "http://global:8888"
stream_path = "/ws"

[editor]
top_p = 5
max_tokens = 64
`)
	writeConfig(t, projectDir, `
[server]
url = "http://project:8888"

[editor]
max_tokens = 32
`)

	loader := NewLoaderWithGlobalDir(projectDir, globalDir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://project:8888", cfg.Server.URL) // Overridden by project
	assert.Equal(t, "/ws", cfg.Server.StreamPath)          // From global
	assert.Equal(t, 5, cfg.Editor.TopP)                    // From global
	assert.Equal(t, 32, cfg.Editor.MaxTokens)              // Overridden by project
}

func TestLoader_Load_NoConfigFiles(t *testing.T) {
	loader := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir())
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, domain.NewDefaultConfig(), cfg)
}

func TestLoader_Load_EmptyDirs(t *testing.T) {
	loader := NewLoaderWithGlobalDir("", "")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultServerURL, cfg.Server.URL)
}

func TestLoader_LoadGlobal_NotFound(t *testing.T) {
	loader := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir())
	_, err := loader.LoadGlobal()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_Load_InvalidTOML(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "[server\nurl = ")

	loader := NewLoaderWithGlobalDir(projectDir, t.TempDir())
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestLoader_LoadWithOptions(t *testing.T) {
	projectDir := t.TempDir()
	globalDir := t.TempDir()
	writeConfig(t, globalDir, "[log]\nlevel = \"warn\"\n")
	writeConfig(t, projectDir, "[store]\nnamespace = \"lab\"\n")

	loader := NewLoaderWithGlobalDir(projectDir, globalDir)

	tests := []struct {
		name      string
		wantLevel string
		wantNS    string
		opts      domain.LoadConfigOptions
	}{
		{"both", "warn", "lab", domain.LoadConfigOptions{}},
		{"ignore global", domain.DefaultLogLevel, "lab", domain.LoadConfigOptions{IgnoreGlobal: true}},
		{"ignore project", "warn", domain.DefaultNamespace, domain.LoadConfigOptions{IgnoreProject: true}},
		{"ignore both", domain.DefaultLogLevel, domain.DefaultNamespace, domain.LoadConfigOptions{IgnoreGlobal: true, IgnoreProject: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loader.LoadWithOptions(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, cfg.Log.Level)
			assert.Equal(t, tt.wantNS, cfg.Store.Namespace)
		})
	}
}

func TestLoader_Load_UnknownKeys(t *testing.T) {
	projectDir := t.TempDir()

	writeConfig(t, projectDir, `
top_level = 1

[unknown_section]
key = "value"

[server]
unknown_server_key = "value"

[editor]
unknown_editor_key = 1

[tokenize]
unknown_tokenize_key = 1

[store]
unknown_store_key = "value"

[log]
unknown_log_key = "value"
`)

	loader := NewLoaderWithGlobalDir(projectDir, t.TempDir())
	cfg, err := loader.Load()
	require.NoError(t, err)

	expected := []string{
		"unknown key in [editor]: unknown_editor_key",
		"unknown key in [log]: unknown_log_key",
		"unknown key in [server]: unknown_server_key",
		"unknown key in [store]: unknown_store_key",
		"unknown key in [tokenize]: unknown_tokenize_key",
		"unknown section: top_level",
		"unknown section: unknown_section",
	}
	assert.Equal(t, expected, cfg.Warnings)
}

func TestLoader_Load_RenderedTemplateRoundTrips(t *testing.T) {
	projectDir := t.TempDir()
	want := domain.NewDefaultConfig()
	want.Server.URL = "http://templated:1234"
	want.Editor.Stream = true
	writeConfig(t, projectDir, domain.RenderConfigTemplate(want))

	loader := NewLoaderWithGlobalDir(projectDir, "")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, want, cfg)
}

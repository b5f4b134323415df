package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestLogger_ScopedEntryGoesToBothFiles(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("req-3", "tokenize", "3 tokens")

	global := readLog(t, domain.GlobalLogPath(stateDir))
	assert.Contains(t, global, "[INFO] [req-3] [tokenize] 3 tokens")

	scoped := readLog(t, domain.ScopeLogPath(stateDir, "req-3"))
	assert.Contains(t, scoped, "3 tokens")
}

func TestLogger_GlobalLogOnly(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("", "app", "started")

	assert.Contains(t, readLog(t, domain.GlobalLogPath(stateDir)), "[global] [app] started")
	entries, err := os.ReadDir(filepath.Join(stateDir, "logs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogger_LevelFiltering(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelWarn)
	defer func() { _ = logger.Close() }()

	logger.Debug("", "x", "debug message")
	logger.Info("", "x", "info message")
	logger.Warn("", "x", "warn message")
	logger.Error("", "x", "error message")

	content := readLog(t, domain.GlobalLogPath(stateDir))
	assert.NotContains(t, content, "debug message")
	assert.NotContains(t, content, "info message")
	assert.Contains(t, content, "[WARN]")
	assert.Contains(t, content, "[ERROR]")
}

func TestLogger_DisabledWhenEmptyStateDir(t *testing.T) {
	logger := New("", slog.LevelDebug)
	defer func() { _ = logger.Close() }()

	// Should not panic or create files.
	logger.Info("s", "c", "m")
	logger.Error("", "c", "m")
}

func TestLogger_LogFormat(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelInfo)
	logger.now = func() time.Time { return time.Date(2025, 12, 30, 9, 32, 51, 0, time.UTC) }
	defer func() { _ = logger.Close() }()

	logger.Info("draft", "usecase", `script saved: "draft"`)

	lines := strings.Split(strings.TrimSpace(readLog(t, domain.GlobalLogPath(stateDir))), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `[2025-12-30 09:32:51] [INFO] [draft] [usecase] script saved: "draft"`, lines[0])
}

func TestLogger_MultipleScopes(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("a", "c", "first for a")
	logger.Info("b", "c", "first for b")
	logger.Info("a", "c", "second for a")

	a := readLog(t, domain.ScopeLogPath(stateDir, "a"))
	assert.Contains(t, a, "first for a")
	assert.Contains(t, a, "second for a")
	assert.NotContains(t, a, "first for b")

	assert.Len(t, strings.Split(strings.TrimSpace(readLog(t, domain.GlobalLogPath(stateDir))), "\n"), 3)
}

func TestLogger_ScopeNameIsSanitized(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("../escape", "c", "m")

	assert.FileExists(t, domain.ScopeLogPath(stateDir, ".._escape"))
	_, err := os.Stat(filepath.Join(stateDir, "escape.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestLogger_Close(t *testing.T) {
	stateDir := t.TempDir()
	logger := New(stateDir, slog.LevelInfo)

	logger.Info("s", "c", "m")
	require.NoError(t, logger.Close())

	// Writing after close reopens the files.
	logger.Info("s", "c", "again")
	require.NoError(t, logger.Close())
	assert.Contains(t, readLog(t, domain.ScopeLogPath(stateDir, "s")), "again")
}

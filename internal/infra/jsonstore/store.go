// Package jsonstore persists the editor state and the script library as JSON
// files guarded by flock.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/runoshun/tokenscope/internal/domain"
)

// document is the JSON representation of one saved script.
// Fields are ordered to minimize memory padding.
type document struct {
	UpdatedAt  time.Time       `json:"updatedAt"`
	Operations []domain.Triple `json:"operations"`
	Version    int             `json:"version"`
}

const documentVersion = 1

// locker serializes access to a set of files through a lock file.
type locker struct {
	lockPath string
}

// withLock executes fn with a shared (read) lock.
func (l locker) withLock(fn func() error) error {
	lock, err := l.acquire(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer release(lock)
	return fn()
}

// withLockWrite executes fn with an exclusive (write) lock.
func (l locker) withLockWrite(fn func() error) error {
	lock, err := l.acquire(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer release(lock)
	return fn()
}

func (l locker) acquire(lockType int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return lock, nil
}

func release(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

// readDocument reads path. A missing file is reported as os.ErrNotExist.
func readDocument(path string) (*document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}

// writeDocument writes doc to path through a temp file and rename.
func writeDocument(path string, doc *document) error {
	doc.Version = documentVersion
	if doc.Operations == nil {
		doc.Operations = []domain.Triple{}
	}
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

package jsonstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Ensure ScriptStore implements domain.ScriptRepository.
var _ domain.ScriptRepository = (*ScriptStore)(nil)

// ScriptStore keeps named scripts as <stateDir>/scripts/<name>.json.
// One lock file guards the whole library.
type ScriptStore struct {
	clock    domain.Clock
	stateDir string
	locker   locker
}

// NewScriptStore creates a ScriptStore under stateDir.
func NewScriptStore(stateDir string, clock domain.Clock) *ScriptStore {
	return &ScriptStore{
		clock:    clock,
		stateDir: stateDir,
		locker:   locker{lockPath: filepath.Join(stateDir, domain.ScriptsDirName+".lock")},
	}
}

// Get retrieves a script by name.
func (s *ScriptStore) Get(name string) ([]domain.Triple, error) {
	if err := domain.ValidateScriptName(name); err != nil {
		return nil, err
	}
	var triples []domain.Triple
	err := s.locker.withLock(func() error {
		doc, err := readDocument(domain.ScriptPath(s.stateDir, name))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
		}
		if err != nil {
			return err
		}
		triples = doc.Operations
		return nil
	})
	return triples, err
}

// List returns all scripts sorted by name.
func (s *ScriptStore) List() ([]domain.ScriptInfo, error) {
	var infos []domain.ScriptInfo
	err := s.locker.withLock(func() error {
		entries, err := os.ReadDir(filepath.Join(s.stateDir, domain.ScriptsDirName))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read script library: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name, ok := domain.ScriptNameFromFile(e.Name())
			if !ok {
				continue
			}
			doc, err := readDocument(domain.ScriptPath(s.stateDir, name))
			if err != nil {
				return err
			}
			infos = append(infos, domain.ScriptInfo{
				Name:       name,
				UpdatedAt:  doc.UpdatedAt,
				Operations: len(doc.Operations),
			})
		}
		return nil
	})

	slices.SortFunc(infos, func(a, b domain.ScriptInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos, err
}

// Save creates or replaces a script.
func (s *ScriptStore) Save(name string, triples []domain.Triple) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	return s.locker.withLockWrite(func() error {
		return writeDocument(domain.ScriptPath(s.stateDir, name), &document{
			UpdatedAt:  s.clock.Now(),
			Operations: triples,
		})
	})
}

// Delete removes a script.
func (s *ScriptStore) Delete(name string) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	return s.locker.withLockWrite(func() error {
		err := os.Remove(domain.ScriptPath(s.stateDir, name))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("delete script: %w", err)
		}
		return nil
	})
}

package jsonstore

import (
	"errors"
	"os"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Ensure StateStore implements domain.StateStore.
var _ domain.StateStore = (*StateStore)(nil)

// StateStore keeps the editor's working script in <stateDir>/state.json.
type StateStore struct {
	clock  domain.Clock
	path   string
	locker locker
}

// NewStateStore creates a StateStore under stateDir.
// The file does not need to exist; it will be created on first save.
func NewStateStore(stateDir string, clock domain.Clock) *StateStore {
	path := domain.StatePath(stateDir)
	return &StateStore{
		clock:  clock,
		path:   path,
		locker: locker{lockPath: path + ".lock"},
	}
}

// Load returns the saved triples, or nil if nothing was saved yet.
func (s *StateStore) Load() ([]domain.Triple, error) {
	var triples []domain.Triple
	err := s.locker.withLock(func() error {
		doc, err := readDocument(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		triples = doc.Operations
		return nil
	})
	return triples, err
}

// Save replaces the saved triples.
func (s *StateStore) Save(triples []domain.Triple) error {
	return s.locker.withLockWrite(func() error {
		return writeDocument(s.path, &document{
			UpdatedAt:  s.clock.Now(),
			Operations: triples,
		})
	})
}

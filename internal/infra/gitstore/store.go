// Package gitstore provides a Git plumbing-based implementation of ScriptRepository.
package gitstore

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Ensure Store implements domain.ScriptRepository.
var _ domain.ScriptRepository = (*Store)(nil)

// Store implements domain.ScriptRepository using Git plumbing (refs and blobs).
// Scripts travel with the repository through ordinary fetch and push of the
// namespace.
//
// Data structure:
//
//	refs/<namespace>/
//	  scripts/
//	    <name>  → blob (script YAML)
type Store struct {
	repo      *git.Repository
	clock     domain.Clock
	namespace string
	mu        sync.RWMutex
}

// New opens the repository at repoPath, searching parent directories.
func New(repoPath, namespace string, clock domain.Clock) (*Store, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return NewWithRepo(repo, namespace, clock), nil
}

// NewWithRepo creates a new Store with an existing repository instance.
func NewWithRepo(repo *git.Repository, namespace string, clock domain.Clock) *Store {
	return &Store{
		repo:      repo,
		clock:     clock,
		namespace: namespace,
	}
}

// scriptPrefix returns the ref prefix of the script library.
func (s *Store) scriptPrefix() string {
	return domain.ScriptRef(s.namespace, "")
}

func (s *Store) scriptRef(name string) plumbing.ReferenceName {
	return plumbing.ReferenceName(domain.ScriptRef(s.namespace, name))
}

// Get retrieves a script by name.
func (s *Store) Get(name string) ([]domain.Triple, error) {
	if err := domain.ValidateScriptName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load(s.scriptRef(name))
	if err != nil {
		return nil, err
	}
	return doc.triples()
}

// List returns all scripts sorted by name.
func (s *Store) List() ([]domain.ScriptInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer refs.Close()

	prefix := s.scriptPrefix()
	var infos []domain.ScriptInfo
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		refName := ref.Name().String()
		if !strings.HasPrefix(refName, prefix) {
			return nil
		}
		doc, err := s.load(ref.Name())
		if err != nil {
			return err
		}
		infos = append(infos, domain.ScriptInfo{
			Name:       strings.TrimPrefix(refName, prefix),
			UpdatedAt:  doc.UpdatedAt,
			Operations: len(doc.Operations),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(infos, func(a, b domain.ScriptInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos, nil
}

// Save creates or replaces a script.
func (s *Store) Save(name string, triples []domain.Triple) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := scriptDoc{
		UpdatedAt:  s.clock.Now().UTC(),
		Operations: encodeOps(triples),
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}

	hash, err := s.writeBlob(data)
	if err != nil {
		return err
	}

	ref := plumbing.NewHashReference(s.scriptRef(name), hash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("set script ref: %w", err)
	}
	return nil
}

// Delete removes a script.
func (s *Store) Delete(name string) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	refName := s.scriptRef(name)
	if _, err := s.repo.Reference(refName, true); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
		}
		return fmt.Errorf("get script ref: %w", err)
	}
	if err := s.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("remove script ref: %w", err)
	}
	return nil
}

// load reads and decodes the blob a ref points at.
func (s *Store) load(refName plumbing.ReferenceName) (*scriptDoc, error) {
	ref, err := s.repo.Reference(refName, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, strings.TrimPrefix(refName.String(), s.scriptPrefix()))
		}
		return nil, fmt.Errorf("get script ref: %w", err)
	}

	data, err := s.readBlob(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var doc scriptDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode script %s: %w", refName, err)
	}
	return &doc, nil
}

// writeBlob writes data to a blob and returns the hash.
func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create blob writer: %w", err)
	}
	if _, writeErr := writer.Write(data); writeErr != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", writeErr)
	}
	_ = writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return hash, nil
}

// readBlob reads the full content of a blob.
func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}

// scriptDoc is the YAML blob format.
// Fields are ordered to minimize memory padding.
type scriptDoc struct {
	UpdatedAt  time.Time `yaml:"updated_at"`
	Operations []opDoc   `yaml:"operations"`
}

// opDoc is one operation in YAML form. Only the fields of its type are set.
type opDoc struct {
	Type      string    `yaml:"type"`
	Role      string    `yaml:"role"`
	Raw       *string   `yaml:"raw,omitempty"`
	Tokenized []int     `yaml:"tokenized,omitempty,flow"`
	MaxTokens int       `yaml:"max_tokens,omitempty"`
	Options   [][]opDoc `yaml:"options,omitempty"`
}

func encodeOps(triples []domain.Triple) []opDoc {
	docs := make([]opDoc, 0, len(triples))
	for _, t := range triples {
		d := opDoc{Type: string(t.Kind), Role: string(t.Role)}
		switch t.Kind {
		case domain.KindText:
			if t.Text != nil {
				raw := t.Text.Raw
				d.Raw = &raw
				for _, tok := range t.Text.Tokenized {
					d.Tokenized = append(d.Tokenized, int(tok))
				}
			}
		case domain.KindCompletion:
			if t.Completion != nil {
				d.MaxTokens = t.Completion.MaxTokens
			}
		case domain.KindBranch:
			d.Options = make([][]opDoc, len(t.Options))
			for i, opt := range t.Options {
				d.Options[i] = encodeOps(opt.Operations)
			}
		}
		docs = append(docs, d)
	}
	return docs
}

func (d *scriptDoc) triples() ([]domain.Triple, error) {
	return decodeOps(d.Operations)
}

func decodeOps(docs []opDoc) ([]domain.Triple, error) {
	triples := make([]domain.Triple, 0, len(docs))
	for _, d := range docs {
		kind, err := domain.ParseKind(d.Type)
		if err != nil {
			return nil, err
		}
		role, err := domain.ParseRole(d.Role)
		if err != nil {
			return nil, err
		}
		t := domain.Triple{Kind: kind, Role: role}
		switch kind {
		case domain.KindText:
			p := &domain.TextParams{Tokenized: []domain.Token{}}
			if d.Raw != nil {
				p.Raw = *d.Raw
			}
			for _, tok := range d.Tokenized {
				p.Tokenized = append(p.Tokenized, domain.Token(tok))
			}
			t.Text = p
		case domain.KindCompletion:
			t.Completion = &domain.CompletionParams{MaxTokens: d.MaxTokens}
		case domain.KindBranch:
			t.Options = make([]domain.OptionSnapshot, len(d.Options))
			for i, opt := range d.Options {
				ops, err := decodeOps(opt)
				if err != nil {
					return nil, err
				}
				t.Options[i] = domain.OptionSnapshot{Operations: ops}
			}
		}
		triples = append(triples, t)
	}
	return triples, nil
}

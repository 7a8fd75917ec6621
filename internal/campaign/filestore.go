package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a [Store] backed by a single pretty-printed JSON file.
//
// The file layout matches the document schema exactly, so a data file written
// by the original frontend tooling loads unchanged. Saves go through a
// temp-file-and-rename so a crash mid-write never corrupts the campaign.
//
// A mutex serialises all operations; the file store is intended for a single
// server process owning the file.
type FileStore struct {
	path string

	mu sync.Mutex
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore persisting to the given path. The parent
// directory is created on first save if it does not exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("campaign: file store path must not be empty")
	}
	return &FileStore{path: path}, nil
}

// Load implements [Store]. A missing file initialises the default document
// on disk and returns it.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Save implements [Store].
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, doc)
}

// GetNPC implements [Store]. Returns (nil, nil) if not found.
func (s *FileStore) GetNPC(ctx context.Context, id string) (*NPC, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	npc := doc.FindNPC(id)
	if npc == nil {
		return nil, nil
	}
	cp := *npc
	return &cp, nil
}

// UpdateNPC implements [Store]. The load-mutate-save cycle runs under the
// store mutex so two concurrent updates cannot interleave on the file.
func (s *FileStore) UpdateNPC(ctx context.Context, id string, mutate func(*NPC) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	npc := doc.FindNPC(id)
	if npc == nil {
		return ErrNPCNotFound
	}
	if err := mutate(npc); err != nil {
		return err
	}
	return s.saveLocked(ctx, doc)
}

func (s *FileStore) loadLocked(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := DefaultDocument()
		if err := s.saveLocked(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("campaign: read %q: %w", s.path, err)
	}

	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("campaign: parse %q: %w", s.path, err)
	}
	doc.applyDefaults()
	return doc, nil
}

func (s *FileStore) saveLocked(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("campaign: create data dir: %w", err)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("campaign: marshal document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("campaign: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("campaign: rename %q: %w", tmp, err)
	}
	return nil
}

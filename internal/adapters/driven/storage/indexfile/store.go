// Package indexfile persists the index blob as a single file.
package indexfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// FileName is the index file name inside the data directory.
const FileName = "document.index"

// Store writes the index blob to one file. Save replaces the file
// atomically so a crash never leaves a half-written index behind.
type Store struct {
	path string
}

// New creates a store for <dir>/document.index.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// NewAt creates a store for an explicit file path.
func NewAt(path string) *Store {
	return &Store{path: path}
}

// Save writes blob to a temp file next to the target and renames it into place.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(blob); err != nil {
		cleanup()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Load reads the blob. A missing file is domain.ErrNotFound.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return data, nil
}

// Location returns the index file path.
func (s *Store) Location() string {
	return s.path
}

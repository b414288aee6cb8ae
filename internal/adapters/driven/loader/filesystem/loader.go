// Package filesystem loads text and Markdown documents from a local directory.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// mimeTypes maps indexable extensions to the MIME type the normalisers expect.
var mimeTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
}

// Loader reads indexable files from disk. URIs are slash-separated paths
// relative to the base directory, so the same file always maps to the same
// document ID.
type Loader struct {
	base string
}

// New creates a loader whose URIs are relative to base.
func New(base string) *Loader {
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return &Loader{base: base}
}

// Base returns the directory URIs are relative to.
func (l *Loader) Base() string {
	return l.base
}

// Indexable reports whether a path has a supported extension and no
// hidden component below the base directory. Paths outside the base
// only have their file name checked.
func (l *Loader) Indexable(path string) bool {
	uri := l.URI(path)
	if filepath.IsAbs(filepath.FromSlash(uri)) {
		uri = filepath.Base(path)
	}
	return !isHidden(uri) && supported(path)
}

func supported(path string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadDir walks root and reads every indexable file. Hidden directories
// are skipped. WalkDir visits entries in lexical order, which fixes the
// corpus order.
func (l *Loader) LoadDir(ctx context.Context, root string) ([]domain.RawDocument, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	var docs []domain.RawDocument
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isHidden(d.Name()) || !supported(path) {
			return nil
		}

		raw, err := l.read(path)
		if err != nil {
			return err
		}
		docs = append(docs, *raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadFile reads a single indexable file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.Indexable(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", domain.ErrInvalidInput, path)
	}
	return l.read(path)
}

func (l *Loader) read(path string) (*domain.RawDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.RawDocument{
		URI:      l.URI(path),
		MIMEType: detectMIMEType(path),
		Content:  content,
		Metadata: map[string]any{
			domain.MetaTitle: filepath.Base(path),
			"path":           path,
			"size":           len(content),
		},
	}, nil
}

// URI returns the document URI for path: relative to the base directory
// when inside it, absolute otherwise.
func (l *Loader) URI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(l.base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// detectMIMEType maps an extension to a MIME type. Unknown extensions
// fall back to text/plain.
func detectMIMEType(path string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return "text/plain"
}

// isHidden reports whether any path component starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

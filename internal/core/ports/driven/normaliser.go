package driven

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// Normaliser turns raw bytes of the MIME types it claims into a Document
// with plain-text Content. Chunking happens later, in the pipeline.
type Normaliser interface {
	SupportedMIMETypes() []string
	// Priority breaks ties when two normalisers claim a type; higher wins.
	// Format-specific normalisers use 50-89 and fallbacks 1-9.
	Priority() int
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry dispatches a raw document to the best normaliser for
// its MIME type, failing with domain.ErrUnsupportedType if none claims it.
type NormaliserRegistry interface {
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
	Register(n Normaliser)
	SupportedMIMETypes() []string
}

// DocumentLoader reads corpus files from disk.
type DocumentLoader interface {
	// LoadDir returns every indexable file under root in lexical path order.
	LoadDir(ctx context.Context, root string) ([]domain.RawDocument, error)
	LoadFile(ctx context.Context, path string) (*domain.RawDocument, error)
	// Indexable reports whether LoadDir would pick up path.
	Indexable(path string) bool
}

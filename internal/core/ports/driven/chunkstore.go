package driven

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// ChunkStore persists documents and the chunks derived from them.
// It exclusively owns Document and Chunk lifetime; the index only refers
// to chunks by ID.
type ChunkStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents ordered by creation time, then ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListChunks returns every chunk in corpus order: documents as in
	// ListDocuments, chunks by position within each document.
	ListChunks(ctx context.Context) ([]domain.Chunk, error)
}

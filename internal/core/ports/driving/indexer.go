package driving

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// IndexerService turns chunks into an index and maintains it.
// Every operation returns a new Index value; none mutates its input.
type IndexerService interface {
	// Build embeds chunks in order and constructs a fresh index.
	Build(ctx context.Context, chunks []domain.Chunk) (*domain.Index, error)

	// Add embeds and appends chunks after the existing entries.
	Add(ctx context.Context, existing *domain.Index, chunks []domain.Chunk) (*domain.Index, error)

	// Rebuild discards any previous index and builds from all chunks.
	Rebuild(ctx context.Context, chunks []domain.Chunk) (*domain.Index, error)

	// Persist serialises an index to an opaque blob.
	Persist(idx *domain.Index) ([]byte, error)

	// Load restores an index from a blob produced by Persist.
	Load(blob []byte) (*domain.Index, error)
}

// IndexManager coordinates the chunk store, the indexer and index
// persistence for the presentation layer.
type IndexManager interface {
	// Current returns the active index, loading it from the index store on first use.
	// Returns domain.ErrIndexNotLoaded if nothing has been built yet.
	Current(ctx context.Context) (*domain.Index, error)

	// BuildFromDir ingests every indexable file under dir and builds a fresh index.
	BuildFromDir(ctx context.Context, dir string) (*IngestReport, error)

	// AddFile ingests one file and adds its chunks. A changed document
	// triggers a rebuild since its old chunk IDs are no longer valid.
	AddFile(ctx context.Context, path string) (*IngestOutcome, error)

	// RemoveDocument deletes a document and rebuilds the index without it.
	RemoveDocument(ctx context.Context, documentID string) error

	// Rebuild re-embeds every stored chunk.
	Rebuild(ctx context.Context) (*domain.Index, error)

	// Stats reports index and chunk store counts.
	Stats(ctx context.Context) (domain.IndexStats, error)
}

package driving

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// IngestStatus describes what ingestion did with a document.
type IngestStatus string

const (
	// IngestNew means the document was not in the store before.
	IngestNew IngestStatus = "new"

	// IngestChanged means the document existed with different content.
	IngestChanged IngestStatus = "changed"

	// IngestUnchanged means the stored document already matched.
	IngestUnchanged IngestStatus = "unchanged"
)

// IngestOutcome reports the result of ingesting one document.
type IngestOutcome struct {
	// Document is the stored document.
	Document domain.Document

	// Chunks are the document's chunks in position order.
	Chunks []domain.Chunk

	// Status says whether the document was new, changed or unchanged.
	Status IngestStatus
}

// IngestReport aggregates outcomes of a directory ingest.
type IngestReport struct {
	// Outcomes holds one entry per document in path order.
	Outcomes []IngestOutcome

	// Failed maps file URIs to the error that stopped their ingestion.
	Failed map[string]error
}

// ChunkCount returns the total number of chunks across outcomes.
func (r *IngestReport) ChunkCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Chunks)
	}
	return n
}

// IngestService turns raw files into stored documents and chunks.
type IngestService interface {
	// IngestDir ingests every indexable file under dir.
	// Per-file failures are collected in the report rather than aborting.
	IngestDir(ctx context.Context, dir string) (*IngestReport, error)

	// IngestFile ingests a single file.
	IngestFile(ctx context.Context, path string) (*IngestOutcome, error)

	// Remove deletes a document and its chunks.
	Remove(ctx context.Context, documentID string) error

	// Documents lists stored documents.
	Documents(ctx context.Context) ([]domain.Document, error)

	// Chunks lists every stored chunk in corpus order.
	Chunks(ctx context.Context) ([]domain.Chunk, error)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs raw files through normalisation and chunking into
// the chunk store.
type IngestService struct {
	loader   driven.DocumentLoader
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	store    driven.ChunkStore
	now      func() time.Time
}

// NewIngestService creates an ingest service.
func NewIngestService(
	loader driven.DocumentLoader,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	store driven.ChunkStore,
) *IngestService {
	return &IngestService{
		loader:   loader,
		registry: registry,
		pipeline: pipeline,
		store:    store,
		now:      time.Now,
	}
}

// IngestDir ingests every indexable file under dir in path order.
// A file that fails is recorded in the report and the rest continue.
func (s *IngestService) IngestDir(ctx context.Context, dir string) (*driving.IngestReport, error) {
	logger.Section("Ingest")

	raws, err := s.loader.LoadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	logger.Debug("Found %d indexable files under %s", len(raws), dir)

	report := &driving.IngestReport{Failed: make(map[string]error)}
	for i := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := s.ingest(ctx, &raws[i])
		if err != nil {
			logger.Warn("Failed to ingest %s: %v", raws[i].URI, err)
			report.Failed[raws[i].URI] = err
			continue
		}
		report.Outcomes = append(report.Outcomes, *outcome)
	}

	logger.Info("Ingested %d documents (%d chunks), %d failed",
		len(report.Outcomes), report.ChunkCount(), len(report.Failed))
	return report, nil
}

// IngestFile ingests a single file.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*driving.IngestOutcome, error) {
	raw, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s.ingest(ctx, raw)
}

// ingest normalises, chunks and stores one raw document. A document whose
// content is unchanged keeps its stored chunks.
func (s *IngestService) ingest(ctx context.Context, raw *domain.RawDocument) (*driving.IngestOutcome, error) {
	doc, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	status := driving.IngestNew
	existing, err := s.store.GetDocument(ctx, doc.ID)
	switch {
	case err == nil:
		if existing.Content == doc.Content && existing.Title == doc.Title {
			chunks, err := s.store.GetChunks(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("get chunks: %w", err)
			}
			logger.Debug("Unchanged: %s", doc.URI)
			return &driving.IngestOutcome{Document: *existing, Chunks: chunks, Status: driving.IngestUnchanged}, nil
		}
		status = driving.IngestChanged
		doc.CreatedAt = existing.CreatedAt
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("get document: %w", err)
	}

	now := s.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}

	if status == driving.IngestChanged {
		// Old chunk IDs are derived from old content and must not linger.
		if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("replace document: %w", err)
		}
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	logger.Debug("%s: %s (%d chunks)", status, doc.URI, len(chunks))
	return &driving.IngestOutcome{Document: *doc, Chunks: chunks, Status: status}, nil
}

// Remove deletes a document and its chunks.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("remove %s: %w", documentID, err)
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("remove %s: %w", documentID, err)
	}
	logger.Info("Removed document %s", documentID)
	return nil
}

// Documents lists stored documents.
func (s *IngestService) Documents(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Chunks lists every stored chunk in corpus order.
func (s *IngestService) Chunks(ctx context.Context) ([]domain.Chunk, error) {
	chunks, err := s.store.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexManager = (*IndexManager)(nil)

// IndexManager keeps the published index, the chunk store and the
// persisted blob in step.
type IndexManager struct {
	handle  *IndexHandle
	indexer driving.IndexerService
	ingest  driving.IngestService
	store   driven.IndexStore
}

// NewIndexManager creates an index manager publishing through handle.
func NewIndexManager(
	handle *IndexHandle,
	indexer driving.IndexerService,
	ingest driving.IngestService,
	store driven.IndexStore,
) *IndexManager {
	return &IndexManager{
		handle:  handle,
		indexer: indexer,
		ingest:  ingest,
		store:   store,
	}
}

// Current returns the published index, loading the persisted one on first use.
func (m *IndexManager) Current(ctx context.Context) (*domain.Index, error) {
	if idx := m.handle.Current(); idx != nil {
		return idx, nil
	}

	return m.handle.Update(func(cur *domain.Index) (*domain.Index, error) {
		if cur != nil {
			return cur, nil
		}
		blob, err := m.store.Load(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no index at %s: %w", m.store.Location(), domain.ErrIndexNotLoaded)
		}
		if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		idx, err := m.indexer.Load(blob)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", m.store.Location(), err)
		}
		return idx, nil
	})
}

// BuildFromDir ingests dir, drops stored documents no longer present
// there, and builds a fresh index from what remains.
func (m *IndexManager) BuildFromDir(ctx context.Context, dir string) (*driving.IngestReport, error) {
	report, err := m.ingest.IngestDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := m.prune(ctx, report); err != nil {
		return nil, err
	}
	if _, err := m.rebuild(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

// prune removes stored documents that neither ingested nor failed in report.
func (m *IndexManager) prune(ctx context.Context, report *driving.IngestReport) error {
	keep := make(map[string]struct{}, len(report.Outcomes))
	for _, o := range report.Outcomes {
		keep[o.Document.ID] = struct{}{}
	}
	docs, err := m.ingest.Documents(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if _, ok := keep[d.ID]; ok {
			continue
		}
		if _, failed := report.Failed[d.URI]; failed {
			continue
		}
		logger.Debug("Pruning %s, no longer in the data directory", d.URI)
		if err := m.ingest.Remove(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// AddFile ingests one file. New documents are appended to the index;
// changed documents force a rebuild since their chunk IDs changed.
func (m *IndexManager) AddFile(ctx context.Context, path string) (*driving.IngestOutcome, error) {
	outcome, err := m.ingest.IngestFile(ctx, path)
	if err != nil {
		return nil, err
	}

	switch outcome.Status {
	case driving.IngestUnchanged:
		logger.Info("%s is unchanged, index untouched", outcome.Document.URI)
		return outcome, nil
	case driving.IngestChanged:
		_, err = m.rebuild(ctx)
		return outcome, err
	}

	if _, err := m.Current(ctx); err != nil && !errors.Is(err, domain.ErrIndexNotLoaded) {
		return nil, err
	}
	idx, err := m.handle.Update(func(cur *domain.Index) (*domain.Index, error) {
		if cur == nil {
			chunks, err := m.ingest.Chunks(ctx)
			if err != nil {
				return nil, err
			}
			return m.indexer.Build(ctx, chunks)
		}
		return m.indexer.Add(ctx, cur, outcome.Chunks)
	})
	if err != nil {
		return nil, err
	}
	if err := m.persist(ctx, idx); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RemoveDocument deletes a document and rebuilds the index without it.
func (m *IndexManager) RemoveDocument(ctx context.Context, documentID string) error {
	if err := m.ingest.Remove(ctx, documentID); err != nil {
		return err
	}
	_, err := m.rebuild(ctx)
	return err
}

// Rebuild re-embeds every stored chunk and publishes the result.
func (m *IndexManager) Rebuild(ctx context.Context) (*domain.Index, error) {
	return m.rebuild(ctx)
}

func (m *IndexManager) rebuild(ctx context.Context) (*domain.Index, error) {
	idx, err := m.handle.Update(func(_ *domain.Index) (*domain.Index, error) {
		chunks, err := m.ingest.Chunks(ctx)
		if err != nil {
			return nil, err
		}
		return m.indexer.Rebuild(ctx, chunks)
	})
	if err != nil {
		return nil, err
	}
	if err := m.persist(ctx, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (m *IndexManager) persist(ctx context.Context, idx *domain.Index) error {
	blob, err := m.indexer.Persist(idx)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, blob); err != nil {
		return fmt.Errorf("save index to %s: %w", m.store.Location(), err)
	}
	logger.Debug("Persisted %d bytes to %s", len(blob), m.store.Location())
	return nil
}

// Stats reports index and chunk store counts. An index that was never
// built reports zero entries.
func (m *IndexManager) Stats(ctx context.Context) (domain.IndexStats, error) {
	var stats domain.IndexStats
	idx, err := m.Current(ctx)
	switch {
	case err == nil:
		stats = idx.Stats()
	case errors.Is(err, domain.ErrIndexNotLoaded):
	default:
		return stats, err
	}

	docs, err := m.ingest.Documents(ctx)
	if err != nil {
		return stats, err
	}
	chunks, err := m.ingest.Chunks(ctx)
	if err != nil {
		return stats, err
	}
	stats.Documents = len(docs)
	stats.Chunks = len(chunks)
	return stats, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.IndexerService = (*IndexerService)(nil)

// Default batching parameters for embedding.
const (
	DefaultEmbedBatchSize   = 32
	DefaultEmbedConcurrency = 4
)

// IndexerService embeds chunks and builds flat (exact) similarity indexes.
type IndexerService struct {
	embedder    driven.EmbeddingService
	metric      domain.Metric
	batchSize   int
	concurrency int
}

// IndexerOption configures the indexer.
type IndexerOption func(*IndexerService)

// WithMetric sets the similarity metric for newly built indexes.
func WithMetric(m domain.Metric) IndexerOption {
	return func(s *IndexerService) {
		if m.IsValid() {
			s.metric = m
		}
	}
}

// WithBatchSize sets the number of texts per embedding request.
func WithBatchSize(n int) IndexerOption {
	return func(s *IndexerService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding batches run in parallel.
func WithConcurrency(n int) IndexerOption {
	return func(s *IndexerService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewIndexerService creates an indexer using embedder for all vectors.
func NewIndexerService(embedder driven.EmbeddingService, opts ...IndexerOption) *IndexerService {
	s := &IndexerService{
		embedder:    embedder,
		metric:      domain.MetricInnerProduct,
		batchSize:   DefaultEmbedBatchSize,
		concurrency: DefaultEmbedConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metric returns the metric used for new indexes.
func (s *IndexerService) Metric() domain.Metric {
	return s.metric
}

// Build embeds chunks in order and constructs a fresh index.
// An empty chunk list yields an empty index sized for the embedder.
func (s *IndexerService) Build(ctx context.Context, chunks []domain.Chunk) (*domain.Index, error) {
	logger.Section("Index Build")
	logger.Debug("Chunks: %d, metric: %s, model: %s", len(chunks), s.metric, s.embedder.ModelName())

	if err := checkUniqueIDs(chunks, nil); err != nil {
		return nil, err
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	dim := s.embedder.Dimensions()
	if len(vectors) > 0 {
		dim = len(vectors[0])
		if declared := s.embedder.Dimensions(); declared > 0 && declared != dim {
			return nil, &domain.IndexBuildError{ChunkID: chunks[0].ID, Expected: declared, Actual: dim}
		}
	}

	idx, err := domain.NewIndex(dim, s.metric, chunkIDs(chunks), s.prepare(vectors, s.metric))
	if err != nil {
		return nil, err
	}

	logger.Info("Built index with %d entries (dimension %d)", idx.Len(), idx.Dimension())
	return idx, nil
}

// Add embeds chunks and appends them after the entries of existing.
// Existing positions are preserved and existing is left untouched.
func (s *IndexerService) Add(ctx context.Context, existing *domain.Index, chunks []domain.Chunk) (*domain.Index, error) {
	if existing == nil {
		return nil, fmt.Errorf("add: %w", domain.ErrIndexNotLoaded)
	}
	logger.Section("Index Add")
	logger.Debug("Existing entries: %d, new chunks: %d", existing.Len(), len(chunks))

	if err := checkUniqueIDs(chunks, existing); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return existing, nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// An empty index built before the embedder knew its size adopts the
	// dimension of the first real vectors.
	if existing.Len() == 0 && existing.Dimension() != len(vectors[0]) {
		logger.Debug("Re-dimensioning empty index from %d to %d", existing.Dimension(), len(vectors[0]))
		empty, err := domain.NewIndex(len(vectors[0]), existing.Metric(), nil, nil)
		if err != nil {
			return nil, err
		}
		existing = empty
	}

	next, err := existing.Append(chunkIDs(chunks), s.prepare(vectors, existing.Metric()))
	if err != nil {
		return nil, err
	}

	logger.Info("Index now has %d entries", next.Len())
	return next, nil
}

// Rebuild discards any previous index and builds from all chunks.
// Chunk IDs are stable across rebuilds; positions are not.
func (s *IndexerService) Rebuild(ctx context.Context, chunks []domain.Chunk) (*domain.Index, error) {
	logger.Info("Rebuilding index from %d chunks", len(chunks))
	return s.Build(ctx, chunks)
}

// Persist serialises idx into the self-describing binary format.
func (s *IndexerService) Persist(idx *domain.Index) ([]byte, error) {
	if idx == nil {
		return nil, fmt.Errorf("persist: %w", domain.ErrIndexNotLoaded)
	}
	return encodeIndex(idx)
}

// Load restores an index, failing with a CorruptIndexError if the blob is
// inconsistent in any way. The stored metric always wins over the
// configured one.
func (s *IndexerService) Load(blob []byte) (*domain.Index, error) {
	idx, err := decodeIndex(blob)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded index: %d entries, dimension %d, metric %s", idx.Len(), idx.Dimension(), idx.Metric())
	if idx.Metric() != s.metric {
		logger.Warn("index uses metric %s but %s is configured; run 'index rebuild' to switch", idx.Metric(), s.metric)
	}
	return idx, nil
}

// embedChunks embeds chunk contents in parallel batches.
// Output position i always holds the vector of chunks[i].
func (s *IndexerService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			return nil, &domain.EmbeddingError{ChunkID: c.ID, Reason: "empty text"}
		}
	}

	out := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}

			vectors, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return &domain.EmbeddingError{
					ChunkID: batch[0].ID,
					Reason:  fmt.Sprintf("batch of %d starting at position %d", len(batch), start),
					Err:     err,
				}
			}
			if len(vectors) != len(batch) {
				return &domain.EmbeddingError{
					ChunkID: batch[0].ID,
					Reason:  fmt.Sprintf("provider returned %d vectors for %d texts", len(vectors), len(batch)),
				}
			}
			for i, v := range vectors {
				if len(v) == 0 {
					return &domain.EmbeddingError{ChunkID: batch[i].ID, Reason: "provider returned an empty vector"}
				}
				out[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("Embedding failed: %v", err)
		return nil, err
	}

	if len(out) > 0 {
		dim := len(out[0])
		for i, v := range out {
			if len(v) != dim {
				return nil, &domain.IndexBuildError{ChunkID: chunks[i].ID, Expected: dim, Actual: len(v)}
			}
		}
	}
	return out, nil
}

// prepare applies metric-specific preprocessing, copying every vector so
// the index never aliases embedder-owned memory.
func (s *IndexerService) prepare(vectors [][]float32, metric domain.Metric) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		if metric.Normalises() {
			out[i] = normalised(v)
		} else {
			out[i] = append([]float32(nil), v...)
		}
	}
	return out
}

// checkUniqueIDs rejects chunk IDs repeated within chunks or already in existing.
func checkUniqueIDs(chunks []domain.Chunk, existing *domain.Index) error {
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk at position %d of document %q has no ID",
				domain.ErrInvalidInput, c.Position, c.DocumentID)
		}
		if _, dup := seen[c.ID]; dup {
			return &domain.DuplicateChunkError{ChunkID: c.ID}
		}
		if existing != nil && existing.Contains(c.ID) {
			return &domain.DuplicateChunkError{ChunkID: c.ID}
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

// isIndexLevel reports errors that concern the index as a whole rather
// than a single query.
func isIndexLevel(err error) bool {
	return errors.Is(err, domain.ErrEmptyIndex) ||
		errors.Is(err, domain.ErrDimensionMismatch) ||
		errors.Is(err, domain.ErrIndexNotLoaded)
}

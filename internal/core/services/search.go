package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// scoredPosition holds an index position and its score before hydration.
type scoredPosition struct {
	pos   int
	score float64
}

// SearchService performs exact k-nearest-neighbour search over an index.
type SearchService struct {
	embedder driven.EmbeddingService
	chunks   driven.ChunkStore
}

// NewSearchService creates a new search service.
// The chunk store is used to hydrate results and evaluate filters; when nil,
// results carry only the chunk ID.
func NewSearchService(embedder driven.EmbeddingService, chunks driven.ChunkStore) *SearchService {
	return &SearchService{
		embedder: embedder,
		chunks:   chunks,
	}
}

// Search embeds the query and returns up to opts.K results from idx.
//
// Results are ordered by descending score with ties broken by ascending
// insertion position. If K exceeds the number of eligible entries, all of
// them are returned. A filter that rejects everything yields an empty slice.
func (s *SearchService) Search(
	ctx context.Context, idx *domain.Index, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q, k: %d, filtered: %t, dedupe: %t", query, opts.K, opts.Filter != nil, opts.Dedupe)

	if opts.K <= 0 {
		return nil, fmt.Errorf("search %q: %w (got %d)", query, domain.ErrInvalidK, opts.K)
	}
	if idx == nil {
		return nil, fmt.Errorf("search %q: %w", query, domain.ErrIndexNotLoaded)
	}
	if idx.Len() == 0 {
		return nil, fmt.Errorf("search %q: %w", query, domain.ErrEmptyIndex)
	}

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(queryVec) != idx.Dimension() {
		logger.Warn("Query dimension %d does not match index dimension %d", len(queryVec), idx.Dimension())
		return nil, &domain.DimensionMismatchError{Expected: idx.Dimension(), Actual: len(queryVec)}
	}
	if idx.Metric().Normalises() {
		queryVec = normalised(queryVec)
	}

	ranked := rankPositions(idx, queryVec)
	logger.Debug("Scored %d entries with %s", len(ranked), idx.Metric())

	results, err := s.collect(ctx, idx, ranked, opts)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	logger.Info("Returning %d results", len(results))
	return results, nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &domain.EmbeddingError{Reason: "empty text"}
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.EmbeddingError{Reason: fmt.Sprintf("query %q", query), Err: err}
	}
	return vec, nil
}

// rankPositions scores every entry and sorts by score desc, position asc.
func rankPositions(idx *domain.Index, queryVec []float32) []scoredPosition {
	metric := idx.Metric()
	ranked := make([]scoredPosition, idx.Len())
	for pos := range ranked {
		score := metric.Score(queryVec, idx.Vector(pos))
		if math.IsNaN(score) {
			score = math.Inf(-1)
		}
		ranked[pos] = scoredPosition{pos: pos, score: score}
	}

	slices.SortFunc(ranked, func(a, b scoredPosition) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})
	return ranked
}

// collect walks ranked positions, hydrating and filtering until K results survive.
func (s *SearchService) collect(
	ctx context.Context, idx *domain.Index, ranked []scoredPosition, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0, min(opts.K, len(ranked)))
	seenText := make(map[string]struct{})

	for _, sp := range ranked {
		if len(results) == opts.K {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := idx.ChunkID(sp.pos)
		chunk, ok, err := s.hydrate(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if opts.Filter != nil && !opts.Filter(chunk) {
			continue
		}
		if opts.Dedupe {
			key := strings.Join(strings.Fields(chunk.Content), " ")
			if _, dup := seenText[key]; dup {
				logger.Debug("Dropping duplicate text of chunk %s", id)
				continue
			}
			seenText[key] = struct{}{}
		}

		results = append(results, domain.SearchResult{
			ChunkID: id,
			Score:   sp.score,
			Rank:    len(results) + 1,
			Chunk:   chunk,
		})
	}
	return results, nil
}

// hydrate loads a chunk; ok is false when the store no longer has it.
func (s *SearchService) hydrate(ctx context.Context, id string) (domain.Chunk, bool, error) {
	if s.chunks == nil {
		return domain.Chunk{ID: id}, true, nil
	}
	chunk, err := s.chunks.GetChunk(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Chunk %s is indexed but missing from the chunk store, skipping", id)
			return domain.Chunk{}, false, nil
		}
		return domain.Chunk{}, false, fmt.Errorf("get chunk %s: %w", id, err)
	}
	return *chunk, true, nil
}

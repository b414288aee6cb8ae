// Package cached wraps an embedding service with an expiring LRU cache
// keyed by model and text.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Default cache bounds.
const (
	DefaultSize = 1024
	DefaultTTL  = 30 * time.Minute
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService serves vectors from cache and forwards misses.
type EmbeddingService struct {
	next  driven.EmbeddingService
	cache *expirable.LRU[string, []float32]
}

// Wrap returns next behind a cache. A non-positive size or ttl disables
// caching and returns next unchanged.
func Wrap(next driven.EmbeddingService, size int, ttl time.Duration) driven.EmbeddingService {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &EmbeddingService{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

// Embed returns the cached vector for text or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(text)
	if v, ok := s.cache.Get(key); ok {
		logger.Debug("embedding cache hit")
		return clone(v), nil
	}
	v, err := s.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, clone(v))
	return v, nil
}

// EmbedBatch sends only the texts missing from the cache to the wrapped
// service, in one batch, and merges results back in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, text := range texts {
		if v, ok := s.cache.Get(s.key(text)); ok {
			out[i] = clone(v)
			continue
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := s.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("cached: got %d vectors for %d texts", len(vectors), len(missing))
	}
	for j, v := range vectors {
		out[missingAt[j]] = v
		s.cache.Add(s.key(missing[j]), clone(v))
	}
	return out, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string { return s.next.ModelName() }

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close purges the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.next.Close()
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int { return s.cache.Len() }

func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return s.next.ModelName() + ":" + hex.EncodeToString(sum[:])
}

func clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

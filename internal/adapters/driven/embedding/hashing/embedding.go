// Package hashing provides a deterministic offline embedding service.
//
// Text is reduced to stemmed, stopword-free terms; unigrams and adjacent
// bigrams are hashed into a fixed number of signed buckets, weighted by
// sublinear term frequency and L2-normalised. Texts that share topical
// words land close together under both inner product and L2.
package hashing

import (
	"context"
	"hash/fnv"
	"maps"
	"math"
	"slices"

	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/textproc"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-v1"
	DefaultDimensions = 384
	bigramWeight      = 0.5
)

// Config holds configuration for the hashing embedding service.
type Config struct {
	// Dimensions is the vector size (default: 384).
	Dimensions int
}

// EmbeddingService embeds text by feature hashing. It is safe for
// concurrent use and never touches the network.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a new hashing embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: cfg.Dimensions}
}

// Embed generates a vector for text. Text without any topical term
// embeds to the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch embeds texts in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	terms := textproc.Terms(text)

	unigrams := make(map[string]int, len(terms))
	bigrams := make(map[string]int, len(terms))
	for i, t := range terms {
		unigrams[t]++
		if i > 0 {
			bigrams[terms[i-1]+" "+t]++
		}
	}

	acc := make([]float64, s.dimensions)
	s.accumulate(acc, unigrams, 1)
	s.accumulate(acc, bigrams, bigramWeight)

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// accumulate adds sublinear term-frequency weights for features.
func (s *EmbeddingService) accumulate(acc []float64, features map[string]int, weight float64) {
	// Sorted so float accumulation order, and thus the vector, is stable.
	for _, feature := range slices.Sorted(maps.Keys(features)) {
		tf := features[feature]
		bucket, sign := s.hash(feature)
		acc[bucket] += sign * weight * (1 + math.Log(float64(tf)))
	}
}

// hash maps a feature to a bucket and a sign, so colliding features tend
// to cancel rather than accumulate.
func (s *EmbeddingService) hash(feature string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(s.dimensions)), sign
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model.
func (s *EmbeddingService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds; there is nothing to reach.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

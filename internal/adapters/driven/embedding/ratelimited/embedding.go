// Package ratelimited throttles requests to a wrapped embedding service with
// a token bucket. Each Embed or EmbedBatch call costs one token.
package ratelimited

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService waits for the limiter before forwarding a request.
type EmbeddingService struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
}

// Wrap limits next to requestsPerSecond. The burst is the rate rounded up,
// at least one. A non-positive rate returns next unchanged.
func Wrap(next driven.EmbeddingService, requestsPerSecond float64) driven.EmbeddingService {
	if next == nil || requestsPerSecond <= 0 {
		return next
	}
	burst := max(1, int(math.Ceil(requestsPerSecond)))
	return &EmbeddingService{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Embed waits for a token, then embeds text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.Embed(ctx, text)
}

// EmbedBatch waits for a token, then embeds texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string { return s.next.ModelName() }

// Ping is not rate limited.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error { return s.next.Close() }

func (s *EmbeddingService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/postprocessors/chunker"
)

// NewDefaultPipeline builds the ingestion pipeline from chunker settings.
// The zero value uses the chunker defaults.
func NewDefaultPipeline(settings domain.ChunkerSettings) (*Pipeline, error) {
	if settings == (domain.ChunkerSettings{}) {
		return NewPipeline(chunker.New()), nil
	}
	if settings.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidConfig, settings.ChunkSize)
	}
	if settings.Overlap < 0 || settings.Overlap >= settings.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)",
			domain.ErrInvalidConfig, settings.Overlap, settings.ChunkSize)
	}
	return NewPipeline(chunker.New(
		chunker.WithChunkSize(settings.ChunkSize),
		chunker.WithOverlap(settings.Overlap),
	)), nil
}

package driven

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// PostProcessor is one stage of chunk production. The first stage is
// handed nil and creates chunks from doc; later stages transform the
// chunks they receive.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a normalised document into its final chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// Package postprocessors turns normalised documents into indexable chunks.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages in order. The first stage gets no chunks and
// produces them; later stages refine what came before.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline from stages in run order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process chunks doc. Blank chunks left by any stage are dropped, and a
// chunk attributed to another document is an error.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", stage.Name(), doc.URI, err)
		}

		chunks = make([]domain.Chunk, 0, len(out))
		for _, c := range out {
			if c.DocumentID != doc.ID {
				return nil, fmt.Errorf("%s: %w: chunk %s belongs to %q, not %q",
					stage.Name(), domain.ErrInvalidInput, c.ID, c.DocumentID, doc.ID)
			}
			if strings.TrimSpace(c.Content) == "" {
				continue
			}
			chunks = append(chunks, c)
		}
	}

	logger.Debug("Chunked %s into %d chunks", doc.URI, len(chunks))
	return chunks, nil
}

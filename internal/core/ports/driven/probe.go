package driven

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// ProviderProbe checks that configured AI providers answer before the
// settings are relied on. An unset provider passes.
type ProviderProbe interface {
	ProbeEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error
	ProbeLLM(ctx context.Context, settings domain.LLMSettings) error
}

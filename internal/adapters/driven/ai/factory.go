// Package ai builds the embedding, LLM and reasoner adapters from settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/embedding/cached"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/deep-researcher/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/deep-researcher/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/embedding/ratelimited"
	anthropicllm "github.com/custodia-labs/deep-researcher/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/deep-researcher/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/deep-researcher/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/reasoner/heuristic"
	llmreasoner "github.com/custodia-labs/deep-researcher/internal/adapters/driven/reasoner/llm"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "run 'deep-researcher config set' to fix"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService // nil when reasoning is heuristic.
	Reasoner         driven.Reasoner
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if a configured LLM was unusable.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		_ = r.LLMService.Close()
	}
}

// Init builds the services for a command run.
//
// The embedder is required: a remote provider that fails its ping is an
// error, since vectors from a different model cannot search the index.
// The LLM is optional: when it is unset or unreachable the heuristic
// reasoner is used and a warning is recorded. An LLM reasoner also needs
// prompts.
func Init(ctx context.Context, settings domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured; %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, fixHint)
	}

	result := &InitResult{EmbeddingService: decorate(embedder, &settings.Embedding)}

	llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	switch {
	case err != nil:
		logger.Warn("LLM unavailable, using heuristic reasoning: %v", err)
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	case llm != nil:
		result.LLMService = llm
	}

	if result.LLMService != nil && prompts != nil {
		result.Reasoner = llmreasoner.New(result.LLMService, prompts)
	} else {
		result.Reasoner = heuristic.New()
	}
	logger.Debug("ai: embedder=%s reasoner=%s", result.EmbeddingService.ModelName(), result.Reasoner.Name())
	return result, nil
}

// decorate adds rate limiting and caching in front of remote embedders.
// The cache sits outermost so hits never wait on the limiter.
func decorate(svc driven.EmbeddingService, settings *domain.EmbeddingSettings) driven.EmbeddingService {
	if settings.Provider == domain.AIProviderLocal {
		return svc
	}
	svc = ratelimited.Wrap(svc, settings.RateLimit)
	return cached.Wrap(svc, cached.DefaultSize, cached.DefaultTTL)
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// The local provider is never pinged.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil || settings.Provider == domain.AIProviderLocal {
		return svc, nil
	}

	if err := ping(ctx, svc); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w); %s",
			domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil, nil when no LLM is configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w); %s",
			domain.ErrLLMUnavailable, err, fixHint)
	}
	return svc, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, p pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, errors.New("anthropic does not support embeddings, use local, ollama or openai")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		return hashing.NewEmbeddingService(hashing.Config{Dimensions: settings.Dimensions}), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

var _ driven.ProviderProbe = (*Probe)(nil)

// Probe builds a throwaway client for the settings and pings it.
type Probe struct {
	timeout time.Duration
}

// NewProbe creates a probe that gives each ping at most timeout. A zero
// timeout uses the same limit as start-up.
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = pingTimeout
	}
	return &Probe{timeout: timeout}
}

// ProbeEmbedding pings a remote embedding provider. The local embedder
// always passes.
func (p *Probe) ProbeEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(&settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	if settings.Provider == domain.AIProviderLocal {
		return nil
	}
	return p.ping(ctx, svc)
}

// ProbeLLM pings the configured LLM provider.
func (p *Probe) ProbeLLM(ctx context.Context, settings domain.LLMSettings) error {
	svc, err := CreateLLMService(&settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return p.ping(ctx, svc)
}

func (p *Probe) ping(ctx context.Context, target pinger) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return target.Ping(ctx)
}

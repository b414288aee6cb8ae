package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

func TestNewProbe_DefaultTimeout(t *testing.T) {
	assert.Equal(t, pingTimeout, NewProbe(0).timeout)
	assert.Equal(t, time.Second, NewProbe(time.Second).timeout)
}

func TestProbe_UnsetProvidersPass(t *testing.T) {
	p := NewProbe(0)
	ctx := context.Background()

	assert.NoError(t, p.ProbeEmbedding(ctx, domain.EmbeddingSettings{Model: "m"}))
	assert.NoError(t, p.ProbeLLM(ctx, domain.LLMSettings{Model: "m"}))
}

func TestProbe_LocalEmbeddingNeedsNoNetwork(t *testing.T) {
	err := NewProbe(0).ProbeEmbedding(context.Background(), domain.EmbeddingSettings{
		Provider: domain.AIProviderLocal,
	})
	assert.NoError(t, err)
}

func TestProbe_PingsOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()
	p := NewProbe(0)
	ctx := context.Background()

	assert.NoError(t, p.ProbeEmbedding(ctx, domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
	assert.NoError(t, p.ProbeLLM(ctx, domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
}

func TestProbe_UnreachableFails(t *testing.T) {
	p := NewProbe(time.Second)
	ctx := context.Background()

	assert.Error(t, p.ProbeEmbedding(ctx, domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
	}))
	assert.ErrorIs(t, p.ProbeLLM(ctx, domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
	}), domain.ErrLLMUnavailable)
}

func TestProbe_AnthropicEmbeddingRejected(t *testing.T) {
	err := NewProbe(0).ProbeEmbedding(context.Background(), domain.EmbeddingSettings{
		Provider: domain.AIProviderAnthropic,
		APIKey:   "k",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")
}

func TestProbe_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewProbe(0).ProbeLLM(ctx, domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
	assert.Error(t, err)
}

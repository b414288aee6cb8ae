// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBatch bounds the inputs sent in one /api/embed call.
	DefaultMaxBatch = 64
)

// Config configures the embedder. Zero fields take the package defaults.
// Dimensions of 0 is learned from the first reply.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
	MaxBatch   int
}

// EmbeddingService calls Ollama's batch /api/embed endpoint.
type EmbeddingService struct {
	client   *http.Client
	baseURL  string
	model    string
	maxBatch int
	dims     atomic.Int64
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	s := &EmbeddingService{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		maxBatch: cfg.MaxBatch,
	}
	s.dims.Store(int64(cfg.Dimensions))
	return s
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch splits texts into requests of at most MaxBatch inputs and
// joins the replies in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxBatch {
		part, err := s.embed(ctx, texts[start:min(start+s.maxBatch, len(texts))])
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var body embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("ollama: %s", body.Error)
	}
	if len(body.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(body.Embeddings), len(texts))
	}

	s.dims.CompareAndSwap(0, int64(len(body.Embeddings[0])))
	want := int(s.dims.Load())
	for i, v := range body.Embeddings {
		if len(v) != want {
			return nil, fmt.Errorf("ollama: embedding %d has %d dimensions, want %d", i, len(v), want)
		}
	}
	return body.Embeddings, nil
}

func (s *EmbeddingService) Dimensions() int {
	return int(s.dims.Load())
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists local models via /api/tags without loading one.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *EmbeddingService) Close() error {
	return nil
}

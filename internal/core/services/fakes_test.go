package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// fnEmbedder embeds through fn and counts batch calls.
type fnEmbedder struct {
	dim        int
	fn         func(text string) ([]float32, error)
	batchCalls atomic.Int32
}

func (e *fnEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.fn(text)
}

func (e *fnEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.fn(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fnEmbedder) Dimensions() int            { return e.dim }
func (e *fnEmbedder) ModelName() string          { return "fn" }
func (e *fnEmbedder) Ping(context.Context) error { return nil }
func (e *fnEmbedder) Close() error               { return nil }

// tableEmbedder returns fixed vectors per text; unknown text gets fallback.
func tableEmbedder(dim int, table map[string][]float32, fallback []float32) *fnEmbedder {
	return &fnEmbedder{dim: dim, fn: func(text string) ([]float32, error) {
		if v, ok := table[text]; ok {
			return slices.Clone(v), nil
		}
		if fallback == nil {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		return slices.Clone(fallback), nil
	}}
}

func newHashing() driven.EmbeddingService {
	return hashing.NewEmbeddingService(hashing.Config{})
}

func chunk(id, content string) domain.Chunk {
	return domain.Chunk{ID: id, DocumentID: "doc-" + id, Content: content}
}

// capitals is a small corpus with one obviously best match per question.
func capitals() []domain.Chunk {
	return []domain.Chunk{
		chunk("c-berlin", "Berlin is the capital of Germany."),
		chunk("c-paris", "Paris is the capital of France. The Louvre is in Paris."),
		chunk("c-amazon", "The Amazon rainforest spans several countries in South America."),
		chunk("c-mona", "The Mona Lisa was painted by Leonardo da Vinci and hangs in the Louvre."),
		chunk("c-rome", "Rome is the capital of Italy."),
	}
}

// storeWith saves chunks (and stub documents) in a fresh memory store.
func storeWith(chunks []domain.Chunk) *memory.ChunkStore {
	ctx := context.Background()
	store := memory.NewChunkStore()
	for _, c := range chunks {
		_ = store.SaveDocument(ctx, &domain.Document{ID: c.DocumentID, URI: c.DocumentID + ".txt"})
	}
	_ = store.SaveChunks(ctx, chunks)
	return store
}

// scriptedReasoner plays back decompositions round by round.
type scriptedReasoner struct {
	mu           sync.Mutex
	rounds       [][]string
	sufficient   func(state driven.ReasoningState) bool
	decomposeErr error
	seenStates   []driven.ReasoningState
}

func (r *scriptedReasoner) Name() string { return "scripted" }

func (r *scriptedReasoner) Decompose(_ context.Context, state driven.ReasoningState) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seenStates = append(r.seenStates, state)
	if r.decomposeErr != nil {
		return nil, r.decomposeErr
	}
	if state.Round >= len(r.rounds) {
		return nil, nil
	}
	return r.rounds[state.Round], nil
}

func (r *scriptedReasoner) Conclude(_ context.Context, sub string, results []domain.SearchResult) (string, error) {
	return fmt.Sprintf("%s -> %s", sub, results[0].ChunkID), nil
}

func (r *scriptedReasoner) Sufficient(_ context.Context, state driven.ReasoningState) (bool, error) {
	if r.sufficient == nil {
		return false, nil
	}
	return r.sufficient(state), nil
}

func (r *scriptedReasoner) Synthesize(_ context.Context, state driven.ReasoningState) (string, error) {
	ids := make([]string, len(state.Evidence))
	for i, ev := range state.Evidence {
		ids[i] = ev.ChunkID
	}
	return "answer from " + strings.Join(ids, ","), nil
}

// flakySearch fails chosen sub-queries and delegates the rest.
type flakySearch struct {
	inner *SearchService
	fail  map[string]error
}

func (f *flakySearch) Search(
	ctx context.Context, idx *domain.Index, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err, ok := f.fail[query]; ok {
		return nil, err
	}
	return f.inner.Search(ctx, idx, query, opts)
}

var errProvider = errors.New("provider unavailable")

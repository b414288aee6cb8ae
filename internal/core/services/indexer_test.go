package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

func TestIndexerService_ImplementsInterface(t *testing.T) {
	var _ driving.IndexerService = (*IndexerService)(nil)
}

// numberedEmbedder maps "text-N" to the vector [N, 1].
func numberedEmbedder() *fnEmbedder {
	return &fnEmbedder{dim: 2, fn: func(text string) ([]float32, error) {
		n, err := strconv.Atoi(strings.TrimPrefix(text, "text-"))
		if err != nil {
			return nil, err
		}
		return []float32{float32(n), 1}, nil
	}}
}

func numberedChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("id-%d", i), Content: fmt.Sprintf("text-%d", i)}
	}
	return chunks
}

func TestIndexer_Build_OrderSurvivesParallelBatches(t *testing.T) {
	emb := numberedEmbedder()
	indexer := NewIndexerService(emb, WithMetric(domain.MetricL2), WithBatchSize(3), WithConcurrency(4))
	chunks := numberedChunks(20)

	idx, err := indexer.Build(context.Background(), chunks)
	require.NoError(t, err)

	require.Equal(t, 20, idx.Len())
	assert.Equal(t, 2, idx.Dimension())
	assert.EqualValues(t, 7, emb.batchCalls.Load())
	for i, c := range chunks {
		assert.Equal(t, c.ID, idx.ChunkID(i))
		assert.Equal(t, []float32{float32(i), 1}, idx.Vector(i))
	}
}

func TestIndexer_Build_InnerProductNormalises(t *testing.T) {
	indexer := NewIndexerService(numberedEmbedder())

	idx, err := indexer.Build(context.Background(), numberedChunks(3))
	require.NoError(t, err)

	for pos := range idx.Len() {
		var sum float64
		for _, f := range idx.Vector(pos) {
			sum += float64(f) * float64(f)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
	}
}

func TestIndexer_Build_Empty(t *testing.T) {
	indexer := NewIndexerService(newHashing())

	idx, err := indexer.Build(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 384, idx.Dimension())
}

func TestIndexer_Build_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty text", func(t *testing.T) {
		indexer := NewIndexerService(numberedEmbedder())
		_, err := indexer.Build(ctx, []domain.Chunk{{ID: "a", Content: "text-1"}, {ID: "b", Content: "  "}})

		var embErr *domain.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, "b", embErr.ChunkID)
		assert.ErrorIs(t, err, domain.ErrEmbedding)
	})

	t.Run("provider failure keeps cause", func(t *testing.T) {
		emb := &fnEmbedder{dim: 2, fn: func(string) ([]float32, error) { return nil, errProvider }}
		_, err := NewIndexerService(emb).Build(ctx, numberedChunks(2))

		assert.ErrorIs(t, err, domain.ErrEmbedding)
		assert.ErrorIs(t, err, errProvider)
	})

	t.Run("inconsistent dimensions", func(t *testing.T) {
		emb := tableEmbedder(0, map[string][]float32{
			"text-0": {1, 0},
			"text-1": {1, 0, 0},
		}, nil)
		_, err := NewIndexerService(emb).Build(ctx, numberedChunks(2))

		var buildErr *domain.IndexBuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, "id-1", buildErr.ChunkID)
		assert.Equal(t, 2, buildErr.Expected)
		assert.Equal(t, 3, buildErr.Actual)
		assert.ErrorIs(t, err, domain.ErrIndexBuild)
	})

	t.Run("declared dimension disagrees", func(t *testing.T) {
		emb := numberedEmbedder()
		emb.dim = 5
		_, err := NewIndexerService(emb).Build(ctx, numberedChunks(2))
		assert.ErrorIs(t, err, domain.ErrIndexBuild)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		chunks := numberedChunks(2)
		chunks[1].ID = chunks[0].ID
		_, err := NewIndexerService(numberedEmbedder()).Build(ctx, chunks)

		var dup *domain.DuplicateChunkError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "id-0", dup.ChunkID)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := NewIndexerService(numberedEmbedder()).Build(ctx, []domain.Chunk{{Content: "text-1"}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestIndexer_Add_AppendsWithoutTouchingExisting(t *testing.T) {
	ctx := context.Background()
	indexer := NewIndexerService(numberedEmbedder(), WithMetric(domain.MetricL2))
	all := numberedChunks(5)

	base, err := indexer.Build(ctx, all[:3])
	require.NoError(t, err)

	next, err := indexer.Add(ctx, base, all[3:])
	require.NoError(t, err)

	assert.Equal(t, 3, base.Len())
	require.Equal(t, 5, next.Len())
	for i, c := range all {
		assert.Equal(t, c.ID, next.ChunkID(i))
	}
	assert.Equal(t, base.Vector(1), next.Vector(1))
}

func TestIndexer_Add_Errors(t *testing.T) {
	ctx := context.Background()
	indexer := NewIndexerService(numberedEmbedder())
	base, err := indexer.Build(ctx, numberedChunks(2))
	require.NoError(t, err)

	_, err = indexer.Add(ctx, nil, numberedChunks(1))
	assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)

	_, err = indexer.Add(ctx, base, numberedChunks(1))
	assert.ErrorIs(t, err, domain.ErrDuplicateChunk)

	same, err := indexer.Add(ctx, base, nil)
	require.NoError(t, err)
	assert.Same(t, base, same)
}

func TestIndexer_Add_EmptyIndexAdoptsDimension(t *testing.T) {
	ctx := context.Background()
	emb := numberedEmbedder()
	emb.dim = 0
	indexer := NewIndexerService(emb)

	empty, err := indexer.Build(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Dimension())

	next, err := indexer.Add(ctx, empty, numberedChunks(2))
	require.NoError(t, err)
	assert.Equal(t, 2, next.Dimension())
	assert.Equal(t, 2, next.Len())
}

func TestIndexer_Add_NewChunksAreSearchable(t *testing.T) {
	ctx := context.Background()
	emb := newHashing()
	indexer := NewIndexerService(emb)
	corpus := capitals()
	search := NewSearchService(emb, storeWith(corpus))

	base, err := indexer.Build(ctx, corpus[:3])
	require.NoError(t, err)
	next, err := indexer.Add(ctx, base, corpus[3:])
	require.NoError(t, err)

	results, err := search.Search(ctx, next, corpus[4].Content, domain.SearchOptions{K: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c-rome", results[0].ChunkID)
}

func TestIndexer_Rebuild_ShuffledCorpusSearchesTheSame(t *testing.T) {
	ctx := context.Background()
	emb := newHashing()
	indexer := NewIndexerService(emb)
	corpus := capitals()
	search := NewSearchService(emb, storeWith(corpus))

	original, err := indexer.Build(ctx, corpus)
	require.NoError(t, err)

	shuffled := append([]domain.Chunk(nil), corpus...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	rebuilt, err := indexer.Rebuild(ctx, shuffled)
	require.NoError(t, err)

	for _, q := range []string{"capital of France", "Who painted the Mona Lisa?", "rainforest"} {
		a, err := search.Search(ctx, original, q, domain.SearchOptions{K: 1})
		require.NoError(t, err)
		b, err := search.Search(ctx, rebuilt, q, domain.SearchOptions{K: 1})
		require.NoError(t, err)

		require.Len(t, a, 1)
		require.Len(t, b, 1)
		assert.Equal(t, a[0].ChunkID, b[0].ChunkID, q)
		assert.InDelta(t, a[0].Score, b[0].Score, 1e-9, q)
	}
}

func TestIndexer_Build_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIndexerService(numberedEmbedder(), WithBatchSize(1)).Build(ctx, numberedChunks(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIndexerService_LoadKeepsStoredMetric(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	t.Cleanup(func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	})

	built, err := NewIndexerService(numberedEmbedder(), WithMetric(domain.MetricL2)).Build(context.Background(), numberedChunks(3))
	require.NoError(t, err)
	blob, err := NewIndexerService(numberedEmbedder()).Persist(built)
	require.NoError(t, err)

	loaded, err := NewIndexerService(numberedEmbedder()).Load(blob)
	require.NoError(t, err)
	assert.Equal(t, domain.MetricL2, loaded.Metric())
	assert.Contains(t, buf.String(), "index rebuild")
}

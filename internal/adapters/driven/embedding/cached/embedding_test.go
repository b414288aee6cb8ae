package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// countingEmbedder returns [len(text)] and records every text it embeds.
type countingEmbedder struct {
	model    string
	embedded []string
	err      error
	closed   bool
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.embedded = append(c.embedded, text)
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int              { return 1 }
func (c *countingEmbedder) ModelName() string            { return c.model }
func (c *countingEmbedder) Ping(_ context.Context) error { return c.err }
func (c *countingEmbedder) Close() error                 { c.closed = true; return nil }

func TestWrap_DisabledReturnsNext(t *testing.T) {
	next := &countingEmbedder{model: "m"}
	assert.Same(t, driven.EmbeddingService(next), Wrap(next, 0, time.Minute))
	assert.Same(t, driven.EmbeddingService(next), Wrap(next, 10, 0))
	assert.Nil(t, Wrap(nil, 10, time.Minute))
}

func TestEmbed_CachesByText(t *testing.T) {
	next := &countingEmbedder{model: "m"}
	svc := Wrap(next, 10, time.Minute)
	ctx := context.Background()

	v1, err := svc.Embed(ctx, "paris")
	require.NoError(t, err)
	v2, err := svc.Embed(ctx, "paris")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, []string{"paris"}, next.embedded)
}

func TestEmbed_ReturnsCopies(t *testing.T) {
	next := &countingEmbedder{model: "m"}
	svc := Wrap(next, 10, time.Minute)
	ctx := context.Background()

	v1, err := svc.Embed(ctx, "rome")
	require.NoError(t, err)
	v1[0] = 99

	v2, err := svc.Embed(ctx, "rome")
	require.NoError(t, err)
	assert.Equal(t, float32(4), v2[0])
}

func TestEmbed_ErrorNotCached(t *testing.T) {
	next := &countingEmbedder{model: "m", err: errors.New("down")}
	svc := Wrap(next, 10, time.Minute).(*EmbeddingService)

	_, err := svc.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Zero(t, svc.Len())
}

func TestEmbedBatch_OnlyMissesForwarded(t *testing.T) {
	next := &countingEmbedder{model: "m"}
	svc := Wrap(next, 10, time.Minute)
	ctx := context.Background()

	_, err := svc.Embed(ctx, "bb")
	require.NoError(t, err)

	got, err := svc.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, got)
	assert.Equal(t, []string{"bb", "a", "ccc"}, next.embedded)

	got, err = svc.EmbedBatch(ctx, []string{"ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {1}}, got)
	assert.Len(t, next.embedded, 3, "fully cached batch makes no call")
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	a := Wrap(&countingEmbedder{model: "a"}, 10, time.Minute).(*EmbeddingService)
	b := Wrap(&countingEmbedder{model: "b"}, 10, time.Minute).(*EmbeddingService)
	assert.NotEqual(t, a.key("same"), b.key("same"))
	assert.Equal(t, a.key("same"), a.key("same"))
}

func TestEmbed_LRUEviction(t *testing.T) {
	next := &countingEmbedder{model: "m"}
	svc := Wrap(next, 2, time.Minute).(*EmbeddingService)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.Embed(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, svc.Len())

	_, err := svc.Embed(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "a"}, next.embedded)
}

func TestDelegatesAndClose(t *testing.T) {
	next := &countingEmbedder{model: "m"}
	svc := Wrap(next, 10, time.Minute)

	assert.Equal(t, "m", svc.ModelName())
	assert.Equal(t, 1, svc.Dimensions())
	assert.NoError(t, svc.Ping(context.Background()))

	_, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.True(t, next.closed)
	assert.Zero(t, svc.(*EmbeddingService).Len())
}

package ratelimited

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return []float32{1}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return 1 }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

func TestWrap_DisabledReturnsNext(t *testing.T) {
	next := &fakeEmbedder{}
	assert.Same(t, driven.EmbeddingService(next), Wrap(next, 0))
	assert.Same(t, driven.EmbeddingService(next), Wrap(next, -1))
}

func TestWrap_BurstRoundsUp(t *testing.T) {
	svc := Wrap(&fakeEmbedder{}, 2.5).(*EmbeddingService)
	assert.Equal(t, 3, svc.limiter.Burst())

	slow := Wrap(&fakeEmbedder{}, 0.1).(*EmbeddingService)
	assert.Equal(t, 1, slow.limiter.Burst())
}

func TestEmbed_Throttles(t *testing.T) {
	next := &fakeEmbedder{}
	svc := Wrap(next, 20) // burst 20, then one every 50ms
	ctx := context.Background()

	for range 20 {
		_, err := svc.Embed(ctx, "x")
		require.NoError(t, err)
	}

	start := time.Now()
	_, err := svc.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 21, next.calls)
}

func TestEmbed_ContextCancelledWhileWaiting(t *testing.T) {
	next := &fakeEmbedder{}
	svc := Wrap(next, 0.01)

	_, err := svc.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Embed(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestEmbedBatch_EmptySkipsLimiter(t *testing.T) {
	next := &fakeEmbedder{}
	svc := Wrap(next, 0.01)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := svc.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, next.calls)
}

func TestDelegates(t *testing.T) {
	svc := Wrap(&fakeEmbedder{}, 5)
	assert.Equal(t, "fake", svc.ModelName())
	assert.Equal(t, 1, svc.Dimensions())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

package driven

import "context"

// EmbeddingService maps text to fixed-length vectors. Adapters cover the
// offline hashing embedder, Ollama and OpenAI; the cached and ratelimited
// packages decorate any of them and must keep order and dimensions.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is 0 until the first reply when the model size is not
	// known up front.
	Dimensions() int
	ModelName() string
	// Ping checks reachability without running inference where the
	// backend allows it.
	Ping(ctx context.Context) error
	Close() error
}

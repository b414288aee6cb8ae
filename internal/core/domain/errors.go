package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file or MIME type no normaliser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Reasoning falls back to the heuristic reasoner without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Index Errors.

	// ErrEmbedding indicates a chunk or query could not be embedded
	// (empty text or a provider failure).
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexBuild indicates vectors in a batch had inconsistent dimensionality.
	ErrIndexBuild = errors.New("index build failed")

	// ErrDimensionMismatch indicates the query embedder and the index disagree
	// on vector dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrDuplicateChunk indicates a chunk identifier already exists in the index.
	ErrDuplicateChunk = errors.New("duplicate chunk")

	// ErrCorruptIndex indicates a persisted index failed its consistency checks.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrEmptyIndex indicates a search or research run against a zero-entry index.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrIndexNotLoaded indicates no index has been built or loaded yet.
	ErrIndexNotLoaded = errors.New("index not loaded")

	// Search and Reasoning Errors.

	// ErrInvalidK indicates a non-positive result count was requested.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNoEvidenceFound indicates every retrieval step of a research run
	// returned zero results.
	ErrNoEvidenceFound = errors.New("no evidence found")

	// ErrInvalidConfig indicates research configuration values are out of range.
	ErrInvalidConfig = errors.New("invalid research config")
)

// EmbeddingError reports which chunk failed to embed.
// ChunkID is empty when the failing input was a query.
type EmbeddingError struct {
	ChunkID string
	Reason  string
	Err     error
}

func (e *EmbeddingError) Error() string {
	subject := "query"
	if e.ChunkID != "" {
		subject = fmt.Sprintf("chunk %q", e.ChunkID)
	}
	msg := fmt.Sprintf("embedding %s: %s", subject, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *EmbeddingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEmbedding}
	}
	return []error{ErrEmbedding, e.Err}
}

// IndexBuildError reports the first vector whose dimension disagreed with the batch.
type IndexBuildError struct {
	ChunkID  string
	Expected int
	Actual   int
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("index build: chunk %q has dimension %d, expected %d",
		e.ChunkID, e.Actual, e.Expected)
}

func (e *IndexBuildError) Unwrap() error { return ErrIndexBuild }

// DimensionMismatchError reports expected (index) vs actual (embedder) dimensionality.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: index has %d, embedder produced %d",
		e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// DuplicateChunkError reports a chunk identifier collision.
type DuplicateChunkError struct {
	ChunkID string
}

func (e *DuplicateChunkError) Error() string {
	return fmt.Sprintf("duplicate chunk %q", e.ChunkID)
}

func (e *DuplicateChunkError) Unwrap() error { return ErrDuplicateChunk }

// CorruptIndexError reports why a persisted index was rejected.
type CorruptIndexError struct {
	Reason string
}

func (e *CorruptIndexError) Error() string {
	return "corrupt index: " + e.Reason
}

func (e *CorruptIndexError) Unwrap() error { return ErrCorruptIndex }

// NoEvidenceError reports the query for which no step found anything.
type NoEvidenceError struct {
	Query string
	Steps int
}

func (e *NoEvidenceError) Error() string {
	return fmt.Sprintf("no evidence found for %q after %d step(s)", e.Query, e.Steps)
}

func (e *NoEvidenceError) Unwrap() error { return ErrNoEvidenceFound }

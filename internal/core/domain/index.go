package domain

import "fmt"

// Metric identifies how similarity between two vectors is scored.
// One metric is fixed per Index; switching metric requires a rebuild.
type Metric string

// Available similarity metrics.
const (
	// MetricInnerProduct is the dot product over L2-normalised vectors
	// (cosine similarity). Higher is more similar.
	MetricInnerProduct Metric = "inner_product"

	// MetricL2 is the negative squared Euclidean distance.
	// Scores are <= 0; closer to 0 is more similar.
	MetricL2 Metric = "l2"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricInnerProduct || m == MetricL2
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// Description returns a human-readable description of the metric.
func (m Metric) Description() string {
	switch m {
	case MetricInnerProduct:
		return "Inner product (cosine on normalised vectors)"
	case MetricL2:
		return "Negative squared L2 distance"
	default:
		return unknownDescription
	}
}

// Normalises returns true if vectors are L2-normalised before storage and query.
func (m Metric) Normalises() bool {
	return m == MetricInnerProduct
}

// Score computes the similarity of a and b. Both must have equal length.
func (m Metric) Score(a, b []float32) float64 {
	var sum float64
	switch m {
	case MetricL2:
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return -sum
	default:
		for i := range a {
			sum += float64(a[i]) * float64(b[i])
		}
		return sum
	}
}

// Index is an ordered collection of embedding vectors plus a positional
// mapping to chunk identifiers.
//
// An Index is an immutable value: Append returns a new Index and never
// modifies the receiver, so any number of goroutines may search a given
// Index concurrently.
type Index struct {
	dimension int
	metric    Metric
	ids       []string
	vectors   [][]float32
	positions map[string]int
}

// NewIndex builds an Index from parallel id and vector slices.
// It copies both slices; callers must not modify the vectors afterwards.
func NewIndex(dimension int, metric Metric, ids []string, vectors [][]float32) (*Index, error) {
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, metric)
	}
	if dimension < 0 {
		return nil, fmt.Errorf("%w: negative dimension %d", ErrInvalidInput, dimension)
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids for %d vectors", ErrInvalidInput, len(ids), len(vectors))
	}

	idx := &Index{
		dimension: dimension,
		metric:    metric,
		ids:       make([]string, 0, len(ids)),
		vectors:   make([][]float32, 0, len(vectors)),
		positions: make(map[string]int, len(ids)),
	}
	if err := idx.appendEntries(ids, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Append returns a new Index holding the receiver's entries followed by the
// given ones. Existing positions are preserved.
func (x *Index) Append(ids []string, vectors [][]float32) (*Index, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids for %d vectors", ErrInvalidInput, len(ids), len(vectors))
	}

	next := &Index{
		dimension: x.dimension,
		metric:    x.metric,
		ids:       make([]string, len(x.ids), len(x.ids)+len(ids)),
		vectors:   make([][]float32, len(x.vectors), len(x.vectors)+len(vectors)),
		positions: make(map[string]int, len(x.ids)+len(ids)),
	}
	copy(next.ids, x.ids)
	copy(next.vectors, x.vectors)
	for id, pos := range x.positions {
		next.positions[id] = pos
	}

	if err := next.appendEntries(ids, vectors); err != nil {
		return nil, err
	}
	return next, nil
}

func (x *Index) appendEntries(ids []string, vectors [][]float32) error {
	for i, id := range ids {
		if _, exists := x.positions[id]; exists {
			return &DuplicateChunkError{ChunkID: id}
		}
		if len(vectors[i]) != x.dimension {
			return &IndexBuildError{ChunkID: id, Expected: x.dimension, Actual: len(vectors[i])}
		}
		x.positions[id] = len(x.ids)
		x.ids = append(x.ids, id)
		x.vectors = append(x.vectors, vectors[i])
	}
	return nil
}

// Dimension returns the fixed vector size of this index.
func (x *Index) Dimension() int { return x.dimension }

// Metric returns the similarity metric of this index.
func (x *Index) Metric() Metric { return x.metric }

// Len returns the number of entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.ids)
}

// ChunkID returns the chunk identifier at position pos.
func (x *Index) ChunkID(pos int) string { return x.ids[pos] }

// Vector returns the vector at position pos. The slice must not be modified.
func (x *Index) Vector(pos int) []float32 { return x.vectors[pos] }

// Position returns the insertion position of a chunk identifier.
func (x *Index) Position(id string) (int, bool) {
	pos, ok := x.positions[id]
	return pos, ok
}

// Contains returns true if the chunk identifier is indexed.
func (x *Index) Contains(id string) bool {
	_, ok := x.positions[id]
	return ok
}

// IDs returns a copy of the chunk identifiers in insertion order.
func (x *Index) IDs() []string {
	out := make([]string, len(x.ids))
	copy(out, x.ids)
	return out
}

// IndexStats summarises an index for display.
type IndexStats struct {
	// Entries is the number of indexed chunks.
	Entries int

	// Dimension is the vector size.
	Dimension int

	// Metric is the similarity metric.
	Metric Metric

	// Documents is the number of documents in the chunk store.
	Documents int

	// Chunks is the number of chunks in the chunk store.
	// Differs from Entries when the index is stale.
	Chunks int
}

// Stats returns entry, dimension and metric information for the index.
func (x *Index) Stats() IndexStats {
	if x == nil {
		return IndexStats{}
	}
	return IndexStats{Entries: len(x.ids), Dimension: x.dimension, Metric: x.metric}
}

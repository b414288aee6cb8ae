package domain

// ChunkFilter is a predicate over chunk content and metadata.
// Only chunks for which it returns true are eligible as results.
type ChunkFilter func(Chunk) bool

// SearchOptions configures a search query.
type SearchOptions struct {
	// K is the maximum number of results. Must be positive.
	K int

	// Filter optionally restricts which chunks may be returned.
	Filter ChunkFilter

	// Dedupe drops results whose text is identical to a higher-ranked result.
	Dedupe bool
}

// SearchResult represents a single ranked match.
// Results are returned in non-increasing score order with ties broken by
// ascending index position, and Rank is 1-based and contiguous.
type SearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Score is the similarity under the index metric. Higher is better.
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int

	// Chunk is the matched chunk hydrated from the chunk store.
	Chunk Chunk
}

// FilterByDocument accepts chunks belonging to any of the given documents.
func FilterByDocument(documentIDs ...string) ChunkFilter {
	allowed := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = struct{}{}
	}
	return func(c Chunk) bool {
		_, ok := allowed[c.DocumentID]
		return ok
	}
}

// FilterByMetadata accepts chunks whose string metadata value for key equals value.
func FilterByMetadata(key, value string) ChunkFilter {
	return func(c Chunk) bool {
		return c.MetadataString(key) == value
	}
}

// AllFilters combines filters with logical AND. Nil filters are skipped.
func AllFilters(filters ...ChunkFilter) ChunkFilter {
	var active []ChunkFilter
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(c Chunk) bool {
		for _, f := range active {
			if !f(c) {
				return false
			}
		}
		return true
	}
}

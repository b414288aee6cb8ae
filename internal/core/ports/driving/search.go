package driving

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// SearchService ranks an index's chunks against a query. The index is
// only read.
type SearchService interface {
	// Search returns at most opts.K results, best first.
	Search(ctx context.Context, idx *domain.Index, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

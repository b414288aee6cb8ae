package driving

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// ResearchService runs bounded multi-step retrieval-augmented reasoning.
type ResearchService interface {
	// Run investigates query against idx and returns the answer plus the
	// complete step trace. History is read but never modified.
	Run(ctx context.Context, idx *domain.Index, query string,
		history []domain.ConversationTurn, cfg domain.ResearchConfig) (*domain.ResearchResult, error)
}

// Answer pairs a research result with the conversation turn it was recorded as.
type Answer struct {
	// Result is the research outcome including the step trace.
	Result *domain.ResearchResult

	// Turn is the recorded conversation turn.
	Turn *domain.ConversationTurn
}

// Researcher is the single entry point presentation layers use to ask
// questions within a session: rewrite, run, record.
type Researcher interface {
	// Ask rewrites query against the session history, runs research on the
	// current index and records the turn.
	Ask(ctx context.Context, sessionID, query string, cfg domain.ResearchConfig) (*Answer, error)

	// Search runs a plain retrieval against the current index.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

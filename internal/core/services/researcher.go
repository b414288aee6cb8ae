package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
)

// Ensure Researcher implements the interface.
var _ driving.Researcher = (*Researcher)(nil)

// Researcher answers session questions: rewrite, research, record.
type Researcher struct {
	indexes  driving.IndexManager
	search   driving.SearchService
	research driving.ResearchService
	convo    driving.ConversationService
}

// NewResearcher creates the facade used by the CLI and the MCP server.
func NewResearcher(
	indexes driving.IndexManager,
	search driving.SearchService,
	research driving.ResearchService,
	convo driving.ConversationService,
) *Researcher {
	return &Researcher{
		indexes:  indexes,
		search:   search,
		research: research,
		convo:    convo,
	}
}

// Ask rewrites query against the session, researches it on the current
// index and records the turn. Nothing is recorded when research fails.
func (r *Researcher) Ask(ctx context.Context, sessionID, query string, cfg domain.ResearchConfig) (*driving.Answer, error) {
	rewritten, err := r.convo.Rewrite(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	idx, err := r.indexes.Current(ctx)
	if err != nil {
		return nil, err
	}

	history, err := r.convo.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := r.research.Run(ctx, idx, rewritten, history, cfg)
	if err != nil {
		return nil, err
	}

	turn, err := r.convo.Record(ctx, sessionID, query, rewritten, result.Answer)
	if err != nil {
		return nil, fmt.Errorf("research succeeded but the turn was not recorded: %w", err)
	}
	return &driving.Answer{Result: result, Turn: turn}, nil
}

// Search runs plain retrieval against the current index.
func (r *Researcher) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	idx, err := r.indexes.Current(ctx)
	if err != nil {
		return nil, err
	}
	return r.search.Search(ctx, idx, query, opts)
}

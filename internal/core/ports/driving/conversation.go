package driving

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// ConversationService keeps per-session history and rewrites follow-up queries.
type ConversationService interface {
	// Rewrite merges context from earlier turns into query.
	// With no history it returns query unchanged.
	Rewrite(ctx context.Context, sessionID, query string) (string, error)

	// Record appends a new turn. Calling it twice records two turns.
	Record(ctx context.Context, sessionID, query, rewritten, answer string) (*domain.ConversationTurn, error)

	// History returns every turn of the session, oldest first.
	History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)

	// Recent returns at most n of the newest turns, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]domain.ConversationTurn, error)

	// Sessions lists known sessions, most recently active first.
	Sessions(ctx context.Context) ([]domain.SessionSummary, error)
}

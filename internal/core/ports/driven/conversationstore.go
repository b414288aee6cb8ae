package driven

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// ConversationStore persists conversation turns.
// Turns are append-only; there is no update or delete.
type ConversationStore interface {
	// Append stores a new turn. The caller assigns SessionID and Index.
	// Returns domain.ErrInvalidInput if a turn with the same session and index exists.
	Append(ctx context.Context, turn domain.ConversationTurn) error

	// List returns all turns of a session, oldest first.
	// Unknown sessions yield an empty slice.
	List(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)

	// Sessions returns a summary of every session, most recently active first.
	Sessions(ctx context.Context) ([]domain.SessionSummary, error)
}

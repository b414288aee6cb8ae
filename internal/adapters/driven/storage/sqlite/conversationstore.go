package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Append stores a new turn. The (session, index) primary key rejects a
// second turn at the same position.
func (s *conversationStore) Append(ctx context.Context, turn domain.ConversationTurn) error {
	if turn.SessionID == "" {
		return fmt.Errorf("appending turn: %w: empty session id", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (session_id, turn_index, query, rewritten_query, answer, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, turn.SessionID, turn.Index, turn.Query, turn.RewrittenQuery, turn.Answer, toUnixNano(turn.Timestamp))
	if isConstraintViolation(err) {
		return fmt.Errorf("appending turn %d of %q: %w: already recorded",
			turn.Index, turn.SessionID, domain.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// List returns all turns of a session, oldest first.
func (s *conversationStore) List(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT session_id, turn_index, query, rewritten_query, answer, created_at
		FROM conversation_turns
		WHERE session_id = ?
		ORDER BY turn_index
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	turns := []domain.ConversationTurn{}
	for rows.Next() {
		var turn domain.ConversationTurn
		var created int64
		if err := rows.Scan(&turn.SessionID, &turn.Index, &turn.Query,
			&turn.RewrittenQuery, &turn.Answer, &created); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Timestamp = fromUnixNano(created)
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}

// Sessions returns a summary of every session, most recently active first.
func (s *conversationStore) Sessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(created_at) AS last_activity
		FROM conversation_turns
		GROUP BY session_id
		ORDER BY last_activity DESC, session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.SessionSummary{}
	for rows.Next() {
		var summary domain.SessionSummary
		var last int64
		if err := rows.Scan(&summary.SessionID, &summary.Turns, &last); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		summary.LastActivity = fromUnixNano(last)
		sessions = append(sessions, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

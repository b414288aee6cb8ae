package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu    sync.RWMutex
	turns map[string][]domain.ConversationTurn
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		turns: make(map[string][]domain.ConversationTurn),
	}
}

// Append stores a new turn.
func (s *ConversationStore) Append(_ context.Context, turn domain.ConversationTurn) error {
	if turn.SessionID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns[turn.SessionID] {
		if t.Index == turn.Index {
			return domain.ErrInvalidInput
		}
	}
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

// List returns all turns of a session, oldest first.
func (s *ConversationStore) List(_ context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := slices.Clone(s.turns[sessionID])
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	slices.SortStableFunc(turns, func(a, b domain.ConversationTurn) int { return a.Index - b.Index })
	return turns, nil
}

// Sessions returns a summary of every session, most recently active first.
func (s *ConversationStore) Sessions(_ context.Context) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionSummary, 0, len(s.turns))
	for id, turns := range s.turns {
		summary := domain.SessionSummary{SessionID: id, Turns: len(turns)}
		for _, t := range turns {
			if t.Timestamp.After(summary.LastActivity) {
				summary.LastActivity = t.Timestamp
			}
		}
		out = append(out, summary)
	}
	slices.SortFunc(out, func(a, b domain.SessionSummary) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return cmp.Compare(a.SessionID, b.SessionID)
	})
	return out, nil
}

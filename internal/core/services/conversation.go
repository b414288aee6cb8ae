package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationService = (*ConversationService)(nil)

// rewriteHistoryTurns is how many recent turns an LLM rewrite sees.
const rewriteHistoryTurns = 3

const rewriteSystem = "Rewrite the follow-up question so it can be understood without the conversation. Reply with the question only."

// ConversationService keeps session history and rewrites follow-up queries.
type ConversationService struct {
	store   driven.ConversationStore
	llm     driven.LLMService
	prompts driven.PromptStore
	now     func() time.Time

	// recordMu keeps turn indices dense when turns are recorded concurrently.
	recordMu sync.Mutex
}

// ConversationOption configures a ConversationService.
type ConversationOption func(*ConversationService)

// WithClock sets the clock used to timestamp turns.
func WithClock(now func() time.Time) ConversationOption {
	return func(s *ConversationService) {
		s.now = now
	}
}

// WithLLMRewriter rewrites follow-ups through llm, falling back to the
// heuristic rewrite on any failure.
func WithLLMRewriter(llm driven.LLMService, prompts driven.PromptStore) ConversationOption {
	return func(s *ConversationService) {
		s.llm = llm
		s.prompts = prompts
	}
}

// NewConversationService creates a conversation service backed by store.
func NewConversationService(store driven.ConversationStore, opts ...ConversationOption) *ConversationService {
	s := &ConversationService{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rewrite merges context from the session's latest turn into query.
func (s *ConversationService) Rewrite(ctx context.Context, sessionID, query string) (string, error) {
	history, err := s.store.List(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load history for %q: %w", sessionID, err)
	}
	if len(history) == 0 {
		return query, nil
	}

	if s.llm != nil && s.prompts != nil {
		rewritten, err := s.rewriteWithLLM(ctx, history, query)
		if err == nil {
			logger.Debug("LLM rewrite: %q -> %q", query, rewritten)
			return rewritten, nil
		}
		logger.Warn("LLM rewrite failed, using heuristic: %v", err)
	}

	rewritten := rewriteHeuristic(query, history[len(history)-1])
	if rewritten != query {
		logger.Debug("Rewrote %q -> %q", query, rewritten)
	}
	return rewritten, nil
}

func (s *ConversationService) rewriteWithLLM(
	ctx context.Context, history []domain.ConversationTurn, query string,
) (string, error) {
	tmpl, err := s.prompts.Load(driven.PromptRewrite)
	if err != nil {
		return "", err
	}
	if len(history) > rewriteHistoryTurns {
		history = history[len(history)-rewriteHistoryTurns:]
	}

	var transcript strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&transcript, "User: %s\nAssistant: %s\n", turn.Query, turn.Answer)
	}

	out, err := s.llm.Complete(ctx, driven.CompletionRequest{
		System:    rewriteSystem,
		Prompt:    fmt.Sprintf(tmpl, transcript.String(), query),
		MaxTokens: 128,
	})
	if err != nil {
		return "", err
	}
	out = strings.Trim(strings.TrimSpace(out), "\"")
	if out == "" {
		return "", fmt.Errorf("empty rewrite from %s", s.llm.ModelName())
	}
	return out, nil
}

// Record appends a turn to the session. Turns are never deduplicated.
func (s *ConversationService) Record(
	ctx context.Context, sessionID, query, rewritten, answer string,
) (*domain.ConversationTurn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("record turn: %w: empty session id", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("record turn: %w: empty query", domain.ErrInvalidInput)
	}

	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	history, err := s.store.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history for %q: %w", sessionID, err)
	}
	if rewritten == "" {
		rewritten = query
	}

	turn := domain.ConversationTurn{
		SessionID:      sessionID,
		Index:          len(history),
		Query:          query,
		RewrittenQuery: rewritten,
		Answer:         answer,
		Timestamp:      s.now().UTC(),
	}
	if err := s.store.Append(ctx, turn); err != nil {
		return nil, fmt.Errorf("record turn %d of %q: %w", turn.Index, sessionID, err)
	}
	return &turn, nil
}

// History returns every turn of the session, oldest first.
func (s *ConversationService) History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	turns, err := s.store.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history for %q: %w", sessionID, err)
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// Recent returns at most n of the newest turns, oldest first.
// A non-positive n yields no turns.
func (s *ConversationService) Recent(ctx context.Context, sessionID string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	turns, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// Sessions lists known sessions, most recently active first.
func (s *ConversationService) Sessions(ctx context.Context) ([]domain.SessionSummary, error) {
	sessions, err := s.store.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

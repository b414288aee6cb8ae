package driven

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// ReasoningState is the read-only view of a research run handed to a Reasoner.
type ReasoningState struct {
	// Query is the (possibly conversation-rewritten) research query.
	Query string

	// History holds prior turns of the session, oldest first.
	History []domain.ConversationTurn

	// Steps are the steps recorded so far.
	Steps []domain.ReasoningStep

	// Evidence holds results above the similarity threshold, best first.
	Evidence []domain.SearchResult

	// Round is the 0-based decomposition round.
	Round int

	// Remaining is the number of steps still allowed.
	Remaining int
}

// Reasoner supplies the judgement calls of a research run. The state
// machine that sequences them lives in the core.
//
// Implementations may include:
//   - Heuristic (keyword coverage and extractive synthesis, no network)
//   - LLM-backed (prompts through LLMService)
type Reasoner interface {
	// Name identifies the reasoner in logs.
	Name() string

	// Decompose proposes the next sub-queries to investigate.
	// Returning none ends the loop.
	Decompose(ctx context.Context, state ReasoningState) ([]string, error)

	// Conclude draws an intermediate conclusion from one step's results.
	Conclude(ctx context.Context, subQuery string, results []domain.SearchResult) (string, error)

	// Sufficient reports whether the evidence gathered answers the query.
	Sufficient(ctx context.Context, state ReasoningState) (bool, error)

	// Synthesize composes the final answer.
	Synthesize(ctx context.Context, state ReasoningState) (string, error)
}

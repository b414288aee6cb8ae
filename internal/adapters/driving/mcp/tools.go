package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/ids"
)

const (
	defaultSearchK      = 5
	defaultHistoryLimit = 10
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ResultOutput `json:"results"`
	Count   int            `json:"count"`
}

// ResultOutput represents a single retrieved chunk.
type ResultOutput struct {
	Rank       int     `json:"rank"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URI        string  `json:"uri"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// ResearchInput is the input schema for the research tool.
type ResearchInput struct {
	Query     string `json:"query" jsonschema:"the question to research"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation session; a new one is started when empty"`
	MaxSteps  int    `json:"max_steps,omitempty" jsonschema:"maximum number of reasoning steps"`
	KPerStep  int    `json:"k_per_step,omitempty" jsonschema:"results retrieved per sub-query"`
}

// StepOutput is one reasoning step of a research run.
type StepOutput struct {
	SubQuery   string `json:"sub_query"`
	Results    int    `json:"results"`
	Conclusion string `json:"conclusion,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ResearchOutput is the output schema for the research tool.
type ResearchOutput struct {
	SessionID      string         `json:"session_id"`
	Query          string         `json:"query"`
	RewrittenQuery string         `json:"rewritten_query"`
	Answer         string         `json:"answer"`
	StopReason     string         `json:"stop_reason"`
	Steps          []StepOutput   `json:"steps"`
	Evidence       []ResultOutput `json:"evidence"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session to show; lists sessions when empty"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of turns (default 10)"`
}

// TurnOutput is one recorded conversation turn.
type TurnOutput struct {
	Index          int    `json:"index"`
	Query          string `json:"query"`
	RewrittenQuery string `json:"rewritten_query"`
	Answer         string `json:"answer"`
	Timestamp      string `json:"timestamp"`
}

// SessionOutput summarises one session.
type SessionOutput struct {
	SessionID    string `json:"session_id"`
	Turns        int    `json:"turns"`
	LastActivity string `json:"last_activity"`
}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	Sessions []SessionOutput `json:"sessions,omitempty"`
	Turns    []TurnOutput    `json:"turns,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the chunks most similar to a query from the local index",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "research",
		Description: "Answer a question by decomposing it into sub-queries, retrieving evidence " +
			"for each and synthesising an answer. Follow-up questions in the same session " +
			"are rewritten using earlier turns.",
	}, s.handleResearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "List research sessions, or the turns of one session",
	}, s.handleHistory)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultSearchK
	}

	results, err := s.ports.Researcher.Search(ctx, input.Query, domain.SearchOptions{K: k})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{Results: toResults(results), Count: len(results)}, nil
}

// handleResearch handles the research tool invocation.
func (s *Server) handleResearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResearchInput,
) (*mcp.CallToolResult, ResearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, ResearchOutput{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	cfg := s.ports.Research
	if input.MaxSteps > 0 {
		cfg.MaxSteps = input.MaxSteps
	}
	if input.KPerStep > 0 {
		cfg.KPerStep = input.KPerStep
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = ids.Session()
	}

	answer, err := s.ports.Researcher.Ask(ctx, sessionID, input.Query, cfg)
	if err != nil {
		return nil, ResearchOutput{}, err
	}

	res := answer.Result
	out := ResearchOutput{
		SessionID:  sessionID,
		Query:      input.Query,
		Answer:     res.Answer,
		StopReason: string(res.StopReason),
		Steps:      make([]StepOutput, len(res.Steps)),
		Evidence:   toResults(res.Evidence),
	}
	out.RewrittenQuery = res.Query
	if answer.Turn != nil {
		out.RewrittenQuery = answer.Turn.RewrittenQuery
	}
	for i, step := range res.Steps {
		out.Steps[i] = StepOutput{
			SubQuery:   step.SubQuery,
			Results:    len(step.Results),
			Conclusion: step.Conclusion,
			Error:      step.Err,
		}
	}

	return nil, out, nil
}

// handleHistory handles the history tool invocation.
func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	if input.SessionID == "" {
		sessions, err := s.ports.Conversations.Sessions(ctx)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		return nil, HistoryOutput{Sessions: toSessions(sessions)}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	turns, err := s.ports.Conversations.Recent(ctx, input.SessionID, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{Turns: toTurns(turns)}, nil
}

func toSessions(sessions []domain.SessionSummary) []SessionOutput {
	out := make([]SessionOutput, len(sessions))
	for i, sess := range sessions {
		out[i] = SessionOutput{
			SessionID:    sess.SessionID,
			Turns:        sess.Turns,
			LastActivity: sess.LastActivity.Format(time.RFC3339),
		}
	}
	return out
}

func toTurns(turns []domain.ConversationTurn) []TurnOutput {
	out := make([]TurnOutput, len(turns))
	for i, turn := range turns {
		out[i] = TurnOutput{
			Index:          turn.Index,
			Query:          turn.Query,
			RewrittenQuery: turn.RewrittenQuery,
			Answer:         turn.Answer,
			Timestamp:      turn.Timestamp.Format(time.RFC3339),
		}
	}
	return out
}

func toResults(results []domain.SearchResult) []ResultOutput {
	out := make([]ResultOutput, len(results))
	for i, r := range results {
		out[i] = ResultOutput{
			Rank:       r.Rank,
			ChunkID:    r.ChunkID,
			DocumentID: r.Chunk.DocumentID,
			Title:      r.Chunk.MetadataString(domain.MetaTitle),
			URI:        r.Chunk.MetadataString(domain.MetaURI),
			Score:      r.Score,
			Content:    r.Chunk.Content,
		}
	}
	return out
}

package mcp

import (
	"context"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
)

// mockResearcher is a mock implementation of driving.Researcher.
type mockResearcher struct {
	results []domain.SearchResult
	answer  *driving.Answer
	err     error

	lastQuery   string
	lastSession string
	lastOpts    domain.SearchOptions
	lastConfig  domain.ResearchConfig
}

func (m *mockResearcher) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockResearcher) Ask(
	_ context.Context, sessionID, query string, cfg domain.ResearchConfig,
) (*driving.Answer, error) {
	m.lastSession = sessionID
	m.lastQuery = query
	m.lastConfig = cfg
	return m.answer, m.err
}

// mockConversations is a mock implementation of driving.ConversationService.
type mockConversations struct {
	turns    []domain.ConversationTurn
	sessions []domain.SessionSummary
	err      error

	lastLimit int
}

func (m *mockConversations) Rewrite(_ context.Context, _, query string) (string, error) {
	return query, m.err
}

func (m *mockConversations) Record(
	_ context.Context, _, _, _, _ string,
) (*domain.ConversationTurn, error) {
	return nil, m.err
}

func (m *mockConversations) History(_ context.Context, _ string) ([]domain.ConversationTurn, error) {
	return m.turns, m.err
}

func (m *mockConversations) Recent(_ context.Context, _ string, n int) ([]domain.ConversationTurn, error) {
	m.lastLimit = n
	return m.turns, m.err
}

func (m *mockConversations) Sessions(_ context.Context) ([]domain.SessionSummary, error) {
	return m.sessions, m.err
}

// mockIngest is a mock implementation of driving.IngestService.
type mockIngest struct {
	documents []domain.Document
	err       error
}

func (m *mockIngest) IngestDir(_ context.Context, _ string) (*driving.IngestReport, error) {
	return nil, m.err
}

func (m *mockIngest) IngestFile(_ context.Context, _ string) (*driving.IngestOutcome, error) {
	return nil, m.err
}

func (m *mockIngest) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngest) Documents(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockIngest) Chunks(_ context.Context) ([]domain.Chunk, error) {
	return nil, m.err
}

func newTestServer(t interface{ Fatalf(string, ...any) }, ports *Ports) *Server {
	s, err := NewServer(ports)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func sampleResult() domain.SearchResult {
	return domain.SearchResult{
		ChunkID: "chunk-1",
		Score:   0.95,
		Rank:    1,
		Chunk: domain.Chunk{
			ID:         "chunk-1",
			DocumentID: "doc-1",
			Content:    "This is the content",
			Metadata: map[string]any{
				domain.MetaTitle: "Test Doc",
				domain.MetaURI:   "notes/test.txt",
			},
		},
	}
}

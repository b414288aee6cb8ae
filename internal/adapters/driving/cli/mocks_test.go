package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	coreservices "github.com/custodia-labs/deep-researcher/internal/core/services"
	"github.com/custodia-labs/deep-researcher/internal/ids"
)

var errMock = errors.New("mock failure")

type mockIndexManager struct {
	report  *driving.IngestReport
	outcome *driving.IngestOutcome
	stats   domain.IndexStats
	err     error

	builtFrom string
	added     string
	removed   []string
	rebuilt   int
}

func (m *mockIndexManager) Current(_ context.Context) (*domain.Index, error) {
	return nil, m.err
}

func (m *mockIndexManager) BuildFromDir(_ context.Context, dir string) (*driving.IngestReport, error) {
	m.builtFrom = dir
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &driving.IngestReport{Failed: map[string]error{}}, nil
	}
	return m.report, nil
}

func (m *mockIndexManager) AddFile(_ context.Context, path string) (*driving.IngestOutcome, error) {
	m.added = path
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

func (m *mockIndexManager) RemoveDocument(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

func (m *mockIndexManager) Rebuild(_ context.Context) (*domain.Index, error) {
	m.rebuilt++
	if m.err != nil {
		return nil, m.err
	}
	return domain.NewIndex(2, domain.MetricInnerProduct, []string{"c1"}, [][]float32{{1, 0}})
}

func (m *mockIndexManager) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

type mockIngest struct {
	docs []domain.Document
	err  error
}

func (m *mockIngest) IngestDir(_ context.Context, _ string) (*driving.IngestReport, error) {
	return nil, m.err
}

func (m *mockIngest) IngestFile(_ context.Context, _ string) (*driving.IngestOutcome, error) {
	return nil, m.err
}

func (m *mockIngest) Remove(_ context.Context, _ string) error { return m.err }

func (m *mockIngest) Documents(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockIngest) Chunks(_ context.Context) ([]domain.Chunk, error) { return nil, m.err }

type mockResearcher struct {
	results []domain.SearchResult
	answer  *driving.Answer
	err     error

	lastQuery   string
	lastSession string
	lastOpts    domain.SearchOptions
	lastConfig  domain.ResearchConfig
}

func (m *mockResearcher) Ask(_ context.Context, sessionID, query string, cfg domain.ResearchConfig) (*driving.Answer, error) {
	m.lastSession, m.lastQuery, m.lastConfig = sessionID, query, cfg
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockResearcher) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastOpts = query, opts
	return m.results, m.err
}

type mockConversations struct {
	turns    []domain.ConversationTurn
	sessions []domain.SessionSummary
	err      error

	lastLimit int
}

func (m *mockConversations) Rewrite(_ context.Context, _, query string) (string, error) {
	return query, m.err
}

func (m *mockConversations) Record(_ context.Context, sessionID, query, rewritten, answer string) (*domain.ConversationTurn, error) {
	return &domain.ConversationTurn{SessionID: sessionID, Query: query, RewrittenQuery: rewritten, Answer: answer}, m.err
}

func (m *mockConversations) History(_ context.Context, _ string) ([]domain.ConversationTurn, error) {
	return m.turns, m.err
}

func (m *mockConversations) Recent(_ context.Context, _ string, n int) ([]domain.ConversationTurn, error) {
	m.lastLimit = n
	if m.err != nil {
		return nil, m.err
	}
	if n > 0 && len(m.turns) > n {
		return m.turns[len(m.turns)-n:], nil
	}
	return m.turns, nil
}

func (m *mockConversations) Sessions(_ context.Context) ([]domain.SessionSummary, error) {
	return m.sessions, m.err
}

type testServices struct {
	indexes    *mockIndexManager
	ingest     *mockIngest
	researcher *mockResearcher
	convo      *mockConversations
	config     *memory.ConfigStore
}

func sampleChunk(uri, content string) domain.Chunk {
	docID := ids.Document(uri)
	return domain.Chunk{
		ID:         ids.Chunk(docID, 0, content),
		DocumentID: docID,
		Content:    content,
		Metadata:   map[string]any{domain.MetaURI: uri, domain.MetaTitle: uri},
	}
}

func sampleAnswer() *driving.Answer {
	chunk := sampleChunk("art/leonardo.md", "Leonardo painted the Mona Lisa.")
	hit := domain.SearchResult{ChunkID: chunk.ID, Score: 0.82, Rank: 1, Chunk: chunk}
	return &driving.Answer{
		Result: &domain.ResearchResult{
			Query:  "Where is the Mona Lisa?",
			Answer: "The Mona Lisa hangs in the Louvre.",
			Steps: []domain.ReasoningStep{
				{Index: 0, SubQuery: "Mona Lisa location", Results: []domain.SearchResult{hit}, Conclusion: "Leonardo painted it."},
			},
			Evidence:   []domain.SearchResult{hit},
			StopReason: domain.StopSufficient,
		},
		Turn: &domain.ConversationTurn{
			SessionID:      "s1",
			Query:          "Where is it?",
			RewrittenQuery: "Where is the Mona Lisa?",
			Answer:         "The Mona Lisa hangs in the Louvre.",
			Timestamp:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

// setupTestServices installs mocks as the command services and returns
// them with a cleanup that restores the previous globals and flags.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		indexes:    &mockIndexManager{},
		ingest:     &mockIngest{},
		researcher: &mockResearcher{answer: sampleAnswer()},
		convo:      &mockConversations{},
		config:     memory.NewConfigStore(),
	}

	prevServices, prevBuilt := services, servicesBuilt
	prevSettings, prevStore, prevBootstrap := settingsService, configStore, bootstrap

	services = &Services{
		Indexes:       ts.indexes,
		Ingest:        ts.ingest,
		Researcher:    ts.researcher,
		Conversations: ts.convo,
		DataDir:       "corpus",
		Reasoner:      "heuristic",
	}
	servicesBuilt = false
	settingsService = coreservices.NewSettingsService(ts.config, nil)
	configStore = ts.config
	bootstrap = nil

	return ts, func() {
		services, servicesBuilt = prevServices, prevBuilt
		settingsService, configStore, bootstrap = prevSettings, prevStore, prevBootstrap
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}
}

// resetFlags restores every flag to its default; cobra keeps parsed
// values on the shared command tree between executions.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
		for _, sub := range c.Commands() {
			sub.Flags().VisitAll(reset)
		}
	}
}

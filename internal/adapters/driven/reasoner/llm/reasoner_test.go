package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// mockLLM returns canned responses and records prompts.
type mockLLM struct {
	responses []string
	err       error
	prompts   []string
	systems   []string
}

func (m *mockLLM) Complete(_ context.Context, req driven.CompletionRequest) (string, error) {
	m.prompts = append(m.prompts, req.Prompt)
	m.systems = append(m.systems, req.System)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	out := m.responses[0]
	m.responses = m.responses[1:]
	return out, nil
}

func (m *mockLLM) ModelName() string          { return "mock-model" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// mockPrompts serves fixed templates.
type mockPrompts struct{}

func (mockPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptDecompose:
		return "decompose %s | %s | %d", nil
	case driven.PromptSufficiency:
		return "sufficient %s | %s", nil
	case driven.PromptConclude:
		return "conclude %s | %s", nil
	case driven.PromptSynthesize:
		return "context %s | query %s", nil
	}
	return "", errors.New("unknown prompt")
}
func (mockPrompts) Reload() {}

func evidence() []domain.SearchResult {
	return []domain.SearchResult{{
		ChunkID: "c1",
		Score:   0.9,
		Chunk:   domain.Chunk{ID: "c1", Content: "Paris is the capital of France."},
	}}
}

func TestReasoner_Name(t *testing.T) {
	r := New(&mockLLM{}, mockPrompts{})
	assert.Equal(t, "llm:mock-model", r.Name())
}

func TestDecompose_ParsesLines(t *testing.T) {
	llm := &mockLLM{responses: []string{"1. Where is France?\n- What is a capital?\n\n* none\n"}}
	r := New(llm, mockPrompts{})

	subs, err := r.Decompose(context.Background(), driven.ReasoningState{Query: "capital of France", Remaining: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"capital of France", "Where is France?", "What is a capital?"}, subs)
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, "decompose capital of France | none yet | 3", llm.prompts[0])
}

func TestDecompose_LaterRoundSkipsQueryAndPassesFindings(t *testing.T) {
	llm := &mockLLM{responses: []string{"population of Paris"}}
	r := New(llm, mockPrompts{})

	state := driven.ReasoningState{
		Query:     "capital of France",
		Round:     1,
		Remaining: 2,
		Steps:     []domain.ReasoningStep{{SubQuery: "capital", Conclusion: "Paris."}},
	}
	subs, err := r.Decompose(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, []string{"population of Paris"}, subs)
	assert.Contains(t, llm.prompts[0], "- capital: Paris.")
}

func TestDecompose_FallsBackOnError(t *testing.T) {
	r := New(&mockLLM{err: errors.New("connection refused")}, mockPrompts{})

	subs, err := r.Decompose(context.Background(), driven.ReasoningState{Query: "capital of France"})
	require.NoError(t, err)

	require.NotEmpty(t, subs)
	assert.Equal(t, "capital of France", subs[0])
	assert.Contains(t, subs, "What is the main topic of 'capital of France'?")
}

func TestSufficient(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"yes", "YES", true},
		{"lowercase yes", "yes, it does", true},
		{"no", "NO", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockLLM{responses: []string{tt.response}}, mockPrompts{})
			ok, err := r.Sufficient(context.Background(), driven.ReasoningState{Query: "q", Evidence: evidence()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSufficient_NoEvidenceSkipsModel(t *testing.T) {
	llm := &mockLLM{responses: []string{"YES"}}
	ok, err := New(llm, mockPrompts{}).Sufficient(context.Background(), driven.ReasoningState{Query: "q"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, llm.prompts)
}

func TestConclude(t *testing.T) {
	llm := &mockLLM{responses: []string{"  Paris is the capital.  "}}
	out, err := New(llm, mockPrompts{}).Conclude(context.Background(), "capital", evidence())
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", out)
	assert.Equal(t, "conclude capital | [1] Paris is the capital of France.", llm.prompts[0])
	assert.Equal(t, systemPrompt, llm.systems[0])
}

func TestSynthesize_UsesContextThenQuery(t *testing.T) {
	llm := &mockLLM{responses: []string{"The capital of France is Paris [1]."}}
	out, err := New(llm, mockPrompts{}).Synthesize(context.Background(), driven.ReasoningState{
		Query:    "What is the capital of France?",
		Evidence: evidence(),
	})
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris [1].", out)
	assert.True(t, strings.HasPrefix(llm.prompts[0], "context [1] Paris"))
}

func TestSynthesize_EmptyResponseFallsBack(t *testing.T) {
	llm := &mockLLM{responses: []string{"   "}}
	out, err := New(llm, mockPrompts{}).Synthesize(context.Background(), driven.ReasoningState{
		Query:    "What is the capital of France?",
		Evidence: evidence(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Paris is the capital of France. [1]"))
}

package heuristic

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

func result(id, content string, score float64) domain.SearchResult {
	return domain.SearchResult{
		ChunkID: id,
		Score:   score,
		Chunk: domain.Chunk{
			ID:       id,
			Content:  content,
			Metadata: map[string]any{domain.MetaTitle: id + ".txt"},
		},
	}
}

func TestReasoner_Name(t *testing.T) {
	assert.Equal(t, "heuristic", New().Name())
}

func TestDecompose_FirstRound(t *testing.T) {
	r := New()
	q := "What is the capital of France?"

	subs, err := r.Decompose(context.Background(), driven.ReasoningState{Query: q})
	require.NoError(t, err)

	assert.Equal(t, []string{
		q,
		"What is the main topic of 'What is the capital of France?'?",
		"What aspects of 'What is the capital of France?' need to be addressed?",
		"How can 'What is the capital of France?' be understood in context?",
	}, subs)
}

func TestDecompose_SplitsCompoundQuestions(t *testing.T) {
	r := New()
	q := "Who painted the Mona Lisa and where is it displayed?"

	subs, err := r.Decompose(context.Background(), driven.ReasoningState{Query: q})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(subs), 3)
	assert.Equal(t, q, subs[0])
	assert.Equal(t, "Who painted the Mona Lisa", subs[1])
	assert.Equal(t, "where is it displayed", subs[2])
}

func TestDecompose_FollowUpsNameMissingKeywords(t *testing.T) {
	r := New()
	state := driven.ReasoningState{
		Query:    "capital of France and population",
		Round:    1,
		Evidence: []domain.SearchResult{result("c1", "Paris is the capital of France.", 0.9)},
		Steps: []domain.ReasoningStep{
			{SubQuery: "capital of France", Conclusion: "Paris is the capital of France."},
		},
	}

	subs, err := r.Decompose(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, subs, 1)
	assert.True(t, strings.HasPrefix(subs[0], "population "))
	assert.Contains(t, subs[0], "Paris is the capital of France.")
}

func TestDecompose_NothingMissingEndsLoop(t *testing.T) {
	r := New()
	state := driven.ReasoningState{
		Query:    "capital of France",
		Round:    1,
		Evidence: []domain.SearchResult{result("c1", "Paris is the capital of France.", 0.9)},
	}

	subs, err := r.Decompose(context.Background(), state)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestConclude_PicksBestCoveringSentence(t *testing.T) {
	r := New()
	results := []domain.SearchResult{
		result("c1", "France is in Europe. Paris is the capital of France. It has many museums.", 0.8),
	}

	got, err := r.Conclude(context.Background(), "capital of France", results)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", got)

	got, err = r.Conclude(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSufficient(t *testing.T) {
	r := New()
	ctx := context.Background()

	tests := []struct {
		name     string
		evidence []domain.SearchResult
		want     bool
	}{
		{"no evidence", nil, false},
		{"full coverage", []domain.SearchResult{result("c1", "Paris is the capital of France.", 0.9)}, true},
		{"half coverage", []domain.SearchResult{result("c1", "Berlin is a capital.", 0.4)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := r.Sufficient(ctx, driven.ReasoningState{
				Query:    "What is the capital of France?",
				Evidence: tt.evidence,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSynthesize_ExtractsAndCites(t *testing.T) {
	r := New()
	state := driven.ReasoningState{
		Query: "What is the capital of France?",
		Evidence: []domain.SearchResult{
			result("c1", "Paris is the capital of France. It lies on the Seine.", 0.9),
			result("c2", "Lyon is a city in France.", 0.5),
		},
	}

	answer, err := r.Synthesize(context.Background(), state)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(answer, "Paris is the capital of France. [1]"))
	assert.Contains(t, answer, "Lyon is a city in France. [2]")
	assert.NotContains(t, answer, "Seine")
	assert.Contains(t, answer, "Sources:\n[1] c1.txt (chunk c1)\n[2] c2.txt (chunk c2)")
}

func TestSynthesize_FallsBackToFirstSentence(t *testing.T) {
	r := New()
	state := driven.ReasoningState{
		Query:    "quantum chromodynamics",
		Evidence: []domain.SearchResult{{ChunkID: "c9", Chunk: domain.Chunk{ID: "c9", Content: "Unrelated text. More."}}},
	}

	answer, err := r.Synthesize(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "Unrelated text. [1]\n\nSources:\n[1] chunk c9", answer)
}

func TestSynthesize_NoEvidence(t *testing.T) {
	answer, err := New().Synthesize(context.Background(), driven.ReasoningState{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, answer)
}

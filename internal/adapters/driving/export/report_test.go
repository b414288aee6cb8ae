package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
)

var generated = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleAnswer() *driving.Answer {
	chunk := domain.Chunk{
		ID:      "c1",
		Content: "Paris is the capital of France.\nIt sits on the Seine.",
		Metadata: map[string]any{
			domain.MetaURI:   "geo/france.txt",
			domain.MetaTitle: "france.txt",
		},
	}
	return &driving.Answer{
		Result: &domain.ResearchResult{
			Query:  "what is the capital of france",
			Answer: "Paris.",
			Steps: []domain.ReasoningStep{
				{Index: 0, SubQuery: "capital of france"},
				{Index: 1, SubQuery: "france river"},
			},
			Evidence: []domain.SearchResult{{ChunkID: "c1", Score: 0.875, Rank: 1, Chunk: chunk}},
		},
		Turn: &domain.ConversationTurn{
			Query:          "and its capital?",
			RewrittenQuery: "what is the capital of france",
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": FormatMarkdown, "Markdown": FormatMarkdown, " html ": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "research_report_20260314_092653.md", Filename(FormatMarkdown, generated))
	assert.Equal(t, "research_report_20260314_092653.html", Filename(FormatHTML, generated))
}

func TestFromAnswer(t *testing.T) {
	r := FromAnswer(sampleAnswer(), generated)

	assert.Equal(t, "and its capital?", r.Query)
	assert.Equal(t, "what is the capital of france", r.RewrittenQuery)
	assert.Equal(t, []string{"capital of france", "france river"}, r.SubQueries)
	assert.Equal(t, "Paris.", r.Answer)
	require.Len(t, r.Chunks, 1)
	assert.Equal(t, Chunk{
		Title:   "france.txt",
		URI:     "geo/france.txt",
		Score:   0.875,
		Content: "Paris is the capital of France.\nIt sits on the Seine.",
	}, r.Chunks[0])
}

func TestFromAnswer_WithoutTurn(t *testing.T) {
	a := sampleAnswer()
	a.Turn = nil
	r := FromAnswer(a, generated)
	assert.Equal(t, "what is the capital of france", r.Query)
	assert.Equal(t, r.Query, r.RewrittenQuery)
}

func TestMarkdown(t *testing.T) {
	out := string(Markdown(FromAnswer(sampleAnswer(), generated)))

	sections := []string{
		"# Research Report",
		"## Query\n\nand its capital?",
		"## Rewritten Query\n\nwhat is the capital of france",
		"## Sub-Queries\n\n1. capital of france\n2. france river",
		"### Chunk 1: france.txt",
		"Source: `geo/france.txt` (score 0.8750)",
		"> Paris is the capital of France.\n> It sits on the Seine.",
		"## Final Answer\n\nParis.",
		"## Generated On\n\n2026-03-14 09:26:53",
	}
	last := -1
	for _, s := range sections {
		i := strings.Index(out, s)
		require.GreaterOrEqual(t, i, 0, "missing %q", s)
		assert.Greater(t, i, last, "%q out of order", s)
		last = i
	}
}

func TestMarkdown_FromTurnOmitsTrace(t *testing.T) {
	turn := domain.ConversationTurn{Query: "q", RewrittenQuery: "q", Answer: "a"}
	out := string(Markdown(FromTurn(turn, generated)))

	assert.Contains(t, out, "## Final Answer\n\na")
	assert.NotContains(t, out, "## Rewritten Query")
	assert.NotContains(t, out, "## Sub-Queries")
	assert.NotContains(t, out, "## Retrieved Chunks")
}

func TestHTML(t *testing.T) {
	r := FromAnswer(sampleAnswer(), generated)
	r.Query = "<script>alert(1)</script>"

	out, err := Render(r, FormatHTML)
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, `<h1 id="research-report">Research Report</h1>`)
	assert.Contains(t, page, "<li>capital of france</li>")
	assert.Contains(t, page, "<blockquote>")
	assert.Contains(t, page, "<code>geo/france.txt</code>")
	assert.NotContains(t, page, "<script>")
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(Report{}, Format("pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

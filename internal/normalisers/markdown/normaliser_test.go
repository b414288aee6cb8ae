package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/ids"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = New()
	assert.Contains(t, New().SupportedMIMETypes(), "text/markdown")
	assert.Equal(t, 50, New().Priority())
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading and emphasis", "# Title\n\nSome **bold** and *italic* text.", "Title\n\nSome bold and italic text."},
		{"link and inline code", "[Paris](https://example.com) runs `make`", "Paris runs make"},
		{"image dropped", "![map](map.png) after", "after"},
		{"code block dropped", "```go\nx := 1\n```\nafter", "after"},
		{"blockquote", "> quoted line", "quoted line"},
		{"lists", "- a\n- b\n1. c\n2. d", "a\nb\nc\nd"},
		{"bare url kept", "see https://example.com now", "see https://example.com now"},
		{"strikethrough", "~~old~~ new", "old new"},
		{"hard break", "one  \ntwo", "one\ntwo"},
		{"html", "<b>hi</b> there", "hi there"},
		{"underscore emphasis", "__strong__ and _em_", "strong and em"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

func TestStripMarkdown_HorizontalRule(t *testing.T) {
	out := StripMarkdown("text\n\n---\n\nmore")
	assert.NotContains(t, out, "---")
	assert.Contains(t, out, "text")
	assert.Contains(t, out, "more")
}

func TestStripMarkdown_Table(t *testing.T) {
	out := StripMarkdown("| city | river |\n| --- | --- |\n| Paris | Seine |\n")
	assert.Contains(t, out, "city river")
	assert.Contains(t, out, "Paris Seine")
	assert.NotContains(t, out, "|")
}

func TestStripMarkdown_EscapedAndIndentedCode(t *testing.T) {
	out := StripMarkdown("intro\n\n    indented code\n\nafter \\*literal\\*")
	assert.NotContains(t, out, "indented code")
	assert.Contains(t, out, "*literal*")
}

func TestStripMarkdown_CodeSpanKeepsBackslashes(t *testing.T) {
	assert.Equal(t, `run C:\tmp now`, StripMarkdown("run `C:\\tmp` now"))
}

func TestNormalise(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "art/leonardo.md",
		MIMEType: "text/markdown",
		Content: []byte("# Leonardo da *Vinci*\n\n" +
			"Painted the **Mona Lisa**, which hangs in the [Louvre](https://louvre.fr).\n\n\n\n" +
			"- Born in   1452\n"),
		Metadata: map[string]any{domain.MetaTitle: "leonardo.md"},
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, ids.Document("art/leonardo.md"), doc.ID)
	assert.Equal(t, "leonardo.md", doc.Title)
	assert.Equal(t,
		"Leonardo da Vinci\n\nPainted the Mona Lisa, which hangs in the Louvre.\n\nBorn in 1452",
		doc.Content)
	assert.Equal(t, "Leonardo da Vinci", doc.Metadata["heading"])
	assert.Equal(t, "markdown", doc.Metadata["format"])
	assert.Equal(t, "text/markdown", doc.Metadata["mime_type"])
}

func TestNormalise_TitleFallsBackToFileName(t *testing.T) {
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "notes/readme.md",
		Content: []byte("no heading here"),
	})
	require.NoError(t, err)
	assert.Equal(t, "readme.md", doc.Title)
	assert.NotContains(t, doc.Metadata, "heading")
}

func TestNormalise_InvalidInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

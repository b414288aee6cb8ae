// Package markdown normalises Markdown files to plain text by walking the
// goldmark syntax tree and keeping only the prose.
package markdown

import (
	"context"
	"maps"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/ids"
	"github.com/custodia-labs/deep-researcher/internal/normalisers/plaintext"
)

var _ driven.Normaliser = (*Normaliser)(nil)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority is above the plaintext fallback.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise keeps the prose of raw and records the first level-one
// heading, if any, in metadata under "heading".
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil || raw.URI == "" {
		return nil, domain.ErrInvalidInput
	}

	prose, heading := extract(raw.Content)

	metadata := make(map[string]any, len(raw.Metadata)+3)
	maps.Copy(metadata, raw.Metadata)
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = "markdown"
	if heading != "" {
		metadata["heading"] = heading
	}

	return &domain.Document{
		ID:       ids.Document(raw.URI),
		URI:      raw.URI,
		Title:    plaintext.Title(raw),
		Content:  prose,
		Metadata: metadata,
	}, nil
}

// StripMarkdown returns the text of content without Markdown syntax.
// Code blocks, images and raw HTML tags are dropped; link and code span
// text is kept.
func StripMarkdown(content string) string {
	prose, _ := extract([]byte(content))
	return prose
}

// extract walks the parsed document and returns whitespace-collapsed
// prose. Paragraph-level blocks end with a blank line, list items and
// table rows with a newline.
func extract(source []byte) (prose, heading string) {
	root := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	headingStart := -1
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock,
			ast.KindImage, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		}

		if entering {
			switch node := n.(type) {
			case *ast.CodeSpan:
				for c := node.FirstChild(); c != nil; c = c.NextSibling() {
					if t, ok := c.(*ast.Text); ok {
						b.Write(t.Segment.Value(source))
					}
				}
				return ast.WalkSkipChildren, nil
			case *ast.Text:
				b.Write(unescape(node.Segment.Value(source)))
				switch {
				case node.HardLineBreak():
					b.WriteByte('\n')
				case node.SoftLineBreak():
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(node.Value)
			case *ast.AutoLink:
				b.Write(node.Label(source))
			case *ast.Heading:
				if node.Level == 1 && heading == "" && headingStart < 0 {
					headingStart = b.Len()
				}
			}
			return ast.WalkContinue, nil
		}

		switch n.Kind() {
		case ast.KindHeading:
			if headingStart >= 0 && heading == "" {
				heading = strings.TrimSpace(b.String()[headingStart:])
				headingStart = -1
			}
			endBlock(&b, "\n\n")
		case ast.KindParagraph, ast.KindThematicBreak:
			endBlock(&b, "\n\n")
		case ast.KindTextBlock, east.KindTableRow, east.KindTableHeader:
			endBlock(&b, "\n")
		case east.KindTableCell:
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return plaintext.CollapseWhitespace(b.String()), heading
}

// unescape resolves backslash escapes and character references.
func unescape(v []byte) []byte {
	return util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(v)))
}

func endBlock(b *strings.Builder, sep string) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), sep) {
		b.WriteString(sep)
	}
}

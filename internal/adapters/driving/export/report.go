// Package export renders research results as Markdown or HTML reports.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
)

// Format is an export file format.
type Format string

const (
	// FormatMarkdown writes the report as Markdown.
	FormatMarkdown Format = "md"

	// FormatHTML writes the report as a standalone HTML page.
	FormatHTML Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (use md or html)", domain.ErrInvalidInput, s)
	}
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Chunk is one retrieved passage in a report.
type Chunk struct {
	Title   string
	URI     string
	Score   float64
	Content string
}

// Report is everything a research report shows.
type Report struct {
	Query          string
	RewrittenQuery string
	SubQueries     []string
	Chunks         []Chunk
	Answer         string
	GeneratedAt    time.Time
}

// FromAnswer builds a report from a research answer. Chunks are the
// deduplicated evidence, best first.
func FromAnswer(answer *driving.Answer, now time.Time) Report {
	r := Report{GeneratedAt: now}
	if answer == nil {
		return r
	}
	if answer.Turn != nil {
		r.Query = answer.Turn.Query
		r.RewrittenQuery = answer.Turn.RewrittenQuery
	}
	if res := answer.Result; res != nil {
		if r.Query == "" {
			r.Query = res.Query
		}
		if r.RewrittenQuery == "" {
			r.RewrittenQuery = res.Query
		}
		r.SubQueries = res.SubQueries()
		r.Answer = res.Answer
		for _, ev := range res.Evidence {
			r.Chunks = append(r.Chunks, Chunk{
				Title:   ev.Chunk.MetadataString(domain.MetaTitle),
				URI:     ev.Chunk.MetadataString(domain.MetaURI),
				Score:   ev.Score,
				Content: ev.Chunk.Content,
			})
		}
	}
	return r
}

// FromTurn builds a report from a recorded turn. Turns do not keep the
// step trace, so sub-queries and chunks are absent.
func FromTurn(turn domain.ConversationTurn, now time.Time) Report {
	return Report{
		Query:          turn.Query,
		RewrittenQuery: turn.RewrittenQuery,
		Answer:         turn.Answer,
		GeneratedAt:    now,
	}
}

// Filename returns the default report file name for a generation time.
func Filename(f Format, at time.Time) string {
	return "research_report_" + at.Format("20060102_150405") + f.Extension()
}

// Render renders the report in the given format.
func Render(r Report, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return Markdown(r), nil
	case FormatHTML:
		return HTML(r)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, f)
	}
}

// Markdown renders the report as Markdown.
func Markdown(r Report) []byte {
	var b bytes.Buffer

	b.WriteString("# Research Report\n\n")
	b.WriteString("## Query\n\n")
	b.WriteString(r.Query + "\n\n")

	if r.RewrittenQuery != "" && r.RewrittenQuery != r.Query {
		b.WriteString("## Rewritten Query\n\n")
		b.WriteString(r.RewrittenQuery + "\n\n")
	}

	if len(r.SubQueries) > 0 {
		b.WriteString("## Sub-Queries\n\n")
		for i, q := range r.SubQueries {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
		b.WriteString("\n")
	}

	if len(r.Chunks) > 0 {
		b.WriteString("## Retrieved Chunks\n\n")
		for i, c := range r.Chunks {
			fmt.Fprintf(&b, "### Chunk %d", i+1)
			if c.Title != "" {
				fmt.Fprintf(&b, ": %s", c.Title)
			}
			b.WriteString("\n\n")
			if c.URI != "" {
				fmt.Fprintf(&b, "Source: `%s` (score %.4f)\n\n", c.URI, c.Score)
			}
			b.WriteString(quote(c.Content))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Final Answer\n\n")
	b.WriteString(strings.TrimSpace(r.Answer) + "\n\n")

	b.WriteString("## Generated On\n\n")
	b.WriteString(r.GeneratedAt.Format("2006-01-02 15:04:05") + "\n")
	return b.Bytes()
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// HTML renders the Markdown report to a standalone HTML page.
// Raw HTML inside document text is not passed through.
func HTML(r Report) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(Markdown(r), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>Research Report: %s</title>\n", html.EscapeString(r.Query))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// quote prefixes every line so passages render as a blockquote.
func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("> "+l, " ")
	}
	return strings.Join(lines, "\n")
}

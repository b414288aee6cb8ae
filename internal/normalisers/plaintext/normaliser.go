// Package plaintext normalises plain text files.
package plaintext

import (
	"context"
	"maps"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/ids"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw document to a document whose content has runs
// of spaces and tabs collapsed. Paragraph breaks are kept.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil || raw.URI == "" {
		return nil, domain.ErrInvalidInput
	}

	doc := &domain.Document{
		ID:       ids.Document(raw.URI),
		URI:      raw.URI,
		Title:    Title(raw),
		Content:  CollapseWhitespace(string(raw.Content)),
		Metadata: copyMetadata(raw.Metadata),
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	return doc, nil
}

// Title returns the loader-supplied title, or the file name of the URI.
func Title(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata[domain.MetaTitle].(string); ok && title != "" {
		return title
	}
	return filepath.Base(raw.URI)
}

// CollapseWhitespace trims every line, squeezes inner runs of whitespace to
// one space and keeps at most one blank line between paragraphs.
func CollapseWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func copyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+1)
	maps.Copy(dst, src)
	return dst
}

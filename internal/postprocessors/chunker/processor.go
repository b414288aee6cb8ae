// Package chunker cuts document text into overlapping windows of words.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/ids"
)

// Window sizes in words.
const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 40
)

// Processor is the "chunker" pipeline stage. It ignores incoming chunks
// and derives a fresh set from the document text.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option adjusts a Processor. Non-positive sizes and negative overlaps
// are ignored.
type Option func(*Processor)

func WithChunkSize(words int) Option {
	return func(p *Processor) {
		if words > 0 {
			p.chunkSize = words
		}
	}
}

func WithOverlap(words int) Option {
	return func(p *Processor) {
		if words >= 0 {
			p.overlap = words
		}
	}
}

// New applies opts over the defaults. An overlap that would stop the
// window advancing is cut to a quarter of the chunk size.
func New(opts ...Option) *Processor {
	p := &Processor{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	return p
}

func (p *Processor) Name() string   { return "chunker" }
func (p *Processor) ChunkSize() int { return p.chunkSize }
func (p *Processor) Overlap() int   { return p.overlap }

// Process returns one chunk per window. The last window ends at the last
// word and may be short. IDs hash document ID, position and text, so an
// unchanged document always yields the same chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	words := strings.Fields(doc.Content)
	spans := windows(len(words), p.chunkSize, p.chunkSize-p.overlap)

	chunks := make([]domain.Chunk, len(spans))
	for pos, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.Join(words[span[0]:span[1]], " ")
		chunks[pos] = domain.Chunk{
			ID:         ids.Chunk(doc.ID, pos, text),
			DocumentID: doc.ID,
			Content:    text,
			Position:   pos,
			Metadata:   map[string]any{domain.MetaURI: doc.URI, domain.MetaTitle: doc.Title},
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return chunks, nil
}

// windows returns [start, end) word spans of width size taken every step
// words, stopping at the first span that reaches n.
func windows(n, size, step int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
		if end == n {
			break
		}
	}
	return out
}

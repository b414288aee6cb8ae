package normalisers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/normalisers/markdown"
	"github.com/custodia-labs/deep-researcher/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to the highest-priority normaliser
// registered for their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry creates a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	return r
}

// Register adds a normaliser for each of its MIME types. Among
// normalisers of equal priority the first registered wins.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mime := range n.SupportedMIMETypes() {
		mime = strings.ToLower(mime)
		list := append(slices.Clone(r.byMIME[mime]), n)
		slices.SortStableFunc(list, func(a, b driven.Normaliser) int {
			return b.Priority() - a.Priority()
		})
		r.byMIME[mime] = list
	}
}

// Normalise runs raw through the best normaliser for its MIME type.
// MIME parameters such as "; charset=utf-8" are ignored.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(raw.MIMEType, ";", 2)[0]))

	r.mu.RLock()
	list := r.byMIME[mime]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedType, raw.MIMEType, raw.URI)
	}
	return list[0].Normalise(ctx, raw)
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		out = append(out, mime)
	}
	slices.Sort(out)
	return out
}

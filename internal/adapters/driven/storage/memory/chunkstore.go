package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *ChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *doc
	d.Metadata = maps.Clone(doc.Metadata)
	s.documents[doc.ID] = d
	return nil
}

// SaveChunks stores chunks, replacing any chunk with the same ID.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if c.ID == "" || c.DocumentID == "" {
			return domain.ErrInvalidInput
		}
		existing := s.chunks[c.DocumentID]
		if i := slices.IndexFunc(existing, func(e domain.Chunk) bool { return e.ID == c.ID }); i >= 0 {
			existing[i] = c
		} else {
			existing = append(existing, c)
		}
		slices.SortStableFunc(existing, func(a, b domain.Chunk) int { return cmp.Compare(a.Position, b.Position) })
		s.chunks[c.DocumentID] = existing
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *ChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *ChunkStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks[documentID]), nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.ID == id {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteDocument removes a document and its chunks.
func (s *ChunkStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments returns all documents ordered by creation time, then ID.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDocuments(), nil
}

// ListChunks returns every chunk in corpus order.
func (s *ChunkStore) ListChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, doc := range s.sortedDocuments() {
		out = append(out, s.chunks[doc.ID]...)
	}
	return out, nil
}

// sortedDocuments must be called with the lock held.
func (s *ChunkStore) sortedDocuments() []domain.Document {
	docs := slices.Collect(maps.Values(s.documents))
	slices.SortFunc(docs, func(a, b domain.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return docs
}

package services

import (
	"sync"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// IndexHandle holds the index shared by concurrent searches.
//
// Readers take a snapshot with Current and search it without holding any
// lock; the snapshot is immutable. Writers build a replacement off to the
// side and publish it with Swap, so readers never observe a partially
// rebuilt index.
type IndexHandle struct {
	mu  sync.RWMutex
	idx *domain.Index

	// writeMu serialises Update calls so two writers never derive from the
	// same snapshot.
	writeMu sync.Mutex
}

// NewIndexHandle creates a handle holding idx (which may be nil).
func NewIndexHandle(idx *domain.Index) *IndexHandle {
	return &IndexHandle{idx: idx}
}

// Current returns the published index snapshot, or nil.
func (h *IndexHandle) Current() *domain.Index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx
}

// Swap publishes idx and returns the previous snapshot.
func (h *IndexHandle) Swap(idx *domain.Index) *domain.Index {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.idx
	h.idx = idx
	return prev
}

// Update derives a new index from the current one and publishes it.
// The current index stays visible to readers until fn returns successfully;
// on error nothing is published.
func (h *IndexHandle) Update(fn func(current *domain.Index) (*domain.Index, error)) (*domain.Index, error) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	next, err := fn(h.Current())
	if err != nil {
		return nil, err
	}
	h.Swap(next)
	return next, nil
}

package driven

import "context"

// IndexStore persists the opaque index blob produced by the indexer.
type IndexStore interface {
	// Save atomically replaces the stored blob.
	Save(ctx context.Context, blob []byte) error

	// Load returns the stored blob.
	// Returns domain.ErrNotFound if nothing has been saved.
	Load(ctx context.Context) ([]byte, error)

	// Location describes where the blob lives (a file path for the file store).
	Location() string
}

package domain

import "time"

// Document is one normalised corpus file. Its ID is derived from URI, so
// re-ingesting a changed file replaces the document and all its chunks.
type Document struct {
	ID      string
	URI     string
	Title   string
	Content string
	// Metadata carries normaliser output such as mime_type and format.
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is the unit that gets embedded and retrieved. Its ID is stable
// across rebuilds while the owning document is unchanged.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	// Position is the chunk's ordinal within its document, from 0.
	Position int
	// Metadata holds at least MetaURI and MetaTitle, copied from the
	// document so filters never need a document lookup.
	Metadata map[string]any
}

// Chunk metadata keys.
const (
	MetaURI   = "uri"
	MetaTitle = "title"
)

// MetadataString returns Metadata[key] when it is a string.
func (c Chunk) MetadataString(key string) string {
	s, _ := c.Metadata[key].(string)
	return s
}

// Package ids derives the identifiers used across the corpus.
//
// Document and chunk IDs are name-based (UUIDv5) so re-ingesting the same
// file yields the same IDs; session IDs are random (UUIDv4).
package ids

import (
	"strconv"

	"github.com/google/uuid"
)

// namespace scopes every name-based ID this module generates.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/deep-researcher"))

// Document returns the ID of the document at uri.
func Document(uri string) string {
	return uuid.NewSHA1(namespace, []byte("doc:"+uri)).String()
}

// Chunk returns the ID of the chunk at position within a document. The
// content is part of the name, so an edited chunk gets a new ID.
func Chunk(documentID string, position int, content string) string {
	name := "chunk:" + documentID + ":" + strconv.Itoa(position) + ":" + content
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Session returns a fresh conversation session ID.
func Session() string {
	return uuid.NewString()
}

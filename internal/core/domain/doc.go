// Package domain holds the types every other layer speaks in: documents
// and chunks, the vector index, search results, reasoning steps and
// conversation turns, plus the settings and sentinel errors around them.
//
// Domain sits at the centre of the hexagon and imports only the standard
// library. Ports, services and adapters depend on it, never the reverse.
package domain

package domain

import "time"

// ConversationTurn is one recorded exchange in a session.
// Turns are append-only per session.
type ConversationTurn struct {
	// SessionID identifies the conversation.
	SessionID string

	// Index is the 0-based position of this turn within the session.
	Index int

	// Query is the text the caller asked.
	Query string

	// RewrittenQuery is the query after context from earlier turns was merged in.
	RewrittenQuery string

	// Answer is the final answer returned for this turn.
	Answer string

	// Timestamp is when the turn was recorded.
	Timestamp time.Time
}

// SessionSummary describes a session for listing.
type SessionSummary struct {
	// SessionID identifies the conversation.
	SessionID string

	// Turns is the number of recorded turns.
	Turns int

	// LastActivity is the timestamp of the newest turn.
	LastActivity time.Time
}

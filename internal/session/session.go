// Package session persists conversation history keyed by session id, so a
// chat turn can be seeded with everything said before it in the same session.
// The durable backend is SQLite; a volatile backend exists for tests and for
// memory-only deployments.
package session

import "context"

// Record is one remembered conversational item.
type Record struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the session history contract.
type Store interface {
	// History returns the session's records in append order. An unknown
	// session id yields an empty history, not an error.
	History(ctx context.Context, sessionID string) ([]Record, error)

	// Append adds records to the end of the session's history.
	Append(ctx context.Context, sessionID string, records ...Record) error

	// Close releases the backing resources.
	Close() error
}

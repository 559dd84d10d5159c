// Package messages implements persistence for chat transcript records:
// the entity model, the Postgres and in-memory repositories, and the HTTP
// handlers. Messages are append-only; the chat flow never deletes them.
package messages

import (
	"fmt"
	"time"
)

// Role identifies the author of a message. The set is closed: a value
// outside it is a data-entry error, not a new role.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate checks that the role belongs to the closed set.
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
	}
}

// Message is one chat transcript record. Within an (agent_id, session_id)
// pair, created_at defines the replay order, ties broken by insertion order.
type Message struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommand carries the caller-supplied fields for a new message.
type CreateCommand struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
}

// Filters narrow message list queries.
type Filters struct {
	SessionID *string
}

// Package agents implements persistence and streaming for generated agent
// records: the entity model, the Postgres and in-memory repositories, the
// collection diff streamer, and the HTTP handlers.
package agents

import "time"

// Agent is a generated agent record. ID and CreatedAt are immutable after
// creation; UpdatedAt is refreshed on every successful update. ParentID
// references the owning agent without enforcement; an agent may outlive its
// parent.
type Agent struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Instruction string     `json:"instruction"`
	Tool        *string    `json:"tool"`
	ParentID    *string    `json:"parent_id"`
	LastUpdated *time.Time `json:"last_updated"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateCommand carries the caller-supplied fields for a new agent.
// ID and timestamps are server-generated.
type CreateCommand struct {
	OwnerID     string  `json:"owner_id"`
	Name        string  `json:"name"`
	Instruction string  `json:"instruction"`
	Tool        *string `json:"tool"`
	ParentID    *string `json:"parent_id"`
}

// UpdateCommand carries a partial update. Present fields overwrite the stored
// value; absent fields retain it. UpdatedAt is refreshed regardless.
type UpdateCommand struct {
	Name        *string    `json:"name"`
	Instruction *string    `json:"instruction"`
	Tool        *string    `json:"tool"`
	ParentID    *string    `json:"parent_id"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Filters narrow agent list queries.
type Filters struct {
	OwnerID *string
}

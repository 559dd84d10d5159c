package agents

import (
	"context"

	"github.com/agenthive/agenthive/pkg/pagination"
)

// System is the repository contract for generated agent records. A nil entity
// with a nil error means the record does not exist; absence is a normal
// outcome, never an error.
type System interface {
	// Create persists a new agent with a server-generated id and timestamps
	// and returns the stored entity.
	Create(ctx context.Context, cmd CreateCommand) (*Agent, error)

	// GetByID returns the agent with the given id, or nil if absent.
	GetByID(ctx context.Context, id string) (*Agent, error)

	// List returns agents ordered by creation time ascending, filtered and
	// windowed. The window arrives pre-normalized from the route boundary.
	List(ctx context.Context, filters Filters, page pagination.LimitOffset) ([]Agent, error)

	// Update applies the present fields of cmd and refreshes updated_at.
	// Returns nil without mutation when the id does not exist.
	Update(ctx context.Context, id string, cmd UpdateCommand) (*Agent, error)

	// Delete removes the agent. Returns true if a record was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

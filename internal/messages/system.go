package messages

import (
	"context"

	"github.com/agenthive/agenthive/pkg/pagination"
)

// System is the repository contract for chat transcript records.
type System interface {
	// Create persists a new message with a server-generated id and timestamp
	// and returns the stored entity. The role must belong to the closed set.
	Create(ctx context.Context, cmd CreateCommand) (*Message, error)

	// ListByAgent returns an agent's messages ordered by creation time
	// ascending, optionally narrowed to one session.
	ListByAgent(ctx context.Context, agentID string, filters Filters, page pagination.LimitOffset) ([]Message, error)
}

package messages

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/google/uuid"
)

// memoryRepository is the volatile transcript backend. Semantics under the
// System contract match the Postgres repository.
type memoryRepository struct {
	mu    sync.Mutex
	order []string
	items map[string]Message
}

// NewMemoryRepository creates the in-process messages repository.
func NewMemoryRepository() System {
	return &memoryRepository{
		items: map[string]Message{},
	}
}

func (r *memoryRepository) Create(ctx context.Context, cmd CreateCommand) (*Message, error) {
	if err := cmd.Role.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := Message{
		ID:        uuid.NewString(),
		AgentID:   cmd.AgentID,
		SessionID: cmd.SessionID,
		Role:      cmd.Role,
		Content:   cmd.Content,
		CreatedAt: time.Now().UTC(),
	}

	r.items[m.ID] = m
	r.order = append(r.order, m.ID)
	return &m, nil
}

func (r *memoryRepository) ListByAgent(ctx context.Context, agentID string, filters Filters, page pagination.LimitOffset) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]Message, 0, len(r.order))
	for _, id := range r.order {
		m := r.items[id]
		if m.AgentID != agentID {
			continue
		}
		if filters.SessionID != nil && m.SessionID != *filters.SessionID {
			continue
		}
		msgs = append(msgs, m)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	if page.Offset >= len(msgs) {
		return []Message{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[page.Offset:end], nil
}

package agents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/google/uuid"
)

// memoryRepository is the volatile backend. It is a conformance-tested
// substitute for the Postgres repository, not a degraded mode: observable
// semantics under the System contract are identical. A single mutex stands
// in for the pooled backend's connection-level isolation.
type memoryRepository struct {
	mu    sync.Mutex
	order []string
	items map[string]Agent
}

// NewMemoryRepository creates the in-process agents repository.
func NewMemoryRepository() System {
	return &memoryRepository{
		items: map[string]Agent{},
	}
}

func (r *memoryRepository) Create(ctx context.Context, cmd CreateCommand) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := Agent{
		ID:          uuid.NewString(),
		OwnerID:     cmd.OwnerID,
		Name:        cmd.Name,
		Instruction: cmd.Instruction,
		Tool:        cmd.Tool,
		ParentID:    cmd.ParentID,
		CreatedAt:   time.Now().UTC(),
	}
	a.UpdatedAt = a.CreatedAt

	r.items[a.ID] = a
	r.order = append(r.order, a.ID)
	return &a, nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memoryRepository) List(ctx context.Context, filters Filters, page pagination.LimitOffset) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Walk insertion order so the stable sort breaks created_at ties the
	// same way the append-ordered table does.
	agents := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		a := r.items[id]
		if filters.OwnerID != nil && a.OwnerID != *filters.OwnerID {
			continue
		}
		agents = append(agents, a)
	}

	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].CreatedAt.Before(agents[j].CreatedAt)
	})

	return window(agents, page), nil
}

func (r *memoryRepository) Update(ctx context.Context, id string, cmd UpdateCommand) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return nil, nil
	}

	updated := existing
	if cmd.Name != nil {
		updated.Name = *cmd.Name
	}
	if cmd.Instruction != nil {
		updated.Instruction = *cmd.Instruction
	}
	if cmd.Tool != nil {
		updated.Tool = cmd.Tool
	}
	if cmd.ParentID != nil {
		updated.ParentID = cmd.ParentID
	}
	if cmd.LastUpdated != nil {
		updated.LastUpdated = cmd.LastUpdated
	}
	updated.UpdatedAt = time.Now().UTC()

	r.items[id] = updated
	return &updated, nil
}

func (r *memoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func window(agents []Agent, page pagination.LimitOffset) []Agent {
	if page.Offset >= len(agents) {
		return []Agent{}
	}
	end := page.Offset + page.Limit
	if end > len(agents) {
		end = len(agents)
	}
	return agents[page.Offset:end]
}

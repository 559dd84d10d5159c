package agents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agenthive/agenthive/internal/store"
	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Schema holds the idempotent DDL for the generated agents table. The record
// store runs it on the first data-accessing operation.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS generated_agents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		instruction TEXT NOT NULL,
		tool TEXT,
		parent_id TEXT,
		last_updated TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generated_agents_owner
		ON generated_agents(owner_id)`,
}

const agentColumns = `id, owner_id, name, instruction, tool, parent_id, last_updated, created_at, updated_at`

type repository struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRepository creates the Postgres-backed agents repository over the shared
// record store.
func NewRepository(st *store.Store, logger *slog.Logger) System {
	return &repository{
		store:  st,
		logger: logger.With("system", "agents"),
	}
}

func (r *repository) Create(ctx context.Context, cmd CreateCommand) (*Agent, error) {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

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

	q := `
		INSERT INTO generated_agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = pool.Exec(ctx, q,
		a.ID, a.OwnerID, a.Name, a.Instruction, a.Tool, a.ParentID,
		a.LastUpdated, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, store.WrapErr("create generated agent", err)
	}

	r.logger.Info("agent created", "id", a.ID, "name", a.Name, "owner_id", a.OwnerID)
	return &a, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Agent, error) {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + agentColumns + ` FROM generated_agents WHERE id = $1`

	a, err := scanAgent(pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, store.WrapErr("fetch generated agent by id", err)
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, filters Filters, page pagination.LimitOffset) ([]Agent, error) {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if filters.OwnerID == nil {
		q := `
			SELECT ` + agentColumns + `
			FROM generated_agents
			ORDER BY created_at ASC
			OFFSET $1 LIMIT $2`
		rows, err = pool.Query(ctx, q, page.Offset, page.Limit)
	} else {
		q := `
			SELECT ` + agentColumns + `
			FROM generated_agents
			WHERE owner_id = $1
			ORDER BY created_at ASC
			OFFSET $2 LIMIT $3`
		rows, err = pool.Query(ctx, q, *filters.OwnerID, page.Offset, page.Limit)
	}
	if err != nil {
		return nil, store.WrapErr("list generated agents", err)
	}
	defer rows.Close()

	agents := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, store.WrapErr("scan generated agent", err)
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapErr("list generated agents", err)
	}
	return agents, nil
}

func (r *repository) Update(ctx context.Context, id string, cmd UpdateCommand) (*Agent, error) {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, store.WrapErr("update generated agent", err)
	}
	defer tx.Rollback(ctx)

	q := `SELECT ` + agentColumns + ` FROM generated_agents WHERE id = $1`

	existing, err := scanAgent(tx.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, store.WrapErr("update generated agent", err)
	}

	updated := *existing
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

	uq := `
		UPDATE generated_agents
		SET name = $1,
			instruction = $2,
			tool = $3,
			parent_id = $4,
			last_updated = $5,
			updated_at = $6
		WHERE id = $7`

	_, err = tx.Exec(ctx, uq,
		updated.Name, updated.Instruction, updated.Tool, updated.ParentID,
		updated.LastUpdated, updated.UpdatedAt, id,
	)
	if err != nil {
		return nil, store.WrapErr("update generated agent", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, store.WrapErr("update generated agent", err)
	}

	r.logger.Info("agent updated", "id", id)
	return &updated, nil
}

func (r *repository) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return false, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return false, err
	}

	tag, err := pool.Exec(ctx, `DELETE FROM generated_agents WHERE id = $1`, id)
	if err != nil {
		return false, store.WrapErr("delete generated agent", err)
	}

	deleted := tag.RowsAffected() > 0
	if deleted {
		r.logger.Info("agent deleted", "id", id)
	}
	return deleted, nil
}

func scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.Instruction, &a.Tool, &a.ParentID,
		&a.LastUpdated, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

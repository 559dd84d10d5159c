package messages

import (
	"context"
	"log/slog"
	"time"

	"github.com/agenthive/agenthive/internal/store"
	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Schema holds the idempotent DDL for the transcript table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS generated_agent_messages (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generated_agent_messages_agent_session
		ON generated_agent_messages(agent_id, session_id)`,
}

const messageColumns = `id, agent_id, session_id, role, content, created_at`

type repository struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRepository creates the Postgres-backed messages repository over the
// shared record store.
func NewRepository(st *store.Store, logger *slog.Logger) System {
	return &repository{
		store:  st,
		logger: logger.With("system", "messages"),
	}
}

func (r *repository) Create(ctx context.Context, cmd CreateCommand) (*Message, error) {
	if err := cmd.Role.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	m := Message{
		ID:        uuid.NewString(),
		AgentID:   cmd.AgentID,
		SessionID: cmd.SessionID,
		Role:      cmd.Role,
		Content:   cmd.Content,
		CreatedAt: time.Now().UTC(),
	}

	q := `
		INSERT INTO generated_agent_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = pool.Exec(ctx, q, m.ID, m.AgentID, m.SessionID, string(m.Role), m.Content, m.CreatedAt)
	if err != nil {
		return nil, store.WrapErr("create message", err)
	}

	r.logger.Info("message created", "id", m.ID, "agent_id", m.AgentID, "role", m.Role)
	return &m, nil
}

func (r *repository) ListByAgent(ctx context.Context, agentID string, filters Filters, page pagination.LimitOffset) ([]Message, error) {
	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if filters.SessionID == nil {
		q := `
			SELECT ` + messageColumns + `
			FROM generated_agent_messages
			WHERE agent_id = $1
			ORDER BY created_at ASC
			OFFSET $2 LIMIT $3`
		rows, err = pool.Query(ctx, q, agentID, page.Offset, page.Limit)
	} else {
		q := `
			SELECT ` + messageColumns + `
			FROM generated_agent_messages
			WHERE agent_id = $1 AND session_id = $2
			ORDER BY created_at ASC
			OFFSET $3 LIMIT $4`
		rows, err = pool.Query(ctx, q, agentID, *filters.SessionID, page.Offset, page.Limit)
	}
	if err != nil {
		return nil, store.WrapErr("list messages", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		var role string
		err := rows.Scan(&m.ID, &m.AgentID, &m.SessionID, &role, &m.Content, &m.CreatedAt)
		if err != nil {
			return nil, store.WrapErr("scan message", err)
		}
		m.Role = Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapErr("list messages", err)
	}
	return msgs, nil
}

package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthive/agenthive/internal/messages"
	"github.com/agenthive/agenthive/internal/runtime"
)

// Turn identifies one chat request/response cycle.
type Turn struct {
	AgentID   string
	SessionID string
	UserInput string
}

// Multiplexer merges a generation stream with a turn's side-channel queue
// into one ordered event sequence, then persists the exchanged messages.
type Multiplexer struct {
	messages messages.System
	logger   *slog.Logger
}

// NewMultiplexer creates a multiplexer persisting transcripts through the
// given repository.
func NewMultiplexer(msgs messages.System, logger *slog.Logger) *Multiplexer {
	return &Multiplexer{
		messages: msgs,
		logger:   logger.With("system", "chat"),
	}
}

// Run drives one turn. Before forwarding each primary event it drains all
// currently-queued side events, so side events are delivered no later than
// the primary event that follows their enqueue; within-source order is
// always preserved. After the primary stream ends, remaining side events are
// flushed and the user/assistant messages are persisted. Persistence failure
// is logged and swallowed, never aborting the response.
func (m *Multiplexer) Run(ctx context.Context, turn Turn, queue *Queue, stream runtime.Stream, emit func(Event) error) error {
	for event := range stream.Events() {
		if err := m.drainSide(queue, emit); err != nil {
			return err
		}
		if err := emit(classify(event)); err != nil {
			return err
		}
	}

	final, err := stream.Wait()
	if flushErr := m.drainSide(queue, emit); flushErr != nil {
		return flushErr
	}
	if err != nil {
		return err
	}

	m.persist(ctx, turn, final)
	return nil
}

func (m *Multiplexer) drainSide(queue *Queue, emit func(Event) error) error {
	for _, side := range queue.Drain() {
		if err := emit(side); err != nil {
			return err
		}
	}
	return nil
}

func classify(event runtime.Event) Event {
	switch event.Kind {
	case runtime.KindTurnUpdate:
		return Event{
			Type: TypeAgentUpdated,
			Data: map[string]any{"message": fmt.Sprintf("Agent updated: %s", event.AgentName)},
		}
	case runtime.KindToolCall:
		return Event{
			Type: TypeToolCalled,
			Data: map[string]any{"message": fmt.Sprintf("Tool called: %s", event.ToolName)},
		}
	default:
		return Event{
			Type: TypeText,
			Data: map[string]any{"delta": event.Text},
		}
	}
}

// persist records the turn's user input and final assistant output. The
// stream has already been delivered; a failed write must not fail the turn.
func (m *Multiplexer) persist(ctx context.Context, turn Turn, final string) {
	_, err := m.messages.Create(ctx, messages.CreateCommand{
		AgentID:   turn.AgentID,
		SessionID: turn.SessionID,
		Role:      messages.RoleUser,
		Content:   turn.UserInput,
	})
	if err != nil {
		m.logger.Error("failed to persist user message", "agent_id", turn.AgentID, "error", err)
	}

	_, err = m.messages.Create(ctx, messages.CreateCommand{
		AgentID:   turn.AgentID,
		SessionID: turn.SessionID,
		Role:      messages.RoleAssistant,
		Content:   final,
	})
	if err != nil {
		m.logger.Error("failed to persist assistant message", "agent_id", turn.AgentID, "error", err)
	}
}

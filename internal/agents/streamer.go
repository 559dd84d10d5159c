package agents

import (
	"context"
	"log/slog"
	"time"

	"github.com/agenthive/agenthive/pkg/decode"
	"github.com/agenthive/agenthive/pkg/pagination"
)

// Stream operation kinds.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpUpdate = "update"
)

// trackedFields is the field subset compared between polls. Changes outside
// this set do not produce update events.
var trackedFields = []string{"parent_id", "status", "last_updated", "name", "tool"}

// StreamEvent is one delta frame of the collection diff stream.
type StreamEvent struct {
	Op    string         `json:"op"`
	Agent map[string]any `json:"agent,omitempty"`
	ID    string         `json:"id,omitempty"`
}

// Streamer emits add/update/remove deltas for a filtered agent listing by
// polling the repository on a fixed interval and diffing against the last
// observed snapshot. This is eventually-consistent polling, not a change
// feed: a change that reverts between two polls is invisible.
type Streamer struct {
	sys      System
	filters  Filters
	page     pagination.LimitOffset
	interval time.Duration
	logger   *slog.Logger
}

// NewStreamer creates a diff streamer over the given listing window.
func NewStreamer(sys System, filters Filters, page pagination.LimitOffset, interval time.Duration, logger *slog.Logger) *Streamer {
	return &Streamer{
		sys:      sys,
		filters:  filters,
		page:     page,
		interval: interval,
		logger:   logger.With("system", "agent-stream"),
	}
}

// Run streams deltas to emit until ctx is cancelled or emit reports a write
// failure. A failed repository fetch skips the tick and keeps the stream
// alive; only the client going away terminates it.
func (s *Streamer) Run(ctx context.Context, emit func(StreamEvent) error) error {
	snapshot := map[string]map[string]any{}
	order := []string{}

	initial, err := s.sys.List(ctx, s.filters, s.page)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Degrade to an empty snapshot; the first successful poll emits adds.
		s.logger.Warn("initial fetch failed", "error", err)
	} else {
		for _, a := range initial {
			record, err := agentRecord(a)
			if err != nil {
				s.logger.Warn("serialize agent failed", "id", a.ID, "error", err)
				continue
			}
			if err := emit(StreamEvent{Op: OpAdd, Agent: record}); err != nil {
				return err
			}
			snapshot[a.ID] = record
			order = append(order, a.ID)
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := s.sys.List(ctx, s.filters, s.page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("poll fetch failed", "error", err)
			continue
		}

		next := map[string]map[string]any{}
		nextOrder := make([]string, 0, len(current))
		for _, a := range current {
			record, err := agentRecord(a)
			if err != nil {
				s.logger.Warn("serialize agent failed", "id", a.ID, "error", err)
				continue
			}
			next[a.ID] = record
			nextOrder = append(nextOrder, a.ID)
		}

		for _, id := range nextOrder {
			if _, seen := snapshot[id]; !seen {
				if err := emit(StreamEvent{Op: OpAdd, Agent: next[id]}); err != nil {
					return err
				}
			}
		}

		for _, id := range order {
			if _, present := next[id]; !present {
				if err := emit(StreamEvent{Op: OpRemove, ID: id}); err != nil {
					return err
				}
			}
		}

		for _, id := range nextOrder {
			prev, seen := snapshot[id]
			if !seen {
				continue
			}
			if changed(prev, next[id]) {
				if err := emit(StreamEvent{Op: OpUpdate, Agent: next[id]}); err != nil {
					return err
				}
			}
		}

		// Replace the snapshot unconditionally before the next tick.
		snapshot = next
		order = nextOrder
	}
}

func changed(prev, curr map[string]any) bool {
	for _, field := range trackedFields {
		if prev[field] != curr[field] {
			return true
		}
	}
	return false
}

func agentRecord(a Agent) (map[string]any, error) {
	return decode.ToMap(a)
}

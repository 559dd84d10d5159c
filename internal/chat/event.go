// Package chat implements the interactive generation endpoint: it resolves
// the target agent, runs the generation runtime, and merges the runtime's
// event stream with the tool-progress side channel into one server-sent
// event sequence, persisting the exchanged messages afterward.
package chat

// Event is one item on the merged chat stream, serialized as SSE data.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Primary event types produced from the generation stream.
const (
	TypeText         = "text"
	TypeAgentUpdated = "agent_updated"
	TypeToolCalled   = "tool_called"
)

// Side-channel event types produced by tools while they run. Tool-driven
// agent changes reuse TypeAgentUpdated.
const (
	TypeAgentCreating  = "agent_creating"
	TypeAgentCreated   = "agent_created"
	TypeAgentExecuting = "agent_executing"
	TypeAgentThinking  = "agent_thinking"
	TypeAgentCompleted = "agent_completed"
)

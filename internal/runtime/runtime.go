// Package runtime drives model generation for an agent: it turns an agent
// definition plus conversation history into a streamed sequence of events,
// executing tool calls between model turns. The OpenAI Chat Completions
// implementation lives in openai.go; the contract here is model-agnostic so
// tests can substitute a scripted runtime.
package runtime

import (
	"context"

	"github.com/agenthive/agenthive/internal/session"
)

// EventKind discriminates runtime stream events.
type EventKind string

// Runtime event kinds.
const (
	// KindTextDelta carries an incremental chunk of assistant text.
	KindTextDelta EventKind = "text_delta"

	// KindTurnUpdate announces the agent now producing output.
	KindTurnUpdate EventKind = "turn_update"

	// KindToolCall announces a completed tool invocation request.
	KindToolCall EventKind = "tool_call"
)

// Event is one item in a generation stream. Fields beyond Kind are populated
// per kind: Text for deltas, AgentName for turn updates, ToolName and
// ToolArguments for tool calls.
type Event struct {
	Kind          EventKind
	Text          string
	AgentName     string
	ToolName      string
	ToolArguments string
}

// Stream is a live generation. Events yields items until the run finishes;
// Wait blocks until then and returns the final assistant text.
type Stream interface {
	Events() <-chan Event
	Wait() (string, error)
}

// Tool is a capability the model may invoke mid-generation. Parameters is a
// JSON schema object describing the arguments; Call receives the decoded
// arguments and returns the text handed back to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Call(ctx context.Context, args map[string]any) (string, error)
}

// AgentSpec describes the agent a run executes as.
type AgentSpec struct {
	Name        string
	Instruction string
	Tools       []Tool
}

// Runtime executes agent generations.
type Runtime interface {
	// Run starts a generation seeded with the session history and the user
	// input, returning a live stream. The returned error covers only setup
	// failures; generation errors surface through Stream.Wait.
	Run(ctx context.Context, spec AgentSpec, history []session.Record, input string) (Stream, error)
}

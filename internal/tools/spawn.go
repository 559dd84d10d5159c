package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agenthive/agenthive/internal/agents"
	"github.com/agenthive/agenthive/internal/chat"
	"github.com/agenthive/agenthive/internal/messages"
	rt "github.com/agenthive/agenthive/internal/runtime"
	"github.com/agenthive/agenthive/pkg/decode"
)

// SpawnSpec is the typed configuration for one spawn_agent invocation.
type SpawnSpec struct {
	OwnerID      string `json:"owner_id"`
	OwnerAgentID string `json:"owner_agent_id"`
	Name         string `json:"name"`
	Instruction  string `json:"instruction"`
	Tool         string `json:"tool,omitempty"`
	Task         string `json:"task"`
}

// Validate checks the required fields.
func (s SpawnSpec) Validate() error {
	if s.OwnerID == "" {
		return fmt.Errorf("%w: owner_id is required", ErrInvalidSpec)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if s.Instruction == "" {
		return fmt.Errorf("%w: instruction is required", ErrInvalidSpec)
	}
	if s.Task == "" {
		return fmt.Errorf("%w: task is required", ErrInvalidSpec)
	}
	return nil
}

// spawnTool creates a child agent, runs the task through it, and persists
// both the agent and its transcript. Progress surfaces on the turn's
// side-channel queue while the owner generation is still streaming.
type spawnTool struct {
	registry *Registry
	queue    *chat.Queue
}

func newSpawnTool(registry *Registry, queue *chat.Queue) *spawnTool {
	return &spawnTool{registry: registry, queue: queue}
}

func (t *spawnTool) Name() string { return SpawnToolName }

func (t *spawnTool) Description() string {
	return "Create a new specialized agent and immediately run it on a task. " +
		"Returns the agent's result. Pass the owner id and owner agent id from the conversation."
}

func (t *spawnTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"owner_id":       map[string]any{"type": "string", "description": "Owner id from the conversation"},
			"owner_agent_id": map[string]any{"type": "string", "description": "Owner agent id from the conversation"},
			"name":           map[string]any{"type": "string", "description": "Short name for the new agent"},
			"instruction":    map[string]any{"type": "string", "description": "System instruction describing the agent's specialty"},
			"tool":           map[string]any{"type": "string", "description": "Optional tool name the agent may use"},
			"task":           map[string]any{"type": "string", "description": "Task to run through the new agent"},
		},
		"required": []string{"owner_id", "name", "instruction", "task"},
	}
}

func (t *spawnTool) Call(ctx context.Context, args map[string]any) (string, error) {
	spec, err := decode.FromMap[SpawnSpec](args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	t.push(chat.TypeAgentCreating, fmt.Sprintf("Creating agent %s", spec.Name), map[string]any{
		"name":   spec.Name,
		"status": "creating",
	})

	cmd := agents.CreateCommand{
		OwnerID:     spec.OwnerID,
		Name:        spec.Name,
		Instruction: spec.Instruction,
	}
	if spec.Tool != "" {
		cmd.Tool = &spec.Tool
	}
	if spec.OwnerAgentID != "" {
		cmd.ParentID = &spec.OwnerAgentID
	}

	agent, err := t.registry.agents.Create(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}
	t.push(chat.TypeAgentCreated, fmt.Sprintf("Agent %s created with id %s", agent.Name, agent.ID), map[string]any{
		"agent_id": agent.ID,
		"name":     agent.Name,
		"status":   "created",
	})

	childSpec := rt.AgentSpec{
		Name:        agent.Name,
		Instruction: composeChildInstruction(agent.Instruction),
	}
	if spec.Tool != "" {
		childTool, err := t.registry.Resolve(spec.Tool, t.queue)
		if err != nil {
			return "", err
		}
		childSpec.Tools = []rt.Tool{childTool}
	}

	t.push(chat.TypeAgentExecuting, fmt.Sprintf("Agent %s executing task", agent.Name), map[string]any{
		"agent_id": agent.ID,
		"name":     agent.Name,
		"status":   "executing",
	})

	final, err := t.runChild(ctx, agent.ID, childSpec, spec.Task)
	if err != nil {
		return "", fmt.Errorf("run agent %s: %w", agent.Name, err)
	}

	t.persistTranscript(ctx, agent.ID, spec.Task, final)
	t.touch(ctx, agent)

	t.push(chat.TypeAgentCompleted, fmt.Sprintf("Agent %s completed task", agent.Name), map[string]any{
		"agent_id": agent.ID,
		"name":     agent.Name,
		"status":   "completed",
		"result":   final,
	})
	return final, nil
}

// handoffPreamble frames a spawned agent as a delegate inside a larger run so
// its answer stays scoped to the task it was handed.
const handoffPreamble = "You are one agent in a multi-agent system. Another agent delegated the task below to you. " +
	"Complete it yourself and answer with the result only."

// composeChildInstruction layers the handoff framing and the owner's standing
// instruction around the agent's stored instruction.
func composeChildInstruction(instruction string) string {
	return strings.Join([]string{handoffPreamble, instruction, chat.OwnerInstruction}, "\n")
}

// runChild drives the child generation, mirroring each intermediate text delta
// onto the side channel so clients watch the child think in real time.
func (t *spawnTool) runChild(ctx context.Context, agentID string, spec rt.AgentSpec, task string) (string, error) {
	stream, err := t.registry.runtime.Run(ctx, spec, nil, task)
	if err != nil {
		return "", err
	}

	for event := range stream.Events() {
		if event.Kind == rt.KindTextDelta {
			t.push(chat.TypeAgentThinking, fmt.Sprintf("Agent %s thinking", spec.Name), map[string]any{
				"agent_id": agentID,
				"name":     spec.Name,
				"status":   "thinking",
				"delta":    event.Text,
			})
		}
	}
	return stream.Wait()
}

// persistTranscript records the child's exchange. Failure is logged and
// swallowed; the owner's turn already holds the result.
func (t *spawnTool) persistTranscript(ctx context.Context, agentID, task, final string) {
	sessionID := fmt.Sprintf("spawn-%s", agentID)

	_, err := t.registry.messages.Create(ctx, messages.CreateCommand{
		AgentID:   agentID,
		SessionID: sessionID,
		Role:      messages.RoleUser,
		Content:   task,
	})
	if err != nil {
		t.registry.logger.Error("failed to persist spawn task", "agent_id", agentID, "error", err)
	}

	_, err = t.registry.messages.Create(ctx, messages.CreateCommand{
		AgentID:   agentID,
		SessionID: sessionID,
		Role:      messages.RoleAssistant,
		Content:   final,
	})
	if err != nil {
		t.registry.logger.Error("failed to persist spawn result", "agent_id", agentID, "error", err)
	}
}

// touch advances the agent's last_updated marker so collection diff streams
// pick up the completed run.
func (t *spawnTool) touch(ctx context.Context, agent *agents.Agent) {
	now := time.Now().UTC()
	_, err := t.registry.agents.Update(ctx, agent.ID, agents.UpdateCommand{LastUpdated: &now})
	if err != nil {
		t.registry.logger.Error("failed to touch agent", "agent_id", agent.ID, "error", err)
		return
	}
	t.push(chat.TypeAgentUpdated, fmt.Sprintf("Agent %s updated", agent.Name), map[string]any{
		"agent_id": agent.ID,
		"name":     agent.Name,
		"status":   "updated",
	})
}

// push queues one lifecycle event carrying a prose message plus the
// structured fields clients key on.
func (t *spawnTool) push(eventType, message string, fields map[string]any) {
	data := map[string]any{"message": message}
	for k, v := range fields {
		data[k] = v
	}
	t.queue.Put(chat.Event{Type: eventType, Data: data})
}

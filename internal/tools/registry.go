// Package tools implements the capabilities the generation runtime can
// invoke: spawning and running child agents, splitting a task into subtasks,
// and sending mail. Tools are resolved by name through the Registry and are
// bound to the requesting turn's side-channel queue, so progress events from
// concurrent turns never mix.
package tools

import (
	"fmt"
	"log/slog"

	"github.com/agenthive/agenthive/internal/agents"
	"github.com/agenthive/agenthive/internal/chat"
	"github.com/agenthive/agenthive/internal/config"
	"github.com/agenthive/agenthive/internal/messages"
	rt "github.com/agenthive/agenthive/internal/runtime"
)

// Tool names.
const (
	SpawnToolName = "spawn_agent"
	SplitToolName = "split_task"
	MailToolName  = "send_mail"
)

// Registry maps tool names to implementations.
type Registry struct {
	agents   agents.System
	messages messages.System
	runtime  rt.Runtime
	mail     config.MailConfig
	logger   *slog.Logger
}

// NewRegistry creates the tool registry over the shared repositories and
// generation runtime.
func NewRegistry(
	agentSys agents.System,
	msgSys messages.System,
	runtime rt.Runtime,
	mail config.MailConfig,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		agents:   agentSys,
		messages: msgSys,
		runtime:  runtime,
		mail:     mail,
		logger:   logger.With("system", "tools"),
	}
}

// Resolve returns the named tool bound to the turn's side-channel queue.
// Unknown names fail with an error wrapping chat.ErrUnknownTool.
func (r *Registry) Resolve(name string, queue *chat.Queue) (rt.Tool, error) {
	switch name {
	case SpawnToolName:
		return newSpawnTool(r, queue), nil
	case SplitToolName:
		return newSplitTool(r.runtime), nil
	case MailToolName:
		if !r.mail.Enabled {
			return nil, fmt.Errorf("%w: %q (mail is disabled)", chat.ErrUnknownTool, name)
		}
		return newMailTool(r.mail, r.logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", chat.ErrUnknownTool, name)
	}
}

// OwnerTools returns the owner agent's tool set bound to the turn's queue.
func (r *Registry) OwnerTools(queue *chat.Queue) []rt.Tool {
	owner := []rt.Tool{
		newSpawnTool(r, queue),
		newSplitTool(r.runtime),
	}
	if r.mail.Enabled {
		owner = append(owner, newMailTool(r.mail, r.logger))
	}
	return owner
}

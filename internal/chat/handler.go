package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/agenthive/agenthive/internal/agents"
	"github.com/agenthive/agenthive/internal/routes"
	rt "github.com/agenthive/agenthive/internal/runtime"
	"github.com/agenthive/agenthive/internal/session"
	"github.com/agenthive/agenthive/pkg/handlers"
	"github.com/agenthive/agenthive/pkg/sse"
)

// ErrUnknownTool indicates an agent definition referencing a tool name the
// registry does not know.
var ErrUnknownTool = errors.New("unknown tool")

// ToolResolver maps a tool name to an implementation bound to the turn's
// side-channel queue. Unknown names fail with an error wrapping
// ErrUnknownTool.
type ToolResolver func(name string, queue *Queue) (rt.Tool, error)

// OwnerToolBuilder produces the owner agent's tool set bound to the turn's
// side-channel queue.
type OwnerToolBuilder func(queue *Queue) []rt.Tool

// Request is the chat request body.
type Request struct {
	OwnerID      string `json:"owner_id"`
	OwnerAgentID string `json:"owner_agent_id"`
	SessionID    string `json:"session_id"`
	UserInput    string `json:"user_input"`
}

// OwnerInstruction steers the owner agent, whose job is delegating work by
// spawning and running child agents. Spawned children carry it as a suffix on
// their own instruction so delegated work stays aligned with the owner's role.
const OwnerInstruction = `You are the owner agent. You manage a hive of generated agents on behalf of one owner.
When the user asks for something a specialist could do better, use your tools to create agents and delegate the work to them.
Always report back what the delegated agents produced.`

// Handler serves the chat endpoint.
type Handler struct {
	agents      agents.System
	runtime     rt.Runtime
	sessions    session.Store
	multiplexer *Multiplexer
	resolveTool ToolResolver
	ownerTools  OwnerToolBuilder
	logger      *slog.Logger
	maxBody     int64
}

// NewHandler creates the chat HTTP handler. The session store is the single
// injected instance owned by the application lifecycle.
func NewHandler(
	agentSys agents.System,
	runtime rt.Runtime,
	sessions session.Store,
	multiplexer *Multiplexer,
	resolveTool ToolResolver,
	ownerTools OwnerToolBuilder,
	logger *slog.Logger,
	maxBody int64,
) *Handler {
	return &Handler{
		agents:      agentSys,
		runtime:     runtime,
		sessions:    sessions,
		multiplexer: multiplexer,
		resolveTool: resolveTool,
		ownerTools:  ownerTools,
		logger:      logger.With("system", "chat"),
		maxBody:     maxBody,
	}
}

// Routes returns the route group for the chat endpoint.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/generated_agents/{id}/chat", Handler: h.Chat},
		},
	}
}

// Chat handles POST /agents/generated_agents/{id}/chat. The response is a
// server-sent event stream that ends when the generation run completes.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeBody[Request](r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	agentID := r.PathValue("id")
	queue := NewQueue()

	spec, input, err := h.resolveRun(r, agentID, req, queue)
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	history, err := h.sessions.History(r.Context(), req.SessionID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	stream, err := h.runtime.Run(r.Context(), spec, history, input)
	if err != nil {
		h.logger.Error("generation start failed", "agent_id", agentID, "error", err)
		return
	}

	turn := Turn{AgentID: agentID, SessionID: req.SessionID, UserInput: req.UserInput}
	err = h.multiplexer.Run(r.Context(), turn, queue, stream, func(event Event) error {
		return writer.WriteData(event)
	})
	if err != nil {
		if r.Context().Err() == nil {
			h.logger.Error("chat turn failed", "agent_id", agentID, "error", err)
		}
		return
	}

	final, _ := stream.Wait()
	err = h.sessions.Append(r.Context(), req.SessionID,
		session.Record{Role: "user", Content: input},
		session.Record{Role: "assistant", Content: final},
	)
	if err != nil {
		h.logger.Error("failed to append session history", "session_id", req.SessionID, "error", err)
	}
}

// resolveRun decides which agent the turn executes as. A known generated
// agent runs with its own definition, its own tool first, and the owner tool
// set appended so it can delegate further; an unknown id falls back to the
// owner agent with the spawn tool set and the owner-framed input.
func (h *Handler) resolveRun(r *http.Request, agentID string, req Request, queue *Queue) (rt.AgentSpec, string, error) {
	agent, err := h.agents.GetByID(r.Context(), agentID)
	if err != nil {
		return rt.AgentSpec{}, "", err
	}

	if agent == nil {
		spec := rt.AgentSpec{
			Name:        "owner",
			Instruction: OwnerInstruction,
			Tools:       h.ownerTools(queue),
		}
		input := fmt.Sprintf("Owner ID: %s, Owner Agent ID: %s, User Input: %s",
			req.OwnerID, req.OwnerAgentID, req.UserInput)
		return spec, input, nil
	}

	spec := rt.AgentSpec{
		Name:        agent.Name,
		Instruction: agent.Instruction,
	}
	if agent.Tool != nil && *agent.Tool != "" {
		tool, err := h.resolveTool(*agent.Tool, queue)
		if err != nil {
			return rt.AgentSpec{}, "", err
		}
		spec.Tools = []rt.Tool{tool}
	}
	spec.Tools = append(spec.Tools, h.ownerTools(queue)...)
	return spec, req.UserInput, nil
}

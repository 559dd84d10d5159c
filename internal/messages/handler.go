package messages

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/agenthive/agenthive/internal/routes"
	"github.com/agenthive/agenthive/pkg/handlers"
	"github.com/agenthive/agenthive/pkg/pagination"
)

// Handler provides HTTP handlers for chat transcript records.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	maxBody    int64
}

// NewHandler creates the messages HTTP handler.
func NewHandler(sys System, logger *slog.Logger, pag pagination.Config, maxBody int64) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger,
		pagination: pag,
		maxBody:    maxBody,
	}
}

// Routes returns the route group for message endpoints. Messages hang off
// the agent resource they belong to.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/generated_agents/{id}/messages", Handler: h.ListByAgent},
			{Method: "POST", Pattern: "/generated_agents/{id}/messages", Handler: h.Create},
		},
	}
}

// ListByAgent handles GET /agents/generated_agents/{id}/messages.
func (h *Handler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := pagination.FromQuery(query, h.pagination)

	var filters Filters
	if session := query.Get("session_id"); session != "" {
		filters.SessionID = &session
	}

	msgs, err := h.sys.ListByAgent(r.Context(), r.PathValue("id"), filters, page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, msgs)
}

// Create handles POST /agents/generated_agents/{id}/messages.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	cmd, err := handlers.DecodeBody[CreateCommand](r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	cmd.AgentID = r.PathValue("id")

	msg, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, msg)
}

package agents

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agenthive/agenthive/internal/config"
	"github.com/agenthive/agenthive/internal/routes"
	"github.com/agenthive/agenthive/pkg/handlers"
	"github.com/agenthive/agenthive/pkg/pagination"
	"github.com/agenthive/agenthive/pkg/sse"
)

// Handler provides HTTP handlers for generated agent retrieval and for the
// collection diff stream.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	stream     config.StreamConfig
}

// NewHandler creates the agents HTTP handler.
func NewHandler(sys System, logger *slog.Logger, pag pagination.Config, stream config.StreamConfig) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger,
		pagination: pag,
		stream:     stream,
	}
}

// Routes returns the route group for agent endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/generated_agents", Handler: h.List},
			{Method: "GET", Pattern: "/generated_agents/{id}", Handler: h.GetByID},
		},
	}
}

// GetByID handles GET /agents/generated_agents/{id}.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	agent, err := h.sys.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if agent == nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, agent)
}

// List handles GET /agents/generated_agents. With stream=true it switches to
// a server-sent diff stream that is held open until the client disconnects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := pagination.FromQuery(query, h.pagination)
	filters := filtersFromQuery(query)

	if stream, _ := strconv.ParseBool(query.Get("stream")); stream {
		h.streamList(w, r, filters, page)
		return
	}

	agents, err := h.sys.List(r.Context(), filters, page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, agents)
}

func (h *Handler) streamList(w http.ResponseWriter, r *http.Request, filters Filters, page pagination.LimitOffset) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	streamer := NewStreamer(h.sys, filters, page, h.stream.PollIntervalDuration(), h.logger)

	err = streamer.Run(r.Context(), func(event StreamEvent) error {
		return writer.WriteData(event)
	})
	if err != nil && r.Context().Err() == nil {
		h.logger.Warn("diff stream ended", "error", err)
	}
}

func filtersFromQuery(query url.Values) Filters {
	var filters Filters
	if owner := query.Get("owner_id"); owner != "" {
		filters.OwnerID = &owner
	}
	return filters
}

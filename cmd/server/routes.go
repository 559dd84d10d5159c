package main

import (
	"net/http"

	"github.com/agenthive/agenthive/internal/routes"
	"github.com/agenthive/agenthive/pkg/handlers"
)

// registerRoutes configures the standalone service routes.
func registerRoutes(r *routes.Registrar) {
	r.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/health/{$}",
		Handler: handleHealthCheck,
	})
}

// handleHealthCheck responds with OK status for health monitoring.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

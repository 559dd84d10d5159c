// Package routes provides HTTP route registration and handler building.
package routes

import (
	"log/slog"
	"net/http"
)

// Route represents an HTTP route with method, pattern, and handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group represents a collection of routes with a common prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// Registrar collects routes and groups and builds the service mux.
type Registrar struct {
	routes []Route
	groups []Group
	logger *slog.Logger
}

// New creates a route registrar with the specified logger.
func New(logger *slog.Logger) *Registrar {
	return &Registrar{logger: logger}
}

// RegisterRoute adds a standalone route.
func (r *Registrar) RegisterRoute(route Route) {
	r.routes = append(r.routes, route)
}

// RegisterGroup adds a route group.
func (r *Registrar) RegisterGroup(group Group) {
	r.groups = append(r.groups, group)
}

// Build constructs an http.Handler from all registered routes and groups.
func (r *Registrar) Build() http.Handler {
	mux := http.NewServeMux()

	for _, route := range r.routes {
		r.handle(mux, route.Method, route.Pattern, route.Handler)
	}
	for _, group := range r.groups {
		for _, route := range group.Routes {
			r.handle(mux, route.Method, group.Prefix+route.Pattern, route.Handler)
		}
	}

	return mux
}

func (r *Registrar) handle(mux *http.ServeMux, method, pattern string, handler http.HandlerFunc) {
	mux.HandleFunc(method+" "+pattern, handler)
	r.logger.Debug("route registered", "method", method, "pattern", pattern)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/agenthive/agenthive/internal/agents"
	"github.com/agenthive/agenthive/internal/chat"
	"github.com/agenthive/agenthive/internal/config"
	"github.com/agenthive/agenthive/internal/messages"
	"github.com/agenthive/agenthive/internal/routes"
	rt "github.com/agenthive/agenthive/internal/runtime"
	"github.com/agenthive/agenthive/internal/session"
	"github.com/agenthive/agenthive/internal/store"
	"github.com/agenthive/agenthive/internal/tools"
	"github.com/agenthive/agenthive/pkg/logging"
	"github.com/agenthive/agenthive/pkg/middleware"
)

// Service coordinates the lifecycle of all subsystems.
type Service struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	sessions session.Store
	server   *http.Server
}

// NewService creates and wires the service. The session store is constructed
// once here and injected everywhere it is needed.
func NewService(cfg *config.Config) (*Service, error) {
	logger := logging.New(&cfg.Logging)

	var (
		st       *store.Store
		agentSys agents.System
		msgSys   messages.System
	)
	if cfg.Database.UseMemory {
		agentSys = agents.NewMemoryRepository()
		msgSys = messages.NewMemoryRepository()
		logger.Info("using in-memory repositories")
	} else {
		schema := append(append([]string{}, agents.Schema...), messages.Schema...)
		st = store.New(&cfg.Database, schema, logger)
		agentSys = agents.NewRepository(st, logger)
		msgSys = messages.NewRepository(st, logger)
	}

	var sessions session.Store
	if cfg.Database.UseMemory {
		sessions = session.NewMemory()
	} else {
		sqlite, err := session.NewSQLite(cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		sessions = sqlite
	}

	runtime := rt.NewOpenAI(&cfg.Chat, logger)
	registry := tools.NewRegistry(agentSys, msgSys, runtime, cfg.Mail, logger)
	multiplexer := chat.NewMultiplexer(msgSys, logger)

	maxBody := cfg.Server.MaxBodySizeBytes()
	agentHandler := agents.NewHandler(agentSys, logger, cfg.Pagination, cfg.Stream)
	messageHandler := messages.NewHandler(msgSys, logger, cfg.Pagination, maxBody)
	chatHandler := chat.NewHandler(
		agentSys, runtime, sessions, multiplexer,
		registry.Resolve, registry.OwnerTools,
		logger, maxBody,
	)

	registrar := routes.New(logger)
	registerRoutes(registrar)
	registrar.RegisterGroup(agentHandler.Routes())
	registrar.RegisterGroup(messageHandler.Routes())
	registrar.RegisterGroup(chatHandler.Routes())

	handler := middleware.CORS(cfg.CORS.Options())(registrar.Build())

	server := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeoutDuration(),
		IdleTimeout: cfg.Server.IdleTimeoutDuration(),
		// WriteTimeout stays zero: the chat and diff streams hold their
		// connections open indefinitely.
	}

	return &Service{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		sessions: sessions,
		server:   server,
	}, nil
}

// Start begins serving and returns once the listener is running.
func (s *Service) Start() error {
	s.logger.Info("starting service", "addr", s.server.Addr)

	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()

	s.logger.Info("service started")
	return nil
}

// Shutdown gracefully stops the server and releases owned resources within
// the context deadline.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating shutdown")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.store != nil {
		s.store.Close()
	}
	if err := s.sessions.Close(); err != nil {
		s.logger.Error("session store close failed", "error", err)
	}

	s.logger.Info("all subsystems shut down")
	return nil
}

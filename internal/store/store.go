// Package store implements the pooled record store shared by the entity
// repositories. The pool is created lazily on first use, retried with
// exponential backoff, and owned exclusively by the Store instance;
// repositories reach it only through Acquire and EnsureSchema.
package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agenthive/agenthive/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// poolAttempts is the number of pool creation attempts before the failure
// surfaces. Attempt n waits base<<(n-1) before retrying.
const poolAttempts = 3

// Store owns the physical connection pool and the schema lifecycle.
// Pool creation and schema creation are guarded by two distinct mutexes so
// concurrent first callers share a single initialization of each.
type Store struct {
	cfg    *config.DatabaseConfig
	schema []string
	logger *slog.Logger

	poolMu sync.Mutex
	pool   atomic.Pointer[pgxpool.Pool]

	schemaMu    sync.Mutex
	schemaReady atomic.Bool

	// Seams for initialization tests. Production paths never override these.
	connect    func(ctx context.Context) (*pgxpool.Pool, error)
	execSchema func(ctx context.Context, pool *pgxpool.Pool, stmt string) error
	closePool  func(pool *pgxpool.Pool)
}

// New creates a record store for the given configuration. The schema
// statements must all be idempotent ("create ... if not exists"); they run
// once per store lifetime, on the first data-accessing operation.
func New(cfg *config.DatabaseConfig, schema []string, logger *slog.Logger) *Store {
	s := &Store{
		cfg:    cfg,
		schema: schema,
		logger: logger.With("system", "store"),
	}
	s.connect = s.defaultConnect
	s.execSchema = defaultExecSchema
	s.closePool = func(pool *pgxpool.Pool) { pool.Close() }
	return s
}

// Acquire returns the connection pool, creating it on first use. The fast
// path is a single atomic load; slow-path callers serialize on the pool
// mutex, re-check under it, and share the one resulting pool. Creation is
// attempted up to three times with exponential backoff before the wrapped
// failure surfaces. Cancellation during the backoff wait propagates unwrapped.
func (s *Store) Acquire(ctx context.Context) (*pgxpool.Pool, error) {
	if pool := s.pool.Load(); pool != nil {
		return pool, nil
	}

	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	if pool := s.pool.Load(); pool != nil {
		return pool, nil
	}

	base := s.cfg.RetryBaseDelayDuration()

	var lastErr error
	for attempt := range poolAttempts {
		if attempt > 0 {
			delay := base << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		pool, err := s.connect(ctx)
		if err != nil {
			lastErr = err
			s.logger.Warn("pool creation failed", "attempt", attempt+1, "error", err)
			continue
		}

		s.pool.Store(pool)
		s.logger.Info("connection pool ready", "min_conns", s.cfg.MinConns, "max_conns", s.cfg.MaxConns)
		return pool, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, WrapErr("create connection pool", lastErr)
}

// EnsureSchema runs the registered schema statements once per store lifetime.
// It is safe to call from multiple repositories concurrently: the first
// caller pays the initialization cost, later callers observe a fast-path
// flag check. The schema mutex is distinct from the pool mutex.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.schemaReady.Load() {
		return nil
	}

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady.Load() {
		return nil
	}

	pool, err := s.Acquire(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range s.schema {
		if err := s.execSchema(ctx, pool, stmt); err != nil {
			return WrapErr("ensure schema", err)
		}
	}

	s.schemaReady.Store(true)
	s.logger.Info("schema ready", "statements", len(s.schema))
	return nil
}

// Close releases the pool and resets the store so a later Acquire
// re-initializes cleanly. Calling Close on a closed store is a no-op.
func (s *Store) Close() {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	if pool := s.pool.Swap(nil); pool != nil {
		s.closePool(pool)
		s.logger.Info("connection pool closed")
	}
	s.schemaReady.Store(false)
}

func (s *Store) defaultConnect(ctx context.Context) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(s.cfg.URL)
	if err != nil {
		return nil, err
	}
	poolCfg.MinConns = int32(s.cfg.MinConns)
	poolCfg.MaxConns = int32(s.cfg.MaxConns)

	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnTimeoutDuration())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func defaultExecSchema(ctx context.Context, pool *pgxpool.Pool, stmt string) error {
	_, err := pool.Exec(ctx, stmt)
	return err
}

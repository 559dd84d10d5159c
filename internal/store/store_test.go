package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agenthive/agenthive/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		URL:            "postgres://localhost/test",
		MinConns:       2,
		MaxConns:       10,
		ConnTimeout:    "5s",
		RetryBaseDelay: "1ms",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(schema []string) *Store {
	s := New(testConfig(), schema, testLogger())
	s.closePool = func(pool *pgxpool.Pool) {}
	return s
}

func TestAcquire_ConcurrentFirstCallers_SingleCreation(t *testing.T) {
	s := newTestStore(nil)

	var creations atomic.Int32
	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		creations.Add(1)
		return &pgxpool.Pool{}, nil
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := creations.Load(); got != 1 {
		t.Errorf("pool creations = %d, want 1", got)
	}
}

func TestAcquire_RetriesThenSucceeds(t *testing.T) {
	s := newTestStore(nil)

	var attempts atomic.Int32
	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		return &pgxpool.Pool{}, nil
	}

	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("connect attempts = %d, want 3", got)
	}
}

func TestAcquire_ExhaustedRetries_WrapsError(t *testing.T) {
	s := newTestStore(nil)

	cause := errors.New("connection refused")
	var attempts atomic.Int32
	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		attempts.Add(1)
		return nil, cause
	}

	_, err := s.Acquire(context.Background())
	if err == nil {
		t.Fatal("Acquire() succeeded, want error")
	}

	if got := attempts.Load(); got != poolAttempts {
		t.Errorf("connect attempts = %d, want %d", got, poolAttempts)
	}

	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("error = %T, want *RepositoryError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error does not preserve the cause")
	}
}

func TestAcquire_CancellationPassesThroughUnwrapped(t *testing.T) {
	s := newTestStore(nil)
	s.cfg.RetryBaseDelay = "1h" // backoff long enough that cancel wins

	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		t.Error("cancellation was wrapped into a RepositoryError")
	}
}

func TestEnsureSchema_RunsOncePerLifetime(t *testing.T) {
	schema := []string{"CREATE TABLE IF NOT EXISTS a (id TEXT)", "CREATE INDEX IF NOT EXISTS i ON a(id)"}
	s := newTestStore(schema)
	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		return &pgxpool.Pool{}, nil
	}

	var executed atomic.Int32
	s.execSchema = func(ctx context.Context, pool *pgxpool.Pool, stmt string) error {
		executed.Add(1)
		return nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.EnsureSchema(context.Background()); err != nil {
				t.Errorf("EnsureSchema() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := executed.Load(); got != int32(len(schema)) {
		t.Errorf("schema statements executed = %d, want %d", got, len(schema))
	}

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() fast path failed: %v", err)
	}
	if got := executed.Load(); got != int32(len(schema)) {
		t.Errorf("fast path re-executed schema: %d statements", got)
	}
}

func TestEnsureSchema_FailureRetriesOnNextCall(t *testing.T) {
	s := newTestStore([]string{"CREATE TABLE IF NOT EXISTS a (id TEXT)"})
	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		return &pgxpool.Pool{}, nil
	}

	fail := true
	s.execSchema = func(ctx context.Context, pool *pgxpool.Pool, stmt string) error {
		if fail {
			return errors.New("syntax error")
		}
		return nil
	}

	if err := s.EnsureSchema(context.Background()); err == nil {
		t.Fatal("EnsureSchema() succeeded, want error")
	}

	fail = false
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() retry failed: %v", err)
	}
}

func TestClose_ResetsForReacquire(t *testing.T) {
	s := newTestStore(nil)

	var creations atomic.Int32
	s.connect = func(ctx context.Context) (*pgxpool.Pool, error) {
		creations.Add(1)
		return &pgxpool.Pool{}, nil
	}

	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	s.Close()
	s.Close() // closed store is a no-op

	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() after Close failed: %v", err)
	}
	if got := creations.Load(); got != 2 {
		t.Errorf("pool creations = %d, want 2", got)
	}
}

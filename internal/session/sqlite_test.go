package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLite_AppendAndHistoryRoundTrip(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	err := store.Append(ctx, "s1",
		Record{Role: "user", Content: "hello"},
		Record{Role: "assistant", Content: "hi there"},
	)
	require.NoError(t, err)

	err = store.Append(ctx, "s1", Record{Role: "user", Content: "follow up"})
	require.NoError(t, err)

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, Record{Role: "user", Content: "hello"}, history[0])
	assert.Equal(t, Record{Role: "assistant", Content: "hi there"}, history[1])
	assert.Equal(t, Record{Role: "user", Content: "follow up"}, history[2])
}

func TestSQLite_SessionsAreIsolated(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", Record{Role: "user", Content: "in s1"}))
	require.NoError(t, store.Append(ctx, "s2", Record{Role: "user", Content: "in s2"}))

	history, err := store.History(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "in s2", history[0].Content)
}

func TestSQLite_UnknownSessionYieldsEmptyHistory(t *testing.T) {
	store := newTestSQLite(t)

	history, err := store.History(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLite_EmptyAppendIsNoOp(t *testing.T) {
	store := newTestSQLite(t)

	require.NoError(t, store.Append(context.Background(), "s1"))

	history, err := store.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemory_MatchesStoreContract(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", Record{Role: "user", Content: "hello"}))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	// A caller mutating the returned slice must not corrupt the store.
	history[0].Content = "mutated"
	again, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again[0].Content)

	assert.NoError(t, store.Close())
}

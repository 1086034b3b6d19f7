package memory

import (
	"context"
	"testing"
	"time"

	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/valueobjects"
	pkgerrors "humaneval/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, name string) *aggregates.Session {
	t.Helper()
	raterID, err := valueobjects.NewRaterID(name)
	require.NoError(t, err)
	s, err := aggregates.NewSession(raterID, []string{"A", "B", "C", "D"}, 3, nil)
	require.NoError(t, err)
	return s
}

func TestSessionStore_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	defer store.Close()

	session := newSession(t, "alice")
	stored, created, err := store.Create(ctx, session)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Same(t, session, stored)

	got, err := store.Get(ctx, session.RaterID())
	require.NoError(t, err)
	assert.Equal(t, session.Subset(), got.Subset())
	assert.NotSame(t, session, got, "Get returns a snapshot")
}

func TestSessionStore_CreateKeepsFirstSession(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	defer store.Close()

	first := newSession(t, "alice")
	_, _, err := store.Create(ctx, first)
	require.NoError(t, err)

	stored, created, err := store.Create(ctx, newSession(t, "alice"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Subset(), stored.Subset())
}

func TestSessionStore_GetUnknownRater(t *testing.T) {
	store := NewSessionStore(0)
	defer store.Close()
	raterID, _ := valueobjects.NewRaterID("nobody")

	_, err := store.Get(context.Background(), raterID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionNotFound))
}

func TestSessionStore_SaveCursorComparesAndSwaps(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	defer store.Close()

	session := newSession(t, "alice")
	_, _, err := store.Create(ctx, session)
	require.NoError(t, err)

	require.NoError(t, session.Advance())
	require.NoError(t, store.SaveCursor(ctx, session, 0))

	// replaying the same step is rejected
	err = store.SaveCursor(ctx, session, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCursorConflict))

	got, _ := store.Get(ctx, session.RaterID())
	assert.Equal(t, 1, got.Cursor())
}

func TestSessionStore_SaveCursorUnknownRater(t *testing.T) {
	store := NewSessionStore(0)
	defer store.Close()

	err := store.SaveCursor(context.Background(), newSession(t, "ghost"), 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionNotFound))
}

func TestSessionStore_ExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)
	defer store.Close()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	session := newSession(t, "alice")
	_, _, err := store.Create(ctx, session)
	require.NoError(t, err)

	clock = clock.Add(30 * time.Minute)
	_, err = store.Get(ctx, session.RaterID())
	require.NoError(t, err, "activity within the TTL keeps the session")

	clock = clock.Add(61 * time.Minute)
	_, err = store.Get(ctx, session.RaterID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionNotFound))

	_, created, err := store.Create(ctx, newSession(t, "alice"))
	require.NoError(t, err)
	assert.True(t, created, "an evicted rater gets a fresh draw")
}

func TestCleanupInterval(t *testing.T) {
	assert.Equal(t, time.Second, cleanupInterval(time.Second))
	assert.Equal(t, 15*time.Second, cleanupInterval(time.Minute))
	assert.Equal(t, time.Minute, cleanupInterval(24*time.Hour))
}

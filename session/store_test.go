package session

import (
	"context"
	"testing"
	"time"

	"bitwise74/files-api/internal/testsupport/redisstub"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *redisstub.Server) {
	t.Helper()

	stub, err := redisstub.Start()
	require.NoError(t, err)
	t.Cleanup(func() { stub.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: stub.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStore(rdb), stub
}

func TestCreateThenResolve(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "u9")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u9", userID)
}

func TestTokensAreUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, "u1")
	require.NoError(t, err)
	b, err := store.Create(ctx, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestResolveUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Resolve(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolveAfterExpiry(t *testing.T) {
	store, stub := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "u9")
	require.NoError(t, err)

	stub.FastForward(TTL + time.Minute)

	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))

	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	// Revoking again is not an error
	assert.NoError(t, store.Revoke(ctx, token))
}

func TestOutageIsNotNoSession(t *testing.T) {
	store, stub := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, stub.Close())

	// A dead backend must surface as a store error, not as an
	// invalid token
	_, err = store.Resolve(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)

	assert.Error(t, store.Revoke(ctx, token))
	assert.False(t, store.Alive(ctx))
}

func TestAlive(t *testing.T) {
	store, _ := newTestStore(t)

	assert.True(t, store.Alive(context.Background()))
}

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager returns a manager whose pools never dial: pgxpool.New does
// not connect until a connection is acquired.
func newTestManager(t *testing.T) (*Manager, *int) {
	t.Helper()
	opened := 0
	m := NewManager(Settings{ConnectionString: "postgres://u:p@127.0.0.1:1/carepilot"}, 10, 0, zerolog.Nop())
	m.open = func(ctx context.Context, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error) {
		opened++
		return pgxpool.New(ctx, dsn)
	}
	m.ping = func(context.Context, *pgxpool.Pool) error { return nil }
	t.Cleanup(m.Close)
	return m, &opened
}

func TestManager_MemoizesUntilClose(t *testing.T) {
	m, opened := newTestManager(t)
	ctx := context.Background()

	first, err := m.Pool(ctx)
	require.NoError(t, err)
	second, err := m.Pool(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *opened)

	m.Close()
	assert.Nil(t, m.Current())

	third, err := m.Pool(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, *opened)
}

func TestManager_RecreatesDeadPool(t *testing.T) {
	m, opened := newTestManager(t)
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	first, err := m.Pool(ctx)
	require.NoError(t, err)

	// Within the health interval the pool is returned without a ping.
	pinged := false
	m.ping = func(context.Context, *pgxpool.Pool) error { pinged = true; return errors.New("connection reset") }
	_, err = m.Pool(ctx)
	require.NoError(t, err)
	assert.False(t, pinged)

	now = now.Add(time.Minute)
	second, err := m.Pool(ctx)
	require.NoError(t, err)
	assert.True(t, pinged)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, *opened)
}

func TestManager_MissingCredentials(t *testing.T) {
	m := NewManager(Settings{}, 10, 0, zerolog.Nop())
	called := false
	m.open = func(context.Context, string, int32, int32) (*pgxpool.Pool, error) {
		called = true
		return nil, nil
	}

	_, err := m.Pool(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.False(t, called, "no connection attempt without credentials")
}

func TestManager_OpenFailureIsNotCached(t *testing.T) {
	m, opened := newTestManager(t)
	fail := true
	m.open = func(ctx context.Context, dsn string, _, _ int32) (*pgxpool.Pool, error) {
		*opened++
		if fail {
			return nil, errors.New("dial tcp: connection refused")
		}
		return pgxpool.New(ctx, dsn)
	}

	_, err := m.Pool(context.Background())
	require.Error(t, err)

	fail = false
	pool, err := m.Pool(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pool)
	assert.Equal(t, 2, *opened)
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	m.Close()
	m.Close()
}

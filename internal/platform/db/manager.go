package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const defaultHealthInterval = 30 * time.Second

// Manager lazily creates one pool and memoizes it until Close. A pool that
// fails its periodic ping is closed and rebuilt on the next Pool call.
type Manager struct {
	settings Settings
	maxConns int32
	minConns int32
	logger   zerolog.Logger

	open           func(ctx context.Context, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error)
	ping           func(ctx context.Context, pool *pgxpool.Pool) error
	now            func() time.Time
	healthInterval time.Duration

	mu         sync.Mutex
	pool       *pgxpool.Pool
	lastHealth time.Time
}

func NewManager(settings Settings, maxConns, minConns int32, logger zerolog.Logger) *Manager {
	return &Manager{
		settings:       settings,
		maxConns:       maxConns,
		minConns:       minConns,
		logger:         logger,
		open:           NewPool,
		ping:           func(ctx context.Context, p *pgxpool.Pool) error { return p.Ping(ctx) },
		now:            time.Now,
		healthInterval: defaultHealthInterval,
	}
}

// Pool returns the memoized pool, creating it on first use.
func (m *Manager) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		if m.now().Sub(m.lastHealth) < m.healthInterval {
			return m.pool, nil
		}
		err := m.ping(ctx, m.pool)
		if err == nil {
			m.lastHealth = m.now()
			return m.pool, nil
		}
		m.logger.Warn().Err(err).Msg("database pool failed health check, reconnecting")
		m.pool.Close()
		m.pool = nil
	}

	dsn, err := m.settings.DSN()
	if err != nil {
		return nil, err
	}
	pool, err := m.open(ctx, dsn, m.maxConns, m.minConns)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	m.pool = pool
	m.lastHealth = m.now()
	m.logger.Info().Int32("max_conns", m.maxConns).Msg("database pool created")
	return pool, nil
}

// Close disposes the pool and clears the cache. Safe to call repeatedly.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
	}
}

// Current returns the memoized pool without creating one.
func (m *Manager) Current() *pgxpool.Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool
}

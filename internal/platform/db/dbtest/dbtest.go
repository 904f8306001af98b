//go:build integration

// Package dbtest runs repository tests against a throwaway Postgres started
// with testcontainers. Every schema migration is applied before tests run.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carepilot/carepilot/internal/platform/db"
	"github.com/carepilot/carepilot/migrations"
)

const image = "postgres:16-alpine"

// DB is a migrated test database. It satisfies db.PoolSource and
// db.CatalogSource so repositories can be built on it directly.
type DB struct {
	ConnStr string

	pool     *pgxpool.Pool
	resolver *db.Resolver
}

func (d *DB) Pool(context.Context) (*pgxpool.Pool, error) { return d.pool, nil }

func (d *DB) Catalog(ctx context.Context) (*db.Catalog, error) { return d.resolver.Catalog(ctx) }

// Start launches the container, connects and migrates. The returned func
// closes the pool and removes the container.
func Start(ctx context.Context) (*DB, func(), error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "carepilot_test",
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "testpass",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("get postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("get postgres port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://test:testpass@%s:%s/carepilot_test?sslmode=disable", host, port.Port())

	pool, err := db.NewPool(ctx, connStr, 5, 0)
	if err != nil {
		terminate()
		return nil, nil, err
	}

	d := &DB{ConnStr: connStr, pool: pool}
	d.resolver = db.NewResolver(d)
	if _, err := db.NewMigrator(d, migrations.Files).Up(ctx); err != nil {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return d, func() {
		pool.Close()
		terminate()
	}, nil
}

// Main is a TestMain body: it starts the database, stores it in *target and
// exits with the test result.
func Main(m *testing.M, target **DB) {
	d, cleanup, err := Start(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}
	*target = d
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// Truncate empties the named tables between tests.
func (d *DB) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := d.pool.Exec(context.Background(), `TRUNCATE `+db.Ident(table)); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

// Exec runs raw SQL, for fixtures the repositories cannot express.
func (d *DB) Exec(t *testing.T, sql string, args ...interface{}) {
	t.Helper()
	if _, err := d.pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

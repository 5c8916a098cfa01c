//go:build integration

package containers

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/persistence"
)

// ExternalDSNEnv points the suites at an existing database instead of a
// throwaway container.
const ExternalDSNEnv = "SERVICEDESK_TEST_POSTGRES_DSN"

// PostgresContainer is a migrated Postgres reachable through Pool.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts Postgres, or connects to ExternalDSNEnv when
// set, and applies every embedded migration.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	pc := &PostgresContainer{DSN: os.Getenv(ExternalDSNEnv)}
	if pc.DSN == "" {
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("servicedesk"),
			tcpostgres.WithUsername("servicedesk"),
			tcpostgres.WithPassword("servicedesk"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}
		pc.Container = container
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get postgres connection string: %v", err)
		}
		pc.DSN = dsn
	}

	pool, err := pgxpool.New(ctx, pc.DSN)
	if err != nil {
		t.Fatalf("failed to open postgres pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if err := persistence.RunMigrations(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("failed to migrate postgres: %v", err)
	}
	pc.Pool = pool
	return pc
}

// TruncateTables empties tables and resets their sequences.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	_, err := p.Pool.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	return err
}

//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/skillforge-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds every setup query.
const TestTimeout = 10 * time.Second

// Tables lists the application tables in an order safe for TRUNCATE.
var Tables = []string{
	"content_sections",
	"content_modules",
	"generated_content",
	"generation_tasks",
	"generation_jobs",
	"courses",
	"documents",
	"employee_skill_gaps",
	"employee_skills",
	"employees",
	"positions",
	"departments",
}

var migrateOnce struct {
	sync.Once
	err error
}

// DatabaseURL returns the connection string for integration tests, or an
// empty string when none is configured.
func DatabaseURL() string {
	for _, name := range []string{"SKILLFORGE_TEST_DATABASE_URL", "DATABASE_URL"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Open connects to the integration database, applies migrations and
// registers cleanup that empties every table and closes the connection.
// The test is skipped when no database is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := DatabaseURL()
	if url == "" {
		t.Skip("SKILLFORGE_TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open database connection")

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping database")

	migrateOnce.Do(func() { migrateOnce.err = ApplyMigrations(db) })
	require.NoError(t, migrateOnce.err, "failed to apply migrations")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
		defer cancel()
		if _, err := db.ExecContext(ctx, "TRUNCATE "+strings.Join(Tables, ", ")+" CASCADE"); err != nil {
			t.Errorf("failed to truncate tables: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return db
}

// ApplyMigrations runs every embedded migration against db.
func ApplyMigrations(db *sql.DB) error {
	goose.SetBaseFS(postgres.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, postgres.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

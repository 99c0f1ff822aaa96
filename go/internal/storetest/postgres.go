package storetest

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mcdev12/econempire/go/internal/migrations"
)

// PostgresDSNEnv names the variable holding the DSN of a scratch database.
const PostgresDSNEnv = "ECONEMPIRE_TEST_DATABASE_URL"

// OpenPostgres connects to the database named by PostgresDSNEnv and applies
// the schema inside a fresh schema that is dropped when the test ends. The
// test is skipped when the variable is unset.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	database, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// search_path is per connection, so pin the pool to one.
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	ctx := context.Background()
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := database.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		database.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := database.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Errorf("drop schema: %v", err)
		}
		database.Close()
	})

	if _, err := database.ExecContext(ctx, "SET search_path TO "+schema); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if _, err := database.ExecContext(ctx, migrations.Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return database
}

// InsertUser stores a bare user row and returns its id.
func InsertUser(t *testing.T, database *sql.DB, username, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := database.ExecContext(context.Background(),
		"INSERT INTO users (id, username, role) VALUES ($1, $2, $3)", id, username, role); err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return id
}

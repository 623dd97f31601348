// Package testutil provisions PostgreSQL schemas for the repository integration tests.
package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/database"
)

var localDefaults = map[string]string{
	"POSTGRES_USER":     "postgres",
	"POSTGRES_PASSWORD": "postgres",
	"POSTGRES_DB":       "postgres",
	"POSTGRES_HOSTNAME": "localhost",
}

// MigratedSchema returns a pool whose search_path is a fresh, migrated schema. The
// schema is dropped when the test ends. POSTGRES_* falls back to a local postgres/postgres.
func MigratedSchema(t *testing.T) *sql.DB {
	t.Helper()

	pgConfig, err := config.LoadPostgresConfig(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return localDefaults[key]
	})
	if err != nil {
		t.Fatalf("Failed to load postgres config: %v", err)
	}

	admin, err := database.Open(pgConfig.ConnectionString())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { admin.Close() })

	schema := "attempts_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec(fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		t.Fatalf("Failed to create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
			t.Logf("Failed to drop schema %s: %v", schema, err)
		}
	})

	db, err := database.Open(fmt.Sprintf("%s search_path=%s", pgConfig.ConnectionString(), schema))
	if err != nil {
		t.Fatalf("Failed to connect to schema %s: %v", schema, err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate schema %s: %v", schema, err)
	}
	return db
}

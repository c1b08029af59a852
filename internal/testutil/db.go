package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/ragcore/internal/config"
	"github.com/xxxsen/ragcore/internal/db"
)

// OpenTestDB mirrors the teacher's test/testutil/db.go: repo and
// coordinator tests that need a real Postgres instance skip themselves
// when TEST_DB_HOST is unset, rather than mocking the driver.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "ragcore"),
		Password: envOr("TEST_DB_PASSWORD", "ragcore_pass"),
		DBName:   envOr("TEST_DB_NAME", "ragcore_test"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

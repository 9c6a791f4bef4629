package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmp := t.TempDir()
	dir := filepath.Join(tmp, "migrations", "sqlite")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `CREATE TABLE IF NOT EXISTS app_state (
		state_key TEXT PRIMARY KEY,
		state_value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if err := os.WriteFile(filepath.Join(dir, "001_app_state.sql"), []byte(content), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	db, err := Initialize(filepath.Join(tmp, "state.db"))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.RunMigrations(ctx, filepath.Join(tmp, "migrations")); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	// applied files are skipped on the next start
	if err := db.RunMigrations(ctx, filepath.Join(tmp, "migrations")); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	return db
}

func TestMigrationsRecordedOnce(t *testing.T) {
	db := openTestDB(t)

	var count int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 recorded migration, got %d", count)
	}
}

func TestStateLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.GetState(ctx, "slot"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("GetState() on empty store error = %v, want ErrStateNotFound", err)
	}

	for _, value := range []string{"first", "second"} {
		if err := db.PutState(ctx, "slot", value); err != nil {
			t.Fatalf("PutState(%q) error = %v", value, err)
		}
	}

	value, err := db.GetState(ctx, "slot")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if value != "second" {
		t.Errorf("value = %q, want second", value)
	}

	if err := db.DeleteState(ctx, "slot"); err != nil {
		t.Fatalf("DeleteState() error = %v", err)
	}
	if err := db.DeleteState(ctx, "slot"); err != nil {
		t.Fatalf("second DeleteState() error = %v", err)
	}
	if _, err := db.GetState(ctx, "slot"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("GetState() after delete error = %v", err)
	}
}

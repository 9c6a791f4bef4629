package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"offerdesk/internal/database"
	"offerdesk/internal/models"
	"offerdesk/internal/security"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), "../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db, security.NewSealer("test-secret"))
	ctx := context.Background()

	if _, ok, err := repo.Load(ctx); err != nil || ok {
		t.Fatalf("Load() on empty slot = ok %v, err %v", ok, err)
	}

	session := models.AuthSession{
		AccessToken: "ya29.first",
		ExpiresAt:   time.UnixMilli(1767225600000),
		User:        models.GoogleUser{Email: "ops@example.com", Name: "Ops"},
		BrowserID:   "browser-1",
	}
	if err := repo.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, ok, err := repo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if loaded.AccessToken != "ya29.first" || loaded.BrowserID != "browser-1" {
		t.Errorf("Load() = %+v", loaded)
	}
	if !loaded.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", loaded.ExpiresAt, session.ExpiresAt)
	}

	session.AccessToken = "ya29.second"
	if err := repo.Save(ctx, session); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	loaded, _, _ = repo.Load(ctx)
	if loaded.AccessToken != "ya29.second" {
		t.Errorf("slot not overwritten, AccessToken = %q", loaded.AccessToken)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := repo.Load(ctx); ok {
		t.Error("slot should be empty after Clear()")
	}
}

func TestSessionRepositoryStoresSealedValue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db, security.NewSealer("test-secret"))
	ctx := context.Background()

	if err := repo.Save(ctx, models.AuthSession{AccessToken: "ya29.hidden", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := db.GetState(ctx, SessionKey)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if strings.Contains(raw, "ya29.hidden") {
		t.Error("stored value should not contain the access token in clear text")
	}

	other := NewSessionRepository(db, security.NewSealer("different"))
	if _, _, err := other.Load(ctx); err == nil {
		t.Error("Load() with another secret should fail")
	}
}

// Package testutil provides shared test infrastructure for tests that need a
// real store: a temp-file SQLite database with all migrations applied.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/clearbrook/orderpipe/internal/storage"
	"github.com/clearbrook/orderpipe/migrations"
)

// NewStore opens a migrated store backed by a file in t.TempDir and closes it
// when the test finishes.
func NewStore(t *testing.T) *storage.Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "orderpipe_test.db")

	store, err := storage.Open(context.Background(), path, logger)
	if err != nil {
		t.Fatalf("testutil: open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("testutil: close store: %v", err)
		}
	})

	if err := store.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("testutil: run migrations: %v", err)
	}
	return store
}

// Logger returns a discard logger for constructing services under test.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

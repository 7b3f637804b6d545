// Package testutil provides shared test helpers for setting up spools and job stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/eniileme/nuclinotion/internal/jobstore"
	"github.com/eniileme/nuclinotion/internal/spool"
)

// TestStore creates a temporary SQLite job store that is automatically cleaned up.
func TestStore(t *testing.T) *jobstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "nuclinotion-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := jobstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSpool creates a temporary spool with a 24 hour TTL.
func TestSpool(t *testing.T) *spool.Spool {
	t.Helper()
	sp, err := spool.New(t.TempDir(), 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return sp
}

// DiscardLogger returns a logger that swallows all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

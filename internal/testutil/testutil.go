// Package testutil provides shared test helpers for setting up record
// repositories and status databases.
package testutil

import (
	"os"
	"testing"

	"github.com/okvist/manifold/internal/repo"
	"github.com/okvist/manifold/internal/status"
)

// TestRepo creates a temporary record repository rooted in a fresh directory.
func TestRepo(t *testing.T, opts ...repo.Option) (string, *repo.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := repo.NewStore(root, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// TestStatusDB creates a temporary SQLite status database that is
// automatically cleaned up.
func TestStatusDB(t *testing.T) *status.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "manifold-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := status.Open(dbFile.Name(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/bizdesk/internal/persistence/sqlite"
)

// NewSQLiteStore opens a migrated SQLite key-value store in a temporary
// directory. The store is closed when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "bizdesk.db")
	store, err := sqlite.Open(context.Background(), path, DiscardLogger())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

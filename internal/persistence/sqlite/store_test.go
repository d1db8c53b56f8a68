package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/bizdesk/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "bizdesk.db"), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_GetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "bizdesk:data:u1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(ctx, "bizdesk:data:u1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite returned error: %v", err)
	}

	got, err := store.Get(ctx, "bizdesk:data:u1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("expected latest value, got %s", got)
	}

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bizdesk.db")

	first, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := first.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	first.Close()

	second, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer second.Close()
	got, err := second.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected persisted value, got %q (%v)", got, err)
	}
}

func TestStore_ClosedReportsError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "bizdesk.db"), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	store.Close()

	if err := store.Set(ctx, "k", []byte("v")); err == nil {
		t.Fatalf("expected error after Close")
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	policy := backoff{attempts: 3, initial: time.Millisecond, max: 2 * time.Millisecond}

	t.Run("retries a busy database", func(t *testing.T) {
		calls := 0
		err := policy.run(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("expected success on third call, got %v after %d calls", err, calls)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := policy.run(context.Background(), func() error {
			calls++
			return fmt.Errorf("UNIQUE constraint failed: kv.key")
		})
		if err == nil || calls != 1 {
			t.Fatalf("expected single failing call, got %v after %d calls", err, calls)
		}
	})

	t.Run("gives up when attempts run out", func(t *testing.T) {
		err := policy.run(context.Background(), func() error {
			return errors.New("SQLITE_BUSY")
		})
		if !errors.Is(err, errBusy) {
			t.Fatalf("expected busy error, got %v", err)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := policy.run(ctx, func() error { return errors.New("database is locked") })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()
	if classify(nil) != nil {
		t.Fatalf("nil must map to nil")
	}
	if err := classify(sql.ErrNoRows); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := classify(errors.New("sql: database is closed")); !errors.Is(err, persistence.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

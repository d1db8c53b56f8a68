package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/bizdesk/internal/persistence"
)

var errBusy = errors.New("sqlite: database busy")

// classify maps driver errors onto persistence sentinels. SQLITE_BUSY and
// "database is locked" become errBusy, the only error worth retrying.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return persistence.ErrNotFound
	case errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %w", persistence.ErrClosed, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %w", errBusy, err)
	case strings.Contains(msg, "database is closed"):
		return fmt.Errorf("%w: %w", persistence.ErrClosed, err)
	}
	return err
}

// backoff retries busy errors with doubling delays capped at max.
type backoff struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}

func defaultBackoff() backoff {
	return backoff{attempts: 4, initial: 50 * time.Millisecond, max: time.Second}
}

func (b backoff) run(ctx context.Context, fn func() error) error {
	delay := b.initial
	var err error
	for attempt := 0; attempt < max(b.attempts, 1); attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, b.max)
		}
		if err = classify(fn()); !errors.Is(err, errBusy) {
			return err
		}
	}
	return fmt.Errorf("sqlite: gave up after %d attempts: %w", b.attempts, err)
}

// inTx runs fn in a transaction that is committed only when fn succeeds.
func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

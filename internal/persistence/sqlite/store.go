// Package sqlite stores key-value records in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/bizdesk/internal/persistence"
	"github.com/example/bizdesk/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store implements persistence.KeyValueStore on top of the kv table.
type Store struct {
	db    *sql.DB
	retry backoff
	now   func() time.Time
}

var _ persistence.KeyValueStore = (*Store)(nil)

// Open opens the database at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := migration.OpenDatabase(migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		return nil, err
	}

	migrations, err := migration.Scan(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := migration.Run(ctx, db, migrations, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, retry: defaultBackoff(), now: time.Now}, nil
}

// Get returns the value stored under key or persistence.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.retry.run(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set writes value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	err := s.retry.run(ctx, func() error {
		return inTx(ctx, s.db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, value, updatedAt)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("sqlite: set %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx))
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

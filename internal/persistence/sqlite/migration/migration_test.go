package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("orders by version and ignores other files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/002_add_index.sql": {Data: []byte("CREATE INDEX i ON t(v);")},
			"m/001_create_t.sql":  {Data: []byte("CREATE TABLE t (v TEXT);")},
			"m/README.md":         {Data: []byte("docs")},
		}
		got, err := Scan(fsys, "m")
		if err != nil {
			t.Fatalf("Scan returned error: %v", err)
		}
		if len(got) != 2 || got[0].Version != "001" || got[1].Version != "002" {
			t.Fatalf("unexpected migrations: %+v", got)
		}
		if got[0].Description != "create_t" || got[0].Checksum == "" {
			t.Fatalf("unexpected metadata: %+v", got[0])
		}
	})

	t.Run("rejects malformed names", func(t *testing.T) {
		fsys := fstest.MapFS{"m/create.sql": {Data: []byte("SELECT 1;")}}
		if _, err := Scan(fsys, "m"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("SELECT 1;")},
			"m/001_b.sql": {Data: []byte("SELECT 1;")},
		}
		if _, err := Scan(fsys, "m"); !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	db, err := OpenDatabase(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "nested", "test.db")))
	if err != nil {
		t.Fatalf("OpenDatabase returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrations := []Migration{
		{Version: "001", Description: "create_t", SQL: "CREATE TABLE t (v TEXT);", Checksum: "a"},
		{Version: "002", Description: "seed_t", SQL: "INSERT INTO t (v) VALUES ('x');", Checksum: "b"},
	}

	ran, err := Run(ctx, db, migrations, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("expected two migrations applied, got %v", ran)
	}

	ran, err = Run(ctx, db, migrations, nil)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("expected no migrations on rerun, got %v", ran)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected seed to run once, got %d rows", count)
	}

	applied, err := Applied(ctx, db)
	if err != nil {
		t.Fatalf("Applied returned error: %v", err)
	}
	if len(applied) != 2 || applied[1].Checksum != "b" {
		t.Fatalf("unexpected applied migrations: %+v", applied)
	}
}

func TestRunRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	db, err := OpenDatabase(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("OpenDatabase returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = Run(ctx, db, []Migration{{Version: "001", Description: "broken", SQL: "CREATE TABLE ("}}, nil)
	if err == nil {
		t.Fatalf("expected error for invalid SQL")
	}
	applied, err := Applied(ctx, db)
	if err != nil {
		t.Fatalf("Applied returned error: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("failed migration must not be recorded: %+v", applied)
	}
}

func TestSQLiteConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SQLiteConfig) {}},
		{name: "empty dsn", mutate: func(c *SQLiteConfig) { c.DSN = " " }, wantErr: true},
		{name: "bad journal", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -1 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultSQLiteConfig("data/app.db")
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"BIZDESK_HTTP_PORT",
	"BIZDESK_SESSION_SECRET",
	"BIZDESK_SESSION_TTL",
	"BIZDESK_LOG_LEVEL",
	"BIZDESK_STORAGE_DRIVER",
	"BIZDESK_SQLITE_DSN",
	"BIZDESK_POSTGRES_DSN",
	"BIZDESK_S3_BUCKET",
	"BIZDESK_S3_REGION",
	"BIZDESK_S3_ENDPOINT",
	"BIZDESK_S3_PATH_STYLE",
	"BIZDESK_DYNAMODB_TABLE",
	"BIZDESK_DYNAMODB_REGION",
	"BIZDESK_DYNAMODB_ENDPOINT",
	"BIZDESK_KEY_PREFIX",
	"BIZDESK_HISTORY_LIMIT",
	"BIZDESK_PERSIST_HISTORY_MOVES",
	"BIZDESK_PERSIST_RETRY_INTERVAL",
	"BIZDESK_TIMEZONE",
	"BIZDESK_PRESET_FILE",
	"BIZDESK_VERTICAL",
}

// clearEnv blanks every key; Load treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		const secret = "super-secret"
		t.Setenv("BIZDESK_SESSION_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.StorageDriver != DriverSQLite || cfg.SQLiteDSN != "bizdesk.db" {
			t.Fatalf("unexpected default storage: %q %q", cfg.StorageDriver, cfg.SQLiteDSN)
		}
		if cfg.SessionSecret != secret {
			t.Fatalf("expected session secret to be %q, got %q", secret, cfg.SessionSecret)
		}
		if cfg.HistoryLimit != 0 || cfg.PersistHistoryMoves {
			t.Fatalf("unexpected history defaults: limit=%d persist=%v", cfg.HistoryLimit, cfg.PersistHistoryMoves)
		}
		if cfg.PersistRetryInterval != time.Minute || cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: BIZDESK_SESSION_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("requires driver specific settings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZDESK_SESSION_SECRET", "secret")
		t.Setenv("BIZDESK_STORAGE_DRIVER", "postgres")

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "BIZDESK_POSTGRES_DSN") {
			t.Fatalf("expected missing postgres DSN, got %v", err)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZDESK_SESSION_SECRET", "secret")
		t.Setenv("BIZDESK_HTTP_PORT", "abc")
		t.Setenv("BIZDESK_STORAGE_DRIVER", "floppy")
		t.Setenv("BIZDESK_PERSIST_HISTORY_MOVES", "sometimes")

		_, err := Load()
		expected := "環境変数の値が不正です: BIZDESK_HTTP_PORT, BIZDESK_STORAGE_DRIVER, BIZDESK_PERSIST_HISTORY_MOVES"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZDESK_SESSION_SECRET", "secret-value")
		t.Setenv("BIZDESK_HTTP_PORT", "9090")
		t.Setenv("BIZDESK_STORAGE_DRIVER", "DynamoDB")
		t.Setenv("BIZDESK_DYNAMODB_ENDPOINT", "http://localhost:8000")
		t.Setenv("BIZDESK_SESSION_TTL", "2h")
		t.Setenv("BIZDESK_HISTORY_LIMIT", "50")
		t.Setenv("BIZDESK_PERSIST_HISTORY_MOVES", "true")
		t.Setenv("BIZDESK_PERSIST_RETRY_INTERVAL", "30s")
		t.Setenv("BIZDESK_TIMEZONE", "UTC")
		t.Setenv("BIZDESK_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.SessionTTL != 2*time.Hour {
			t.Fatalf("unexpected port or ttl: %d %v", cfg.HTTPPort, cfg.SessionTTL)
		}
		if cfg.StorageDriver != DriverDynamoDB || cfg.DynamoEndpoint != "http://localhost:8000" || cfg.DynamoTable != "bizdesk_kv" {
			t.Fatalf("unexpected dynamodb settings: %+v", cfg)
		}
		if cfg.HistoryLimit != 50 || !cfg.PersistHistoryMoves || cfg.PersistRetryInterval != 30*time.Second {
			t.Fatalf("unexpected persistence settings: %+v", cfg)
		}
		if cfg.Location != time.UTC || cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("unexpected location or level: %v %v", cfg.Location, cfg.LogLevel)
		}
	})
}

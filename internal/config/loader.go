package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by BIZDESK_STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverDynamoDB = "dynamodb"
)

const envPrefix = "BIZDESK_"

// Config captures environment driven configuration values for the bizdesk service.
type Config struct {
	HTTPPort      int
	SessionSecret string
	SessionTTL    time.Duration
	LogLevel      slog.Level

	StorageDriver  string
	SQLiteDSN      string
	PostgresDSN    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PathStyle    bool
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string
	KeyPrefix      string

	HistoryLimit         int
	PersistHistoryMoves  bool
	PersistRetryInterval time.Duration
	Location             *time.Location
	PresetFile           string
	Vertical             string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SessionTTL:           24 * time.Hour,
		LogLevel:             slog.LevelInfo,
		StorageDriver:        DriverSQLite,
		SQLiteDSN:            "bizdesk.db",
		DynamoTable:          "bizdesk_kv",
		KeyPrefix:            "bizdesk",
		HistoryLimit:         0, // unlimited
		PersistRetryInterval: time.Minute,
		Location:             time.Local,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := lookup("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if secret := lookup("SESSION_SECRET"); secret == "" {
		missing = append(missing, envPrefix+"SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := lookup("SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, envPrefix+"SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if levelValue := lookup("LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		}
	}

	if driver := strings.ToLower(lookup("STORAGE_DRIVER")); driver != "" {
		cfg.StorageDriver = driver
	}
	if dsn := lookup("SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	cfg.PostgresDSN = lookup("POSTGRES_DSN")
	cfg.S3Bucket = lookup("S3_BUCKET")
	cfg.S3Region = lookup("S3_REGION")
	cfg.S3Endpoint = lookup("S3_ENDPOINT")
	if value := lookup("S3_PATH_STYLE"); value != "" {
		pathStyle, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, envPrefix+"S3_PATH_STYLE")
		} else {
			cfg.S3PathStyle = pathStyle
		}
	}
	if table := lookup("DYNAMODB_TABLE"); table != "" {
		cfg.DynamoTable = table
	}
	cfg.DynamoRegion = lookup("DYNAMODB_REGION")
	cfg.DynamoEndpoint = lookup("DYNAMODB_ENDPOINT")
	if prefix := lookup("KEY_PREFIX"); prefix != "" {
		cfg.KeyPrefix = prefix
	}

	switch cfg.StorageDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			missing = append(missing, envPrefix+"POSTGRES_DSN")
		}
	case DriverS3:
		if cfg.S3Bucket == "" {
			missing = append(missing, envPrefix+"S3_BUCKET")
		}
	case DriverDynamoDB:
	default:
		invalid = append(invalid, envPrefix+"STORAGE_DRIVER")
	}

	if limitValue := lookup("HISTORY_LIMIT"); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit < 0 {
			invalid = append(invalid, envPrefix+"HISTORY_LIMIT")
		} else {
			cfg.HistoryLimit = limit
		}
	}

	if value := lookup("PERSIST_HISTORY_MOVES"); value != "" {
		persist, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, envPrefix+"PERSIST_HISTORY_MOVES")
		} else {
			cfg.PersistHistoryMoves = persist
		}
	}

	if intervalValue := lookup("PERSIST_RETRY_INTERVAL"); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval < time.Second {
			invalid = append(invalid, envPrefix+"PERSIST_RETRY_INTERVAL")
		} else {
			cfg.PersistRetryInterval = interval
		}
	}

	if zone := lookup("TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, envPrefix+"TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	cfg.PresetFile = lookup("PRESET_FILE")
	cfg.Vertical = strings.ToLower(lookup("VERTICAL"))

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/config"
	httptransport "github.com/example/bizdesk/internal/http"
	"github.com/example/bizdesk/internal/identity"
	"github.com/example/bizdesk/internal/jobs"
	"github.com/example/bizdesk/internal/logging"
	"github.com/example/bizdesk/internal/metrics"
	"github.com/example/bizdesk/internal/persistence"
	"github.com/example/bizdesk/internal/persistence/dynamo"
	"github.com/example/bizdesk/internal/persistence/memory"
	"github.com/example/bizdesk/internal/persistence/postgres"
	"github.com/example/bizdesk/internal/persistence/s3"
	"github.com/example/bizdesk/internal/persistence/sqlite"
	"github.com/example/bizdesk/internal/presets"
	"github.com/example/bizdesk/internal/realtime"
	"github.com/example/bizdesk/internal/scheduler"
)

func main() {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = logging.New(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bizdesk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, closeStorage, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	defer func() {
		if cerr := closeStorage(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	app, err := newApp(cfg, storage, logger)
	if err != nil {
		return err
	}
	app.jobs.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("bizdesk API listening", "addr", server.Addr, "storage", cfg.StorageDriver)
	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.close(closeCtx); err != nil {
		logger.Error("failed to flush pending snapshots", "error", err)
	}
	return serveErr
}

// backend is a key-value store that can report its connectivity.
type backend interface {
	persistence.KeyValueStore
	persistence.Pinger
}

// openBackend connects the configured storage driver. The returned func
// releases it.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.New()
		return store, store.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLiteDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.DriverS3:
		store, err := s3.New(ctx, s3.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noClose, nil
	case config.DriverDynamoDB:
		store, err := dynamo.New(ctx, dynamo.Config{
			Table:    cfg.DynamoTable,
			Region:   cfg.DynamoRegion,
			Endpoint: cfg.DynamoEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noClose, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// app is the wired workspace: store, persistence, identity and transport.
type app struct {
	store   *application.Store
	writer  *persistence.Writer
	hub     *realtime.Hub
	jobs    *jobs.Scheduler
	metrics *metrics.Recorder
	handler http.Handler
	detach  func()
}

func newApp(cfg config.Config, storage backend, logger *slog.Logger) (*app, error) {
	catalog, err := presets.Load(cfg.PresetFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	recorder := metrics.NewRecorder()
	writer := persistence.NewWriter(storage, persistence.WriterConfig{
		Logger:   logger,
		Observer: recorder,
	})

	store := application.NewStore(application.StoreConfig{
		Source:              writer,
		Sink:                writer,
		Defaults:            catalog.DefaultsFunc(cfg.Vertical),
		IDGenerator:         uuid.NewString,
		Logger:              logger,
		Observer:            recorder,
		HistoryLimit:        cfg.HistoryLimit,
		KeyPrefix:           cfg.KeyPrefix,
		PersistHistoryMoves: cfg.PersistHistoryMoves,
	})

	provider, err := identity.NewProvider(identity.Config{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
		Logger: logger,
	})
	if err != nil {
		_ = writer.Close(context.Background())
		return nil, fmt.Errorf("identity provider: %w", err)
	}
	provider.OnChange(func(ctx context.Context, user *identity.User) {
		if user == nil {
			store.SwitchUser(ctx, "")
			return
		}
		store.SwitchUser(ctx, user.ID)
	})

	hub := realtime.NewHub(logger)
	detach := hub.Attach(store)

	background := jobs.NewScheduler(logger)
	if err := background.ScheduleRetry(writer, cfg.PersistRetryInterval); err != nil {
		detach()
		_ = writer.Close(context.Background())
		return nil, err
	}

	engine := scheduler.NewEngine(time.Now, cfg.Location)
	booking := application.NewBookingService(store, engine, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:     httptransport.NewSessionHandler(provider, logger),
		Workspace:    httptransport.NewWorkspaceHandler(store, catalog, cfg.Vertical, logger),
		Booking:      httptransport.NewBookingHandler(booking, logger),
		Health:       httptransport.NewHealthHandler(storage, writer, logger),
		Realtime:     hub.Handler(),
		Metrics:      recorder.Handler(),
		SessionGuard: httptransport.RequireSession(provider, store, logger),
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger, recorder)},
	})

	return &app{
		store:   store,
		writer:  writer,
		hub:     hub,
		jobs:    background,
		metrics: recorder,
		handler: handler,
		detach:  detach,
	}, nil
}

// close stops background work and flushes queued snapshots.
func (a *app) close(ctx context.Context) error {
	a.jobs.Stop()
	a.detach()
	a.hub.Close()
	return a.writer.Close(ctx)
}

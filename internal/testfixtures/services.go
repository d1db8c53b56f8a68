package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/persistence/memory"
	"github.com/example/bizdesk/internal/scheduler"
)

// ServiceFactory assists tests with constructing the store and services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Backend     *memory.Store
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Backend:     memory.New(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Backend == nil {
		factory.Backend = memory.New()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// StoreDeps overrides parts of the store configuration. Zero fields take the
// factory defaults; Sink defaults to a synchronous sink over Backend.
type StoreDeps struct {
	Source       application.SnapshotSource
	Sink         application.SnapshotSink
	Defaults     func() application.StoredData
	Observer     application.Observer
	HistoryLimit int
	Logger       *slog.Logger
}

// NewStore builds a store wired to the factory clock, ids and backend.
func (f *ServiceFactory) NewStore(deps StoreDeps) *application.Store {
	source := deps.Source
	if source == nil {
		source = f.Backend
	}
	sink := deps.Sink
	if sink == nil {
		sink = SyncSink{Backend: f.Backend}
	}
	logger := deps.Logger
	if logger == nil {
		logger = DiscardLogger()
	}
	return application.NewStore(application.StoreConfig{
		Source:       source,
		Sink:         sink,
		Defaults:     deps.Defaults,
		IDGenerator:  f.IDGenerator.NextFunc(),
		Now:          f.Clock.NowFunc(),
		Logger:       logger,
		Observer:     deps.Observer,
		HistoryLimit: deps.HistoryLimit,
	})
}

// NewEngine returns an availability engine on the factory clock in UTC.
func (f *ServiceFactory) NewEngine() *scheduler.Engine {
	return scheduler.NewEngine(f.Clock.NowFunc(), time.UTC)
}

// NewBookingService builds a booking service over store.
func (f *ServiceFactory) NewBookingService(store *application.Store) *application.BookingService {
	return application.NewBookingService(store, f.NewEngine(), DiscardLogger())
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

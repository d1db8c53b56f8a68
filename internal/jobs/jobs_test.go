package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/bizdesk/internal/persistence"
	"github.com/example/bizdesk/internal/persistence/memory"
)

type retrierStub struct {
	calls atomic.Int32
	count int
}

func (r *retrierStub) RetryFailed() int {
	r.calls.Add(1)
	return r.count
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduleRetryRejectsShortInterval(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())
	if err := s.ScheduleRetry(&retrierStub{}, 10*time.Millisecond); err == nil {
		t.Fatalf("expected error for sub-second interval")
	}
}

func TestScheduleRetryRunsPeriodically(t *testing.T) {
	t.Parallel()

	stub := &retrierStub{count: 1}
	s := NewScheduler(discardLogger())
	if err := s.ScheduleRetry(stub, time.Second); err != nil {
		t.Fatalf("ScheduleRetry: %v", err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for stub.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("retry job never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// flakyBackend fails until healed.
type flakyBackend struct {
	mu      sync.Mutex
	healthy bool
	inner   *memory.Store
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	healthy := f.healthy
	f.mu.Unlock()
	if !healthy {
		return errors.New("backend offline")
	}
	return f.inner.Set(ctx, key, value)
}

func TestRetryOnceRequeuesFailedWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &flakyBackend{inner: memory.New()}
	writer := persistence.NewWriter(backend, persistence.WriterConfig{Logger: discardLogger()})
	t.Cleanup(func() { _ = writer.Close(context.Background()) })

	writer.Save("bizdesk:data:u-1", []byte(`{"schemaVersion":1}`))
	if err := writer.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, failed := writer.Pending(); failed != 1 {
		t.Fatalf("expected one parked write, got %d", failed)
	}

	backend.mu.Lock()
	backend.healthy = true
	backend.mu.Unlock()

	if got := RetryOnce(writer, discardLogger()); got != 1 {
		t.Fatalf("expected one requeued write, got %d", got)
	}
	if err := writer.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, err := backend.inner.Get(ctx, "bizdesk:data:u-1"); err != nil {
		t.Fatalf("expected retried write to land: %v", err)
	}
}

package persistence

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// WriteObserver receives the outcome of every background write.
type WriteObserver interface {
	WriteSucceeded(duration time.Duration)
	WriteFailed(duration time.Duration)
	FailedBacklog(keys int)
}

type noopWriteObserver struct{}

func (noopWriteObserver) WriteSucceeded(time.Duration) {}
func (noopWriteObserver) WriteFailed(time.Duration)    {}
func (noopWriteObserver) FailedBacklog(int)            {}

// WriterConfig tunes a Writer.
type WriterConfig struct {
	Logger   *slog.Logger
	Observer WriteObserver
	// Timeout bounds a single backend write. Zero means 10 seconds.
	Timeout time.Duration
}

// Writer hands records to a KeyValueStore on a background goroutine.
//
// Save never blocks on I/O and never reports an error: repeated saves of the
// same key are coalesced so only the newest payload is written, and failures
// are logged and parked until RetryFailed is called. Get reads through the
// queue so callers always observe their own latest save.
type Writer struct {
	backend  KeyValueStore
	logger   *slog.Logger
	observer WriteObserver
	timeout  time.Duration

	mu       sync.Mutex
	pending  map[string][]byte
	order    []string
	failed   map[string][]byte
	inflight map[string][]byte
	idle     chan struct{} // non-nil while work is queued or running; closed on drain
	closed   bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

// NewWriter starts a writer draining into backend.
func NewWriter(backend KeyValueStore, cfg WriterConfig) *Writer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = noopWriteObserver{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	w := &Writer{
		backend:  backend,
		logger:   logger.With("component", "persistence.Writer"),
		observer: observer,
		timeout:  timeout,
		pending:  make(map[string][]byte),
		failed:   make(map[string][]byte),
		inflight: make(map[string][]byte),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// Save queues payload for key and returns immediately.
func (w *Writer) Save(key string, payload []byte) {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("dropping save after close", "key", key, "error", ErrClosed)
		return
	}
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = payload
	delete(w.failed, key)
	if w.idle == nil {
		w.idle = make(chan struct{})
	}
	w.mu.Unlock()
	w.signal()
}

// Get returns the newest known value for key: queued, in flight, parked after
// a failure, or finally whatever the backend holds.
func (w *Writer) Get(ctx context.Context, key string) ([]byte, error) {
	w.mu.Lock()
	if payload, ok := w.pending[key]; ok {
		w.mu.Unlock()
		return slices.Clone(payload), nil
	}
	if payload, ok := w.inflight[key]; ok {
		w.mu.Unlock()
		return slices.Clone(payload), nil
	}
	if payload, ok := w.failed[key]; ok {
		w.mu.Unlock()
		return slices.Clone(payload), nil
	}
	w.mu.Unlock()
	return w.backend.Get(ctx, key)
}

// Flush waits until every queued save has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryFailed requeues every parked payload and returns how many were requeued.
func (w *Writer) RetryFailed() int {
	w.mu.Lock()
	if w.closed || len(w.failed) == 0 {
		w.mu.Unlock()
		return 0
	}
	count := 0
	for key, payload := range w.failed {
		if _, queued := w.pending[key]; !queued {
			w.order = append(w.order, key)
			w.pending[key] = payload
			count++
		}
		delete(w.failed, key)
	}
	if w.idle == nil {
		w.idle = make(chan struct{})
	}
	w.mu.Unlock()
	w.observer.FailedBacklog(0)
	w.signal()
	return count
}

// Pending reports queued and parked record counts.
func (w *Writer) Pending() (queued, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) + len(w.inflight), len(w.failed)
}

// Close drains the queue and stops the background goroutine.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	close(w.stop)
	select {
	case <-w.stopped:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) loop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			if w.idle != nil {
				close(w.idle)
				w.idle = nil
			}
			w.mu.Unlock()
			return
		}
		key := w.order[0]
		w.order = w.order[1:]
		payload := w.pending[key]
		delete(w.pending, key)
		w.inflight[key] = payload
		w.mu.Unlock()

		w.write(key, payload)
	}
}

func (w *Writer) write(key string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	err := w.backend.Set(ctx, key, payload)
	elapsed := time.Since(start)

	w.mu.Lock()
	delete(w.inflight, key)
	backlog := len(w.failed)
	if err != nil {
		if _, superseded := w.pending[key]; !superseded {
			w.failed[key] = payload
		}
		backlog = len(w.failed)
	}
	w.mu.Unlock()

	if err != nil {
		w.observer.WriteFailed(elapsed)
		w.observer.FailedBacklog(backlog)
		w.logger.Error("failed to persist record", "key", key, "bytes", len(payload), "duration", elapsed, "error", err)
		return
	}
	w.observer.WriteSucceeded(elapsed)
	w.logger.Debug("record persisted", "key", key, "bytes", len(payload), "duration", elapsed)
}

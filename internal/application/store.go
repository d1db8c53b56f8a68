package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/bizdesk/internal/persistence"
)

// SnapshotSource reads the persisted aggregate of a user.
type SnapshotSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// SnapshotSink accepts encoded aggregates for best-effort persistence. Save
// must not block on I/O.
type SnapshotSink interface {
	Save(key string, payload []byte)
}

// Observer is notified about store activity, typically to feed metrics.
type Observer interface {
	MutationApplied(operation string)
	HistoryMoved(direction string)
	UserSwitched(restored bool)
}

type noopObserver struct{}

func (noopObserver) MutationApplied(string) {}
func (noopObserver) HistoryMoved(string)    {}
func (noopObserver) UserSwitched(bool)      {}

// Change describes the state after a store operation. Subscribers receive it
// once the operation has completed.
type Change struct {
	Operation string `json:"operation"`
	Version   uint64 `json:"version"`
	UserID    string `json:"userId,omitempty"`
	CanUndo   bool   `json:"canUndo"`
	CanRedo   bool   `json:"canRedo"`
}

// StoreConfig wires the dependencies of a Store.
type StoreConfig struct {
	Source SnapshotSource
	Sink   SnapshotSink
	// Defaults builds the aggregate for users without stored data.
	Defaults    func() StoredData
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Observer    Observer
	// HistoryLimit caps the undo stack; zero keeps every snapshot.
	HistoryLimit int
	KeyPrefix    string
	// PersistHistoryMoves also saves the aggregate after Undo and Redo.
	PersistHistoryMoves bool
}

// Store owns the business aggregate and its undo/redo history.
//
// Every mutation builds a new aggregate value: the touched collection is
// copied, untouched collections are shared with the previous snapshot, and no
// slice reachable from a snapshot is ever written in place. That makes a
// checkpoint as cheap as copying the StoredData header.
type Store struct {
	mu      sync.Mutex
	current StoredData
	past    []StoredData // oldest first, top = last
	future  []StoredData // farthest first, top = last
	version uint64
	userID  string

	source              SnapshotSource
	sink                SnapshotSink
	defaults            func() StoredData
	idGenerator         func() string
	now                 func() time.Time
	logger              *slog.Logger
	observer            Observer
	historyLimit        int
	keyPrefix           string
	persistHistoryMoves bool

	// publishMu is taken before mu is released so saves and notifications
	// leave the store in version order.
	publishMu   sync.Mutex
	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   uint64
}

type subscriber struct {
	id uint64
	fn func(Change)
}

// errNoChange aborts a mutation without checkpointing or persisting.
var errNoChange = errors.New("application: no change")

// NewStore constructs a store holding the default aggregate with no user bound.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		source:              cfg.Source,
		sink:                cfg.Sink,
		defaults:            cfg.Defaults,
		idGenerator:         cfg.IDGenerator,
		now:                 cfg.Now,
		logger:              defaultLogger(cfg.Logger),
		observer:            cfg.Observer,
		historyLimit:        cfg.HistoryLimit,
		keyPrefix:           cfg.KeyPrefix,
		persistHistoryMoves: cfg.PersistHistoryMoves,
	}
	if s.defaults == nil {
		s.defaults = EmptyData
	}
	if s.idGenerator == nil {
		s.idGenerator = func() string { return "" }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.historyLimit < 0 {
		s.historyLimit = 0
	}
	s.current = normalizeData(s.defaults())
	return s
}

func (s *Store) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "Store", operation, attrs...)
}

// Snapshot returns a deep copy of the current aggregate.
func (s *Store) Snapshot() StoredData {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	return current.Clone()
}

// view runs fn against the current aggregate. fn must not retain or modify it.
func (s *Store) view(fn func(d *StoredData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.current)
}

// Version increases by one with every applied operation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// UserID returns the user whose aggregate is loaded, or "" when none is bound.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Subscribe registers fn to be called after every applied operation, in
// registration order and in version order, outside the store lock. fn may read
// the store but must not mutate it. The returned function removes the
// subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(change Change) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(change)
	}
}

// mutate applies fn to a working copy of the aggregate. When fn succeeds the
// previous aggregate is checkpointed, the redo stack is cleared, the result is
// handed to the sink and subscribers are notified. When fn returns
// errNoChange nothing happens and (false, nil) is returned.
func (s *Store) mutate(ctx context.Context, operation string, fn func(d *StoredData, now time.Time) error) (bool, error) {
	s.mu.Lock()
	next := s.current
	if err := fn(&next, s.now().UTC()); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			s.loggerWith(ctx, operation).DebugContext(ctx, "mutation skipped")
			return false, nil
		}
		s.loggerWith(ctx, operation).WarnContext(ctx, "mutation rejected", "error", err, "error_kind", ErrorKind(err))
		return false, err
	}

	s.past = s.pushPastLocked(s.current)
	s.future = nil
	s.current = next
	s.version++
	change := s.changeLocked(operation)
	s.persistLocked(ctx, operation, next)
	s.publishLocked(change)

	s.observer.MutationApplied(operation)
	s.loggerWith(ctx, operation, "version", change.Version).DebugContext(ctx, "mutation applied")
	return true, nil
}

// publishLocked releases mu and notifies subscribers of change. Handing over
// to publishMu before unlocking keeps notifications in version order even
// when the next operation starts before this one has finished notifying.
func (s *Store) publishLocked(change Change) {
	s.publishMu.Lock()
	s.mu.Unlock()
	defer s.publishMu.Unlock()
	s.notify(change)
}

func (s *Store) pushPastLocked(snapshot StoredData) []StoredData {
	past := append(s.past, snapshot)
	if s.historyLimit > 0 && len(past) > s.historyLimit {
		drop := len(past) - s.historyLimit
		copy(past, past[drop:])
		clear(past[len(past)-drop:])
		past = past[:len(past)-drop]
	}
	return past
}

func (s *Store) changeLocked(operation string) Change {
	return Change{
		Operation: operation,
		Version:   s.version,
		UserID:    s.userID,
		CanUndo:   len(s.past) > 0,
		CanRedo:   len(s.future) > 0,
	}
}

// persistLocked hands the aggregate to the sink while mu is held, so the
// sink receives aggregates in the order they were committed. Failures are
// logged and never surface to the caller; the in-memory aggregate stays
// authoritative.
func (s *Store) persistLocked(ctx context.Context, operation string, data StoredData) {
	userID := s.userID
	if s.sink == nil || userID == "" {
		return
	}
	payload, err := EncodeSnapshot(data, s.now().UTC())
	if err != nil {
		s.loggerWith(ctx, operation, "user_id", userID).ErrorContext(ctx, "failed to encode snapshot", "error", err, "error_kind", ErrorKind(err))
		return
	}
	s.sink.Save(persistence.DataKey(s.keyPrefix, userID), payload)
}

// CanUndo reports whether Undo would change the aggregate.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.past) > 0
}

// CanRedo reports whether Redo would change the aggregate.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.future) > 0
}

// HistoryDepth returns the sizes of the undo and redo stacks.
func (s *Store) HistoryDepth() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.past), len(s.future)
}

// Undo restores the most recent checkpoint. It reports false when there is
// nothing to undo.
func (s *Store) Undo(ctx context.Context) bool {
	return s.moveHistory(ctx, "undo")
}

// Redo reapplies the most recently undone aggregate. It reports false when
// there is nothing to redo.
func (s *Store) Redo(ctx context.Context) bool {
	return s.moveHistory(ctx, "redo")
}

func (s *Store) moveHistory(ctx context.Context, direction string) bool {
	s.mu.Lock()
	from, to := &s.past, &s.future
	if direction == "redo" {
		from, to = &s.future, &s.past
	}
	if len(*from) == 0 {
		s.mu.Unlock()
		return false
	}
	last := len(*from) - 1
	target := (*from)[last]
	(*from)[last] = StoredData{}
	*from = (*from)[:last]
	*to = append(*to, s.current)
	s.current = target
	s.version++
	change := s.changeLocked(direction)
	if s.persistHistoryMoves {
		s.persistLocked(ctx, direction, target)
	}
	s.publishLocked(change)

	s.observer.HistoryMoved(direction)
	s.loggerWith(ctx, direction, "version", change.Version).DebugContext(ctx, "history moved")
	return true
}

// ResetHistory clears both stacks without touching the aggregate.
func (s *Store) ResetHistory(ctx context.Context) {
	s.mu.Lock()
	s.past = nil
	s.future = nil
	s.version++
	change := s.changeLocked("reset_history")
	s.publishLocked(change)
}

// SwitchUser binds the store to userID: the user's aggregate is loaded (or the
// defaults when nothing is stored or the record is unreadable) and history is
// cleared. An empty userID unbinds the store, which then holds defaults and
// persists nothing.
func (s *Store) SwitchUser(ctx context.Context, userID string) {
	logger := s.loggerWith(ctx, "SwitchUser", "user_id", userID)

	data, restored, err := s.load(ctx, userID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to restore stored data; using defaults", "error", err, "error_kind", ErrorKind(err))
	}

	s.mu.Lock()
	s.userID = userID
	s.current = data
	s.past = nil
	s.future = nil
	s.version++
	change := s.changeLocked("switch_user")
	s.publishLocked(change)

	s.observer.UserSwitched(restored)
	logger.InfoContext(ctx, "workspace switched", "restored", restored)
}

func (s *Store) load(ctx context.Context, userID string) (StoredData, bool, error) {
	if userID == "" || s.source == nil {
		return normalizeData(s.defaults()), false, nil
	}
	payload, err := s.source.Get(ctx, persistence.DataKey(s.keyPrefix, userID))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return normalizeData(s.defaults()), false, nil
		}
		return normalizeData(s.defaults()), false, fmt.Errorf("load stored data: %w", err)
	}
	data, err := DecodeSnapshot(payload)
	if err != nil {
		return normalizeData(s.defaults()), false, err
	}
	return normalizeData(data), true, nil
}

// Replace swaps in a whole aggregate, e.g. from an import. It is checkpointed
// like any other mutation.
func (s *Store) Replace(ctx context.Context, data StoredData) {
	replacement := normalizeData(data.Clone())
	_, _ = s.mutate(ctx, "replace", func(d *StoredData, _ time.Time) error {
		*d = replacement
		return nil
	})
}

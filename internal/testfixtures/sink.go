package testfixtures

import (
	"context"
	"sync"

	"github.com/example/bizdesk/internal/persistence"
)

// SyncSink writes snapshots straight to the backend so tests can inspect them
// without waiting on a background writer. Errors are recorded, not returned.
type SyncSink struct {
	Backend persistence.KeyValueStore
}

// Save implements application.SnapshotSink.
func (s SyncSink) Save(key string, payload []byte) {
	_ = s.Backend.Set(context.Background(), key, payload)
}

// RecordingSink captures every saved payload in order.
type RecordingSink struct {
	mu    sync.Mutex
	saves []SavedSnapshot
}

// SavedSnapshot is one captured Save call.
type SavedSnapshot struct {
	Key     string
	Payload []byte
}

// Save implements application.SnapshotSink.
func (r *RecordingSink) Save(key string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, SavedSnapshot{Key: key, Payload: append([]byte(nil), payload...)})
}

// Saves returns a copy of the captured calls.
func (r *RecordingSink) Saves() []SavedSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SavedSnapshot(nil), r.saves...)
}

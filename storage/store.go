// Package storage persists session snapshots so conversations survive a
// process restart. Audio blobs are per-interaction and are not persisted.
package storage

import (
	"context"
	"sync"

	"alignercoach/core"
)

// Snapshot is the durable view of one session: its turns (without audio) and
// language selection.
type Snapshot struct {
	SessionID string        `json:"session_id"`
	Language  core.Language `json:"language"`
	Turns     []core.Turn   `json:"turns"`
}

// SessionStore saves and restores session snapshots.
type SessionStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.SessionID] = snap
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[sessionID]
	return snap, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sessionID)
	return nil
}

package state

import (
	"context"
	"sync"

	"github.com/af-corp/aireader-gateway/internal/types"
)

// MemoryStore keeps routing state for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore creates a store seeded with a copy of seed (nil for empty).
func NewMemoryStore(seed *Snapshot) *MemoryStore {
	if seed == nil {
		seed = NewSnapshot()
	}
	return &MemoryStore{snap: seed.Clone()}
}

func (m *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), nil
}

func (m *MemoryStore) Active(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Active, nil
}

func (m *MemoryStore) SetActive(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Active = index
	return nil
}

func (m *MemoryStore) Cursor(_ context.Context, kind types.Kind, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, _ := m.snap.Cursor(kind, key)
	return idx, nil
}

func (m *MemoryStore) SetCursor(_ context.Context, kind types.Kind, key string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.SetCursor(kind, key, index)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = NewSnapshot()
	return nil
}

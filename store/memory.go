package store

import (
	"context"
	"sync"

	"github.com/six-thirty/ntvnet/ntv"
)

// MemoryStore keeps snapshots in process memory. It is the default when no
// database is configured, and is used by tests.
type MemoryStore struct {
	mu       sync.Mutex
	registry ntv.RegistrySnapshot
	slots    map[int]ntv.SlotSnapshot
	found    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[int]ntv.SlotSnapshot)}
}

// SaveRegistry stores the registry snapshot.
func (m *MemoryStore) SaveRegistry(_ context.Context, snap ntv.RegistrySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = snap
	m.found = true
	return nil
}

// SaveSlot stores one slot snapshot, keyed by ordinal.
func (m *MemoryStore) SaveSlot(_ context.Context, snap ntv.SlotSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[snap.Ordinal] = snap
	return nil
}

// Load returns the stored state; found is false until the first save.
func (m *MemoryStore) Load(_ context.Context) (ntv.RegistrySnapshot, []ntv.SlotSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.found {
		return ntv.RegistrySnapshot{}, nil, false, nil
	}
	slots := make([]ntv.SlotSnapshot, 0, len(m.slots))
	for i := 0; i < len(m.slots); i++ {
		slots = append(slots, m.slots[i])
	}
	return m.registry, slots, true, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

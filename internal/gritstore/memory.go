package gritstore

import (
	"context"
	"strings"
	"sync"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

// MemoryStore is an in-process Store backed by plain maps guarded by a
// single RWMutex. Object writes are commutative under content addressing so
// a single lock is never a bottleneck in practice; the reference namespace
// is the only state that actually needs serialized writes (spec.md §4.1).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[grit.ObjectId]grit.Object
	refs    map[string]grit.ObjectId
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[grit.ObjectId]grit.Object),
		refs:    make(map[string]grit.ObjectId),
	}
}

func (m *MemoryStore) Put(_ context.Context, o grit.Object) (grit.ObjectId, error) {
	id := grit.Hash(o)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.objects[id]; !exists {
		m.objects[id] = o
	}
	return id, nil
}

func (m *MemoryStore) Get(_ context.Context, id grit.ObjectId) (grit.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.objects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) SetRef(_ context.Context, name string, id grit.ObjectId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs[name] = id
	return nil
}

func (m *MemoryStore) GetRef(_ context.Context, name string) (grit.ObjectId, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.refs[name]
	if !ok {
		return grit.ObjectId{}, ErrNotFound
	}
	return id, nil
}

func (m *MemoryStore) GetRefs(
	_ context.Context, prefix string,
) (map[string]grit.ObjectId, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]grit.ObjectId)
	for name, id := range m.refs {
		if strings.HasPrefix(name, prefix) {
			out[name] = id
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteRef(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.refs, name)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

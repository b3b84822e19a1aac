package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Used by tests and by the dashboard
// when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]map[string]string
	lastSeen map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]map[string]string),
		lastSeen: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Client(clientID string) KV {
	return &memoryKV{store: m, clientID: clientID}
}

func (m *MemoryStore) Touch(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen[clientID] = time.Now()
	return nil
}

func (m *MemoryStore) DeleteClient(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, clientID)
	delete(m.lastSeen, clientID)
	return nil
}

func (m *MemoryStore) DeleteIdleClients(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, seen := range m.lastSeen {
		if seen.Before(before) {
			delete(m.data, id)
			delete(m.lastSeen, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }

type memoryKV struct {
	store    *MemoryStore
	clientID string
}

func (kv *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.store.mu.Lock()
	defer kv.store.mu.Unlock()
	v, ok := kv.store.data[kv.clientID][key]
	return v, ok, nil
}

func (kv *memoryKV) Set(_ context.Context, key, value string) error {
	kv.store.mu.Lock()
	defer kv.store.mu.Unlock()
	if kv.store.data[kv.clientID] == nil {
		kv.store.data[kv.clientID] = make(map[string]string)
	}
	kv.store.data[kv.clientID][key] = value
	return nil
}

func (kv *memoryKV) Delete(_ context.Context, key string) error {
	kv.store.mu.Lock()
	defer kv.store.mu.Unlock()
	delete(kv.store.data[kv.clientID], key)
	return nil
}

// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is a lightweight persistence layer used in tests, or when durability
// is not required.
//
// Characteristics:
//   - Values are stored as marshaled JSON, so round-trips behave exactly
//     like the durable backends.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes
//     exclusive).
//   - State is lost when the process restarts.

package store

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory constructs a new in-memory Store.
func NewMemory() Store {
	return &memory{values: make(map[string]string)}
}

func (m *memory) Get(key string, out any) bool {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt store entry, treating as absent")
		return false
	}
	return true
}

func (m *memory) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("marshal store value")
		return
	}
	m.mu.Lock()
	m.values[key] = string(raw)
	m.mu.Unlock()
}

func (m *memory) Remove(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

func (m *memory) Clear() {
	m.mu.Lock()
	m.values = make(map[string]string)
	m.mu.Unlock()
}

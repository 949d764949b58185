package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/vigil/internal/adapters/driven/config"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps configuration in a map. Keys use the same dotted form
// as the TOML store ("analysis.workers"). It is used by tests and by
// callers that assemble settings programmatically.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
	writes int
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return NewConfigStoreFrom(nil)
}

// NewConfigStoreFrom returns a store seeded with a copy of values.
func NewConfigStoreFrom(values map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any, len(values))}
	maps.Copy(s.values, values)
	return s
}

// Get returns the raw value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) lookup(key string) any {
	v, _ := s.Get(key)
	return v
}

func (s *ConfigStore) GetString(key string) string { return config.AsString(s.lookup(key)) }

func (s *ConfigStore) GetInt(key string) int { return config.AsInt(s.lookup(key)) }

func (s *ConfigStore) GetFloat(key string) float64 { return config.AsFloat(s.lookup(key)) }

func (s *ConfigStore) GetBool(key string) bool { return config.AsBool(s.lookup(key)) }

func (s *ConfigStore) GetStringSlice(key string) []string {
	return config.AsStringSlice(s.lookup(key))
}

// Set stores value under key and counts the write.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

// Writes reports how many Set calls the store has seen.
func (s *ConfigStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Load is a no-op.
func (s *ConfigStore) Load() error { return nil }

// Path returns a placeholder used in error messages.
func (s *ConfigStore) Path() string { return ":memory:" }

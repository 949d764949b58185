package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/vigil/internal/adapters/driven/config"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFileName is the name of the TOML file inside the config directory.
const ConfigFileName = "config.toml"

// ConfigStore reads and writes ~/.vigil/config.toml. The decoded document
// is kept as a tree of TOML tables; dotted keys ("analysis.workers") walk
// the tree, and Set creates intermediate tables as needed.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	tree     map[string]any
}

// NewConfigStore opens the config file in configDir, or ~/.vigil when
// configDir is empty. A missing file is an empty configuration.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".vigil")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, ConfigFileName),
		tree:     make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the value at a dotted key. Tables are not values.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.tree
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}
	v, ok := node[parts[len(parts)-1]]
	if _, isTable := v.(map[string]any); isTable {
		return nil, false
	}
	return v, ok
}

func (s *ConfigStore) lookup(key string) any {
	v, _ := s.Get(key)
	return v
}

// GetString returns a string value or "".
func (s *ConfigStore) GetString(key string) string { return config.AsString(s.lookup(key)) }

// GetInt returns an integer value or 0.
func (s *ConfigStore) GetInt(key string) int { return config.AsInt(s.lookup(key)) }

// GetFloat returns a numeric value or 0.
func (s *ConfigStore) GetFloat(key string) float64 { return config.AsFloat(s.lookup(key)) }

// GetBool returns a boolean value or false.
func (s *ConfigStore) GetBool(key string) bool { return config.AsBool(s.lookup(key)) }

// GetStringSlice returns a string array or nil.
func (s *ConfigStore) GetStringSlice(key string) []string {
	return config.AsStringSlice(s.lookup(key))
}

// Set stores value at a dotted key and rewrites the file.
// Setting a key below an existing scalar is an error.
func (s *ConfigStore) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: empty config key", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.tree
	parts := strings.Split(key, ".")
	for i, part := range parts[:len(parts)-1] {
		child, exists := node[part]
		if !exists {
			next := make(map[string]any)
			node[part] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is not a table", domain.ErrInvalidInput, strings.Join(parts[:i+1], "."))
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
	return s.write()
}

// write replaces the file atomically. Caller holds the lock.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(s.tree)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Load re-reads the file, discarding unsaved state.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.tree = make(map[string]any)
		return nil
	}
	if err != nil {
		return err
	}

	tree := make(map[string]any)
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.tree = tree
	return nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

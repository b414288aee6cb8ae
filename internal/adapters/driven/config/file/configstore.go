package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// DirName is the per-user directory holding config, prompts and the database.
const DirName = ".deep-researcher"

const configFile = "config.toml"

// ConfigStore persists settings to config.toml. Keys stay flat in memory;
// on disk "embedding.provider" is written inside an [embedding] table.
type ConfigStore struct {
	*memory.ConfigStore

	writeMu sync.Mutex
	path    string
}

// DefaultDir returns ~/.deep-researcher.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// NewConfigStore opens dir/config.toml, creating dir if needed. An empty
// dir means DefaultDir. A missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	s := &ConfigStore{
		ConfigStore: memory.NewConfigStore(),
		path:        filepath.Join(dir, configFile),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set stores value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.ConfigStore.Set(key, value)
	return s.write()
}

// Load replaces the in-memory settings with the file's contents.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	flat := make(map[string]any)
	flatten(flat, "", tree)
	s.Replace(flat)
	return nil
}

// Path returns the config file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// write saves with owner-only permissions since API keys live here.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nest(s.Snapshot()))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// flatten copies tree into out under dotted keys.
func flatten(out map[string]any, prefix string, tree map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(out, k, table)
			continue
		}
		out[k] = v
	}
}

// nest turns dotted keys back into tables. When a key is both a value and
// a table prefix, the value stays at the top level under its full name.
func nest(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		parts := strings.Split(key, ".")
		if table, ok := walk(root, parts[:len(parts)-1]); ok {
			table[parts[len(parts)-1]] = flat[key]
		} else {
			root[key] = flat[key]
		}
	}
	return root
}

// walk descends through path, creating tables as needed. It fails when a
// step is already a plain value.
func walk(root map[string]any, path []string) (map[string]any, bool) {
	node := root
	for _, part := range path {
		child, exists := node[part]
		if !exists {
			next := make(map[string]any)
			node[part] = next
			node = next
			continue
		}
		table, ok := child.(map[string]any)
		if !ok {
			return nil, false
		}
		node = table
	}
	return node, true
}

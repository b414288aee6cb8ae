package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults
var defaultsFS embed.FS

// verb matches a fmt verb; "%%" is a literal percent and is skipped.
var verb = regexp.MustCompile(`%[-+# 0]*[0-9]*(?:\.[0-9]+)?[a-zA-Z%]`)

// PromptStore serves prompt templates from a directory the user may edit.
// The directory is seeded with the built-in templates on first use, not at
// construction. A file that is missing, unreadable or has the wrong
// placeholders gives way to the built-in template.
type PromptStore struct {
	dir string

	seedOnce sync.Once

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store over dir, defaulting to
// ~/.deep-researcher/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locate prompt dir: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, ok := defaultPrompt(name)
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	s.seedOnce.Do(s.seed)

	s.mu.RLock()
	cached, hit := s.cache[name]
	s.mu.RUnlock()
	if hit {
		return cached, nil
	}

	tmpl := s.read(name, builtin)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, hit := s.cache[name]; hit {
		return cached, nil
	}
	s.cache[name] = tmpl
	return tmpl, nil
}

// Reload forgets cached templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// read returns the user's template when it is usable, else builtin.
func (s *PromptStore) read(name, builtin string) string {
	raw, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Reading prompt %s: %v", name, err)
		}
		return builtin
	}
	tmpl := strings.TrimSpace(string(raw))
	if !slices.Equal(verbs(tmpl), verbs(builtin)) {
		logger.Warn("Prompt %s has placeholders %v, want %v; using the built-in prompt",
			name, verbs(tmpl), verbs(builtin))
		return builtin
	}
	return tmpl
}

// seed copies any missing built-in files into the directory. Failure is
// logged and otherwise ignored, since the built-ins still serve.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		logger.Warn("Creating prompt dir %s: %v", s.dir, err)
		return
	}
	entries, err := defaultsFS.ReadDir("defaults")
	if err != nil {
		logger.Warn("Listing built-in prompts: %v", err)
		return
	}
	for _, e := range entries {
		dst := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaultsFS.ReadFile("defaults/" + e.Name())
		if err == nil {
			err = os.WriteFile(dst, data, 0o600)
		}
		if err != nil {
			logger.Warn("Seeding prompt %s: %v", e.Name(), err)
		}
	}
}

func defaultPrompt(name string) (string, bool) {
	data, err := defaultsFS.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// verbs lists the fmt verbs of tmpl in order, ignoring "%%".
func verbs(tmpl string) []string {
	var out []string
	for _, v := range verb.FindAllString(tmpl, -1) {
		if v != "%%" {
			out = append(out, v[len(v)-1:])
		}
	}
	return out
}

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"bodhi/pkg/chat"
	"bodhi/pkg/logging"
)

const defaultReloadDelay = 300 * time.Millisecond

// Alias is a named model configuration loaded from an alias YAML file.
type Alias struct {
	Alias    string `yaml:"alias"`
	Repo     string `yaml:"repo"`
	Filename string `yaml:"filename"`
	Snapshot string `yaml:"snapshot,omitempty"`

	// ChatTemplate selects where the template comes from: a known template
	// id, an owner/name repository, or "embedded".
	ChatTemplate string `yaml:"chat_template"`

	// Embedded is the template used when ChatTemplate is "embedded". It has
	// the same shape as a tokenizer configuration.
	Embedded map[string]interface{} `yaml:"embedded_template,omitempty"`

	// Source is the file the alias was loaded from.
	Source string `yaml:"-"`
}

// Registry holds the aliases found in a directory of YAML files.
type Registry struct {
	dir string

	mu      sync.RWMutex
	aliases map[string]Alias
}

// NewRegistry returns an empty registry for dir. Call Load to read it.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, aliases: make(map[string]Alias)}
}

// LoadRegistry creates a registry and loads it from dir.
func LoadRegistry(dir string) (*Registry, error) {
	r := NewRegistry(dir)
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the directory backing the registry.
func (r *Registry) Dir() string {
	return r.dir
}

// Load replaces the registry contents with the aliases currently on disk.
// Malformed files are logged and skipped. A missing directory yields an
// empty registry.
func (r *Registry) Load() error {
	aliases := make(map[string]Alias)

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read alias directory %s: %w", r.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		a, err := loadAliasFile(path)
		if err != nil {
			logging.Error("AliasRegistry", err, "Failed to load alias from %s", path)
			continue
		}
		if prev, ok := aliases[a.Alias]; ok {
			logging.Warn("AliasRegistry", "Alias %s in %s overrides %s", a.Alias, path, prev.Source)
		}
		aliases[a.Alias] = *a
	}

	r.mu.Lock()
	r.aliases = aliases
	r.mu.Unlock()

	logging.Debug("AliasRegistry", "Loaded %d aliases from %s", len(aliases), r.dir)
	return nil
}

func loadAliasFile(path string) (*Alias, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	var a Alias
	if err := yaml.Unmarshal(content, &a); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	if a.Alias == "" {
		return nil, fmt.Errorf("alias file %s has no alias name", path)
	}
	a.Source = path
	return &a, nil
}

// Get returns the alias called name.
func (r *Registry) Get(name string) (Alias, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.aliases[name]
	return a, ok
}

// List returns all aliases sorted by name.
func (r *Registry) List() []Alias {
	r.mu.RLock()
	out := make([]Alias, 0, len(r.aliases))
	for _, a := range r.aliases {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ModelChatTemplate returns the template embedded in the alias record.
func (r *Registry) ModelChatTemplate(alias string) (*chat.Template, error) {
	a, ok := r.Get(alias)
	if !ok || len(a.Embedded) == 0 {
		return nil, &UnknownAliasError{Alias: alias}
	}

	data, err := json.Marshal(a.Embedded)
	if err != nil {
		return nil, &chat.ParseError{Err: err}
	}
	tmpl, err := chat.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Watch reloads the registry whenever a YAML file in its directory changes,
// until ctx is cancelled. Bursts of events trigger a single reload.
func (r *Registry) Watch(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create alias directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return err
	}

	logging.Info("AliasRegistry", "Watching %s for alias changes", r.dir)

	go func() {
		defer watcher.Close()

		var reload <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isYAMLFile(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				reload = time.After(defaultReloadDelay)

			case <-reload:
				reload = nil
				if err := r.Load(); err != nil {
					logging.Error("AliasRegistry", err, "Failed to reload aliases")
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Error("AliasRegistry", err, "Filesystem watcher error")
			}
		}
	}()

	return nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

package persona

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Registry holds loaded personas keyed by name. The built-in persona is
// always available and is the fallback for unknown names.
type Registry struct {
	dir      string
	mu       sync.RWMutex
	personas map[string]*Prompts
}

// NewRegistry creates a registry for persona files in dir. An empty dir
// yields a registry that only serves the built-in persona.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:      dir,
		personas: make(map[string]*Prompts),
	}
}

// Load scans the persona directory and loads every .yaml/.yml file. Files
// that fail to load are logged and skipped; loading never fails the whole
// registry.
func (r *Registry) Load() error {
	if r.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	loaded := make(map[string]*Prompts)
	for _, entry := range entries {
		if entry.IsDir() || !isPersonaFile(entry.Name()) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		p, err := LoadFile(path)
		if err != nil {
			log.Printf("[persona] skipping %s: %v", entry.Name(), err)
			continue
		}
		loaded[p.Name] = p
	}

	r.mu.Lock()
	r.personas = loaded
	r.mu.Unlock()
	return nil
}

// Get returns the persona with the given name, or the built-in persona when
// the name is empty or unknown.
func (r *Registry) Get(name string) *Prompts {
	r.mu.RLock()
	p, ok := r.personas[name]
	r.mu.RUnlock()
	if ok {
		return p
	}
	return Builtin()
}

// Names returns the loaded persona names in sorted order, always including
// the built-in persona.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.personas)+1)
	for name := range r.personas {
		names = append(names, name)
	}
	r.mu.RUnlock()

	builtin := Builtin().Name
	found := false
	for _, n := range names {
		if n == builtin {
			found = true
			break
		}
	}
	if !found {
		names = append(names, builtin)
	}
	sort.Strings(names)
	return names
}

// Watch reloads the registry whenever a persona file changes. It blocks
// until the context is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPersonaFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				log.Printf("[persona] %s changed, reloading", filepath.Base(event.Name))
				if err := r.Load(); err != nil {
					log.Printf("[persona] reload failed: %v", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[persona] watch error: %v", err)
		}
	}
}

func isPersonaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

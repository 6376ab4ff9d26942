package templates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DirSource reads templates from a directory and caches them until the
// files change.
type DirSource struct {
	root   string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]Template
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string, logger *zap.Logger) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template directory %s is not a directory", dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirSource{root: dir, logger: logger, cache: make(map[string]Template)}, nil
}

// Load returns the named template.
func (d *DirSource) Load(ctx context.Context, name string) (Template, error) {
	if err := validName(name); err != nil {
		return Template{}, err
	}
	d.mu.RLock()
	t, ok := d.cache[name]
	d.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := d.read(name)
	if err != nil {
		return Template{}, err
	}
	d.mu.Lock()
	d.cache[name] = t
	d.mu.Unlock()
	return t, nil
}

func (d *DirSource) read(name string) (Template, error) {
	combined, err := os.ReadFile(filepath.Join(d.root, name+Extension))
	if err == nil {
		return FromCombined(name, string(combined))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Template{}, fmt.Errorf("reading template %s: %w", name, err)
	}

	domain, err := os.ReadFile(filepath.Join(d.root, name, DomainFile))
	if errors.Is(err, os.ErrNotExist) {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Template{}, fmt.Errorf("reading template %s: %w", name, err)
	}
	problem, err := os.ReadFile(filepath.Join(d.root, name, ProblemFile))
	if err != nil {
		return Template{}, fmt.Errorf("reading template %s: %w", name, err)
	}
	t := Template{Name: name, Domain: strings.TrimSpace(string(domain)), Problem: strings.TrimSpace(string(problem))}
	return t, t.Validate()
}

// List returns the names of the stored templates.
func (d *DirSource) List(ctx context.Context) ([]string, error) {
	names := make(map[string]struct{})
	err := filepath.WalkDir(d.root, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		if name, ok := templateName(filepath.ToSlash(rel)); ok {
			names[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	return sortedNames(names), nil
}

// Invalidate drops a cached template.
func (d *DirSource) Invalidate(name string) {
	d.mu.Lock()
	delete(d.cache, name)
	d.mu.Unlock()
}

// Watch invalidates cached templates when their files change and calls
// onChange with the template name, until ctx is done.
func (d *DirSource) Watch(ctx context.Context, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := d.addDirs(watcher); err != nil {
		return err
	}
	d.logger.Info("watching templates", zap.String("dir", d.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			d.handle(watcher, event, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			d.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

// addDirs watches the root and its direct subdirectories.
func (d *DirSource) addDirs(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(d.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.root, err)
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", d.root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(d.root, entry.Name())); err != nil {
				return fmt.Errorf("failed to watch %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

func (d *DirSource) handle(watcher *fsnotify.Watcher, event fsnotify.Event, onChange func(string)) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	rel, err := filepath.Rel(d.root, event.Name)
	if err != nil {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && filepath.Dir(event.Name) == filepath.Clean(d.root) {
			if err := watcher.Add(event.Name); err != nil {
				d.logger.Warn("failed to watch new template directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	name, ok := templateName(filepath.ToSlash(rel))
	if !ok {
		return
	}
	d.Invalidate(name)
	d.logger.Debug("template changed", zap.String("template", name), zap.String("op", event.Op.String()))
	if onChange != nil {
		onChange(name)
	}
}

// Package file implements kv.Store as one JSON file per key inside a
// directory. Writes are atomic renames; Watch reports edits made by other
// processes so a running service can reload them.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"deskcore/internal/kv"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const ext = ".json"

var (
	_ kv.Store   = (*Store)(nil)
	_ kv.Watcher = (*Store)(nil)

	validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// Store keeps each value in <dir>/<key>.json.
type Store struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	written map[string][]byte
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the watcher.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates dir when missing.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("file store: directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	s := &Store{dir: dir, logger: zap.NewNop(), written: make(map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+ext), nil
}

// Get implements kv.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) // #nosec G304 -- key is validated against validKey
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put implements kv.Store by writing a temp file and renaming it into place.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+ext+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	s.mu.Lock()
	s.written[key] = slices.Clone(value)
	s.mu.Unlock()
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Delete implements kv.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.written, key)
	s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys implements kv.Store.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if key, ok := keyOf(e.Name()); ok && !e.IsDir() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close implements kv.Store.
func (s *Store) Close() error { return nil }

func keyOf(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	key := strings.TrimSuffix(name, ext)
	return key, validKey.MatchString(key)
}

// Watch reports changes to keys made by other writers until ctx is done.
// Writes performed through this Store are not reported.
func (s *Store) Watch(ctx context.Context) (<-chan kv.Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}
	out := make(chan kv.Event, 16)
	go func() {
		defer close(out)
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				event, ok := s.translate(ev)
				if !ok {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("file store watch error", zap.String("dir", s.dir), zap.Error(err))
			}
		}
	}()
	return out, nil
}

func (s *Store) translate(ev fsnotify.Event) (kv.Event, bool) {
	key, ok := keyOf(filepath.Base(ev.Name))
	if !ok {
		return kv.Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if _, err := os.Stat(ev.Name); err == nil {
			return s.contentEvent(key, ev.Name)
		}
		s.mu.Lock()
		delete(s.written, key)
		s.mu.Unlock()
		return kv.Event{Key: key, Deleted: true}, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return s.contentEvent(key, ev.Name)
	}
	return kv.Event{}, false
}

func (s *Store) contentEvent(key, path string) (kv.Event, bool) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the watched directory
	if err != nil {
		return kv.Event{}, false
	}
	s.mu.Lock()
	last, seen := s.written[key]
	s.mu.Unlock()
	if seen && bytes.Equal(last, data) {
		return kv.Event{}, false
	}
	s.logger.Debug("external change", zap.String("key", key))
	return kv.Event{Key: key}, true
}

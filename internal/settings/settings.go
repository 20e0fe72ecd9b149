// Package settings is a persisted key/value settings store backed by a
// flat YAML mapping. Observers are notified after a key's value changes,
// whether through Set or through an external edit picked up by Watch.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"gesturekeys/internal/keyhandler"
)

// Store is a file-backed settings store. It is safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	values    map[string]string
	observers map[string]map[uint64]keyhandler.SettingsObserver
	nextID    uint64
}

// Open loads path. A missing file is an empty store; it is created on the
// first Set.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:      path,
		logger:    logger.With("component", "settings"),
		values:    map[string]string{},
		observers: map[string]map[uint64]keyhandler.SettingsObserver{},
	}
	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Bool parses the value with strconv.ParseBool. Unset or unparsable values
// return def.
func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.String(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Store) String(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// All returns a copy of every stored value.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Set stores and persists value, then notifies observers of key if it
// changed.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	if old, ok := s.values[key]; ok && old == value {
		s.mu.Unlock()
		return nil
	}
	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value
	if err := writeFile(s.path, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.values = next
	s.mu.Unlock()

	s.notify([]string{key})
	return nil
}

// Observe registers o for changes to key.
func (s *Store) Observe(key string, o keyhandler.SettingsObserver) keyhandler.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.observers[key] == nil {
		s.observers[key] = map[uint64]keyhandler.SettingsObserver{}
	}
	s.observers[key][id] = o
	return &subscription{store: s, key: key, id: id}
}

type subscription struct {
	store *Store
	key   string
	id    uint64
	once  sync.Once
}

func (sub *subscription) Close() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()
		delete(sub.store.observers[sub.key], sub.id)
	})
}

// Reload rereads the file and notifies observers of every key whose value
// changed, appeared or disappeared.
func (s *Store) Reload() error {
	values, err := readFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := diff(s.values, values)
	s.values = values
	s.mu.Unlock()

	if len(changed) > 0 {
		s.logger.Debug("settings reloaded", "changed", changed)
		s.notify(changed)
	}
	return nil
}

func (s *Store) notify(keys []string) {
	for _, key := range keys {
		s.mu.Lock()
		obs := make([]keyhandler.SettingsObserver, 0, len(s.observers[key]))
		for _, o := range s.observers[key] {
			obs = append(obs, o)
		}
		s.mu.Unlock()

		for _, o := range obs {
			o.OnSettingChanged(key)
		}
	}
}

func diff(old, cur map[string]string) []string {
	var changed []string
	for k, v := range cur {
		if ov, ok := old[k]; !ok || ov != v {
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := cur[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (map[string]string, error) {
	raw := map[string]any{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			// "key:" with no value is unset
		case string:
			values[k] = v
		case bool, int, float64:
			values[k] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("parse settings: %s: unsupported value type %T", k, v)
		}
	}
	return values, nil
}

// writeFile replaces path atomically so a concurrent reader never sees a
// partial file.
func writeFile(path string, values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

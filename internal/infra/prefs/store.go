// Package prefs persists user preferences as TOML and watches the file
// for external edits.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// FileName is the preferences file inside the data directory.
const FileName = "preferences.toml"

// Store is a file-backed domain.PreferencesStore.
type Store struct {
	path string

	mu    sync.RWMutex
	prefs domain.Preferences
}

// Open loads dir/preferences.toml, creating it with defaults if missing.
// A file that cannot be parsed is moved aside and replaced by defaults.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{path: filepath.Join(dir, FileName)}

	p, err := readFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		p = domain.DefaultPreferences()
		if err := writeFile(s.path, p); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrPreferencesCorrupt):
		fmt.Fprintf(os.Stderr, "WARNING: %v; restoring defaults\n", err)
		backupCorrupt(s.path)
		p = domain.DefaultPreferences()
		if err := writeFile(s.path, p); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	s.prefs = p
	return s, nil
}

// Path returns the preferences file location.
func (s *Store) Path() string { return s.path }

// Get returns the reminder configuration.
func (s *Store) Get() domain.ReminderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.ReminderConfig()
}

// Preferences returns the full stored preferences.
func (s *Store) Preferences() domain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Set applies update, writes the file, and echoes the normalized config.
func (s *Store) Set(update domain.PreferencesUpdate) (domain.ReminderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.prefs.Apply(update)
	if err != nil {
		return domain.ReminderConfig{}, err
	}
	if next != s.prefs {
		if err := writeFile(s.path, next); err != nil {
			return domain.ReminderConfig{}, err
		}
		s.prefs = next
	}
	return next.ReminderConfig(), nil
}

// Save rewrites the file from the in-memory preferences. Used to restore
// a deleted file.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return writeFile(s.path, s.prefs)
}

// Reload re-reads the file. It reports whether the preferences changed.
// A corrupt file is left alone and the current values are kept, since an
// editor may be halfway through writing it.
func (s *Store) Reload() (bool, error) {
	p, err := readFile(s.path)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == s.prefs {
		return false, nil
	}
	s.prefs = p
	return true, nil
}

// ─── File I/O ───────────────────────────────────────────────────────────────

// readFile decodes onto defaults so missing keys keep their default value.
func readFile(path string) (domain.Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Preferences{}, err
	}
	p := domain.DefaultPreferences()
	if _, err := toml.Decode(string(data), &p); err != nil {
		return domain.Preferences{}, fmt.Errorf("%w: %s: %v", domain.ErrPreferencesCorrupt, path, err)
	}
	return p.Normalize(), nil
}

// writeFile replaces path atomically.
func writeFile(path string, p domain.Preferences) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".preferences-*.toml")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// backupCorrupt moves path to path.corrupt, or path.corrupt.N if that
// already exists. If the move fails the file is removed.
func backupCorrupt(path string) {
	backup := path + ".corrupt"
	for n := 1; fileExists(backup); n++ {
		backup = fmt.Sprintf("%s.corrupt.%d", path, n)
	}
	if err := os.Rename(path, backup); err != nil {
		log.Printf("[prefs] backup corrupt preferences: %v; removing file", err)
		_ = os.Remove(path)
		return
	}
	log.Printf("[prefs] moved corrupt preferences to %s", backup)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package config

import "sync"

// Store owns the live configuration. Readers take value snapshots; the
// only way to change it is Update or Reload.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// NewStore wraps an already loaded config
func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: *cfg}
}

// Open loads path into a new store
func Open(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(path, cfg), nil
}

// Path is the backing file
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current config
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to a copy, validates and persists it, then swaps it
// in. The live config is untouched on any error.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	if err := next.Save(s.path); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// Reload re-reads the backing file
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = *cfg
	s.mu.Unlock()
	return nil
}

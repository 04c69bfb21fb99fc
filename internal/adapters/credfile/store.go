// Package credfile persists the saved network in a TOML file and announces
// changes on the event bus.
package credfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// DefaultFileName is the credential file name inside the state directory.
const DefaultFileName = "credentials.toml"

// Store implements ports.CredentialStore and ports.CredentialWriter on top
// of a TOML file. Reads are served from memory.
type Store struct {
	path   string
	bus    ports.EventBus
	logger ports.Logger

	mu    sync.RWMutex
	creds *domain.Credentials
}

// NewStore creates a store for the file at path. Call Load to read it.
func NewStore(path string, bus ports.EventBus, logger ports.Logger) *Store {
	return &Store{path: path, bus: bus, logger: logger}
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the cached credentials.
func (s *Store) Get() (domain.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return domain.Credentials{}, false
	}
	return *s.creds, true
}

// Load reads the file into the cache without publishing. A missing file
// leaves the store empty.
func (s *Store) Load() error {
	creds, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Save validates and persists creds, then publishes EventCredentialsFound.
func (s *Store) Save(creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.write(data); err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = &creds
	s.mu.Unlock()

	s.logger.Info("credentials saved", ports.String("ssid", creds.Identifier), ports.String("path", s.path))
	s.announce(domain.EventCredentialsFound)
	return nil
}

// Clear removes the file and publishes EventCredentialsMissing.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}

	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()

	s.logger.Info("credentials cleared", ports.String("path", s.path))
	s.announce(domain.EventCredentialsMissing)
	return nil
}

// Reload rereads the file and publishes only when its content differs from
// the cache. It reports whether anything changed.
func (s *Store) Reload() (bool, error) {
	creds, err := s.read()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if equal(s.creds, creds) {
		s.mu.Unlock()
		return false, nil
	}
	s.creds = creds
	s.mu.Unlock()

	if creds == nil {
		s.logger.Info("credentials removed externally", ports.String("path", s.path))
		s.announce(domain.EventCredentialsMissing)
	} else {
		s.logger.Info("credentials changed externally", ports.String("ssid", creds.Identifier))
		s.announce(domain.EventCredentialsFound)
	}
	return true, nil
}

func (s *Store) read() (*domain.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds domain.Credentials
	if err := toml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if creds.Identifier == "" {
		return nil, nil
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &creds, nil
}

// write replaces the file atomically.
func (s *Store) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *Store) announce(t domain.EventType) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(domain.Event{Type: t, At: time.Now()}); err != nil {
		s.logger.Warn("publish credential event failed", ports.String("event", t.String()), ports.Err(err))
	}
}

func equal(a, b *domain.Credentials) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

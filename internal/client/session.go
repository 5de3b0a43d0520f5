package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultSessionMaxAge is how long a persisted session is trusted without use
const DefaultSessionMaxAge = 24 * time.Hour

// ErrNoSession is returned when no usable session is persisted
var ErrNoSession = errors.New("no persisted session")

// PersistedSession is what survives a reload. RoomID is the room's stable
// identifier, which on this server is its code.
type PersistedSession struct {
	RoomCode     string `json:"roomCode"`
	RoomID       string `json:"roomId"`
	PlayerID     string `json:"playerId"`
	SessionToken string `json:"sessionToken"`
	IsAdmin      bool   `json:"isAdmin"`
	Timestamp    int64  `json:"timestamp"`
}

// Complete reports whether every field needed to resume is present
func (s *PersistedSession) Complete() bool {
	return s != nil && s.RoomCode != "" && s.PlayerID != "" && s.SessionToken != ""
}

// Expired reports whether the session was saved more than maxAge before now
func (s *PersistedSession) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(time.UnixMilli(s.Timestamp)) > maxAge
}

// LocalStore persists at most one session
type LocalStore interface {
	Load() (*PersistedSession, error)
	Save(s *PersistedSession) error
	Clear() error
}

// MemoryStore keeps the session in memory
type MemoryStore struct {
	mu      sync.Mutex
	session *PersistedSession
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*PersistedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNoSession
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStore) Save(s *PersistedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.session = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	return nil
}

// FileStore keeps the session as a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the session. A missing or unreadable file counts as no session.
func (f *FileStore) Load() (*PersistedSession, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s PersistedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: corrupt session file", ErrNoSession)
	}
	return &s, nil
}

// Save writes the session atomically
func (f *FileStore) Save(s *PersistedSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/cinegraph/core"
)

// Store persists per-session conversation histories.
type Store interface {
	// Load returns the stored turns for the session; a session never seen
	// before yields an empty history, not an error.
	Load(ctx context.Context, sessionID string) ([]core.Turn, error)
	// Save replaces the stored turns for the session.
	Save(ctx context.Context, sessionID string, turns []core.Turn) error
}

// InMemoryStore keeps session histories in a process-local map.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Turn
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]core.Turn)}
}

// Load implements Store.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]core.Turn, len(s.sessions[sessionID]))
	copy(turns, s.sessions[sessionID])
	return turns, nil
}

// Save implements Store.
func (s *InMemoryStore) Save(_ context.Context, sessionID string, turns []core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]core.Turn, len(turns))
	copy(stored, turns)
	s.sessions[sessionID] = stored
	return nil
}

// FileStore persists each session as a JSON file under a directory. Writes
// go through a temp file and rename so a crash never leaves a torn history.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", sessionID))
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, sessionID string) ([]core.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	var turns []core.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return turns, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, sessionID string, turns []core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	tmp := s.path(sessionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sessionID, err)
	}
	if err := os.Rename(tmp, s.path(sessionID)); err != nil {
		return fmt.Errorf("commit session %s: %w", sessionID, err)
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoyleJ11/bluffparty/internal/game"
)

// Memory keeps everything in process. Sessions are cloned on the way in and
// out so callers never share slices with the store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]game.Session
	creds    map[string]Credentials
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]game.Session),
		creds:    make(map[string]Credentials),
	}
}

func (m *Memory) SaveSession(_ context.Context, room string, s game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[room] = s.Clone()
	return nil
}

func (m *Memory) LoadSession(_ context.Context, room string) (game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[room]
	if !ok {
		return game.Session{}, fmt.Errorf("session %s: %w", room, ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *Memory) SaveCredentials(_ context.Context, profile string, c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[profile] = c
	return nil
}

func (m *Memory) LoadCredentials(_ context.Context, profile string) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[profile]
	if !ok {
		return Credentials{}, fmt.Errorf("credentials %s: %w", profile, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) ClearCredentials(_ context.Context, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, profile)
	return nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)

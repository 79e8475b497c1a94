package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
)

// Store is the persistence contract used by the router. Implementations hold
// one record per session id; no cross-session queries are required.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	CreateOrGet(ctx context.Context, sessionID string, channel contractx.ChannelKind, now time.Time) (*Session, error)
	Commit(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps sessions in process memory. Sessions are copied on the
// way in and out so the only mutation path is Commit.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) CreateOrGet(ctx context.Context, sessionID string, channel contractx.ChannelKind, now time.Time) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s.Clone(), nil
	}
	s := NewSession(sessionID, channel, now)
	m.sessions[sessionID] = s.Clone()
	return s, nil
}

func (m *MemoryStore) Commit(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

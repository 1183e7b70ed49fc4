package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/service"
	"github.com/wricardo/mcp-training/codemaze/pkg/logger"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

const (
	idBytes = 2
	// maxIDAttempts bounds retries when a generated ID collides.
	maxIDAttempts = 8
)

// Manager is the session table. Keys are lower-cased IDs.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*service.Session)}
}

func key(id string) string { return strings.ToLower(id) }

// Create starts a session on level. An empty id asks for a generated one.
func (m *Manager) Create(id string, level *engine.Level, opts engine.Options) (*service.Session, error) {
	if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/ ") {
		return nil, ErrInvalidSessionID
	}

	eng, err := engine.NewEngine(level, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id, err = m.freeID()
		if err != nil {
			eng.Close()
			return nil, err
		}
	}
	if _, taken := m.sessions[key(id)]; taken {
		eng.Close()
		return nil, ErrSessionAlreadyExists
	}

	sess := service.NewSession(id, eng, time.Now())
	m.sessions[key(id)] = sess
	return sess, nil
}

// freeID draws IDs until one is unused. Caller holds mu.
func (m *Manager) freeID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := newSessionID()
		if err != nil {
			return "", err
		}
		if _, taken := m.sessions[key(id)]; !taken {
			return id, nil
		}
	}
	return "", ErrSessionAlreadyExists
}

func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[key(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns the sessions in no particular order.
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Delete removes the session and stops its sequencer.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Engine.Close()
	delete(m.sessions, key(id))
	return nil
}

func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions drops sessions idle for longer than maxAge and
// reports how many went.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) {
			sess.Engine.Close()
			delete(m.sessions, k)
			removed++
		}
	}
	return removed
}

// RunCleanup reaps idle sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Log.WithField("removed", removed).Info("expired sessions cleaned up")
			}
		}
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func newSessionID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

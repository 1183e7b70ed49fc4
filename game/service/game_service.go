package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
)

var (
	ErrLevelNotFound    = errors.New("level not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoActivePlayback = engine.ErrNoActivePlayback
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, level int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Playing a level
	SelectLevel(ctx context.Context, sessionID string, level int) (*LevelSelection, error)
	CheckCode(ctx context.Context, sessionID string, surface grammar.CodeSurface) (*grammar.Result, error)
	SubmitCode(ctx context.Context, sessionID, code string) (*PlayResult, error)
	AnimationFinished(ctx context.Context, sessionID, playbackID string, index int) (*PlayResult, error)
	Retry(ctx context.Context, sessionID string) (*PlayResult, error)
	Run(ctx context.Context, sessionID, code string, reset bool) (*RunResult, error)

	// Game State
	GetState(ctx context.Context, sessionID string) (*engine.ExecutionState, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	GetLevel(ctx context.Context, level int) (*engine.Level, error)
	SaveLevel(ctx context.Context, level *engine.Level) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, level *engine.Level, opts engine.Options) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles level catalog loading
type ConfigManager interface {
	LoadLevel(number int) (*engine.Level, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() *engine.Level
	NextLevel(number int) (*engine.Level, bool)
	SaveLevel(level *engine.Level) error
}

// Notifier pushes session events to connected clients
type Notifier interface {
	NotifyState(sessionID string, state engine.ExecutionState)
	NotifyFrame(sessionID string, frame engine.AnimationFrame)
	NotifyDiagnostics(sessionID string, result grammar.Result)
}

// Session represents an active level session
type Session struct {
	ID        string
	Engine    engine.Engine
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	diagnostics  []grammar.Diagnostic
	recorder     func(engine.AnimationFrame)
}

// NewSession wraps an engine created at now.
func NewSession(id string, eng engine.Engine, now time.Time) *Session {
	return &Session{ID: id, Engine: eng, CreatedAt: now, lastAccessed: now}
}

// LastAccessed returns when the session was last used.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Touch records a use of the session at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastDiagnostics returns the diagnostics of the latest check pass.
func (s *Session) LastDiagnostics() []grammar.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostics
}

// SetLastDiagnostics records the diagnostics of a check pass.
func (s *Session) SetLastDiagnostics(diags []grammar.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = diags
}

// record forwards a frame to the active recorder, if any.
func (s *Session) record(frame engine.AnimationFrame) {
	s.mu.Lock()
	rec := s.recorder
	s.mu.Unlock()
	if rec != nil {
		rec(frame)
	}
}

func (s *Session) setRecorder(rec func(engine.AnimationFrame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
	"github.com/wricardo/mcp-training/codemaze/pkg/logger"
)

// Options tune the game service
type Options struct {
	Notifier         Notifier
	AnimationTimeout time.Duration
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	opts     Options
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return NewGameServiceWithOptions(sessions, configs, Options{})
}

// NewGameServiceWithOptions creates a game service that pushes events through opts.Notifier
func NewGameServiceWithOptions(sessions SessionManager, configs ConfigManager, opts Options) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		opts:     opts,
	}
}

// CreateSession creates a new game session on the given level, or the first level when 0
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelNumber int) (*SessionInfo, error) {
	var level *engine.Level
	if levelNumber != 0 {
		var err error
		level, err = s.configs.LoadLevel(levelNumber)
		if err != nil {
			return nil, s.levelError(levelNumber, err)
		}
	} else {
		level = s.configs.GetDefault()
	}
	if level == nil {
		return nil, fmt.Errorf("%w: no levels available", ErrLevelNotFound)
	}

	// The engine callbacks resolve the session once Create returns.
	var ref atomic.Pointer[Session]
	opts := engine.Options{
		AnimationTimeout: s.opts.AnimationTimeout,
		Driver: engine.AnimationDriverFunc(func(frame engine.AnimationFrame) {
			s.publishFrame(ref.Load(), frame)
		}),
		OnStateChange: func(state engine.ExecutionState) {
			s.publishState(ref.Load(), state)
		},
	}

	sess, err := s.sessions.Create("", level, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	ref.Store(sess)

	logger.Log.WithFields(logrus.Fields{"session": sess.ID, "level": level.Number}).Info("session created")
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its playback
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err == nil {
		sess.Engine.Close()
	}
	return s.sessions.Delete(sessionID)
}

// SelectLevel switches the session to another level. Selecting past the
// last level reports game completion instead of an error.
func (s *gameServiceImpl) SelectLevel(ctx context.Context, sessionID string, levelNumber int) (*LevelSelection, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	level, err := s.configs.LoadLevel(levelNumber)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) && s.pastLastLevel(levelNumber) {
			state := sess.Engine.State()
			return &LevelSelection{State: &state, GameComplete: true}, nil
		}
		return nil, s.levelError(levelNumber, err)
	}

	if err := sess.Engine.SelectLevel(level); err != nil {
		return nil, err
	}
	sess.SetLastDiagnostics(nil)

	logger.Log.WithFields(logrus.Fields{"session": sess.ID, "level": level.Number}).Info("level selected")
	state := sess.Engine.State()
	return &LevelSelection{Level: level, State: &state}, nil
}

// CheckCode validates an editor snapshot without running it
func (s *gameServiceImpl) CheckCode(ctx context.Context, sessionID string, surface grammar.CodeSurface) (*grammar.Result, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := sess.Engine.Check(surface, sess.LastDiagnostics())
	sess.SetLastDiagnostics(result.Diagnostics)
	if s.opts.Notifier != nil {
		s.opts.Notifier.NotifyDiagnostics(sess.ID, result)
	}
	return &result, nil
}

// SubmitCode validates code and starts playback
func (s *gameServiceImpl) SubmitCode(ctx context.Context, sessionID, code string) (*PlayResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Submit(code)
	result := s.playResult(sess, state, err == nil)
	if err != nil {
		if !errors.Is(err, engine.ErrRetryRequired) {
			return nil, err
		}
		result.Reason = err.Error()
	}

	logger.Log.WithFields(logrus.Fields{
		"session":  sess.ID,
		"level":    state.LevelNumber,
		"status":   state.Status,
		"actions":  len(state.Actions),
		"playback": state.PlaybackID,
	}).Debug("code submitted")
	return result, nil
}

// AnimationFinished acknowledges one animation frame
func (s *gameServiceImpl) AnimationFinished(ctx context.Context, sessionID, playbackID string, index int) (*PlayResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, ok := sess.Engine.OnFinishingAnimation(playbackID, index)
	result := s.playResult(sess, state, ok)
	if !ok {
		result.Reason = ErrNoActivePlayback.Error()
		logger.Log.WithFields(logrus.Fields{
			"session": sess.ID, "playback": playbackID, "index": index,
		}).Debug("ignored animation acknowledgment")
	}
	return result, nil
}

// Retry restores the level start
func (s *gameServiceImpl) Retry(ctx context.Context, sessionID string) (*PlayResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.Retry()
	sess.SetLastDiagnostics(nil)
	return s.playResult(sess, state, true), nil
}

// Run submits code and acknowledges every frame immediately, returning the trace
func (s *gameServiceImpl) Run(ctx context.Context, sessionID, code string, reset bool) (*RunResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if reset {
		sess.Engine.Retry()
	}
	start := sess.Engine.State().Position

	var framesMu sync.Mutex
	frames := []engine.AnimationFrame{}
	sess.setRecorder(func(frame engine.AnimationFrame) {
		framesMu.Lock()
		defer framesMu.Unlock()
		frames = append(frames, frame)
	})
	defer sess.setRecorder(nil)

	state, err := sess.Engine.Submit(code)
	if err != nil && !errors.Is(err, engine.ErrRetryRequired) {
		return nil, err
	}
	accepted := err == nil
	playback := state.PlaybackID

	for accepted && state.Animating && state.PlaybackID == playback {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, ok := sess.Engine.OnFinishingAnimation(playback, state.NextActionIndex-1)
		if !ok {
			// Acknowledged elsewhere; continue from the latest state.
			next = sess.Engine.State()
			if next.NextActionIndex == state.NextActionIndex && next.Animating {
				break
			}
		}
		state = next
	}

	result := &RunResult{PlayResult: *s.playResult(sess, state, accepted), StartPos: start}
	if err != nil {
		result.Reason = err.Error()
	}
	framesMu.Lock()
	result.Frames = append([]engine.AnimationFrame{}, frames...)
	framesMu.Unlock()
	for _, f := range result.Frames {
		if !f.Rejected {
			result.StepsExecuted++
		}
	}
	result.EndPos = state.Position
	level := sess.Engine.Level()
	result.Map = engine.RenderMap(level.BuildGrid(), state.Position, state.Facing)
	return result, nil
}

// GetState retrieves the current execution state
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.ExecutionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.State()
	return &state, nil
}

// ListLevels returns the level catalog
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.configs.ListLevels()
}

// GetLevel loads one level definition
func (s *gameServiceImpl) GetLevel(ctx context.Context, number int) (*engine.Level, error) {
	level, err := s.configs.LoadLevel(number)
	if err != nil {
		return nil, s.levelError(number, err)
	}
	return level, nil
}

// SaveLevel stores a level definition in the catalog
func (s *gameServiceImpl) SaveLevel(ctx context.Context, level *engine.Level) error {
	return s.configs.SaveLevel(level)
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	// A concurrent delete can remove the session between Get and here.
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	state := sess.Engine.State()
	level := sess.Engine.Level()
	return &SessionInfo{
		ID:             sess.ID,
		Level:          level.Number,
		LevelName:      level.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		State:          &state,
		LevelConfig:    level,
	}
}

// playResult wraps a state and fills in level progression on completion.
func (s *gameServiceImpl) playResult(sess *Session, state engine.ExecutionState, accepted bool) *PlayResult {
	result := &PlayResult{State: &state, Accepted: accepted}
	if state.Status == engine.StatusCompleted {
		if next, ok := s.configs.NextLevel(state.LevelNumber); ok {
			result.NextLevel = next.Number
		} else {
			result.GameComplete = true
		}
	}
	return result
}

func (s *gameServiceImpl) pastLastLevel(number int) bool {
	levels, err := s.configs.ListLevels()
	if err != nil || len(levels) == 0 {
		return false
	}
	return number > levels[len(levels)-1].Level
}

// levelError adds the available level numbers to a not-found error
func (s *gameServiceImpl) levelError(number int, err error) error {
	if !errors.Is(err, ErrLevelNotFound) {
		return fmt.Errorf("failed to load level %d: %w", number, err)
	}
	levels, listErr := s.configs.ListLevels()
	if listErr == nil && len(levels) > 0 {
		available := make([]int, 0, len(levels))
		for _, l := range levels {
			available = append(available, l.Level)
		}
		return fmt.Errorf("level %d: %w. Available levels: %v", number, err, available)
	}
	return fmt.Errorf("level %d: %w. Use /api/levels to list available levels", number, err)
}

func (s *gameServiceImpl) publishFrame(sess *Session, frame engine.AnimationFrame) {
	if sess == nil {
		return
	}
	sess.record(frame)
	if s.opts.Notifier != nil {
		s.opts.Notifier.NotifyFrame(sess.ID, frame)
	}
}

func (s *gameServiceImpl) publishState(sess *Session, state engine.ExecutionState) {
	if sess == nil || s.opts.Notifier == nil {
		return
	}
	s.opts.Notifier.NotifyState(sess.ID, state)
}

package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/codemaze/game/grammar"
)

var (
	// ErrRetryRequired is returned when submitting from a terminal state.
	ErrRetryRequired = errors.New("level must be retried before submitting again")
	// ErrNoActivePlayback is returned by acknowledgments when nothing is animating.
	ErrNoActivePlayback = errors.New("no active playback")
)

// stateVersion is shared by every sequencer in the process, so a newer
// snapshot always carries a larger Version than an older one.
var stateVersion atomic.Uint64

// AnimationDriver receives one frame per executed action. A frame that is
// not rejected must be acknowledged with OnFinishingAnimation.
type AnimationDriver interface {
	Animate(frame AnimationFrame)
}

// AnimationDriverFunc adapts a function to AnimationDriver.
type AnimationDriverFunc func(frame AnimationFrame)

func (f AnimationDriverFunc) Animate(frame AnimationFrame) { f(frame) }

// Options configures a Sequencer.
type Options struct {
	// AnimationTimeout auto-acknowledges a frame after this long. Zero waits forever.
	AnimationTimeout time.Duration
	Driver           AnimationDriver
	// OnStateChange is called with a snapshot after every transition.
	OnStateChange func(state ExecutionState)
	// NewPlaybackID overrides playback id generation.
	NewPlaybackID func() string
}

// Sequencer owns the execution state of one level session. All methods are
// safe for concurrent use; callbacks run outside the internal lock.
type Sequencer struct {
	mu    sync.Mutex
	level *Level
	grid  *Grid
	opts  Options
	state ExecutionState
	timer *time.Timer
}

// NewSequencer creates an idle sequencer for the level.
func NewSequencer(level *Level, opts Options) (*Sequencer, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	if opts.NewPlaybackID == nil {
		opts.NewPlaybackID = uuid.NewString
	}
	s := &Sequencer{opts: opts}
	s.load(level)
	return s, nil
}

// load replaces the level and resets to idle. Caller holds the lock or owns s.
func (s *Sequencer) load(level *Level) {
	s.stopTimer()
	s.level = level
	s.grid = level.BuildGrid()
	s.state = ExecutionState{
		Status:      StatusIdle,
		LevelNumber: level.Number,
		Position:    level.StartPosition,
		Facing:      FacingNorth,
		Diagnostics: []grammar.Diagnostic{},
	}
}

// Level returns the level being played.
func (s *Sequencer) Level() *Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// State returns a copy of the current execution state.
func (s *Sequencer) State() ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Check runs a validation pass over an editor snapshot without changing state.
func (s *Sequencer) Check(surface grammar.CodeSurface, previous []grammar.Diagnostic) grammar.Result {
	level := s.Level()
	return grammar.ValidateSurface(surface, level.CompletedCode, level.CodeLines, previous)
}

// Submit validates and resolves code and starts a new playback. Any
// playback in flight is abandoned. Validation and resolution failures are
// reported through the returned state, not the error.
func (s *Sequencer) Submit(code string) (ExecutionState, error) {
	s.mu.Lock()
	if s.state.Status == StatusError || s.state.Status == StatusCompleted {
		state := s.snapshot()
		s.mu.Unlock()
		return state, ErrRetryRequired
	}

	s.abandon()
	s.state.Status = StatusAwaitingValidation

	res := grammar.Validate(code, s.level.CompletedCode, s.level.CodeLines, grammar.Options{})
	s.state.Diagnostics = res.Diagnostics
	if !res.OK {
		s.fail(validationMessage(res.Diagnostics))
		return s.commit(nil), nil
	}

	actions, err := Resolve(grammar.Texts(res.Statements))
	if err != nil {
		var se *StatementError
		msg := err.Error()
		if errors.As(err, &se) {
			msg = se.UserMessage()
		}
		s.fail(msg)
		return s.commit(nil), nil
	}

	s.state.Actions = actions
	s.state.Status = StatusRunning
	frame := s.step()
	return s.commit(frame), nil
}

// OnFinishingAnimation acknowledges the frame with the given index. Acks for
// another playback, an already acknowledged index or a future index are
// ignored and report false.
func (s *Sequencer) OnFinishingAnimation(playbackID string, index int) (ExecutionState, bool) {
	return s.acknowledge(playbackID, index, "")
}

// Retry abandons any playback and restores the level start.
func (s *Sequencer) Retry() ExecutionState {
	s.mu.Lock()
	s.load(s.level)
	return s.commit(nil)
}

// SelectLevel switches to another level, discarding all state.
func (s *Sequencer) SelectLevel(level *Level) error {
	if err := ValidateLevel(level); err != nil {
		return err
	}
	s.mu.Lock()
	s.load(level)
	s.commit(nil)
	return nil
}

// Close stops any pending animation timer.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}

func (s *Sequencer) acknowledge(playbackID string, index int, warning string) (ExecutionState, bool) {
	s.mu.Lock()
	if !s.state.Animating || playbackID != s.state.PlaybackID || index != s.state.NextActionIndex-1 {
		state := s.snapshot()
		s.mu.Unlock()
		return state, false
	}

	s.stopTimer()
	s.state.Animating = false
	if warning != "" {
		s.state.Warning = warning
	}
	frame := s.step()
	return s.commit(frame), true
}

// step executes the next action, or finishes the playback when none remain.
// Caller holds the lock.
func (s *Sequencer) step() *AnimationFrame {
	idx := s.state.NextActionIndex
	if idx >= len(s.state.Actions) {
		s.finish()
		return nil
	}

	action := s.state.Actions[idx]
	from, fromFacing := s.state.Position, s.state.Facing
	res := Apply(action, s.grid, from, fromFacing)

	frame := &AnimationFrame{
		PlaybackID: s.state.PlaybackID,
		Index:      idx,
		Action:     action,
		From:       from,
		To:         res.Position,
		FromFacing: fromFacing,
		ToFacing:   res.Facing,
	}

	if !res.Valid {
		if res.Attempted != nil {
			frame.To = *res.Attempted
			attempted := *res.Attempted
			s.state.Attempted = &attempted
		}
		frame.Rejected = true
		s.fail(res.ErrorMessage)
		return frame
	}

	s.state.Position = res.Position
	s.state.Facing = res.Facing
	s.state.NextActionIndex = idx + 1
	s.state.Animating = true
	s.startTimer(s.state.PlaybackID, idx)
	return frame
}

func (s *Sequencer) finish() {
	s.state.Animating = false
	if s.state.Position == s.level.FinishPosition {
		s.state.Status = StatusCompleted
		s.state.Message = MsgLevelComplete
		return
	}
	s.state.Status = StatusRunning
	s.state.Exhausted = true
	s.state.Message = MsgNotAtFinish
}

func (s *Sequencer) fail(msg string) {
	s.stopTimer()
	s.state.Status = StatusError
	s.state.Animating = false
	s.state.Message = msg
}

// abandon starts a fresh playback from the current position and facing.
func (s *Sequencer) abandon() {
	s.stopTimer()
	s.state.PlaybackID = s.opts.NewPlaybackID()
	s.state.NextActionIndex = 0
	s.state.Animating = false
	s.state.Exhausted = false
	s.state.Actions = nil
	s.state.Message = ""
	s.state.Warning = ""
	s.state.Attempted = nil
	s.state.Diagnostics = []grammar.Diagnostic{}
}

func (s *Sequencer) startTimer(playbackID string, index int) {
	if s.opts.AnimationTimeout <= 0 {
		return
	}
	s.timer = time.AfterFunc(s.opts.AnimationTimeout, func() {
		s.acknowledge(playbackID, index, MsgAnimationTimeout)
	})
}

func (s *Sequencer) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// commit stamps a new version, takes a snapshot, releases the lock and
// delivers callbacks. The state callback runs before the driver so an
// acknowledgment made from inside Animate publishes after this snapshot.
func (s *Sequencer) commit(frame *AnimationFrame) ExecutionState {
	s.state.Version = stateVersion.Add(1)
	state := s.snapshot()
	driver, onChange := s.opts.Driver, s.opts.OnStateChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
	if frame != nil && driver != nil {
		driver.Animate(*frame)
	}
	return state
}

func (s *Sequencer) snapshot() ExecutionState {
	state := s.state
	state.Actions = append([]Action(nil), s.state.Actions...)
	state.Diagnostics = append([]grammar.Diagnostic{}, s.state.Diagnostics...)
	if s.state.Attempted != nil {
		p := *s.state.Attempted
		state.Attempted = &p
	}
	return state
}

func validationMessage(diags []grammar.Diagnostic) string {
	if d := grammar.FirstError(diags); d != nil {
		return fmt.Sprintf("Line %d: %s", d.Line, d.Message)
	}
	return "There are errors in your code."
}

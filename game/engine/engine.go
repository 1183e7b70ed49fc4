package engine

import "github.com/wricardo/mcp-training/codemaze/game/grammar"

// Engine provides the main interface for playing one level session
type Engine interface {
	// Level management
	Level() *Level
	SelectLevel(level *Level) error

	// Execution
	State() ExecutionState
	Check(surface grammar.CodeSurface, previous []grammar.Diagnostic) grammar.Result
	Submit(code string) (ExecutionState, error)
	OnFinishingAnimation(playbackID string, index int) (ExecutionState, bool)
	Retry() ExecutionState

	Close()
}

var _ Engine = (*Sequencer)(nil)

// NewEngine creates an engine for the provided level
func NewEngine(level *Level, opts Options) (Engine, error) {
	return NewSequencer(level, opts)
}

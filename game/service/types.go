package service

import (
	"time"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string                 `json:"id"`
	Level          int                    `json:"level"`
	LevelName      string                 `json:"level_name,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	State          *engine.ExecutionState `json:"state"`
	LevelConfig    *engine.Level          `json:"level_config"`
}

// PlayResult is returned by every operation that drives the sequencer
type PlayResult struct {
	State *engine.ExecutionState `json:"state"`
	// Accepted is false when an acknowledgment or submission was ignored.
	Accepted     bool   `json:"accepted"`
	Reason       string `json:"reason,omitempty"`
	NextLevel    int    `json:"next_level,omitempty"`
	GameComplete bool   `json:"game_complete,omitempty"`
}

// RunResult contains the outcome of a headless run
type RunResult struct {
	PlayResult
	Frames        []engine.AnimationFrame `json:"frames"`
	StepsExecuted int                     `json:"steps_executed"`
	StartPos      engine.Position         `json:"start_pos"`
	EndPos        engine.Position         `json:"end_pos"`
	Map           []string                `json:"map,omitempty"`
}

// LevelSelection is the result of switching a session to another level
type LevelSelection struct {
	Level        *engine.Level          `json:"level,omitempty"`
	State        *engine.ExecutionState `json:"state,omitempty"`
	GameComplete bool                   `json:"game_complete,omitempty"`
}

// LevelInfo provides summary information about a level
type LevelInfo struct {
	Level        int             `json:"level"`
	Name         string          `json:"name"`
	Source       string          `json:"source"` // file name, or "builtin"
	Grid         engine.GridSize `json:"grid"`
	CodeLines    int             `json:"code_lines"`
	Instructions string          `json:"instructions,omitempty"`
}

package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/codemaze/game/grammar"
)

const (
	// Validation constants
	MinGridSize = 1
	MaxGridSize = 20

	// UnconstrainedLines is the code_lines sentinel meaning any statement count is accepted.
	UnconstrainedLines = 0

	MsgCantMove         = "You can't move there."
	MsgInvalidTurn      = "This is not a valid turn."
	MsgMissingNumber    = "You need to provide a number as parameter"
	MsgLevelComplete    = "Level complete!"
	MsgNotAtFinish      = "All instructions ran but you did not reach the finish."
	MsgAnimationTimeout = "Animation did not finish in time; continuing."
)

// Position represents x,y coordinates; x is the column, y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Facing is an orientation in degrees: 0, 90, 180 or 270.
type Facing int

const (
	FacingNorth Facing = 0
	FacingEast  Facing = 90
	FacingSouth Facing = 180
	FacingWest  Facing = 270
)

// Normalize wraps any multiple of 90 into [0, 360).
func (f Facing) Normalize() Facing {
	n := int(f) % 360
	if n < 0 {
		n += 360
	}
	return Facing(n)
}

// Valid reports whether f is one of the four quarter orientations.
func (f Facing) Valid() bool {
	switch f {
	case FacingNorth, FacingEast, FacingSouth, FacingWest:
		return true
	}
	return false
}

// Delta returns the unit displacement for one step in this facing.
func (f Facing) Delta() (dx, dy int) {
	switch f {
	case FacingNorth:
		return 0, -1
	case FacingEast:
		return 1, 0
	case FacingSouth:
		return 0, 1
	case FacingWest:
		return -1, 0
	}
	return 0, 0
}

// GridSize holds the level dimensions.
type GridSize struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// Grid is the playable area of a level.
type Grid struct {
	Columns        int
	Rows           int
	AllowedCells   map[Position]bool
	StartPosition  Position
	FinishPosition Position
}

// InBounds reports whether p lies inside [0,columns) x [0,rows).
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.Columns && p.Y >= 0 && p.Y < g.Rows
}

// Allowed reports whether p is in bounds and part of the allowed cell set.
func (g *Grid) Allowed(p Position) bool {
	return g.InBounds(p) && g.AllowedCells[p]
}

// Level is the immutable configuration of one puzzle.
type Level struct {
	Number         int        `json:"level"`
	Name           string     `json:"name"`
	Instructions   string     `json:"instructions"`
	Grid           GridSize   `json:"grid"`
	AllowedCells   []Position `json:"allowed_cells"`
	StartPosition  Position   `json:"start_position"`
	FinishPosition Position   `json:"finish_position"`
	CompletedCode  string     `json:"completed_code"`
	CodeLines      int        `json:"code_lines"`
}

// BuildGrid returns the Grid view of the level.
func (l *Level) BuildGrid() *Grid {
	allowed := make(map[Position]bool, len(l.AllowedCells))
	for _, p := range l.AllowedCells {
		allowed[p] = true
	}
	return &Grid{
		Columns:        l.Grid.Columns,
		Rows:           l.Grid.Rows,
		AllowedCells:   allowed,
		StartPosition:  l.StartPosition,
		FinishPosition: l.FinishPosition,
	}
}

// Status is the sequencer state.
type Status string

const (
	StatusIdle               Status = "idle"
	StatusAwaitingValidation Status = "awaiting_validation"
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusError              Status = "error"
)

// ExecutionState is a snapshot of one level session's playback.
type ExecutionState struct {
	// Version increases with every published snapshot; consumers drop
	// snapshots older than the last one they applied.
	Version         uint64               `json:"version"`
	Status          Status               `json:"status"`
	LevelNumber     int                  `json:"level"`
	Position        Position             `json:"position"`
	Facing          Facing               `json:"facing"`
	NextActionIndex int                  `json:"next_action_index"`
	Animating       bool                 `json:"animating"`
	Exhausted       bool                 `json:"exhausted,omitempty"`
	PlaybackID      string               `json:"playback_id,omitempty"`
	Actions         []Action             `json:"actions,omitempty"`
	Message         string               `json:"message,omitempty"`
	Warning         string               `json:"warning,omitempty"`
	Diagnostics     []grammar.Diagnostic `json:"diagnostics"`
	// Attempted is the rejected destination of the failing action, if any.
	Attempted *Position `json:"attempted,omitempty"`
}

// AnimationFrame asks the presentation layer to animate one action.
type AnimationFrame struct {
	PlaybackID string   `json:"playback_id"`
	Index      int      `json:"index"`
	Action     Action   `json:"action"`
	From       Position `json:"from"`
	To         Position `json:"to"`
	FromFacing Facing   `json:"from_facing"`
	ToFacing   Facing   `json:"to_facing"`
	Rejected   bool     `json:"rejected,omitempty"`
}

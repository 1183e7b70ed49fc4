package engine

import "fmt"

// ActionKind tags the Action variant.
type ActionKind string

const (
	ActionMove ActionKind = "move"
	ActionTurn ActionKind = "turn"
)

// Action is one resolved instruction. Steps is set for moves, Degrees for turns.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Steps   int        `json:"steps,omitempty"`
	Degrees int        `json:"degrees,omitempty"`
}

// Move returns a move action of n steps.
func Move(n int) Action {
	return Action{Kind: ActionMove, Steps: n}
}

// Turn returns a turn action of the given signed degrees.
func Turn(degrees int) Action {
	return Action{Kind: ActionTurn, Degrees: degrees}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("Move(%d)", a.Steps)
	case ActionTurn:
		return fmt.Sprintf("Turn(%d)", a.Degrees)
	}
	return "Unknown"
}

package engine

// Result is the outcome of applying one action.
type Result struct {
	Valid    bool
	Position Position
	Facing   Facing
	// Attempted is the destination a rejected move tried to reach.
	Attempted    *Position
	ErrorMessage string
}

// Apply runs one action against the grid without mutating anything. On
// rejection the returned position and facing are the inputs unchanged.
func Apply(action Action, grid *Grid, pos Position, facing Facing) Result {
	switch action.Kind {
	case ActionMove:
		return applyMove(action, grid, pos, facing)
	case ActionTurn:
		return applyTurn(action, pos, facing)
	}
	return Result{Position: pos, Facing: facing, ErrorMessage: MsgInvalidTurn}
}

func applyMove(action Action, grid *Grid, pos Position, facing Facing) Result {
	dx, dy := facing.Normalize().Delta()
	dest := Position{X: pos.X + dx*action.Steps, Y: pos.Y + dy*action.Steps}

	// Only the destination cell is checked; intermediate cells are not.
	if action.Steps <= 0 || !grid.Allowed(dest) {
		return Result{
			Position:     pos,
			Facing:       facing,
			Attempted:    &dest,
			ErrorMessage: MsgCantMove,
		}
	}
	return Result{Valid: true, Position: dest, Facing: facing}
}

func applyTurn(action Action, pos Position, facing Facing) Result {
	next := (facing + Facing(action.Degrees)).Normalize()
	if !next.Valid() {
		return Result{Position: pos, Facing: facing, ErrorMessage: MsgInvalidTurn}
	}
	return Result{Valid: true, Position: pos, Facing: next}
}

// Step is one entry of a simulated trace.
type Step struct {
	Index  int      `json:"index"`
	Action Action   `json:"action"`
	From   Position `json:"from"`
	To     Position `json:"to"`
	Facing Facing   `json:"facing"`
	Valid  bool     `json:"valid"`
	Error  string   `json:"error,omitempty"`
}

// Simulate applies actions from the level start until the first rejection.
// It reports the trace and whether the final position is the finish.
func Simulate(grid *Grid, actions []Action) ([]Step, bool) {
	pos, facing := grid.StartPosition, FacingNorth
	steps := make([]Step, 0, len(actions))
	for i, a := range actions {
		r := Apply(a, grid, pos, facing)
		step := Step{Index: i, Action: a, From: pos, To: r.Position, Facing: r.Facing, Valid: r.Valid}
		if !r.Valid {
			if r.Attempted != nil {
				step.To = *r.Attempted
			}
			step.Error = r.ErrorMessage
			steps = append(steps, step)
			return steps, false
		}
		steps = append(steps, step)
		pos, facing = r.Position, r.Facing
	}
	return steps, pos == grid.FinishPosition
}

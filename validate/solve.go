package validate

import (
	"github.com/wricardo/mcp-training/codemaze/game/engine"
)

type pose struct {
	pos    engine.Position
	facing engine.Facing
}

type searchNode struct {
	pose   pose
	parent int
	action engine.Action
}

var solverTurns = []int{90, -90, 180}

// Solve finds a program with the fewest actions that takes the avatar from
// the start to the finish. Moves may jump over disallowed cells, matching
// how the engine only checks the destination.
func Solve(level *engine.Level) ([]engine.Action, bool) {
	grid := level.BuildGrid()
	start := pose{pos: grid.StartPosition, facing: engine.FacingNorth}
	if start.pos == grid.FinishPosition {
		return nil, true
	}

	maxSteps := grid.Columns
	if grid.Rows > maxSteps {
		maxSteps = grid.Rows
	}

	nodes := []searchNode{{pose: start, parent: -1}}
	visited := map[pose]bool{start: true}

	for i := 0; i < len(nodes); i++ {
		current := nodes[i].pose

		candidates := make([]engine.Action, 0, maxSteps+len(solverTurns))
		for n := 1; n <= maxSteps; n++ {
			candidates = append(candidates, engine.Move(n))
		}
		for _, d := range solverTurns {
			candidates = append(candidates, engine.Turn(d))
		}

		for _, action := range candidates {
			r := engine.Apply(action, grid, current.pos, current.facing)
			if !r.Valid {
				continue
			}
			next := pose{pos: r.Position, facing: r.Facing}
			if visited[next] {
				continue
			}
			visited[next] = true
			nodes = append(nodes, searchNode{pose: next, parent: i, action: action})

			if next.pos == grid.FinishPosition {
				return trace(nodes, len(nodes)-1), true
			}
		}
	}
	return nil, false
}

func trace(nodes []searchNode, idx int) []engine.Action {
	var actions []engine.Action
	for ; nodes[idx].parent >= 0; idx = nodes[idx].parent {
		actions = append(actions, nodes[idx].action)
	}
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return actions
}

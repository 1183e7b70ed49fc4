package validate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	mapStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	columnGutter = "  "
)

const pathMarker = '*'

// Analysis is the simulated run of a level's reference solution.
type Analysis struct {
	Level   *engine.Level
	Source  string
	Lines   []string
	Steps   []engine.Step
	Reached bool
	Err     error
	// Shortest is a minimal action program, nil when the finish is unreachable.
	Shortest []engine.Action
}

// Analyze simulates the reference solution of level.
func Analyze(source string, level *engine.Level) Analysis {
	a := Analysis{
		Level:  level,
		Source: source,
		Lines:  grammar.CanonicalStatements(level.CompletedCode),
	}
	a.Shortest, _ = Solve(level)

	actions, err := level.CanonicalActions()
	if err != nil {
		a.Err = err
		return a
	}
	a.Steps, a.Reached = engine.Simulate(level.BuildGrid(), actions)
	return a
}

// End returns the avatar pose after the last accepted step.
func (a Analysis) End() (engine.Position, engine.Facing) {
	pos, facing := a.Level.StartPosition, engine.FacingNorth
	for _, s := range a.Steps {
		if !s.Valid {
			break
		}
		pos, facing = s.To, s.Facing
	}
	return pos, facing
}

// PathMap draws the grid with every cell the avatar entered marked.
func (a Analysis) PathMap() []string {
	grid := a.Level.BuildGrid()
	pos, facing := a.End()
	rows := engine.RenderMap(grid, pos, facing)

	cells := make([][]rune, len(rows))
	for y, row := range rows {
		cells[y] = []rune(row)
	}

	for _, s := range a.Steps {
		if !s.Valid || s.Action.Kind != engine.ActionMove {
			continue
		}
		dx, dy := s.Facing.Delta()
		for p := s.From; p != s.To; {
			if p != pos && p != grid.FinishPosition {
				cells[p.Y][p.X] = pathMarker
			}
			p = engine.Position{X: p.X + dx, Y: p.Y + dy}
		}
	}

	out := make([]string, len(cells))
	for y, row := range cells {
		out[y] = string(row)
	}
	return out
}

// Render formats the analysis for a terminal.
func (a Analysis) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Level %d: %s", a.Level.Number, a.Level.Name)))
	b.WriteString(labelStyle.Render("  (" + a.Source + ")"))
	b.WriteString("\n")
	if a.Level.Instructions != "" {
		b.WriteString(labelStyle.Render(a.Level.Instructions) + "\n")
	}

	grid := a.Level.BuildGrid()
	start := mapStyle.Render(strings.Join(engine.RenderMap(grid, grid.StartPosition, engine.FacingNorth), "\n"))
	path := mapStyle.Render(strings.Join(a.PathMap(), "\n"))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, labelStyle.Render("start"), start),
		columnGutter,
		lipgloss.JoinVertical(lipgloss.Left, labelStyle.Render("path"), path),
	))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %d cells\n", labelStyle.Render("start to finish:"), engine.ManhattanDistance(grid.StartPosition, grid.FinishPosition))

	b.WriteString(labelStyle.Render("reference solution:") + "\n")
	for i, line := range a.Lines {
		fmt.Fprintf(&b, "  %d  %s\n", i+1, line)
	}

	if a.Err != nil {
		b.WriteString(failStyle.Render("✗ "+a.Err.Error()) + "\n")
		return b.String()
	}

	b.WriteString(labelStyle.Render("simulation:") + "\n")
	for _, s := range a.Steps {
		line := fmt.Sprintf("  %d. %-10s %s -> %s %s", s.Index+1, s.Action, s.From, s.To, engine.FacingArrow(s.Facing))
		if !s.Valid {
			line = failStyle.Render(line + "  " + s.Error)
		}
		b.WriteString(line + "\n")
	}

	if a.Shortest != nil {
		parts := make([]string, len(a.Shortest))
		for i, action := range a.Shortest {
			parts[i] = action.String()
		}
		b.WriteString(labelStyle.Render("shortest:") + " " + strings.Join(parts, ", ") + "\n")
	}

	if a.Reached {
		b.WriteString(okStyle.Render("✓ reaches the finish") + "\n")
	} else {
		pos, _ := a.End()
		b.WriteString(failStyle.Render(fmt.Sprintf("✗ stops at %s, finish is %s", pos, a.Level.FinishPosition)) + "\n")
	}
	return b.String()
}

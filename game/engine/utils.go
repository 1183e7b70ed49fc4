package engine

import "strings"

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// FacingArrow returns a single-rune marker for the facing.
func FacingArrow(f Facing) string {
	switch f.Normalize() {
	case FacingNorth:
		return "^"
	case FacingEast:
		return ">"
	case FacingSouth:
		return "v"
	case FacingWest:
		return "<"
	}
	return "?"
}

// RenderMap draws the grid as text rows. The avatar is drawn with its
// facing arrow, F marks the finish, . an allowed cell and # a blocked one.
func RenderMap(grid *Grid, pos Position, facing Facing) []string {
	rows := make([]string, 0, grid.Rows)
	for y := 0; y < grid.Rows; y++ {
		var b strings.Builder
		for x := 0; x < grid.Columns; x++ {
			p := Position{X: x, Y: y}
			switch {
			case p == pos:
				b.WriteString(FacingArrow(facing))
			case p == grid.FinishPosition:
				b.WriteString("F")
			case grid.AllowedCells[p]:
				b.WriteString(".")
			default:
				b.WriteString("#")
			}
		}
		rows = append(rows, b.String())
	}
	return rows
}

// CountAllowedCells counts the allowed cells inside the grid bounds.
func CountAllowedCells(grid *Grid) int {
	count := 0
	for p, ok := range grid.AllowedCells {
		if ok && grid.InBounds(p) {
			count++
		}
	}
	return count
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/wricardo/mcp-training/codemaze/game/grammar"
)

// ErrInvalidLevel wraps every level validation failure.
var ErrInvalidLevel = errors.New("invalid level")

// ValidateLevel checks a level definition for structural correctness.
// Reachability of the finish is deliberately not required.
func ValidateLevel(level *Level) error {
	if level == nil {
		return fmt.Errorf("%w: level is nil", ErrInvalidLevel)
	}
	if level.Number < 1 {
		return fmt.Errorf("%w: level number must be positive, got %d", ErrInvalidLevel, level.Number)
	}

	cols, rows := level.Grid.Columns, level.Grid.Rows
	if cols < MinGridSize || cols > MaxGridSize {
		return fmt.Errorf("%w: grid.columns must be between %d and %d, got %d", ErrInvalidLevel, MinGridSize, MaxGridSize, cols)
	}
	if rows < MinGridSize || rows > MaxGridSize {
		return fmt.Errorf("%w: grid.rows must be between %d and %d, got %d", ErrInvalidLevel, MinGridSize, MaxGridSize, rows)
	}

	if len(level.AllowedCells) == 0 {
		return fmt.Errorf("%w: allowed_cells must not be empty", ErrInvalidLevel)
	}
	grid := &Grid{Columns: cols, Rows: rows}
	for _, p := range level.AllowedCells {
		if !grid.InBounds(p) {
			return fmt.Errorf("%w: allowed cell %s is outside the %dx%d grid", ErrInvalidLevel, p, cols, rows)
		}
	}

	grid = level.BuildGrid()
	if !grid.Allowed(level.StartPosition) {
		return fmt.Errorf("%w: start_position %s is not an allowed cell", ErrInvalidLevel, level.StartPosition)
	}
	if !grid.Allowed(level.FinishPosition) {
		return fmt.Errorf("%w: finish_position %s is not an allowed cell", ErrInvalidLevel, level.FinishPosition)
	}

	if level.CodeLines < UnconstrainedLines {
		return fmt.Errorf("%w: code_lines must be >= 0, got %d", ErrInvalidLevel, level.CodeLines)
	}
	canonical := grammar.ParseCanonical(level.CompletedCode)
	if len(canonical) == 0 {
		return fmt.Errorf("%w: completed_code is required", ErrInvalidLevel)
	}
	if level.CodeLines != UnconstrainedLines && level.CodeLines != len(canonical) {
		return fmt.Errorf("%w: code_lines is %d but completed_code has %d lines",
			ErrInvalidLevel, level.CodeLines, len(canonical))
	}

	return nil
}

// LoadLevelFile reads and validates one JSON level file.
func LoadLevelFile(filename string) (*Level, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseLevel(data)
}

// ParseLevel decodes and validates a JSON level definition.
func ParseLevel(data []byte) (*Level, error) {
	var level Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("failed to parse level: %w", err)
	}
	if err := ValidateLevel(&level); err != nil {
		return nil, err
	}
	return &level, nil
}

// CanonicalActions resolves the primary alternative of every canonical line.
func (l *Level) CanonicalActions() ([]Action, error) {
	return Resolve(grammar.CanonicalStatements(l.CompletedCode))
}

// Package validate checks level files and renders level analyses for the
// validate and analyze commands. For every level it checks:
//   - structure (grid bounds, allowed cells, start and finish)
//   - that the reference solution passes its own grammar check
//   - that every reference statement resolves to an action
//   - connectivity: the finish is reachable from the start via allowed cells
//   - that the reference actions actually walk to the finish
//
// The last two only produce warnings; a level may be unwinnable by design.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wricardo/mcp-training/codemaze/game/config"
	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
)

// Result captures the outcome of validating a single level. Errors make the
// level invalid; Warnings and Info are reported but do not.
type Result struct {
	Source   string
	Level    int
	Name     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) info(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// CheckLevel validates one decoded level.
func CheckLevel(source string, level *engine.Level) Result {
	result := Result{
		Source: source,
		Level:  level.Number,
		Name:   level.Name,
		Valid:  true,
	}

	if err := engine.ValidateLevel(level); err != nil {
		result.fail("%v", err)
		return result
	}
	grid := level.BuildGrid()
	result.info("Grid %dx%d, %d allowed cells", level.Grid.Columns, level.Grid.Rows, engine.CountAllowedCells(grid))

	self := grammar.Validate(grammar.CanonicalText(level.CompletedCode), level.CompletedCode, level.CodeLines, grammar.Options{})
	if !self.OK {
		for _, d := range self.Diagnostics {
			result.fail("Reference solution rejected: %s", d)
		}
	}

	actions, err := level.CanonicalActions()
	if err != nil {
		result.fail("Reference solution does not resolve: %v", err)
		return result
	}
	result.info("Reference solution: %d statements, %d actions", len(grammar.CanonicalStatements(level.CompletedCode)), len(actions))

	if connected(grid, grid.StartPosition, grid.FinishPosition) {
		result.info("Connectivity: finish reachable from start")
	} else {
		result.warn("Connectivity: finish %s is not reachable from start %s", grid.FinishPosition, grid.StartPosition)
	}

	if shortest, ok := Solve(level); ok {
		result.info("Shortest program: %d actions", len(shortest))
	} else {
		result.warn("No move/turn program reaches the finish")
	}

	steps, reached := engine.Simulate(grid, actions)
	switch {
	case reached:
		result.info("Reference solution reaches the finish in %d steps", len(steps))
	case len(steps) > 0 && !steps[len(steps)-1].Valid:
		last := steps[len(steps)-1]
		result.warn("Reference solution blocked at step %d (%s): %s", last.Index+1, last.Action, last.Error)
	default:
		end := grid.StartPosition
		if len(steps) > 0 {
			end = steps[len(steps)-1].To
		}
		result.warn("Reference solution ends at %s, not at the finish %s", end, grid.FinishPosition)
	}

	return result
}

// connected reports whether to can be reached from from through allowed cells.
func connected(grid *engine.Grid, from, to engine.Position) bool {
	visited := map[engine.Position]bool{from: true}
	queue := []engine.Position{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			return true
		}

		for _, f := range []engine.Facing{engine.FacingNorth, engine.FacingEast, engine.FacingSouth, engine.FacingWest} {
			dx, dy := f.Delta()
			next := engine.Position{X: current.X + dx, Y: current.Y + dy}
			if !visited[next] && grid.Allowed(next) {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// CheckFile validates every level of one .json or .hcl file.
func CheckFile(parser *hclparse.Parser, path string) []Result {
	source := filepath.Base(path)

	levels, err := config.DecodeLevelFile(parser, path)
	if err != nil {
		return []Result{{Source: source, Valid: false, Errors: []string{err.Error()}}}
	}
	if len(levels) == 0 {
		return []Result{{Source: source, Valid: true, Warnings: []string{"No levels defined"}}}
	}

	results := make([]Result, 0, len(levels))
	for _, level := range levels {
		results = append(results, CheckLevel(source, level))
	}
	return results
}

// CheckDir validates every level file in dir and flags level numbers
// defined more than once.
func CheckDir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	parser := hclparse.NewParser()
	var results []Result
	for _, entry := range entries {
		if entry.IsDir() || !config.IsLevelFile(entry.Name()) {
			continue
		}
		results = append(results, CheckFile(parser, filepath.Join(dir, entry.Name()))...)
	}

	markDuplicates(results)
	return results, nil
}

// CheckBuiltin validates the embedded levels.
func CheckBuiltin() ([]Result, error) {
	levels, err := config.BuiltinLevels()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(levels))
	for _, level := range levels {
		results = append(results, CheckLevel(config.BuiltinSource, level))
	}
	return results, nil
}

func markDuplicates(results []Result) {
	first := make(map[int]string)
	for i := range results {
		r := &results[i]
		if r.Level == 0 {
			continue
		}
		if prev, dup := first[r.Level]; dup {
			r.fail("Duplicate level number %d (also defined in %s)", r.Level, prev)
			continue
		}
		first[r.Level] = r.Source
	}
}

// Report prints a concise report and returns whether every level is valid.
func Report(w io.Writer, results []Result) bool {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	allValid := true
	for _, r := range sorted {
		title := r.Source
		if r.Level > 0 {
			title = fmt.Sprintf("level %d %q (%s)", r.Level, r.Name, r.Source)
		}
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), title)

		if r.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range r.Info {
				fmt.Fprintln(w, "  ✓ "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, e := range r.Errors {
				fmt.Fprintln(w, "  ❌ "+e)
			}
		}
		for _, warning := range r.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All levels are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some levels have errors")
	}
	return allValid
}

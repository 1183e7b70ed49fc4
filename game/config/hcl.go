package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
)

// hclLevelFile is the top-level structure of a level file for decoding.
type hclLevelFile struct {
	Levels []*hclLevel `hcl:"level,block"`
}

// hclLevel is one `level "name" { ... }` block. Coordinates are [x, y] pairs.
type hclLevel struct {
	Name          string  `hcl:"name,label"`
	Number        int     `hcl:"number"`
	Instructions  string  `hcl:"instructions,optional"`
	Columns       int     `hcl:"columns"`
	Rows          int     `hcl:"rows"`
	AllowedCells  [][]int `hcl:"allowed_cells"`
	Start         []int   `hcl:"start"`
	Finish        []int   `hcl:"finish"`
	CompletedCode string  `hcl:"completed_code"`
	CodeLines     int     `hcl:"code_lines,optional"`
}

// parseHCLLevels decodes every level block in src.
func parseHCLLevels(parser *hclparse.Parser, src []byte, filename string) ([]*engine.Level, error) {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclLevelFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	levels := make([]*engine.Level, 0, len(parsed.Levels))
	for _, block := range parsed.Levels {
		level, err := block.toLevel()
		if err != nil {
			return nil, fmt.Errorf("level %q in %s: %w", block.Name, filename, err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func (b *hclLevel) toLevel() (*engine.Level, error) {
	start, err := toPosition(b.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	finish, err := toPosition(b.Finish)
	if err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}

	cells := make([]engine.Position, 0, len(b.AllowedCells))
	for i, pair := range b.AllowedCells {
		p, err := toPosition(pair)
		if err != nil {
			return nil, fmt.Errorf("allowed_cells[%d]: %w", i, err)
		}
		cells = append(cells, p)
	}

	return &engine.Level{
		Number:         b.Number,
		Name:           b.Name,
		Instructions:   b.Instructions,
		Grid:           engine.GridSize{Columns: b.Columns, Rows: b.Rows},
		AllowedCells:   cells,
		StartPosition:  start,
		FinishPosition: finish,
		CompletedCode:  b.CompletedCode,
		CodeLines:      b.CodeLines,
	}, nil
}

func toPosition(pair []int) (engine.Position, error) {
	if len(pair) != 2 {
		return engine.Position{}, fmt.Errorf("expected [x, y], got %d values", len(pair))
	}
	return engine.Position{X: pair[0], Y: pair[1]}, nil
}

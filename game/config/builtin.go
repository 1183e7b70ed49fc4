package config

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
)

// BuiltinSource is the LevelInfo source reported for embedded levels.
const BuiltinSource = "builtin"

//go:embed builtin/*.json
var builtinFS embed.FS

// BuiltinLevels returns the embedded level catalog, ordered by number.
func BuiltinLevels() ([]*engine.Level, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}

	levels := make([]*engine.Level, 0, len(entries))
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return nil, err
		}
		level, err := engine.ParseLevel(data)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", entry.Name(), err)
		}
		levels = append(levels, level)
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Number < levels[j].Number })
	return levels, nil
}

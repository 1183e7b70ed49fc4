package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
)

// IsLevelFile reports whether name has a level file extension (.json or .hcl).
func IsLevelFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".hcl":
		return true
	}
	return false
}

// DecodeLevelFile reads the levels defined in one file without validating
// them. A JSON file holds one level; an HCL file holds any number of level
// blocks.
func DecodeLevelFile(parser *hclparse.Parser, path string) ([]*engine.Level, error) {
	name := filepath.Base(path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var level engine.Level
		if err := json.Unmarshal(src, &level); err != nil {
			return nil, fmt.Errorf("%s: failed to parse level: %w", name, err)
		}
		return []*engine.Level{&level}, nil
	case ".hcl":
		return parseHCLLevels(parser, src, path)
	}
	return nil, fmt.Errorf("%s: unsupported level file type", name)
}

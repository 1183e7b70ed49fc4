package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/service"
	"github.com/wricardo/mcp-training/codemaze/pkg/logger"
)

var (
	ErrLevelNotFound  = service.ErrLevelNotFound
	ErrDuplicateLevel = errors.New("duplicate level number")
	ErrNoLevelsDir    = errors.New("no levels directory configured")
)

type catalogEntry struct {
	level  *engine.Level
	source string
}

// Manager handles level catalog loading and caching. The embedded levels
// form the base catalog; files in the levels directory add to it or
// replace a built-in level with the same number.
type Manager struct {
	levelsDir string
	levels    map[int]*catalogEntry
	order     []int
	mu        sync.RWMutex
}

// NewManager creates a new level catalog. An empty levelsDir serves the
// built-in levels only.
func NewManager(levelsDir string) (*Manager, error) {
	if levelsDir != "" {
		if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
		}
	}

	m := &Manager{levelsDir: levelsDir}
	if err := m.Refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

// Refresh reloads the built-in levels and every level file from disk
func (m *Manager) Refresh() error {
	builtin, err := BuiltinLevels()
	if err != nil {
		return fmt.Errorf("failed to load builtin levels: %w", err)
	}

	levels := make(map[int]*catalogEntry, len(builtin))
	for _, level := range builtin {
		levels[level.Number] = &catalogEntry{level: level, source: BuiltinSource}
	}

	if m.levelsDir != "" {
		fromDisk, err := m.loadDir()
		if err != nil {
			return err
		}
		for _, e := range fromDisk {
			levels[e.level.Number] = e
		}
	}

	order := make([]int, 0, len(levels))
	for n := range levels {
		order = append(order, n)
	}
	sort.Ints(order)

	m.mu.Lock()
	m.levels = levels
	m.order = order
	m.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{"levels": len(order), "dir": m.levelsDir}).Debug("level catalog loaded")
	return nil
}

// loadDir reads every *.json and *.hcl file of the levels directory.
func (m *Manager) loadDir() ([]*catalogEntry, error) {
	entries, err := os.ReadDir(m.levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	parser := hclparse.NewParser()
	seen := make(map[int]string)
	var out []*catalogEntry

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !IsLevelFile(name) {
			continue
		}

		levels, err := DecodeLevelFile(parser, filepath.Join(m.levelsDir, name))
		if err != nil {
			return nil, err
		}
		for _, level := range levels {
			if err := engine.ValidateLevel(level); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}

		for _, level := range levels {
			if prev, dup := seen[level.Number]; dup {
				return nil, fmt.Errorf("%w: level %d defined in %s and %s", ErrDuplicateLevel, level.Number, prev, name)
			}
			seen[level.Number] = name
			out = append(out, &catalogEntry{level: level, source: name})
		}
	}
	return out, nil
}

// LoadLevel returns the level with the given number
func (m *Manager) LoadLevel(number int) (*engine.Level, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.levels[number]
	if !exists {
		return nil, ErrLevelNotFound
	}
	return e.level, nil
}

// ListLevels returns information about all available levels, ordered by number
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*service.LevelInfo, 0, len(m.order))
	for _, n := range m.order {
		e := m.levels[n]
		infos = append(infos, &service.LevelInfo{
			Level:        e.level.Number,
			Name:         e.level.Name,
			Source:       e.source,
			Grid:         e.level.Grid,
			CodeLines:    e.level.CodeLines,
			Instructions: e.level.Instructions,
		})
	}
	return infos, nil
}

// Levels returns every level, ordered by number
func (m *Manager) Levels() []*engine.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*engine.Level, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.levels[n].level)
	}
	return out
}

// GetDefault returns the first level of the catalog
func (m *Manager) GetDefault() *engine.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return nil
	}
	return m.levels[m.order[0]].level
}

// NextLevel returns the level following number in catalog order
func (m *Manager) NextLevel(number int) (*engine.Level, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := sort.SearchInts(m.order, number+1)
	if i >= len(m.order) {
		return nil, false
	}
	return m.levels[m.order[i]].level, true
}

// SaveLevel writes a level to the levels directory as JSON and caches it
func (m *Manager) SaveLevel(level *engine.Level) error {
	if err := engine.ValidateLevel(level); err != nil {
		return err
	}
	if m.levelsDir == "" {
		return ErrNoLevelsDir
	}

	filename := fmt.Sprintf("level-%d.json", level.Number)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, exists := m.levels[level.Number]; exists && e.source != BuiltinSource && e.source != filename {
		return fmt.Errorf("%w: level %d is defined in %s", ErrDuplicateLevel, level.Number, e.source)
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.levelsDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	if _, exists := m.levels[level.Number]; !exists {
		m.order = append(m.order, level.Number)
		sort.Ints(m.order)
	}
	m.levels[level.Number] = &catalogEntry{level: level, source: filename}
	return nil
}

// Package config provides the level catalog for Code Maze.
//
// The config package handles:
//   - The embedded catalog of built-in levels
//   - Loading level files from a directory in JSON or HCL
//   - Level ordering, lookup and progression
//   - Saving new or edited levels as JSON
//
// Level Formats:
//
// A JSON file holds exactly one level:
//
//	{
//	  "level": 1,
//	  "name": "First steps",
//	  "grid": {"columns": 1, "rows": 2},
//	  "allowed_cells": [{"x": 0, "y": 0}, {"x": 0, "y": 1}],
//	  "start_position": {"x": 0, "y": 1},
//	  "finish_position": {"x": 0, "y": 0},
//	  "completed_code": "move();",
//	  "code_lines": 1
//	}
//
// An HCL file holds any number of level blocks, with coordinates as [x, y]:
//
//	level "First steps" {
//	  number         = 1
//	  columns        = 1
//	  rows           = 2
//	  allowed_cells  = [[0, 0], [0, 1]]
//	  start          = [0, 1]
//	  finish         = [0, 0]
//	  completed_code = "move();"
//	  code_lines     = 1
//	}
//
// Files in the levels directory add to the built-in catalog, or replace the
// built-in level with the same number. A number defined twice on disk is an
// error.
//
// Usage:
//
//	manager, err := config.NewManager("configs/levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := manager.LoadLevel(1)
//	next, ok := manager.NextLevel(level.Number)
package config

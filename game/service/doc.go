// Package service provides the business logic layer for Code Maze.
//
// The service package implements:
//   - Multi-session level play
//   - Level catalog access and level progression
//   - Code checking, submission and animation acknowledgment
//   - Headless runs that acknowledge every frame immediately
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads the level catalog. Notifier pushes state changes,
// animation frames and diagnostics to connected clients.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine sequencer; the service
// wires the sequencer's animation driver to the Notifier so browser clients
// animate each frame and acknowledge it over the WebSocket or HTTP API.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs/levels")
//	gameService := service.NewGameServiceWithOptions(sessionMgr, configMgr, service.Options{
//		Notifier: hub,
//	})
//
//	info, err := gameService.CreateSession(ctx, 1)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.SubmitCode(ctx, info.ID, "move();")
//
// Progression:
//
// When a playback completes a level, results carry next_level, or
// game_complete when it was the last level of the catalog.
package service

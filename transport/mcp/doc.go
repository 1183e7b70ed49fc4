// Package mcp exposes Code Maze to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API (see package api), so an agent and a browser can share a session.
//
// Tools:
//   - create_session, get_session, list_sessions
//   - list_levels, select_level
//   - game_instructions: rules, plus the level hint and map for a session
//   - check_code: diagnostics for a draft program
//   - run_code: headless playback returning every step and the final map
//   - submit_code, animation_finished: browser-style playback, one
//     acknowledgment per action
//   - retry_level, game_state
//
// Tool output is plain text meant to be read by a model. Level solutions are
// never included.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

// Package websocket pushes Code Maze playback to browsers and carries their
// replies back to the game service.
//
// A central Hub owns every connection, grouped by session ID. All mutation of
// the client registry happens on the Hub's Run goroutine; the Notify methods
// only enqueue, so the engine can report state changes without blocking.
//
// Outbound messages (one JSON object per frame):
//
//	{"session_id": "ab12", "event": "state_update",    "state": {...}}
//	{"session_id": "ab12", "event": "animation_frame", "frame": {...}}
//	{"session_id": "ab12", "event": "diagnostics",     "diagnostics": {...}}
//	{"session_id": "ab12", "event": "error",           "data": "..."}
//
// Inbound messages:
//
//	{"type": "animation_finished", "playback_id": "...", "index": 0}
//	{"type": "code_changed", "content": "...", "line_count": 3, "caret_line": 2}
//
// ServiceHandler forwards acknowledgments straight to the service and
// debounces editor changes per session before asking for diagnostics.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetHandler(websocket.NewServiceHandler(hub, gameService, 300*time.Millisecond))
//	go hub.Run()
package websocket

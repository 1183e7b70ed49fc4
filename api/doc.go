// Package api provides the HTTP REST API for Code Maze.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                          {"level": 1} (0 or omitted: first level)
//   - GET    /api/sessions?sort=created|accessed&order=asc|desc&limit=N
//   - GET    /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//
// Playing a level:
//   - GET  /api/sessions/{id}/state
//   - POST /api/sessions/{id}/level                {"level": 2}
//   - POST /api/sessions/{id}/check                {"content": "...", "line_count": 2, "caret_line": 2}
//   - POST /api/sessions/{id}/submit               {"code": "move();\nturn(\"right\");"}
//   - POST /api/sessions/{id}/animation-finished   {"playback_id": "...", "index": 0}
//   - POST /api/sessions/{id}/retry
//   - POST /api/sessions/{id}/run                  {"code": "...", "reset": true}
//
// Levels:
//   - GET  /api/levels
//   - GET  /api/levels/{number}
//   - POST /api/levels                             (engine.Level JSON)
//
// Other:
//   - GET /ws?session={id}   WebSocket upgrade, see transport/websocket
//   - GET /health
//
// Submit starts a playback and returns after the first frame; browsers drive
// the rest by acknowledging each animation. Run does the whole playback in
// one request and returns the frame trace, which is what MCP clients use.
//
// Errors are returned as {"error": "message"}: 404 for unknown sessions and
// levels, 400 for malformed requests and invalid levels, 409 for level
// number conflicts.
package api

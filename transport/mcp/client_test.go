package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/codemaze/api"
	"github.com/wricardo/mcp-training/codemaze/game/config"
	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
	"github.com/wricardo/mcp-training/codemaze/game/service"
	"github.com/wricardo/mcp-training/codemaze/game/session"
)

// newBackedClient returns a client talking to a real API server over the built-in levels.
func newBackedClient(t *testing.T) *Client {
	t.Helper()

	configs, err := config.NewManager("")
	require.NoError(t, err)

	svc := service.NewGameService(session.NewManager(), configs)
	srv := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL)
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func createSession(t *testing.T, c *Client, level int) string {
	t.Helper()

	args := map[string]interface{}{}
	if level > 0 {
		args["level"] = float64(level)
	}
	result, err := c.handleCreateSession(context.Background(), call(args))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	text := resultText(t, result)
	line := strings.SplitN(text, "\n", 2)[0]
	return strings.TrimPrefix(line, "Created session: ")
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")

	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.GetMCPServer())
}

func TestApiCallErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "level 9: level not found"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	err := c.apiCall(ctx, "GET", "/json", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "level 9: level not found", err.Error())

	err = c.apiCall(ctx, "GET", "/plain", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error: 500")

	unreachable := NewClient("http://127.0.0.1:1")
	assert.Error(t, unreachable.apiCall(ctx, "GET", "/", nil, nil))
}

func TestCreateAndInspectSession(t *testing.T) {
	c := newBackedClient(t)
	ctx := context.Background()

	id := createSession(t, c, 2)
	require.NotEmpty(t, id)

	result, err := c.handleGetSession(ctx, call(map[string]interface{}{"session_id": id}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Level: 2 Two steps")
	assert.Contains(t, text, "Status: idle")

	result, err = c.handleListSessions(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), id)

	result, err = c.handleGetSession(ctx, call(map[string]interface{}{"session_id": "zzzz"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGameInstructionsHidesSolution(t *testing.T) {
	c := newBackedClient(t)
	ctx := context.Background()

	result, err := c.handleGameInstructions(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "move(n);")

	id := createSession(t, c, 3)
	result, err = c.handleGameInstructions(ctx, call(map[string]interface{}{"session_id": id}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Level 3")
	assert.Contains(t, text, "Hint:")
	assert.NotContains(t, text, "||")
}

func TestCheckAndRunCode(t *testing.T) {
	c := newBackedClient(t)
	ctx := context.Background()
	id := createSession(t, c, 2)

	result, err := c.handleCheckCode(ctx, call(map[string]interface{}{"session_id": id, "code": "move()\n"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "problem")

	result, err = c.handleCheckCode(ctx, call(map[string]interface{}{"session_id": id, "code": "move();\nmove();\n"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No problems found (2 statements)")

	result, err = c.handleRunCode(ctx, call(map[string]interface{}{
		"session_id": id,
		"code":       "move();\nmove();",
		"intent":     "straight up to the finish",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Executed 2 step(s): (0,2) -> (0,0)")
	assert.Contains(t, text, "LEVEL COMPLETE")
	assert.Contains(t, text, "select_level 3")

	result, err = c.handleSelectLevel(ctx, call(map[string]interface{}{"session_id": id, "level": float64(3)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Level 3")

	result, err = c.handleSelectLevel(ctx, call(map[string]interface{}{"session_id": id, "level": float64(99)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "All levels complete")
}

func TestSubmitAndAcknowledge(t *testing.T) {
	c := newBackedClient(t)
	ctx := context.Background()
	id := createSession(t, c, 1)

	// Grab the playback ID through the REST API the client wraps
	var submitted service.PlayResult
	require.NoError(t, c.apiCall(ctx, "POST", sessionPath(id, "/submit"), map[string]string{"code": "move();"}, &submitted))
	require.True(t, submitted.State.Animating)

	result, err := c.handleAnimationFinished(ctx, call(map[string]interface{}{
		"session_id": id, "playback_id": "other", "index": float64(0),
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Not accepted")

	result, err = c.handleAnimationFinished(ctx, call(map[string]interface{}{
		"session_id": id, "playback_id": submitted.State.PlaybackID, "index": float64(0),
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "LEVEL COMPLETE")

	result, err = c.handleSubmitCode(ctx, call(map[string]interface{}{"session_id": id, "code": "move();"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Not accepted")

	result, err = c.handleRetry(ctx, call(map[string]interface{}{"session_id": id}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Status: idle")

	result, err = c.handleGameState(ctx, call(map[string]interface{}{"session_id": id}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "^")
}

func TestListLevels(t *testing.T) {
	c := newBackedClient(t)

	result, err := c.handleListLevels(context.Background(), call(nil))
	require.NoError(t, err)
	text := resultText(t, result)
	for _, want := range []string{"Level 1", "Level 4", "1 lines"} {
		assert.Contains(t, text, want)
	}
}

func TestFormatState(t *testing.T) {
	level := &engine.Level{
		Number:         1,
		Grid:           engine.GridSize{Columns: 2, Rows: 1},
		AllowedCells:   []engine.Position{{X: 0, Y: 0}},
		StartPosition:  engine.Position{X: 0, Y: 0},
		FinishPosition: engine.Position{X: 0, Y: 0},
	}
	state := &engine.ExecutionState{
		Status:    engine.StatusError,
		Position:  engine.Position{X: 0, Y: 0},
		Facing:    engine.FacingEast,
		Message:   engine.MsgCantMove,
		Attempted: &engine.Position{X: 1, Y: 0},
	}

	text := formatState(state, level)
	for _, want := range []string{"Status: error", "Facing: > (90°)", ">#", "Blocked at: (1,0)", engine.MsgCantMove, "retry_level"} {
		assert.Contains(t, text, want)
	}

	assert.Equal(t, "No execution state available", formatState(nil, nil))
}

func TestFormatDiagnostics(t *testing.T) {
	result := &grammar.Result{
		Diagnostics: []grammar.Diagnostic{
			{Line: 2, StartColumn: 6, EndColumn: 7, Severity: grammar.SeverityError, Message: grammar.MsgTerminatorExpected},
		},
	}

	text := formatDiagnostics(result)
	assert.Contains(t, text, "1 problem(s)")
	assert.Contains(t, text, "line 2, col 6-7: error: terminator expected")
}

func TestSurfaceFor(t *testing.T) {
	s := surfaceFor("move();\nmove();\n\n")
	assert.Equal(t, "move();\nmove();", s.Content)
	assert.Equal(t, 2, s.LineCount)
	assert.Zero(t, s.CaretLine)
}

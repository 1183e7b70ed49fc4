package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/codemaze/game/config"
	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
	"github.com/wricardo/mcp-training/codemaze/game/service"
	"github.com/wricardo/mcp-training/codemaze/game/session"
)

// newTestServer wires the real service stack over the built-in levels and a
// writable levels directory.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	svc := service.NewGameService(session.NewManager(), configs)
	return NewServer(svc, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, s *Server, level int) *service.SessionInfo {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]int{"level": level})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*service.SessionInfo](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)

	// Empty body starts on the first level
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[*service.SessionInfo](t, rec)
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, engine.StatusIdle, first.State.Status)

	second := createSession(t, s, 3)
	assert.Equal(t, 3, second.Level)

	rec = doJSON(t, s, http.MethodGet, "/api/sessions?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string]interface{}](t, rec)
	assert.EqualValues(t, 1, list["count"])
	assert.EqualValues(t, 2, list["total"])

	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+second.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.ID, decode[*service.SessionInfo](t, rec).ID)

	rec = doJSON(t, s, http.MethodDelete, "/api/sessions/"+second.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+second.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]int{"level": 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "Available levels")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAndAcknowledge(t *testing.T) {
	s := newTestServer(t)
	sess := createSession(t, s, 1)
	base := "/api/sessions/" + sess.ID

	rec := doJSON(t, s, http.MethodPost, base+"/submit", map[string]string{"code": "move();"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	submitted := decode[service.PlayResult](t, rec)
	require.True(t, submitted.Accepted)
	require.Equal(t, engine.StatusRunning, submitted.State.Status)
	require.True(t, submitted.State.Animating)

	// Wrong playback is ignored
	rec = doJSON(t, s, http.MethodPost, base+"/animation-finished", map[string]interface{}{
		"playback_id": "stale", "index": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[service.PlayResult](t, rec).Accepted)

	rec = doJSON(t, s, http.MethodPost, base+"/animation-finished", map[string]interface{}{
		"playback_id": submitted.State.PlaybackID, "index": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	acked := decode[service.PlayResult](t, rec)
	assert.True(t, acked.Accepted)
	assert.Equal(t, engine.StatusCompleted, acked.State.Status)
	assert.Equal(t, 2, acked.NextLevel)

	// Completed playback must be retried before another submission
	rec = doJSON(t, s, http.MethodPost, base+"/submit", map[string]string{"code": "move();"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[service.PlayResult](t, rec).Accepted)

	rec = doJSON(t, s, http.MethodPost, base+"/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	retried := decode[service.PlayResult](t, rec)
	assert.Equal(t, engine.StatusIdle, retried.State.Status)
	assert.Equal(t, engine.Position{X: 0, Y: 1}, retried.State.Position)

	rec = doJSON(t, s, http.MethodGet, base+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.StatusIdle, decode[engine.ExecutionState](t, rec).Status)
}

func TestAnimationFinishedRequiresPlayback(t *testing.T) {
	s := newTestServer(t)
	sess := createSession(t, s, 1)

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sess.ID+"/animation-finished", map[string]int{"index": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitValidationError(t *testing.T) {
	s := newTestServer(t)
	sess := createSession(t, s, 2)

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sess.ID+"/submit", map[string]string{"code": "move();"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[service.PlayResult](t, rec)
	assert.Equal(t, engine.StatusError, result.State.Status)
	assert.NotEmpty(t, result.State.Message)
}

func TestRun(t *testing.T) {
	s := newTestServer(t)
	sess := createSession(t, s, 2)

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sess.ID+"/run", map[string]interface{}{
		"code": "move();\nmove();",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.RunResult](t, rec)
	assert.Equal(t, engine.StatusCompleted, result.State.Status)
	assert.Equal(t, 2, result.StepsExecuted)
	assert.Len(t, result.Frames, 2)
	assert.Equal(t, engine.Position{X: 0, Y: 2}, result.StartPos)
	assert.Equal(t, engine.Position{X: 0, Y: 0}, result.EndPos)
	assert.Equal(t, 3, result.NextLevel)

	// Running again without reset needs a retry first
	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sess.ID+"/run", map[string]interface{}{
		"code": "move();\nmove();", "reset": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.StatusCompleted, decode[service.RunResult](t, rec).State.Status)
}

func TestSelectLevel(t *testing.T) {
	s := newTestServer(t)
	sess := createSession(t, s, 1)
	path := "/api/sessions/" + sess.ID + "/level"

	rec := doJSON(t, s, http.MethodPost, path, map[string]int{"level": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	selection := decode[service.LevelSelection](t, rec)
	require.NotNil(t, selection.Level)
	assert.Equal(t, 2, selection.Level.Number)
	assert.Equal(t, engine.Position{X: 0, Y: 2}, selection.State.Position)

	rec = doJSON(t, s, http.MethodPost, path, map[string]int{"level": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.LevelSelection](t, rec).GameComplete)
}

func TestCheck(t *testing.T) {
	s := newTestServer(t)
	sess := createSession(t, s, 2)

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sess.ID+"/check", grammar.CodeSurface{
		Content: "move();\nmove(", LineCount: 2, CaretLine: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[grammar.Result](t, rec)
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Diagnostics)
}

func TestLevelEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/levels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	levels := decode[[]*service.LevelInfo](t, rec)
	require.Len(t, levels, 4)
	assert.Equal(t, config.BuiltinSource, levels[0].Source)

	rec = doJSON(t, s, http.MethodGet, "/api/levels/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[engine.Level](t, rec).Number)

	rec = doJSON(t, s, http.MethodGet, "/api/levels/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	level := engine.Level{
		Number:         5,
		Name:           "Straight line",
		Grid:           engine.GridSize{Columns: 1, Rows: 4},
		AllowedCells:   []engine.Position{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}},
		StartPosition:  engine.Position{X: 0, Y: 3},
		FinishPosition: engine.Position{X: 0, Y: 0},
		CompletedCode:  "move(3);",
		CodeLines:      1,
	}
	rec = doJSON(t, s, http.MethodPost, "/api/levels", level)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodGet, "/api/levels/5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	invalid := level
	invalid.Number = 6
	invalid.StartPosition = engine.Position{X: 3, Y: 3}
	rec = doJSON(t, s, http.MethodPost, "/api/levels", invalid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocketWithoutHub(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/ws?session=abcd", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session x: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("level 9: %w", service.ErrLevelNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: columns", engine.ErrInvalidLevel), http.StatusBadRequest},
		{config.ErrDuplicateLevel, http.StatusConflict},
		{engine.ErrRetryRequired, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}


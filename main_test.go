package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/codemaze/transport/mcp"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Code Maze Server", AppName)
}

func TestCommandTree(t *testing.T) {
	app := newApp()

	names := map[string]bool{}
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	for _, want := range []string{"server", "stdio-mcp", "validate", "analyze"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

// runCaptured runs the app with its default action replaced by fn.
func runCaptured(t *testing.T, args []string, fn func(cmd *cli.Command) error) error {
	t.Helper()
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		return fn(cmd)
	}
	return app.Run(context.Background(), append([]string{"codemaze"}, args...))
}

func TestFlagDefaults(t *testing.T) {
	err := runCaptured(t, nil, func(cmd *cli.Command) error {
		assert.Equal(t, "localhost", cmd.String("host"))
		assert.EqualValues(t, 8080, cmd.Int("port"))
		assert.Equal(t, "configs/levels", cmd.String("levels-dir"))
		assert.Equal(t, 5*time.Second, cmd.Duration("animation-timeout"))
		assert.Equal(t, 24*time.Hour, cmd.Duration("session-ttl"))
		assert.False(t, cmd.Bool("ngrok"))
		return nil
	})
	require.NoError(t, err)
}

func TestInitializeServices(t *testing.T) {
	dir := t.TempDir()

	err := runCaptured(t, []string{"--levels-dir", dir, "--animation-timeout", "50ms"}, func(cmd *cli.Command) error {
		svcs, err := initializeServices(cmd)
		require.NoError(t, err)
		require.NotNil(t, svcs.hub)
		go svcs.hub.Run()

		ctx := context.Background()
		info, err := svcs.game.CreateSession(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, svcs.sessions.Count())

		// Nobody acknowledges the animation; the timeout finishes the level.
		_, err = svcs.game.SubmitCode(ctx, info.ID, "move();")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			state, err := svcs.game.GetState(ctx, info.ID)
			return err == nil && state.Status == "completed"
		}, 2*time.Second, 10*time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

func TestInitializeServices_InvalidLevelsDir(t *testing.T) {
	err := runCaptured(t, []string{"--levels-dir", "/non/existent/path"}, func(cmd *cli.Command) error {
		_, err := initializeServices(cmd)
		return err
	})
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf

	err := app.Run(context.Background(), []string{"codemaze", "--levels-dir", "configs/levels", "validate"})
	require.NoError(t, err, buf.String())
	assert.Contains(t, buf.String(), "All levels are valid")
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"level": 9, "grid": {"columns": 0, "rows": 0}}`), 0644))

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := app.Run(context.Background(), []string{"codemaze", "validate", dir})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "INVALID")
}

func TestAnalyzeCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf

	err := app.Run(context.Background(), []string{"codemaze", "--levels-dir", "", "analyze", "2"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Level 2")
	assert.NotContains(t, out, "Level 1:")
	assert.True(t, strings.Contains(out, "reaches the finish"), out)
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:1"))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run_code")
}

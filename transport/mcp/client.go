package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
	"github.com/wricardo/mcp-training/codemaze/game/grammar"
	"github.com/wricardo/mcp-training/codemaze/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Code Maze",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Code Maze - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Write a short program that walks the avatar from the start cell to the finish
cell of each level. Programs use two statements, one per line:
  move(n);              move n cells forward (move(); is one cell)
  turn("left");         also "right" and "around"

AVAILABLE TOOLS:
- create_session / get_session / list_sessions: manage sessions
- list_levels / select_level: browse and switch levels
- game_instructions: rules plus the current level's hint and map
- check_code: validate a draft program without running it
- run_code: validate and run a program to the end, returning every step
- submit_code / animation_finished: step-by-step playback, one acknowledgment per action
- retry_level: restore the level start after an error or completion
- game_state: current execution state and map

Each level accepts exactly one solution shape and an exact number of lines.
Use check_code first; its diagnostics point at the line and column to fix.`),
	)

	c.registerTools()
}

const codeHelp = "Program text, one statement per line, e.g. \"move(2);\\nturn(\\\"right\\\");\""

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

func codeArg() mcp.ToolOption {
	return mcp.WithString("code", mcp.Required(), mcp.Description(codeHelp))
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		// Sessions
		{mcp.NewTool("create_session",
			mcp.WithDescription("Create a new game session, optionally starting on a given level"),
			mcp.WithNumber("level", mcp.Description("Level number to start on (optional, defaults to the first level)")),
		), c.handleCreateSession},
		{mcp.NewTool("list_sessions",
			mcp.WithDescription("List all active game sessions"),
		), c.handleListSessions},
		{mcp.NewTool("get_session",
			mcp.WithDescription("Get details of a specific session"),
			sessionArg(),
		), c.handleGetSession},

		// Levels
		{mcp.NewTool("list_levels",
			mcp.WithDescription("List available levels"),
		), c.handleListLevels},
		{mcp.NewTool("select_level",
			mcp.WithDescription("Switch a session to another level; selecting past the last level reports game completion"),
			sessionArg(),
			mcp.WithNumber("level", mcp.Required(), mcp.Description("Level number")),
		), c.handleSelectLevel},

		// Playing
		{mcp.NewTool("check_code",
			mcp.WithDescription("Validate a draft program against the level without running it"),
			sessionArg(),
			codeArg(),
		), c.handleCheckCode},
		{mcp.NewTool("submit_code",
			mcp.WithDescription("Start step-by-step playback of a program. Acknowledge each animation frame with animation_finished to advance"),
			sessionArg(),
			codeArg(),
		), c.handleSubmitCode},
		{mcp.NewTool("animation_finished",
			mcp.WithDescription("Acknowledge the animation of one action so playback advances to the next"),
			sessionArg(),
			mcp.WithString("playback_id", mcp.Required(), mcp.Description("Playback ID from submit_code")),
			mcp.WithNumber("index", mcp.Required(), mcp.Description("Index of the action whose animation finished (0-based)")),
		), c.handleAnimationFinished},
		{mcp.NewTool("run_code",
			mcp.WithDescription("Validate and run a program to the end, returning every step and the final map"),
			sessionArg(),
			codeArg(),
			mcp.WithString("intent", mcp.Description("Brief explanation of the route this program takes")),
			mcp.WithBoolean("reset", mcp.Description("Retry the level before running (needed after an error or completion)")),
		), c.handleRunCode},
		{mcp.NewTool("retry_level",
			mcp.WithDescription("Restore the level start so a new program can be submitted"),
			sessionArg(),
		), c.handleRetry},
		{mcp.NewTool("game_state",
			mcp.WithDescription("Get the current execution state and map"),
			sessionArg(),
		), c.handleGameState},
		{mcp.NewTool("game_instructions",
			mcp.WithDescription("Get the game rules, plus the current level's hint and map when a session is given"),
			mcp.WithString("session_id", mcp.Description("Session ID (optional)")),
		), c.handleGameInstructions},
	}

	for _, t := range tools {
		c.mcpServer.AddTool(t.tool, t.handler)
	}
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args := request.GetArguments(); args != nil {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads a JSON number argument.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// surfaceFor treats code as a finished edit: no caret, trailing blank lines ignored.
func surfaceFor(code string) grammar.CodeSurface {
	code = strings.TrimRight(code, "\n")
	return grammar.CodeSurface{
		Content:   code,
		LineCount: strings.Count(code, "\n") + 1,
	}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]int{}
	if level, ok := intArg(arguments(request), "level"); ok {
		body["level"] = level
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created session: " + session.ID + "\n\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := engine.StatusIdle
		if s.State != nil {
			status = s.State.Status
		}
		fmt.Fprintf(&b, "- %s (Level %d %s, %s, Created: %s)\n",
			s.ID, s.Level, s.LevelName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, l := range levels {
		lines := "any number of lines"
		if l.CodeLines != engine.UnconstrainedLines {
			lines = fmt.Sprintf("%d lines", l.CodeLines)
		}
		fmt.Fprintf(&b, "• Level %d: %s\n  Grid: %dx%d, %s\n\n", l.Level, l.Name, l.Grid.Columns, l.Grid.Rows, lines)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSelectLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	level, ok := intArg(args, "level")
	if !ok {
		return mcp.NewToolResultError("level is required"), nil
	}

	var selection service.LevelSelection
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/level"), map[string]int{"level": level}, &selection); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if selection.GameComplete {
		return mcp.NewToolResultText("🎉 All levels complete! There is no level " + fmt.Sprint(level) + "."), nil
	}

	return mcp.NewToolResultText(formatLevel(selection.Level) + "\n" + formatState(selection.State, selection.Level)), nil
}

func (c *Client) handleCheckCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	code, _ := args["code"].(string)

	var result grammar.Result
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/check"), surfaceFor(code), &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDiagnostics(&result)), nil
}

func (c *Client) handleSubmitCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	code, _ := args["code"].(string)

	var result service.PlayResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/submit"), map[string]string{"code": code}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayResult(&result)), nil
}

func (c *Client) handleAnimationFinished(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	playbackID, _ := args["playback_id"].(string)
	index, _ := intArg(args, "index")

	body := map[string]interface{}{
		"playback_id": playbackID,
		"index":       index,
	}

	var result service.PlayResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/animation-finished"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayResult(&result)), nil
}

func (c *Client) handleRunCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	code, _ := args["code"].(string)
	reset, _ := args["reset"].(bool)

	// intent is only there to make the caller explain itself

	body := map[string]interface{}{
		"code":  code,
		"reset": reset,
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/run"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleRetry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.PlayResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/retry"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Level restarted.\n\n" + formatPlayResult(&result)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	// The session carries the level too, which the map needs
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(session.State, session.LevelConfig)), nil
}

const gameRules = `🧩 Code Maze - Instructions

OBJECTIVE:
Program the avatar to walk from its start cell to the finish cell (F).

STATEMENTS (one per line, trailing ; required):
• move(n);           move n cells forward, n >= 1. move(); moves one cell
• turn("left");      rotate 90° counter-clockwise
• turn("right");     rotate 90° clockwise
• turn("around");    rotate 180°

RULES:
• The avatar starts facing up (^). Facing arrows: ^ > v <
• Only allowed cells (.) can be entered; # cells and the grid edge block moves
• Each level expects an exact number of lines and a specific solution shape
• A blocked move stops the program with "You can't move there."; retry_level to start over
• A program that ends off the finish keeps the avatar where it stopped; submit more code to continue

WORKFLOW:
1. game_instructions with your session to see the level hint and map
2. check_code until it reports no problems
3. run_code to execute (reset=true after an error or a completed level)
4. select_level with the next level number when a level is complete`

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	if sessionID == "" {
		return mcp.NewToolResultText(gameRules), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(gameRules + "\n\n" + formatLevel(session.LevelConfig) + "\n" + formatState(session.State, session.LevelConfig)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %d %s\nCreated: %s\n\n%s",
		session.ID, session.Level, session.LevelName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatState(session.State, session.LevelConfig))
}

// formatLevel describes a level without revealing its solution.
func formatLevel(level *engine.Level) string {
	if level == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level %d: %s\n", level.Number, level.Name)
	if level.Instructions != "" {
		fmt.Fprintf(&b, "Hint: %s\n", level.Instructions)
	}
	fmt.Fprintf(&b, "Grid: %dx%d, start %s, finish %s\n",
		level.Grid.Columns, level.Grid.Rows, level.StartPosition, level.FinishPosition)
	if level.CodeLines != engine.UnconstrainedLines {
		fmt.Fprintf(&b, "Expected lines: %d\n", level.CodeLines)
	}
	return b.String()
}

func formatState(state *engine.ExecutionState, level *engine.Level) string {
	if state == nil {
		return "No execution state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s | Position: %s | Facing: %s (%d°)",
		state.Status, state.Position, engine.FacingArrow(state.Facing), state.Facing)
	if n := len(state.Actions); n > 0 {
		fmt.Fprintf(&b, " | Actions: %d/%d", state.NextActionIndex, n)
	}
	b.WriteString("\n")

	if level != nil {
		b.WriteString("\n")
		for _, row := range engine.RenderMap(level.BuildGrid(), state.Position, state.Facing) {
			b.WriteString(row + "\n")
		}
	}

	if state.Animating {
		fmt.Fprintf(&b, "\nAwaiting animation_finished for playback %s index %d\n", state.PlaybackID, state.NextActionIndex-1)
	}
	if state.Attempted != nil {
		fmt.Fprintf(&b, "\nBlocked at: %s\n", state.Attempted)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	if state.Warning != "" {
		fmt.Fprintf(&b, "\nWarning: %s", state.Warning)
	}

	switch state.Status {
	case engine.StatusCompleted:
		b.WriteString("\n🎉 LEVEL COMPLETE!")
	case engine.StatusError:
		b.WriteString("\n❌ ERROR (use retry_level)")
	}

	return b.String()
}

func formatDiagnostics(result *grammar.Result) string {
	if result.OK {
		return fmt.Sprintf("✓ No problems found (%d statements)", len(result.Statements))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✗ %d problem(s):\n", len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		fmt.Fprintf(&b, "  %s\n", d)
	}
	return b.String()
}

func formatPlayResult(result *service.PlayResult) string {
	var b strings.Builder
	if !result.Accepted {
		b.WriteString("✗ Not accepted")
		if result.Reason != "" {
			b.WriteString(": " + result.Reason)
		}
		b.WriteString("\n\n")
	}

	b.WriteString(formatState(result.State, nil))
	b.WriteString(formatProgress(result))
	return b.String()
}

func formatProgress(result *service.PlayResult) string {
	switch {
	case result.GameComplete:
		return "\n🏁 That was the last level!"
	case result.NextLevel > 0:
		return fmt.Sprintf("\nNext: select_level %d", result.NextLevel)
	}
	return ""
}

func formatRunResult(result *service.RunResult) string {
	var b strings.Builder

	if !result.Accepted && result.Reason != "" {
		fmt.Fprintf(&b, "✗ Not accepted: %s\n\n", result.Reason)
	}

	fmt.Fprintf(&b, "Executed %d step(s): %s -> %s\n", result.StepsExecuted, result.StartPos, result.EndPos)
	for _, f := range result.Frames {
		status := "ok"
		if f.Rejected {
			status = "BLOCKED"
		}
		fmt.Fprintf(&b, "  %d. %-12s %s%s -> %s%s  %s\n",
			f.Index+1, f.Action, f.From, engine.FacingArrow(f.FromFacing), f.To, engine.FacingArrow(f.ToFacing), status)
	}

	if len(result.Map) > 0 {
		b.WriteString("\n")
		for _, row := range result.Map {
			b.WriteString(row + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(formatState(result.State, nil))
	b.WriteString(formatProgress(&result.PlayResult))
	return b.String()
}

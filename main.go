// Command codemaze starts the Code Maze server.
//
// Subcommands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate" checks the built-in levels and every level file in the levels directory
//  4. "analyze" prints each level's map and the simulated reference solution
//
// Flags control host/port, the levels directory, logging, session expiry,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/codemaze/api"
	"github.com/wricardo/mcp-training/codemaze/game/config"
	"github.com/wricardo/mcp-training/codemaze/game/service"
	"github.com/wricardo/mcp-training/codemaze/game/session"
	"github.com/wricardo/mcp-training/codemaze/pkg/logger"
	"github.com/wricardo/mcp-training/codemaze/transport/mcp"
	"github.com/wricardo/mcp-training/codemaze/transport/websocket"
	"github.com/wricardo/mcp-training/codemaze/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Code Maze Server"
)

const (
	// Quiet period before a code_changed message is validated.
	checkDebounce = 300 * time.Millisecond

	cleanupInterval = 1 * time.Hour
)

// main loads .env, builds the command tree and runs it.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.WithError(err).Warn("error loading .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logger.Log.WithError(err).Fatal("codemaze failed")
	}
}

// newApp builds the root command. Flags are shared by every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "codemaze",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "levels-dir", Value: "configs/levels", Usage: "Directory with extra *.json and *.hcl levels (empty: built-in levels only)", Sources: cli.EnvVars("LEVELS_DIR")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format: text or json", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.DurationFlag{Name: "animation-timeout", Value: 5 * time.Second, Usage: "How long to wait for an animation acknowledgment before continuing", Sources: cli.EnvVars("ANIMATION_TIMEOUT")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: setupLogging,
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
			{
				Name:      "validate",
				Usage:     "Validate the built-in levels and every level file",
				ArgsUsage: "[dir...]",
				Action:    runValidate,
			},
			{
				Name:      "analyze",
				Usage:     "Print each level's map and simulated reference solution",
				ArgsUsage: "[level...]",
				Action:    runAnalyze,
			},
		},
	}
}

// setupLogging configures the shared logger from the environment and flags.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger.Init()
	if format := cmd.String("log-format"); format != "" {
		logger.Configure(logger.Log.GetLevel().String(), format, os.Stdout)
	}
	if cmd.Bool("debug") {
		logger.Log.SetLevel(logrus.DebugLevel)
	}
	return ctx, nil
}

// services bundles everything the HTTP surfaces need.
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
}

// initializeServices wires the level catalog, session store, game service and
// WebSocket hub. The hub receives every state change of every session.
func initializeServices(cmd *cli.Command) (*services, error) {
	configManager, err := config.NewManager(cmd.String("levels-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create level catalog: %w", err)
	}

	hub := websocket.NewHub()
	sessionManager := session.NewManager()
	gameService := service.NewGameServiceWithOptions(sessionManager, configManager, service.Options{
		Notifier:         hub,
		AnimationTimeout: cmd.Duration("animation-timeout"),
	})
	hub.SetHandler(websocket.NewServiceHandler(hub, gameService, checkDebounce))

	return &services{game: gameService, sessions: sessionManager, hub: hub}, nil
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP POST.
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	svcs, err := initializeServices(cmd)
	if err != nil {
		return err
	}
	go svcs.hub.Run()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go svcs.sessions.RunCleanup(ctx, cleanupInterval, cmd.Duration("session-ttl"))

	apiServer := api.NewServer(svcs.game, svcs.hub)

	addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(int(cmd.Int("port"))))
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Log.Infof("Starting %s v%s", AppName, Version)

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Log.Infof("HTTP server listening on %s", addr)
		logger.Log.Infof("REST API: http://%s/api", addr)
		logger.Log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		logger.Log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
			cancel()
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cmd, mainRouter)
		}()
	}

	<-ctx.Done()
	logger.Log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	logger.Log.Info("Server stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done.
func runNgrokTunnel(ctx context.Context, cmd *cli.Command, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Log.Infof("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Log.Infof("🚀 Ngrok tunnel established: %s", ngrokURL)
	logger.Log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	logger.Log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	logger.Log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Log.WithError(err).Warn("Ngrok server error")
	}
	logger.Log.Info("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server.
// It reuses an API already listening on --host/--port; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol
	logger.Log.SetOutput(os.Stderr)

	externalURL := "http://" + net.JoinHostPort(cmd.String("host"), strconv.Itoa(int(cmd.Int("port"))))
	baseURL := externalURL
	logger.Log.Infof("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Log.Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		logger.Log.Info("No external API server found, starting internal HTTP server")

		internalURL, shutdown, err := startInternalServer(ctx, cmd)
		if err != nil {
			return err
		}
		defer shutdown()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Log.Infof("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// startInternalServer serves the API on a random loopback port.
func startInternalServer(ctx context.Context, cmd *cli.Command) (string, func(), error) {
	svcs, err := initializeServices(cmd)
	if err != nil {
		return "", nil, err
	}
	go svcs.hub.Run()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	go svcs.sessions.RunCleanup(cleanupCtx, cleanupInterval, cmd.Duration("session-ttl"))

	httpServer := &http.Server{Handler: api.NewServer(svcs.game, svcs.hub)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Error("Internal HTTP server error")
		}
	}()

	addr := listener.Addr().String()
	logger.Log.Infof("Internal HTTP server on %s for MCP stdio", addr)

	shutdown := func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}
	return "http://" + addr, shutdown, nil
}

// runValidate checks the built-in levels plus the levels directory (or the
// directories given as arguments) and fails if any level is invalid.
func runValidate(ctx context.Context, cmd *cli.Command) error {
	results, err := validate.CheckBuiltin()
	if err != nil {
		return err
	}

	dirs := cmd.Args().Slice()
	if len(dirs) == 0 && cmd.String("levels-dir") != "" {
		dirs = []string{cmd.String("levels-dir")}
	}
	for _, dir := range dirs {
		fromDir, err := validate.CheckDir(dir)
		if err != nil {
			return err
		}
		results = append(results, fromDir...)
	}

	if !validate.Report(cmd.Root().Writer, results) {
		return cli.Exit("", 1)
	}
	return nil
}

// runAnalyze prints the analysis of every catalog level, or only the level
// numbers given as arguments.
func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	catalog, err := config.NewManager(cmd.String("levels-dir"))
	if err != nil {
		return err
	}

	infos, err := catalog.ListLevels()
	if err != nil {
		return err
	}

	wanted := make(map[int]bool)
	for _, arg := range cmd.Args().Slice() {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid level number %q", arg)
		}
		wanted[n] = true
	}

	out := cmd.Root().Writer
	for _, info := range infos {
		if len(wanted) > 0 && !wanted[info.Level] {
			continue
		}
		level, err := catalog.LoadLevel(info.Level)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, validate.Analyze(info.Source, level).Render())
	}
	return nil
}

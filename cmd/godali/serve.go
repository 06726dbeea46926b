package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/rickchristie/dali"
	"github.com/rickchristie/dali/contrib/metrics/vm"
	"github.com/rickchristie/dali/internal/meta"
)

const defaultMetricsPath = "/metrics"

func defaultConfigPath() string {
	if p := os.Getenv("GODALI_CONFIG_PATH"); p != "" {
		return p
	}
	return ".godali/config.json"
}

func runServe() error {
	ctx := context.Background()

	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := validateServerSettings(serverConfig.Server); err != nil {
		return err
	}

	// 2. Resolve credentials
	username := os.Getenv("GODALI_USERNAME")
	if username == "" {
		username = promptInput("Username: ")
	}
	password := os.Getenv("GODALI_PASSWORD")
	if password == "" {
		password = promptPassword("Password: ")
	}

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 4. Build client and bridge
	var collector *vm.Collector
	if serverConfig.Server.MetricsEnabled {
		collector = vm.New()
	}
	client, err := buildClient(serverConfig.Connection, username, password, logger, collector)
	if err != nil {
		return fmt.Errorf("failed to build client: %w", err)
	}

	opts := []dali.Option{}
	if serverConfig.Connection.Endpoint != "" {
		opts = append(opts, dali.WithEndpoint(serverConfig.Connection.Endpoint))
	}
	if len(serverConfig.ServerHooks.BeforeQuery) > 0 || len(serverConfig.ServerHooks.AfterQuery) > 0 {
		opts = append(opts, dali.WithServerHooks(serverConfig.ServerHooks))
	}
	bridge := dali.New(client, serverConfig.Config, logger, opts...)

	// 5. Test database connection
	logger.Info().Str("endpoint", bridge.Endpoint()).Msg("testing database connection")
	if err := bridge.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("godali", meta.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	dali.RegisterMCPTools(mcpServer, bridge)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	router := chi.NewRouter()
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Start() does NOT register the handler when a custom *http.Server is
	// provided via WithStreamableHTTPServer.
	mountRoutes(router, serverConfig.Server, streamableServer, collector)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting godali server")
	return streamableServer.Start(addr)
}

// validateServerSettings checks the settings runServe cannot start without.
func validateServerSettings(s dali.ServerSettings) error {
	if s.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if s.HealthCheckEnabled && s.HealthCheckPath == "" {
		return errors.New("server.health_check_path must be set when health_check_enabled is true")
	}
	return nil
}

// mountRoutes registers the MCP endpoint and the optional health check and
// metrics endpoints.
func mountRoutes(r chi.Router, s dali.ServerSettings, mcpHandler http.Handler, collector *vm.Collector) {
	// Health check endpoint (process liveness only, not DB connectivity)
	if s.HealthCheckEnabled {
		r.Get(s.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if collector != nil {
		path := s.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		r.Get(path, collector.Handler)
	}
	r.Handle("/mcp", mcpHandler)
}

func loadServerConfig() (*dali.ServerConfig, error) {
	configPath := defaultConfigPath()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return dali.ParseServerConfig(configPath, data)
}

// buildClient creates the database client. A nil collector leaves metrics off.
func buildClient(conn dali.ConnectionConfig, username, password string, logger zerolog.Logger, collector *vm.Collector) (*dali.Client, error) {
	b := conn.ClientBuilder(username, password).Logger(logger)
	if collector != nil {
		b.Metrics(collector)
	}
	return b.Build()
}

func setupLogger(config dali.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}

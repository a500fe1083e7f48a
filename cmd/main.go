package main

//
//  @title           foliopulse API
//  @version         1.0
//  @description     Brokerage movement import & portfolio snapshot service.
//  @termsOfService  https://github.com/guttosm/foliopulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/foliopulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        sessions
//  @tag.description Endpoints for querying import sessions
//
//  @tag.name        snapshots
//  @tag.description Endpoints for querying portfolio snapshots
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/foliopulse/config"
	"github.com/guttosm/foliopulse/db"
	_ "github.com/guttosm/foliopulse/docs" // swagger docs
	"github.com/guttosm/foliopulse/internal/app"
	"github.com/guttosm/foliopulse/internal/importer"
	"github.com/guttosm/foliopulse/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown terminates the HTTP server and cleans up resources when
// an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runImport connects to the database, migrates it, loads the movement file
// and drives the chunked pipeline. Ctrl-C cancels at the next chunk
// boundary, leaving the session resumable with --resume.
func runImport(ctx context.Context, file string, resume bool, windowDays int) {
	conn, err := app.InitPostgres(config.AppConfig)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("db connect error")
	}
	defer func() { _ = conn.Close() }()

	if err := db.Migrate(conn); err != nil {
		logger.L().Fatal().Err(err).Msg("migration failed")
	}

	set, accountID, info, err := importer.LoadMovementFile(file)
	if err != nil {
		logger.L().Fatal().Err(err).Str("file", file).Msg("load movement file failed")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	imp := app.InitializeImporter(conn)
	opts := importer.Options{
		FileName:   info.Name,
		FilePath:   info.Path,
		FileHash:   info.Hash,
		Broker:     config.AppConfig.Import.Broker,
		WindowDays: windowDays,
	}

	var result = imp.Run
	if resume {
		result = imp.Resume
	}
	res := result(ctx, accountID, set, opts)

	for _, w := range res.Warnings {
		logger.L().Warn().Str("session_id", res.SessionID).Msg(w)
	}
	for _, e := range res.Errors {
		logger.L().Warn().Int("row", e.Row).Str("kind", string(e.Kind)).Msg(e.Message)
	}

	event := logger.L().Info()
	switch {
	case res.Cancelled:
		event = logger.L().Warn()
	case !res.Success:
		event = logger.L().Error()
	}
	event.
		Str("session_id", res.SessionID).
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("total", res.Total).
		Int64("elapsed_ms", res.ElapsedMs).
		Bool("cancelled", res.Cancelled).
		Msg("import finished")

	if !res.Success {
		os.Exit(1)
	}
}

// main is the entry point of the foliopulse application.
//
// Modes (selected via --mode flag):
//   - import: Imports a brokerage movement file into the ledger.
//   - api:    Starts the REST API to expose sessions and snapshots.
//
// Flags:
//   - --mode:        Execution mode ("import" or "api"). Default: "import".
//   - --file:        Path to the movement file to import.
//   - --resume:      Resume the account's active session instead of starting a new one.
//   - --window-days: Chunk window length in days. Defaults to IMPORT_WINDOW_DAYS.
//   - --port:        Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "import", "Mode: import or api")
	file := flag.String("file", "", "Path to the movement file to import")
	resume := flag.Bool("resume", false, "Resume the active session for the file's account")
	windowDays := flag.Int("window-days", config.AppConfig.Import.WindowDays, "Chunk window length in days")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "import":
		if *file == "" {
			logger.L().Fatal().Msg("--file is required in import mode")
		}
		runImport(ctx, *file, *resume, *windowDays)

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

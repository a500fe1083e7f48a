package app

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/foliopulse/config"
	"github.com/guttosm/foliopulse/internal/api"
	"github.com/guttosm/foliopulse/internal/importer"
	"github.com/guttosm/foliopulse/internal/service"
	"github.com/guttosm/foliopulse/internal/storage"
)

// InitializeApp sets up all API-mode dependencies and returns a fully
// configured Gin router, a cleanup function for graceful shutdown, and any
// error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Initializes the repository layer (sessions, snapshots).
//   - Creates the service and HTTP handler layers.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	sessionRepo := storage.NewSessionRepository(db)
	snapshotRepo := storage.NewSnapshotRepository(db)

	sessionSvc := service.NewSessionService(sessionRepo)
	snapshotSvc := service.NewSnapshotService(snapshotRepo)

	handler := api.NewHandler(sessionSvc, snapshotSvc)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(db.Ping)
	healthHandler.Register(router)

	cleanup := func() {
		_ = db.Close()
	}

	return router, cleanup, nil
}

// InitializeImporter wires the import pipeline against an open database
// connection. The snapshot service cache is invalidated after each completed
// session so API reads never serve stale aggregates.
func InitializeImporter(db *sql.DB) *importer.Importer {
	movementRepo := storage.NewMovementRepository(db)
	sessionRepo := storage.NewSessionRepository(db)
	snapshotRepo := storage.NewSnapshotRepository(db)

	snapshotSvc := service.NewSnapshotService(snapshotRepo)

	return importer.New(db, movementRepo, sessionRepo, snapshotRepo, func(accountID string) {
		snapshotSvc.Invalidate(accountID)
	})
}

// Package main initializes and starts the identity service, setting up
// configuration, logging, database connections, repositories, services,
// handlers and the HTTP server.
package main

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/sparkyfit/authority/internal/config"
	"github.com/sparkyfit/authority/internal/db"
	"github.com/sparkyfit/authority/internal/logger"
	"github.com/sparkyfit/authority/internal/middleware"
	"github.com/sparkyfit/authority/internal/repository"
	"github.com/sparkyfit/authority/internal/server/handler/http"
	"github.com/sparkyfit/authority/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Addr
	dbName := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(dbName)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Remove expired sessions in the background.
	db.StartExpiredSessionCleaner(context.Background(), postgresDB,
		time.Hour, // interval
		zapLogger,
	)

	// Initialize repositories for identity and session lookups.
	identityRepo := repository.NewPostgresIdentityRepository(postgresDB)
	sessionRepo := repository.NewPostgresSessionRepository(postgresDB)

	// Initialize business-logic services.
	identityService := service.NewIdentityService(identityRepo)
	sessionService := service.NewSessionService(sessionRepo)

	// Seed demo data when requested (development only).
	if options.Seed {
		if err := seedDemoData(postgresDB, sessionService, zapLogger); err != nil {
			zapLogger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	// Create HTTP handlers for identity and session endpoints.
	identityHandler := &http.IdentityHandler{IdentityService: identityService}
	sessionHandler := &http.SessionHandler{
		IdentityService: identityService,
		Sessions:        sessionService,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(
		identityHandler,
		sessionHandler,
		middleware.SessionAuth(sessionService),
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLogger.Info("starting identity service", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start identity service", zap.Error(err))
	}
}

// seedDemoData inserts two demo principals, a checkin+reports grant
// from bob to alice, and a session for alice, then prints the session
// token.
func seedDemoData(postgresDB *sql.DB, sessions *service.SessionService, log *zap.Logger) error {
	ctx := context.Background()

	_, err := postgresDB.ExecContext(ctx, `
		INSERT INTO principals (id, email, full_name)
		VALUES ('alice', 'alice@example.com', 'Alice Example'),
		       ('bob', 'bob@example.com', 'Bob Example')
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed principals: %w", err)
	}

	_, err = postgresDB.ExecContext(ctx, `
		INSERT INTO access_grants (grantee_id, grantor_id, checkin, reports)
		VALUES ('alice', 'bob', TRUE, TRUE)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed grant: %w", err)
	}

	sess, err := sessions.Create(ctx, "alice", 24*time.Hour)
	if err != nil {
		return fmt.Errorf("seed session: %w", err)
	}

	log.Info("demo data seeded", zap.String("user", sess.UserID))
	fmt.Printf("Demo session token: %s\n", sess.Token)
	return nil
}

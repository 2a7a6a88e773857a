// Package appservice wires configuration, storage, policy, and HTTP transport
// into the running API service.
package appservice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haventeam/haven/internal/api"
	"github.com/haventeam/haven/internal/auth"
	"github.com/haventeam/haven/internal/config"
	"github.com/haventeam/haven/internal/gateway"
	"github.com/haventeam/haven/internal/logger"
	"github.com/haventeam/haven/internal/services"
	"github.com/haventeam/haven/internal/store/postgres"
	"github.com/haventeam/haven/internal/teams"
)

// Run starts the API service and blocks until SIGINT/SIGTERM.
func Run() error {
	log := logger.New("haven-api")

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("auth_mode", cfg.AuthMode).
		Msg("haven api starting")

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres open: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	st := postgres.NewWithDB(db)

	index := teams.NewIndex(st.Teams())
	gw := gateway.New(st, index, log)
	notificationSvc := services.NewNotificationService(st)
	teamSvc := services.NewTeamService(st, log)

	var verifier auth.Verifier
	switch cfg.AuthMode {
	case "introspect":
		verifier = auth.NewIntrospectionVerifier(cfg.IntrospectURL)
	default:
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	}

	router := api.NewRouter(api.Deps{
		Gateway:       gw,
		Notifications: notificationSvc,
		Teams:         teamSvc,
		Verifier:      verifier,
		DBPing:        db.PingContext,
		CORSOrigins:   cfg.CORSOrigins,
		PageSize:      cfg.DefaultPageSize,
		MaxPageSize:   cfg.MaxPageSize,
		Log:           log,
	})

	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-sigCtx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

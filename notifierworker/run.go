// Package notifierworker wires the outbox-draining worker that turns
// committed mutation events into notification records.
package notifierworker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haventeam/haven/internal/config"
	"github.com/haventeam/haven/internal/fanout"
	"github.com/haventeam/haven/internal/logger"
	"github.com/haventeam/haven/internal/outbox"
	"github.com/haventeam/haven/internal/store/postgres"
)

// Run starts the notifier worker and blocks until SIGINT/SIGTERM.
func Run() error {
	log := logger.New("haven-notifier")

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

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

	engine := fanout.NewEngine(st.Notifications(), log)
	worker := outbox.NewWorker(db, engine, outbox.Config{
		BatchSize: cfg.NotifierBatchSize,
		Interval:  time.Duration(cfg.NotifierIntervalSeconds) * time.Second,
	}, log)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(sigCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("notifier worker: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ignite/email-delivery/internal/app"
	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/pkg/distlock"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/worker"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	app.ConfigureLogging(cfg.Logging)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(initCtx, cfg)
	initCancel()
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	queueWorker := worker.NewQueueWorker(a.Queue, cfg.Queue.BatchSize, cfg.Queue.Interval())
	sweeper := worker.NewTokenSweeper(a.Unsubscribe,
		distlock.NewLock(a.Redis, a.DB, worker.TokenSweepLockKey, 10*time.Minute),
		cfg.Maintenance.TokenSweepInterval())

	recovery := worker.NewQueueRecoveryWorker(a.Queue, 0, cfg.Queue.StaleAge())

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); queueWorker.Start(ctx) }()
	go func() { defer wg.Done(); sweeper.Start(ctx) }()
	go func() { defer wg.Done(); recovery.Start(ctx) }()

	if a.Bus != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Bus.Consume(ctx, queueWorker.HandleBatchReady); err != nil {
				// polling continues without notifications
				logger.Error("batch-ready consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("worker running", "batch_size", cfg.Queue.BatchSize, "amqp", a.Bus != nil)
	<-ctx.Done()
	logger.Info("shutting down worker")
	wg.Wait()
	logger.Info("worker stopped")
}

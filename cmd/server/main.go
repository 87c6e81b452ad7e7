package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/email-delivery/internal/api"
	"github.com/ignite/email-delivery/internal/app"
	"github.com/ignite/email-delivery/internal/auth"
	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func main() {
	cfg, err := config.LoadFromEnv(configPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	app.ConfigureLogging(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	server := api.NewServer(a.Handlers(), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth:           auth.NewManager(cfg.Auth),
		Health:         api.NewHealthChecker(a.DB, a.Redis),
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

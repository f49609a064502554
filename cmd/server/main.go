// Package main is the entry point for the lot ledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotledger/internal/config"
	"lotledger/internal/domain/settings"
	v1 "lotledger/internal/infrastructure/http/v1"
	"lotledger/internal/infrastructure/storage"
	"lotledger/internal/ledger"
	"lotledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development || cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting lotledger server", "env", cfg.App.Env, "driver", cfg.Database.Driver)

	ledgerSettings, err := cfg.Settings()
	if err != nil {
		log.Fatalw("invalid ledger settings", "error", err)
	}

	// --- Storage ---
	backend, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()
	log.Info("storage backend ready")

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		AppName:  cfg.App.Name,
		Ledger:   ledger.New(backend.Backend, nil),
		Settings: settings.Static{Value: ledgerSettings},
		Logger:   log,
		Health:   backend.Check,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"remindly/internal/cache"
	"remindly/internal/config"
	"remindly/internal/database"
	"remindly/internal/queue"
	"remindly/internal/repository"
	"remindly/internal/routes"
	"remindly/internal/scheduler"
	"remindly/internal/worker"
	"remindly/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := context.WithCancel(context.Background())
	cfg := config.Get()

	// Initialize DB pool (required for the worker and the scan path)
	db := database.InitDB(ctx)
	if db == nil {
		logger.Error(ctx, "Database not available; exiting")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}

	// Pre-warm Redis (optional; cache works lazily)
	cache.Client(ctx)

	// Pre-warm Kafka producers and ensure topics exist
	queue.Producer(ctx)
	queue.EnsureTopics(ctx)

	// Start worker in background (consumes commands, applies transitions)
	go worker.Run(ctx)

	// Start the notification scan loop
	sched := scheduler.New(repository.Store{}, queue.Transport{},
		time.Duration(cfg.ScanInterval)*time.Second, time.Local)
	go sched.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

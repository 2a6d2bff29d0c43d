package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: "auditor"})
	log.SetDefault(logger)

	logger.Info("Starting tally-auditor")

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	engine := ledger.NewEngine(repo)
	auditor := worker.NewAuditor(repo, engine, cfg.AuditConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	// One sweep on startup so drift introduced while the auditor was down is
	// caught before the event stream takes over.
	if drifted, err := auditor.SweepAll(ctx); err != nil {
		logger.Error("Startup audit sweep failed", "error", err)
	} else if drifted > 0 {
		logger.Warn("Startup audit sweep found drifted accounts", "drifted", drifted)
	}

	logger.Info("Auditor running",
		"sweep_interval", cfg.AuditSweepInterval.String(),
		"concurrency", cfg.AuditConcurrency)

	if err := auditor.Run(ctx, amqpClient, cfg.AuditSweepInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Auditor stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Auditor stopped gracefully")
}

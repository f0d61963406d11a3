package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ghinsight/ghinsight/internal/api"
	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/config"
	"github.com/ghinsight/ghinsight/internal/gateway"
	"github.com/ghinsight/ghinsight/internal/observability"
	"github.com/ghinsight/ghinsight/internal/ratebudget"
	"github.com/ghinsight/ghinsight/internal/storage"
	"github.com/ghinsight/ghinsight/internal/storage/postgres"
	"github.com/ghinsight/ghinsight/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL storage: %v", err)
		}
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite storage: %v", err)
		}
	}
	defer store.Close()

	// Initialize the collection pipeline
	gw, err := gateway.New(cfg.GitHubToken, logger)
	if err != nil {
		log.Fatalf("Failed to initialize GitHub gateway: %v", err)
	}
	budget := ratebudget.NewService(gw, logger)
	orchestrator := collector.NewOrchestrator(gw, budget, logger)
	recorder := observability.NewRecorder()

	// Setup routes
	handler := api.NewHandler(orchestrator, store, budget, recorder, logger)
	router := api.SetupRoutes(handler, logger)

	// Start server
	addr := cfg.Addr()
	fmt.Printf("Starting API server on %s\n", addr)
	fmt.Printf("Storage type: %s\n", cfg.StorageType)

	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

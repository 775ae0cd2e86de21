package main

import (
	"context"
	"fmt"
	"time"

	"github.com/civicgraph/donorlens/internal/config"
	"github.com/civicgraph/donorlens/internal/disclosure"
	"github.com/civicgraph/donorlens/internal/engine"
	"github.com/civicgraph/donorlens/internal/service"
	"github.com/civicgraph/donorlens/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/donorlens/donorlens.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine builds the analysis engine from configuration. The storage
// handle is returned alongside so callers can close it.
func initEngine(ctx context.Context) (*engine.Engine, service.Storage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client, err := disclosure.NewClient(disclosure.Config{
		BaseURL: viper.GetString("disclosure.base_url"),
		APIKey:  viper.GetString("disclosure.api_key"),
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to create disclosure client: %w", err)
	}

	cfg := engine.DefaultConfig()
	if v := viper.GetInt("engine.page_size"); v > 0 {
		cfg.PageSize = v
	}
	if v := viper.GetInt("engine.page_budget"); v > 0 {
		cfg.PageBudget = v
	}
	if v := viper.GetDuration("engine.invocation_timeout"); v > 0 {
		cfg.InvocationTimeout = v
	}
	if v := viper.GetFloat64("reconcile.tolerance_pct"); v > 0 {
		cfg.TolerancePct = v
	}
	cfg.StoreDetails = viper.GetBool("engine.store_details")

	eng := engine.NewWithConfig(store, client, client, client, cfg)
	return eng, store, nil
}

func init() {
	viper.SetDefault("disclosure.base_url", "https://api.open.fec.gov/v1")
	viper.SetDefault("engine.invocation_timeout", 60*time.Second)
}

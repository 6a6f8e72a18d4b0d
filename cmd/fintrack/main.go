package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	transactions := services.NewTransactionService(result.Backend, result.Publisher, services.TransactionServiceConfig{
		BlockOverBudget: cfg.BlockOverBudget,
	})
	svc := apphttp.Services{
		Budgets:      services.NewBudgetService(result.Backend, services.BudgetServiceConfig{SummaryConcurrency: cfg.SummaryConcurrency}),
		Transactions: transactions,
		Categories:   services.NewCategoryService(result.Backend),
		Store:        result.Backend,
	}

	serverConfig := apphttp.DefaultServerConfig()
	serverConfig.Addr = ":" + cfg.Port
	serverConfig.SummaryCacheTTL = cfg.SummaryCacheTTL
	serverConfig.SummaryCacheSize = cfg.SummaryCacheSize
	serverConfig.RateLimitPerMinute = cfg.RateLimitPerMinute

	srv := apphttp.NewServer(serverConfig, svc, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := transactions.Close(); err != nil {
			logger.Warn("Failed to close publisher", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sync_enabled", result.Publisher != nil,
		"block_over_budget", cfg.BlockOverBudget)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

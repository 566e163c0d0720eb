package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anaysomani05/opti-invest/internal/api"
	"github.com/anaysomani05/opti-invest/internal/api/handlers"
	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/marketdata"
	"github.com/anaysomani05/opti-invest/internal/optimization"
	"github.com/anaysomani05/opti-invest/internal/portfolio"
	"github.com/anaysomani05/opti-invest/internal/scheduler"
	"github.com/anaysomani05/opti-invest/internal/scheduler/jobs"
	"github.com/anaysomani05/opti-invest/pkg/config"
	"github.com/anaysomani05/opti-invest/pkg/database"
	"github.com/anaysomani05/opti-invest/pkg/httputil"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the REST API server.

This command:
- Serves portfolio holdings CRUD and CSV import
- Serves portfolio optimization and risk profiles
- Runs background cache maintenance jobs

Endpoints:
  GET  /health
  GET  /api/portfolio/holdings
  POST /api/optimization/optimize

Example:
  go run ./cmd/optiinvest api
  go run ./cmd/optiinvest api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Create HTTP client and external API clients
	httpClient := httputil.New(log)
	gateway := marketdata.NewGateway(cfg.Finnhub.RateLimit, cfg.Finnhub.RateWindow, log)
	quotes := marketdata.NewFinnhubClient(cfg.Finnhub, httpClient, gateway, log)
	history := marketdata.NewMarketstackClient(cfg.Marketstack, httpClient, gateway, log)

	historyService := marketdata.NewHistoryService(history, cfg.Cache.HistoryTTL, log)

	// 4. Create the holdings store
	var store contracts.HoldingStore
	if cfg.UsePostgres() {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		pgStore := portfolio.NewPostgresStore(db.Pool)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store = pgStore
		log.Info("Using PostgreSQL holdings store")
	} else {
		store = portfolio.NewMemoryStore()
		log.Info("Using in-memory holdings store")
	}

	// 5. Create services
	portfolioService := portfolio.NewService(store, quotes, cfg.Cache.QuoteTTL, log)
	optimizationService := optimization.NewService(portfolioService, historyService, cfg.Cache.ResultTTL, log)

	// 6. Create handlers and router
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, log)
	optimizationHandler := handlers.NewOptimizationHandler(optimizationService, log)
	marketHandler := handlers.NewMarketHandler(quotes, log)
	router := api.NewRouter(portfolioHandler, optimizationHandler, marketHandler, log)

	// 7. Create server
	server := api.New(cfg, log, router)

	// 8. Background maintenance
	sched := scheduler.New(log)
	sweep := jobs.NewCacheSweepJob(map[string]jobs.Sweeper{
		"history": historyService.Cache(),
		"results": optimizationService.ResultCache(),
		"quotes":  portfolioService.QuoteCache(),
	}, log)
	warm := jobs.NewQuoteWarmJob(portfolioService, log)
	for _, job := range []scheduler.Job{sweep, warm} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 9. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

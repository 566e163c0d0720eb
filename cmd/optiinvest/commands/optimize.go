package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/marketdata"
	"github.com/anaysomani05/opti-invest/internal/optimization"
	"github.com/anaysomani05/opti-invest/internal/portfolio"
	"github.com/anaysomani05/opti-invest/pkg/config"
	"github.com/anaysomani05/opti-invest/pkg/database"
	"github.com/anaysomani05/opti-invest/pkg/httputil"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run one optimization over the stored portfolio",
	Long: `Runs a single optimization over the persisted holdings and prints
the result as JSON. Requires DATABASE_URL, since a fresh process has no
in-memory holdings to optimize.

Example:
  go run ./cmd/optiinvest optimize --profile aggressive
  go run ./cmd/optiinvest optimize --profile moderate --lookback 504`,
	RunE: runOptimize,
}

var (
	optimizeProfile  string
	optimizeLookback int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optimizeProfile, "profile", "moderate", "risk profile (conservative|moderate|aggressive)")
	optimizeCmd.Flags().IntVar(&optimizeLookback, "lookback", 0, "lookback period in trading days (0 uses the default)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	if !cfg.UsePostgres() {
		return fmt.Errorf("DATABASE_URL must be set for one-shot optimization")
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	store := portfolio.NewPostgresStore(db.Pool)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	httpClient := httputil.New(log)
	gateway := marketdata.NewGateway(cfg.Finnhub.RateLimit, cfg.Finnhub.RateWindow, log)
	quotes := marketdata.NewFinnhubClient(cfg.Finnhub, httpClient, gateway, log)
	history := marketdata.NewMarketstackClient(cfg.Marketstack, httpClient, gateway, log)
	historyService := marketdata.NewHistoryService(history, cfg.Cache.HistoryTTL, log)

	portfolioService := portfolio.NewService(store, quotes, cfg.Cache.QuoteTTL, log)
	optimizationService := optimization.NewService(portfolioService, historyService, cfg.Cache.ResultTTL, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := optimizationService.Optimize(ctx, &contracts.OptimizationRequest{
		RiskProfile: contracts.RiskProfile(optimizeProfile),
		Lookback:    optimizeLookback,
	})
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

package optimization

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/marketdata"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// DefaultLookback is the historical window, in trading-day observations,
// used when a request does not specify one.
const DefaultLookback = 252

// minHoldings is the smallest portfolio worth optimizing.
const minHoldings = 3

// Service orchestrates one optimization run end to end: holdings and current
// weights, historical data, the solve, the frontier sweep, risk metrics and
// rebalancing trades. Results are memoized per (profile, objective, lookback)
// key; concurrent requests for the same key share a single computation.
type Service struct {
	holdings contracts.HoldingsProvider
	history  *marketdata.HistoryService
	solver   *Solver
	frontier *FrontierGenerator

	results *marketdata.Cache[*contracts.OptimizationResult]
	flight  singleflight.Group

	logger *logger.Logger
	now    func() time.Time
}

// NewService creates the orchestrator. resultTTL bounds how long a computed
// result is served without recomputation.
func NewService(
	holdings contracts.HoldingsProvider,
	history *marketdata.HistoryService,
	resultTTL time.Duration,
	log *logger.Logger,
) *Service {
	solver := NewSolver(log)
	return &Service{
		holdings: holdings,
		history:  history,
		solver:   solver,
		frontier: NewFrontierGenerator(solver, log),
		results:  marketdata.NewCache[*contracts.OptimizationResult](resultTTL),
		logger:   log,
		now:      time.Now,
	}
}

// WithClock replaces the service's time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.results.WithClock(now)
	return s
}

// ResultCache exposes the result cache for maintenance sweeps.
func (s *Service) ResultCache() *marketdata.Cache[*contracts.OptimizationResult] {
	return s.results
}

// Optimize runs one optimization. Identical concurrent requests are
// deduplicated: the first caller computes, the rest receive the same result
// or error. Completed results are served from cache until the TTL expires.
func (s *Service) Optimize(ctx context.Context, req *contracts.OptimizationRequest) (*contracts.OptimizationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := resolveConfig(req)
	lookback := req.Lookback
	if lookback == 0 {
		lookback = DefaultLookback
	}

	key := fmt.Sprintf("%s_%s_%d", req.RiskProfile, cfg.Objective, lookback)

	if cached, ok := s.results.Get(key); ok {
		s.logger.WithField("key", key).Debug("Serving cached optimization result")
		return cached, nil
	}

	result, err, shared := s.flight.Do(key, func() (interface{}, error) {
		// A result may have landed between the cache check and the
		// flight claim.
		if cached, ok := s.results.Get(key); ok {
			return cached, nil
		}

		res, err := s.compute(ctx, req, cfg, lookback)
		if err != nil {
			return nil, err
		}
		s.results.Put(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.WithField("key", key).Debug("Joined in-flight optimization")
	}
	return result.(*contracts.OptimizationResult), nil
}

func (s *Service) compute(ctx context.Context, req *contracts.OptimizationRequest, cfg riskConfig, lookback int) (*contracts.OptimizationResult, error) {
	started := s.now()
	s.logger.WithFields(map[string]interface{}{
		"risk_profile": req.RiskProfile,
		"objective":    cfg.Objective,
		"lookback":     lookback,
	}).Info("Starting portfolio optimization")

	var holdings []contracts.HoldingWithMetrics
	var err error
	if len(req.CurrentPrices) > 0 {
		holdings, err = s.holdings.HoldingsWithProvidedPrices(ctx, req.CurrentPrices)
	} else {
		holdings, err = s.holdings.HoldingsWithCurrentPrices(ctx)
	}
	if err != nil {
		return nil, err
	}

	// Reject undersized portfolios before spending any of the external
	// rate budget on historical data.
	totalValue := 0.0
	for i := range holdings {
		totalValue += holdings[i].Value
	}
	if len(holdings) < minHoldings || totalValue <= 0 {
		return nil, &contracts.InsufficientHoldingsError{Count: len(holdings), TotalValue: totalValue}
	}

	symbols := make([]string, len(holdings))
	currentWeights := make(map[string]float64, len(holdings))
	for i := range holdings {
		symbols[i] = holdings[i].Symbol
		currentWeights[holdings[i].Symbol] = holdings[i].Value / totalValue
	}

	dataset, err := s.history.GetOrFetch(ctx, symbols, lookback)
	if err != nil {
		return nil, err
	}

	stats, err := ComputeStatistics(dataset)
	if err != nil {
		return nil, fmt.Errorf("computing return statistics: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	optimalWeights, err := s.solver.Solve(stats, cfg.Objective, cfg.TargetReturn, Bounds{Min: cfg.MinWeight, Max: cfg.MaxWeight})
	if err != nil {
		return nil, err
	}

	optimalMetrics := stats.Metrics(optimalWeights)
	currentMetrics := stats.Metrics(currentWeights)

	frontier := s.frontier.Generate(stats)

	result := &contracts.OptimizationResult{
		OptimalWeights: optimalWeights,
		ExpectedReturn: optimalMetrics.ExpectedReturn,
		Volatility:     optimalMetrics.Volatility,
		SharpeRatio:    optimalMetrics.SharpeRatio,

		EfficientFrontier: frontier,
		CurrentWeights:    currentWeights,
		CurrentMetrics:    currentMetrics,

		RebalancingTrades: RebalancingTrades(currentWeights, optimalWeights, totalValue),

		RiskProfile: req.RiskProfile,
		Objective:   cfg.Objective,
		DataPeriod:  dataset.Period(),
		Timestamp:   s.now(),
	}

	if dd, ok := MaxDrawdown(dataset, optimalWeights); ok {
		result.MaxDrawdown = &dd
	}
	if cvar, ok := CVaR(dataset, optimalWeights, DefaultConfidence); ok {
		result.CVaR = &cvar
	}

	s.logger.WithFields(map[string]interface{}{
		"risk_profile": req.RiskProfile,
		"sharpe_ratio": fmt.Sprintf("%.2f", optimalMetrics.SharpeRatio),
		"frontier":     len(frontier),
		"duration":     s.now().Sub(started).String(),
	}).Info("Optimization completed")

	return result, nil
}

// ValidatePortfolio checks whether the tracked portfolio is ready for
// optimization without running one. All checks are local; no historical
// data is fetched.
func (s *Service) ValidatePortfolio(ctx context.Context) (*contracts.ValidationReport, error) {
	holdings, err := s.holdings.HoldingsWithCurrentPrices(ctx)
	if err != nil {
		return nil, err
	}

	report := &contracts.ValidationReport{
		IsValid:     true,
		Issues:      []string{},
		Suggestions: []string{},
		Symbols:     make([]string, 0, len(holdings)),
	}

	totalValue := 0.0
	totalCost := 0.0
	staleCount := 0
	for i := range holdings {
		h := &holdings[i]
		report.Symbols = append(report.Symbols, h.Symbol)
		totalValue += h.Value
		totalCost += h.CostBasis()
		if h.PriceStale {
			staleCount++
		}
	}

	report.Summary = contracts.PortfolioSummary{
		TotalValue:    totalValue,
		TotalGainLoss: totalValue - totalCost,
		HoldingsCount: len(holdings),
	}
	if totalCost > 0 {
		report.Summary.TotalGainLossPercent = (totalValue - totalCost) / totalCost * 100
	}

	if len(holdings) < minHoldings {
		report.IsValid = false
		report.Issues = append(report.Issues,
			fmt.Sprintf("portfolio has %d holdings, optimization needs at least %d", len(holdings), minHoldings))
		report.Suggestions = append(report.Suggestions, "add more positions to diversify the portfolio")
	}
	if totalValue <= 0 {
		report.IsValid = false
		report.Issues = append(report.Issues, "portfolio has no market value")
		report.Suggestions = append(report.Suggestions, "check that quantities and prices are set on each holding")
	}
	if staleCount > 0 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("%d holdings have no live quote, cost basis was used instead", staleCount))
		report.Suggestions = append(report.Suggestions, "verify the symbols are listed and the market data provider is reachable")
	}
	if totalValue > 0 {
		for i := range holdings {
			if holdings[i].Value/totalValue > 0.5 {
				report.Issues = append(report.Issues,
					fmt.Sprintf("%s is over half the portfolio value", holdings[i].Symbol))
				report.Suggestions = append(report.Suggestions, "consider reducing concentrated positions before optimizing")
				break
			}
		}
	}

	return report, nil
}

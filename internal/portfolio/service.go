package portfolio

import (
	"context"
	"time"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/marketdata"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// Service manages the tracked portfolio and enriches it with market prices.
// Live quotes are cached per symbol so repeated portfolio reads within the
// TTL spend no external rate budget.
type Service struct {
	store  contracts.HoldingStore
	quotes contracts.QuoteProvider
	cache  *marketdata.Cache[*contracts.Quote]
	logger *logger.Logger
}

// NewService creates a portfolio service. quoteTTL bounds the staleness of
// cached quotes.
func NewService(store contracts.HoldingStore, quotes contracts.QuoteProvider, quoteTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		quotes: quotes,
		cache:  marketdata.NewCache[*contracts.Quote](quoteTTL),
		logger: log,
	}
}

// QuoteCache exposes the quote cache for maintenance sweeps.
func (s *Service) QuoteCache() *marketdata.Cache[*contracts.Quote] {
	return s.cache
}

// AddHolding validates and stores a new position.
func (s *Service) AddHolding(ctx context.Context, h contracts.Holding) (*contracts.Holding, error) {
	if err := validateHolding(&h); err != nil {
		return nil, err
	}
	return s.store.Add(ctx, h)
}

// UpdateHolding applies a partial update to an existing position.
func (s *Service) UpdateHolding(ctx context.Context, id string, h contracts.Holding) (*contracts.Holding, error) {
	if h.Quantity < 0 {
		return nil, &contracts.InvalidRequestError{Field: "quantity", Reason: "must be positive"}
	}
	if h.BuyPrice < 0 {
		return nil, &contracts.InvalidRequestError{Field: "buy_price", Reason: "must be positive"}
	}
	return s.store.Update(ctx, id, h)
}

// GetHolding fetches one position by id.
func (s *Service) GetHolding(ctx context.Context, id string) (*contracts.Holding, error) {
	return s.store.Get(ctx, id)
}

// DeleteHolding removes one position.
func (s *Service) DeleteHolding(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// ClearPortfolio removes every position.
func (s *Service) ClearPortfolio(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// ImportHoldings stores a batch of positions, typically from a CSV upload.
// The batch is validated up front; nothing is stored when any row is invalid.
func (s *Service) ImportHoldings(ctx context.Context, holdings []contracts.Holding) ([]contracts.Holding, error) {
	for i := range holdings {
		if err := validateHolding(&holdings[i]); err != nil {
			return nil, err
		}
	}

	stored := make([]contracts.Holding, 0, len(holdings))
	for _, h := range holdings {
		added, err := s.store.Add(ctx, h)
		if err != nil {
			return nil, err
		}
		stored = append(stored, *added)
	}
	return stored, nil
}

// Holdings returns the raw positions.
func (s *Service) Holdings(ctx context.Context) ([]contracts.Holding, error) {
	return s.store.List(ctx)
}

// HoldingsWithCurrentPrices enriches positions with live quotes. Symbols
// without an available quote fall back to their cost basis and are marked
// stale rather than silently guessed.
func (s *Service) HoldingsWithCurrentPrices(ctx context.Context) ([]contracts.HoldingWithMetrics, error) {
	holdings, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return []contracts.HoldingWithMetrics{}, nil
	}

	prices := s.currentPrices(ctx, holdings)

	out := make([]contracts.HoldingWithMetrics, 0, len(holdings))
	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok || price <= 0 {
			s.logger.WithField("symbol", h.Symbol).Warn("No quote available, falling back to cost basis")
			price = h.BuyPrice
			ok = false
		}
		out = append(out, enrich(h, price, !ok))
	}
	return out, nil
}

// HoldingsWithProvidedPrices enriches positions with caller-supplied prices
// and issues no external calls. Symbols missing from the map fall back to
// cost basis and are marked stale.
func (s *Service) HoldingsWithProvidedPrices(ctx context.Context, prices map[string]float64) ([]contracts.HoldingWithMetrics, error) {
	holdings, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.HoldingWithMetrics, 0, len(holdings))
	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok || price <= 0 {
			price = h.BuyPrice
			ok = false
		}
		out = append(out, enrich(h, price, !ok))
	}
	return out, nil
}

// Overview assembles the portfolio summary, holdings and sector allocation.
func (s *Service) Overview(ctx context.Context) (*contracts.PortfolioOverview, error) {
	enriched, err := s.HoldingsWithCurrentPrices(ctx)
	if err != nil {
		return nil, err
	}

	overview := &contracts.PortfolioOverview{
		Holdings:         make([]contracts.Holding, 0, len(enriched)),
		SectorAllocation: map[string]float64{},
	}

	totalValue := 0.0
	totalGainLoss := 0.0
	for i := range enriched {
		h := &enriched[i]
		totalValue += h.Value
		totalGainLoss += h.GainLoss
		overview.Holdings = append(overview.Holdings, h.Holding)
	}

	overview.Summary = contracts.PortfolioSummary{
		TotalValue:    totalValue,
		TotalGainLoss: totalGainLoss,
		HoldingsCount: len(enriched),
	}
	totalCost := totalValue - totalGainLoss
	if totalCost > 0 {
		overview.Summary.TotalGainLossPercent = totalGainLoss / totalCost * 100
	}

	overview.SectorAllocation = sectorAllocation(enriched, totalValue)
	return overview, nil
}

// currentPrices resolves one price per symbol, serving cached quotes and
// batch-fetching only the misses.
func (s *Service) currentPrices(ctx context.Context, holdings []contracts.Holding) map[string]float64 {
	unique := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		unique[h.Symbol] = true
	}

	prices := make(map[string]float64, len(unique))
	var missing []string
	for sym := range unique {
		if q, ok := s.cache.Get(sym); ok {
			prices[sym] = q.Price
			continue
		}
		missing = append(missing, sym)
	}

	if len(missing) > 0 {
		s.logger.WithField("symbols", len(missing)).Debug("Fetching fresh quotes")
		for sym, q := range s.quotes.BatchQuotes(ctx, missing) {
			if q == nil || q.Price <= 0 {
				continue
			}
			s.cache.Put(sym, q)
			prices[sym] = q.Price
		}
	}
	return prices
}

func enrich(h contracts.Holding, price float64, stale bool) contracts.HoldingWithMetrics {
	h.CurrentPrice = price

	m := contracts.HoldingWithMetrics{
		Holding:    h,
		Value:      h.Quantity * price,
		GainLoss:   h.Quantity * (price - h.BuyPrice),
		PriceStale: stale,
	}
	if h.BuyPrice > 0 {
		m.GainLossPercent = (price - h.BuyPrice) / h.BuyPrice * 100
	}
	return m
}

func validateHolding(h *contracts.Holding) error {
	if h.Symbol == "" {
		return &contracts.InvalidRequestError{Field: "symbol", Reason: "must not be empty"}
	}
	if h.Quantity <= 0 {
		return &contracts.InvalidRequestError{Field: "quantity", Reason: "must be positive"}
	}
	if h.BuyPrice <= 0 {
		return &contracts.InvalidRequestError{Field: "buy_price", Reason: "must be positive"}
	}
	return nil
}

// sectorMap is a static symbol-to-sector assignment for the overview chart.
var sectorMap = map[string]string{
	"AAPL":  "Technology",
	"MSFT":  "Technology",
	"GOOGL": "Technology",
	"GOOG":  "Technology",
	"META":  "Technology",
	"NVDA":  "Technology",
	"AMZN":  "Consumer Discretionary",
	"TSLA":  "Consumer Discretionary",
	"NFLX":  "Communication Services",
	"JPM":   "Financial Services",
	"BAC":   "Financial Services",
	"WMT":   "Consumer Defensive",
}

func sectorAllocation(holdings []contracts.HoldingWithMetrics, totalValue float64) map[string]float64 {
	allocation := map[string]float64{}
	if totalValue <= 0 {
		return allocation
	}

	for i := range holdings {
		sector, ok := sectorMap[holdings[i].Symbol]
		if !ok {
			sector = "Other"
		}
		allocation[sector] += holdings[i].Value / totalValue * 100
	}
	return allocation
}

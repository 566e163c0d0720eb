package contracts

import (
	"context"
	"time"
)

// HoldingsProvider supplies the tracked portfolio.
type HoldingsProvider interface {
	// Holdings returns the raw positions without any price enrichment.
	Holdings(ctx context.Context) ([]Holding, error)

	// HoldingsWithCurrentPrices enriches positions with live quotes,
	// falling back to cost basis (marked stale) for unavailable symbols.
	HoldingsWithCurrentPrices(ctx context.Context) ([]HoldingWithMetrics, error)

	// HoldingsWithProvidedPrices enriches positions with caller-supplied
	// prices, issuing no external calls.
	HoldingsWithProvidedPrices(ctx context.Context, prices map[string]float64) ([]HoldingWithMetrics, error)
}

// HistoricalPriceProvider fetches the adjusted-close history for one symbol.
// An unavailable symbol is reported as (nil, false); only transport-level
// context errors propagate.
type HistoricalPriceProvider interface {
	FetchSeries(ctx context.Context, symbol string, from, to time.Time) (PriceSeries, bool)
}

// QuoteProvider fetches live quotes under the gateway's rate budget.
// An unavailable quote is reported as (nil, false).
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*Quote, bool)
	BatchQuotes(ctx context.Context, symbols []string) map[string]*Quote
}

// HoldingStore abstracts holdings persistence (in-memory or PostgreSQL).
type HoldingStore interface {
	List(ctx context.Context) ([]Holding, error)
	Get(ctx context.Context, id string) (*Holding, error)
	Add(ctx context.Context, h Holding) (*Holding, error)
	Update(ctx context.Context, id string, h Holding) (*Holding, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

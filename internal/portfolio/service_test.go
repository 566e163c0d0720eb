package portfolio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// fakeQuotes serves canned quotes and counts fetched symbols.
type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
}

func newFakeQuotes(prices map[string]float64) *fakeQuotes {
	return &fakeQuotes{prices: prices, calls: make(map[string]int)}
}

func (f *fakeQuotes) Quote(ctx context.Context, symbol string) (*contracts.Quote, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[symbol]++
	price, ok := f.prices[symbol]
	if !ok {
		return nil, false
	}
	return &contracts.Quote{Symbol: symbol, Price: price, LastUpdated: time.Now()}, true
}

func (f *fakeQuotes) BatchQuotes(ctx context.Context, symbols []string) map[string]*contracts.Quote {
	out := make(map[string]*contracts.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := f.Quote(ctx, sym); ok {
			out[sym] = q
		}
	}
	return out
}

func (f *fakeQuotes) fetchCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func newTestPortfolio(t *testing.T, quotes *fakeQuotes) *Service {
	t.Helper()
	svc := NewService(NewMemoryStore(), quotes, 5*time.Minute, logger.NewNop())

	_, err := svc.AddHolding(context.Background(), contracts.Holding{Symbol: "AAPL", Quantity: 10, BuyPrice: 150})
	require.NoError(t, err)
	_, err = svc.AddHolding(context.Background(), contracts.Holding{Symbol: "GOOGL", Quantity: 5, BuyPrice: 120})
	require.NoError(t, err)
	return svc
}

func TestService_HoldingsWithCurrentPrices(t *testing.T) {
	quotes := newFakeQuotes(map[string]float64{"AAPL": 180, "GOOGL": 140})
	svc := newTestPortfolio(t, quotes)

	enriched, err := svc.HoldingsWithCurrentPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	aapl := enriched[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 180.0, aapl.CurrentPrice)
	assert.InDelta(t, 1800.0, aapl.Value, 1e-9)
	assert.InDelta(t, 300.0, aapl.GainLoss, 1e-9)
	assert.InDelta(t, 20.0, aapl.GainLossPercent, 1e-9)
	assert.False(t, aapl.PriceStale)
}

func TestService_HoldingsWithCurrentPrices_QuoteCacheHit(t *testing.T) {
	quotes := newFakeQuotes(map[string]float64{"AAPL": 180, "GOOGL": 140})
	svc := newTestPortfolio(t, quotes)

	_, err := svc.HoldingsWithCurrentPrices(context.Background())
	require.NoError(t, err)
	_, err = svc.HoldingsWithCurrentPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, quotes.fetchCount("AAPL"), "second read must be served from cache")
	assert.Equal(t, 1, quotes.fetchCount("GOOGL"))
}

func TestService_HoldingsWithCurrentPrices_StaleFallback(t *testing.T) {
	// GOOGL has no quote: its cost basis is used and the row is flagged.
	quotes := newFakeQuotes(map[string]float64{"AAPL": 180})
	svc := newTestPortfolio(t, quotes)

	enriched, err := svc.HoldingsWithCurrentPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	googl := enriched[1]
	assert.Equal(t, "GOOGL", googl.Symbol)
	assert.True(t, googl.PriceStale)
	assert.Equal(t, 120.0, googl.CurrentPrice)
	assert.Zero(t, googl.GainLoss)
}

func TestService_HoldingsWithProvidedPrices(t *testing.T) {
	quotes := newFakeQuotes(map[string]float64{"AAPL": 999})
	svc := newTestPortfolio(t, quotes)

	enriched, err := svc.HoldingsWithProvidedPrices(context.Background(), map[string]float64{
		"AAPL":  180,
		"GOOGL": 140,
	})
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	assert.Equal(t, 180.0, enriched[0].CurrentPrice)
	assert.Equal(t, 140.0, enriched[1].CurrentPrice)

	// No external fetches on the provided-prices path.
	assert.Zero(t, quotes.fetchCount("AAPL"))
}

func TestService_Overview(t *testing.T) {
	quotes := newFakeQuotes(map[string]float64{"AAPL": 180, "GOOGL": 140})
	svc := newTestPortfolio(t, quotes)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, overview.Summary.HoldingsCount)
	assert.InDelta(t, 10*180.0+5*140.0, overview.Summary.TotalValue, 1e-9)
	assert.InDelta(t, 300.0+100.0, overview.Summary.TotalGainLoss, 1e-9)
	assert.Greater(t, overview.Summary.TotalGainLossPercent, 0.0)

	// Both symbols are Technology, so the allocation collapses to 100%.
	require.Contains(t, overview.SectorAllocation, "Technology")
	assert.InDelta(t, 100.0, overview.SectorAllocation["Technology"], 1e-9)
}

func TestService_AddHolding_Validation(t *testing.T) {
	svc := NewService(NewMemoryStore(), newFakeQuotes(nil), time.Minute, logger.NewNop())

	tests := []struct {
		name    string
		holding contracts.Holding
		field   string
	}{
		{name: "empty symbol", holding: contracts.Holding{Quantity: 1, BuyPrice: 1}, field: "symbol"},
		{name: "zero quantity", holding: contracts.Holding{Symbol: "AAPL", BuyPrice: 1}, field: "quantity"},
		{name: "negative buy price", holding: contracts.Holding{Symbol: "AAPL", Quantity: 1, BuyPrice: -5}, field: "buy_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddHolding(context.Background(), tt.holding)

			var invalid *contracts.InvalidRequestError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestService_ImportHoldings_AllOrNothing(t *testing.T) {
	svc := NewService(NewMemoryStore(), newFakeQuotes(nil), time.Minute, logger.NewNop())

	_, err := svc.ImportHoldings(context.Background(), []contracts.Holding{
		{Symbol: "AAPL", Quantity: 10, BuyPrice: 150},
		{Symbol: "", Quantity: 5, BuyPrice: 120},
	})
	require.Error(t, err)

	holdings, err := svc.Holdings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, holdings, "invalid batch must not be partially stored")
}

package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// historyBufferDays is added to the requested lookback when computing the
// fetch window, to absorb weekends and market holidays.
const historyBufferDays = 30

// minValidSymbols is the smallest symbol count a usable dataset can have.
const minValidSymbols = 3

// HistoryService builds and caches aligned historical datasets.
// The cache key is order-independent over the symbol set; a partial or
// unusable fetch never overwrites a cached dataset.
type HistoryService struct {
	provider contracts.HistoricalPriceProvider
	cache    *Cache[*contracts.HistoricalDataset]
	flight   singleflight.Group
	logger   *logger.Logger
	now      func() time.Time
}

// NewHistoryService creates a history service over the given provider.
func NewHistoryService(provider contracts.HistoricalPriceProvider, ttl time.Duration, log *logger.Logger) *HistoryService {
	return &HistoryService{
		provider: provider,
		cache:    NewCache[*contracts.HistoricalDataset](ttl),
		logger:   log,
		now:      time.Now,
	}
}

// Cache exposes the underlying TTL cache for maintenance sweeps.
func (s *HistoryService) Cache() *Cache[*contracts.HistoricalDataset] {
	return s.cache
}

// GetOrFetch returns the aligned dataset for the symbol set and lookback,
// fetching and caching on miss. Concurrent misses on the same key share one
// fetch, so the gateway budget is spent once per dataset. Fails with
// InsufficientHistoryError when fewer than three symbols carry enough
// observations, or DataProviderError when the provider returned nothing at
// all.
func (s *HistoryService) GetOrFetch(ctx context.Context, symbols []string, lookback int) (*contracts.HistoricalDataset, error) {
	key := datasetKey(symbols, lookback)

	if ds, ok := s.cache.Get(key); ok {
		s.logger.WithField("key", key).Debug("Historical dataset cache hit")
		return ds, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		// A concurrent flight may have filled the cache while we waited.
		if ds, ok := s.cache.Get(key); ok {
			return ds, nil
		}

		ds, err := s.fetch(ctx, symbols, lookback)
		if err != nil {
			return nil, err
		}

		s.cache.Put(key, ds)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*contracts.HistoricalDataset), nil
}

// fetch retrieves one symbol at a time through the provider, drops symbols
// with insufficient history, and aligns the survivors to a common date index.
func (s *HistoryService) fetch(ctx context.Context, symbols []string, lookback int) (*contracts.HistoricalDataset, error) {
	end := s.now()
	start := end.AddDate(0, 0, -(lookback + historyBufferDays))

	s.logger.WithFields(map[string]interface{}{
		"symbols":  len(symbols),
		"lookback": lookback,
		"from":     start.Format("2006-01-02"),
		"to":       end.Format("2006-01-02"),
	}).Info("Fetching historical data")

	collected := make(map[string]contracts.PriceSeries, len(symbols))
	fetched := 0
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, ok := s.provider.FetchSeries(ctx, symbol, start, end)
		if !ok {
			s.logger.WithField("symbol", symbol).Warn("No historical data for symbol, skipping")
			continue
		}
		fetched++
		if !series.Usable() {
			s.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"count":  len(series),
			}).Warn("Insufficient history for symbol, dropping")
			continue
		}

		collected[strings.ToUpper(symbol)] = series
	}

	// Every single fetch came back empty. That is a provider outage, not a
	// portfolio problem, and the caller should retry later.
	if fetched == 0 && len(symbols) > 0 {
		return nil, &contracts.DataProviderError{
			Provider: "marketstack",
			Err:      errors.New("no historical data returned for any symbol"),
		}
	}

	if len(collected) < minValidSymbols {
		return nil, &contracts.InsufficientHistoryError{ValidSymbols: len(collected)}
	}

	ds := align(collected)
	if ds.Observations() < contracts.MinObservations {
		return nil, &contracts.InsufficientHistoryError{ValidSymbols: 0}
	}

	trim(ds, lookback)

	s.logger.WithFields(map[string]interface{}{
		"symbols":      len(ds.Symbols),
		"observations": ds.Observations(),
		"period":       ds.Period(),
	}).Info("Built historical dataset")

	return ds, nil
}

// align intersects the per-symbol series onto the dates every symbol has,
// ascending. The result satisfies the identical-date-index invariant.
func align(collected map[string]contracts.PriceSeries) *contracts.HistoricalDataset {
	symbols := make([]string, 0, len(collected))
	for sym := range collected {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// Count each date's presence across symbols.
	counts := make(map[time.Time]int)
	for _, series := range collected {
		for _, p := range series {
			counts[p.Date]++
		}
	}

	shared := make([]time.Time, 0, len(counts))
	for date, n := range counts {
		if n == len(collected) {
			shared = append(shared, date)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	prices := make(map[string][]float64, len(symbols))
	for sym, series := range collected {
		byDate := make(map[time.Time]float64, len(series))
		for _, p := range series {
			byDate[p.Date] = p.Close
		}
		row := make([]float64, len(shared))
		for i, date := range shared {
			row[i] = byDate[date]
		}
		prices[sym] = row
	}

	return &contracts.HistoricalDataset{
		Symbols: symbols,
		Dates:   shared,
		Prices:  prices,
	}
}

// trim keeps only the trailing lookback observations.
func trim(ds *contracts.HistoricalDataset, lookback int) {
	n := ds.Observations()
	if lookback <= 0 || n <= lookback {
		return
	}

	cut := n - lookback
	ds.Dates = ds.Dates[cut:]
	for sym, row := range ds.Prices {
		ds.Prices[sym] = row[cut:]
	}
}

// datasetKey derives an order-independent cache key for a symbol set and
// lookback length.
func datasetKey(symbols []string, lookback int) string {
	sorted := make([]string, len(symbols))
	for i, s := range symbols {
		sorted[i] = strings.ToUpper(s)
	}
	sort.Strings(sorted)
	return fmt.Sprintf("%s_%d", strings.Join(sorted, "-"), lookback)
}

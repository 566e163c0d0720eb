package optimization

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaysomani05/opti-invest/internal/contracts"
)

// datasetFromReturns builds a single-asset dataset whose daily returns are
// exactly the given sequence.
func datasetFromReturns(symbol string, returns []float64) *contracts.HistoricalDataset {
	prices := make([]float64, len(returns)+1)
	prices[0] = 100
	for i, r := range returns {
		prices[i+1] = prices[i] * (1 + r)
	}

	dates := make([]time.Time, len(prices))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	return &contracts.HistoricalDataset{
		Symbols: []string{symbol},
		Dates:   dates,
		Prices:  map[string][]float64{symbol: prices},
	}
}

func TestMaxDrawdown(t *testing.T) {
	// Prices 100 -> 110 -> 99 -> 104: peak 110, trough 99, drawdown 10%.
	dataset := datasetFromReturns("AAPL", []float64{0.10, -0.10, 104.0/99.0 - 1})

	dd, ok := MaxDrawdown(dataset, map[string]float64{"AAPL": 1.0})
	require.True(t, ok)
	assert.InDelta(t, 0.10, dd, 1e-9)
}

func TestMaxDrawdown_MonotonicGrowth(t *testing.T) {
	dataset := datasetFromReturns("AAPL", []float64{0.01, 0.02, 0.005, 0.03})

	dd, ok := MaxDrawdown(dataset, map[string]float64{"AAPL": 1.0})
	require.True(t, ok)
	assert.Zero(t, dd)
}

func TestMaxDrawdown_DegenerateSeries(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
	}{
		{name: "flat prices", returns: []float64{0, 0, 0, 0}},
		{name: "constant drift", returns: []float64{0.01, 0.01, 0.01}},
		{name: "too short", returns: []float64{0.05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset := datasetFromReturns("AAPL", tt.returns)
			_, ok := MaxDrawdown(dataset, map[string]float64{"AAPL": 1.0})
			assert.False(t, ok)
		})
	}
}

func TestCVaR(t *testing.T) {
	// Twenty returns with a single worst day of -2%. At 5% confidence the
	// empirical tail is exactly that day, so CVaR = 0.02 * sqrt(252).
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.001 * float64(i%5+1)
	}
	returns[7] = -0.02

	dataset := datasetFromReturns("AAPL", returns)

	cvar, ok := CVaR(dataset, map[string]float64{"AAPL": 1.0}, DefaultConfidence)
	require.True(t, ok)
	assert.InDelta(t, 0.02*math.Sqrt(252), cvar, 1e-9)
}

func TestCVaR_AlwaysNonNegative(t *testing.T) {
	// All-positive returns still report a non-negative tail loss.
	returns := make([]float64, 30)
	for i := range returns {
		returns[i] = 0.001 * float64(i%7+1)
	}

	dataset := datasetFromReturns("AAPL", returns)

	cvar, ok := CVaR(dataset, map[string]float64{"AAPL": 1.0}, DefaultConfidence)
	require.True(t, ok)
	assert.GreaterOrEqual(t, cvar, 0.0)
}

func TestCVaR_DegenerateSeries(t *testing.T) {
	dataset := datasetFromReturns("AAPL", []float64{0.01, 0.01, 0.01})

	_, ok := CVaR(dataset, map[string]float64{"AAPL": 1.0}, DefaultConfidence)
	assert.False(t, ok)
}

func TestMetrics_WeightedPortfolioSeries(t *testing.T) {
	// Two identical assets under equal weights reproduce the single-asset
	// drawdown; halving the exposure shrinks it.
	dates := make([]time.Time, 4)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	dataset := &contracts.HistoricalDataset{
		Symbols: []string{"A", "B"},
		Dates:   dates,
		Prices: map[string][]float64{
			"A": {100, 110, 99, 104},
			"B": {100, 110, 99, 104},
		},
	}

	weights := map[string]float64{"A": 0.5, "B": 0.5}

	dd, ok := MaxDrawdown(dataset, weights)
	require.True(t, ok)
	assert.InDelta(t, 0.10, dd, 1e-9)

	// A symbol missing from the weights contributes nothing.
	ddHalf, ok := MaxDrawdown(dataset, map[string]float64{"A": 0.5})
	require.True(t, ok)
	assert.Less(t, ddHalf, dd)
}

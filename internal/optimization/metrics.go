package optimization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/anaysomani05/opti-invest/internal/contracts"
)

// DefaultConfidence is the tail probability used for CVaR.
const DefaultConfidence = 0.05

// MaxDrawdown reports the largest peak-to-trough decline of the cumulative
// growth curve of the weighted portfolio, as a positive fraction. The second
// return is false when the series is degenerate and no meaningful drawdown
// exists.
func MaxDrawdown(dataset *contracts.HistoricalDataset, weights map[string]float64) (float64, bool) {
	returns := dataset.PortfolioReturns(weights)
	if degenerate(returns) {
		return 0, false
	}

	growth := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		growth *= 1 + r
		if growth > peak {
			peak = growth
		}
		dd := (growth - peak) / peak
		if dd < worst {
			worst = dd
		}
	}

	return math.Abs(worst), true
}

// CVaR reports the annualized expected loss conditional on landing in the
// worst tail of the daily return distribution, as a positive fraction.
// confidence is the tail probability (0.05 for the 5% worst days). The
// second return is false when the series is degenerate.
func CVaR(dataset *contracts.HistoricalDataset, weights map[string]float64, confidence float64) (float64, bool) {
	returns := dataset.PortfolioReturns(weights)
	if degenerate(returns) {
		return 0, false
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	valueAtRisk := stat.Quantile(confidence, stat.Empirical, sorted, nil)

	var tailSum float64
	var tailCount int
	for _, r := range sorted {
		if r > valueAtRisk {
			break
		}
		tailSum += r
		tailCount++
	}

	cvar := valueAtRisk
	if tailCount > 0 {
		cvar = tailSum / float64(tailCount)
	}

	return math.Abs(cvar * math.Sqrt(TradingDays)), true
}

// degenerate reports whether a return series is too flat or short to carry
// risk information.
func degenerate(returns []float64) bool {
	if len(returns) < 2 {
		return true
	}
	return stat.Variance(returns, nil) == 0
}

package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/anaysomani05/opti-invest/internal/contracts"
)

// TradingDays is the annualization factor for daily observations.
const TradingDays = 252

// RiskFreeRate is the annual risk-free rate used in Sharpe ratios.
const RiskFreeRate = 0.02

// Statistics holds annualized return and risk estimates for one dataset.
// Mean[i] and row/column i of Cov correspond to Symbols[i].
type Statistics struct {
	Symbols []string
	Mean    []float64
	Cov     *mat.SymDense
}

// ComputeStatistics derives annualized mean returns and the sample covariance
// matrix from a dataset of aligned daily close prices.
func ComputeStatistics(dataset *contracts.HistoricalDataset) (*Statistics, error) {
	n := len(dataset.Symbols)
	if n == 0 {
		return nil, fmt.Errorf("dataset has no symbols")
	}
	if dataset.Observations() < 2 {
		return nil, fmt.Errorf("dataset has %d observations, need at least 2", dataset.Observations())
	}

	dailyReturns := dataset.Returns()

	returns := make([][]float64, n)
	mean := make([]float64, n)
	for i, sym := range dataset.Symbols {
		rets := dailyReturns[sym]
		if len(rets) == 0 {
			return nil, fmt.Errorf("no return series for %s", sym)
		}
		returns[i] = rets
		mean[i] = stat.Mean(rets, nil) * TradingDays
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, stat.Covariance(returns[i], returns[j], nil)*TradingDays)
		}
	}

	return &Statistics{
		Symbols: append([]string(nil), dataset.Symbols...),
		Mean:    mean,
		Cov:     cov,
	}, nil
}

// MinReturn returns the smallest annualized asset return.
func (s *Statistics) MinReturn() float64 {
	min := s.Mean[0]
	for _, m := range s.Mean[1:] {
		if m < min {
			min = m
		}
	}
	return min
}

// MaxReturn returns the largest annualized asset return.
func (s *Statistics) MaxReturn() float64 {
	max := s.Mean[0]
	for _, m := range s.Mean[1:] {
		if m > max {
			max = m
		}
	}
	return max
}

// portfolioReturn computes mu'w with w in symbol order.
func (s *Statistics) portfolioReturn(w []float64) float64 {
	var ret float64
	for i := range w {
		ret += s.Mean[i] * w[i]
	}
	return ret
}

// portfolioVariance computes w'Cov w with w in symbol order.
func (s *Statistics) portfolioVariance(w []float64) float64 {
	n := len(w)
	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * s.Cov.At(i, j)
		}
	}
	return variance
}

// vector converts a symbol-keyed weight map into symbol order. Symbols absent
// from the map contribute zero.
func (s *Statistics) vector(weights map[string]float64) []float64 {
	w := make([]float64, len(s.Symbols))
	for i, sym := range s.Symbols {
		w[i] = weights[sym]
	}
	return w
}

// Metrics computes expected return, volatility and Sharpe ratio for one
// weight vector.
func (s *Statistics) Metrics(weights map[string]float64) contracts.PortfolioMetrics {
	w := s.vector(weights)

	expectedReturn := s.portfolioReturn(w)
	volatility := math.Sqrt(math.Max(s.portfolioVariance(w), 0))

	var sharpe float64
	if volatility > 0 {
		sharpe = (expectedReturn - RiskFreeRate) / volatility
	}

	return contracts.PortfolioMetrics{
		ExpectedReturn: expectedReturn,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
		Weights:        weights,
	}
}

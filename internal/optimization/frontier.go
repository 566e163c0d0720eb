package optimization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

const (
	// frontierPoints is the number of target returns swept per pass.
	frontierPoints = 20

	// frontierCutoff is far below the solve cutoff so the frontier can
	// trace allocations the headline solve would round away.
	frontierCutoff = 0.0001

	// frontierMinPoints triggers the relaxed second pass.
	frontierMinPoints = 5
)

// Loose bounds for the first frontier pass. Deliberately wider than any risk
// profile allows, so the sweep traces the full curve.
var frontierBounds = Bounds{Min: 0.001, Max: 0.95}

// FrontierGenerator sweeps a target-return range through the solver to
// produce efficient frontier points. Generation never fails: infeasible
// targets are dropped and the result may be empty.
type FrontierGenerator struct {
	solver *Solver
	logger *logger.Logger
}

// NewFrontierGenerator creates a generator backed by the given solver.
func NewFrontierGenerator(solver *Solver, log *logger.Logger) *FrontierGenerator {
	return &FrontierGenerator{
		solver: solver,
		logger: log,
	}
}

// Generate sweeps target returns between 0.1x the minimum and 2.0x the
// maximum asset return. When fewer than five targets are feasible under the
// loose bounds, a second pass runs without bounds. Points are deduplicated
// on (return, volatility) rounded to 4 decimals and sorted ascending by
// volatility.
func (g *FrontierGenerator) Generate(stats *Statistics) []contracts.FrontierPoint {
	targets := make([]float64, frontierPoints)
	floats.Span(targets, stats.MinReturn()*0.1, stats.MaxReturn()*2.0)

	points := g.sweep(stats, targets, frontierBounds)

	if len(points) < frontierMinPoints {
		g.logger.WithField("points", len(points)).Info("Sparse frontier, retrying without bounds")
		points = append(points, g.sweep(stats, targets, Bounds{Min: 0, Max: 1})...)
	}

	points = dedupePoints(points)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Volatility < points[j].Volatility })

	g.logger.WithField("points", len(points)).Debug("Generated efficient frontier")
	return points
}

func (g *FrontierGenerator) sweep(stats *Statistics, targets []float64, bounds Bounds) []contracts.FrontierPoint {
	points := make([]contracts.FrontierPoint, 0, len(targets))
	for _, target := range targets {
		weights, err := g.solver.solve(stats, contracts.ObjectiveEfficientReturn, target, bounds, frontierCutoff)
		if err != nil {
			continue
		}

		m := stats.Metrics(weights)
		points = append(points, contracts.FrontierPoint{
			ExpectedReturn: m.ExpectedReturn,
			Volatility:     m.Volatility,
			SharpeRatio:    m.SharpeRatio,
			Weights:        weights,
		})
	}
	return points
}

// dedupePoints keeps the first occurrence of each (return, volatility) pair
// rounded to 4 decimal places.
func dedupePoints(points []contracts.FrontierPoint) []contracts.FrontierPoint {
	type key struct {
		ret, vol float64
	}
	seen := make(map[key]bool, len(points))
	unique := points[:0]
	for _, p := range points {
		k := key{ret: round4(p.ExpectedReturn), vol: round4(p.Volatility)}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, p)
	}
	return unique
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

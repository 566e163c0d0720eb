package optimization

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

const (
	// weightCutoff zeroes noise allocations after a solve.
	weightCutoff = 0.005

	// penaltyWeight scales the quadratic penalties for the equality
	// constraints (full allocation, target return).
	penaltyWeight = 1000.0

	// sumTolerance bounds the allowed deviation of the weight sum from 1.
	sumTolerance = 1e-4

	// returnTolerance bounds the allowed deviation from a target return.
	// Targets further away than this from the best achievable portfolio
	// are reported as infeasible.
	returnTolerance = 1e-3
)

// Bounds restricts every weight to [Min, Max].
type Bounds struct {
	Min float64
	Max float64
}

// Solver solves the mean-variance problem for one of three objectives using
// a penalty formulation: the full-allocation constraint (and, for the
// efficient_return objective, the target-return constraint) enter the
// objective as quadratic penalties, and iterates are projected onto the
// weight bounds.
type Solver struct {
	riskFree float64
	logger   *logger.Logger
}

// NewSolver creates a solver with the standard risk-free rate.
func NewSolver(log *logger.Logger) *Solver {
	return &Solver{
		riskFree: RiskFreeRate,
		logger:   log,
	}
}

// Solve computes the optimal weight vector for the given objective. Weights
// below 0.5% are zeroed and the rest renormalized to sum to 1. Returns
// InfeasibleError when no weight vector can satisfy the bounds and objective.
func (s *Solver) Solve(stats *Statistics, objective contracts.Objective, targetReturn float64, bounds Bounds) (map[string]float64, error) {
	return s.solve(stats, objective, targetReturn, bounds, weightCutoff)
}

func (s *Solver) solve(stats *Statistics, objective contracts.Objective, targetReturn float64, bounds Bounds, cutoff float64) (map[string]float64, error) {
	n := len(stats.Symbols)
	if n == 0 {
		return nil, &contracts.InfeasibleError{Objective: objective, Reason: "no assets"}
	}

	// Bounds that cannot accommodate a full allocation are infeasible
	// regardless of the objective.
	if float64(n)*bounds.Max < 1-sumTolerance {
		return nil, &contracts.InfeasibleError{Objective: objective, Reason: "upper weight bounds cannot reach a full allocation"}
	}
	if float64(n)*bounds.Min > 1+sumTolerance {
		return nil, &contracts.InfeasibleError{Objective: objective, Reason: "lower weight bounds exceed a full allocation"}
	}

	var problem optimize.Problem
	switch objective {
	case contracts.ObjectiveMinVolatility:
		problem = s.minVolatilityProblem(stats, bounds)
	case contracts.ObjectiveMaxSharpe:
		problem = s.maxSharpeProblem(stats, bounds)
	case contracts.ObjectiveEfficientReturn:
		problem = s.efficientReturnProblem(stats, bounds, targetReturn)
	default:
		return nil, &contracts.InvalidRequestError{Field: "objective", Reason: "unknown objective " + string(objective)}
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		// BFGS struggles with the projected objective near bound faces;
		// Nelder-Mead is slower but derivative-free.
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, &contracts.InfeasibleError{Objective: objective, Reason: "optimization failed: " + err.Error()}
		}
		if !converged(result.Status) {
			return nil, &contracts.InfeasibleError{Objective: objective, Reason: "optimization did not converge"}
		}
	}

	w := projectToBounds(result.X, bounds)
	normalize(w)

	// The penalty formulation can stop short of an unreachable target;
	// verify and surface that as infeasibility rather than a silently
	// wrong allocation.
	if objective == contracts.ObjectiveEfficientReturn {
		if math.Abs(stats.portfolioReturn(w)-targetReturn) > returnTolerance {
			return nil, &contracts.InfeasibleError{Objective: objective, Reason: "target return not achievable within bounds"}
		}
	}

	sum := 0.0
	for i := range w {
		if w[i] < cutoff {
			w[i] = 0
		}
		sum += w[i]
	}
	if sum <= 0 {
		return nil, &contracts.InfeasibleError{Objective: objective, Reason: "all weights below cutoff"}
	}
	for i := range w {
		w[i] /= sum
	}

	weights := make(map[string]float64, n)
	for i, sym := range stats.Symbols {
		weights[sym] = w[i]
	}
	return weights, nil
}

func (s *Solver) minVolatilityProblem(stats *Statistics, bounds Bounds) optimize.Problem {
	n := len(stats.Symbols)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, bounds)
			obj := stats.portfolioVariance(w)
			obj += penaltyWeight * square(sumOf(w)-1)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, bounds)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * stats.Cov.At(i, j) * w[j]
				}
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

func (s *Solver) maxSharpeProblem(stats *Statistics, bounds Bounds) optimize.Problem {
	n := len(stats.Symbols)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, bounds)
			ret := stats.portfolioReturn(w)
			stdDev := math.Sqrt(math.Max(stats.portfolioVariance(w), 1e-10))

			obj := -(ret - s.riskFree) / stdDev
			obj += penaltyWeight * square(sumOf(w)-1)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, bounds)
			ret := stats.portfolioReturn(w)
			stdDev := math.Sqrt(math.Max(stats.portfolioVariance(w), 1e-10))

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * stats.Cov.At(i, j) * w[j]
				}
				grad[i] = -stats.Mean[i]/stdDev + (ret-s.riskFree)*dVariance/(2*stdDev*stdDev*stdDev)
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

func (s *Solver) efficientReturnProblem(stats *Statistics, bounds Bounds, targetReturn float64) optimize.Problem {
	n := len(stats.Symbols)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, bounds)
			obj := stats.portfolioVariance(w)
			obj += penaltyWeight * square(sumOf(w)-1)
			obj += penaltyWeight * square(stats.portfolioReturn(w)-targetReturn)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, bounds)
			ret := stats.portfolioReturn(w)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * stats.Cov.At(i, j) * w[j]
				}
				grad[i] += 2 * penaltyWeight * (ret - targetReturn) * stats.Mean[i]
			}
			addSumPenaltyGradient(grad, w)
		},
	}
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

func projectToBounds(x []float64, bounds Bounds) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(bounds.Min, math.Min(bounds.Max, x[i]))
	}
	return proj
}

// normalize rescales w in place to sum to 1, clamping negatives to zero.
func normalize(w []float64) {
	sum := 0.0
	for i := range w {
		w[i] = math.Max(0, w[i])
		sum += w[i]
	}
	sum = math.Max(sum, 1e-10)
	for i := range w {
		w[i] /= sum
	}
}

func addSumPenaltyGradient(grad, w []float64) {
	diff := sumOf(w) - 1
	for i := range grad {
		grad[i] += 2 * penaltyWeight * diff
	}
}

func sumOf(w []float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

func square(v float64) float64 { return v * v }

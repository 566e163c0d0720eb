package contracts

import "time"

// RiskProfile selects a preset of objective, target return and weight bounds.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileModerate     RiskProfile = "moderate"
	ProfileAggressive   RiskProfile = "aggressive"
)

// Valid reports whether the profile is one of the known presets.
func (p RiskProfile) Valid() bool {
	switch p {
	case ProfileConservative, ProfileModerate, ProfileAggressive:
		return true
	}
	return false
}

// Objective is a mean-variance optimization objective.
type Objective string

const (
	ObjectiveMaxSharpe       Objective = "max_sharpe"
	ObjectiveMinVolatility   Objective = "min_volatility"
	ObjectiveEfficientReturn Objective = "efficient_return"
)

// Valid reports whether the objective is supported.
func (o Objective) Valid() bool {
	switch o {
	case ObjectiveMaxSharpe, ObjectiveMinVolatility, ObjectiveEfficientReturn:
		return true
	}
	return false
}

// Lookback bounds, in trading-day observations.
const (
	MinLookback = 60
	MaxLookback = 1260
)

// OptimizationRequest describes one optimization run.
// Zero-valued optional fields fall back to the risk profile's defaults.
type OptimizationRequest struct {
	RiskProfile  RiskProfile `json:"risk_profile"`
	Objective    Objective   `json:"objective,omitempty"`
	TargetReturn float64     `json:"target_return,omitempty"`
	Lookback     int         `json:"lookback_period,omitempty"`
	MinWeight    float64     `json:"min_weight,omitempty"`
	MaxWeight    float64     `json:"max_weight,omitempty"`

	// CurrentPrices, when supplied by the caller, bypasses live quote fetches.
	CurrentPrices map[string]float64 `json:"current_prices,omitempty"`
}

// Validate checks the request invariants. A zero Objective or Lookback is
// acceptable here; profile defaults are applied by the orchestrator.
func (r *OptimizationRequest) Validate() error {
	if !r.RiskProfile.Valid() {
		return &InvalidRequestError{Field: "risk_profile", Reason: "must be one of conservative, moderate, aggressive"}
	}
	if r.Objective != "" && !r.Objective.Valid() {
		return &InvalidRequestError{Field: "objective", Reason: "must be one of max_sharpe, min_volatility, efficient_return"}
	}
	if r.Objective == ObjectiveEfficientReturn && r.TargetReturn <= 0 {
		return &InvalidRequestError{Field: "target_return", Reason: "required for the efficient_return objective"}
	}
	if r.Lookback != 0 && (r.Lookback < MinLookback || r.Lookback > MaxLookback) {
		return &InvalidRequestError{Field: "lookback_period", Reason: "must be between 60 and 1260 observations"}
	}
	if r.MinWeight < 0 || r.MaxWeight < 0 || r.MaxWeight > 1 {
		return &InvalidRequestError{Field: "min_weight/max_weight", Reason: "weights must lie in [0, 1]"}
	}
	if r.MinWeight > 0 && r.MaxWeight > 0 && r.MinWeight > r.MaxWeight {
		return &InvalidRequestError{Field: "min_weight", Reason: "min_weight must not exceed max_weight"}
	}
	return nil
}

// FrontierPoint is one feasible point on the efficient frontier.
type FrontierPoint struct {
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	Weights        map[string]float64 `json:"weights"`
}

// PortfolioMetrics summarizes the risk/return of one weight vector.
type PortfolioMetrics struct {
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	Weights        map[string]float64 `json:"weights"`
}

// OptimizationResult is the assembled output of one orchestration run.
// Immutable once produced.
type OptimizationResult struct {
	OptimalWeights map[string]float64 `json:"optimal_weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`

	// Risk metrics for the optimal allocation. Nil when the underlying
	// series is degenerate and the metric is unavailable.
	MaxDrawdown *float64 `json:"max_drawdown,omitempty"`
	CVaR        *float64 `json:"cvar,omitempty"`

	EfficientFrontier []FrontierPoint    `json:"efficient_frontier"`
	CurrentWeights    map[string]float64 `json:"current_weights"`
	CurrentMetrics    PortfolioMetrics   `json:"current_metrics"`

	RebalancingTrades map[string]float64 `json:"rebalancing_trades"`

	RiskProfile RiskProfile `json:"risk_profile"`
	Objective   Objective   `json:"optimization_method"`
	DataPeriod  string      `json:"data_period"`
	Timestamp   time.Time   `json:"timestamp"`
}

// RiskProfileInfo describes one preset for API consumers.
type RiskProfileInfo struct {
	ID            RiskProfile `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Objective     Objective   `json:"objective"`
	TargetReturn  float64     `json:"target_return"`
	MaxVolatility float64     `json:"max_volatility"`
	MinWeight     float64     `json:"min_weight"`
	MaxWeight     float64     `json:"max_weight"`
}

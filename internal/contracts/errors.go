package contracts

import "fmt"

// InsufficientHoldingsError signals that the portfolio cannot be optimized:
// fewer than three holdings, or zero total value. The caller has to fix the
// portfolio before retrying.
type InsufficientHoldingsError struct {
	Count      int
	TotalValue float64
}

func (e *InsufficientHoldingsError) Error() string {
	if e.Count < 3 {
		return fmt.Sprintf("need at least 3 holdings for optimization (current: %d)", e.Count)
	}
	return "portfolio has no value"
}

// InsufficientHistoryError signals that too few symbols survived the
// minimum-observation filter.
type InsufficientHistoryError struct {
	ValidSymbols int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("need at least 3 symbols with %d+ price observations (valid: %d)",
		MinObservations, e.ValidSymbols)
}

// InvalidRequestError signals a malformed optimization request.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// InfeasibleError signals that the solver cannot satisfy the bounds and
// objective simultaneously.
type InfeasibleError struct {
	Objective Objective
	Reason    string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("no feasible solution for %s: %s", e.Objective, e.Reason)
}

// DataProviderError signals an external data fetch failure that aborts the
// whole run. Single-symbol failures inside batch operations are absorbed and
// never surface as this type.
type DataProviderError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *DataProviderError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: fetch failed for %s: %v", e.Provider, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s: fetch failed: %v", e.Provider, e.Err)
}

func (e *DataProviderError) Unwrap() error {
	return e.Err
}

package optimization

import "math"

// tradeThreshold suppresses trades smaller than 1% of portfolio value.
const tradeThreshold = 0.01

// RebalancingTrades computes the dollar trades that move the current
// allocation to the optimal one. Positive amounts are buys, negative are
// sells. Trades below 1% of total portfolio value are omitted as noise.
func RebalancingTrades(current, optimal map[string]float64, totalValue float64) map[string]float64 {
	if totalValue <= 0 {
		return map[string]float64{}
	}

	symbols := make(map[string]bool, len(current)+len(optimal))
	for sym := range current {
		symbols[sym] = true
	}
	for sym := range optimal {
		symbols[sym] = true
	}

	trades := make(map[string]float64)
	for sym := range symbols {
		amount := (optimal[sym] - current[sym]) * totalValue
		if math.Abs(amount) > totalValue*tradeThreshold {
			trades[sym] = amount
		}
	}
	return trades
}

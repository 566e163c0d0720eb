package contracts

import (
	"fmt"
	"time"
)

// MinObservations is the minimum number of price observations a symbol needs
// to participate in an optimization.
const MinObservations = 60

// PricePoint is one (date, adjusted close) observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered sequence of price observations for one symbol.
// Dates must be strictly increasing.
type PriceSeries []PricePoint

// Validate checks the series ordering invariant.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("price series not strictly increasing at index %d (%s -> %s)",
				i, s[i-1].Date.Format("2006-01-02"), s[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Usable reports whether the series carries enough observations.
func (s PriceSeries) Usable() bool {
	return len(s) >= MinObservations
}

// HistoricalDataset holds aligned close-price series for a set of symbols.
// All symbols share the identical ascending date index; Prices[sym][i]
// corresponds to Dates[i].
type HistoricalDataset struct {
	Symbols []string             `json:"symbols"`
	Dates   []time.Time          `json:"dates"`
	Prices  map[string][]float64 `json:"prices"`
}

// Observations returns the number of aligned dates.
func (d *HistoricalDataset) Observations() int {
	return len(d.Dates)
}

// Returns computes daily simple returns (p[t]/p[t-1] - 1) per symbol, in the
// dataset's symbol order. Each returned row has Observations()-1 entries.
func (d *HistoricalDataset) Returns() map[string][]float64 {
	out := make(map[string][]float64, len(d.Symbols))
	for _, sym := range d.Symbols {
		prices := d.Prices[sym]
		if len(prices) < 2 {
			out[sym] = nil
			continue
		}
		rets := make([]float64, len(prices)-1)
		for i := 1; i < len(prices); i++ {
			if prices[i-1] == 0 {
				rets[i-1] = 0
				continue
			}
			rets[i-1] = prices[i]/prices[i-1] - 1
		}
		out[sym] = rets
	}
	return out
}

// PortfolioReturns collapses the dataset into a single daily return series
// weighted by the given weight vector. Symbols absent from weights
// contribute zero.
func (d *HistoricalDataset) PortfolioReturns(weights map[string]float64) []float64 {
	if d.Observations() < 2 {
		return nil
	}
	perSymbol := d.Returns()
	n := d.Observations() - 1

	series := make([]float64, n)
	for _, sym := range d.Symbols {
		w := weights[sym]
		if w == 0 {
			continue
		}
		rets := perSymbol[sym]
		for i := 0; i < n && i < len(rets); i++ {
			series[i] += w * rets[i]
		}
	}
	return series
}

// Period describes the covered date range, e.g. "2023-01-03 to 2023-12-29".
func (d *HistoricalDataset) Period() string {
	if len(d.Dates) == 0 {
		return ""
	}
	return fmt.Sprintf("%s to %s",
		d.Dates[0].Format("2006-01-02"),
		d.Dates[len(d.Dates)-1].Format("2006-01-02"))
}

package contracts

import "time"

// Holding represents a position in the tracked portfolio.
type Holding struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol"`
	Quantity     float64    `json:"quantity"`
	BuyPrice     float64    `json:"buy_price"`
	BuyDate      *time.Time `json:"buy_date,omitempty"`
	CurrentPrice float64    `json:"current_price,omitempty"`
}

// CostBasis returns the total acquisition cost of the position.
func (h *Holding) CostBasis() float64 {
	return h.Quantity * h.BuyPrice
}

// HoldingWithMetrics is a holding enriched with a market price and derived
// performance numbers. PriceStale is set when no live quote was available and
// the cost basis was used instead.
type HoldingWithMetrics struct {
	Holding
	Value           float64 `json:"value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
	PriceStale      bool    `json:"price_stale,omitempty"`
}

// PortfolioSummary aggregates portfolio-level totals.
type PortfolioSummary struct {
	TotalValue           float64 `json:"total_value"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
	HoldingsCount        int     `json:"holdings_count"`
}

// PortfolioOverview is the complete portfolio view returned to callers.
type PortfolioOverview struct {
	Summary          PortfolioSummary   `json:"summary"`
	Holdings         []Holding          `json:"holdings"`
	SectorAllocation map[string]float64 `json:"sector_allocation"`
}

// Quote is a point-in-time market quote for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// ValidationReport is the result of a pre-optimization portfolio check.
// No optimization is performed to produce it.
type ValidationReport struct {
	IsValid     bool             `json:"is_valid"`
	Issues      []string         `json:"issues"`
	Suggestions []string         `json:"suggestions"`
	Summary     PortfolioSummary `json:"portfolio_summary"`
	Symbols     []string         `json:"symbols"`
}

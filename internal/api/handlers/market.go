package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// maxBatchQuoteSymbols caps one batch quote request.
const maxBatchQuoteSymbols = 10

// MarketData is the slice of the quote provider the market endpoints use.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (*contracts.Quote, bool)
	BatchQuotes(ctx context.Context, symbols []string) map[string]*contracts.Quote
	CompanyProfile(ctx context.Context, symbol string) (map[string]interface{}, bool)
	SearchSymbols(ctx context.Context, query string) []map[string]interface{}
	MarketStatus(ctx context.Context) (bool, bool)
}

// MarketHandler handles direct market data lookups.
type MarketHandler struct {
	market MarketData
	logger *logger.Logger
}

// NewMarketHandler creates a market data handler.
func NewMarketHandler(market MarketData, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		market: market,
		logger: log,
	}
}

// GetQuote returns the real-time quote for one symbol.
// GET /api/market/quote/{symbol}
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	quote, ok := h.market.Quote(r.Context(), symbol)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Quote not found for symbol: %s", symbol))
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// BatchQuotes returns quotes for up to ten symbols. Unavailable symbols are
// absent from the result.
// POST /api/market/quotes
func (h *MarketHandler) BatchQuotes(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if err := json.NewDecoder(r.Body).Decode(&symbols); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(symbols) == 0 {
		respondError(w, http.StatusBadRequest, "No symbols provided")
		return
	}
	if len(symbols) > maxBatchQuoteSymbols {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d symbols allowed per request", maxBatchQuoteSymbols))
		return
	}

	for i, s := range symbols {
		symbols[i] = strings.ToUpper(s)
	}
	respondJSON(w, http.StatusOK, h.market.BatchQuotes(r.Context(), symbols))
}

// Search looks up symbols matching a free-text query.
// GET /api/market/search?q=...
func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "Search query too short")
		return
	}

	results := h.market.SearchSymbols(r.Context(), query)
	if results == nil {
		results = []map[string]interface{}{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// Fundamentals returns the company profile for one symbol.
// GET /api/market/fundamentals/{symbol}
func (h *MarketHandler) Fundamentals(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	profile, ok := h.market.CompanyProfile(r.Context(), symbol)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Company overview not found for symbol: %s", symbol))
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Status reports whether the US market is open.
// GET /api/market/status
func (h *MarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	open, ok := h.market.MarketStatus(r.Context())
	if !ok {
		respondError(w, http.StatusBadGateway, "Market status unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"is_open": open,
	})
}

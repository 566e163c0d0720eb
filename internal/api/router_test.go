package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaysomani05/opti-invest/internal/api/handlers"
	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/marketdata"
	"github.com/anaysomani05/opti-invest/internal/optimization"
	"github.com/anaysomani05/opti-invest/internal/portfolio"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// stubQuotes serves fixed prices for known symbols.
type stubQuotes struct {
	prices map[string]float64
}

func (s *stubQuotes) Quote(ctx context.Context, symbol string) (*contracts.Quote, bool) {
	price, ok := s.prices[symbol]
	if !ok {
		return nil, false
	}
	return &contracts.Quote{Symbol: symbol, Price: price, LastUpdated: time.Now()}, true
}

func (s *stubQuotes) BatchQuotes(ctx context.Context, symbols []string) map[string]*contracts.Quote {
	out := make(map[string]*contracts.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := s.Quote(ctx, sym); ok {
			out[sym] = q
		}
	}
	return out
}

func (s *stubQuotes) CompanyProfile(ctx context.Context, symbol string) (map[string]interface{}, bool) {
	if _, ok := s.prices[symbol]; !ok {
		return nil, false
	}
	return map[string]interface{}{"name": symbol + " Inc", "ticker": symbol}, true
}

func (s *stubQuotes) SearchSymbols(ctx context.Context, query string) []map[string]interface{} {
	var results []map[string]interface{}
	for sym := range s.prices {
		if strings.Contains(sym, strings.ToUpper(query)) {
			results = append(results, map[string]interface{}{"symbol": sym})
		}
	}
	return results
}

func (s *stubQuotes) MarketStatus(ctx context.Context) (bool, bool) {
	return true, true
}

// stubHistory serves synthetic price series for known symbols.
type stubHistory struct {
	params map[string]struct{ drift, amp, phase float64 }
}

func (s *stubHistory) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, bool) {
	p, ok := s.params[symbol]
	if !ok {
		return nil, false
	}

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(contracts.PriceSeries, 100)
	for i := 0; i < 100; i++ {
		series[i] = contracts.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Close: 100 * math.Pow(1+p.drift, float64(i)) * (1 + p.amp*math.Sin(1.7*float64(i)+p.phase)),
		}
	}
	return series, true
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.NewNop()

	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 180, "GOOGL": 140, "MSFT": 410}}
	history := &stubHistory{params: map[string]struct{ drift, amp, phase float64 }{
		"AAPL":  {0.0003, 0.01, 0},
		"GOOGL": {0.0008, 0.03, 1},
		"MSFT":  {0.0012, 0.05, 2},
	}}

	portfolioSvc := portfolio.NewService(portfolio.NewMemoryStore(), quotes, 5*time.Minute, log)
	historySvc := marketdata.NewHistoryService(history, time.Hour, log)
	optimizationSvc := optimization.NewService(portfolioSvc, historySvc, 5*time.Minute, log)

	return NewRouter(
		handlers.NewPortfolioHandler(portfolioSvc, log),
		handlers.NewOptimizationHandler(optimizationSvc, log),
		handlers.NewMarketHandler(quotes, log),
		log,
	)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func addHolding(t *testing.T, router http.Handler, symbol string, quantity, buyPrice float64) contracts.Holding {
	t.Helper()

	rec := doJSON(t, router, "POST", "/api/portfolio/holdings", contracts.Holding{
		Symbol: symbol, Quantity: quantity, BuyPrice: buyPrice,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var h contracts.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	return h
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouter_HoldingsCRUD(t *testing.T) {
	router := newTestRouter(t)

	added := addHolding(t, router, "AAPL", 10, 150)
	require.NotEmpty(t, added.ID)
	assert.Equal(t, "AAPL", added.Symbol)

	rec := doJSON(t, router, "GET", "/api/portfolio/holdings/"+added.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/portfolio/holdings/"+added.ID, map[string]interface{}{"quantity": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated contracts.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 20.0, updated.Quantity)

	rec = doJSON(t, router, "GET", "/api/portfolio/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var enriched []contracts.HoldingWithMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enriched))
	require.Len(t, enriched, 1)
	assert.Equal(t, 180.0, enriched[0].CurrentPrice)

	rec = doJSON(t, router, "DELETE", "/api/portfolio/holdings/"+added.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/portfolio/holdings/"+added.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AddHolding_Invalid(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/portfolio/holdings", contracts.Holding{Symbol: "AAPL"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/api/portfolio/holdings", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UploadCSV(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "holdings.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("symbol,quantity,buy_price\nAAPL,10,150\nGOOGL,5,120\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/portfolio/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"imported":2`)
}

func TestRouter_UploadCSV_BadFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "holdings.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("symbol,quantity\nAAPL,10\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/portfolio/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Overview(t *testing.T) {
	router := newTestRouter(t)
	addHolding(t, router, "AAPL", 10, 150)
	addHolding(t, router, "GOOGL", 5, 120)

	rec := doJSON(t, router, "GET", "/api/portfolio/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var overview contracts.PortfolioOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, 2, overview.Summary.HoldingsCount)
	assert.InDelta(t, 10*180.0+5*140.0, overview.Summary.TotalValue, 1e-9)
}

func TestRouter_RiskProfiles(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/optimization/risk-profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Profiles []contracts.RiskProfileInfo `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Profiles, 3)
}

func TestRouter_ValidatePortfolio(t *testing.T) {
	router := newTestRouter(t)
	addHolding(t, router, "AAPL", 10, 150)

	rec := doJSON(t, router, "GET", "/api/optimization/validate-portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report contracts.ValidationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.IsValid)
	assert.NotEmpty(t, report.Issues)
}

func TestRouter_Optimize(t *testing.T) {
	router := newTestRouter(t)
	addHolding(t, router, "AAPL", 10, 150)
	addHolding(t, router, "GOOGL", 5, 120)
	addHolding(t, router, "MSFT", 4, 350)

	rec := doJSON(t, router, "POST", "/api/optimization/optimize", contracts.OptimizationRequest{
		RiskProfile: contracts.ProfileAggressive,
		Lookback:    60,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result contracts.OptimizationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	sum := 0.0
	for _, w := range result.OptimalWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
	assert.Equal(t, contracts.ObjectiveMaxSharpe, result.Objective)
}

func TestRouter_Optimize_Failures(t *testing.T) {
	router := newTestRouter(t)
	addHolding(t, router, "AAPL", 10, 150)
	addHolding(t, router, "GOOGL", 5, 120)

	// Two holdings cannot be optimized.
	rec := doJSON(t, router, "POST", "/api/optimization/optimize", contracts.OptimizationRequest{
		RiskProfile: contracts.ProfileAggressive,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, "POST", "/api/optimization/optimize", contracts.OptimizationRequest{
		RiskProfile: "reckless",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MarketQuote(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/market/quote/aapl", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote contracts.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 180.0, quote.Price)

	rec = doJSON(t, router, "GET", "/api/market/quote/UNKNOWN", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MarketBatchQuotes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/market/quotes", []string{"aapl", "MSFT", "UNKNOWN"})
	require.Equal(t, http.StatusOK, rec.Code)

	var quotes map[string]contracts.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	assert.Len(t, quotes, 2)
	assert.Contains(t, quotes, "AAPL")
	assert.Contains(t, quotes, "MSFT")

	rec = doJSON(t, router, "POST", "/api/market/quotes", []string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tooMany := make([]string, 11)
	for i := range tooMany {
		tooMany[i] = "AAPL"
	}
	rec = doJSON(t, router, "POST", "/api/market/quotes", tooMany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MarketSearch(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/market/search?q=aap", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "AAPL", body.Results[0]["symbol"])

	// No matches still returns an empty list, not null.
	rec = doJSON(t, router, "GET", "/api/market/search?q=zzz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)

	rec = doJSON(t, router, "GET", "/api/market/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MarketFundamentals(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/market/fundamentals/msft", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "MSFT Inc", profile["name"])

	rec = doJSON(t, router, "GET", "/api/market/fundamentals/UNKNOWN", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MarketStatus(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/market/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_open":true`)
}

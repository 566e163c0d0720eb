package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/config"
	"github.com/anaysomani05/opti-invest/pkg/httputil"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// FinnhubClient fetches live quotes and company data from Finnhub.
// Every request passes through the gateway's rate budget. Transport and
// parse failures are absorbed into an absence-of-data signal so batch
// callers can continue with partial results.
type FinnhubClient struct {
	cfg        config.FinnhubConfig
	httpClient *httputil.Client
	gateway    *Gateway
	logger     *logger.Logger
}

// NewFinnhubClient creates a Finnhub client sharing the given gateway.
func NewFinnhubClient(cfg config.FinnhubConfig, httpClient *httputil.Client, gateway *Gateway, log *logger.Logger) *FinnhubClient {
	return &FinnhubClient{
		cfg:        cfg,
		httpClient: httpClient,
		gateway:    gateway,
		logger:     log,
	}
}

// quoteResponse is Finnhub's /quote payload.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	Volume        int64   `json:"v"`
	Error         string  `json:"error"`
}

// Quote fetches a real-time quote for one symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (*contracts.Quote, bool) {
	var data quoteResponse
	if !c.getJSON(ctx, "/quote", url.Values{"symbol": {strings.ToUpper(symbol)}}, &data) {
		return nil, false
	}

	if data.Error != "" || data.Current <= 0 {
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  data.Error,
		}).Warn("No quote data available")
		return nil, false
	}

	return &contracts.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         data.Current,
		Change:        data.Change,
		ChangePercent: data.ChangePercent,
		Volume:        data.Volume,
		LastUpdated:   time.Now(),
	}, true
}

// BatchQuotes fetches quotes for multiple symbols. Unavailable symbols are
// simply absent from the result.
func (c *FinnhubClient) BatchQuotes(ctx context.Context, symbols []string) map[string]*contracts.Quote {
	quotes := make(map[string]*contracts.Quote, len(symbols))

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		if q, ok := c.Quote(ctx, symbol); ok {
			quotes[q.Symbol] = q
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"fetched":   len(quotes),
	}).Debug("Fetched batch quotes")

	return quotes
}

// CompanyProfile fetches basic company information.
func (c *FinnhubClient) CompanyProfile(ctx context.Context, symbol string) (map[string]interface{}, bool) {
	var data map[string]interface{}
	if !c.getJSON(ctx, "/stock/profile2", url.Values{"symbol": {strings.ToUpper(symbol)}}, &data) {
		return nil, false
	}

	if _, ok := data["name"]; !ok {
		return nil, false
	}
	return data, true
}

// SearchSymbols looks up symbols matching a free-text query.
func (c *FinnhubClient) SearchSymbols(ctx context.Context, query string) []map[string]interface{} {
	var data struct {
		Result []map[string]interface{} `json:"result"`
	}
	if !c.getJSON(ctx, "/search", url.Values{"q": {query}}, &data) {
		return nil
	}
	return data.Result
}

// MarketStatus reports whether the US market is open.
func (c *FinnhubClient) MarketStatus(ctx context.Context) (bool, bool) {
	var data struct {
		IsOpen bool `json:"isOpen"`
	}
	if !c.getJSON(ctx, "/stock/market-status", url.Values{"exchange": {"US"}}, &data) {
		return false, false
	}
	return data.IsOpen, true
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
// Returns false on any failure.
func (c *FinnhubClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) bool {
	if err := c.gateway.Wait(ctx); err != nil {
		c.logger.WithError(err).Warn("Rate limit wait aborted")
		return false
	}

	params.Set("token", c.cfg.APIKey)
	fullURL := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Finnhub request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		c.logger.WithFields(map[string]interface{}{
			"path":        path,
			"status_code": resp.StatusCode,
		}).Warn("Finnhub returned non-OK status")
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Finnhub response parse failed")
		return false
	}

	return true
}

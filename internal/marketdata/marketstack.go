package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/pkg/config"
	"github.com/anaysomani05/opti-invest/pkg/httputil"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// marketstackPageLimit is the row cap of the free plan.
const marketstackPageLimit = 1000

// MarketstackClient fetches end-of-day historical prices from Marketstack.
// Requests pass through the gateway's rate budget; failures for a single
// symbol are absorbed so multi-symbol fetches degrade instead of aborting.
type MarketstackClient struct {
	cfg        config.MarketstackConfig
	httpClient *httputil.Client
	gateway    *Gateway
	logger     *logger.Logger
}

// NewMarketstackClient creates a Marketstack client behind the given gateway.
func NewMarketstackClient(cfg config.MarketstackConfig, httpClient *httputil.Client, gateway *Gateway, log *logger.Logger) *MarketstackClient {
	return &MarketstackClient{
		cfg:        cfg,
		httpClient: httpClient,
		gateway:    gateway,
		logger:     log,
	}
}

// eodResponse is Marketstack's /eod payload.
type eodResponse struct {
	Data []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"data"`
}

// FetchSeries fetches the close-price series for one symbol between from and
// to, ascending by date. Unavailable data is reported as (nil, false).
func (c *MarketstackClient) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, bool) {
	if err := c.gateway.Wait(ctx); err != nil {
		c.logger.WithError(err).Warn("Rate limit wait aborted")
		return nil, false
	}

	params := url.Values{
		"access_key": {c.cfg.APIKey},
		"symbols":    {strings.ToUpper(symbol)},
		"date_from":  {from.Format("2006-01-02")},
		"date_to":    {to.Format("2006-01-02")},
		"limit":      {fmt.Sprintf("%d", marketstackPageLimit)},
		"sort":       {"ASC"},
	}

	fullURL := fmt.Sprintf("%s/eod?%s", c.cfg.BaseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Marketstack request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		c.logger.WithFields(map[string]interface{}{
			"symbol":      symbol,
			"status_code": resp.StatusCode,
		}).Warn("Marketstack returned non-OK status")
		return nil, false
	}

	var data eodResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Marketstack response parse failed")
		return nil, false
	}

	if len(data.Data) == 0 {
		c.logger.WithField("symbol", symbol).Warn("No historical data returned")
		return nil, false
	}

	series := make(contracts.PriceSeries, 0, len(data.Data))
	seen := make(map[string]bool, len(data.Data))
	for _, row := range data.Data {
		// Dates arrive as RFC3339-ish strings; the day part is all we need.
		if len(row.Date) < 10 {
			continue
		}
		day := row.Date[:10]
		if seen[day] || row.Close <= 0 {
			continue
		}

		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}

		seen[day] = true
		series = append(series, contracts.PricePoint{Date: date, Close: row.Close})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	if len(series) == 0 {
		return nil, false
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(series),
	}).Debug("Fetched historical series")

	return series, true
}

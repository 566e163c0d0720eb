package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaysomani05/opti-invest/pkg/config"
	"github.com/anaysomani05/opti-invest/pkg/httputil"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

func newTestMarketstack(t *testing.T, handler http.HandlerFunc) *MarketstackClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.MarketstackConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}
	gateway := NewGateway(100, time.Minute, logger.NewNop())
	return NewMarketstackClient(cfg, httputil.New(logger.NewNop()).DisableRetry(), gateway, logger.NewNop())
}

func TestMarketstackClient_FetchSeries(t *testing.T) {
	client := newTestMarketstack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("access_key"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		assert.Equal(t, "ASC", r.URL.Query().Get("sort"))

		_, _ = w.Write([]byte(`{"data": [
			{"date": "2024-01-02T00:00:00+0000", "close": 185.64},
			{"date": "2024-01-03T00:00:00+0000", "close": 184.25},
			{"date": "2024-01-04T00:00:00+0000", "close": 181.91}
		]}`))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	series, ok := client.FetchSeries(context.Background(), "aapl", from, to)
	require.True(t, ok)
	require.Len(t, series, 3)

	assert.NoError(t, series.Validate())
	assert.InDelta(t, 185.64, series[0].Close, 1e-9)
	assert.Equal(t, "2024-01-02", series[0].Date.Format("2006-01-02"))
}

func TestMarketstackClient_SkipsDuplicatesAndBadRows(t *testing.T) {
	client := newTestMarketstack(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"date": "2024-01-02T00:00:00+0000", "close": 185.64},
			{"date": "2024-01-02T00:00:00+0000", "close": 185.64},
			{"date": "2024-01-03T00:00:00+0000", "close": 0},
			{"date": "bad", "close": 100},
			{"date": "2024-01-04T00:00:00+0000", "close": 181.91}
		]}`))
	})

	series, ok := client.FetchSeries(context.Background(), "AAPL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)

	assert.Len(t, series, 2)
	assert.NoError(t, series.Validate())
}

func TestMarketstackClient_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "empty data", body: `{"data": []}`, code: 200},
		{name: "server error", body: `oops`, code: 500},
		{name: "bad json", body: `{`, code: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestMarketstack(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})

			_, ok := client.FetchSeries(context.Background(), "AAPL",
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
			assert.False(t, ok)
		})
	}
}

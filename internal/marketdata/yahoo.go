// Package marketdata fetches the prices, indicators and FX rate that the
// engines consume. Everything is assembled into one immutable snapshot per
// evaluation date; the engines themselves never touch the network.
package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/minghuang/etfdca/pkg/httputil"
	"github.com/minghuang/etfdca/pkg/logger"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// Bar is one daily close of a symbol.
type Bar struct {
	Date  time.Time
	Close float64
}

// YahooClient fetches daily bars from the Yahoo Finance chart API.
type YahooClient struct {
	client  *httputil.Client
	baseURL string
	log     *logger.Logger
}

// NewYahooClient creates a Yahoo client on a shared HTTP client. Requests
// are throttled to stay well under Yahoo's unauthenticated limits.
func NewYahooClient(client *httputil.Client, log *logger.Logger) *YahooClient {
	return &YahooClient{
		client:  client.WithHeader("User-Agent", "Mozilla/5.0").WithRateLimit(rate.Limit(2), 1),
		baseURL: defaultYahooBaseURL,
		log:     log.WithField("component", "marketdata"),
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (y *YahooClient) WithBaseURL(base string) *YahooClient {
	y.baseURL = base
	return y
}

// yahooChart mirrors the chart API response shape.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyBars fetches daily closes for a symbol over a Yahoo range string
// such as "1mo" or "2y", oldest first. Null bars (holidays) are skipped.
func (y *YahooClient) DailyBars(ctx context.Context, symbol, rng string) ([]Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(symbol), rng)

	var chart yahooChart
	if err := y.client.GetJSON(ctx, u, &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart fetch for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo returned no data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo returned no quote series for %s", symbol)
	}
	closes := result.Indicators.Quote[0].Close

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		bars = append(bars, Bar{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: *closes[i],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	y.log.WithFields(map[string]interface{}{
		"symbol": symbol,
		"range":  rng,
		"bars":   len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// LatestClose fetches the most recent daily close for a symbol.
func (y *YahooClient) LatestClose(ctx context.Context, symbol string) (float64, error) {
	bars, err := y.DailyBars(ctx, symbol, "5d")
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("yahoo returned no close for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/minghuang/etfdca/internal/calendar"
	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/pkg/logger"
)

// ma200Window is the number of daily closes the moving average needs.
const ma200Window = 200

// SnapshotBuilder assembles the market snapshot for one evaluation date.
type SnapshotBuilder struct {
	cfg   *strategyconfig.Config
	yahoo *YahooClient
	fx    *FXProvider
	log   *logger.Logger
}

// NewSnapshotBuilder creates a snapshot builder.
func NewSnapshotBuilder(cfg *strategyconfig.Config, yahoo *YahooClient, fx *FXProvider, log *logger.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{
		cfg:   cfg,
		yahoo: yahoo,
		fx:    fx,
		log:   log.WithField("component", "snapshot"),
	}
}

// Build fetches benchmark history, portfolio closes and the FX rate, and
// derives the indicator values for date. Any gap in the required data is a
// hard error; the engines never run on partial inputs.
func (b *SnapshotBuilder) Build(ctx context.Context, date time.Time) (*contracts.MarketSnapshot, error) {
	date = calendar.Normalize(date)

	bars, err := b.yahoo.DailyBars(ctx, b.cfg.Symbols.Benchmark, "2y")
	if err != nil {
		return nil, err
	}

	snap := &contracts.MarketSnapshot{
		Date:   date,
		Prices: make(map[string]float64, len(b.cfg.Symbols.Portfolio)),
	}
	if err := b.deriveBenchmark(snap, bars, date); err != nil {
		return nil, err
	}

	for _, ticker := range b.cfg.Symbols.Portfolio {
		price, err := b.closeOn(ctx, ticker, date)
		if err != nil {
			return nil, err
		}
		snap.Prices[ticker] = price
	}

	snap.FXUsdCny, snap.FXFallbackUsed = b.fx.Rate(ctx)
	if snap.FXUsdCny <= 0 {
		return nil, &contracts.MissingDataError{Field: "fx rate"}
	}

	b.log.WithFields(map[string]interface{}{
		"date":        date.Format("2006-01-02"),
		"close":       snap.BenchmarkClose,
		"ma200":       snap.MA200,
		"month_high":  snap.MonthHighClose,
		"fx":          snap.FXUsdCny,
		"fx_fallback": snap.FXFallbackUsed,
	}).Info("Market snapshot built")
	return snap, nil
}

// deriveBenchmark fills close, previous close, MA200 and month-to-date high
// from the benchmark's daily history.
func (b *SnapshotBuilder) deriveBenchmark(snap *contracts.MarketSnapshot, bars []Bar, date time.Time) error {
	benchmark := b.cfg.Symbols.Benchmark

	// Index of the evaluation date's bar: the last bar on or before date.
	idx := -1
	for i, bar := range bars {
		if bar.Date.After(date) {
			break
		}
		idx = i
	}
	if idx < 0 {
		return &contracts.MissingDataError{Field: "close", Ticker: benchmark}
	}
	if !bars[idx].Date.Equal(date) {
		return fmt.Errorf("no %s bar for %s, latest is %s",
			benchmark, date.Format("2006-01-02"), bars[idx].Date.Format("2006-01-02"))
	}
	if idx == 0 {
		return &contracts.MissingDataError{Field: "previous close", Ticker: benchmark}
	}

	snap.BenchmarkClose = bars[idx].Close
	snap.BenchmarkPrevClose = bars[idx-1].Close

	if idx+1 < ma200Window {
		return &contracts.MissingDataError{Field: "ma200", Ticker: benchmark}
	}
	var sum float64
	for i := idx - ma200Window + 1; i <= idx; i++ {
		sum += bars[i].Close
	}
	snap.MA200 = sum / ma200Window

	for i := idx; i >= 0; i-- {
		if bars[i].Date.Year() != date.Year() || bars[i].Date.Month() != date.Month() {
			break
		}
		if bars[i].Close > snap.MonthHighClose {
			snap.MonthHighClose = bars[i].Close
		}
	}
	return nil
}

// closeOn returns a ticker's close on exactly the given date.
func (b *SnapshotBuilder) closeOn(ctx context.Context, ticker string, date time.Time) (float64, error) {
	bars, err := b.yahoo.DailyBars(ctx, ticker, "1mo")
	if err != nil {
		return 0, err
	}
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Date.Equal(date) {
			return bars[i].Close, nil
		}
		if bars[i].Date.Before(date) {
			break
		}
	}
	return 0, &contracts.MissingDataError{Field: "close", Ticker: ticker}
}

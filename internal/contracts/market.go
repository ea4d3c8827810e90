package contracts

import "time"

// MarketSnapshot carries everything the engines need for one evaluation date.
// It is assembled by the marketdata package and treated as immutable input;
// the engines never fetch anything themselves.
type MarketSnapshot struct {
	Date time.Time `json:"date"`

	// Benchmark series (signal symbol, e.g. RSP).
	BenchmarkClose     float64 `json:"benchmark_close"`
	BenchmarkPrevClose float64 `json:"benchmark_prev_close"`
	MA200              float64 `json:"ma200"`
	MonthHighClose     float64 `json:"month_high_close"`

	// Latest close per portfolio ticker, in USD.
	Prices map[string]float64 `json:"prices"`

	// USD/CNY rate used for this run. FXFallbackUsed marks that the live
	// fetch failed and the configured fallback value was substituted.
	FXUsdCny       float64 `json:"fx_usd_cny"`
	FXFallbackUsed bool    `json:"fx_fallback_used"`
}

// Price returns the close for a ticker and whether it is present and positive.
func (s *MarketSnapshot) Price(ticker string) (float64, bool) {
	p, ok := s.Prices[ticker]
	return p, ok && p > 0
}

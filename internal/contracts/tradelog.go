package contracts

import "time"

// TradeLogEntry is one row of the append-only trade log: one entry per
// triggering day. The log is the only durable state the signal engine
// depends on; entries are never mutated or deleted once written.
type TradeLogEntry struct {
	Date     time.Time   `json:"date"`
	Seq      int         `json:"seq"` // trading-day sequence number
	MonthKey string      `json:"month_key"`
	Trigger  TriggerKind `json:"trigger"`

	BaseBuyCNY    float64 `json:"base_buy_cny"`
	BelowMA200    bool    `json:"below_ma200"`
	ReserveAddCNY float64 `json:"reserve_add_cny"`
	ReserveUseCNY float64 `json:"reserve_use_cny"`
	// ReserveAfterCNY is the running balance after this entry was applied.
	// Redundant with the fold but kept for human inspection of the CSV.
	ReserveAfterCNY float64 `json:"reserve_after_cny"`
	DeployedCNY     float64 `json:"deployed_cny"`

	TotalFeeUSD float64 `json:"total_fee_usd"`
	FXUsdCny    float64 `json:"fx_usd_cny"`
	CashPoolCNY float64 `json:"cash_pool_cny"` // residual pool after this run

	BenchmarkClose float64 `json:"benchmark_close"`
	MonthHighClose float64 `json:"month_high_close"`
	Drawdown       float64 `json:"drawdown"`
	ThirdFriday    bool    `json:"third_friday"`
	DaysSinceLast  int     `json:"days_since_last"`
	CooldownOK     bool    `json:"cooldown_ok"`

	// ConfigHash stamps the strategy parameters the entry was produced with.
	ConfigHash string `json:"config_hash,omitempty"`
}

// MonthKeyOf formats the calendar month a date belongs to.
func MonthKeyOf(d time.Time) string {
	return d.Format("2006-01")
}

// ReserveBalance folds the reserve pool balance out of the full log:
// sum(add) - sum(use). The balance is derived, never stored as mutable
// state, so replaying the same log prefix always yields the same value.
func ReserveBalance(log []TradeLogEntry) float64 {
	var balance float64
	for _, e := range log {
		balance += e.ReserveAddCNY - e.ReserveUseCNY
	}
	return balance
}

// LastCashPool returns the residual cash pool recorded by the most recent
// entry, or zero for an empty log.
func LastCashPool(log []TradeLogEntry) float64 {
	if len(log) == 0 {
		return 0
	}
	return log[len(log)-1].CashPoolCNY
}

// MonthEntries filters the log down to entries of one calendar month.
func MonthEntries(log []TradeLogEntry, monthKey string) []TradeLogEntry {
	var out []TradeLogEntry
	for _, e := range log {
		if e.MonthKey == monthKey {
			out = append(out, e)
		}
	}
	return out
}

package contracts

import "time"

// TriggerKind classifies a day's action. A day produces at most one trigger.
type TriggerKind string

const (
	TriggerNone        TriggerKind = "None"
	TriggerFirst       TriggerKind = "First"
	TriggerSecond      TriggerKind = "Second"
	TriggerThird       TriggerKind = "Third"
	TriggerReserveOnly TriggerKind = "ReserveOnly"
)

// Fires reports whether the trigger results in a buy today.
func (k TriggerKind) Fires() bool {
	return k != TriggerNone && k != ""
}

// SignalResult is the full output of the signal engine for one date.
// Every derived quantity that fed the decision is kept so that the daily
// report and the trade log can explain why the trigger fired (or did not).
type SignalResult struct {
	Date        time.Time `json:"date"`
	Seq         int       `json:"seq"` // trading-day sequence number
	TradingDay  bool      `json:"trading_day"`
	ThirdFriday bool      `json:"third_friday"`
	MonthKey    string    `json:"month_key"` // YYYY-MM

	DailyReturn float64 `json:"daily_return"` // close/prev - 1
	Drawdown    float64 `json:"drawdown"`     // close/month_high - 1
	BelowMA200  bool    `json:"below_ma200"`

	TradesThisMonth int  `json:"trades_this_month"`
	HasFirst        bool `json:"has_first"`
	HasSecond       bool `json:"has_second"`
	HasThird        bool `json:"has_third"`
	DaysSinceLast   int  `json:"days_since_last"` // trading days since last entry this month
	CooldownOK      bool `json:"cooldown_ok"`
	MonthCapOK      bool `json:"month_cap_ok"`

	Trigger        TriggerKind `json:"trigger"`
	BaseBuyCNY     float64     `json:"base_buy_cny"`
	ReserveAddCNY  float64     `json:"reserve_add_cny"`
	ReserveUseCNY  float64     `json:"reserve_use_cny"`
	ReserveBefore  float64     `json:"reserve_balance_before_cny"`
	RecommendedCNY float64     `json:"recommended_buy_cny"` // base + reserve use
}

package strategyconfig

// Config is the full strategy definition: which ETFs to hold, how the daily
// trigger state machine is parameterized, and how orders are costed. It is
// immutable per run; every trade log entry is stamped with its hash.
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Symbols   Symbols   `yaml:"symbols" json:"symbols"`
	Params    Params    `yaml:"params" json:"params"`
	Execution Execution `yaml:"execution" json:"execution"`
	CashPool  CashPool  `yaml:"cash_pool" json:"cash_pool"`
	Fees      Fees      `yaml:"fees" json:"fees"`
	Broker    Broker    `yaml:"broker" json:"broker"`
	Notify    Notify    `yaml:"notify" json:"notify"`
	Bootstrap Bootstrap `yaml:"bootstrap" json:"bootstrap"`
}

// Meta identifies the strategy revision.
type Meta struct {
	StrategyID   string `yaml:"strategy_id" json:"strategy_id"`
	Timezone     string `yaml:"timezone" json:"timezone"`           // market timezone, e.g. America/New_York
	BaseCurrency string `yaml:"base_currency" json:"base_currency"` // home currency, CNY
}

// Symbols lists the portfolio and the benchmark the triggers watch.
type Symbols struct {
	Portfolio []string `yaml:"portfolio" json:"portfolio"`
	Benchmark string   `yaml:"benchmark" json:"benchmark"`
}

// Params holds the trigger thresholds and allocation guardrails.
type Params struct {
	FXUsdCny         float64 `yaml:"fx_usd_cny" json:"fx_usd_cny"`
	FXMode           string  `yaml:"fx_mode" json:"fx_mode"` // auto | fixed
	FXSymbol         string  `yaml:"fx_symbol" json:"fx_symbol"`
	FXFallbackUsdCny float64 `yaml:"fx_fallback_usd_cny" json:"fx_fallback_usd_cny"`

	InvestCNYPerTrade       float64 `yaml:"invest_cny_per_trade" json:"invest_cny_per_trade"`
	FirstBuyRatioBelowMA200 float64 `yaml:"first_buy_ratio_below_ma200" json:"first_buy_ratio_below_ma200"`
	FirstDailyDropThreshold float64 `yaml:"first_daily_drop_threshold" json:"first_daily_drop_threshold"`
	SecondDrawdownThreshold float64 `yaml:"second_drawdown_threshold" json:"second_drawdown_threshold"`
	ThirdDrawdownThreshold  float64 `yaml:"third_drawdown_threshold" json:"third_drawdown_threshold"`
	CooldownTradingDays     int     `yaml:"cooldown_trading_days" json:"cooldown_trading_days"`
	MaxTradesPerMonth       int     `yaml:"max_trades_per_month" json:"max_trades_per_month"`

	TargetWeightEach       float64 `yaml:"target_weight_each" json:"target_weight_each"`
	WeightCeilingGuardrail float64 `yaml:"weight_ceiling_guardrail" json:"weight_ceiling_guardrail"`
}

// Execution holds share-rounding policy.
type Execution struct {
	AllowFractionalShares bool    `yaml:"allow_fractional_shares" json:"allow_fractional_shares"`
	FractionalStep        float64 `yaml:"fractional_step" json:"fractional_step"`
}

// CashPool configures carrying the allocation residual into the next buy.
type CashPool struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Source    string  `yaml:"source" json:"source"` // AUTO | MANUAL
	ManualCNY float64 `yaml:"manual_cny" json:"manual_cny"`
}

// Fees is the per-side fee schedule: a rate on gross, floored at a minimum.
type Fees struct {
	Buy  FeeSide `yaml:"buy" json:"buy"`
	Sell FeeSide `yaml:"sell" json:"sell"`
}

type FeeSide struct {
	Rate   float64 `yaml:"rate" json:"rate"`
	MinUSD float64 `yaml:"min_usd" json:"min_usd"`
}

// Broker selects the submission boundary.
type Broker struct {
	Mode        string `yaml:"mode" json:"mode"` // paper | alpaca
	AlpacaPaper bool   `yaml:"alpaca_paper" json:"alpaca_paper"`
}

// Notify configures the daily report email. Credentials come from the
// environment, never from this file.
type Notify struct {
	Email EmailNotify `yaml:"email" json:"email"`
}

type EmailNotify struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	SMTPHost string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port" json:"smtp_port"`
}

// Bootstrap configures the one-shot equal-weight initial buy.
type Bootstrap struct {
	InitialInvestCNY float64 `yaml:"initial_invest_cny" json:"initial_invest_cny"`
	EqualWeight      bool    `yaml:"equal_weight" json:"equal_weight"`
}

// EqualTargetWeight returns the default per-ticker target when none is set.
func (c *Config) EqualTargetWeight() float64 {
	if c.Params.TargetWeightEach > 0 {
		return c.Params.TargetWeightEach
	}
	if n := len(c.Symbols.Portfolio); n > 0 {
		return 1.0 / float64(n)
	}
	return 0
}

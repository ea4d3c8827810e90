package strategyconfig

import (
	"fmt"
	"time"
)

// ValidationError is a configuration failure. It is fatal at startup,
// before any date is evaluated.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every constraint the engines rely on. Thresholds are
// drops, so they must be negative; ratios and weights must stay in (0, 1].
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
		return ValidationError{"meta.timezone", err.Error()}
	}

	if len(cfg.Symbols.Portfolio) == 0 {
		return ValidationError{"symbols.portfolio", "at least one ticker required"}
	}
	seen := make(map[string]bool, len(cfg.Symbols.Portfolio))
	for _, t := range cfg.Symbols.Portfolio {
		if t == "" {
			return ValidationError{"symbols.portfolio", "empty ticker"}
		}
		if seen[t] {
			return ValidationError{"symbols.portfolio", fmt.Sprintf("duplicate ticker %s", t)}
		}
		seen[t] = true
	}

	p := cfg.Params
	if p.InvestCNYPerTrade <= 0 {
		return ValidationError{"params.invest_cny_per_trade", "must be > 0"}
	}
	if p.FXUsdCny <= 0 {
		return ValidationError{"params.fx_usd_cny", "must be > 0"}
	}
	if p.FXMode != "auto" && p.FXMode != "fixed" {
		return ValidationError{"params.fx_mode", "must be auto or fixed"}
	}
	if p.FXFallbackUsdCny <= 0 {
		return ValidationError{"params.fx_fallback_usd_cny", "must be > 0"}
	}
	if p.FirstBuyRatioBelowMA200 <= 0 || p.FirstBuyRatioBelowMA200 > 1 {
		return ValidationError{"params.first_buy_ratio_below_ma200", "must be in (0, 1]"}
	}
	if p.FirstDailyDropThreshold >= 0 {
		return ValidationError{"params.first_daily_drop_threshold", "must be negative"}
	}
	if p.SecondDrawdownThreshold >= 0 {
		return ValidationError{"params.second_drawdown_threshold", "must be negative"}
	}
	if p.ThirdDrawdownThreshold >= 0 {
		return ValidationError{"params.third_drawdown_threshold", "must be negative"}
	}
	if p.ThirdDrawdownThreshold > p.SecondDrawdownThreshold {
		return ValidationError{"params.third_drawdown_threshold", "must be at or below second_drawdown_threshold"}
	}
	if p.CooldownTradingDays < 0 {
		return ValidationError{"params.cooldown_trading_days", "must be >= 0"}
	}
	if p.MaxTradesPerMonth <= 0 {
		return ValidationError{"params.max_trades_per_month", "must be > 0"}
	}
	if p.TargetWeightEach <= 0 || p.TargetWeightEach > 1 {
		return ValidationError{"params.target_weight_each", "must be in (0, 1]"}
	}
	if sum := p.TargetWeightEach * float64(len(cfg.Symbols.Portfolio)); sum > 1.0+1e-9 {
		return ValidationError{"params.target_weight_each", fmt.Sprintf("targets sum to %.4f, must not exceed 1", sum)}
	}
	if p.WeightCeilingGuardrail <= p.TargetWeightEach {
		return ValidationError{"params.weight_ceiling_guardrail", "must be above target_weight_each"}
	}

	if cfg.Execution.AllowFractionalShares && cfg.Execution.FractionalStep <= 0 {
		return ValidationError{"execution.fractional_step", "must be > 0 when fractional shares are allowed"}
	}

	if cfg.CashPool.Source != "AUTO" && cfg.CashPool.Source != "MANUAL" {
		return ValidationError{"cash_pool.source", "must be AUTO or MANUAL"}
	}
	if cfg.CashPool.ManualCNY < 0 {
		return ValidationError{"cash_pool.manual_cny", "must be >= 0"}
	}

	for side, f := range map[string]FeeSide{"buy": cfg.Fees.Buy, "sell": cfg.Fees.Sell} {
		if f.Rate < 0 || f.Rate >= 1 {
			return ValidationError{"fees." + side + ".rate", "must be in [0, 1)"}
		}
		if f.MinUSD < 0 {
			return ValidationError{"fees." + side + ".min_usd", "must be >= 0"}
		}
	}

	if cfg.Broker.Mode != "paper" && cfg.Broker.Mode != "alpaca" {
		return ValidationError{"broker.mode", "must be paper or alpaca"}
	}

	if cfg.Notify.Email.Enabled {
		if cfg.Notify.Email.SMTPHost == "" {
			return ValidationError{"notify.email.smtp_host", "required when email is enabled"}
		}
		if cfg.Notify.Email.SMTPPort <= 0 {
			return ValidationError{"notify.email.smtp_port", "must be > 0"}
		}
	}

	if cfg.Bootstrap.InitialInvestCNY < 0 {
		return ValidationError{"bootstrap.initial_invest_cny", "must be >= 0"}
	}

	return nil
}

package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Meta: Meta{StrategyID: "etf_dca_v1", Timezone: "America/New_York", BaseCurrency: "CNY"},
		Symbols: Symbols{
			Portfolio: []string{"IWY", "SPMO", "RSP", "PFF", "VNQ"},
			Benchmark: "RSP",
		},
		Params: Params{
			FXUsdCny:                7.10,
			FXMode:                  "fixed",
			FXSymbol:                "USDCNY=X",
			FXFallbackUsdCny:        7.20,
			InvestCNYPerTrade:       10000,
			FirstBuyRatioBelowMA200: 0.5,
			FirstDailyDropThreshold: -0.02,
			SecondDrawdownThreshold: -0.05,
			ThirdDrawdownThreshold:  -0.08,
			CooldownTradingDays:     3,
			MaxTradesPerMonth:       3,
			TargetWeightEach:        0.20,
			WeightCeilingGuardrail:  0.25,
		},
		Execution: Execution{AllowFractionalShares: true, FractionalStep: 0.0001},
		CashPool:  CashPool{Enabled: true, Source: "AUTO"},
		Fees: Fees{
			Buy:  FeeSide{Rate: 0.0005, MinUSD: 0.99},
			Sell: FeeSide{Rate: 0.0005, MinUSD: 0.99},
		},
		Broker: Broker{Mode: "paper"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"empty portfolio", func(c *Config) { c.Symbols.Portfolio = nil }, "symbols.portfolio"},
		{"duplicate ticker", func(c *Config) { c.Symbols.Portfolio = []string{"RSP", "RSP"} }, "symbols.portfolio"},
		{"zero invest amount", func(c *Config) { c.Params.InvestCNYPerTrade = 0 }, "params.invest_cny_per_trade"},
		{"positive drop threshold", func(c *Config) { c.Params.FirstDailyDropThreshold = 0.02 }, "params.first_daily_drop_threshold"},
		{"third above second", func(c *Config) { c.Params.ThirdDrawdownThreshold = -0.03 }, "params.third_drawdown_threshold"},
		{"negative monthly cap", func(c *Config) { c.Params.MaxTradesPerMonth = -1 }, "params.max_trades_per_month"},
		{"target weights above one", func(c *Config) { c.Params.TargetWeightEach = 0.5; c.Params.WeightCeilingGuardrail = 0.6 }, "params.target_weight_each"},
		{"ceiling below target", func(c *Config) { c.Params.WeightCeilingGuardrail = 0.1 }, "params.weight_ceiling_guardrail"},
		{"bad buy ratio", func(c *Config) { c.Params.FirstBuyRatioBelowMA200 = 1.5 }, "params.first_buy_ratio_below_ma200"},
		{"fee rate out of range", func(c *Config) { c.Fees.Buy.Rate = 1.0 }, "fees.buy.rate"},
		{"unknown broker", func(c *Config) { c.Broker.Mode = "robinhood" }, "broker.mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	yaml := `
meta:
  strategy_id: etf_dca_v1
symbols:
  portfolio: [IWY, SPMO, RSP, PFF, VNQ]
  benchmark: RSP
params:
  fx_usd_cny: 7.1
  fx_mode: fixed
  invest_cny_per_trade: 10000
  first_buy_ratio_below_ma200: 0.5
  first_daily_drop_threshold: -0.02
  second_drawdown_threshold: -0.05
  third_drawdown_threshold: -0.08
  cooldown_trading_days: 3
  max_trades_per_month: 3
  weight_ceiling_guardrail: 0.25
execution:
  allow_fractional_shares: true
cash_pool:
  enabled: true
fees:
  buy: {rate: 0.0005, min_usd: 0.99}
  sell: {rate: 0.0005, min_usd: 0.99}
`
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Defaults filled in.
	assert.Equal(t, "America/New_York", cfg.Meta.Timezone)
	assert.Equal(t, "CNY", cfg.Meta.BaseCurrency)
	assert.InDelta(t, 0.20, cfg.Params.TargetWeightEach, 1e-12)
	assert.InDelta(t, 7.1, cfg.Params.FXFallbackUsdCny, 1e-12)
	assert.InDelta(t, 0.0001, cfg.Execution.FractionalStep, 1e-12)
	assert.Equal(t, "paper", cfg.Broker.Mode)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	yaml := `
meta:
  strategy_id: etf_dca_v1
  no_such_field: true
`
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestHashDeterministic(t *testing.T) {
	cfg := validConfig()

	h1, err := Hash(cfg)
	require.NoError(t, err)
	h2, err := Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	cfg.Params.InvestCNYPerTrade = 20000
	h3, err := Hash(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

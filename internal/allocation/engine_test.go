package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/pkg/logger"
)

func testConfig() *strategyconfig.Config {
	return &strategyconfig.Config{
		Symbols: strategyconfig.Symbols{
			Portfolio: []string{"IWY", "SPMO", "RSP", "PFF", "VNQ"},
			Benchmark: "RSP",
		},
		Params: strategyconfig.Params{
			TargetWeightEach:       0.20,
			WeightCeilingGuardrail: 0.25,
		},
		Execution: strategyconfig.Execution{
			AllowFractionalShares: false,
		},
		Fees: strategyconfig.Fees{
			Buy: strategyconfig.FeeSide{Rate: 0.0005, MinUSD: 0.99},
		},
	}
}

func newEngine(cfg *strategyconfig.Config) *Engine {
	return New(cfg, logger.Nop())
}

func TestZeroNotionalIsNoOp(t *testing.T) {
	e := newEngine(testConfig())

	res, err := e.Allocate(0, &contracts.MarketSnapshot{FXUsdCny: 7.2}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	assert.Zero(t, res.TotalFeeUSD)
	assert.Zero(t, res.ResidualCNY)
}

func TestMissingPriceIsFatal(t *testing.T) {
	e := newEngine(testConfig())

	snap := &contracts.MarketSnapshot{
		FXUsdCny: 7.2,
		Prices:   map[string]float64{"IWY": 100, "SPMO": 90, "RSP": 180, "PFF": 30},
		// VNQ absent.
	}
	_, err := e.Allocate(1000, snap, nil)
	require.Error(t, err)
	var missing *contracts.MissingDataError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "VNQ", missing.Ticker)
}

func TestMissingFXIsFatal(t *testing.T) {
	e := newEngine(testConfig())

	_, err := e.Allocate(1000, &contracts.MarketSnapshot{}, nil)
	require.Error(t, err)
	var missing *contracts.MissingDataError
	assert.True(t, errors.As(err, &missing))
}

func TestSplitNotionalProportionalTopTwo(t *testing.T) {
	scores := map[string]float64{"A": 0.03, "B": 0.01, "C": 0, "D": 0, "E": 0}
	tickers := []string{"A", "B", "C", "D", "E"}

	suggested, top1, top2 := splitNotional(3000, scores, tickers)

	assert.Equal(t, "A", top1)
	assert.Equal(t, "B", top2)
	assert.InDelta(t, 2250, suggested["A"], 1e-9)
	assert.InDelta(t, 750, suggested["B"], 1e-9)
	assert.Zero(t, suggested["C"])
}

func TestSplitNotionalSingleWinner(t *testing.T) {
	scores := map[string]float64{"A": 0.05, "B": 0, "C": 0}
	suggested, top1, top2 := splitNotional(1000, scores, []string{"A", "B", "C"})

	assert.Equal(t, "A", top1)
	assert.Empty(t, top2)
	assert.InDelta(t, 1000, suggested["A"], 1e-9)
}

func TestSplitNotionalEqualWhenNoneUnderweight(t *testing.T) {
	scores := map[string]float64{"A": 0, "B": 0, "C": 0, "D": 0}
	suggested, top1, top2 := splitNotional(1000, scores, []string{"A", "B", "C", "D"})

	for _, s := range suggested {
		assert.InDelta(t, 250, s, 1e-9)
	}
	assert.Equal(t, "A", top1)
	assert.Empty(t, top2)
}

func TestSplitNotionalTieBreaksOnTicker(t *testing.T) {
	scores := map[string]float64{"VNQ": 0.02, "IWY": 0.02, "PFF": 0.02}
	_, top1, top2 := splitNotional(900, scores, []string{"VNQ", "IWY", "PFF"})

	assert.Equal(t, "IWY", top1)
	assert.Equal(t, "PFF", top2)
}

func TestUnderScoreCeilingGuardrail(t *testing.T) {
	e := newEngine(testConfig())

	// RSP sits at 30% of the portfolio, above the 25% ceiling; it scores
	// zero despite the equal 20% target.
	prices := map[string]float64{"IWY": 1, "SPMO": 1, "RSP": 1, "PFF": 1, "VNQ": 1}
	holdings := contracts.Holdings{"IWY": 17.5, "SPMO": 17.5, "RSP": 30, "PFF": 17.5, "VNQ": 17.5}

	scores := e.underScores(e.cfg.Symbols.Portfolio, prices, holdings, 7.0)

	assert.Zero(t, scores["RSP"])
	assert.InDelta(t, 0.025, scores["IWY"], 1e-9)
}

func TestAllocateProportionalWithLeftoverMerge(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols.Portfolio = []string{"A", "B", "C", "D", "E"}
	e := newEngine(cfg)

	// Weights: A 17%, B 19%, C/D/E 21-22% -> scores A 0.03, B 0.01.
	snap := &contracts.MarketSnapshot{
		FXUsdCny: 7.5,
		Prices:   map[string]float64{"A": 7, "B": 3, "C": 1, "D": 1, "E": 1},
	}
	holdings := contracts.Holdings{"A": 17.0 / 7, "B": 19.0 / 3, "C": 21, "D": 21, "E": 22}

	res, err := e.Allocate(3000, snap, holdings)
	require.NoError(t, err)

	// A: 2250 CNY = 300 USD -> 42 shares at 7.
	// B: 750 CNY = 100 USD -> 33 shares at 3, then one leftover share.
	require.Len(t, res.Orders, 2)
	byTicker := map[string]contracts.Order{}
	for _, o := range res.Orders {
		_, dup := byTicker[o.Ticker]
		require.False(t, dup, "ticker %s appears twice", o.Ticker)
		byTicker[o.Ticker] = o
	}

	a := byTicker["A"]
	assert.InDelta(t, 42, a.Shares, 1e-9)
	assert.InDelta(t, 294, a.GrossUSD, 1e-9)
	assert.InDelta(t, 0.99, a.FeeUSD, 1e-9)
	assert.Equal(t, contracts.ReasonTargetFill, a.Reason)

	b := byTicker["B"]
	assert.InDelta(t, 34, b.Shares, 1e-9)
	assert.InDelta(t, 102, b.GrossUSD, 1e-9)
	assert.InDelta(t, 0.99, b.FeeUSD, 1e-9)
	assert.Equal(t, contracts.ReasonTargetPlusLeftover, b.Reason)

	// Conservation: gross + fees + residual recovers the notional.
	totalUSD := res.TotalGrossUSD() + res.TotalFeeUSD + res.ResidualCNY/snap.FXUsdCny
	assert.InDelta(t, 3000/snap.FXUsdCny, totalUSD, 1e-6)
}

func TestAllocateEqualSplit(t *testing.T) {
	e := newEngine(testConfig())

	// Perfectly balanced portfolio: nothing underweight, equal split.
	prices := map[string]float64{"IWY": 10, "SPMO": 10, "RSP": 10, "PFF": 10, "VNQ": 10}
	holdings := contracts.Holdings{"IWY": 20, "SPMO": 20, "RSP": 20, "PFF": 20, "VNQ": 20}
	snap := &contracts.MarketSnapshot{FXUsdCny: 7.0, Prices: prices}

	res, err := e.Allocate(3500, snap, holdings)
	require.NoError(t, err)

	// 3500 CNY = 500 USD, 100 USD per ticker -> 9 whole shares each after
	// the minimum fee, then the pooled leftover tops up IWY to 13.
	require.Len(t, res.Orders, 5)
	for _, o := range res.Orders {
		assert.InDelta(t, 0.99, o.FeeUSD, 1e-9)
		if o.Ticker == "IWY" {
			assert.InDelta(t, 13, o.Shares, 1e-9)
			assert.Equal(t, contracts.ReasonTargetPlusLeftover, o.Reason)
		} else {
			assert.InDelta(t, 9, o.Shares, 1e-9)
			assert.Equal(t, contracts.ReasonTargetFill, o.Reason)
		}
	}

	totalUSD := res.TotalGrossUSD() + res.TotalFeeUSD + res.ResidualCNY/snap.FXUsdCny
	assert.InDelta(t, 500, totalUSD, 1e-6)
}

func TestAllocateConservationFractional(t *testing.T) {
	cfg := testConfig()
	cfg.Execution.AllowFractionalShares = true
	cfg.Execution.FractionalStep = 0.0001
	e := newEngine(cfg)

	prices := map[string]float64{"IWY": 212.33, "SPMO": 97.41, "RSP": 182.45, "PFF": 31.08, "VNQ": 89.7}
	snap := &contracts.MarketSnapshot{FXUsdCny: 7.13, Prices: prices}
	holdings := contracts.Holdings{"IWY": 3, "SPMO": 4, "RSP": 2, "PFF": 10, "VNQ": 5}

	res, err := e.Allocate(10000, snap, holdings)
	require.NoError(t, err)
	require.NotEmpty(t, res.Orders)

	totalUSD := res.TotalGrossUSD() + res.TotalFeeUSD + res.ResidualCNY/snap.FXUsdCny
	assert.InDelta(t, 10000/snap.FXUsdCny, totalUSD, 0.05)

	seen := map[string]bool{}
	for _, o := range res.Orders {
		assert.False(t, seen[o.Ticker])
		seen[o.Ticker] = true
		assert.Greater(t, o.Shares, 0.0)
	}
}

func TestMaxAffordableShares(t *testing.T) {
	fees := strategyconfig.FeeSide{Rate: 0.0005, MinUSD: 0.99}

	shares, fee := maxAffordableShares(100, 3, false, 0, fees)
	assert.InDelta(t, 33, shares, 1e-9)
	assert.InDelta(t, 0.99, fee, 1e-9)

	// Budget too small for a single share.
	shares, fee = maxAffordableShares(2, 3, false, 0, fees)
	assert.Zero(t, shares)
	assert.Zero(t, fee)

	// Fractional rounding to the step.
	shares, _ = maxAffordableShares(100, 3, true, 0.0001, fees)
	assert.InDelta(t, 33.0033, shares, 1e-6)

	shares, fee = maxAffordableShares(0, 3, true, 0.0001, fees)
	assert.Zero(t, shares)
	assert.Zero(t, fee)
}

func TestRoundDownToExactMultiples(t *testing.T) {
	// Quotients that are whole in decimal but land just under an integer
	// in float64 must not lose a step.
	assert.InDelta(t, 33.3333, roundDownTo(33.3333, 0.0001), 1e-12)
	assert.InDelta(t, 0.3, roundDownTo(0.3, 0.1), 1e-12)
	assert.InDelta(t, 33.3333, roundDownTo(33.33335, 0.0001), 1e-12)
	assert.InDelta(t, 33, roundDownTo(33.9, 1), 1e-12)
	// Non-positive step leaves the value alone.
	assert.InDelta(t, 1.23, roundDownTo(1.23, 0), 1e-12)
}

func TestFeeFloor(t *testing.T) {
	fees := strategyconfig.FeeSide{Rate: 0.0005, MinUSD: 0.99}

	// Rate fee 0.05 is floored at the minimum; large gross pays the rate.
	assert.InDelta(t, 0.99, feeFor(fees, 100), 1e-9)
	assert.InDelta(t, 2.5, feeFor(fees, 5000), 1e-9)
	assert.Zero(t, feeFor(fees, 0))
}

func TestSellableShares(t *testing.T) {
	cfg := testConfig()
	cfg.Fees.Sell = strategyconfig.FeeSide{Rate: 0.0005, MinUSD: 0.99}
	e := newEngine(cfg)

	// 1408 USD at 212.33 sells 6 whole shares; the fee floors at the minimum.
	shares, fee := e.SellableShares(1408, 212.33)
	assert.InDelta(t, 6, shares, 1e-9)
	assert.InDelta(t, 0.99, fee, 1e-9)

	shares, fee = e.SellableShares(0, 212.33)
	assert.Zero(t, shares)
	assert.Zero(t, fee)

	// Amount below one share sells nothing.
	shares, fee = e.SellableShares(100, 212.33)
	assert.Zero(t, shares)
	assert.Zero(t, fee)
}

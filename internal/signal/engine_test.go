package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minghuang/etfdca/internal/calendar"
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
	}
}

func newEngine(t *testing.T, cfg *strategyconfig.Config) *Engine {
	t.Helper()
	return New(cfg, calendar.New(), logger.Nop())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapshot(close, prev, ma, monthHigh float64) *contracts.MarketSnapshot {
	return &contracts.MarketSnapshot{
		BenchmarkClose:     close,
		BenchmarkPrevClose: prev,
		MA200:              ma,
		MonthHighClose:     monthHigh,
	}
}

func firstEntry(d time.Time, reserveAdd float64) contracts.TradeLogEntry {
	return contracts.TradeLogEntry{
		Date:            d,
		MonthKey:        contracts.MonthKeyOf(d),
		Trigger:         contracts.TriggerFirst,
		BaseBuyCNY:      5000,
		ReserveAddCNY:   reserveAdd,
		ReserveAfterCNY: reserveAdd,
	}
}

func TestFirstTriggerPartialBuyBelowMA200(t *testing.T) {
	e := newEngine(t, testConfig())

	// 2.5% daily drop below the MA200, empty month.
	snap := snapshot(97.5, 100, 100, 100)
	res, err := e.Evaluate(day(2026, time.August, 31), snap, nil)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerFirst, res.Trigger)
	assert.True(t, res.BelowMA200)
	assert.InDelta(t, -0.025, res.DailyReturn, 1e-9)
	assert.InDelta(t, 5000, res.BaseBuyCNY, 1e-9)
	assert.InDelta(t, 5000, res.ReserveAddCNY, 1e-9)
	assert.Zero(t, res.ReserveUseCNY)
	assert.InDelta(t, 5000, res.RecommendedCNY, 1e-9)
}

func TestFirstTriggerFullBuyAboveMA200(t *testing.T) {
	e := newEngine(t, testConfig())

	snap := snapshot(97.5, 100, 95, 100)
	res, err := e.Evaluate(day(2026, time.August, 31), snap, nil)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerFirst, res.Trigger)
	assert.False(t, res.BelowMA200)
	assert.InDelta(t, 10000, res.BaseBuyCNY, 1e-9)
	assert.Zero(t, res.ReserveAddCNY)
}

func TestFirstTriggerOnThirdFriday(t *testing.T) {
	e := newEngine(t, testConfig())

	// No drop at all, but 2026-08-21 is the third Friday of August.
	snap := snapshot(100, 100, 95, 100)
	res, err := e.Evaluate(day(2026, time.August, 21), snap, nil)
	require.NoError(t, err)

	assert.True(t, res.ThirdFriday)
	assert.Equal(t, contracts.TriggerFirst, res.Trigger)
	assert.InDelta(t, 10000, res.BaseBuyCNY, 1e-9)
}

func TestSecondTriggerDrainsReserve(t *testing.T) {
	cfg := testConfig()
	cfg.Params.InvestCNYPerTrade = 5000
	e := newEngine(t, cfg)

	// First on the 21st left 5000 CNY in reserve. Ten days later the
	// benchmark sits 6% off its month high but back above its MA200.
	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.August, 21), 5000)}
	snap := snapshot(94, 95, 90, 100)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerSecond, res.Trigger)
	assert.InDelta(t, -0.06, res.Drawdown, 1e-9)
	assert.InDelta(t, 5000, res.BaseBuyCNY, 1e-9)
	assert.InDelta(t, 5000, res.ReserveUseCNY, 1e-9)
	assert.InDelta(t, 10000, res.RecommendedCNY, 1e-9)
	assert.InDelta(t, 5000, res.ReserveBefore, 1e-9)
}

func TestSecondTriggerUsesReserveEvenBelowMA200(t *testing.T) {
	e := newEngine(t, testConfig())

	// Below the MA200 the reserve still augments a Second buy.
	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.August, 21), 5000)}
	snap := snapshot(90, 91, 100, 100)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerSecond, res.Trigger)
	assert.True(t, res.BelowMA200)
	assert.InDelta(t, 5000, res.ReserveUseCNY, 1e-9)
}

func TestThirdTriggerRequiresPriorSecond(t *testing.T) {
	e := newEngine(t, testConfig())

	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.August, 7), 0)}
	// 9% drawdown, deep enough for a Third, but no Second logged yet.
	snap := snapshot(91, 92, 100, 100)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)
	assert.Equal(t, contracts.TriggerSecond, res.Trigger)
}

func TestThirdTriggerFires(t *testing.T) {
	e := newEngine(t, testConfig())

	log := []contracts.TradeLogEntry{
		firstEntry(day(2026, time.August, 7), 0),
		{
			Date:     day(2026, time.August, 14),
			MonthKey: "2026-08",
			Trigger:  contracts.TriggerSecond,
		},
	}
	snap := snapshot(91, 92, 100, 100)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)
	assert.Equal(t, contracts.TriggerThird, res.Trigger)
	assert.InDelta(t, 10000, res.BaseBuyCNY, 1e-9)
}

func TestReserveOnlyTrigger(t *testing.T) {
	e := newEngine(t, testConfig())

	// Calm day above the MA200 with reserve waiting from an earlier First.
	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.August, 21), 5000)}
	snap := snapshot(105, 105, 100, 105)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerReserveOnly, res.Trigger)
	assert.Zero(t, res.BaseBuyCNY)
	assert.InDelta(t, 5000, res.ReserveUseCNY, 1e-9)
	assert.InDelta(t, 5000, res.RecommendedCNY, 1e-9)
}

func TestNoReserveOnlyWithZeroBalance(t *testing.T) {
	e := newEngine(t, testConfig())

	// Above MA200, no drop, empty reserve: nothing fires.
	snap := snapshot(105, 105, 100, 105)
	res, err := e.Evaluate(day(2026, time.August, 31), snap, nil)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerNone, res.Trigger)
	assert.Zero(t, res.RecommendedCNY)
}

func TestReserveCarriesAcrossMonths(t *testing.T) {
	e := newEngine(t, testConfig())

	// Reserve added in July augments September's First: a new month resets
	// the monthly counters but never the reserve pool.
	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.July, 17), 5000)}
	snap := snapshot(100, 100, 95, 100)

	// 2026-09-18 is September's third Friday.
	res, err := e.Evaluate(day(2026, time.September, 18), snap, log)
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerFirst, res.Trigger)
	assert.InDelta(t, 10000, res.BaseBuyCNY, 1e-9)
	assert.InDelta(t, 5000, res.ReserveUseCNY, 1e-9)
	assert.InDelta(t, 15000, res.RecommendedCNY, 1e-9)
}

func TestMonthlyCapBlocksTriggers(t *testing.T) {
	cfg := testConfig()
	cfg.Params.MaxTradesPerMonth = 2
	e := newEngine(t, cfg)

	log := []contracts.TradeLogEntry{
		firstEntry(day(2026, time.August, 7), 0),
		{Date: day(2026, time.August, 14), MonthKey: "2026-08", Trigger: contracts.TriggerSecond},
	}
	// Drawdown deep enough for a Third, but the month is capped at 2.
	snap := snapshot(90, 91, 100, 100)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)
	assert.False(t, res.MonthCapOK)
	assert.Equal(t, contracts.TriggerNone, res.Trigger)
}

func TestCooldownBlocksTriggers(t *testing.T) {
	e := newEngine(t, testConfig())

	// Last trade Thursday the 27th; Monday the 31st is only 2 trading days
	// later, under the 3-day cooldown.
	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.August, 27), 5000)}
	snap := snapshot(93, 94, 100, 100)

	res, err := e.Evaluate(day(2026, time.August, 31), snap, log)
	require.NoError(t, err)

	assert.Equal(t, 2, res.DaysSinceLast)
	assert.False(t, res.CooldownOK)
	assert.Equal(t, contracts.TriggerNone, res.Trigger)
}

func TestNonTradingDay(t *testing.T) {
	e := newEngine(t, testConfig())

	// Labor Day 2026.
	res, err := e.Evaluate(day(2026, time.September, 7), snapshot(100, 100, 95, 100), nil)
	require.NoError(t, err)

	assert.False(t, res.TradingDay)
	assert.Equal(t, contracts.TriggerNone, res.Trigger)
	assert.Zero(t, res.RecommendedCNY)
}

func TestMissingDataIsFatal(t *testing.T) {
	e := newEngine(t, testConfig())

	cases := []*contracts.MarketSnapshot{
		snapshot(0, 100, 100, 100),
		snapshot(100, 0, 100, 100),
		snapshot(100, 100, 0, 100),
		snapshot(100, 100, 100, 0),
	}
	for _, snap := range cases {
		_, err := e.Evaluate(day(2026, time.August, 31), snap, nil)
		var missing *contracts.MissingDataError
		require.Error(t, err)
		assert.True(t, errors.As(err, &missing))
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	e := newEngine(t, testConfig())

	log := []contracts.TradeLogEntry{firstEntry(day(2026, time.August, 21), 5000)}
	snap := snapshot(94, 95, 90, 100)
	d := day(2026, time.August, 31)

	first, err := e.Evaluate(d, snap, log)
	require.NoError(t, err)
	second, err := e.Evaluate(d, snap, log)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

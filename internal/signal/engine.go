// Package signal implements the daily trading-signal state machine. Given a
// market snapshot and the accumulated trade log it decides whether today is a
// buy day, which trigger fired, and how much CNY to deploy. The evaluation is
// a pure function of its inputs: all monthly and cooldown state is derived
// from the log, so replaying the same date against the same log prefix always
// produces the same result.
package signal

import (
	"time"

	"github.com/minghuang/etfdca/internal/calendar"
	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/pkg/logger"
)

// noPriorTrade is the sentinel trading-day distance used when the current
// month has no logged entry yet, making the cooldown vacuously satisfied.
const noPriorTrade = 999

// Engine evaluates the trigger decision for one date.
type Engine struct {
	cfg *strategyconfig.Config
	cal *calendar.Calendar
	log *logger.Logger
}

// New creates a signal engine.
func New(cfg *strategyconfig.Config, cal *calendar.Calendar, log *logger.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		cal: cal,
		log: log.WithField("component", "signal"),
	}
}

// Evaluate runs the trigger decision for date against snapshot and the full
// trade log history. It performs no I/O and never mutates the log.
//
// Trigger priority is Third > Second > First > ReserveOnly. A day produces at
// most one trigger. The reserve pool, when a consuming condition is met, is
// always drained in full, never partially.
func (e *Engine) Evaluate(date time.Time, snap *contracts.MarketSnapshot, tradeLog []contracts.TradeLogEntry) (*contracts.SignalResult, error) {
	date = calendar.Normalize(date)

	res := &contracts.SignalResult{
		Date:       date,
		Seq:        e.cal.SequenceNumber(date),
		TradingDay: e.cal.IsTradingDay(date),
		MonthKey:   contracts.MonthKeyOf(date),
		Trigger:    contracts.TriggerNone,
	}

	if !res.TradingDay {
		return res, nil
	}
	res.ThirdFriday = e.cal.ThirdFriday(date)

	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	res.DailyReturn = snap.BenchmarkClose/snap.BenchmarkPrevClose - 1
	res.Drawdown = snap.BenchmarkClose/snap.MonthHighClose - 1
	res.BelowMA200 = snap.BenchmarkClose < snap.MA200

	month := contracts.MonthEntries(tradeLog, res.MonthKey)
	res.TradesThisMonth = len(month)
	for _, entry := range month {
		switch entry.Trigger {
		case contracts.TriggerFirst:
			res.HasFirst = true
		case contracts.TriggerSecond:
			res.HasSecond = true
		case contracts.TriggerThird:
			res.HasThird = true
		}
	}

	res.DaysSinceLast = e.daysSinceLastTrade(date, month)
	res.CooldownOK = res.DaysSinceLast >= e.cfg.Params.CooldownTradingDays
	res.MonthCapOK = res.TradesThisMonth < e.cfg.Params.MaxTradesPerMonth
	res.ReserveBefore = contracts.ReserveBalance(tradeLog)

	p := e.cfg.Params

	firstTrigger := res.TradesThisMonth == 0 &&
		res.CooldownOK &&
		(res.DailyReturn <= p.FirstDailyDropThreshold || res.ThirdFriday)

	secondTrigger := res.HasFirst && !res.HasSecond &&
		res.CooldownOK && res.MonthCapOK &&
		res.Drawdown <= p.SecondDrawdownThreshold

	thirdTrigger := res.HasSecond && !res.HasThird &&
		res.CooldownOK && res.MonthCapOK &&
		res.Drawdown <= p.ThirdDrawdownThreshold

	// The reserve pool is deployed alongside any trigger once the benchmark
	// has recovered above its MA200, and always alongside a deepening
	// Second/Third buy.
	useReserve := res.ReserveBefore > 0 &&
		res.CooldownOK &&
		(snap.BenchmarkClose >= snap.MA200 || secondTrigger || thirdTrigger)

	switch {
	case thirdTrigger:
		res.Trigger = contracts.TriggerThird
	case secondTrigger:
		res.Trigger = contracts.TriggerSecond
	case firstTrigger:
		res.Trigger = contracts.TriggerFirst
	case useReserve:
		res.Trigger = contracts.TriggerReserveOnly
	default:
		res.Trigger = contracts.TriggerNone
	}

	invest := p.InvestCNYPerTrade
	switch res.Trigger {
	case contracts.TriggerFirst:
		if res.BelowMA200 {
			// Partial first buy below the MA200: the withheld share goes
			// into the reserve pool for a future qualifying day.
			res.BaseBuyCNY = invest * p.FirstBuyRatioBelowMA200
			res.ReserveAddCNY = invest * (1 - p.FirstBuyRatioBelowMA200)
		} else {
			res.BaseBuyCNY = invest
		}
	case contracts.TriggerSecond, contracts.TriggerThird:
		res.BaseBuyCNY = invest
	}

	if useReserve && res.Trigger.Fires() {
		res.ReserveUseCNY = res.ReserveBefore
	}
	if res.Trigger.Fires() {
		res.RecommendedCNY = res.BaseBuyCNY + res.ReserveUseCNY
	}

	e.log.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"trigger":    string(res.Trigger),
		"daily_ret":  res.DailyReturn,
		"drawdown":   res.Drawdown,
		"below_ma":   res.BelowMA200,
		"reserve":    res.ReserveBefore,
		"recommend":  res.RecommendedCNY,
		"month_seen": res.TradesThisMonth,
	}).Debug("Signal evaluated")

	return res, nil
}

// daysSinceLastTrade returns the trading-day distance to the most recent log
// entry of the current month, or noPriorTrade when the month is empty.
func (e *Engine) daysSinceLastTrade(date time.Time, month []contracts.TradeLogEntry) int {
	var last time.Time
	for _, entry := range month {
		if entry.Date.After(last) {
			last = entry.Date
		}
	}
	if last.IsZero() {
		return noPriorTrade
	}
	return e.cal.TradingDaysBetween(last, date)
}

func validateSnapshot(snap *contracts.MarketSnapshot) error {
	switch {
	case snap == nil || snap.BenchmarkClose <= 0:
		return &contracts.MissingDataError{Field: "benchmark close"}
	case snap.BenchmarkPrevClose <= 0:
		return &contracts.MissingDataError{Field: "benchmark previous close"}
	case snap.MA200 <= 0:
		return &contracts.MissingDataError{Field: "ma200"}
	case snap.MonthHighClose <= 0:
		return &contracts.MissingDataError{Field: "month high close"}
	}
	return nil
}

// Package runner orchestrates the daily flow: fetch market data, evaluate
// the signal, allocate orders, submit them, persist the trade log entry and
// send the report. All decision logic lives in the engines; the runner only
// wires them together and owns the I/O.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minghuang/etfdca/internal/allocation"
	"github.com/minghuang/etfdca/internal/broker"
	"github.com/minghuang/etfdca/internal/calendar"
	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/holdings"
	"github.com/minghuang/etfdca/internal/notify"
	"github.com/minghuang/etfdca/internal/signal"
	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/internal/tradelog"
	"github.com/minghuang/etfdca/pkg/logger"
)

// marketCloseHour/Minute: runs before 16:10 ET use the previous session's
// close, since today's bar is not final yet.
const (
	marketCloseHour   = 16
	marketCloseMinute = 10
)

// SnapshotSource assembles the market snapshot for a date.
type SnapshotSource interface {
	Build(ctx context.Context, date time.Time) (*contracts.MarketSnapshot, error)
}

// Deps collects the runner's collaborators.
type Deps struct {
	Config    *strategyconfig.Config
	Calendar  *calendar.Calendar
	Signal    *signal.Engine
	Alloc     *allocation.Engine
	Store     tradelog.Store
	Snapshots SnapshotSource
	Broker    broker.Broker
	Mailer    notify.Mailer
	DataDir   string
	Logger    *logger.Logger
}

// Runner executes the daily flow.
type Runner struct {
	cfg        *strategyconfig.Config
	cal        *calendar.Calendar
	signal     *signal.Engine
	alloc      *allocation.Engine
	store      tradelog.Store
	snapshots  SnapshotSource
	broker     broker.Broker
	mailer     notify.Mailer
	dataDir    string
	configHash string
	log        *logger.Logger
	now        func() time.Time
}

// New creates a runner.
func New(deps Deps) *Runner {
	hash, err := strategyconfig.Hash(deps.Config)
	if err != nil {
		deps.Logger.WithError(err).Warn("Strategy config hash failed, entries will be unstamped")
	}
	return &Runner{
		cfg:        deps.Config,
		cal:        deps.Calendar,
		signal:     deps.Signal,
		alloc:      deps.Alloc,
		store:      deps.Store,
		snapshots:  deps.Snapshots,
		broker:     deps.Broker,
		mailer:     deps.Mailer,
		dataDir:    deps.DataDir,
		configHash: hash,
		log:        deps.Logger.WithField("component", "runner"),
		now:        time.Now,
	}
}

// Summary is the persisted result of one daily run.
type Summary struct {
	Date           string                `json:"date"`
	Trigger        contracts.TriggerKind `json:"trigger"`
	RecommendedCNY float64               `json:"recommended_buy_cny"`
	CashPoolStart  float64               `json:"cash_pool_start_cny"`
	CashPoolEnd    float64               `json:"cash_pool_end_cny"`
	ReserveBefore  float64               `json:"reserve_balance_before_cny"`
	ReserveAddCNY  float64               `json:"reserve_add_cny"`
	ReserveUseCNY  float64               `json:"reserve_use_cny"`
	BenchmarkClose float64               `json:"benchmark_close"`
	MA200          float64               `json:"ma200"`
	MonthHighClose float64               `json:"month_high_close"`
	Drawdown       float64               `json:"drawdown"`
	FXUsdCny       float64               `json:"fx_usd_cny"`
	FXFallbackUsed bool                  `json:"fx_fallback_used"`
	Orders         []contracts.Order     `json:"orders"`
	TotalFeeUSD    float64               `json:"total_fee_usd"`
	ResidualCNY    float64               `json:"residual_cny"`
	BrokerResult   string                `json:"broker_result"`
}

// RunDaily executes the full flow for asof. A nil asof resolves to the most
// recent completed trading session by the New York clock.
func (r *Runner) RunDaily(ctx context.Context, asof *time.Time) (*Summary, error) {
	date := r.resolveAsOf(asof)
	r.log.WithField("date", date.Format("2006-01-02")).Info("Daily run started")

	snap, err := r.snapshots.Build(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("snapshot build failed: %w", err)
	}

	history, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("trade log load failed: %w", err)
	}

	sig, err := r.signal.Evaluate(date, snap, history)
	if err != nil {
		return nil, err
	}

	hold, err := holdings.Load(holdingsPath(r.dataDir))
	if err != nil {
		return nil, err
	}

	poolStart := r.cashPoolStart(history)

	summary := &Summary{
		Date:           date.Format("2006-01-02"),
		Trigger:        sig.Trigger,
		RecommendedCNY: sig.RecommendedCNY,
		CashPoolStart:  poolStart,
		CashPoolEnd:    poolStart,
		ReserveBefore:  sig.ReserveBefore,
		ReserveAddCNY:  sig.ReserveAddCNY,
		ReserveUseCNY:  sig.ReserveUseCNY,
		BenchmarkClose: snap.BenchmarkClose,
		MA200:          snap.MA200,
		MonthHighClose: snap.MonthHighClose,
		Drawdown:       sig.Drawdown,
		FXUsdCny:       snap.FXUsdCny,
		FXFallbackUsed: snap.FXFallbackUsed,
	}

	message := ""
	if sig.RecommendedCNY <= 0 {
		// No trade: nothing is appended to the log, but the order sheet and
		// summary are still written for the audit trail.
		summary.BrokerResult = "BROKER: SKIPPED（无交易）"
		message = "今日无交易信号（推荐买入=0）"
		if err := r.writeJSON(fmt.Sprintf("orders_%s.json", summary.Date), summary); err != nil {
			return nil, err
		}
	} else {
		notional := sig.RecommendedCNY + poolStart
		alloc, err := r.alloc.Allocate(notional, snap, hold)
		if err != nil {
			return nil, err
		}
		summary.Orders = alloc.Orders
		summary.TotalFeeUSD = alloc.TotalFeeUSD
		summary.ResidualCNY = alloc.ResidualCNY
		summary.CashPoolEnd = alloc.ResidualCNY

		result, err := r.broker.PlaceOrders(ctx, date, alloc.Orders)
		if err != nil {
			return nil, fmt.Errorf("order submission failed: %w", err)
		}
		summary.BrokerResult = result

		entry, err := tradelog.Project(sig, alloc, snap, r.configHash)
		if err != nil {
			return nil, err
		}
		if err := r.store.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("trade log append failed: %w", err)
		}
	}

	if err := r.writeJSON(fmt.Sprintf("summary_%s.json", summary.Date), summary); err != nil {
		return nil, err
	}

	r.sendReport(date, snap, sig, summary, message)

	r.log.WithFields(map[string]interface{}{
		"date":    summary.Date,
		"trigger": string(summary.Trigger),
		"orders":  len(summary.Orders),
	}).Info("Daily run finished")
	return summary, nil
}

func (r *Runner) sendReport(date time.Time, snap *contracts.MarketSnapshot, sig *contracts.SignalResult, summary *Summary, message string) {
	in := notify.ReportInput{
		Date:           date,
		FXRate:         snap.FXUsdCny,
		FXFallbackUsed: snap.FXFallbackUsed,
		Signal:         sig,
		Snapshot:       snap,
		Orders:         summary.Orders,
		TotalFeeUSD:    summary.TotalFeeUSD,
		CashPoolStart:  summary.CashPoolStart,
		CashPoolEnd:    summary.CashPoolEnd,
		BrokerResult:   summary.BrokerResult,
		Message:        message,
		Portfolio:      r.cfg.Symbols.Portfolio,
	}
	if err := r.mailer.Send(notify.Subject(in), notify.BuildReport(in)); err != nil {
		// A failed email never rolls back a recorded trade.
		r.log.WithError(err).Error("Report email failed")
	}
}

// cashPoolStart resolves the residual pool carried into this run.
func (r *Runner) cashPoolStart(history []contracts.TradeLogEntry) float64 {
	cp := r.cfg.CashPool
	if !cp.Enabled {
		return 0
	}
	if strings.EqualFold(cp.Source, "MANUAL") {
		return cp.ManualCNY
	}
	return contracts.LastCashPool(history)
}

// resolveAsOf picks the evaluation date: an explicit date is normalized as
// given; otherwise runs before the 16:10 ET close use the previous session.
func (r *Runner) resolveAsOf(explicit *time.Time) time.Time {
	if explicit != nil {
		return calendar.Normalize(*explicit)
	}

	nowET := r.now().In(newYork())
	today := time.Date(nowET.Year(), nowET.Month(), nowET.Day(), 0, 0, 0, 0, time.UTC)

	beforeClose := nowET.Hour() < marketCloseHour ||
		(nowET.Hour() == marketCloseHour && nowET.Minute() < marketCloseMinute)
	if beforeClose && r.cal.IsTradingDay(today) {
		return r.cal.LastTradingDayOnOrBefore(today.AddDate(0, 0, -1))
	}
	return r.cal.LastTradingDayOnOrBefore(today)
}

func (r *Runner) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(r.dataDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func holdingsPath(dataDir string) string {
	return filepath.Join(dataDir, "holdings.csv")
}

func newYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// The binary embeds tzdata; a failure here means the zone name
		// itself is broken. A fixed offset would misplace the close
		// cutoff for half the year, so refuse to guess.
		panic(fmt.Sprintf("load America/New_York tz: %v", err))
	}
	return loc
}

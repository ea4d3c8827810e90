package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minghuang/etfdca/internal/allocation"
	"github.com/minghuang/etfdca/internal/broker"
	"github.com/minghuang/etfdca/internal/calendar"
	"github.com/minghuang/etfdca/internal/marketdata"
	"github.com/minghuang/etfdca/internal/notify"
	"github.com/minghuang/etfdca/internal/runner"
	"github.com/minghuang/etfdca/internal/signal"
	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/internal/tradelog"
	"github.com/minghuang/etfdca/pkg/config"
	"github.com/minghuang/etfdca/pkg/database"
	"github.com/minghuang/etfdca/pkg/httputil"
	"github.com/minghuang/etfdca/pkg/logger"
)

// app wires the full dependency graph for one command invocation.
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	log      *logger.Logger
	store    tradelog.Store
	runner   *runner.Runner
	db       *database.DB // nil when the trade log lives on CSV
}

// newApp loads configuration and builds the runner with all of its
// collaborators. Callers must Close when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	log := logger.New(cfg)

	strategy, err := strategyconfig.Load(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	a := &app{cfg: cfg, strategy: strategy, log: log}

	if err := a.buildStore(ctx); err != nil {
		return nil, err
	}

	cal := calendar.New()
	httpClient := httputil.New(log)
	yahoo := marketdata.NewYahooClient(httpClient, log)
	fx := marketdata.NewFXProvider(yahoo, httpClient, strategy, log)
	snapshots := marketdata.NewSnapshotBuilder(strategy, yahoo, fx, log)

	brk, err := a.buildBroker(log)
	if err != nil {
		return nil, err
	}

	a.runner = runner.New(runner.Deps{
		Config:    strategy,
		Calendar:  cal,
		Signal:    signal.New(strategy, cal, log),
		Alloc:     allocation.New(strategy, log),
		Store:     a.store,
		Snapshots: snapshots,
		Broker:    brk,
		Mailer:    a.buildMailer(log),
		DataDir:   cfg.DataDir,
		Logger:    log,
	})
	return a, nil
}

func (a *app) buildStore(ctx context.Context) error {
	if a.cfg.Database.URL != "" {
		db, err := database.New(a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		store, err := tradelog.NewPostgresStore(ctx, db.Pool, a.log)
		if err != nil {
			db.Close()
			return fmt.Errorf("init trade log store: %w", err)
		}
		a.db = db
		a.store = store
		return nil
	}

	store, err := tradelog.NewCSVStore(filepath.Join(a.cfg.DataDir, "trade_log.csv"), a.log)
	if err != nil {
		return fmt.Errorf("init trade log store: %w", err)
	}
	a.store = store
	return nil
}

func (a *app) buildBroker(log *logger.Logger) (broker.Broker, error) {
	if strings.EqualFold(a.strategy.Broker.Mode, "alpaca") {
		if a.cfg.Alpaca.APIKey == "" || a.cfg.Alpaca.APISecret == "" {
			return nil, fmt.Errorf("broker mode is alpaca but ALPACA_API_KEY/ALPACA_API_SECRET are not set")
		}
		return broker.NewAlpacaBroker(
			httputil.New(log),
			a.cfg.Alpaca.APIKey,
			a.cfg.Alpaca.APISecret,
			a.strategy.Broker.AlpacaPaper,
			log,
		), nil
	}
	return broker.NewPaperBroker(a.cfg.DataDir, log), nil
}

func (a *app) buildMailer(log *logger.Logger) notify.Mailer {
	email := a.strategy.Notify.Email
	if !email.Enabled {
		return notify.NopMailer{}
	}
	if !a.cfg.SMTP.Complete() {
		log.Warn("Email notify enabled but SMTP credentials are incomplete, reports disabled")
		return notify.NopMailer{}
	}
	return notify.NewSMTPMailer(email.SMTPHost, email.SMTPPort, a.cfg.SMTP.User, a.cfg.SMTP.Password, a.cfg.SMTP.To, log)
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

package tradelog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/pkg/logger"
)

// PostgresStore keeps the trade log in a Postgres table. Used when several
// machines need to share one log; the CSV store covers the single-machine
// case.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore creates a store on an existing connection pool and
// ensures the trade_log table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (*PostgresStore, error) {
	s := &PostgresStore{
		pool: pool,
		log:  log.WithField("component", "tradelog"),
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS trade_log (
			date DATE PRIMARY KEY,
			seq INTEGER NOT NULL,
			month_key TEXT NOT NULL,
			trigger_kind TEXT NOT NULL,
			base_buy_cny DOUBLE PRECISION NOT NULL,
			below_ma200 BOOLEAN NOT NULL,
			reserve_add_cny DOUBLE PRECISION NOT NULL,
			reserve_use_cny DOUBLE PRECISION NOT NULL,
			reserve_after_cny DOUBLE PRECISION NOT NULL,
			deployed_cny DOUBLE PRECISION NOT NULL,
			total_fee_usd DOUBLE PRECISION NOT NULL,
			fx_usd_cny DOUBLE PRECISION NOT NULL,
			cash_pool_cny DOUBLE PRECISION NOT NULL,
			benchmark_close DOUBLE PRECISION NOT NULL,
			month_high_close DOUBLE PRECISION NOT NULL,
			drawdown DOUBLE PRECISION NOT NULL,
			third_friday BOOLEAN NOT NULL,
			days_since_last INTEGER NOT NULL,
			cooldown_ok BOOLEAN NOT NULL,
			config_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure trade_log table: %w", err)
	}
	return nil
}

// Load returns the full log, oldest first.
func (s *PostgresStore) Load(ctx context.Context) ([]contracts.TradeLogEntry, error) {
	query := `
		SELECT date, seq, month_key, trigger_kind,
		       base_buy_cny, below_ma200, reserve_add_cny, reserve_use_cny,
		       reserve_after_cny, deployed_cny, total_fee_usd, fx_usd_cny,
		       cash_pool_cny, benchmark_close, month_high_close, drawdown,
		       third_friday, days_since_last, cooldown_ok, config_hash
		FROM trade_log
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade log: %w", err)
	}
	defer rows.Close()

	var entries []contracts.TradeLogEntry
	for rows.Next() {
		var e contracts.TradeLogEntry
		var trigger string
		err := rows.Scan(
			&e.Date, &e.Seq, &e.MonthKey, &trigger,
			&e.BaseBuyCNY, &e.BelowMA200, &e.ReserveAddCNY, &e.ReserveUseCNY,
			&e.ReserveAfterCNY, &e.DeployedCNY, &e.TotalFeeUSD, &e.FXUsdCny,
			&e.CashPoolCNY, &e.BenchmarkClose, &e.MonthHighClose, &e.Drawdown,
			&e.ThirdFriday, &e.DaysSinceLast, &e.CooldownOK, &e.ConfigHash,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade log row: %w", err)
		}
		e.Trigger = contracts.TriggerKind(trigger)
		e.Date = e.Date.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trade log rows: %w", err)
	}
	return entries, nil
}

// Append inserts one new entry. A duplicate date is rejected by the primary
// key, which also guards against running the same day twice.
func (s *PostgresStore) Append(ctx context.Context, entry *contracts.TradeLogEntry) error {
	query := `
		INSERT INTO trade_log (
			date, seq, month_key, trigger_kind,
			base_buy_cny, below_ma200, reserve_add_cny, reserve_use_cny,
			reserve_after_cny, deployed_cny, total_fee_usd, fx_usd_cny,
			cash_pool_cny, benchmark_close, month_high_close, drawdown,
			third_friday, days_since_last, cooldown_ok, config_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		          $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := s.pool.Exec(ctx, query,
		entry.Date, entry.Seq, entry.MonthKey, string(entry.Trigger),
		entry.BaseBuyCNY, entry.BelowMA200, entry.ReserveAddCNY, entry.ReserveUseCNY,
		entry.ReserveAfterCNY, entry.DeployedCNY, entry.TotalFeeUSD, entry.FXUsdCny,
		entry.CashPoolCNY, entry.BenchmarkClose, entry.MonthHighClose, entry.Drawdown,
		entry.ThirdFriday, entry.DaysSinceLast, entry.CooldownOK, entry.ConfigHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade log entry: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"date":    entry.Date.Format(dateLayout),
		"trigger": string(entry.Trigger),
	}).Info("Trade log entry appended")
	return nil
}

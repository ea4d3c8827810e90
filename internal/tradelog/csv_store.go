package tradelog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/pkg/logger"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{
	"date", "seq", "month_key", "trigger",
	"base_buy_cny", "below_ma200", "reserve_add_cny", "reserve_use_cny",
	"reserve_after_cny", "deployed_cny", "total_fee_usd", "fx_usd_cny",
	"cash_pool_cny", "benchmark_close", "month_high_close", "drawdown",
	"third_friday", "days_since_last", "cooldown_ok", "config_hash",
}

// CSVStore keeps the trade log in a single CSV file. The file is the durable
// record of every triggering day; rows are only ever appended.
type CSVStore struct {
	path string
	log  *logger.Logger
}

// NewCSVStore creates a store backed by the given file path. The parent
// directory is created if needed; the file itself appears on first append.
func NewCSVStore(path string, log *logger.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trade log directory: %w", err)
	}
	return &CSVStore{
		path: path,
		log:  log.WithField("component", "tradelog"),
	}, nil
}

// Load reads the full log, oldest first. A missing file is an empty log.
func (s *CSVStore) Load(_ context.Context) ([]contracts.TradeLogEntry, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read trade log: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]contracts.TradeLogEntry, 0, len(records)-1)
	for i, rec := range records[1:] {
		entry, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("trade log row %d: %w", i+2, err)
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Append writes one entry at the end of the file, creating it with a header
// row first if it does not exist yet.
func (s *CSVStore) Append(_ context.Context, entry *contracts.TradeLogEntry) error {
	_, statErr := os.Stat(s.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open trade log for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write trade log header: %w", err)
		}
	}
	if err := w.Write(formatRow(entry)); err != nil {
		return fmt.Errorf("failed to write trade log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush trade log: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"date":    entry.Date.Format(dateLayout),
		"trigger": string(entry.Trigger),
	}).Info("Trade log entry appended")
	return nil
}

func formatRow(e *contracts.TradeLogEntry) []string {
	return []string{
		e.Date.Format(dateLayout),
		strconv.Itoa(e.Seq),
		e.MonthKey,
		string(e.Trigger),
		formatFloat(e.BaseBuyCNY),
		strconv.FormatBool(e.BelowMA200),
		formatFloat(e.ReserveAddCNY),
		formatFloat(e.ReserveUseCNY),
		formatFloat(e.ReserveAfterCNY),
		formatFloat(e.DeployedCNY),
		formatFloat(e.TotalFeeUSD),
		formatFloat(e.FXUsdCny),
		formatFloat(e.CashPoolCNY),
		formatFloat(e.BenchmarkClose),
		formatFloat(e.MonthHighClose),
		formatFloat(e.Drawdown),
		strconv.FormatBool(e.ThirdFriday),
		strconv.Itoa(e.DaysSinceLast),
		strconv.FormatBool(e.CooldownOK),
		e.ConfigHash,
	}
}

func parseRow(rec []string) (*contracts.TradeLogEntry, error) {
	if len(rec) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(rec))
	}

	date, err := time.Parse(dateLayout, rec[0])
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", rec[0], err)
	}

	entry := &contracts.TradeLogEntry{
		Date:     date.UTC(),
		MonthKey: rec[2],
		Trigger:  contracts.TriggerKind(rec[3]),
	}

	ints := map[int]*int{1: &entry.Seq, 17: &entry.DaysSinceLast}
	for idx, dst := range ints {
		v, err := strconv.Atoi(rec[idx])
		if err != nil {
			return nil, fmt.Errorf("bad integer %q in column %s: %w", rec[idx], csvHeader[idx], err)
		}
		*dst = v
	}

	floats := map[int]*float64{
		4: &entry.BaseBuyCNY, 6: &entry.ReserveAddCNY, 7: &entry.ReserveUseCNY,
		8: &entry.ReserveAfterCNY, 9: &entry.DeployedCNY, 10: &entry.TotalFeeUSD,
		11: &entry.FXUsdCny, 12: &entry.CashPoolCNY, 13: &entry.BenchmarkClose,
		14: &entry.MonthHighClose, 15: &entry.Drawdown,
	}
	for idx, dst := range floats {
		v, err := strconv.ParseFloat(rec[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q in column %s: %w", rec[idx], csvHeader[idx], err)
		}
		*dst = v
	}

	bools := map[int]*bool{5: &entry.BelowMA200, 16: &entry.ThirdFriday, 18: &entry.CooldownOK}
	for idx, dst := range bools {
		v, err := strconv.ParseBool(rec[idx])
		if err != nil {
			return nil, fmt.Errorf("bad boolean %q in column %s: %w", rec[idx], csvHeader[idx], err)
		}
		*dst = v
	}

	entry.ConfigHash = rec[19]
	return entry, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

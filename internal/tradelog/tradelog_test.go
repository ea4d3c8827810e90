package tradelog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/pkg/logger"
)

func sampleEntry(d time.Time) *contracts.TradeLogEntry {
	return &contracts.TradeLogEntry{
		Date:            d,
		Seq:             6701,
		MonthKey:        contracts.MonthKeyOf(d),
		Trigger:         contracts.TriggerFirst,
		BaseBuyCNY:      5000,
		BelowMA200:      true,
		ReserveAddCNY:   5000,
		ReserveAfterCNY: 5000,
		DeployedCNY:     5000,
		TotalFeeUSD:     1.98,
		FXUsdCny:        7.13,
		CashPoolCNY:     12.5,
		BenchmarkClose:  97.5,
		MonthHighClose:  100,
		Drawdown:        -0.025,
		ThirdFriday:     false,
		DaysSinceLast:   999,
		CooldownOK:      true,
		ConfigHash:      "abc123",
	}
}

func TestProject(t *testing.T) {
	sig := &contracts.SignalResult{
		Date:           time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		Seq:            6701,
		MonthKey:       "2026-08",
		Trigger:        contracts.TriggerSecond,
		BaseBuyCNY:     5000,
		ReserveUseCNY:  5000,
		ReserveBefore:  5000,
		RecommendedCNY: 10000,
		Drawdown:       -0.06,
		DaysSinceLast:  6,
		CooldownOK:     true,
	}
	alloc := &contracts.AllocationResult{TotalFeeUSD: 1.98, ResidualCNY: 15.15}
	snap := &contracts.MarketSnapshot{BenchmarkClose: 94, MonthHighClose: 100, FXUsdCny: 7.5}

	entry, err := Project(sig, alloc, snap, "deadbeef")
	require.NoError(t, err)

	assert.Equal(t, contracts.TriggerSecond, entry.Trigger)
	assert.InDelta(t, 10000, entry.DeployedCNY, 1e-9)
	assert.InDelta(t, 0, entry.ReserveAfterCNY, 1e-9)
	assert.InDelta(t, 1.98, entry.TotalFeeUSD, 1e-9)
	assert.InDelta(t, 15.15, entry.CashPoolCNY, 1e-9)
	assert.Equal(t, "deadbeef", entry.ConfigHash)
}

func TestProjectRejectsOverdraw(t *testing.T) {
	sig := &contracts.SignalResult{
		Trigger:       contracts.TriggerReserveOnly,
		ReserveUseCNY: 6000,
		ReserveBefore: 5000,
	}
	snap := &contracts.MarketSnapshot{BenchmarkClose: 100, MonthHighClose: 100}

	_, err := Project(sig, nil, snap, "")
	require.Error(t, err)
	var overdraw *contracts.OverdrawError
	assert.True(t, errors.As(err, &overdraw))
}

func TestCSVStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_log.csv")
	store, err := NewCSVStore(path, logger.Nop())
	require.NoError(t, err)

	ctx := context.Background()

	// Missing file reads as an empty log.
	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := sampleEntry(time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Append(ctx, first))

	second := sampleEntry(time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC))
	second.Trigger = contracts.TriggerSecond
	second.ReserveAddCNY = 0
	second.ReserveUseCNY = 5000
	second.ReserveAfterCNY = 0
	require.NoError(t, store.Append(ctx, second))

	entries, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, *first, entries[0])
	assert.Equal(t, *second, entries[1])

	// The reserve fold over the reloaded log matches the recorded balance.
	assert.InDelta(t, 0, contracts.ReserveBalance(entries), 1e-9)
}

func TestCSVStoreRejectsCorruptRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_log.csv")
	store, err := NewCSVStore(path, logger.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, sampleEntry(time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC))))

	// Hand-edit a bad amount into the file.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	broken := strings.Replace(string(raw), "5000", "not-a-number", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	_, err = store.Load(ctx)
	require.Error(t, err)
}

// Package tradelog persists the append-only trade log and folds each day's
// outcome into it. The log is the only durable state the signal engine
// reads; entries are never mutated or deleted once written.
package tradelog

import (
	"github.com/minghuang/etfdca/internal/contracts"
)

// Project folds one day's signal and allocation outcome into a single new
// log entry. It is the sole channel through which today's decision affects
// future evaluations.
//
// A reserve use exceeding the prior balance means the signal engine broke
// its own contract; Project refuses to produce an entry in that case.
func Project(sig *contracts.SignalResult, alloc *contracts.AllocationResult, snap *contracts.MarketSnapshot, configHash string) (*contracts.TradeLogEntry, error) {
	if sig.ReserveUseCNY > sig.ReserveBefore {
		return nil, &contracts.OverdrawError{
			RequestedCNY: sig.ReserveUseCNY,
			BalanceCNY:   sig.ReserveBefore,
		}
	}

	entry := &contracts.TradeLogEntry{
		Date:     sig.Date,
		Seq:      sig.Seq,
		MonthKey: sig.MonthKey,
		Trigger:  sig.Trigger,

		BaseBuyCNY:      sig.BaseBuyCNY,
		BelowMA200:      sig.BelowMA200,
		ReserveAddCNY:   sig.ReserveAddCNY,
		ReserveUseCNY:   sig.ReserveUseCNY,
		ReserveAfterCNY: sig.ReserveBefore + sig.ReserveAddCNY - sig.ReserveUseCNY,
		DeployedCNY:     sig.RecommendedCNY,

		BenchmarkClose: snap.BenchmarkClose,
		MonthHighClose: snap.MonthHighClose,
		Drawdown:       sig.Drawdown,
		ThirdFriday:    sig.ThirdFriday,
		DaysSinceLast:  sig.DaysSinceLast,
		CooldownOK:     sig.CooldownOK,

		FXUsdCny:   snap.FXUsdCny,
		ConfigHash: configHash,
	}
	if alloc != nil {
		entry.TotalFeeUSD = alloc.TotalFeeUSD
		entry.CashPoolCNY = alloc.ResidualCNY
	}
	return entry, nil
}

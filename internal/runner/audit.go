package runner

import (
	"context"
	"fmt"

	"github.com/minghuang/etfdca/internal/contracts"
)

// AuditResult reports the log invariant check.
type AuditResult struct {
	Entries        int      `json:"entries"`
	ReserveBalance float64  `json:"reserve_balance_cny"`
	Problems       []string `json:"problems,omitempty"`
}

// OK reports whether every invariant held.
func (a *AuditResult) OK() bool { return len(a.Problems) == 0 }

// AuditLog replays the trade log fold and checks the invariants the engines
// rely on: the reserve balance never goes negative, every recorded
// after-balance matches the fold, dates strictly increase, and no month
// exceeds the trigger cap.
func (r *Runner) AuditLog(ctx context.Context) (*AuditResult, error) {
	history, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("trade log load failed: %w", err)
	}

	result := &AuditResult{Entries: len(history)}
	problem := func(format string, args ...interface{}) {
		result.Problems = append(result.Problems, fmt.Sprintf(format, args...))
	}

	var balance float64
	monthCounts := make(map[string]int)

	for i, e := range history {
		if i > 0 && !history[i-1].Date.Before(e.Date) {
			problem("entry %s does not come after %s",
				e.Date.Format("2006-01-02"), history[i-1].Date.Format("2006-01-02"))
		}
		if e.MonthKey != contracts.MonthKeyOf(e.Date) {
			problem("entry %s has month key %s", e.Date.Format("2006-01-02"), e.MonthKey)
		}

		if e.ReserveUseCNY > balance+1e-6 {
			problem("entry %s overdraws reserve: used %.2f of %.2f",
				e.Date.Format("2006-01-02"), e.ReserveUseCNY, balance)
		}
		balance += e.ReserveAddCNY - e.ReserveUseCNY
		if balance < -1e-6 {
			problem("reserve balance negative (%.2f) after %s", balance, e.Date.Format("2006-01-02"))
		}
		if diff := e.ReserveAfterCNY - balance; diff > 1e-6 || diff < -1e-6 {
			problem("entry %s records balance %.2f, fold says %.2f",
				e.Date.Format("2006-01-02"), e.ReserveAfterCNY, balance)
		}

		monthCounts[e.MonthKey]++
	}

	maxPerMonth := r.cfg.Params.MaxTradesPerMonth
	for month, count := range monthCounts {
		if maxPerMonth > 0 && count > maxPerMonth {
			problem("month %s has %d triggers, cap is %d", month, count, maxPerMonth)
		}
	}

	result.ReserveBalance = balance
	if result.OK() {
		r.log.WithField("entries", result.Entries).Info("Trade log audit passed")
	} else {
		r.log.WithField("problems", len(result.Problems)).Warn("Trade log audit found problems")
	}
	return result, nil
}

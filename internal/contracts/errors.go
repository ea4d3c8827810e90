package contracts

import "fmt"

// MissingDataError reports that a required price, FX rate or indicator value
// is absent. It is fatal to the run: no entry is appended and no order is
// produced, since any amount computed on incomplete data would be wrong.
type MissingDataError struct {
	Field  string
	Ticker string
}

func (e MissingDataError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("missing market data: %s for %s", e.Field, e.Ticker)
	}
	return fmt.Sprintf("missing market data: %s", e.Field)
}

// OverdrawError reports an attempt to use more reserve cash than the current
// balance. The signal engine never produces such a result; seeing this error
// means an internal invariant was violated, not a recoverable condition.
type OverdrawError struct {
	RequestedCNY float64
	BalanceCNY   float64
}

func (e OverdrawError) Error() string {
	return fmt.Sprintf("reserve overdraw: requested %.2f CNY, balance %.2f CNY", e.RequestedCNY, e.BalanceCNY)
}

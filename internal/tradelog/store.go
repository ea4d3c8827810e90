package tradelog

import (
	"context"

	"github.com/minghuang/etfdca/internal/contracts"
)

// Store is the persistence boundary for the trade log. Implementations keep
// entries in chronological order and only ever append.
type Store interface {
	// Load returns the full log history, oldest first.
	Load(ctx context.Context) ([]contracts.TradeLogEntry, error)
	// Append writes one new entry at the end of the log.
	Append(ctx context.Context, entry *contracts.TradeLogEntry) error
}

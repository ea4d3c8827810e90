// Package broker is the order submission boundary. The daily run hands it a
// finished order batch; nothing downstream of a broker feeds back into the
// engines.
package broker

import (
	"context"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
)

// Broker submits one day's order batch and returns a short human-readable
// status line for the daily report.
type Broker interface {
	Name() string
	PlaceOrders(ctx context.Context, date time.Time, orders []contracts.Order) (string, error)
}

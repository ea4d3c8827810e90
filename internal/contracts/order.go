package contracts

// OrderSide represents buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderReason records which allocation step produced an order line.
type OrderReason string

const (
	// ReasonTargetFill marks shares bought in the first proportional pass.
	ReasonTargetFill OrderReason = "target-fill"
	// ReasonTargetPlusLeftover marks a target-fill line that also absorbed
	// part of the leftover pool. The leftover increment is merged into the
	// existing line; a ticker never appears twice in one batch.
	ReasonTargetPlusLeftover OrderReason = "target-fill+leftover"
	// ReasonEqualInit marks lines from the one-shot equal-weight bootstrap.
	ReasonEqualInit OrderReason = "equal-weight-init"
	// ReasonRebalance marks lines from the rebalance planner.
	ReasonRebalance OrderReason = "rebalance"
)

// Order is one line of an order batch. Quantities are positive; the side
// carries the direction. Prices and fees are in USD.
type Order struct {
	Ticker   string      `json:"ticker"`
	Side     OrderSide   `json:"side"`
	Shares   float64     `json:"shares"`
	PriceUSD float64     `json:"price_usd"`
	GrossUSD float64     `json:"gross_usd"`
	FeeUSD   float64     `json:"fee_usd"`
	Reason   OrderReason `json:"reason"`
}

// AllocationResult is the output of one allocation batch.
type AllocationResult struct {
	Orders      []Order `json:"orders"`
	TotalFeeUSD float64 `json:"total_fee_usd"`
	// ResidualCNY is the unspendable remainder (smaller than one fractional
	// step per ticker) converted back to home currency. It is reported and
	// carried as the cash pool, never silently dropped.
	ResidualCNY float64 `json:"residual_cny"`
}

// TotalGrossUSD sums the gross amount of all orders in the batch.
func (r *AllocationResult) TotalGrossUSD() float64 {
	var total float64
	for _, o := range r.Orders {
		total += o.GrossUSD
	}
	return total
}

package contracts

// Holdings maps ticker to share count. Read-only input to the allocation
// engine, used only to compute current portfolio weights.
type Holdings map[string]float64

// ValueUSD computes the current portfolio value in USD at the given prices.
// Tickers without a price contribute nothing; the allocation engine performs
// its own strict price validation before relying on weights.
func (h Holdings) ValueUSD(prices map[string]float64) float64 {
	var total float64
	for ticker, shares := range h {
		total += shares * prices[ticker]
	}
	return total
}

// Package allocation turns a notional CNY buy amount into a concrete,
// fee-aware order list. The split is a two-pass procedure: a proportional
// draft over the most underweight tickers, then redistribution of the
// down-rounding leftover into the same order lines.
package allocation

import (
	"sort"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/strategyconfig"
	"github.com/minghuang/etfdca/pkg/logger"
)

// Engine computes buy orders for the configured portfolio.
type Engine struct {
	cfg *strategyconfig.Config
	log *logger.Logger
}

// New creates an allocation engine.
func New(cfg *strategyconfig.Config, log *logger.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log.WithField("component", "allocation"),
	}
}

// Allocate splits notionalCNY across the portfolio. Holdings are used only
// to compute current weights; prices and FX come from the snapshot. A zero
// or negative notional is a no-op. A missing price or FX rate is a hard
// error, never silently skipped.
func (e *Engine) Allocate(notionalCNY float64, snap *contracts.MarketSnapshot, holdings contracts.Holdings) (*contracts.AllocationResult, error) {
	if notionalCNY <= 0 {
		return &contracts.AllocationResult{}, nil
	}
	if snap == nil || snap.FXUsdCny <= 0 {
		return nil, &contracts.MissingDataError{Field: "fx rate"}
	}
	fx := snap.FXUsdCny

	tickers := e.cfg.Symbols.Portfolio
	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		p, ok := snap.Price(t)
		if !ok || p <= 0 {
			return nil, &contracts.MissingDataError{Field: "price", Ticker: t}
		}
		prices[t] = p
	}

	scores := e.underScores(tickers, prices, holdings, fx)
	suggested, top1, top2 := splitNotional(notionalCNY, scores, tickers)

	drafts, leftoverUSD := e.draftOrders(suggested, prices, fx)
	leftoverUSD = e.redistribute(drafts, top1, top2, leftoverUSD)

	result := &contracts.AllocationResult{
		ResidualCNY: leftoverUSD * fx,
	}
	for _, t := range tickers {
		d := drafts[t]
		if d == nil || d.Shares <= 0 {
			continue
		}
		result.Orders = append(result.Orders, *d)
		result.TotalFeeUSD += d.FeeUSD
	}

	e.log.WithFields(map[string]interface{}{
		"notional_cny": notionalCNY,
		"orders":       len(result.Orders),
		"total_fee":    result.TotalFeeUSD,
		"residual_cny": result.ResidualCNY,
	}).Debug("Allocation computed")

	return result, nil
}

// AffordableShares returns the largest share count at price that fits a USD
// budget under the configured share policy and buy fee schedule.
func (e *Engine) AffordableShares(budgetUSD, price float64) (shares, fee float64) {
	exec := e.cfg.Execution
	return maxAffordableShares(budgetUSD, price, exec.AllowFractionalShares, exec.FractionalStep, e.cfg.Fees.Buy)
}

// SellableShares down-rounds a USD amount to the share policy and prices the
// fee on the sell schedule. Selling is not budget-constrained by the fee.
func (e *Engine) SellableShares(amountUSD, price float64) (shares, fee float64) {
	if amountUSD <= 0 || price <= 0 {
		return 0, 0
	}
	step := e.cfg.Execution.FractionalStep
	if !e.cfg.Execution.AllowFractionalShares || step <= 0 {
		step = 1
	}
	shares = roundDownTo(amountUSD/price, step)
	if shares <= 0 {
		return 0, 0
	}
	return shares, feeFor(e.cfg.Fees.Sell, shares*price)
}

// underScores computes each ticker's allocation priority: the shortfall
// below its target weight, zeroed once the weight reaches the ceiling
// guardrail. An empty portfolio scores every ticker at full target.
func (e *Engine) underScores(tickers []string, prices map[string]float64, holdings contracts.Holdings, fx float64) map[string]float64 {
	target := e.cfg.EqualTargetWeight()
	ceiling := e.cfg.Params.WeightCeilingGuardrail

	var portValueCNY float64
	valueCNY := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		v := holdings[t] * prices[t] * fx
		valueCNY[t] = v
		portValueCNY += v
	}

	scores := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		var weight float64
		if portValueCNY > 0 {
			weight = valueCNY[t] / portValueCNY
		}
		switch {
		case weight >= ceiling:
			scores[t] = 0
		case target > weight:
			scores[t] = target - weight
		default:
			scores[t] = 0
		}
	}
	return scores
}

// splitNotional produces the per-ticker CNY suggestion. When every score is
// zero the notional is split equally; otherwise the two most underweight
// tickers share it in proportion to their scores. Ties break on ticker name
// ascending so results are reproducible.
func splitNotional(notionalCNY float64, scores map[string]float64, tickers []string) (suggested map[string]float64, top1, top2 string) {
	ranked := make([]string, len(tickers))
	copy(ranked, tickers)
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	suggested = make(map[string]float64, len(tickers))

	var scoreSum float64
	for _, s := range scores {
		scoreSum += s
	}
	if scoreSum == 0 {
		for _, t := range tickers {
			suggested[t] = notionalCNY / float64(len(tickers))
		}
		// Leftover redistribution still needs a deterministic target.
		return suggested, ranked[0], ""
	}

	top1 = ranked[0]
	top1Score := scores[top1]
	var top2Score float64
	if len(ranked) > 1 {
		top2Score = scores[ranked[1]]
	}
	if top2Score == 0 {
		suggested[top1] = notionalCNY
		return suggested, top1, ""
	}

	top2 = ranked[1]
	denom := top1Score + top2Score
	suggested[top1] = notionalCNY * top1Score / denom
	suggested[top2] = notionalCNY * top2Score / denom
	return suggested, top1, top2
}

// draftOrders converts CNY suggestions into down-rounded share counts. The
// unspent USD from rounding accumulates into a single leftover pool.
func (e *Engine) draftOrders(suggested map[string]float64, prices map[string]float64, fx float64) (map[string]*contracts.Order, float64) {
	exec := e.cfg.Execution
	buyFees := e.cfg.Fees.Buy

	drafts := make(map[string]*contracts.Order, len(suggested))
	var leftoverUSD float64

	for t, cny := range suggested {
		if cny <= 0 {
			continue
		}
		budgetUSD := cny / fx
		shares, fee := maxAffordableShares(budgetUSD, prices[t], exec.AllowFractionalShares, exec.FractionalStep, buyFees)
		gross := shares * prices[t]
		leftoverUSD += budgetUSD - gross - fee

		drafts[t] = &contracts.Order{
			Ticker:   t,
			Side:     contracts.OrderSideBuy,
			Shares:   shares,
			PriceUSD: prices[t],
			GrossUSD: gross,
			FeeUSD:   fee,
			Reason:   contracts.ReasonTargetFill,
		}
	}
	return drafts, leftoverUSD
}

// redistribute applies the leftover pool to top1 then top2, merging extra
// shares into the existing order lines. The fee is recomputed on the merged
// gross so the minimum fee is never charged twice for one ticker. Returns
// the pool that remains after both passes.
func (e *Engine) redistribute(drafts map[string]*contracts.Order, top1, top2 string, leftoverUSD float64) float64 {
	leftoverUSD = e.incShares(drafts, top1, leftoverUSD)
	leftoverUSD = e.incShares(drafts, top2, leftoverUSD)
	return leftoverUSD
}

func (e *Engine) incShares(drafts map[string]*contracts.Order, ticker string, poolUSD float64) float64 {
	if ticker == "" || poolUSD <= 0 {
		return poolUSD
	}
	d := drafts[ticker]
	if d == nil || d.Shares <= 0 {
		return poolUSD
	}
	exec := e.cfg.Execution
	buyFees := e.cfg.Fees.Buy

	step := exec.FractionalStep
	if !exec.AllowFractionalShares {
		step = 1
	}
	oldCost := d.GrossUSD + d.FeeUSD

	add := roundDownTo(poolUSD/d.PriceUSD, step)
	for add > 0 {
		newShares := d.Shares + add
		newGross := newShares * d.PriceUSD
		newFee := feeFor(buyFees, newGross)
		inc := newGross + newFee - oldCost
		if inc <= poolUSD+1e-9 {
			d.Shares = newShares
			d.GrossUSD = newGross
			d.FeeUSD = newFee
			d.Reason = contracts.ReasonTargetPlusLeftover
			return poolUSD - inc
		}
		add = roundDownTo(add-step, step)
	}
	return poolUSD
}

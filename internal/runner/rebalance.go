package runner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/holdings"
)

// holdBandRatio: positions within 0.5% of their target slice are left alone.
const holdBandRatio = 0.005

// RebalanceLine is one suggested rebalance action. Plan only: nothing is
// submitted and no state changes.
type RebalanceLine struct {
	Ticker      string  `json:"ticker"`
	Action      string  `json:"action"` // BUY / SELL / HOLD
	Shares      float64 `json:"shares"`
	PriceUSD    float64 `json:"price_usd"`
	DiffCNY     float64 `json:"diff_cny"`
	EstFeeUSD   float64 `json:"est_fee_usd"`
	CurrentCNY  float64 `json:"current_value_cny"`
	TargetCNY   float64 `json:"target_value_cny"`
}

// RebalancePlan is the annual back-to-target suggestion sheet.
type RebalancePlan struct {
	Date          string          `json:"date"`
	TotalValueCNY float64         `json:"total_value_cny"`
	TargetEachCNY float64         `json:"target_each_cny"`
	Lines         []RebalanceLine `json:"lines"`
}

// PlanRebalance computes, per ticker, the trade that would bring the
// position back to its target weight of the current portfolio value. The
// plan is written to a dated JSON file for manual review.
func (r *Runner) PlanRebalance(ctx context.Context, asof *time.Time) (*RebalancePlan, error) {
	date := r.resolveAsOf(asof)

	snap, err := r.snapshots.Build(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("snapshot build failed: %w", err)
	}
	hold, err := holdings.Load(holdingsPath(r.dataDir))
	if err != nil {
		return nil, err
	}

	fx := snap.FXUsdCny
	tickers := r.cfg.Symbols.Portfolio

	var totalCNY float64
	valueCNY := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		price, ok := snap.Price(t)
		if !ok {
			return nil, &contracts.MissingDataError{Field: "price", Ticker: t}
		}
		v := hold[t] * price * fx
		valueCNY[t] = v
		totalCNY += v
	}

	plan := &RebalancePlan{
		Date:          date.Format("2006-01-02"),
		TotalValueCNY: totalCNY,
		TargetEachCNY: totalCNY * r.cfg.EqualTargetWeight(),
	}
	holdBand := plan.TargetEachCNY * holdBandRatio

	for _, t := range tickers {
		price, _ := snap.Price(t)
		diff := plan.TargetEachCNY - valueCNY[t]

		line := RebalanceLine{
			Ticker:     t,
			Action:     "HOLD",
			PriceUSD:   price,
			DiffCNY:    diff,
			CurrentCNY: valueCNY[t],
			TargetCNY:  plan.TargetEachCNY,
		}
		if math.Abs(diff) >= holdBand {
			amountUSD := math.Abs(diff) / fx
			var shares, fee float64
			if diff > 0 {
				shares, fee = r.alloc.AffordableShares(amountUSD, price)
			} else {
				shares, fee = r.alloc.SellableShares(amountUSD, price)
			}
			if shares > 0 {
				line.Shares = shares
				line.EstFeeUSD = fee
				if diff > 0 {
					line.Action = string(contracts.OrderSideBuy)
				} else {
					line.Action = string(contracts.OrderSideSell)
				}
			}
		}
		plan.Lines = append(plan.Lines, line)
	}

	if err := r.writeJSON(fmt.Sprintf("rebalance_%s.json", plan.Date), plan); err != nil {
		return nil, err
	}

	r.log.WithFields(map[string]interface{}{
		"date":            plan.Date,
		"total_value_cny": totalCNY,
	}).Info("Rebalance plan written")
	return plan, nil
}

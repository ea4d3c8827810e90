package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
	"github.com/minghuang/etfdca/internal/holdings"
)

// BootstrapResult is the one-shot equal-weight initial buy sheet.
type BootstrapResult struct {
	Date            string            `json:"date"`
	FXUsdCny        float64           `json:"fx_usd_cny"`
	InitialCNY      float64           `json:"initial_invest_cny"`
	Orders          []contracts.Order `json:"orders"`
	TotalFeeUSD     float64           `json:"total_fee_usd"`
	ResidualUSD     float64           `json:"residual_usd"`
	HoldingsWritten bool              `json:"holdings_written"`
}

// RunBootstrap builds the equal-weight initial order sheet: the configured
// initial amount split evenly across the portfolio, each slice down-rounded
// to the share policy. With seedHoldings true it also writes the resulting
// share counts as the starting holdings file.
func (r *Runner) RunBootstrap(ctx context.Context, asof *time.Time, seedHoldings bool) (*BootstrapResult, error) {
	date := r.resolveAsOf(asof)

	investCNY := r.cfg.Bootstrap.InitialInvestCNY
	if investCNY <= 0 {
		return nil, fmt.Errorf("bootstrap.initial_invest_cny must be positive, got %v", investCNY)
	}

	snap, err := r.snapshots.Build(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("snapshot build failed: %w", err)
	}

	tickers := r.cfg.Symbols.Portfolio
	perUSD := investCNY / snap.FXUsdCny / float64(len(tickers))

	result := &BootstrapResult{
		Date:       date.Format("2006-01-02"),
		FXUsdCny:   snap.FXUsdCny,
		InitialCNY: investCNY,
	}

	seeded := make(contracts.Holdings, len(tickers))
	for _, t := range tickers {
		price, ok := snap.Price(t)
		if !ok {
			return nil, &contracts.MissingDataError{Field: "price", Ticker: t}
		}
		shares, fee := r.alloc.AffordableShares(perUSD, price)
		result.Orders = append(result.Orders, contracts.Order{
			Ticker:   t,
			Side:     contracts.OrderSideBuy,
			Shares:   shares,
			PriceUSD: price,
			GrossUSD: shares * price,
			FeeUSD:   fee,
			Reason:   contracts.ReasonEqualInit,
		})
		result.TotalFeeUSD += fee
		result.ResidualUSD += perUSD - shares*price - fee
		seeded[t] = shares
	}

	// With fractional shares the residual tops up the most under-spent
	// ticker, keeping the weights closest to equal.
	if r.cfg.Execution.AllowFractionalShares && result.ResidualUSD > 0 {
		r.topUpUnderSpent(result, seeded)
	}

	if err := r.writeJSON(fmt.Sprintf("orders_init_%s.json", result.Date), result); err != nil {
		return nil, err
	}
	if seedHoldings {
		if err := holdings.Save(holdingsPath(r.dataDir), seeded); err != nil {
			return nil, err
		}
		result.HoldingsWritten = true
	}

	r.log.WithFields(map[string]interface{}{
		"date":       result.Date,
		"invest_cny": investCNY,
		"orders":     len(result.Orders),
	}).Info("Bootstrap order sheet written")
	return result, nil
}

func (r *Runner) topUpUnderSpent(result *BootstrapResult, seeded contracts.Holdings) {
	best := -1
	for i, o := range result.Orders {
		if o.Shares <= 0 || o.PriceUSD <= 0 {
			continue
		}
		if best < 0 || o.GrossUSD+o.FeeUSD < result.Orders[best].GrossUSD+result.Orders[best].FeeUSD {
			best = i
		}
	}
	if best < 0 {
		return
	}

	o := &result.Orders[best]
	budget := o.GrossUSD + o.FeeUSD + result.ResidualUSD
	shares, fee := r.alloc.AffordableShares(budget, o.PriceUSD)
	if shares <= o.Shares {
		return
	}

	result.TotalFeeUSD += fee - o.FeeUSD
	result.ResidualUSD = budget - shares*o.PriceUSD - fee
	o.Shares = shares
	o.GrossUSD = shares * o.PriceUSD
	o.FeeUSD = fee
	seeded[o.Ticker] = shares
}

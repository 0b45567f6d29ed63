// Package risk sizes positions from a fixed fraction of equity at risk.
package risk

import (
	"errors"
	"math"

	"github.com/rustyeddy/tradesim/market"
)

var ErrNoStopDistance = errors.New("risk: entry and stop must differ")

type Inputs struct {
	Equity     float64 // in the asset's currency
	RiskPct    float64 // 0.005
	EntryPrice float64
	StopPrice  float64
	Multiplier float64 // contract size, 0 means 1
}

type Result struct {
	Units      market.Size // always non-negative
	StopDist   float64
	RiskAmount float64
}

// Calculate returns the whole number of units that loses RiskPct of Equity
// when the stop is hit.
func Calculate(in Inputs) (Result, error) {
	dist := math.Abs(in.EntryPrice - in.StopPrice)
	if dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return Result{}, ErrNoStopDistance
	}
	mult := in.Multiplier
	if mult == 0 {
		mult = 1
	}

	riskAmt := in.Equity * in.RiskPct
	units := math.Floor(riskAmt / (dist * mult))
	if units < 0 || math.IsNaN(units) {
		units = 0
	}
	return Result{
		Units:      market.SizeFromFloat(units),
		StopDist:   dist,
		RiskAmount: riskAmt,
	}, nil
}

// RR is the reward to risk ratio of a planned trade.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// CalcQty returns the raw quantity that risks maxRisk of equity when the
// stop sits stopLossPct away from price. The result is not normalized.
func CalcQty(equity, maxRisk, stopLossPct, price float64) float64 {
	// Dollar risk per trade
	riskAmt := equity * maxRisk
	// Stop‑loss distance in dollars
	slDist := price * stopLossPct
	if slDist <= 0 || riskAmt <= 0 {
		return 0
	}
	return riskAmt / slDist
}

// Normalize rounds raw to the nearest multiple of step and clamps it to
// [minQty, maxQty]. A value that rounds to zero stays zero so the caller
// can skip the trade; maxQty <= 0 means uncapped.
func Normalize(raw, step, minQty, maxQty float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	qty := decimal.NewFromFloat(raw)
	if step > 0 {
		s := decimal.NewFromFloat(step)
		qty = qty.Div(s).Round(0).Mul(s)
	}
	if qty.Sign() <= 0 {
		return 0
	}
	if minQty > 0 {
		qty = decimal.Max(qty, decimal.NewFromFloat(minQty))
	}
	if maxQty > 0 {
		qty = decimal.Min(qty, decimal.NewFromFloat(maxQty))
	}
	f, _ := qty.Float64()
	return f
}

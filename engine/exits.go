package engine

import (
	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/levels"
	"github.com/evdnx/gotsgrid/types"
)

// Exit reasons, also used as metric labels.
const (
	ReasonStopLoss     = "stop_loss"
	ReasonTakeProfit   = "take_profit"
	ReasonBreakEven    = "break_even"
	ReasonTrailingStop = "trailing_stop"
)

type exitSignal struct {
	reason string
	level  float64
	ref    float64
}

// exitDue checks the basket's levels against the bar extremes in fixed
// priority: hard stop, take profit, break-even stop, trailing stop. The
// first match wins, so a gap bar through both stop and take exits at the stop.
func exitDue(b *basket.Basket, bar types.Bar) (exitSignal, bool) {
	p := b.Protection
	dir := b.Side
	checks := []struct {
		armed  bool
		level  float64
		kind   levels.Kind
		reason string
	}{
		{!p.BreakEvenActive, p.Stop, levels.StopKind, ReasonStopLoss},
		{true, p.Take, levels.TakeKind, ReasonTakeProfit},
		{p.BreakEvenActive, p.Stop, levels.StopKind, ReasonBreakEven},
		{p.TrailingActive, p.TrailingStop, levels.StopKind, ReasonTrailingStop},
	}
	for _, c := range checks {
		if c.armed && levels.Crossed(c.level, dir, bar, c.kind) {
			return exitSignal{
				reason: c.reason,
				level:  c.level,
				ref:    levels.FillReference(c.level, dir, bar, c.kind),
			}, true
		}
	}
	return exitSignal{}, false
}

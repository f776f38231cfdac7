// Package grid decides whether an open basket may take another slice.
package grid

import (
	"fmt"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/types"
)

type Mode string

const (
	AverageDown Mode = config.GridAverageDown
	AverageUp   Mode = config.GridAverageUp
	None        Mode = config.GridNone
)

// Policy is stateless; it must be asked again every tick with the ledger's
// current snapshot so a level that already produced a slice cannot fire twice.
type Policy struct {
	Mode             Mode
	GridMultiplier   float64
	MaxAverageOrders int
}

func NewPolicy(cfg config.StrategyConfig) Policy {
	return Policy{
		Mode:             Mode(cfg.GridMode),
		GridMultiplier:   cfg.GridMultiplier,
		MaxAverageOrders: cfg.MaxAverageOrders,
	}
}

// Decision is the outcome of one evaluation. Level is the price that had to
// be reached, for logging.
type Decision struct {
	Add    bool
	Level  float64
	Reason string
}

// Distance is the volatility-scaled spacing between slices.
func (p Policy) Distance(atr float64) float64 {
	return p.GridMultiplier * atr
}

// ShouldAdd evaluates the basket against the current price and ATR.
func (p Policy) ShouldAdd(snap basket.Snapshot, price, atr float64) Decision {
	if p.Mode == None || p.Mode == "" {
		return Decision{Reason: "grid_disabled"}
	}
	if snap.Slices == 0 {
		return Decision{Reason: "empty_basket"}
	}
	if snap.Slices >= p.MaxAverageOrders {
		return Decision{Reason: "max_average_orders"}
	}
	d := p.Distance(atr)
	if !(d > 0) {
		return Decision{Reason: "atr_not_formed"}
	}

	// below: fire when price falls under the level; otherwise when it rises above.
	var level float64
	var below bool
	switch {
	case p.Mode == AverageDown && snap.Side == types.Long:
		level, below = snap.Adverse-d, true
	case p.Mode == AverageDown && snap.Side == types.Short:
		level, below = snap.Adverse+d, false
	case p.Mode == AverageUp && snap.Side == types.Long:
		level, below = snap.Favorable+d, false
	case p.Mode == AverageUp && snap.Side == types.Short:
		level, below = snap.Favorable-d, true
	default:
		return Decision{Reason: fmt.Sprintf("unknown mode %q", p.Mode)}
	}

	if (below && price <= level) || (!below && price >= level) {
		return Decision{Add: true, Level: level, Reason: string(p.Mode)}
	}
	return Decision{Level: level, Reason: "spacing_not_reached"}
}

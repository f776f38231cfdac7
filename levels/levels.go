// Package levels computes and relocates protective levels. All functions are
// pure: they take a basket.Protection value and return the updated one.
package levels

import (
	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/types"
)

// Config holds the distances, all in price units. Zero disables a level.
type Config struct {
	StopDistance     float64
	TakeDistance     float64
	BreakEvenTrigger float64
	BreakEvenOffset  float64
	TrailingStart    float64
	TrailingDistance float64
	TrailingStep     float64
}

func NewConfig(cfg config.StrategyConfig) Config {
	return Config{
		StopDistance:     cfg.StopDistance,
		TakeDistance:     cfg.TakeDistance,
		BreakEvenTrigger: cfg.BreakEvenTrigger,
		BreakEvenOffset:  cfg.BreakEvenOffset,
		TrailingStart:    cfg.TrailingStart,
		TrailingDistance: cfg.TrailingDistance,
		TrailingStep:     cfg.TrailingStep,
	}
}

// StopPrice is ref minus dist for a long, plus dist for a short; 0 if disabled.
func StopPrice(ref float64, dir types.Direction, dist float64) float64 {
	if dist <= 0 {
		return 0
	}
	return ref - dir.Sign()*dist
}

// TakePrice is ref plus dist for a long, minus dist for a short; 0 if disabled.
func TakePrice(ref float64, dir types.Direction, dist float64) float64 {
	if dist <= 0 {
		return 0
	}
	return ref + dir.Sign()*dist
}

// Seed returns fresh levels around the basket average. Break-even and
// trailing start disarmed.
func Seed(avg float64, dir types.Direction, cfg Config) basket.Protection {
	return basket.Protection{
		Stop: StopPrice(avg, dir, cfg.StopDistance),
		Take: TakePrice(avg, dir, cfg.TakeDistance),
	}
}

// profit is the favorable move from avg to price in price units.
func profit(avg, price float64, dir types.Direction) float64 {
	return (price - avg) * dir.Sign()
}

// tighter reports whether candidate is a better (closer to price) stop than
// current. An unset current stop is beaten by anything.
func tighter(candidate, current float64, dir types.Direction) bool {
	if current == 0 {
		return true
	}
	if dir == types.Long {
		return candidate > current
	}
	return candidate < current
}

// BreakEven arms the break-even stop once the open profit reaches
// cfg.BreakEvenTrigger. The stop only ever moves toward the position; when
// the current stop is already better the break-even stays unarmed.
func BreakEven(p basket.Protection, avg, price float64, dir types.Direction, cfg Config) basket.Protection {
	if cfg.BreakEvenTrigger <= 0 || p.BreakEvenActive {
		return p
	}
	if profit(avg, price, dir) < cfg.BreakEvenTrigger {
		return p
	}
	level := avg + dir.Sign()*cfg.BreakEvenOffset
	switch {
	case tighter(level, p.Stop, dir):
		p.Stop = level
		p.BreakEvenActive = true
	case p.Stop == level:
		p.BreakEvenActive = true
	}
	return p
}

// Reseed re-centres stop and take on a new basket average after a slice was
// added or the basket was rebuilt. An armed break-even stop and an active
// trailing stop survive: the stop is never loosened past the armed level.
func Reseed(old basket.Protection, avg float64, dir types.Direction, cfg Config) basket.Protection {
	p := Seed(avg, dir, cfg)
	if old.BreakEvenActive && old.Stop > 0 && (old.Stop == p.Stop || tighter(old.Stop, p.Stop, dir)) {
		p.Stop = old.Stop
		p.BreakEvenActive = true
	}
	if old.TrailingActive {
		p.TrailingActive = true
		p.TrailingStop = old.TrailingStop
		p.TrailingAnchor = old.TrailingAnchor
	}
	return p
}

// Trail activates the trailing stop once the open profit reaches
// cfg.TrailingStart, then follows price in increments of at least
// cfg.TrailingStep. The trailing stop never moves against the position.
func Trail(p basket.Protection, avg, price float64, dir types.Direction, cfg Config) basket.Protection {
	if cfg.TrailingDistance <= 0 {
		return p
	}
	candidate := price - dir.Sign()*cfg.TrailingDistance
	if !p.TrailingActive {
		if profit(avg, price, dir) < cfg.TrailingStart {
			return p
		}
		p.TrailingActive = true
		p.TrailingStop = candidate
		p.TrailingAnchor = price
		return p
	}
	if profit(p.TrailingAnchor, price, dir) < cfg.TrailingStep {
		return p
	}
	if tighter(candidate, p.TrailingStop, dir) {
		p.TrailingStop = candidate
		p.TrailingAnchor = price
	}
	return p
}

// Kind tells the crossing helpers which way a level is hit.
type Kind int

const (
	// StopKind levels are hit by adverse moves (stop, break-even, trailing).
	StopKind Kind = iota
	// TakeKind levels are hit by favorable moves.
	TakeKind
)

// Crossed reports whether the bar's extreme touched level. A zero level is
// never crossed.
func Crossed(level float64, dir types.Direction, bar types.Bar, kind Kind) bool {
	if level <= 0 {
		return false
	}
	downward := (dir == types.Long) == (kind == StopKind)
	if downward {
		return bar.Low <= level
	}
	return bar.High >= level
}

// FillReference is the price a crossed level is assumed to execute at: the
// level itself, or the open when the bar gapped through it.
func FillReference(level float64, dir types.Direction, bar types.Bar, kind Kind) float64 {
	if bar.Open <= 0 {
		return level
	}
	downward := (dir == types.Long) == (kind == StopKind)
	if downward && bar.Open < level {
		return bar.Open
	}
	if !downward && bar.Open > level {
		return bar.Open
	}
	return level
}

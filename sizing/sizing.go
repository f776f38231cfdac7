// Package sizing decides how large the next order is: the first slice of a
// basket from the escalation state, and each averaging slice from the first.
package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/risk"
)

// ErrSizingUnderflow means the normalized volume is zero; skip the tick.
var ErrSizingUnderflow = errors.New("sizing underflow")

type Mode string

const (
	Constant  Mode = config.SizingConstant
	Linear    Mode = config.SizingLinear
	Multiply  Mode = config.SizingMultiply
	Fibonacci Mode = config.SizingFibonacci
)

// State is the escalation state of one basket side. It is a value: Adjust
// returns the successor instead of mutating.
type State struct {
	CurrentVolume  float64 // first-slice size of the next basket
	PreviousVolume float64 // fibonacci only
	Step           int     // consecutive losing escalations since the last win
	LastResult     float64 // realized profit of the most recently closed basket
}

// Policy turns config into sizing decisions.
type Policy struct {
	Mode                 Mode
	BaseVolume           float64
	MaxRiskPerTrade      float64
	StopDistance         float64
	MartingaleMultiplier float64
	MaxSteps             int
	AveragingMultiplier  float64
	LotIncrement         float64
	VolumeStep           float64
	MinVolume            float64
	MaxVolume            float64
}

// NewPolicy copies the sizing fields out of cfg.
func NewPolicy(cfg config.StrategyConfig) Policy {
	return Policy{
		Mode:                 Mode(cfg.SizingMode),
		BaseVolume:           cfg.BaseVolume,
		MaxRiskPerTrade:      cfg.MaxRiskPerTrade,
		StopDistance:         cfg.StopDistance,
		MartingaleMultiplier: cfg.MartingaleMultiplier,
		MaxSteps:             cfg.MaxSteps,
		AveragingMultiplier:  cfg.AveragingMultiplier,
		LotIncrement:         cfg.LotIncrement,
		VolumeStep:           cfg.VolumeStep,
		MinVolume:            cfg.MinVolume,
		MaxVolume:            cfg.MaxVolume,
	}
}

// Initial is the state before any basket has closed.
func (p Policy) Initial() State {
	base := p.Normalize(p.BaseVolume)
	return State{CurrentVolume: base, PreviousVolume: base}
}

// Normalize applies the instrument's step and bounds.
func (p Policy) Normalize(raw float64) float64 {
	return risk.Normalize(raw, p.VolumeStep, p.MinVolume, p.MaxVolume)
}

// Adjust folds the realized result of a closed basket into s. Any
// non-negative result resets to the base volume.
func (p Policy) Adjust(s State, result float64) State {
	next := State{LastResult: result}
	if result >= 0 || p.Mode == Constant {
		base := p.Normalize(p.BaseVolume)
		next.CurrentVolume, next.PreviousVolume = base, base
		return next
	}
	if p.MaxSteps > 0 && s.Step >= p.MaxSteps {
		next.Step = s.Step
		next.CurrentVolume, next.PreviousVolume = s.CurrentVolume, s.PreviousVolume
		return next
	}
	next.Step = s.Step + 1
	next.PreviousVolume = s.CurrentVolume
	switch p.Mode {
	case Linear:
		next.CurrentVolume = p.Normalize(p.BaseVolume * float64(next.Step+1))
	case Multiply:
		next.CurrentVolume = p.Normalize(s.CurrentVolume * p.MartingaleMultiplier)
	case Fibonacci:
		next.CurrentVolume = p.Normalize(s.CurrentVolume + s.PreviousVolume)
	default:
		next.CurrentVolume = s.CurrentVolume
	}
	return next
}

// EntryVolume sizes the first slice of a new basket. Constant mode
// recomputes the base from equity every time a basket starts from flat.
func (p Policy) EntryVolume(s State, equity, price float64) (float64, error) {
	raw := s.CurrentVolume
	if p.Mode == Constant {
		raw = p.BaseVolume
		if p.MaxRiskPerTrade > 0 && p.StopDistance > 0 && price > 0 {
			raw = risk.CalcQty(equity, p.MaxRiskPerTrade, p.StopDistance/price, price)
		}
	}
	v := p.Normalize(raw)
	if v <= 0 {
		return 0, fmt.Errorf("entry volume %v: %w", raw, ErrSizingUnderflow)
	}
	return v, nil
}

// SliceVolume sizes the averaging slice that would become slice number
// index (the first slice has index 0) of a basket opened with entry volume.
func (p Policy) SliceVolume(entry float64, index int) (float64, error) {
	mult := p.AveragingMultiplier
	if mult <= 0 {
		mult = 1
	}
	raw := entry*math.Pow(mult, float64(index)) + p.LotIncrement*float64(index)
	v := p.Normalize(raw)
	if v <= 0 {
		return 0, fmt.Errorf("slice %d volume %v: %w", index, raw, ErrSizingUnderflow)
	}
	return v, nil
}

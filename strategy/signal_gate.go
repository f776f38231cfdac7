package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/evdnx/goti"
	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/engine"
	"github.com/evdnx/gotsgrid/types"
)

// ErrInvalidBar is returned for bars that cannot be fed to the indicators.
var ErrInvalidBar = errors.New("invalid bar")

// SuiteFactory builds the indicator suite for one instrument.
type SuiteFactory func() (*goti.IndicatorSuite, error)

// DefaultSuiteFactory configures goti with the oscillator bands the other
// evdnx strategies trade with and the ATSO period from cfg.
func DefaultSuiteFactory(cfg config.StrategyConfig) SuiteFactory {
	return func() (*goti.IndicatorSuite, error) {
		ic := goti.DefaultConfig()
		ic.RSIOverbought = 70
		ic.RSIOversold = 30
		ic.MFIOverbought = 80
		ic.MFIOversold = 20
		ic.VWAOStrongTrend = 70
		ic.ATSEMAperiod = cfg.ATSEMAperiod
		return goti.NewIndicatorSuiteWithConfig(ic)
	}
}

// SignalGate turns bars into engine readings: a directional trigger from the
// HMA crossover (with a price-trend fallback) and an ATR for grid spacing.
type SignalGate struct {
	Suite  *goti.IndicatorSuite
	warmup int
	bars   int
	prices *priceBuffer
	atr    *goti.AverageTrueRange
}

// NewSignalGate validates cfg and builds the suite through factory; a nil
// factory uses DefaultSuiteFactory.
func NewSignalGate(cfg config.StrategyConfig, factory SuiteFactory) (*SignalGate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = DefaultSuiteFactory(cfg)
	}
	suite, err := factory()
	if err != nil {
		return nil, fmt.Errorf("strategy.NewSignalGate: suite: %w", err)
	}
	atr, err := goti.NewAverageTrueRangeWithParams(cfg.ATRPeriod, goti.WithCloseValidation(true))
	if err != nil {
		return nil, fmt.Errorf("strategy.NewSignalGate: atr: %w", err)
	}
	return &SignalGate{
		Suite:  suite,
		warmup: cfg.HMAPeriod,
		prices: newPriceBuffer(64),
		atr:    atr,
	}, nil
}

// Update feeds one closed bar and returns the reading for it. Nothing is
// formed until the HMA window is full and the ATR has period+1 candles.
func (g *SignalGate) Update(bar types.Bar) (engine.Reading, error) {
	for _, v := range []float64{bar.High, bar.Low, bar.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return engine.Reading{}, fmt.Errorf("%w: high=%v low=%v close=%v", ErrInvalidBar, bar.High, bar.Low, bar.Close)
		}
	}
	if bar.High < bar.Low || bar.Close < bar.Low || bar.Close > bar.High {
		return engine.Reading{}, fmt.Errorf("%w: close %v outside [%v, %v]", ErrInvalidBar, bar.Close, bar.Low, bar.High)
	}
	if err := g.atr.AddCandle(bar.High, bar.Low, bar.Close); err != nil {
		return engine.Reading{}, fmt.Errorf("strategy.SignalGate.Update: atr: %w", err)
	}
	if err := g.Suite.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
		return engine.Reading{}, fmt.Errorf("strategy.SignalGate.Update: suite: %w", err)
	}
	g.prices.Add(bar.Close)
	g.bars++

	var rd engine.Reading
	atr, err := g.atr.Calculate()
	if err != nil {
		// not enough candles for the ATR window yet
		return rd, nil
	}
	rd.ATR = atr
	if g.bars < g.warmup {
		return rd, nil
	}
	rd.Formed = true
	rd.Trigger = g.trigger()
	return rd, nil
}

// Bars is the number of bars accepted so far.
func (g *SignalGate) Bars() int { return g.bars }

func (g *SignalGate) trigger() types.Trigger {
	dir := g.prices.Direction()
	bull, bear := dir > 0, dir < 0
	if ok, err := g.Suite.GetHMA().IsBullishCrossover(); err == nil {
		bull = bull || ok
	}
	if ok, err := g.Suite.GetHMA().IsBearishCrossover(); err == nil {
		bear = bear || ok
	}
	switch {
	case bull && !bear:
		return types.TriggerLong
	case bear && !bull:
		return types.TriggerShort
	}
	return types.TriggerNone
}

package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/engine"
	"github.com/evdnx/gotsgrid/executor"
	"github.com/evdnx/gotsgrid/logger"
	"github.com/evdnx/gotsgrid/types"
)

// GridMartingale wires a SignalGate to a basket engine for one symbol.
type GridMartingale struct {
	Symbol string
	Gate   *SignalGate
	Engine *engine.Engine
	Log    logger.Logger
	last   time.Time
}

// NewGridMartingale builds the gate with the default goti suite and the
// engine with opts.
func NewGridMartingale(symbol string, cfg config.StrategyConfig,
	exec executor.Executor, log logger.Logger, opts ...engine.Option) (*GridMartingale, error) {
	return NewGridMartingaleWithSuite(symbol, cfg, exec, DefaultSuiteFactory(cfg), log, opts...)
}

func NewGridMartingaleWithSuite(symbol string, cfg config.StrategyConfig,
	exec executor.Executor, factory SuiteFactory, log logger.Logger,
	opts ...engine.Option) (*GridMartingale, error) {

	if log == nil {
		log = logger.Nop()
	}
	gate, err := NewSignalGate(cfg, factory)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(symbol, cfg, exec, log, opts...)
	if err != nil {
		return nil, err
	}
	return &GridMartingale{Symbol: symbol, Gate: gate, Engine: eng, Log: log}, nil
}

// ProcessBar runs one closed bar through the gate and the engine. Malformed
// bars are dropped; a bar the suite refuses still reaches the engine with an
// unformed reading so open baskets keep their exits.
func (s *GridMartingale) ProcessBar(ctx context.Context, bar types.Bar) engine.Report {
	var rd engine.Reading
	if bar.CloseTime.IsZero() || s.last.IsZero() || bar.CloseTime.After(s.last) {
		r, err := s.Gate.Update(bar)
		switch {
		case errors.Is(err, ErrInvalidBar):
			s.Log.Warn("bar_rejected", logger.String("symbol", s.Symbol), logger.Err(err))
			return engine.Report{Diagnostics: []error{err}}
		case err != nil:
			s.Log.Warn("suite_add_error", logger.String("symbol", s.Symbol), logger.Err(err))
		default:
			rd = r
		}
		if !bar.CloseTime.IsZero() {
			s.last = bar.CloseTime
		}
	}

	rep := s.Engine.OnBar(ctx, bar, rd)
	for _, ev := range rep.Events {
		s.Log.Info("engine_event",
			logger.String("symbol", s.Symbol),
			logger.String("kind", string(ev.Kind)),
			logger.String("side", string(ev.Side)),
			logger.String("reason", ev.Reason),
			logger.Float64("qty", ev.Volume),
			logger.Float64("price", ev.Price),
		)
	}
	return rep
}

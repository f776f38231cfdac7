// Package engine runs the per-bar basket state machine: exits first, then
// level relocation, then grid averaging or a fresh entry. It is driven by one
// goroutine per instrument; every order must be acknowledged before the
// ledger changes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/executor"
	"github.com/evdnx/gotsgrid/grid"
	"github.com/evdnx/gotsgrid/journal"
	"github.com/evdnx/gotsgrid/levels"
	"github.com/evdnx/gotsgrid/logger"
	"github.com/evdnx/gotsgrid/metrics"
	"github.com/evdnx/gotsgrid/sizing"
	"github.com/evdnx/gotsgrid/types"
)

var (
	ErrStaleIndicator         = errors.New("indicator not formed")
	ErrOrderRejected          = errors.New("order rejected")
	ErrOrderPending           = errors.New("order pending")
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")
	ErrOutOfOrderBar          = errors.New("bar out of order")
	ErrUnknownOrder           = errors.New("unknown order")
)

// Reading is what the signal gate hands the engine for one bar.
type Reading struct {
	Trigger types.Trigger
	ATR     float64
	Formed  bool
}

type EventKind string

const (
	EventEntry      EventKind = "entry"
	EventAverage    EventKind = "average"
	EventExit       EventKind = "exit"
	EventSubmitted  EventKind = "submitted"
	EventReconciled EventKind = "reconciled"
)

// Event is something the engine did during a call.
type Event struct {
	Kind    EventKind
	Side    types.Direction
	Reason  string
	Volume  float64
	Price   float64
	PnL     float64
	OrderID string
}

// Report is returned by every tick. Diagnostics are soft faults: the engine
// did nothing for the affected side and will re-evaluate on the next bar.
type Report struct {
	Events      []Event
	Diagnostics []error
}

// Err joins the diagnostics, nil when the tick was clean.
func (r Report) Err() error { return errors.Join(r.Diagnostics...) }

func (r *Report) event(e Event)    { r.Events = append(r.Events, e) }
func (r *Report) diagnose(e error) { r.Diagnostics = append(r.Diagnostics, e) }

// Recorder receives every closed basket.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Option func(*Engine)

// WithJournal records closed baskets to r.
func WithJournal(r Recorder) Option {
	return func(e *Engine) { e.journal = r }
}

// book is the per-side state: the open basket (nil when flat), its
// escalation state and the order in flight, if any.
type book struct {
	dir         types.Direction
	basket      *basket.Basket
	state       sizing.State
	entryVolume float64
	pending     *pendingOrder
}

type Engine struct {
	mu      sync.Mutex
	symbol  string
	cfg     config.StrategyConfig
	exec    executor.Executor
	log     logger.Logger
	sizing  sizing.Policy
	grid    grid.Policy
	levels  levels.Config
	journal Recorder

	books     map[types.Direction]*book
	lastClose time.Time
	barTime   time.Time
	realized  float64
}

// New validates cfg and returns an engine with both sides flat.
func New(symbol string, cfg config.StrategyConfig, exec executor.Executor, log logger.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, errors.New("engine.New: nil executor")
	}
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		symbol: symbol,
		cfg:    cfg,
		exec:   exec,
		log:    log,
		sizing: sizing.NewPolicy(cfg),
		grid:   grid.NewPolicy(cfg),
		levels: levels.NewConfig(cfg),
	}
	e.books = map[types.Direction]*book{
		types.Long:  {dir: types.Long, state: e.sizing.Initial()},
		types.Short: {dir: types.Short, state: e.sizing.Initial()},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

var sides = [...]types.Direction{types.Long, types.Short}

// OnBar evaluates one closed bar. Both sides are processed in a fixed order
// (long, then short) and the whole call is atomic with respect to other
// engine calls.
func (e *Engine) OnBar(ctx context.Context, bar types.Bar, rd Reading) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report
	if !bar.CloseTime.IsZero() {
		if !e.lastClose.IsZero() && !bar.CloseTime.After(e.lastClose) {
			rep.diagnose(fmt.Errorf("%w: close %s not after %s", ErrOutOfOrderBar,
				bar.CloseTime.Format(time.RFC3339), e.lastClose.Format(time.RFC3339)))
			e.log.Warn("bar_out_of_order", logger.String("symbol", e.symbol))
			return rep
		}
		e.lastClose = bar.CloseTime
	}
	e.barTime = bar.CloseTime

	e.reconcile(&rep)

	if !rd.Formed {
		rep.diagnose(ErrStaleIndicator)
	}
	for _, dir := range sides {
		e.tick(ctx, e.books[dir], bar, rd, &rep)
	}
	e.publish()
	return rep
}

func (e *Engine) tick(ctx context.Context, bk *book, bar types.Bar, rd Reading, rep *Report) {
	if bk.pending != nil {
		rep.diagnose(fmt.Errorf("%s %s order %s: %w", bk.dir, bk.pending.purpose, bk.pending.order.ID, ErrOrderPending))
		return
	}
	if bk.basket == nil {
		e.maybeEnter(ctx, bk, bar, rd, rep)
		return
	}

	if x, ok := exitDue(bk.basket, bar); ok {
		e.submit(ctx, bk, exitPurpose, bk.basket.TotalVolume(), x.ref, x.reason, rep)
		return
	}

	b := bk.basket
	avg := b.AveragePrice()
	b.Protection = levels.BreakEven(b.Protection, avg, bar.Close, b.Side, e.levels)
	b.Protection = levels.Trail(b.Protection, avg, bar.Close, b.Side, e.levels)

	if !rd.Formed {
		return
	}
	dec := e.grid.ShouldAdd(b.Snapshot(), bar.Close, rd.ATR)
	if !dec.Add {
		return
	}
	vol, err := e.sizing.SliceVolume(bk.entryVolume, b.Len())
	if err != nil {
		rep.diagnose(err)
		e.log.Warn("sizing_underflow", logger.String("side", string(bk.dir)), logger.Err(err))
		return
	}
	e.submit(ctx, bk, averagePurpose, vol, bar.Close, dec.Reason, rep)
}

func (e *Engine) maybeEnter(ctx context.Context, bk *book, bar types.Bar, rd Reading, rep *Report) {
	if !rd.Formed || !rd.Trigger.Matches(bk.dir) {
		return
	}
	if !e.cfg.AllowHedge {
		for _, other := range e.books {
			if other != bk && (other.basket != nil || other.pending != nil) {
				return
			}
		}
	}
	vol, err := e.sizing.EntryVolume(bk.state, e.exec.Equity(), bar.Close)
	if err != nil {
		rep.diagnose(err)
		e.log.Warn("sizing_underflow", logger.String("side", string(bk.dir)), logger.Err(err))
		return
	}
	e.submit(ctx, bk, entryPurpose, vol, bar.Close, rd.Trigger.String(), rep)
}

// Basket returns a snapshot of the open basket on dir.
func (e *Engine) Basket(dir types.Direction) (basket.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bk := e.books[dir]
	if bk == nil || bk.basket == nil {
		return basket.Snapshot{}, false
	}
	return bk.basket.Snapshot(), true
}

// State returns the escalation state of dir.
func (e *Engine) State(dir types.Direction) sizing.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books[dir].state
}

// Pending reports whether dir has an unacknowledged order.
func (e *Engine) Pending(dir types.Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books[dir].pending != nil
}

// Realized is the cumulative profit of every basket closed by this engine.
func (e *Engine) Realized() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realized
}

func (e *Engine) publish() {
	for _, dir := range sides {
		bk := e.books[dir]
		n := 0
		if bk.basket != nil {
			n = bk.basket.Len()
		}
		metrics.BasketsOpen.WithLabelValues(e.symbol, string(dir)).Set(float64(n))
		metrics.MartingaleStep.WithLabelValues(e.symbol, string(dir)).Set(float64(bk.state.Step))
	}
	metrics.EquityGauge.Set(e.exec.Equity())
}

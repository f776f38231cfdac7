package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/journal"
	"github.com/evdnx/gotsgrid/levels"
	"github.com/evdnx/gotsgrid/logger"
	"github.com/evdnx/gotsgrid/metrics"
	"github.com/evdnx/gotsgrid/types"
	"github.com/google/uuid"
)

type purpose string

const (
	entryPurpose   purpose = "entry"
	averagePurpose purpose = "average"
	exitPurpose    purpose = "exit"
)

type pendingOrder struct {
	order   types.Order
	purpose purpose
	reason  string
	barTime time.Time
}

// submit sends one order for bk and locks the side until the fill is
// applied. A synchronous fill is applied immediately; a rejection leaves
// the ledger untouched so the same decision is taken again next bar.
func (e *Engine) submit(ctx context.Context, bk *book, p purpose, qty, ref float64, reason string, rep *Report) {
	side := bk.dir.EntrySide()
	if p == exitPurpose {
		side = bk.dir.ExitSide()
	}
	o := types.Order{
		ID:      uuid.NewString(),
		Symbol:  e.symbol,
		Side:    side,
		Qty:     qty,
		Price:   ref,
		Comment: fmt.Sprintf("%s %s", p, reason),
	}

	fill, err := e.exec.Submit(ctx, o)
	if err != nil {
		metrics.OrdersRejected.WithLabelValues(string(p)).Inc()
		e.log.Error("order_submit_failed",
			logger.String("symbol", o.Symbol),
			logger.String("side", string(o.Side)),
			logger.String("purpose", string(p)),
			logger.Float64("qty", o.Qty),
			logger.Err(err),
		)
		rep.diagnose(fmt.Errorf("%s %s: %w: %w", bk.dir, p, ErrOrderRejected, err))
		return
	}
	metrics.OrdersSubmitted.WithLabelValues(string(p), string(o.Side)).Inc()
	e.log.Info("order_submitted",
		logger.String("symbol", o.Symbol),
		logger.String("side", string(o.Side)),
		logger.String("purpose", string(p)),
		logger.Float64("qty", o.Qty),
		logger.Float64("price", o.Price),
		logger.String("ctx", reason),
	)
	if fill.OrderID == "" {
		fill.OrderID = o.ID
	}
	o.ID = fill.OrderID
	bk.pending = &pendingOrder{order: o, purpose: p, reason: reason, barTime: e.barTime}
	if fill.Pending {
		rep.event(Event{Kind: EventSubmitted, Side: bk.dir, Reason: reason, Volume: qty, Price: ref, OrderID: o.ID})
		return
	}
	e.apply(ctx, bk, fill, rep)
}

// OnFillConfirmed applies the acknowledgement of an order that Submit
// reported as pending. It must be delivered before the next OnBar.
func (e *Engine) OnFillConfirmed(ctx context.Context, fill types.Fill) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bk := e.pendingBook(fill.OrderID)
	if bk == nil {
		return fmt.Errorf("fill %s: %w", fill.OrderID, ErrUnknownOrder)
	}
	var rep Report
	e.apply(ctx, bk, fill, &rep)
	e.publish()
	return rep.Err()
}

// OnOrderRejected releases a pending order the venue refused after
// accepting it. The ledger is left as it was.
func (e *Engine) OnOrderRejected(orderID string, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bk := e.pendingBook(orderID)
	if bk == nil {
		return fmt.Errorf("reject %s: %w", orderID, ErrUnknownOrder)
	}
	p := bk.pending
	bk.pending = nil
	metrics.OrdersRejected.WithLabelValues(string(p.purpose)).Inc()
	e.log.Error("order_rejected",
		logger.String("symbol", e.symbol),
		logger.String("order_id", orderID),
		logger.String("purpose", string(p.purpose)),
		logger.Err(cause),
	)
	return nil
}

func (e *Engine) pendingBook(orderID string) *book {
	for _, dir := range sides {
		bk := e.books[dir]
		if bk.pending != nil && bk.pending.order.ID == orderID {
			return bk
		}
	}
	return nil
}

// apply moves a confirmed fill into the ledger.
func (e *Engine) apply(ctx context.Context, bk *book, fill types.Fill, rep *Report) {
	p := bk.pending
	bk.pending = nil

	switch p.purpose {
	case entryPurpose:
		b := basket.New(bk.dir)
		if err := b.AddSlice(fill.Qty, fill.Price); err != nil {
			e.log.Error("invalid_fill", logger.String("order_id", fill.OrderID), logger.Err(err))
			rep.diagnose(err)
			return
		}
		b.Protection = levels.Seed(b.AveragePrice(), bk.dir, e.levels)
		bk.basket = b
		bk.entryVolume = fill.Qty
		e.log.Info("basket_opened",
			logger.String("basket", b.ID),
			logger.String("side", string(bk.dir)),
			logger.Float64("qty", fill.Qty),
			logger.Float64("price", fill.Price),
			logger.Float64("stop", b.Protection.Stop),
			logger.Float64("take", b.Protection.Take),
		)
		rep.event(Event{Kind: EventEntry, Side: bk.dir, Reason: p.reason, Volume: fill.Qty, Price: fill.Price, OrderID: fill.OrderID})

	case averagePurpose:
		b := bk.basket
		if b == nil {
			rep.diagnose(fmt.Errorf("average fill %s without basket: %w", fill.OrderID, ErrUnknownOrder))
			return
		}
		if err := b.AddSlice(fill.Qty, fill.Price); err != nil {
			e.log.Error("invalid_fill", logger.String("order_id", fill.OrderID), logger.Err(err))
			rep.diagnose(err)
			return
		}
		// The position changed shape: levels restart from the new average,
		// keeping an armed break-even or trailing stop.
		b.Protection = levels.Reseed(b.Protection, b.AveragePrice(), bk.dir, e.levels)
		e.log.Info("basket_averaged",
			logger.String("basket", b.ID),
			logger.String("side", string(bk.dir)),
			logger.Int("slices", b.Len()),
			logger.Float64("qty", fill.Qty),
			logger.Float64("price", fill.Price),
			logger.Float64("avg", b.AveragePrice()),
		)
		rep.event(Event{Kind: EventAverage, Side: bk.dir, Reason: p.reason, Volume: fill.Qty, Price: fill.Price, OrderID: fill.OrderID})

	case exitPurpose:
		b := bk.basket
		if b == nil {
			rep.diagnose(fmt.Errorf("exit fill %s without basket: %w", fill.OrderID, ErrUnknownOrder))
			return
		}
		pnl := b.PnL(fill.Price)
		closedAt := p.barTime
		if closedAt.IsZero() {
			closedAt = time.Now()
		}
		entry := journal.Entry{
			BasketID:     b.ID,
			Symbol:       e.symbol,
			Side:         bk.dir,
			Slices:       b.Slices(),
			TotalVolume:  b.TotalVolume(),
			AveragePrice: b.AveragePrice(),
			ExitPrice:    fill.Price,
			Reason:       p.reason,
			PnL:          pnl,
			ClosedAt:     closedAt.UTC(),
		}
		b.Liquidate()
		bk.basket = nil
		bk.entryVolume = 0
		bk.state = e.sizing.Adjust(bk.state, pnl)
		e.realized += pnl

		metrics.BasketExits.WithLabelValues(p.reason, string(bk.dir)).Inc()
		metrics.RealizedPnL.WithLabelValues(e.symbol).Set(e.realized)
		e.log.Info("basket_closed",
			logger.String("basket", entry.BasketID),
			logger.String("side", string(bk.dir)),
			logger.String("reason", p.reason),
			logger.Float64("exit", fill.Price),
			logger.Float64("pnl", pnl),
			logger.Float64("next_volume", bk.state.CurrentVolume),
			logger.Int("step", bk.state.Step),
		)
		if e.journal != nil {
			if err := e.journal.Record(ctx, entry); err != nil {
				e.log.Warn("journal_record_failed", logger.String("basket", entry.BasketID), logger.Err(err))
				rep.diagnose(err)
			}
		}
		rep.event(Event{Kind: EventExit, Side: bk.dir, Reason: p.reason, Volume: fill.Qty, Price: fill.Price, PnL: pnl, OrderID: fill.OrderID})
	}
}

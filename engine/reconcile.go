package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/levels"
	"github.com/evdnx/gotsgrid/logger"
	"github.com/evdnx/gotsgrid/metrics"
	"github.com/evdnx/gotsgrid/types"
)

// Reconcile compares the ledger with the venue position outside of the bar
// loop, e.g. after a restart or a manual intervention.
func (e *Engine) Reconcile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var rep Report
	e.reconcile(&rep)
	e.publish()
	return rep.Err()
}

// reconcile makes the venue the source of truth for the net position.
// Nothing is done while an order is in flight.
func (e *Engine) reconcile(rep *Report) {
	for _, dir := range sides {
		if e.books[dir].pending != nil {
			return
		}
	}
	long, short := e.books[types.Long], e.books[types.Short]
	ledger := volumeOf(long.basket) - volumeOf(short.basket)
	venue, avg := e.exec.Position(e.symbol)

	tol := e.cfg.VolumeStep / 2
	if math.Abs(venue-ledger) <= tol {
		return
	}
	metrics.ReconciliationMismatches.WithLabelValues(e.symbol).Inc()
	mismatch := fmt.Errorf("%w: ledger %.8g venue %.8g", ErrReconciliationMismatch, ledger, venue)
	rep.diagnose(mismatch)

	if long.basket != nil && short.basket != nil {
		// A netting venue cannot tell which leg moved.
		e.log.Warn("reconciliation_ambiguous",
			logger.String("symbol", e.symbol),
			logger.Float64("ledger", ledger),
			logger.Float64("venue", venue),
		)
		return
	}

	if math.Abs(venue) <= tol {
		for _, bk := range []*book{long, short} {
			if bk.basket == nil {
				continue
			}
			e.log.Warn("reconciliation_discard",
				logger.String("symbol", e.symbol),
				logger.String("basket", bk.basket.ID),
				logger.String("side", string(bk.dir)),
				logger.Float64("volume", bk.basket.TotalVolume()),
			)
			bk.basket.Liquidate()
			bk.basket = nil
			bk.entryVolume = 0
			rep.event(Event{Kind: EventReconciled, Side: bk.dir, Reason: "venue_flat"})
		}
		return
	}

	dir, other := types.Long, short
	if venue < 0 {
		dir, other = types.Short, long
	}
	bk := e.books[dir]
	if other.basket != nil {
		other.basket.Liquidate()
		other.basket = nil
		other.entryVolume = 0
	}
	vol := math.Abs(venue)
	if avg <= 0 {
		if bk.basket != nil {
			avg = bk.basket.AveragePrice()
		}
	}
	var prev basket.Protection
	fresh := bk.basket == nil
	if fresh {
		bk.basket = basket.New(dir)
	} else {
		prev = bk.basket.Protection
	}
	if err := bk.basket.Rebuild(vol, avg); err != nil {
		e.log.Error("reconciliation_rebuild_failed", logger.String("symbol", e.symbol), logger.Err(err))
		if fresh {
			bk.basket = nil
		}
		rep.diagnose(err)
		return
	}
	if bk.entryVolume == 0 {
		bk.entryVolume = vol
	}
	bk.basket.Protection = levels.Reseed(prev, avg, dir, e.levels)
	e.log.Warn("reconciliation_rebuild",
		logger.String("symbol", e.symbol),
		logger.String("basket", bk.basket.ID),
		logger.String("side", string(dir)),
		logger.Float64("volume", vol),
		logger.Float64("avg", avg),
	)
	rep.event(Event{Kind: EventReconciled, Side: dir, Reason: "rebuild", Volume: vol, Price: avg})
}

func volumeOf(b *basket.Basket) float64 {
	if b == nil {
		return 0
	}
	return b.TotalVolume()
}

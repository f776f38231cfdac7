package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/evdnx/gotsgrid/types"
	"github.com/google/uuid"
)

// ErrInvalidOrder is returned for orders a venue refuses before routing.
var ErrInvalidOrder = errors.New("invalid order")

// Executor is the execution venue seen by the engine.
type Executor interface {
	// Submit sends a market order. A returned Fill with Pending set has been
	// accepted but not executed yet; its confirmation arrives out of band.
	Submit(ctx context.Context, o types.Order) (types.Fill, error)
	Equity() float64
	// Position returns the signed net quantity and its average price.
	Position(symbol string) (qty float64, avgPrice float64)
}

// PaperExecutor is a very simple paper venue – perfect fills at the order's
// reference price, no slippage, netting position per symbol.
type PaperExecutor struct {
	mu        sync.Mutex
	start     float64
	realized  float64
	positions map[string]float64 // qty (positive = long, negative = short)
	avgPrice  map[string]float64
}

func NewPaperExecutor(startEquity float64) *PaperExecutor {
	return &PaperExecutor{
		start:     startEquity,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
	}
}

func (p *PaperExecutor) Submit(ctx context.Context, o types.Order) (types.Fill, error) {
	if err := ctx.Err(); err != nil {
		return types.Fill{}, err
	}
	if !(o.Qty > 0) || !(o.Price > 0) {
		return types.Fill{}, fmt.Errorf("paper executor: qty=%v price=%v: %w", o.Qty, o.Price, ErrInvalidOrder)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	signed := o.Qty
	if o.Side == types.Sell {
		signed = -o.Qty
	}
	p.realized += ApplyFill(p.positions, p.avgPrice, o.Symbol, signed, o.Price)
	return types.Fill{OrderID: o.ID, Side: o.Side, Qty: o.Qty, Price: o.Price}, nil
}

// Equity is the starting balance plus realized profit.
func (p *PaperExecutor) Equity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start + p.realized
}

func (p *PaperExecutor) Position(sym string) (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[sym], p.avgPrice[sym]
}

// ApplyFill nets a signed fill into a position book and returns the profit
// realized by the part that reduced the existing position.
func ApplyFill(positions, avgPrice map[string]float64, sym string, signed, price float64) float64 {
	qty := positions[sym]
	avg := avgPrice[sym]
	realized := 0.0

	switch {
	case qty == 0 || (qty > 0) == (signed > 0):
		// opening or adding: VWAP
		newQty := qty + signed
		avgPrice[sym] = (math.Abs(qty)*avg + math.Abs(signed)*price) / math.Abs(newQty)
		positions[sym] = newQty
	default:
		closed := math.Min(math.Abs(qty), math.Abs(signed))
		realized = closed * (price - avg) * math.Copysign(1, qty)
		newQty := qty + signed
		if math.Abs(newQty) < 1e-12 {
			newQty = 0
		}
		positions[sym] = newQty
		switch {
		case newQty == 0:
			delete(avgPrice, sym)
		case (newQty > 0) != (qty > 0):
			// flipped through zero: remainder opened at price
			avgPrice[sym] = price
		}
	}
	return realized
}

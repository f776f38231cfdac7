// Package basket is the position ledger: every open same-direction entry of
// one side, treated as a single logical position. It holds data only; sizing,
// spacing and exit rules live in their own packages and read Snapshots.
package basket

import (
	"errors"
	"fmt"
	"math"

	"github.com/evdnx/gotsgrid/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidSlice is matched by every *InvalidSliceError.
var ErrInvalidSlice = errors.New("invalid slice")

// InvalidSliceError reports a fill the ledger refused.
type InvalidSliceError struct {
	Volume float64
	Price  float64
}

func (e *InvalidSliceError) Error() string {
	return fmt.Sprintf("invalid slice: volume=%v price=%v", e.Volume, e.Price)
}

func (e *InvalidSliceError) Is(target error) bool { return target == ErrInvalidSlice }

// Slice is one executed entry.
type Slice struct {
	Volume float64
	Price  float64
}

// Extreme selects which end of the slice price range ExtremePrice returns.
type Extreme int

const (
	// Adverse is the worst entry: lowest for a long, highest for a short.
	Adverse Extreme = iota
	// Favorable is the best entry: highest for a long, lowest for a short.
	Favorable
)

// Protection carries the protective levels of a basket. A zero price means
// the level is not set.
type Protection struct {
	Stop            float64
	Take            float64
	TrailingStop    float64
	TrailingAnchor  float64
	TrailingActive  bool
	BreakEvenActive bool
}

// Basket is not safe for concurrent use; the engine serializes access.
type Basket struct {
	ID         string
	Side       types.Direction
	Protection Protection

	slices   []Slice
	volume   decimal.Decimal
	notional decimal.Decimal
	lowest   float64
	highest  float64
}

// New returns an empty basket. It becomes a real position with its first slice.
func New(side types.Direction) *Basket {
	return &Basket{ID: uuid.NewString(), Side: side}
}

// AddSlice records a fill. Non-positive or non-finite volume or price is
// rejected without touching the ledger.
func (b *Basket) AddSlice(volume, price float64) error {
	if !valid(volume, price) {
		return &InvalidSliceError{Volume: volume, Price: price}
	}
	v := decimal.NewFromFloat(volume)
	b.slices = append(b.slices, Slice{Volume: volume, Price: price})
	b.volume = b.volume.Add(v)
	b.notional = b.notional.Add(v.Mul(decimal.NewFromFloat(price)))
	if len(b.slices) == 1 || price < b.lowest {
		b.lowest = price
	}
	if len(b.slices) == 1 || price > b.highest {
		b.highest = price
	}
	return nil
}

func valid(volume, price float64) bool {
	return volume > 0 && price > 0 && !math.IsInf(volume, 0) && !math.IsInf(price, 0)
}

// TotalVolume is the sum of slice volumes.
func (b *Basket) TotalVolume() float64 {
	f, _ := b.volume.Float64()
	return f
}

// AveragePrice is the volume-weighted entry price, 0 for an empty basket.
func (b *Basket) AveragePrice() float64 {
	if b.volume.IsZero() {
		return 0
	}
	f, _ := b.notional.Div(b.volume).Float64()
	return f
}

// ExtremePrice returns the adverse or favorable entry price, 0 when empty.
func (b *Basket) ExtremePrice(e Extreme) float64 {
	if len(b.slices) == 0 {
		return 0
	}
	low := (b.Side == types.Long) == (e == Adverse)
	if low {
		return b.lowest
	}
	return b.highest
}

func (b *Basket) Len() int    { return len(b.slices) }
func (b *Basket) Empty() bool { return len(b.slices) == 0 }
func (b *Basket) Slices() []Slice {
	out := make([]Slice, len(b.slices))
	copy(out, b.slices)
	return out
}

// PnL is the profit in quote currency of closing the whole basket at exitPrice.
func (b *Basket) PnL(exitPrice float64) float64 {
	if b.volume.IsZero() {
		return 0
	}
	pnl := b.volume.Mul(decimal.NewFromFloat(exitPrice)).Sub(b.notional)
	if b.Side == types.Short {
		pnl = pnl.Neg()
	}
	f, _ := pnl.Float64()
	return f
}

// Liquidate drops every slice and protective level. The offsetting order
// for TotalVolume must already be filled.
func (b *Basket) Liquidate() {
	b.slices = nil
	b.volume = decimal.Zero
	b.notional = decimal.Zero
	b.lowest, b.highest = 0, 0
	b.Protection = Protection{}
}

// Rebuild replaces the ledger with one synthetic slice, used when the venue
// reports a position the ledger does not agree with.
func (b *Basket) Rebuild(volume, price float64) error {
	if !valid(volume, price) {
		return &InvalidSliceError{Volume: volume, Price: price}
	}
	b.slices = nil
	b.volume = decimal.Zero
	b.notional = decimal.Zero
	return b.AddSlice(volume, price)
}

// Snapshot is a read-only copy of what the policies need.
type Snapshot struct {
	ID           string
	Side         types.Direction
	Slices       int
	TotalVolume  float64
	AveragePrice float64
	Adverse      float64
	Favorable    float64
	Protection   Protection
}

func (b *Basket) Snapshot() Snapshot {
	return Snapshot{
		ID:           b.ID,
		Side:         b.Side,
		Slices:       len(b.slices),
		TotalVolume:  b.TotalVolume(),
		AveragePrice: b.AveragePrice(),
		Adverse:      b.ExtremePrice(Adverse),
		Favorable:    b.ExtremePrice(Favorable),
		Protection:   b.Protection,
	}
}

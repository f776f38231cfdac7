package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/evdnx/gotsgrid/executor"
	"github.com/evdnx/gotsgrid/types"
)

// ErrRejected is what MockExecutor returns for scripted rejections.
var ErrRejected = errors.New("mock venue: order rejected")

// MockExecutor implements executor.Executor in‑memory. It can reject orders,
// answer asynchronously and have its position overwritten to simulate
// external activity.
type MockExecutor struct {
	mu        sync.RWMutex
	equity    float64
	positions map[string]float64 // qty (signed)
	avgPrice  map[string]float64
	orders    []types.Order // captured for assertions
	rejectN   int
	async     bool
	pending   map[string]types.Order
	seq       int
}

// NewMockExecutor creates a fresh executor with the supplied starting equity.
func NewMockExecutor(startEquity float64) *MockExecutor {
	return &MockExecutor{
		equity:    startEquity,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
		pending:   make(map[string]types.Order),
	}
}

// RejectNext makes the next n submissions fail with ErrRejected.
func (m *MockExecutor) RejectNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectN = n
}

// SetAsync switches to accept-now, fill-later acknowledgements.
func (m *MockExecutor) SetAsync(async bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.async = async
}

// Submit records the order and fills it at its reference price.
func (m *MockExecutor) Submit(ctx context.Context, o types.Order) (types.Fill, error) {
	if err := ctx.Err(); err != nil {
		return types.Fill{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders = append(m.orders, o)
	if m.rejectN > 0 {
		m.rejectN--
		return types.Fill{}, ErrRejected
	}
	if o.ID == "" {
		m.seq++
		o.ID = fmt.Sprintf("mock-%d", m.seq)
	}
	fill := types.Fill{OrderID: o.ID, Side: o.Side, Qty: o.Qty, Price: o.Price}
	if m.async {
		m.pending[o.ID] = o
		fill.Pending = true
		return fill, nil
	}
	m.apply(o)
	return fill, nil
}

// Confirm executes a pending order and returns its fill.
func (m *MockExecutor) Confirm(orderID string) (types.Fill, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.pending[orderID]
	if !ok {
		return types.Fill{}, false
	}
	delete(m.pending, orderID)
	m.apply(o)
	return types.Fill{OrderID: o.ID, Side: o.Side, Qty: o.Qty, Price: o.Price}, true
}

func (m *MockExecutor) apply(o types.Order) {
	signed := o.Qty
	if o.Side == types.Sell {
		signed = -o.Qty
	}
	m.equity += executor.ApplyFill(m.positions, m.avgPrice, o.Symbol, signed, o.Price)
}

// SetPosition overwrites the venue view of a symbol.
func (m *MockExecutor) SetPosition(symbol string, qty, avg float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = qty
	m.avgPrice[symbol] = avg
}

// Equity returns the starting balance plus realized profit.
func (m *MockExecutor) Equity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.equity
}

// Position returns qty & avg price for a symbol.
func (m *MockExecutor) Position(symbol string) (float64, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[symbol], m.avgPrice[symbol]
}

// Orders returns a copy of all submitted orders (useful for assertions).
func (m *MockExecutor) Orders() []types.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Order, len(m.orders))
	copy(out, m.orders)
	return out
}

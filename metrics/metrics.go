package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotsgrid_orders_submitted_total",
			Help: "Total number of orders accepted by the venue (by purpose and side).",
		},
		[]string{"purpose", "side"},
	)

	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotsgrid_orders_rejected_total",
			Help: "Orders the venue refused; the decision is retried next bar.",
		},
		[]string{"purpose"},
	)

	BasketsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotsgrid_basket_slices",
			Help: "Number of slices in the open basket per side (0 = flat).",
		},
		[]string{"symbol", "side"},
	)

	BasketExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotsgrid_basket_exits_total",
			Help: "Closed baskets split by exit reason and side.",
		},
		[]string{"reason", "side"},
	)

	MartingaleStep = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotsgrid_martingale_step",
			Help: "Consecutive losing escalations since the last win.",
		},
		[]string{"symbol", "side"},
	)

	ReconciliationMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotsgrid_reconciliation_mismatches_total",
			Help: "Times the venue position disagreed with the ledger.",
		},
		[]string{"symbol"},
	)

	RealizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotsgrid_realized_pnl",
			Help: "Cumulative realized profit of closed baskets.",
		},
		[]string{"symbol"},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gotsgrid_equity",
			Help: "Current equity of the executor (paper or live).",
		},
	)
)

func init() {
	prometheus.MustRegister(OrdersSubmitted, OrdersRejected, BasketsOpen, BasketExits,
		MartingaleStep, ReconciliationMismatches, RealizedPnL, EquityGauge)
}

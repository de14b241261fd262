package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Orders groups the order placement and stock watch collectors.
// A nil *Orders is valid and records nothing.
type Orders struct {
	placed       prometheus.Counter
	rejected     *prometheus.CounterVec
	commitFailed prometheus.Counter
	duration     prometheus.Histogram
	lowStock     *prometheus.CounterVec
}

func NewOrders(reg prometheus.Registerer) *Orders {
	m := &Orders{
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "orders_placed_total",
			Help:      "Orders committed to the ledger.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "orders_rejected_total",
			Help:      "Order attempts rejected before commit, by reason.",
		}, []string{"reason"}),
		commitFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "orders_commit_failed_total",
			Help:      "Order attempts whose atomic write was rejected by the store.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inventory",
			Name:      "order_place_duration_seconds",
			Help:      "Latency of successful order placements.",
			Buckets:   prometheus.DefBuckets,
		}),
		lowStock: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "low_stock_alerts_total",
			Help:      "Low stock alerts raised after an order, by product.",
		}, []string{"product_id"}),
	}
	reg.MustRegister(m.placed, m.rejected, m.commitFailed, m.duration, m.lowStock)
	return m
}

func (m *Orders) Placed(d time.Duration) {
	if m == nil {
		return
	}
	m.placed.Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Orders) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Orders) CommitFailed() {
	if m == nil {
		return
	}
	m.commitFailed.Inc()
}

func (m *Orders) LowStock(productID string) {
	if m == nil {
		return
	}
	m.lowStock.WithLabelValues(productID).Inc()
}

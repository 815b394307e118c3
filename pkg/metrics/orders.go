package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics tracks order lifecycle activity.
type OrderMetrics struct {
	placed        *prometheus.CounterVec
	value         *prometheus.HistogramVec
	cancelled     prometheus.Counter
	statusChanges *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created, by source (cart or direct).",
	}, []string{"source"})
	value := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Order totals in store currency units.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
	}, []string{"source"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by customers.",
	})
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Administrative order status transitions, by target status.",
	}, []string{"status"})
	reg.MustRegister(placed, value, cancelled, statusChanges)
	return &OrderMetrics{
		placed:        placed,
		value:         value,
		cancelled:     cancelled,
		statusChanges: statusChanges,
	}
}

// ObservePlaced records a committed order.
func (m *OrderMetrics) ObservePlaced(source string, total decimal.Decimal) {
	if m == nil || m.placed == nil {
		return
	}
	label := normalizeLabel(source)
	m.placed.WithLabelValues(label).Inc()
	m.value.WithLabelValues(label).Observe(total.InexactFloat64())
}

// IncCancelled records a committed cancellation.
func (m *OrderMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncStatusChange records an administrative transition.
func (m *OrderMetrics) IncStatusChange(status string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

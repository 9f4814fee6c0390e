package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the cart and checkout counters.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// CartMetrics records cart mutations, persistence failures and session counts.
type CartMetrics struct {
	mutations   *prometheus.CounterVec
	persistence *prometheus.CounterVec
	sessions    prometheus.Gauge
	checkouts   *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	persistence := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persistence_failures_total",
		Help: "Failed cart snapshot reads, writes and deletes.",
	}, []string{"op"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_active_sessions",
		Help: "Cart stores currently held in memory.",
	})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	reg.MustRegister(mutations, persistence, sessions, checkouts)
	return &CartMetrics{
		mutations:   mutations,
		persistence: persistence,
		sessions:    sessions,
		checkouts:   checkouts,
	}
}

// IncMutation counts one cart operation outcome.
func (c *CartMetrics) IncMutation(op, result string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// IncPersistenceFailure counts a swallowed snapshot failure.
func (c *CartMetrics) IncPersistenceFailure(op string) {
	if c == nil || c.persistence == nil {
		return
	}
	c.persistence.WithLabelValues(normalizeLabel(op)).Inc()
}

// SetActiveSessions publishes the number of live cart stores.
func (c *CartMetrics) SetActiveSessions(n int) {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.Set(float64(n))
}

// IncCheckout counts one checkout outcome.
func (c *CartMetrics) IncCheckout(result string) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

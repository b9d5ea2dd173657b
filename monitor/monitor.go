// Package monitor exports engine counters to Prometheus.
package monitor

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Monitor collects order lifecycle metrics on a private registry so multiple
// instances never collide on registration.
type Monitor struct {
	registry *prometheus.Registry

	ordersPlaced    *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	ordersFilled    *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec

	baseVolume    *prometheus.CounterVec
	quoteVolume   *prometheus.CounterVec
	feesCollected *prometheus.CounterVec
}

// New creates a Monitor with its own registry.
func New() *Monitor {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Monitor{
		registry: registry,
		ordersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "orders_placed_total",
			Help:      "Orders successfully placed.",
		}, []string{"market"}),
		ordersCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "orders_cancelled_total",
			Help:      "Orders successfully cancelled.",
		}, []string{"market"}),
		ordersFilled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "orders_filled_total",
			Help:      "Fill operations that moved size.",
		}, []string{"market"}),
		ordersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "orders_rejected_total",
			Help:      "Operations rejected by validation or guard rails.",
		}, []string{"operation"}),
		baseVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "base_asset_volume",
			Help:      "Cumulative base asset amount filled.",
		}, []string{"market"}),
		quoteVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "quote_asset_volume",
			Help:      "Cumulative quote asset amount filled.",
		}, []string{"market"}),
		feesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "fees_collected",
			Help:      "Cumulative taker fees paid by traders.",
		}, []string{"market"}),
	}
}

// OrderPlaced counts one successful placement.
func (m *Monitor) OrderPlaced(marketIndex uint64) {
	m.ordersPlaced.WithLabelValues(marketLabel(marketIndex)).Inc()
}

// OrderCancelled counts one successful cancel.
func (m *Monitor) OrderCancelled(marketIndex uint64) {
	m.ordersCancelled.WithLabelValues(marketLabel(marketIndex)).Inc()
}

// OrderFilled counts one fill and accumulates its volumes and fee.
func (m *Monitor) OrderFilled(marketIndex uint64, baseVolume, quoteVolume, fee decimal.Decimal) {
	label := marketLabel(marketIndex)
	m.ordersFilled.WithLabelValues(label).Inc()
	m.baseVolume.WithLabelValues(label).Add(baseVolume.InexactFloat64())
	m.quoteVolume.WithLabelValues(label).Add(quoteVolume.InexactFloat64())
	if fee.Sign() > 0 {
		m.feesCollected.WithLabelValues(label).Add(fee.InexactFloat64())
	}
}

// OrderRejected counts one rejected operation.
func (m *Monitor) OrderRejected(operation string) {
	m.ordersRejected.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, useful for tests.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func marketLabel(marketIndex uint64) string {
	return strconv.FormatUint(marketIndex, 10)
}

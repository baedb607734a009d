package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "chainstream_broadcast"

// Eviction reason label values.
const (
	reasonLagged = "lagged"
	reasonClosed = "closed"
)

// Collector is a prometheus.Collector that collects metrics about the
// broadcaster. Every broadcaster owns one; register it with a prometheus
// registry to expose it.
type Collector struct {
	connectionCount prometheus.Gauge
	updatesTotal    *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
	evictionsTotal  *prometheus.CounterVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		connectionCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "connection_count",
				Help:      "The number of subscribers currently registered with the coordinator.",
			},
		),
		updatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "updates_total",
				Help:      "The number of updates dispatched by the coordinator.",
			}, []string{"kind"},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "deliveries_total",
				Help:      "The number of envelopes delivered to subscriber channels.",
			}, []string{"kind"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "evictions_total",
				Help:      "The number of subscribers evicted during dispatch.",
			}, []string{"reason"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.connectionCount.Describe(ch)
	c.updatesTotal.Describe(ch)
	c.deliveriesTotal.Describe(ch)
	c.evictionsTotal.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.connectionCount.Collect(ch)
	c.updatesTotal.Collect(ch)
	c.deliveriesTotal.Collect(ch)
	c.evictionsTotal.Collect(ch)
}

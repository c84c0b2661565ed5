package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "rds_metrics_collector"

// JobName labels pushed metrics
const JobName = "collect-metrics"

// RunMetrics counts what one collection run did. It satisfies the collector and pricing observers.
type RunMetrics struct {
	registry *prometheus.Registry

	unitsCollected *prometheus.CounterVec
	unitsSkipped   *prometheus.CounterVec
	records        prometheus.Counter
	priceLookups   *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
	duration       prometheus.Gauge
}

// New registers the run metrics on a private registry
func New() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		unitsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_collected_total",
			Help:      "Instances that produced hourly records.",
		}, []string{"platform"}),
		unitsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_skipped_total",
			Help:      "Clusters or instances skipped, by failing stage.",
		}, []string{"stage"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Hourly records emitted.",
		}),
		priceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookups_total",
			Help:      "Price resolutions by price kind and source.",
		}, []string{"kind", "source"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.unitsCollected, m.unitsSkipped, m.records, m.priceLookups, m.lastSuccess, m.duration)
	return m
}

// Registry exposes the underlying registry
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// UnitCollected records one instance worth of rows
func (m *RunMetrics) UnitCollected(platform string, records int) {
	m.unitsCollected.WithLabelValues(platform).Inc()
	m.records.Add(float64(records))
}

// UnitSkipped records a skipped unit
func (m *RunMetrics) UnitSkipped(stage string) {
	m.unitsSkipped.WithLabelValues(stage).Inc()
}

// PriceResolved records where a price came from
func (m *RunMetrics) PriceResolved(kind, source string) {
	m.priceLookups.WithLabelValues(kind, source).Inc()
}

// Finish stamps the run as complete
func (m *RunMetrics) Finish(started, finished time.Time) {
	m.duration.Set(finished.Sub(started).Seconds())
	m.lastSuccess.Set(float64(finished.Unix()))
}

// WriteToTextfile writes the metrics in the node_exporter textfile format
func (m *RunMetrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Push sends the metrics to a Pushgateway
func (m *RunMetrics) Push(url string) error {
	if err := push.New(url, JobName).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerAttempts *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	components       *prometheus.GaugeVec
	tablesPublished  *prometheus.CounterVec
	tableRows        *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_provider_attempts_total",
				Help: "Upstream provider attempts by outcome",
			},
			[]string{"provider", "result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_cache_lookups_total",
				Help: "Series cache lookups by outcome",
			},
			[]string{"key", "result"},
		),
		components: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macropull_aggregate_components",
				Help: "Components used or skipped in the last composite run",
			},
			[]string{"state"},
		),
		tablesPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_tables_published_total",
				Help: "Unified tables handed to downstream consumers",
			},
			[]string{"instrument"},
		),
		tableRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macropull_table_rows",
				Help: "Row count of the last published table",
			},
			[]string{"instrument"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProviderAttempt counts one provider call ("ok", "empty", "error", "skipped").
func (r *Recorder) RecordProviderAttempt(provider, result string) {
	r.providerAttempts.WithLabelValues(provider, result).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(key, result).Inc()
}

// RecordAggregateComponents sets the component gauges for the last run.
func (r *Recorder) RecordAggregateComponents(used, skipped int) {
	r.components.WithLabelValues("used").Set(float64(used))
	r.components.WithLabelValues("skipped").Set(float64(skipped))
}

// RecordTablePublished counts a published table.
func (r *Recorder) RecordTablePublished(instrument string, rows int) {
	r.tablesPublished.WithLabelValues(instrument).Inc()
	r.tableRows.WithLabelValues(instrument).Set(float64(rows))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	AssetsTotal    *prometheus.CounterVec
	AssetDuration  prometheus.Histogram
	ResultsEmitted *prometheus.CounterVec

	// Analysis metrics
	PostsClustered     prometheus.Counter
	EventsFormed       *prometheus.CounterVec
	PriceLookups       *prometheus.CounterVec
	QuietPeriodsFound  *prometheus.CounterVec
	StatisticsComputed *prometheus.CounterVec
	OverridesApplied   prometheus.Counter
	OverridesUnmatched prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tweet_price_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Run metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Analysis run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		AssetsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "assets_total",
			Help:      "Total number of per-asset analyses by status",
		}, []string{"status"}),
		AssetDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "asset_duration_seconds",
			Help:      "Per-asset analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ResultsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "results_emitted_total",
			Help:      "Total number of results handed to a sink by status",
		}, []string{"status"}),

		// Analysis metrics
		PostsClustered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "posts_clustered_total",
			Help:      "Total number of posts fed to the clusterer",
		}),
		EventsFormed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "events_formed_total",
			Help:      "Total number of clustered events by formation",
		}, []string{"formation"}),
		PriceLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "price_lookups_total",
			Help:      "Total number of aligned price lookups by offset and outcome",
		}, []string{"offset", "outcome"}),
		QuietPeriodsFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "quiet_periods_total",
			Help:      "Total number of quiet periods found",
		}, []string{"ongoing"}),
		StatisticsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "statistics_total",
			Help:      "Total number of statistics computed by kind and status",
		}, []string{"kind", "status"}),
		OverridesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "overrides_applied_total",
			Help:      "Total number of overrides matched to an event",
		}),
		OverridesUnmatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "overrides_unmatched_total",
			Help:      "Total number of overrides naming no known event",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful analysis run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string, seconds float64, finishedUnix int64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	if status == "success" {
		m.LastSuccessfulRun.Set(float64(finishedUnix))
	}
}

// RecordAsset records one per-asset analysis.
func (m *Metrics) RecordAsset(status string, seconds float64) {
	if m == nil {
		return
	}
	m.AssetsTotal.WithLabelValues(status).Inc()
	m.AssetDuration.Observe(seconds)
}

// RecordResultEmitted records a sink publication.
func (m *Metrics) RecordResultEmitted(err error) {
	if m == nil {
		return
	}
	m.ResultsEmitted.WithLabelValues(statusOf(err)).Inc()
}

// RecordClustering records clusterer input and output sizes.
func (m *Metrics) RecordClustering(posts, windowEvents, threadEvents int) {
	if m == nil {
		return
	}
	m.PostsClustered.Add(float64(posts))
	m.EventsFormed.WithLabelValues("window").Add(float64(windowEvents))
	m.EventsFormed.WithLabelValues("thread").Add(float64(threadEvents))
}

// RecordLookup records whether a price was found at an offset ("event", "1h", "24h").
func (m *Metrics) RecordLookup(offset string, found bool) {
	if m == nil {
		return
	}
	outcome := "absent"
	if found {
		outcome = "found"
	}
	m.PriceLookups.WithLabelValues(offset, outcome).Inc()
}

// RecordQuietPeriod records one detected quiet period.
func (m *Metrics) RecordQuietPeriod(ongoing bool) {
	if m == nil {
		return
	}
	label := "false"
	if ongoing {
		label = "true"
	}
	m.QuietPeriodsFound.WithLabelValues(label).Inc()
}

// RecordStatistic records a statistic outcome, e.g. ("daily", "ok").
func (m *Metrics) RecordStatistic(kind, status string) {
	if m == nil {
		return
	}
	m.StatisticsComputed.WithLabelValues(kind, status).Inc()
}

// RecordOverrides records matched and unmatched overrides.
func (m *Metrics) RecordOverrides(applied, unmatched int) {
	if m == nil {
		return
	}
	m.OverridesApplied.Add(float64(applied))
	m.OverridesUnmatched.Add(float64(unmatched))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It implements usecase.PassObserver
// so the batch processor can report without depending on Prometheus.
type Metrics struct {
	// Aggregation pass metrics
	GroupsProcessed *prometheus.CounterVec
	PassErrors      *prometheus.CounterVec
	PassDuration    *prometheus.HistogramVec
	Watermark       *prometheus.GaugeVec

	// Database metrics
	DBConnections prometheus.Gauge
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		GroupsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pnlstats_groups_processed_total",
				Help: "Total number of liability groups aggregated",
			},
			[]string{"pnl_currency"},
		),
		PassErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pnlstats_pass_errors_total",
				Help: "Total number of failed aggregation passes",
			},
			[]string{"pnl_currency"},
		),
		PassDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pnlstats_pass_duration_seconds",
				Help:    "Duration of aggregation passes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pnl_currency"},
		),
		Watermark: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pnlstats_watermark_liability_id",
				Help: "Highest liability id folded into each reporting currency",
			},
			[]string{"pnl_currency"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pnlstats_db_connections",
			Help: "Current number of database connections",
		}),
	}
}

// PassCompleted records a finished aggregation pass.
func (m *Metrics) PassCompleted(pnlCurrencyID string, groups int, duration time.Duration) {
	m.GroupsProcessed.WithLabelValues(pnlCurrencyID).Add(float64(groups))
	m.PassDuration.WithLabelValues(pnlCurrencyID).Observe(duration.Seconds())
}

// PassFailed records a failed aggregation pass.
func (m *Metrics) PassFailed(pnlCurrencyID string) {
	m.PassErrors.WithLabelValues(pnlCurrencyID).Inc()
}

// WatermarkAdvanced records the new high-water liability id.
func (m *Metrics) WatermarkAdvanced(pnlCurrencyID string, liabilityID int64) {
	m.Watermark.WithLabelValues(pnlCurrencyID).Set(float64(liabilityID))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	alertsTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	cycleSecs    prometheus.Histogram
	cycleScanned prometheus.Gauge
	largestRun   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapewatch_alerts_total",
				Help: "Total run alerts emitted",
			},
			[]string{"direction", "code"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapewatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cycleSecs: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tapewatch_cycle_duration_seconds",
				Help:    "Duration of one monitoring cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		cycleScanned: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tapewatch_cycle_securities_scanned",
				Help: "Securities scanned in the last cycle",
			},
		),
		largestRun: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tapewatch_largest_run_turnover",
				Help: "Turnover of the largest alerted run per security",
			},
			[]string{"code"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tapewatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAlert records one emitted alert.
func (r *Recorder) RecordAlert(direction, code string) {
	r.alertsTotal.WithLabelValues(direction, code).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCycle records one finished monitoring cycle.
func (r *Recorder) RecordCycle(securities int, seconds float64) {
	r.cycleScanned.Set(float64(securities))
	r.cycleSecs.Observe(seconds)
}

// RecordLargestRun records the alerted run turnover for a security.
func (r *Recorder) RecordLargestRun(code string, turnover float64) {
	r.largestRun.WithLabelValues(code).Set(turnover)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pair status labels
const (
	StatusMatched   = "matched"
	StatusNoMatches = "no_matches"
	StatusFailed    = "failed"
)

// Registry holds the Prometheus collectors for scans
type Registry struct {
	PairsTotal      *prometheus.CounterVec
	WindowsScanned  *prometheus.CounterVec
	MatchesAccepted *prometheus.CounterVec
	ScanDuration    *prometheus.HistogramVec
	ActivePairs     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewRegistry creates collectors and registers them on a fresh registry
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		PairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motif_pairs_total",
				Help: "Total number of (sample, data) pairs processed by status",
			},
			[]string{"status"},
		),
		WindowsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motif_windows_scanned_total",
				Help: "Total number of windows evaluated",
			},
			[]string{"metric"},
		),
		MatchesAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motif_matches_accepted_total",
				Help: "Total number of windows accepted by the metric",
			},
			[]string{"metric"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "motif_scan_duration_seconds",
				Help:    "Duration of a single pair scan in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"metric"},
		),
		ActivePairs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "motif_active_pairs",
				Help: "Number of pairs currently being scanned",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(r.PairsTotal, r.WindowsScanned, r.MatchesAccepted, r.ScanDuration, r.ActivePairs)
	return r
}

// PairStarted marks a pair as in flight
func (r *Registry) PairStarted() {
	r.ActivePairs.Inc()
}

// PairFinished records a finished pair
func (r *Registry) PairFinished(metricName, status string, windows, accepted int, elapsed time.Duration) {
	r.ActivePairs.Dec()
	r.PairsTotal.WithLabelValues(status).Inc()
	if status == StatusFailed {
		return
	}
	r.WindowsScanned.WithLabelValues(metricName).Add(float64(windows))
	r.MatchesAccepted.WithLabelValues(metricName).Add(float64(accepted))
	r.ScanDuration.WithLabelValues(metricName).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler serving the metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Package metrics records solver activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wfc"

// Recorder owns the solver metrics. A nil *Recorder records nothing.
type Recorder struct {
	SolvesTotal         *prometheus.CounterVec
	AttemptsTotal       *prometheus.CounterVec
	ContradictionsTotal *prometheus.CounterVec
	CollapsesTotal      *prometheus.CounterVec
	PropagationsTotal   *prometheus.CounterVec
	SolveDuration       *prometheus.HistogramVec
	ActiveStreams       prometheus.Gauge
	StreamClients       prometheus.Gauge
	StreamsRejected     *prometheus.CounterVec
}

// New registers the solver metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		SolvesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "solves_total",
			Help:      "Finished solves by field shape and status",
		}, []string{"shape", "status"}),

		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "attempts_total",
			Help:      "Solve attempts including retries, by field shape",
		}, []string{"shape"}),

		ContradictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "contradictions_total",
			Help:      "Attempts abandoned because a cell ran out of possibilities",
		}, []string{"shape"}),

		CollapsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "collapses_total",
			Help:      "Cells collapsed, by field shape",
		}, []string{"shape"}),

		PropagationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "propagations_total",
			Help:      "Cells whose constraints were projected onto their neighbours",
		}, []string{"shape"}),

		SolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "duration_seconds",
			Help:      "Wall time of a whole solve including retries",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"shape"}),

		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_streams",
			Help:      "Solves currently streaming over WebSocket",
		}),

		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "stream_clients",
			Help:      "Distinct client IPs with at least one open stream",
		}),

		StreamsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "streams_rejected_total",
			Help:      "Stream requests refused by the admission limits, by limit hit",
		}, []string{"limit"}),
	}
}

// ObserveAttempt records one engine run.
func (r *Recorder) ObserveAttempt(shape string, stats wfc.Stats, contradiction bool) {
	if r == nil {
		return
	}
	r.AttemptsTotal.WithLabelValues(shape).Inc()
	r.CollapsesTotal.WithLabelValues(shape).Add(float64(stats.Collapses))
	r.PropagationsTotal.WithLabelValues(shape).Add(float64(stats.Propagations))
	if contradiction {
		r.ContradictionsTotal.WithLabelValues(shape).Inc()
	}
}

// ObserveSolve records a finished solve. status is "ok", "failed" or "canceled".
func (r *Recorder) ObserveSolve(shape, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.SolvesTotal.WithLabelValues(shape, status).Inc()
	r.SolveDuration.WithLabelValues(shape).Observe(elapsed.Seconds())
}

// StreamStarted and StreamFinished track open WebSocket solves.
func (r *Recorder) StreamStarted() {
	if r != nil {
		r.ActiveStreams.Inc()
	}
}

func (r *Recorder) StreamFinished() {
	if r != nil {
		r.ActiveStreams.Dec()
	}
}

// ObserveStreamClients sets the number of clients holding stream slots.
func (r *Recorder) ObserveStreamClients(n int) {
	if r != nil {
		r.StreamClients.Set(float64(n))
	}
}

// StreamRejected counts a refused stream. limit is "total" or "client".
func (r *Recorder) StreamRejected(limit string) {
	if r != nil {
		r.StreamsRejected.WithLabelValues(limit).Inc()
	}
}

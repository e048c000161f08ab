package metrics

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	return New(prometheus.NewRegistry())
}

func TestObserveAttempt(t *testing.T) {
	r := newTestRecorder(t)

	r.ObserveAttempt("square", wfc.Stats{Collapses: 10, Propagations: 25}, true)
	r.ObserveAttempt("square", wfc.Stats{Collapses: 12, Propagations: 30}, false)

	if got := testutil.ToFloat64(r.AttemptsTotal.WithLabelValues("square")); got != 2 {
		t.Errorf("attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ContradictionsTotal.WithLabelValues("square")); got != 1 {
		t.Errorf("contradictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.CollapsesTotal.WithLabelValues("square")); got != 22 {
		t.Errorf("collapses = %v, want 22", got)
	}
	if got := testutil.ToFloat64(r.PropagationsTotal.WithLabelValues("square")); got != 55 {
		t.Errorf("propagations = %v, want 55", got)
	}
}

func TestObserveSolve(t *testing.T) {
	r := newTestRecorder(t)

	r.ObserveSolve("hex", "ok", 20*time.Millisecond)
	r.ObserveSolve("hex", "failed", time.Second)

	if got := testutil.ToFloat64(r.SolvesTotal.WithLabelValues("hex", "ok")); got != 1 {
		t.Errorf("ok solves = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.SolveDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestActiveStreams(t *testing.T) {
	r := newTestRecorder(t)

	r.StreamStarted()
	r.StreamStarted()
	r.StreamFinished()

	if got := testutil.ToFloat64(r.ActiveStreams); got != 1 {
		t.Errorf("active streams = %v, want 1", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	defer func() {
		if p := recover(); p != nil {
			t.Errorf("nil recorder panicked: %v", p)
		}
	}()

	r.ObserveAttempt("line", wfc.Stats{}, true)
	r.ObserveSolve("line", "ok", time.Millisecond)
	r.StreamStarted()
	r.StreamFinished()
	r.ObserveStreamClients(2)
	r.StreamRejected("total")
}

func TestStreamAdmission(t *testing.T) {
	r := newTestRecorder(t)

	r.ObserveStreamClients(3)
	r.ObserveStreamClients(2)
	r.StreamRejected("client")
	r.StreamRejected("client")
	r.StreamRejected("total")

	if got := testutil.ToFloat64(r.StreamClients); got != 2 {
		t.Errorf("stream clients = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.StreamsRejected.WithLabelValues("client")); got != 2 {
		t.Errorf("client rejections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.StreamsRejected.WithLabelValues("total")); got != 1 {
		t.Errorf("total rejections = %v, want 1", got)
	}
}

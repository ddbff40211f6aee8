// Package metrics publishes pipeline counters and latencies to Prometheus.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Loader sources.
const (
	SourceCarried = "carried"
	SourceFetch   = "fetch"
)

// Carrier events.
const (
	TransitionAttach = "attach"
	TransitionTake   = "take"
	TransitionMiss   = "miss"
	TransitionForget = "forget"
)

type Recorder struct {
	loads       *prometheus.CounterVec
	fetches     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	superseded  *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vantage",
			Name:      "view_loads_total",
			Help:      "View loads by view, data source and final status.",
		}, []string{"view", "source", "status"}),
		fetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vantage",
			Name:      "backend_fetch_seconds",
			Help:      "Backend fetch latency by view and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vantage",
			Name:      "carrier_events_total",
			Help:      "Navigation state carrier events.",
		}, []string{"event"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vantage",
			Name:      "superseded_fetches_total",
			Help:      "Fetch results discarded because a newer request started.",
		}, []string{"view"}),
	}
	if reg != nil {
		reg.MustRegister(r.loads, r.fetches, r.transitions, r.superseded)
	}
	return r
}

func (r *Recorder) Load(view, source, status string) {
	if r == nil {
		return
	}
	r.loads.WithLabelValues(view, source, status).Inc()
}

func (r *Recorder) Fetch(view string, d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fetches.WithLabelValues(view, outcome).Observe(d.Seconds())
}

func (r *Recorder) Transition(event string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(event).Inc()
}

func (r *Recorder) Superseded(view string) {
	if r == nil {
		return
	}
	r.superseded.WithLabelValues(view).Inc()
}

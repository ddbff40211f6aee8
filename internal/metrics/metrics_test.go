package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Load("synergy-analysis", SourceCarried, "loaded")
	r.Load("synergy-analysis", SourceCarried, "loaded")
	r.Transition(TransitionAttach)
	r.Superseded("company-analysis")
	r.Fetch("dashboard", 20*time.Millisecond, nil)
	r.Fetch("dashboard", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.loads.WithLabelValues("synergy-analysis", SourceCarried, "loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues(TransitionAttach)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.superseded.WithLabelValues("company-analysis")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.fetches))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Load("v", SourceFetch, "error")
		r.Fetch("v", time.Millisecond, nil)
		r.Transition(TransitionMiss)
		r.Superseded("v")
	})
}

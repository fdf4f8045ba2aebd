package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dailycheckin/internal/checkin"
	"dailycheckin/internal/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	r := New(config.MetricsConfig{}, nil, nil)
	started := time.Unix(1_760_000_000, 0)

	r.Observe(&checkin.Report{Outcome: checkin.OutcomeAlreadyDone, Attempt: 2, StartedAt: started, Duration: 1500 * time.Millisecond})
	r.Observe(&checkin.Report{Outcome: checkin.OutcomeAlreadyDone, Attempt: 1, StartedAt: started, Duration: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("already_done")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attempts))
	assert.Equal(t, float64(started.Unix()), testutil.ToFloat64(r.lastRun))
	assert.Equal(t, 5, testutil.CollectAndCount(r.runs), "every outcome is pre-registered")
}

func TestPush_DisabledIsNoop(t *testing.T) {
	r := New(config.MetricsConfig{}, nil, nil)
	assert.False(t, r.Enabled())
	assert.NoError(t, r.Push(context.Background()))
}

func TestPush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		mu.Lock()
		method, path, body = req.Method, req.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	r := New(config.MetricsConfig{PushgatewayURL: ts.URL, Job: "nightly"}, ts.Client(), nil)
	r.Observe(&checkin.Report{Outcome: checkin.OutcomeSuccess, Attempt: 1, StartedAt: time.Now()})
	require.NoError(t, r.Push(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/nightly", path)
	assert.Contains(t, body, "checkin_runs_total")
}

func TestPush_GatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	r := New(config.MetricsConfig{PushgatewayURL: ts.URL}, ts.Client(), nil)
	err := r.Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}

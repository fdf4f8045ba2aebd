// Package metrics records run outcomes in a private Prometheus registry and
// pushes them to a Pushgateway, since a scheduled job never lives long
// enough to be scraped.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"dailycheckin/internal/checkin"
	"dailycheckin/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const namespace = "checkin"

// Recorder holds the run metrics of one process.
type Recorder struct {
	reg *prometheus.Registry

	runs     *prometheus.CounterVec
	duration prometheus.Gauge
	lastRun  prometheus.Gauge
	attempts prometheus.Gauge

	url    string
	job    string
	client *http.Client
	log    *zap.Logger
}

// New creates a recorder. Push is a no-op unless cfg names a Pushgateway.
func New(cfg config.MetricsConfig, client *http.Client, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Check-in runs by final outcome",
			},
			[]string{"outcome"}, // success|already_done|failed|untriggered|login_failed
		),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last attempt",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),
		attempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attempts",
			Help:      "Attempts the last run needed",
		}),
		url:    cfg.PushgatewayURL,
		job:    cfg.Job,
		client: client,
		log:    log,
	}
	r.reg.MustRegister(r.runs, r.duration, r.lastRun, r.attempts)
	for _, o := range checkin.AllOutcomes() {
		r.runs.WithLabelValues(o.String())
	}
	return r
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Enabled reports whether Push will contact a gateway.
func (r *Recorder) Enabled() bool { return r.url != "" }

// Observe records the final report of a run.
func (r *Recorder) Observe(rep *checkin.Report) {
	r.runs.WithLabelValues(rep.Outcome.String()).Inc()
	r.duration.Set(rep.Duration.Seconds())
	r.lastRun.Set(float64(rep.StartedAt.Unix()))
	r.attempts.Set(float64(rep.Attempt))
}

// Push sends the registry to the Pushgateway, replacing the job's group.
func (r *Recorder) Push(ctx context.Context) error {
	if !r.Enabled() {
		r.log.Debug("metrics push disabled")
		return nil
	}
	job := r.job
	if job == "" {
		job = "daily_checkin"
	}
	p := push.New(r.url, job).Gatherer(r.reg)
	if r.client != nil {
		p = p.Client(r.client)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	r.log.Info("metrics pushed", zap.String("gateway", r.url), zap.String("job", job))
	return nil
}

// Package metrics exposes poll and install outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/application"
	"github.com/bnema/repo-digest-notifier/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifier"

// Recorder counts cycle and install outcomes in a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	activities    prometheus.Gauge
	lastSuccess   prometheus.Gauge
	installs      *prometheus.CounterVec
}

var _ ports.Recorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: registry,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of poll cycles in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		activities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_activities",
			Help:      "Open issues and pull requests collected by the last cycle.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_cycle_timestamp_seconds",
			Help:      "Unix time of the last cycle that finished without error.",
		}),
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "install_callbacks_total",
			Help:      "Install callbacks by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(r.cycles, r.cycleDuration, r.activities, r.lastSuccess, r.installs)

	return r
}

func (r *Recorder) CycleCompleted(outcome string, activities int, duration time.Duration) {
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(duration.Seconds())
	r.activities.Set(float64(activities))
	if outcome == application.OutcomeDelivered || outcome == application.OutcomeEmpty {
		r.lastSuccess.SetToCurrentTime()
	}
}

func (r *Recorder) InstallCompleted(outcome string) {
	r.installs.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

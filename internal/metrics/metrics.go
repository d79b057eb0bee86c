// Package metrics records deployment runs in a Prometheus registry.
//
// A run is a short-lived process, so the registry is not served over HTTP.
// It is written once at the end of a run in the text exposition format for
// the node exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrz1836/shipyard/internal/domain"
)

const namespace = "shipyard"

// Recorder holds the run metrics. A nil Recorder ignores every call.
type Recorder struct {
	registry        *prometheus.Registry
	deployments     *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	healthRounds    *prometheus.GaugeVec
	publishAttempts *prometheus.CounterVec
	lastSuccess     *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployment attempts by target and outcome.",
		}, []string{"target", "outcome"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of deployment phases.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		healthRounds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_rounds",
			Help:      "Health rounds used by the last verification of a target.",
		}, []string{"target"}),
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_attempts_total",
			Help:      "Artifact publish attempts by final result.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Completion time of the last successful deployment of a target.",
		}, []string{"target", "revision"}),
	}
	r.registry.MustRegister(
		r.deployments,
		r.phaseDuration,
		r.healthRounds,
		r.publishAttempts,
		r.lastSuccess,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAttempt records a finished deployment attempt.
func (r *Recorder) ObserveAttempt(a *domain.DeploymentAttempt) {
	if r == nil || a == nil {
		return
	}
	target := a.Target.Label()
	r.deployments.WithLabelValues(target, a.Outcome.String()).Inc()

	for _, step := range a.Steps {
		r.phaseDuration.WithLabelValues(step.Phase.String()).Observe(step.Duration.Seconds())
	}
	if a.Health != nil {
		r.healthRounds.WithLabelValues(target).Set(float64(a.Health.Rounds))
	}
	if a.Succeeded() && !a.CompletedAt.IsZero() {
		r.lastSuccess.WithLabelValues(target, domain.ShortRevision(a.Revision)).
			Set(float64(a.CompletedAt.Unix()))
	}
}

// ObservePublish records the publish outcome, counting every attempt it took.
func (r *Recorder) ObservePublish(res *domain.PublishResult) {
	if r == nil || res == nil {
		return
	}
	result := "exhausted"
	if res.Published {
		result = "published"
	}
	r.publishAttempts.WithLabelValues(result).Add(float64(res.Attempts))
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}


package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report scoring and progression activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	assessmentsScored   *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	generationFallbacks *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	adaptations         *prometheus.CounterVec
	conflictRetries     prometheus.Counter
	httpDuration        *prometheus.HistogramVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level metrics instance registered with the global registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Registration errors panic, which surfaces duplicate wiring early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		assessmentsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "karvia",
			Subsystem: "scoring",
			Name:      "assessments_total",
			Help:      "Scored readiness assessments by risk level.",
		}, []string{"risk_level"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "karvia",
			Subsystem: "progression",
			Name:      "evaluations_total",
			Help:      "Stage transition evaluations by outcome.",
		}, []string{"outcome"}),
		generationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "karvia",
			Subsystem: "progression",
			Name:      "content_fallbacks_total",
			Help:      "Stage content generations replaced by the local template.",
		}, []string{"reason"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "karvia",
			Subsystem: "progression",
			Name:      "content_generation_seconds",
			Help:      "Time spent waiting for stage content generation.",
			Buckets:   prometheus.DefBuckets,
		}),
		adaptations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "karvia",
			Subsystem: "adaptation",
			Name:      "actions_total",
			Help:      "Adaptation actions by type and whether they changed any task.",
		}, []string{"action", "applied"}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karvia",
			Subsystem: "progression",
			Name:      "conflict_retries_total",
			Help:      "Journey writes retried after an optimistic concurrency conflict.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "karvia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(
		m.assessmentsScored,
		m.transitions,
		m.generationFallbacks,
		m.generationDuration,
		m.adaptations,
		m.conflictRetries,
		m.httpDuration,
	)
	return m
}

// AssessmentScored counts one scoring call.
func (m *Metrics) AssessmentScored(riskLevel string) {
	if m == nil {
		return
	}
	m.assessmentsScored.WithLabelValues(riskLevel).Inc()
}

// TransitionEvaluated counts one evaluation outcome.
func (m *Metrics) TransitionEvaluated(outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(outcome).Inc()
}

// GenerationFallback counts a fallback template substitution.
func (m *Metrics) GenerationFallback(reason string) {
	if m == nil {
		return
	}
	m.generationFallbacks.WithLabelValues(reason).Inc()
}

// ObserveGeneration records how long a generation attempt took.
func (m *Metrics) ObserveGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(d.Seconds())
}

// AdaptationApplied counts one adaptation action application.
func (m *Metrics) AdaptationApplied(action string, applied bool) {
	if m == nil {
		return
	}
	label := "false"
	if applied {
		label = "true"
	}
	m.adaptations.WithLabelValues(action, label).Inc()
}

// ConflictRetry counts one optimistic concurrency retry.
func (m *Metrics) ConflictRetry() {
	if m == nil {
		return
	}
	m.conflictRetries.Inc()
}

// ObserveHTTP records request latency.
func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}

// Package metrics holds the Prometheus collectors of the approval engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/signoff/model"
)

const namespace = "signoff"

// Outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups engine collectors registered on a dedicated registry.
type Metrics struct {
	registry         *prometheus.Registry
	operations       *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	callbackFailures *prometheus.CounterVec
	escalations      *prometheus.CounterVec
	sideEffects      *prometheus.CounterVec
}

// Operation counts an engine operation by outcome and error code and observes its latency.
func (m *Metrics) Operation(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome, code := OutcomeOK, ""
	if err != nil {
		outcome, code = OutcomeError, string(model.CodeOf(err))
	}
	m.operations.WithLabelValues(operation, outcome, code).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Transition counts an instance reaching status.
func (m *Metrics) Transition(businessType string, status model.InstanceStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(businessType, string(status)).Inc()
}

// CallbackFailure counts a failed or panicking adapter callback.
func (m *Metrics) CallbackFailure(businessType, callback string) {
	if m == nil {
		return
	}
	m.callbackFailures.WithLabelValues(businessType, callback).Inc()
}

// Escalation counts an escalation result: escalated, flagged, timed_out, skipped or failed.
func (m *Metrics) Escalation(result string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(result).Inc()
}

// SideEffectFailure counts a failed notification or invalidation.
func (m *Metrics) SideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(kind).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// New creates collectors on a fresh registry that also exports Go and process metrics.
func New() *Metrics {
	ret := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by outcome and error code.",
		}, []string{"operation", "outcome", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_transitions_total",
			Help:      "Approval instances reaching a status.",
		}, []string{"business_type", "status"}),
		callbackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_failures_total",
			Help:      "Adapter callbacks that returned an error or panicked.",
		}, []string{"business_type", "callback"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Overdue task handling results.",
		}, []string{"result"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Failed best-effort notifications and cache invalidations.",
		}, []string{"kind"}),
	}
	ret.registry.MustRegister(
		ret.operations, ret.duration, ret.transitions, ret.callbackFailures, ret.escalations, ret.sideEffects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return ret
}

// Package metrics holds the Prometheus collectors for chat runs and model calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for dispatch observability.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec   // Completed runs by persona used
	CallsTotal       *prometheus.CounterVec   // Model calls by kind and outcome
	CallDuration     *prometheus.HistogramVec // Model call latency by kind
	TokensTotal      *prometheus.CounterVec   // Tokens consumed by kind
	CacheLookups     *prometheus.CounterVec   // Completion cache lookups by result
	GuardrailTripped prometheus.Counter       // Messages refused by the guardrail
	ActiveSessions   prometheus.Gauge         // Sessions currently held in memory
}

// NewMetrics creates Prometheus metrics for the chat service.
// The registerer parameter allows flexible registration (e.g., global registry, test registry).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webdevchat_runs_total",
		Help: "Total number of dispatch runs by the persona that answered",
	}, []string{"persona"})

	callsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webdevchat_model_calls_total",
		Help: "Total number of model calls by kind (delegate, answer, guardrail) and outcome",
	}, []string{"kind", "outcome"})

	callDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webdevchat_model_call_duration_seconds",
		Help:    "Model call latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	tokensTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webdevchat_model_tokens_total",
		Help: "Total number of tokens reported by the provider",
	}, []string{"kind"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webdevchat_cache_lookups_total",
		Help: "Completion cache lookups by result (hit, miss)",
	}, []string{"result"})

	guardrailTripped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webdevchat_guardrail_tripped_total",
		Help: "Total number of messages refused as off-topic",
	})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webdevchat_active_sessions",
		Help: "Current number of chat sessions held in memory",
	})

	reg.MustRegister(runsTotal, callsTotal, callDuration, tokensTotal, cacheLookups, guardrailTripped, activeSessions)

	return &Metrics{
		RunsTotal:        runsTotal,
		CallsTotal:       callsTotal,
		CallDuration:     callDuration,
		TokensTotal:      tokensTotal,
		CacheLookups:     cacheLookups,
		GuardrailTripped: guardrailTripped,
		ActiveSessions:   activeSessions,
	}
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(persona string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(persona).Inc()
}

// ObserveCall records one model call.
func (m *Metrics) ObserveCall(kind string, d time.Duration, tokens int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.CallsTotal.WithLabelValues(kind, outcome).Inc()
	m.CallDuration.WithLabelValues(kind).Observe(d.Seconds())
	if tokens > 0 {
		m.TokensTotal.WithLabelValues(kind).Add(float64(tokens))
	}
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveGuardrailTrip counts a refused message.
func (m *Metrics) ObserveGuardrailTrip() {
	if m == nil {
		return
	}
	m.GuardrailTripped.Inc()
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

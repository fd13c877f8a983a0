package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is
// valid and records nothing, so components can run without instrumentation.
type Metrics struct {
	turns           *prometheus.CounterVec
	toolDispatches  *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	llmCalls        *prometheus.CounterVec
	knowledgeLookup *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns handled, by outcome.",
		}, []string{"outcome"}),
		toolDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_dispatch_total",
			Help:      "Tool intents dispatched, by intent and outcome.",
		}, []string{"intent", "outcome"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Hotel gateway requests, by endpoint and result.",
		}, []string{"endpoint", "result"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Hotel gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Language capability calls, by phase and result.",
		}, []string{"phase", "result"}),
		knowledgeLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_cache_lookups_total",
			Help:      "Knowledge cache lookups, by hit or miss.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.turns,
		m.toolDispatches,
		m.gatewayRequests,
		m.gatewayLatency,
		m.llmCalls,
		m.knowledgeLookup,
	)
	return m
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveToolDispatch(intent, outcome string) {
	if m == nil {
		return
	}
	m.toolDispatches.WithLabelValues(intent, outcome).Inc()
}

func (m *Metrics) ObserveGatewayRequest(endpoint, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(endpoint, result).Inc()
	m.gatewayLatency.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *Metrics) ObserveLLMCall(phase, result string) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(phase, result).Inc()
}

func (m *Metrics) ObserveKnowledgeLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.knowledgeLookup.WithLabelValues(result).Inc()
}

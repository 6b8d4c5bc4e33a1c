// Package metrics provides Prometheus collectors for tool invocations and
// pending browser requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups every collector exported by agentbook.
// The zero value is not usable; create with New.
type Collectors struct {
	ToolCalls       *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	PendingRequests prometheus.Gauge
}

// New creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered, which suits tests.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentbook",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and result status.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentbook",
			Name:      "tool_call_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentbook",
			Name:      "pending_external_requests",
			Help:      "Tool calls waiting for a browser-side action.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.ToolCalls, c.ToolDuration, c.PendingRequests)
	}
	return c
}

// ObserveToolCall records one invocation. Safe on a nil receiver.
func (c *Collectors) ObserveToolCall(tool, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ToolCalls.WithLabelValues(tool, status).Inc()
	c.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// SetPending reports the number of pending requests. Safe on a nil receiver.
func (c *Collectors) SetPending(n int) {
	if c == nil {
		return
	}
	c.PendingRequests.Set(float64(n))
}

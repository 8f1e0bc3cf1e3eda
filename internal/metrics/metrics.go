// Package metrics holds the prometheus collectors for tool calls and upstream Jenkins requests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jenkins_mcp"

// Recorder groups the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	toolCalls        *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Number of MCP tool calls split by tool and outcome (success or error).",
			},
			[]string{"tool", "outcome"},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Number of requests issued to Jenkins split by method and status code (0 for transport failures).",
			},
			[]string{"method", "code"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of requests issued to Jenkins.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	reg.MustRegister(r.toolCalls, r.upstreamRequests, r.upstreamDuration)
	return r
}

// ToolCall counts a finished tool call.
func (r *Recorder) ToolCall(tool string, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// UpstreamRequest records a request to Jenkins. statusCode is 0 when no response was received.
func (r *Recorder) UpstreamRequest(method string, statusCode int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.upstreamRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	r.upstreamDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

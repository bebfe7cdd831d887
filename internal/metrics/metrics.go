package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// intentsTotal counts classified utterances.
	// Labels: intent (create_ticket, search_tickets, get_ticket_details, list_by_filter, unknown)
	intentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jira_assistant",
		Subsystem: "chat",
		Name:      "intents_total",
		Help:      "Utterances by classified intent",
	}, []string{"intent"})

	// toolCallsTotal counts backend tool invocations.
	// Labels: tool, outcome (ok, validation, backend, transport, ambiguous_reference, timeout)
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jira_assistant",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	toolLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jira_assistant",
		Subsystem: "tools",
		Name:      "latency_seconds",
		Help:      "Tool invocation latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tool"})

	// jiraRequestsTotal counts requests handled by the Jira service.
	// Labels: action, code ("" on success)
	jiraRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jira_assistant",
		Subsystem: "jira",
		Name:      "requests_total",
		Help:      "Jira service requests by action and error code",
	}, []string{"action", "code"})
)

// RecordIntent counts one classified utterance
func RecordIntent(intent string) {
	intentsTotal.WithLabelValues(intent).Inc()
}

// RecordToolCall counts one tool invocation and its latency
func RecordToolCall(tool, outcome string, elapsed time.Duration) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolLatencySeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordJiraRequest counts one request handled by the Jira service
func RecordJiraRequest(action, code string) {
	jiraRequestsTotal.WithLabelValues(action, code).Inc()
}

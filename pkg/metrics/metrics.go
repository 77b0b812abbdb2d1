package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ExecutionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookflow_executions_started_total",
			Help: "Workflow executions accepted by the dispatcher",
		},
	)

	ExecutionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_executions_finished_total",
			Help: "Workflow executions finished, by terminal status",
		},
		[]string{"status"},
	)

	NodeExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_node_executions_total",
			Help: "Node actions executed, by node type and outcome",
		},
		[]string{"node_type", "status"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_webhook_deliveries_total",
			Help: "Inbound webhook handler calls, by outcome",
		},
		[]string{"outcome"},
	)

	ExecutorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hookflow_executor_queue_depth",
			Help: "Tasks waiting in the executor queue",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	PlansBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_plans_built_total",
		Help: "The total number of transaction plans built, by plan kind",
	}, []string{"kind"})

	PlanRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_plan_rejections_total",
		Help: "The total number of synchronously rejected intents, by reason",
	}, []string{"reason"})

	PlanBuildTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payflow_plan_build_seconds",
		Help:    "Time taken to build a transaction plan",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	RoutesEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payflow_routes_evaluated",
		Help:    "Number of surviving routes per optimization",
		Buckets: prometheus.LinearBuckets(1, 1, 5),
	})

	RouteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_route_failures_total",
		Help: "Quote failures during route evaluation, by path kind",
	}, []string{"path"})

	QuoteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payflow_quote_cache_hits_total",
		Help: "Quote cache hits",
	})

	QuoteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payflow_quote_cache_misses_total",
		Help: "Quote cache misses",
	})

	MonitorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payflow_monitor_queue_depth",
		Help: "Number of monitoring jobs waiting for a worker",
	})

	MonitorOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_monitor_outcomes_total",
		Help: "Terminal statuses reached by monitored transactions",
	}, []string{"status"})

	ReceiptWaitTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payflow_receipt_wait_seconds",
		Help:    "Time spent waiting for transaction receipts",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	VendorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_vendor_calls_total",
		Help: "Fulfillment vendor invocations, by outcome",
	}, []string{"outcome"})

	RecoveredRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payflow_recovered_records_total",
		Help: "Pending records re-enqueued by the startup recovery sweep",
	})
)

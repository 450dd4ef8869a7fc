package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики пайплайна выполнения orders.
var (
	// OrdersSubmitted — количество принятых orders по типу.
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_orders_submitted_total",
		Help: "Total orders admitted by the dispatcher",
	}, []string{"type"})

	// OrdersReplayed — количество идемпотентных повторов (новый order не создан).
	OrdersReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foreman_orders_replayed_total",
		Help: "Total idempotent replays returning an existing order",
	})

	// OrdersCompleted — количество завершённых orders по терминальному статусу.
	OrdersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_orders_completed_total",
		Help: "Total orders reaching a terminal status",
	}, []string{"status"})

	// OrderDuration — длительность выполнения order от running до терминала.
	OrderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "foreman_order_duration_seconds",
		Help:    "Order execution duration from running to terminal state",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionsInFlight — выполняющиеся сейчас orders.
	ExecutionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foreman_executions_in_flight",
		Help: "Orders currently being executed",
	})

	// HeartbeatsReceived — принятые heartbeat'ы runner'ов (по каналу).
	HeartbeatsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_heartbeats_received_total",
		Help: "Runner heartbeats received, by channel",
	}, []string{"channel"})
)

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(executorQueueDepth, executorBackoffMultiplier, executorConsecutiveFailures, executorOpsTotal, retriesTotal, cooldownsTotal)
}

var executorQueueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "executor_queue_depth",
		Help: "Number of operations waiting in the rate-limited executor queue.",
	},
)

var executorBackoffMultiplier = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "executor_backoff_multiplier",
		Help: "Current adaptive spacing multiplier applied to the base interval.",
	},
)

var executorConsecutiveFailures = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "executor_consecutive_failures",
		Help: "Consecutive failed operations since the last success.",
	},
)

var executorOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "executor_ops_total",
		Help: "Operations drained from the executor queue, labeled by outcome.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var retriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rate_limit_retries_total",
		Help: "Retry attempts taken after rate-limited failures.",
	},
)

var cooldownsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "cooldowns_triggered_total",
		Help: "System protection cooldown activations.",
	},
)

func SetExecutorQueueDepth(n int) { executorQueueDepth.Set(float64(n)) }

func SetExecutorBackoff(multiplier float64, failures int) {
	executorBackoffMultiplier.Set(multiplier)
	executorConsecutiveFailures.Set(float64(failures))
}

func IncExecutorOp(status string) { executorOpsTotal.WithLabelValues(norm(status)).Inc() }

func IncRetry() { retriesTotal.Inc() }

func IncCooldown() { cooldownsTotal.Inc() }

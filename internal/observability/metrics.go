package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	webhookEventCounter     *prometheus.CounterVec
	screeningOutcomeCounter *prometheus.CounterVec
	failOpenCounter         *prometheus.CounterVec
	reviewDecisionCounter   *prometheus.CounterVec
	reversalOutcomeCounter  *prometheus.CounterVec
	reversalQueueGauge      prometheus.Gauge
	ledgerViolationCounter  *prometheus.CounterVec
	settlementQueueGauge    prometheus.Gauge
	idempotencyCounter      *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		webhookEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound rail notifications by intake outcome",
		}, []string{"outcome"})

		screeningOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screening_outcomes_total",
			Help: "Settlement outcomes: pending, blocked, ignored, failed",
		}, []string{"outcome"})

		failOpenCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screening_fail_open_total",
			Help: "Screening dependency failures that were allowed through",
		}, []string{"dependency"})

		reviewDecisionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Reviewer decisions on pending payments",
		}, []string{"action", "result"})

		reversalOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reversal_outcomes_total",
			Help: "Outbound reversal attempts by status",
		}, []string{"status"})

		reversalQueueGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reversal_manual_queue_size",
			Help: "Failed reversals waiting for manual intervention",
		})

		ledgerViolationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_invariant_violations_total",
			Help: "Ledger invariant violations found by reconciliation",
		}, []string{"check"})

		settlementQueueGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_queue_depth",
			Help: "Webhooks queued for settlement",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			webhookEventCounter,
			screeningOutcomeCounter,
			failOpenCounter,
			reviewDecisionCounter,
			reversalOutcomeCounter,
			reversalQueueGauge,
			ledgerViolationCounter,
			settlementQueueGauge,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementWebhookEvent(outcome string) {
	if webhookEventCounter == nil {
		return
	}
	webhookEventCounter.WithLabelValues(outcome).Inc()
}

func IncrementScreeningOutcome(outcome string) {
	if screeningOutcomeCounter == nil {
		return
	}
	screeningOutcomeCounter.WithLabelValues(outcome).Inc()
}

func IncrementFailOpen(dependency string) {
	if failOpenCounter == nil {
		return
	}
	failOpenCounter.WithLabelValues(dependency).Inc()
}

func IncrementReviewDecision(action, result string) {
	if reviewDecisionCounter == nil {
		return
	}
	reviewDecisionCounter.WithLabelValues(action, result).Inc()
}

func IncrementReversalOutcome(status string) {
	if reversalOutcomeCounter == nil {
		return
	}
	reversalOutcomeCounter.WithLabelValues(status).Inc()
}

func SetReversalQueueSize(size int64) {
	if reversalQueueGauge == nil {
		return
	}
	reversalQueueGauge.Set(float64(size))
}

func IncrementLedgerViolation(check string) {
	if ledgerViolationCounter == nil {
		return
	}
	ledgerViolationCounter.WithLabelValues(check).Inc()
}

func SetSettlementQueueDepth(depth int) {
	if settlementQueueGauge == nil {
		return
	}
	settlementQueueGauge.Set(float64(depth))
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

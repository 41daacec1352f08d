// Package metrics exposes Prometheus collectors for rounds, bets, push
// connections and the outbox relay.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcdev12/foguetinho/go/internal/events"
)

const namespace = "foguetinho"

var (
	roundsEndedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_ended_total",
			Help:      "Total number of rounds ended labeled by mode and reason",
		},
		[]string{"mode", "reason"},
	)
	crashMultiplier = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crash_multiplier",
			Help:      "Final multiplier of ended rounds",
			Buckets:   []float64{1.01, 1.25, 1.5, 2, 3, 5, 7.5, 10, 25, 100},
		},
	)
	betsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_total",
			Help:      "Total number of bets labeled by outcome (placed, win, lose)",
		},
		[]string{"result"},
	)
	wageredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wagered_units_total",
			Help:      "Total currency units staked",
		},
	)
	paidOutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paid_out_units_total",
			Help:      "Total currency units paid out on cash-out",
		},
	)
	onlineConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Current number of push-channel subscribers",
		},
	)
	outboxPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox publish attempts labeled by event type and status",
		},
		[]string{"event_type", "status"},
	)
	outboxPublishSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_publish_duration_seconds",
			Help:      "Duration of outbox publishes in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)
	outboxBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_batch_size",
			Help:      "Number of events relayed per poll",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)
	outboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_lag",
			Help:      "Unsent events seen by the last poll",
		},
	)
)

// RecordBetsLost counts bets swept to lose at round end
func RecordBetsLost(count int) {
	if count <= 0 {
		return
	}
	betsTotal.WithLabelValues("lose").Add(float64(count))
}

// SetOnline updates the push-channel subscriber gauge
func SetOnline(count int) {
	onlineConnections.Set(float64(count))
}

// Recorder derives metrics from bus events
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) HandleEvent(_ context.Context, ev events.Event) {
	switch e := ev.(type) {
	case events.RoundEndPayload:
		mode, reason := string(e.Mode), string(e.Reason)
		if mode == "" {
			mode = "unknown"
		}
		if reason == "" {
			reason = "unknown"
		}
		roundsEndedTotal.WithLabelValues(mode, reason).Inc()
		crashMultiplier.Observe(e.CrashAt)
	case events.BetPlacedPayload:
		betsTotal.WithLabelValues("placed").Inc()
		wageredTotal.Add(float64(e.Amount))
	case events.CashoutPayload:
		betsTotal.WithLabelValues("win").Inc()
		paidOutTotal.Add(float64(e.Payout))
	}
}

// OutboxMetrics implements outbox.MetricsCollector on Prometheus
type OutboxMetrics struct{}

func NewOutboxMetrics() *OutboxMetrics {
	return &OutboxMetrics{}
}

func (OutboxMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	outboxPublishSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (OutboxMetrics) RecordBatchProcessed(count int, _ time.Duration) {
	outboxBatchSize.Observe(float64(count))
}

func (OutboxMetrics) RecordOutboxLag(lag int) {
	outboxLag.Set(float64(lag))
}

func (OutboxMetrics) RecordPublishAttempt(eventType string, _ int, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	outboxPublishTotal.WithLabelValues(eventType, status).Inc()
}

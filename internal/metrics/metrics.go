// Package metrics exposes the engine's Prometheus instrumentation: events
// published, webhook delivery outcome/latency, and dispatcher tick
// duration. Ambient observability the teacher carries on every service
// regardless of which domain features are in scope.
//
// Grounded on instagrim-dev-fitpulse's internal/observability package
// (package-level prometheus.NewCounter/NewHistogram vars registered in
// init, thin Record* wrapper functions).
//
// Import Path: github.com/eventstore/eventcore/internal/metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventcore",
		Subsystem: "eventstore",
		Name:      "events_published_total",
		Help:      "Events successfully appended to a topic, by topic.",
	}, []string{"topic"})

	eventsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventcore",
		Subsystem: "eventstore",
		Name:      "events_rejected_total",
		Help:      "Publish attempts rejected before append, by reason.",
	}, []string{"reason"})

	deliveryOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventcore",
		Subsystem: "dispatcher",
		Name:      "delivery_outcome_total",
		Help:      "Webhook delivery attempts, by outcome (success, failure, parked).",
	}, []string{"outcome"})

	deliveryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventcore",
		Subsystem: "dispatcher",
		Name:      "delivery_latency_seconds",
		Help:      "Webhook round-trip latency, successful deliveries only.",
		Buckets:   prometheus.DefBuckets,
	})

	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventcore",
		Subsystem: "dispatcher",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of one dispatcher tick across all topics.",
		Buckets:   prometheus.DefBuckets,
	})

	parkedConsumers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventcore",
		Subsystem: "dispatcher",
		Name:      "parked_consumers",
		Help:      "Consumers currently parked after exhausting their retry budget.",
	})
)

func init() {
	prometheus.MustRegister(
		eventsPublished,
		eventsRejected,
		deliveryOutcome,
		deliveryLatency,
		tickDuration,
		parkedConsumers,
	)
}

// RecordEventPublished increments the per-topic publish counter.
func RecordEventPublished(topic string) {
	eventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventRejected increments the rejection counter for a given reason
// (e.g. "validation_failure", "invalid_argument").
func RecordEventRejected(reason string) {
	eventsRejected.WithLabelValues(reason).Inc()
}

// RecordDeliverySuccess records a successful webhook delivery and its
// latency.
func RecordDeliverySuccess(latency time.Duration) {
	deliveryOutcome.WithLabelValues("success").Inc()
	deliveryLatency.Observe(latency.Seconds())
}

// RecordDeliveryFailure records a failed (but not yet parking) delivery
// attempt.
func RecordDeliveryFailure() {
	deliveryOutcome.WithLabelValues("failure").Inc()
}

// RecordConsumerParked records a consumer crossing into the parked state.
func RecordConsumerParked() {
	deliveryOutcome.WithLabelValues("parked").Inc()
	parkedConsumers.Inc()
}

// RecordConsumerResumed reflects a parked consumer being manually resumed.
func RecordConsumerResumed() {
	parkedConsumers.Dec()
}

// RecordTick observes one dispatcher tick's wall-clock duration.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

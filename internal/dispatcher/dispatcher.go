// Package dispatcher implements the Dispatcher component: at-least-once,
// per-(consumer,topic) ordered webhook delivery with exponential backoff
// and consumer parking.
//
// Grounded on the teacher's ants-backed worker pool for bounded fan-out
// (internal/pkg/worker.Pools, here used via its Delivery pool) and on the
// teacher's context-driven service lifecycle (ticker loop + cancellation).
//
// Import Path: github.com/eventstore/eventcore/internal/dispatcher
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventstore/eventcore/internal/domain"
	"github.com/eventstore/eventcore/internal/eventstore"
	"github.com/eventstore/eventcore/internal/metrics"
	"github.com/eventstore/eventcore/internal/pkg/logger"
	"github.com/eventstore/eventcore/internal/pkg/worker"
)

// ConsumerDirectory is the slice of ConsumerRegistry the dispatcher needs.
type ConsumerDirectory interface {
	FindByTopic(qualifiedTopic string) []domain.Consumer
	UpdateCursor(id, qualifiedTopic, lastEventIDText string) error
	RecordFailure(id, qualifiedTopic string) (int, error)
	Park(id string) error
}

// TopicDirectory is the slice of TopicRegistry the dispatcher needs.
type TopicDirectory interface {
	GetAllTopics() []domain.Topic
}

// Config controls tick cadence, batching, and retry behavior.
type Config struct {
	TickInterval    time.Duration
	BatchSize       int
	DeliveryTimeout time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// Dispatcher polls every (topic, consumer) pair on a tick and drives
// webhook delivery. Pairs are processed concurrently; within a single
// pair, delivery is strictly serialized because a tick is skipped for any
// pair still in flight from a previous tick.
type Dispatcher struct {
	cfg       Config
	topics    TopicDirectory
	consumers ConsumerDirectory
	store     eventstore.Store
	pool      *worker.Pools
	deliverer Deliverer

	mu          sync.Mutex
	inFlight    map[string]bool
	nextAttempt map[string]time.Time
}

// New constructs a Dispatcher. store must be the same backend the
// EventStore component persists to.
func New(cfg Config, topics TopicDirectory, consumers ConsumerDirectory, store eventstore.Store, pool *worker.Pools, deliverer Deliverer) *Dispatcher {
	return &Dispatcher{
		cfg:         cfg,
		topics:      topics,
		consumers:   consumers,
		store:       store,
		pool:        pool,
		deliverer:   deliverer,
		inFlight:    make(map[string]bool),
		nextAttempt: make(map[string]time.Time),
	}
}

// Run blocks, ticking until ctx is cancelled. Intended to be launched in
// its own goroutine by the service's lifecycle wiring.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	logger.Info("dispatcher started", zap.Duration("tick_interval", d.cfg.TickInterval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	started := time.Now()
	defer func() { metrics.RecordTick(time.Since(started)) }()

	now := started
	for _, t := range d.topics.GetAllTopics() {
		scope := domain.Scope{TenantName: t.TenantName, NamespaceName: t.NamespaceName}
		qualified := scope.Qualified(t.Name)
		for _, c := range d.consumers.FindByTopic(qualified) {
			if c.Status == domain.ConsumerStatusParked {
				continue
			}
			pairKey := c.ID + "|" + qualified
			if !d.claim(pairKey, now) {
				continue
			}
			consumer, topicName, topicScope := c, t.Name, scope
			d.submit(func(taskCtx context.Context) {
				defer d.release(pairKey)
				d.deliverToPair(taskCtx, consumer, topicName, qualified, topicScope)
			})
		}
	}
}

// claim reports whether pairKey is eligible to run now: not already in
// flight, and not within its backoff window.
func (d *Dispatcher) claim(pairKey string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[pairKey] {
		return false
	}
	if until, ok := d.nextAttempt[pairKey]; ok && now.Before(until) {
		return false
	}
	d.inFlight[pairKey] = true
	return true
}

func (d *Dispatcher) release(pairKey string) {
	d.mu.Lock()
	delete(d.inFlight, pairKey)
	d.mu.Unlock()
}

func (d *Dispatcher) scheduleRetry(pairKey string, attempt int) {
	delay := nextBackoff(attempt, d.cfg.InitialBackoff, d.cfg.MaxBackoff)
	d.mu.Lock()
	d.nextAttempt[pairKey] = time.Now().Add(delay)
	d.mu.Unlock()
}

func (d *Dispatcher) clearRetry(pairKey string) {
	d.mu.Lock()
	delete(d.nextAttempt, pairKey)
	d.mu.Unlock()
}

func (d *Dispatcher) submit(task worker.Task) {
	if d.pool == nil {
		task(context.Background())
		return
	}
	if err := d.pool.SubmitDetached("delivery", task); err != nil {
		logger.Error("dispatcher failed to submit delivery task", zap.Error(err))
		task(context.Background())
	}
}

func (d *Dispatcher) deliverToPair(ctx context.Context, c domain.Consumer, topicName, qualified string, scope domain.Scope) {
	pairKey := c.ID + "|" + qualified
	since := sinceEventID(topicName, scope, c.Topics[qualified])

	events, err := d.store.GetEvents(topicName, eventstore.Filter{SinceEventID: since, Limit: d.cfg.BatchSize}, scope)
	if err != nil {
		logger.Error("dispatcher failed to read events for delivery", zap.String("consumer_id", c.ID), zap.String("topic", qualified), zap.Error(err))
		return
	}
	if len(events) == 0 {
		return
	}

	attemptStarted := time.Now()
	deliverCtx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	status, err := d.deliverer.Deliver(deliverCtx, c.CallbackURL, c.ID, events)
	cancel()

	if err == nil && isSuccess(status) {
		metrics.RecordDeliverySuccess(time.Since(attemptStarted))
		last := events[len(events)-1]
		if cursorErr := d.consumers.UpdateCursor(c.ID, qualified, last.ID.String()); cursorErr != nil {
			logger.Error("dispatcher failed to advance consumer cursor", zap.String("consumer_id", c.ID), zap.Error(cursorErr))
		}
		d.clearRetry(pairKey)
		return
	}

	metrics.RecordDeliveryFailure()
	logger.Warn("webhook delivery failed",
		zap.String("consumer_id", c.ID),
		zap.String("topic", qualified),
		zap.Int("status", status),
		zap.Error(err),
	)
	count, failErr := d.consumers.RecordFailure(c.ID, qualified)
	if failErr != nil {
		logger.Error("dispatcher failed to record delivery failure", zap.String("consumer_id", c.ID), zap.Error(failErr))
		return
	}
	if count >= d.cfg.MaxAttempts {
		if parkErr := d.consumers.Park(c.ID); parkErr != nil {
			logger.Error("dispatcher failed to park consumer", zap.String("consumer_id", c.ID), zap.Error(parkErr))
		}
		metrics.RecordConsumerParked()
		d.clearRetry(pairKey)
		return
	}
	d.scheduleRetry(pairKey, count)
}

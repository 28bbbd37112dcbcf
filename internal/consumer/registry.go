// Package consumer implements ConsumerRegistry: lifecycle and lookup of
// webhook subscribers, plus the registration validation the dispatcher and
// HTTP façade both depend on.
//
// Grounded on the teacher's per-resource locking discipline (ADR-0031), the
// same pattern applied by internal/topic.Registry: one mutex per consumer
// id, copy-on-read snapshots, a pluggable Store for durability.
//
// Import Path: github.com/eventstore/eventcore/internal/consumer
package consumer

import (
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
	"github.com/eventstore/eventcore/internal/pkg/logger"
)

// Store persists Consumer records.
type Store interface {
	Save(c domain.Consumer) error
	Delete(id string) error
	LoadAll() ([]domain.Consumer, error)
}

// TopicExistence is the narrow slice of TopicRegistry registration needs:
// every topic a consumer subscribes to must already exist.
type TopicExistence interface {
	TopicExists(name string, scope domain.Scope) bool
}

type entry struct {
	mu       sync.Mutex
	consumer domain.Consumer
}

// Registry is the ConsumerRegistry implementation.
type Registry struct {
	store  Store
	topics TopicExistence

	mu      sync.RWMutex
	entries map[string]*entry
}

// New constructs a Registry backed by store, loading any previously
// persisted consumers. topics is consulted during Register to reject
// subscriptions to topics that don't exist.
func New(store Store, topics TopicExistence) (*Registry, error) {
	r := &Registry{store: store, topics: topics, entries: make(map[string]*entry)}
	existing, err := store.LoadAll()
	if err != nil {
		return nil, apperrors.Config("CONSUMER_STORE_LOAD_FAILED", "loading existing consumers", err)
	}
	for _, c := range existing {
		r.entries[c.ID] = &entry{consumer: c}
	}
	return r, nil
}

// Register validates and persists a new consumer. Validation requires: an
// absolute (scheme + host) callback URL, a non-empty topic subscription
// set, and every subscribed topic to already exist in the TopicRegistry.
func (r *Registry) Register(id, callbackURL string, topics map[string]string) (domain.Consumer, error) {
	if err := validateCallbackURL(callbackURL); err != nil {
		return domain.Consumer{}, err
	}
	if len(topics) == 0 {
		return domain.Consumer{}, apperrors.InvalidArgument("CONSUMER_NO_TOPICS", "a consumer must subscribe to at least one topic")
	}
	for qualified := range topics {
		scope, name := domain.SplitQualified(qualified)
		if !r.topics.TopicExists(name, scope) {
			return domain.Consumer{}, apperrors.InvalidArgument("CONSUMER_UNKNOWN_TOPIC", "subscribed topic does not exist: "+qualified)
		}
	}

	c := domain.Consumer{
		ID:           id,
		CallbackURL:  callbackURL,
		Topics:       topics,
		Status:       domain.ConsumerStatusActive,
		FailureCount: make(map[string]int, len(topics)),
	}

	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return domain.Consumer{}, apperrors.Conflict("CONSUMER_ALREADY_EXISTS", "consumer already registered: "+id)
	}
	e := &entry{consumer: c}
	r.entries[id] = e
	r.mu.Unlock()

	if err := r.store.Save(c); err != nil {
		r.mu.Lock()
		delete(r.entries, id)
		r.mu.Unlock()
		return domain.Consumer{}, apperrors.Storage("CONSUMER_SAVE_FAILED", "persisting new consumer", err)
	}
	logger.Info("consumer registered", zap.String("consumer_id", id), zap.Int("topic_count", len(topics)))
	return c.Clone(), nil
}

// FindByID returns a copy-on-read snapshot, or ErrConsumerNotFound.
func (r *Registry) FindByID(id string) (domain.Consumer, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Consumer{}, apperrors.ErrConsumerNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consumer.Clone(), nil
}

// FindAll returns a snapshot of every registered consumer.
func (r *Registry) FindAll() []domain.Consumer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Consumer, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		out = append(out, e.consumer.Clone())
		e.mu.Unlock()
	}
	return out
}

// FindByTopic returns every consumer subscribed to the qualified topic
// name, regardless of status (the dispatcher filters parked consumers
// itself so park/resume transitions are observable without re-querying).
func (r *Registry) FindByTopic(qualifiedTopic string) []domain.Consumer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Consumer
	for _, e := range r.entries {
		e.mu.Lock()
		if e.consumer.SubscribesTo(qualifiedTopic) {
			out = append(out, e.consumer.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// FindByTenantAndNamespace returns every consumer with at least one
// subscription scoped to the given tenant/namespace.
func (r *Registry) FindByTenantAndNamespace(scope domain.Scope) []domain.Consumer {
	prefix := scope.Qualified("")
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Consumer
	for _, e := range r.entries {
		e.mu.Lock()
		for qualified := range e.consumer.Topics {
			if hasQualifiedPrefix(qualified, prefix) {
				out = append(out, e.consumer.Clone())
				break
			}
		}
		e.mu.Unlock()
	}
	return out
}

// Delete removes a consumer permanently. Consumers are never deleted by
// the dispatcher itself (Open Question (a)); this is an explicit operator
// action.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return apperrors.ErrConsumerNotFound
	}
	delete(r.entries, id)
	r.mu.Unlock()

	if err := r.store.Delete(id); err != nil {
		return apperrors.Storage("CONSUMER_DELETE_FAILED", "deleting consumer", err)
	}
	return nil
}

// Count reports the number of registered consumers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// UpdateCursor advances a consumer's last-delivered EventID text for one
// topic and resets its failure count, called by the dispatcher after a
// successful delivery.
func (r *Registry) UpdateCursor(id, qualifiedTopic, lastEventIDText string) error {
	e, ok := r.lookup(id)
	if !ok {
		return apperrors.ErrConsumerNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consumer.Topics[qualifiedTopic] = lastEventIDText
	delete(e.consumer.FailureCount, qualifiedTopic)
	return r.store.Save(e.consumer)
}

// RecordFailure increments the per-topic failure counter, used by the
// dispatcher to drive exponential backoff and to decide when to park.
func (r *Registry) RecordFailure(id, qualifiedTopic string) (int, error) {
	e, ok := r.lookup(id)
	if !ok {
		return 0, apperrors.ErrConsumerNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.consumer.FailureCount == nil {
		e.consumer.FailureCount = make(map[string]int)
	}
	e.consumer.FailureCount[qualifiedTopic]++
	count := e.consumer.FailureCount[qualifiedTopic]
	if err := r.store.Save(e.consumer); err != nil {
		return count, apperrors.Storage("CONSUMER_SAVE_FAILED", "persisting failure count", err)
	}
	return count, nil
}

// Park marks a consumer as parked after its retry budget for a topic is
// exhausted. Parked consumers are never auto-deleted; only Resume
// reactivates them.
func (r *Registry) Park(id string) error {
	e, ok := r.lookup(id)
	if !ok {
		return apperrors.ErrConsumerNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consumer.Status = domain.ConsumerStatusParked
	if err := r.store.Save(e.consumer); err != nil {
		return apperrors.Storage("CONSUMER_SAVE_FAILED", "persisting parked status", err)
	}
	logger.Warn("consumer parked", zap.String("consumer_id", id))
	return nil
}

// Resume reactivates a parked consumer and clears all its failure
// counters, the manual recovery path for Open Question (a)'s parking
// policy.
func (r *Registry) Resume(id string) error {
	e, ok := r.lookup(id)
	if !ok {
		return apperrors.ErrConsumerNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consumer.Status = domain.ConsumerStatusActive
	e.consumer.FailureCount = make(map[string]int)
	if err := r.store.Save(e.consumer); err != nil {
		return apperrors.Storage("CONSUMER_SAVE_FAILED", "persisting resume", err)
	}
	logger.Info("consumer resumed", zap.String("consumer_id", id))
	return nil
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	return e, ok
}

func validateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperrors.InvalidArgument("CONSUMER_INVALID_CALLBACK_URL", "callback must be an absolute URL: "+raw)
	}
	return nil
}

func hasQualifiedPrefix(qualified, prefix string) bool {
	if prefix == "" {
		return true
	}
	return len(qualified) >= len(prefix) && qualified[:len(prefix)] == prefix
}

// Package topic implements TopicRegistry: lifecycle of topics and atomic
// allocation of monotonically increasing per-topic sequence numbers.
//
// Grounded on the teacher's per-resource locking pattern (ADR-0031:
// concurrency must go through explicit, named synchronization rather than
// ad hoc mutexes) — here realized as one mutex per qualified topic name,
// held for createTopic / getAndIncrementSequence / updateSequence /
// updateSchemas; reads take the same mutex briefly and return copy-on-read
// snapshots.
//
// Import Path: github.com/eventstore/eventcore/internal/topic
package topic

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
	"github.com/eventstore/eventcore/internal/pkg/logger"
	"github.com/eventstore/eventcore/internal/schema"
)

// ConfigStore persists the Topic record itself (§6 topic config file
// layout). The registry is storage-agnostic: a FileConfigStore or an
// in-memory MemoryConfigStore both satisfy this.
type ConfigStore interface {
	Save(t domain.Topic) error
	Load(scope domain.Scope, name string) (domain.Topic, bool, error)
	LoadAll() ([]domain.Topic, error)
}

// entry bundles a topic's current snapshot with its per-topic mutex.
type entry struct {
	mu    sync.Mutex
	topic domain.Topic
}

// Registry is the TopicRegistry implementation.
type Registry struct {
	validator *schema.Validator
	store     ConfigStore

	mu      sync.RWMutex // guards the entries map itself, not individual topics
	entries map[string]*entry
}

// New constructs a Registry backed by the given ConfigStore, loading any
// previously persisted topics (including the legacy flat-file layout the
// store implementation understands).
func New(validator *schema.Validator, store ConfigStore) (*Registry, error) {
	r := &Registry{
		validator: validator,
		store:     store,
		entries:   make(map[string]*entry),
	}
	existing, err := store.LoadAll()
	if err != nil {
		return nil, apperrors.Config("TOPIC_CONFIG_LOAD_FAILED", "loading existing topic configs", err)
	}
	for _, t := range existing {
		key := registryKey(domain.Scope{TenantName: t.TenantName, NamespaceName: t.NamespaceName}, t.Name)
		r.entries[key] = &entry{topic: t}
		if err := validator.RegisterSchemas(t.Name, t.Schemas); err != nil {
			logger.Warn("skipping invalid persisted schema set", zap.String("topic", t.Name), zap.Error(err))
		}
	}
	return r, nil
}

func registryKey(scope domain.Scope, name string) string {
	return scope.Qualified(name)
}

// CreateTopic creates a new topic starting at sequence 0. Fails with
// TopicAlreadyExists if the (tenant, namespace, name) triple is already
// registered.
func (r *Registry) CreateTopic(resourceID, tenantResourceID, namespaceResourceID, name string, schemas []domain.Schema, scope domain.Scope) (domain.Topic, error) {
	key := registryKey(scope, name)

	r.mu.Lock()
	if _, exists := r.entries[key]; exists {
		r.mu.Unlock()
		return domain.Topic{}, apperrors.ErrTopicAlreadyExists
	}
	e := &entry{}
	r.entries[key] = e
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.validator.RegisterSchemas(name, schemas); err != nil {
		r.mu.Lock()
		delete(r.entries, key)
		r.mu.Unlock()
		return domain.Topic{}, err
	}

	t := domain.Topic{
		ResourceID:          resourceID,
		TenantResourceID:    tenantResourceID,
		NamespaceResourceID: namespaceResourceID,
		TenantName:          scope.TenantName,
		NamespaceName:       scope.NamespaceName,
		Name:                name,
		Sequence:            0,
		Schemas:             schemas,
	}
	if err := r.store.Save(t); err != nil {
		r.mu.Lock()
		delete(r.entries, key)
		r.mu.Unlock()
		return domain.Topic{}, apperrors.Storage("TOPIC_CONFIG_SAVE_FAILED", "persisting new topic", err)
	}
	e.topic = t
	logger.Info("topic created", zap.String("topic", name), zap.String("tenant", scope.TenantName), zap.String("namespace", scope.NamespaceName))
	return t.Clone(), nil
}

// GetTopic returns a copy-on-read snapshot of the topic, or
// ErrTopicNotFound.
func (r *Registry) GetTopic(name string, scope domain.Scope) (domain.Topic, error) {
	e, ok := r.lookup(name, scope)
	if !ok {
		return domain.Topic{}, apperrors.ErrTopicNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topic.Clone(), nil
}

// TopicExists reports whether the topic is registered.
func (r *Registry) TopicExists(name string, scope domain.Scope) bool {
	_, ok := r.lookup(name, scope)
	return ok
}

// GetAllTopics walks all registered scopes.
func (r *Registry) GetAllTopics() []domain.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Topic, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		out = append(out, e.topic.Clone())
		e.mu.Unlock()
	}
	return out
}

// UpdateSequence unconditionally sets the stored sequence. Used by
// recovery tooling and tests; production code should prefer
// GetAndIncrementSequence.
func (r *Registry) UpdateSequence(name string, sequence int64, scope domain.Scope) error {
	e, ok := r.lookup(name, scope)
	if !ok {
		return apperrors.ErrTopicNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.topic.Sequence = sequence
	if err := r.store.Save(e.topic); err != nil {
		return apperrors.Storage("TOPIC_CONFIG_SAVE_FAILED", "persisting sequence update", err)
	}
	return nil
}

// GetAndIncrementSequence atomically allocates the next sequence number
// for a topic and returns it. This is the sole source of sequence numbers
// for newly published events.
func (r *Registry) GetAndIncrementSequence(name string, scope domain.Scope) (int64, error) {
	e, ok := r.lookup(name, scope)
	if !ok {
		return 0, apperrors.ErrTopicNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.topic.Sequence + 1
	e.topic.Sequence = next
	if err := r.store.Save(e.topic); err != nil {
		// Roll back the in-memory bump so a storage failure never leaves
		// the registry ahead of what's durable.
		e.topic.Sequence = next - 1
		return 0, apperrors.Storage("TOPIC_CONFIG_SAVE_FAILED", "persisting sequence allocation", err)
	}
	return next, nil
}

// UpdateSchemas applies an additive/modifying schema change. Removing an
// eventType that previously existed fails with InvalidArgument. Sequence
// is preserved.
func (r *Registry) UpdateSchemas(name string, newSchemas []domain.Schema, scope domain.Scope) (domain.Topic, error) {
	e, ok := r.lookup(name, scope)
	if !ok {
		return domain.Topic{}, apperrors.ErrTopicNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	existing := e.topic.SchemaEventTypes()
	next := make(map[string]struct{}, len(newSchemas))
	for _, s := range newSchemas {
		next[s.EventType] = struct{}{}
	}
	for et := range existing {
		if _, stillPresent := next[et]; !stillPresent {
			return domain.Topic{}, apperrors.InvalidArgument(
				"SCHEMA_EVENT_TYPE_REMOVED",
				"updateSchemas must not remove a previously registered eventType: "+et,
			)
		}
	}

	if err := r.validator.RegisterSchemas(name, newSchemas); err != nil {
		return domain.Topic{}, err
	}

	e.topic.Schemas = newSchemas
	if err := r.store.Save(e.topic); err != nil {
		return domain.Topic{}, apperrors.Storage("TOPIC_CONFIG_SAVE_FAILED", "persisting schema update", err)
	}
	return e.topic.Clone(), nil
}

func (r *Registry) lookup(name string, scope domain.Scope) (*entry, bool) {
	key := registryKey(scope, name)
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	return e, ok
}

package eventstore

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
)

// MemoryStore keeps events in an ordered per-(tenant,namespace,topic) slice.
// Used for tests, the "memory" storage backend, and system-topic bootstrap
// in deployments that don't need durability across restarts.
type MemoryStore struct {
	mu  sync.RWMutex
	loc *time.Location
	// events[scopedTopicKey] holds events in append (== sequence) order.
	events map[string][]domain.Event
}

// NewMemoryStore constructs an empty store. loc is used to evaluate
// Filter.Date; pass nil for UTC.
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{loc: loc, events: make(map[string][]domain.Event)}
}

func scopedTopicKey(topic string, scope domain.Scope) string {
	return scope.Qualified(topic)
}

// StoreEvent implements Store.
func (m *MemoryStore) StoreEvent(topic, eventType string, payload json.RawMessage, eventID domain.EventID, timestamp time.Time, scope domain.Scope) (domain.Event, error) {
	evt := domain.Event{ID: eventID, Timestamp: timestamp, Type: eventType, Payload: payload}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedTopicKey(topic, scope)
	m.events[key] = append(m.events[key], evt)
	return evt, nil
}

// StoreEvents implements Store. The in-memory backend can't partially fail,
// so the batch is always fully applied or (on nothing, since there's
// nothing to fail) never applied.
func (m *MemoryStore) StoreEvents(pending []PendingEvent, scope domain.Scope) ([]domain.Event, error) {
	if len(pending) == 0 {
		return nil, apperrors.InvalidArgument("EMPTY_BATCH", "events must not be empty")
	}
	out := make([]domain.Event, 0, len(pending))

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pending {
		evt := domain.Event{ID: p.EventID, Timestamp: p.Timestamp, Type: p.Type, Payload: p.Payload}
		key := scopedTopicKey(p.Topic, scope)
		m.events[key] = append(m.events[key], evt)
		out = append(out, evt)
	}
	return out, nil
}

// GetEvent implements Store.
func (m *MemoryStore) GetEvent(topic string, eventID domain.EventID, scope domain.Scope) (domain.Event, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events[scopedTopicKey(topic, scope)] {
		if e.ID.Sequence == eventID.Sequence {
			return e, true, nil
		}
	}
	return domain.Event{}, false, nil
}

// GetEvents implements Store.
func (m *MemoryStore) GetEvents(topic string, filter Filter, scope domain.Scope) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	since := filter.sinceSequence()
	collector := topN(filter.Limit)
	for _, e := range m.events[scopedTopicKey(topic, scope)] {
		if e.ID.Sequence <= since {
			continue
		}
		if !filter.matchesDate(e.Timestamp, m.loc) {
			continue
		}
		collector.offer(e)
	}
	return collector.result(), nil
}

// GetLatestEventID implements Store.
func (m *MemoryStore) GetLatestEventID(topic string, scope domain.Scope) (domain.EventID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.events[scopedTopicKey(topic, scope)]
	if len(events) == 0 {
		return domain.EventID{}, false, nil
	}
	return events[len(events)-1].ID, true, nil
}

var _ Store = (*MemoryStore)(nil)

// CountEvents reports how many events a topic has stored in the given
// scope.
func (m *MemoryStore) CountEvents(topic string, scope domain.Scope) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events[scopedTopicKey(topic, scope)])
}

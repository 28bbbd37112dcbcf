// Package eventstore implements EventStore: durable append and ordered,
// filtered retrieval of events per (tenant, namespace, topic).
//
// Two backends satisfy the same Store interface: MemoryStore (an ordered
// per-scope slice, used in tests and small deployments) and FileStore (the
// hierarchical on-disk layout from §4.3). Both share the Filter matching
// logic in this file and the bounded-heap top-N selection in filter.go so
// the two backends stay behaviorally identical.
//
// Import Path: github.com/eventstore/eventcore/internal/eventstore
package eventstore

import (
	"encoding/json"
	"time"

	"github.com/eventstore/eventcore/internal/domain"
)

// Store is the EventStore contract. Sequence numbers in eventID are
// assumed to have already been allocated by TopicRegistry.
// GetAndIncrementSequence; EventStore never allocates sequences itself.
type Store interface {
	// StoreEvent persists a single event atomically.
	StoreEvent(topic, eventType string, payload json.RawMessage, eventID domain.EventID, timestamp time.Time, scope domain.Scope) (domain.Event, error)

	// StoreEvents persists a batch atomically on a best-effort basis: on
	// failure, events already written in this batch are cleaned up before
	// the error is surfaced.
	StoreEvents(events []PendingEvent, scope domain.Scope) ([]domain.Event, error)

	// GetEvent performs a point lookup, returning (zero, false, nil) when
	// absent.
	GetEvent(topic string, eventID domain.EventID, scope domain.Scope) (domain.Event, bool, error)

	// GetEvents returns events matching the given filters, strictly
	// ordered by (topic, sequence).
	GetEvents(topic string, filter Filter, scope domain.Scope) ([]domain.Event, error)

	// GetLatestEventID returns the highest-sequence event id for the
	// topic, or (zero, false, nil) if the topic has no events.
	GetLatestEventID(topic string, scope domain.Scope) (domain.EventID, bool, error)
}

// PendingEvent is an unsequenced event ready to be persisted; its
// EventID.Sequence must already have been allocated by the caller via
// TopicRegistry.GetAndIncrementSequence.
type PendingEvent struct {
	Topic     string
	Type      string
	Payload   json.RawMessage
	EventID   domain.EventID
	Timestamp time.Time
}

// Filter composes the conjunctive filters accepted by GetEvents.
type Filter struct {
	// SinceEventID keeps events whose sequence is strictly greater than
	// SinceEventID.Sequence. Nil means no lower bound.
	SinceEventID *domain.EventID

	// Date, when non-nil, keeps only events whose timestamp's local date
	// (in the store's configured time zone) equals this calendar date.
	Date *time.Time

	// Limit, when > 0, retains only the N smallest-sequence events
	// satisfying the other filters.
	Limit int
}

func (f Filter) sinceSequence() int64 {
	if f.SinceEventID == nil {
		return 0
	}
	return f.SinceEventID.Sequence
}

func (f Filter) matchesDate(ts time.Time, loc *time.Location) bool {
	if f.Date == nil {
		return true
	}
	want := f.Date.In(loc)
	got := ts.In(loc)
	wy, wm, wd := want.Date()
	gy, gm, gd := got.Date()
	return wy == gy && wm == gm && wd == gd
}

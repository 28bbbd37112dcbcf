// Package domain holds the core entity types shared across the event
// engine: topics, schemas, events, consumers, permissions and the
// administrative read-models folded by the projection engine.
//
// Import Path: github.com/eventstore/eventcore/internal/domain
package domain

import "fmt"

// Scope identifies the (tenant, namespace) a topic or event belongs to.
// The zero value is the "default" (legacy, unscoped) scope: tenant and
// namespace segments are omitted from storage paths and from the
// canonical EventId text.
type Scope struct {
	TenantName    string
	NamespaceName string
}

// IsDefault reports whether this is the legacy unscoped namespace.
func (s Scope) IsDefault() bool {
	return s.TenantName == "" && s.NamespaceName == ""
}

// Qualified returns the "tenant/namespace/topic" routing key used by the
// consumer registry and dispatcher. For the default scope it degrades to
// the bare topic name.
func (s Scope) Qualified(topic string) string {
	if s.IsDefault() {
		return topic
	}
	return fmt.Sprintf("%s/%s/%s", s.TenantName, s.NamespaceName, topic)
}

// EventID is the opaque, semantically structured identifier of a stored
// event. Its canonical textual form is "<topic>-<sequence>" for the
// default scope, or "<tenant>/<namespace>/<topic>-<sequence>" when scoped.
type EventID struct {
	Topic     string
	Sequence  int64
	TenantID  string
	Namespace string
}

// String renders the canonical textual form of the id.
func (id EventID) String() string {
	if id.TenantID == "" && id.Namespace == "" {
		return fmt.Sprintf("%s-%d", id.Topic, id.Sequence)
	}
	return fmt.Sprintf("%s/%s/%s-%d", id.TenantID, id.Namespace, id.Topic, id.Sequence)
}

// NewEventID builds an EventID for the given scope.
func NewEventID(topic string, sequence int64, scope Scope) EventID {
	return EventID{
		Topic:     topic,
		Sequence:  sequence,
		TenantID:  scope.TenantName,
		Namespace: scope.NamespaceName,
	}
}

// SplitQualified parses a "tenant/namespace/topic" or bare "topic" string
// back into a Scope and topic name. Inverse of Scope.Qualified.
func SplitQualified(qualified string) (Scope, string) {
	var parts []string
	start := 0
	for i := 0; i < len(qualified); i++ {
		if qualified[i] == '/' {
			parts = append(parts, qualified[start:i])
			start = i + 1
		}
	}
	parts = append(parts, qualified[start:])
	if len(parts) == 3 {
		return Scope{TenantName: parts[0], NamespaceName: parts[1]}, parts[2]
	}
	return Scope{}, qualified
}

// CompareEventIDs orders ids first by topic (lexicographic), then by
// sequence. Two ids referencing the same topic are ordered purely by
// sequence, which is the only ordering the dispatcher and event store
// rely on.
func CompareEventIDs(a, b EventID) int {
	if a.Topic != b.Topic {
		if a.Topic < b.Topic {
			return -1
		}
		return 1
	}
	switch {
	case a.Sequence < b.Sequence:
		return -1
	case a.Sequence > b.Sequence:
		return 1
	default:
		return 0
	}
}

package domain

import (
	"encoding/json"
	"time"
)

// JSONValue is a recursive JSON value: string, float64, bool, nil,
// []JSONValue or map[string]JSONValue once decoded. Payloads are kept as
// json.RawMessage on the wire and decoded into this shape only where a
// component (schema validation, projection folding) needs to inspect
// fields.
type JSONValue = interface{}

// Event is an immutable, persisted record in a topic's log.
type Event struct {
	ID        EventID         `json:"-"`
	IDText    string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`

	// ResourceVersion is an optional caller-set copy of ID.Sequence. The
	// event stores leave it zero, and MarshalJSON does not emit it.
	ResourceVersion int64 `json:"resourceVersion,omitempty"`
}

// MarshalJSON emits the canonical wire shape {id, timestamp, type, payload}
// used for the webhook delivery body (§6). FileStore writes its own file
// shape, which adds a "sequence" field.
func (e Event) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID        string          `json:"id"`
		Timestamp time.Time       `json:"timestamp"`
		Type      string          `json:"type"`
		Payload   json.RawMessage `json:"payload"`
	}
	return json.Marshal(wire{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp.UTC(),
		Type:      e.Type,
		Payload:   e.Payload,
	})
}

// UnmarshalJSON parses the canonical wire shape. The scope-qualified topic
// segments of ID are not recoverable from the text form alone; callers
// that need the full EventID must set e.ID.Topic/TenantID/Namespace from
// context (the directory the file was read from) after unmarshalling.
func (e *Event) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID        string          `json:"id"`
		Timestamp time.Time       `json:"timestamp"`
		Type      string          `json:"type"`
		Payload   json.RawMessage `json:"payload"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.IDText = w.ID
	e.Timestamp = w.Timestamp
	e.Type = w.Type
	e.Payload = w.Payload
	return nil
}

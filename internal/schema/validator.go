// Package schema implements SchemaValidator: synchronous, side-effect-free
// validation of event payloads against per-topic, per-event-type JSON
// Schema definitions.
//
// Grounded on github.com/MihailProcudin/event-processor's use of
// xeipuuv/gojsonschema with a compiled-schema cache keyed by event type
// (cmd/event-processor/main.go's SchemaCache), generalized here to key by
// (topic, eventType) since schemas are topic-scoped rather than global.
//
// Import Path: github.com/eventstore/eventcore/internal/schema
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
	"github.com/eventstore/eventcore/internal/pkg/logger"
)

const defaultDraft = "https://json-schema.org/draft/2020-12/schema"

// cacheKey identifies a compiled validator.
type cacheKey struct {
	topic     string
	eventType string
}

// Validator validates event payloads against registered per-topic schemas.
// Besides the compiled-validator cache it keeps a per-topic copy of the
// registered schemas, used to evict a topic's stale compiled entries; the
// schema set itself is owned by the TopicRegistry, which calls
// RegisterSchemas whenever a topic's schema set changes.
type Validator struct {
	mu     sync.RWMutex
	cache  map[cacheKey]*gojsonschema.Schema
	byTopic map[string]map[string]domain.Schema // topic -> eventType -> Schema
}

// New constructs an empty Validator.
func New() *Validator {
	return &Validator{
		cache:   make(map[cacheKey]*gojsonschema.Schema),
		byTopic: make(map[string]map[string]domain.Schema),
	}
}

// RegisterSchemas replaces the active schema set for a topic. Each schema
// must have a nonblank EventType and an explicit Draft identifier.
func (v *Validator) RegisterSchemas(topic string, schemas []domain.Schema) error {
	for _, s := range schemas {
		if s.EventType == "" {
			return apperrors.InvalidArgument("SCHEMA_EVENT_TYPE_REQUIRED", "schema eventType must not be blank")
		}
		if s.Draft == "" {
			return apperrors.InvalidArgument("SCHEMA_DRAFT_REQUIRED", "schema must declare a jsonSchemaDraft")
		}
	}

	compiled := make(map[string]*gojsonschema.Schema, len(schemas))
	byType := make(map[string]domain.Schema, len(schemas))
	for _, s := range schemas {
		sch, err := compile(s)
		if err != nil {
			return apperrors.InvalidArgument("SCHEMA_COMPILE_FAILED", fmt.Sprintf("compiling schema for %s: %v", s.EventType, err))
		}
		compiled[s.EventType] = sch
		byType[s.EventType] = s
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	// Evict any previously cached validators for this topic before
	// installing the new set, so a removed eventType can't be validated
	// against a stale compiled schema.
	for et := range v.byTopic[topic] {
		delete(v.cache, cacheKey{topic: topic, eventType: et})
	}
	v.byTopic[topic] = byType
	for et, sch := range compiled {
		v.cache[cacheKey{topic: topic, eventType: et}] = sch
	}
	return nil
}

// ValidateEvent validates payload against the registered schema for
// (topic, eventType). Returns true on success; a ValidationFailure
// AppError (wrapped as InvalidEventPayload per the spec's naming) on any
// schema violation or unknown (topic, eventType) pair.
func (v *Validator) ValidateEvent(topic, eventType string, payload json.RawMessage) (bool, error) {
	v.mu.RLock()
	sch, ok := v.cache[cacheKey{topic: topic, eventType: eventType}]
	v.mu.RUnlock()

	if !ok {
		return false, invalidPayload(topic, eventType, fmt.Errorf("no schema registered for event type %q on topic %q", eventType, topic))
	}

	loader := gojsonschema.NewBytesLoader(payload)
	result, err := sch.Validate(loader)
	if err != nil {
		return false, invalidPayload(topic, eventType, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		logger.Debug("schema validation failed",
			zap.String("topic", topic),
			zap.String("eventType", eventType),
			zap.Strings("violations", msgs),
		)
		return false, invalidPayload(topic, eventType, fmt.Errorf("%d violation(s): %v", len(msgs), msgs))
	}
	return true, nil
}

func invalidPayload(topic, eventType string, cause error) *apperrors.AppError {
	return apperrors.ValidationFailure(
		"INVALID_EVENT_PAYLOAD",
		fmt.Sprintf("payload for %s/%s failed schema validation", topic, eventType),
		cause,
	)
}

// compile builds a gojsonschema.Schema from a domain.Schema's properties
// and required fields, defaulting to Draft 2020-12 "object" semantics.
func compile(s domain.Schema) (*gojsonschema.Schema, error) {
	draft := s.Draft
	if draft == "" {
		draft = defaultDraft
	}
	doc := map[string]interface{}{
		"$schema": draft,
		"type":    "object",
	}
	if len(s.Properties) > 0 {
		doc["properties"] = s.Properties
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
}

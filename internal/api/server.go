// Package api implements the Ingestion API façade (§6 External
// Interfaces): the thin HTTP surface over TopicRegistry, EventStore,
// ConsumerRegistry, Dispatcher, and ProjectionEngine.
//
// Grounded on the teacher's internal/api/handlers package: a single
// Server struct holding every collaborator, ServerDeps for manual
// dependency injection (ADR-0013: no Wire/Dig), one handler per route
// grouped by resource into its own file.
//
// Import Path: github.com/eventstore/eventcore/internal/api
package api

import (
	"time"

	"github.com/eventstore/eventcore/internal/consumer"
	"github.com/eventstore/eventcore/internal/eventstore"
	"github.com/eventstore/eventcore/internal/projection"
	"github.com/eventstore/eventcore/internal/schema"
	"github.com/eventstore/eventcore/internal/topic"
)

// Server implements every Ingestion API handler.
type Server struct {
	topics      *topic.Registry
	validator   *schema.Validator
	store       eventstore.Store
	consumers   *consumer.Registry
	projections *projection.Engine
	startedAt   time.Time
}

// ServerDeps holds all dependencies for constructing a Server.
type ServerDeps struct {
	Topics      *topic.Registry
	Validator   *schema.Validator
	Store       eventstore.Store
	Consumers   *consumer.Registry
	Projections *projection.Engine
}

// NewServer constructs a Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		topics:      deps.Topics,
		validator:   deps.Validator,
		store:       deps.Store,
		consumers:   deps.Consumers,
		projections: deps.Projections,
		startedAt:   time.Now(),
	}
}

// Package bootstrap implements the Bootstrap component: the idempotent
// start-up routine that ensures the reserved system topics exist and
// seeds the system tenant, management namespace, and an optional admin
// user on first run.
//
// Grounded on the teacher's own bootstrap.go (idempotent seeding guarded
// by a "does state already exist" check before writing) and on
// golang.org/x/crypto/bcrypt for the seed admin's password hash, exactly
// as the teacher hashes credentials during its own seed step.
//
// Import Path: github.com/eventstore/eventcore/internal/bootstrap
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventstore/eventcore/internal/config"
	"github.com/eventstore/eventcore/internal/domain"
	"github.com/eventstore/eventcore/internal/eventstore"
	"github.com/eventstore/eventcore/internal/pkg/logger"
	"github.com/eventstore/eventcore/internal/projection"
	"github.com/eventstore/eventcore/internal/topic"
)

// SystemScope is the reserved scope every system topic lives under. Alias
// kept local so this package's public surface doesn't require importing
// internal/projection just to name the scope.
var SystemScope = projection.SystemScope

const (
	systemTenantID        = "system"
	managementNamespaceID = "management"
)

var systemTopics = []string{
	projection.TopicTenants,
	projection.TopicNamespaces,
	projection.TopicUsers,
	projection.TopicPermissions,
	projection.TopicAPIKeys,
}

// TopicEnsurer is the slice of TopicRegistry bootstrap needs.
type TopicEnsurer interface {
	TopicExists(name string, scope domain.Scope) bool
	CreateTopic(resourceID, tenantResourceID, namespaceResourceID, name string, schemas []domain.Schema, scope domain.Scope) (domain.Topic, error)
	GetAndIncrementSequence(name string, scope domain.Scope) (int64, error)
}

// Bootstrapper runs the idempotent start-up routine.
type Bootstrapper struct {
	topics TopicEnsurer
	store  eventstore.Store
	cfg    config.BootstrapConfig
}

// New constructs a Bootstrapper.
func New(topics TopicEnsurer, store eventstore.Store, cfg config.BootstrapConfig) *Bootstrapper {
	return &Bootstrapper{topics: topics, store: store, cfg: cfg}
}

// Run executes the bootstrap sequence described in §4.7:
//  1. ensure every system topic exists;
//  2. if the tenants topic already has events, exit (already bootstrapped);
//  3. otherwise atomically append tenant.created, namespace.created, and
//     an optional seed admin user pair.
func (b *Bootstrapper) Run(ctx context.Context) error {
	for _, name := range systemTopics {
		if b.topics.TopicExists(name, SystemScope) {
			continue
		}
		if _, err := b.topics.CreateTopic(uuid.NewString(), "", "", name, nil, SystemScope); err != nil {
			return fmt.Errorf("bootstrap: ensuring system topic %q: %w", name, err)
		}
		logger.Info("bootstrap created system topic", zap.String("topic", name))
	}

	existing, err := b.store.GetEvents(projection.TopicTenants, eventstore.Filter{Limit: 1}, SystemScope)
	if err != nil {
		return fmt.Errorf("bootstrap: checking for existing tenants: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("bootstrap already complete, skipping seed")
		return nil
	}

	pending, err := b.seedEvents()
	if err != nil {
		return fmt.Errorf("bootstrap: building seed events: %w", err)
	}
	if _, err := b.store.StoreEvents(pending, SystemScope); err != nil {
		return fmt.Errorf("bootstrap: storing seed events: %w", err)
	}
	logger.Info("bootstrap seeded system tenant and namespace", zap.Int("event_count", len(pending)))
	return nil
}

func (b *Bootstrapper) seedEvents() ([]eventstore.PendingEvent, error) {
	now := time.Now().UTC()
	var pending []eventstore.PendingEvent

	tenantSeq, err := b.topics.GetAndIncrementSequence(projection.TopicTenants, SystemScope)
	if err != nil {
		return nil, err
	}
	tenantPayload, err := json.Marshal(map[string]interface{}{
		"resourceId": systemTenantID,
		"name":       systemTenantID,
	})
	if err != nil {
		return nil, err
	}
	pending = append(pending, eventstore.PendingEvent{
		Topic:     projection.TopicTenants,
		Type:      "tenant.created",
		Payload:   tenantPayload,
		EventID:   domain.NewEventID(projection.TopicTenants, tenantSeq, SystemScope),
		Timestamp: now,
	})

	nsSeq, err := b.topics.GetAndIncrementSequence(projection.TopicNamespaces, SystemScope)
	if err != nil {
		return nil, err
	}
	nsPayload, err := json.Marshal(map[string]interface{}{
		"resourceId":       managementNamespaceID,
		"tenantResourceId": systemTenantID,
		"name":             managementNamespaceID,
	})
	if err != nil {
		return nil, err
	}
	pending = append(pending, eventstore.PendingEvent{
		Topic:     projection.TopicNamespaces,
		Type:      "namespace.created",
		Payload:   nsPayload,
		EventID:   domain.NewEventID(projection.TopicNamespaces, nsSeq, SystemScope),
		Timestamp: now,
	})

	if b.cfg.SystemAdminEmail == "" {
		return pending, nil
	}

	adminID := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(b.cfg.SystemAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing seed admin password: %w", err)
	}

	userSeq, err := b.topics.GetAndIncrementSequence(projection.TopicUsers, SystemScope)
	if err != nil {
		return nil, err
	}
	userPayload, err := json.Marshal(map[string]interface{}{
		"resourceId":   adminID,
		"email":        b.cfg.SystemAdminEmail,
		"passwordHash": string(hash),
	})
	if err != nil {
		return nil, err
	}
	pending = append(pending, eventstore.PendingEvent{
		Topic:     projection.TopicUsers,
		Type:      "user.created",
		Payload:   userPayload,
		EventID:   domain.NewEventID(projection.TopicUsers, userSeq, SystemScope),
		Timestamp: now,
	})

	assignSeq, err := b.topics.GetAndIncrementSequence(projection.TopicUsers, SystemScope)
	if err != nil {
		return nil, err
	}
	assignPayload, err := json.Marshal(map[string]interface{}{
		"resourceId":       adminID,
		"tenantResourceId": systemTenantID,
		"role":             "admin",
	})
	if err != nil {
		return nil, err
	}
	pending = append(pending, eventstore.PendingEvent{
		Topic:     projection.TopicUsers,
		Type:      "user.tenantAssigned",
		Payload:   assignPayload,
		EventID:   domain.NewEventID(projection.TopicUsers, assignSeq, SystemScope),
		Timestamp: now,
	})

	return pending, nil
}

var _ TopicEnsurer = (*topic.Registry)(nil)

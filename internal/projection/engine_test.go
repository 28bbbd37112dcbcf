package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventstore/eventcore/internal/domain"
	"github.com/eventstore/eventcore/internal/eventstore"
)

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestTenantProjector_CreateAndRename(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))

	require.NoError(t, e.Fold(TopicTenants, domain.Event{
		Type:      "tenant.created",
		Timestamp: time.Now(),
		Payload:   mustJSON(t, tenantEventPayload{ResourceID: "t1", Name: "acme"}),
	}))
	tn, ok := e.Tenants().ByName("acme")
	require.True(t, ok)
	assert.Equal(t, "t1", tn.ResourceID)

	require.NoError(t, e.Fold(TopicTenants, domain.Event{
		Type:      "tenant.renamed",
		Timestamp: time.Now(),
		Payload:   mustJSON(t, tenantEventPayload{ResourceID: "t1", Name: "acme-renamed"}),
	}))

	_, ok = e.Tenants().ByName("acme")
	assert.False(t, ok, "old name must no longer resolve after rename")
	tn, ok = e.Tenants().ByName("acme-renamed")
	require.True(t, ok)
	assert.Equal(t, "t1", tn.ResourceID)

	byID, ok := e.Tenants().ByResourceID("t1")
	require.True(t, ok)
	assert.Equal(t, "acme-renamed", byID.Name)
}

func TestTenantProjector_Delete(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicTenants, domain.Event{Type: "tenant.created", Timestamp: time.Now(), Payload: mustJSON(t, tenantEventPayload{ResourceID: "t1", Name: "acme"})}))
	require.NoError(t, e.Fold(TopicTenants, domain.Event{Type: "tenant.deleted", Timestamp: time.Now(), Payload: mustJSON(t, tenantEventPayload{ResourceID: "t1"})}))

	tn, ok := e.Tenants().ByResourceID("t1")
	require.True(t, ok)
	assert.False(t, tn.IsActive())
}

func TestUserProjector_EmailChangeReindexes(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicUsers, domain.Event{Type: "user.created", Timestamp: time.Now(), Payload: mustJSON(t, userEventPayload{ResourceID: "u1", Email: "a@example.com"})}))
	require.NoError(t, e.Fold(TopicUsers, domain.Event{Type: "user.emailChanged", Timestamp: time.Now(), Payload: mustJSON(t, userEventPayload{ResourceID: "u1", Email: "b@example.com"})}))

	_, ok := e.Users().ByEmail("a@example.com")
	assert.False(t, ok)
	u, ok := e.Users().ByEmail("b@example.com")
	require.True(t, ok)
	assert.Equal(t, "u1", u.ResourceID)
}

func TestNamespaceProjector_ScopedByTenant(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicNamespaces, domain.Event{Type: "namespace.created", Timestamp: time.Now(), Payload: mustJSON(t, namespaceEventPayload{ResourceID: "n1", TenantResourceID: "t1", Name: "prod"})}))

	n, ok := e.Namespaces().ByTenantAndName("t1", "prod")
	require.True(t, ok)
	assert.Equal(t, "n1", n.ResourceID)

	_, ok = e.Namespaces().ByTenantAndName("t2", "prod")
	assert.False(t, ok, "same namespace name under a different tenant must not collide")
}

func TestAPIKeyProjector_RevokeAffectsIsActive(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicAPIKeys, domain.Event{Type: "apiKey.created", Timestamp: time.Now(), Payload: mustJSON(t, apiKeyEventPayload{ResourceID: "k1", HashedKey: "hash1"})}))

	k, ok := e.APIKeys().ByHashedKey("hash1")
	require.True(t, ok)
	assert.True(t, k.IsActive(time.Now()))

	require.NoError(t, e.Fold(TopicAPIKeys, domain.Event{Type: "apiKey.revoked", Timestamp: time.Now(), Payload: mustJSON(t, apiKeyEventPayload{ResourceID: "k1"})}))
	k, ok = e.APIKeys().ByHashedKey("hash1")
	require.True(t, ok)
	assert.False(t, k.IsActive(time.Now()))
}

func TestHasPermission_GrantedViaWildcardResource(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicPermissions, domain.Event{
		Type:      "permission.granted",
		Timestamp: time.Now(),
		Payload: mustJSON(t, permissionEventPayload{
			ID:               "g1",
			PrincipalID:      "u1",
			PrincipalType:    "user",
			ResourceType:     "topic",
			TenantResourceID: strPtr("t1"),
			Permissions:      []string{"READ"},
			GrantedBy:        "admin",
		}),
	}))

	assert.True(t, e.HasPermission("u1", domain.PermissionRead, domain.ResourceTopic, "any-topic", "t1", "", "", time.Now()))
	assert.False(t, e.HasPermission("u1", domain.PermissionWrite, domain.ResourceTopic, "any-topic", "t1", "", "", time.Now()))
	assert.False(t, e.HasPermission("u1", domain.PermissionRead, domain.ResourceTopic, "any-topic", "other-tenant", "", "", time.Now()))
}

func TestHasPermission_RevokedGrantNoLongerApplies(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicPermissions, domain.Event{
		Type:      "permission.granted",
		Timestamp: time.Now(),
		Payload:   mustJSON(t, permissionEventPayload{ID: "g1", PrincipalID: "u1", ResourceType: "tenant", Permissions: []string{"ADMIN"}, GrantedBy: "admin"}),
	}))
	assert.True(t, e.HasPermission("u1", domain.PermissionRead, domain.ResourceTenant, "t1", "", "", "", time.Now()))

	require.NoError(t, e.Fold(TopicPermissions, domain.Event{
		Type:      "permission.revoked",
		Timestamp: time.Now(),
		Payload:   mustJSON(t, permissionEventPayload{ID: "g1"}),
	}))
	assert.False(t, e.HasPermission("u1", domain.PermissionRead, domain.ResourceTenant, "t1", "", "", "", time.Now()))
}

func TestHasPermission_PartialRevokeLeavesRemainder(t *testing.T) {
	e := New(eventstore.NewMemoryStore(nil))
	require.NoError(t, e.Fold(TopicPermissions, domain.Event{
		Type:      "permission.granted",
		Timestamp: time.Now(),
		Payload:   mustJSON(t, permissionEventPayload{ID: "g1", PrincipalID: "u1", ResourceType: "tenant", Permissions: []string{"READ", "WRITE"}, GrantedBy: "admin"}),
	}))
	assert.True(t, e.HasPermission("u1", domain.PermissionRead, domain.ResourceTenant, "t1", "", "", "", time.Now()))
	assert.True(t, e.HasPermission("u1", domain.PermissionWrite, domain.ResourceTenant, "t1", "", "", "", time.Now()))

	require.NoError(t, e.Fold(TopicPermissions, domain.Event{
		Type:      "permission.revoked",
		Timestamp: time.Now(),
		Payload:   mustJSON(t, permissionEventPayload{ID: "g1", Permissions: []string{"WRITE"}}),
	}))
	assert.True(t, e.HasPermission("u1", domain.PermissionRead, domain.ResourceTenant, "t1", "", "", "", time.Now()))
	assert.False(t, e.HasPermission("u1", domain.PermissionWrite, domain.ResourceTenant, "t1", "", "", "", time.Now()))
}

func TestRebuild_ReplaysExistingEvents(t *testing.T) {
	store := eventstore.NewMemoryStore(nil)
	_, err := store.StoreEvent(TopicTenants, "tenant.created", mustJSON(t, tenantEventPayload{ResourceID: "t1", Name: "acme"}), domain.NewEventID(TopicTenants, 1, SystemScope), time.Now(), SystemScope)
	require.NoError(t, err)

	e := New(store)
	require.NoError(t, e.Rebuild(context.Background()))

	tn, ok := e.Tenants().ByResourceID("t1")
	require.True(t, ok)
	assert.Equal(t, "acme", tn.Name)
}

func strPtr(s string) *string { return &s }

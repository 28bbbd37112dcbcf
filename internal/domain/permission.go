package domain

import "time"

// Permission is an atomic capability a PermissionGrant confers.
type Permission string

const (
	PermissionRead   Permission = "READ"
	PermissionWrite  Permission = "WRITE"
	PermissionDelete Permission = "DELETE"
	PermissionAdmin  Permission = "ADMIN"
)

// PrincipalType distinguishes the kind of actor a grant applies to.
type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalAPIKey PrincipalType = "api_key"
)

// ResourceType is the kind of resource a grant scopes permissions to.
type ResourceType string

const (
	ResourceTopic     ResourceType = "topic"
	ResourceNamespace ResourceType = "namespace"
	ResourceTenant    ResourceType = "tenant"
)

// PermissionGrant authorizes a principal to act on a resource (or class of
// resources, when ResourceID is nil) within an enclosing scope.
type PermissionGrant struct {
	ID            string
	PrincipalID   string
	PrincipalType PrincipalType
	ResourceType  ResourceType
	ResourceID    *string

	TenantResourceID    *string
	NamespaceResourceID *string
	TopicResourceID     *string

	Permissions map[Permission]struct{}
	Constraints map[string]string

	GrantedBy string
	GrantedAt time.Time
	ExpiresAt *time.Time
}

// IsExpired reports whether the grant has passed its expiry as of now.
func (g PermissionGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// Has reports whether the grant confers p, directly or via ADMIN.
func (g PermissionGrant) Has(p Permission) bool {
	if _, ok := g.Permissions[PermissionAdmin]; ok {
		return true
	}
	_, ok := g.Permissions[p]
	return ok
}

// MatchesResource reports whether the grant applies to the given resource
// instance: same type, and either wildcard (ResourceID == nil) or an
// exact id match.
func (g PermissionGrant) MatchesResource(resourceType ResourceType, resourceID string) bool {
	if g.ResourceType != resourceType {
		return false
	}
	if g.ResourceID == nil {
		return true
	}
	return *g.ResourceID == resourceID
}

// MatchesScope reports whether the grant's enclosing scope matches the
// given scope identifiers. A nil field on the grant acts as a wildcard
// within its enclosing scope.
func (g PermissionGrant) MatchesScope(tenantResourceID, namespaceResourceID, topicResourceID string) bool {
	if g.TenantResourceID != nil && *g.TenantResourceID != tenantResourceID {
		return false
	}
	if g.NamespaceResourceID != nil && *g.NamespaceResourceID != namespaceResourceID {
		return false
	}
	if g.TopicResourceID != nil && *g.TopicResourceID != topicResourceID {
		return false
	}
	return true
}

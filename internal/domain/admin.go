package domain

import "time"

// Tenant is a top-level administrative boundary, folded from the
// "tenants" system topic.
type Tenant struct {
	ResourceID string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	Quota      map[string]int64
	Metadata   map[string]string
}

// IsActive reports whether the tenant has not been soft-deleted.
func (t Tenant) IsActive() bool { return t.DeletedAt == nil }

// Namespace partitions a tenant's topics, folded from the "namespaces"
// system topic.
type Namespace struct {
	ResourceID         string
	TenantResourceID   string
	TenantName         string
	Name               string
	Description        string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	DeletedAt          *time.Time
	Metadata           map[string]string
}

// IsActive reports whether the namespace has not been soft-deleted.
func (n Namespace) IsActive() bool { return n.DeletedAt == nil }

// UserStatus mirrors the lifecycle states folded from "users" events.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
	UserStatusDeleted  UserStatus = "DELETED"
)

// User is an administrative account, folded from the "users" system
// topic. Password material is never exposed outside the projector; only
// the hash survives into the read-model.
type User struct {
	ResourceID     string
	Email          string
	DisplayName    string
	Status         UserStatus
	PasswordHash   string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	TenantNames    map[string]string // tenantResourceId -> role
}

// ApiKey is an API credential, folded from the "api-keys" system topic.
type ApiKey struct {
	ResourceID     string
	PrincipalID    string
	TenantResourceID string
	HashedKey      string
	CreatedAt      time.Time
	RevokedAt      *time.Time
	ExpiresAt      *time.Time
}

// IsActive implements the spec's activation rule:
// revokedAt == null && (expiresAt == null || expiresAt > now).
func (k ApiKey) IsActive(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt == nil {
		return true
	}
	return k.ExpiresAt.After(now)
}

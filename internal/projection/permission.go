package projection

import (
	"sync"
	"time"

	"github.com/eventstore/eventcore/internal/domain"
)

type permissionEventPayload struct {
	ID                  string            `json:"id"`
	PrincipalID         string            `json:"principalId"`
	PrincipalType       string            `json:"principalType"`
	ResourceType        string            `json:"resourceType"`
	ResourceID          *string           `json:"resourceId,omitempty"`
	TenantResourceID    *string           `json:"tenantResourceId,omitempty"`
	NamespaceResourceID *string           `json:"namespaceResourceId,omitempty"`
	TopicResourceID     *string           `json:"topicResourceId,omitempty"`
	Permissions         []string          `json:"permissions"`
	Constraints         map[string]string `json:"constraints,omitempty"`
	GrantedBy           string            `json:"grantedBy"`
	ExpiresAt           *time.Time        `json:"expiresAt,omitempty"`
}

// permissionProjector folds permission.granted/permission.revoked events
// into the set of grants a principal holds, the input the effective
// permission check in cache.go folds over.
type permissionProjector struct {
	mu          sync.RWMutex
	byID        map[string]domain.PermissionGrant
	byPrincipal map[string][]string // principalID -> grant ids
}

func newPermissionProjector() *permissionProjector {
	return &permissionProjector{byID: make(map[string]domain.PermissionGrant), byPrincipal: make(map[string][]string)}
}

func (p *permissionProjector) apply(evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var payload permissionEventPayload
	if err := decodePayload(evt.Payload, &payload); err != nil {
		return err
	}

	switch evt.Type {
	case "permission.granted":
		perms := make(map[domain.Permission]struct{}, len(payload.Permissions))
		for _, s := range payload.Permissions {
			perms[domain.Permission(s)] = struct{}{}
		}
		g := domain.PermissionGrant{
			ID:                  payload.ID,
			PrincipalID:         payload.PrincipalID,
			PrincipalType:       domain.PrincipalType(payload.PrincipalType),
			ResourceType:        domain.ResourceType(payload.ResourceType),
			ResourceID:          payload.ResourceID,
			TenantResourceID:    payload.TenantResourceID,
			NamespaceResourceID: payload.NamespaceResourceID,
			TopicResourceID:     payload.TopicResourceID,
			Permissions:         perms,
			Constraints:         payload.Constraints,
			GrantedBy:           payload.GrantedBy,
			GrantedAt:           evt.Timestamp,
			ExpiresAt:           payload.ExpiresAt,
		}
		p.byID[g.ID] = g
		p.byPrincipal[g.PrincipalID] = append(p.byPrincipal[g.PrincipalID], g.ID)
	case "permission.revoked":
		g, ok := p.byID[payload.ID]
		if !ok {
			return nil
		}
		// An empty list means revoke the grant outright; otherwise only the
		// named permissions are subtracted and the grant survives with the
		// remainder.
		if len(payload.Permissions) > 0 {
			for _, s := range payload.Permissions {
				delete(g.Permissions, domain.Permission(s))
			}
			if len(g.Permissions) > 0 {
				p.byID[g.ID] = g
				return nil
			}
		}
		delete(p.byID, payload.ID)
		ids := p.byPrincipal[g.PrincipalID]
		for i, id := range ids {
			if id == payload.ID {
				p.byPrincipal[g.PrincipalID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	return nil
}

// ForPrincipal returns every non-revoked grant held by principalID.
func (p *permissionProjector) ForPrincipal(principalID string) []domain.PermissionGrant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := p.byPrincipal[principalID]
	out := make([]domain.PermissionGrant, 0, len(ids))
	for _, id := range ids {
		if g, ok := p.byID[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

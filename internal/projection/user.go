package projection

import (
	"sync"

	"github.com/eventstore/eventcore/internal/domain"
)

// UserReader is the read side of the user projector.
type UserReader interface {
	ByResourceID(resourceID string) (domain.User, bool)
	ByEmail(email string) (domain.User, bool)
	All() []domain.User
}

type userEventPayload struct {
	ResourceID       string `json:"resourceId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName,omitempty"`
	PasswordHash     string `json:"passwordHash,omitempty"`
	TenantResourceID string `json:"tenantResourceId,omitempty"`
	Role             string `json:"role,omitempty"`
}

// userProjector folds user.created/user.emailChanged/user.disabled/
// user.deleted/user.tenantAssigned events. Email is rename-safe the same
// way tenant/namespace names are: the index is re-keyed on change, never
// left pointing at a stale value.
type userProjector struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	emailIndex map[string]string // email -> resourceID
}

func newUserProjector() *userProjector {
	return &userProjector{byID: make(map[string]domain.User), emailIndex: make(map[string]string)}
}

func (p *userProjector) apply(evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var payload userEventPayload
	if err := decodePayload(evt.Payload, &payload); err != nil {
		return err
	}

	switch evt.Type {
	case "user.created":
		u := domain.User{
			ResourceID:   payload.ResourceID,
			Email:        payload.Email,
			DisplayName:  payload.DisplayName,
			Status:       domain.UserStatusActive,
			PasswordHash: payload.PasswordHash,
			CreatedAt:    evt.Timestamp,
			TenantNames:  make(map[string]string),
		}
		p.byID[u.ResourceID] = u
		p.emailIndex[u.Email] = u.ResourceID
	case "user.emailChanged":
		u, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		delete(p.emailIndex, u.Email)
		u.Email = payload.Email
		ts := evt.Timestamp
		u.UpdatedAt = &ts
		p.byID[u.ResourceID] = u
		p.emailIndex[u.Email] = u.ResourceID
	case "user.passwordChanged":
		u, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		u.PasswordHash = payload.PasswordHash
		ts := evt.Timestamp
		u.UpdatedAt = &ts
		p.byID[u.ResourceID] = u
	case "user.disabled":
		u, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		u.Status = domain.UserStatusDisabled
		ts := evt.Timestamp
		u.UpdatedAt = &ts
		p.byID[u.ResourceID] = u
	case "user.deleted":
		u, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		u.Status = domain.UserStatusDeleted
		ts := evt.Timestamp
		u.UpdatedAt = &ts
		p.byID[u.ResourceID] = u
	case "user.tenantAssigned":
		u, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		if u.TenantNames == nil {
			u.TenantNames = make(map[string]string)
		}
		u.TenantNames[payload.TenantResourceID] = payload.Role
		p.byID[u.ResourceID] = u
	case "user.tenantUnassigned":
		u, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		delete(u.TenantNames, payload.TenantResourceID)
		p.byID[u.ResourceID] = u
	}
	return nil
}

func (p *userProjector) ByResourceID(resourceID string) (domain.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.byID[resourceID]
	return u, ok
}

func (p *userProjector) ByEmail(email string) (domain.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.emailIndex[email]
	if !ok {
		return domain.User{}, false
	}
	u, ok := p.byID[id]
	return u, ok
}

func (p *userProjector) All() []domain.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.User, 0, len(p.byID))
	for _, u := range p.byID {
		out = append(out, u)
	}
	return out
}

package projection

import (
	"sync"
	"time"

	"github.com/eventstore/eventcore/internal/domain"
)

// APIKeyReader is the read side of the API key projector.
type APIKeyReader interface {
	ByHashedKey(hashedKey string) (domain.ApiKey, bool)
	ByResourceID(resourceID string) (domain.ApiKey, bool)
}

type apiKeyEventPayload struct {
	ResourceID       string     `json:"resourceId"`
	PrincipalID      string     `json:"principalId"`
	TenantResourceID string     `json:"tenantResourceId"`
	HashedKey        string     `json:"hashedKey"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// apiKeyProjector folds apiKey.created/apiKey.revoked events, indexed by
// hashed key for the O(1) credential lookup the authentication path needs
// on every request.
type apiKeyProjector struct {
	mu         sync.RWMutex
	byID       map[string]domain.ApiKey
	hashIndex  map[string]string // hashedKey -> resourceID
}

func newAPIKeyProjector() *apiKeyProjector {
	return &apiKeyProjector{byID: make(map[string]domain.ApiKey), hashIndex: make(map[string]string)}
}

func (p *apiKeyProjector) apply(evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var payload apiKeyEventPayload
	if err := decodePayload(evt.Payload, &payload); err != nil {
		return err
	}

	switch evt.Type {
	case "apiKey.created":
		k := domain.ApiKey{
			ResourceID:       payload.ResourceID,
			PrincipalID:      payload.PrincipalID,
			TenantResourceID: payload.TenantResourceID,
			HashedKey:        payload.HashedKey,
			CreatedAt:        evt.Timestamp,
			ExpiresAt:        payload.ExpiresAt,
		}
		p.byID[k.ResourceID] = k
		p.hashIndex[k.HashedKey] = k.ResourceID
	case "apiKey.revoked":
		k, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		ts := evt.Timestamp
		k.RevokedAt = &ts
		p.byID[k.ResourceID] = k
	}
	return nil
}

func (p *apiKeyProjector) ByHashedKey(hashedKey string) (domain.ApiKey, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.hashIndex[hashedKey]
	if !ok {
		return domain.ApiKey{}, false
	}
	k, ok := p.byID[id]
	return k, ok
}

func (p *apiKeyProjector) ByResourceID(resourceID string) (domain.ApiKey, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	k, ok := p.byID[resourceID]
	return k, ok
}

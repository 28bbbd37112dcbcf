package projection

import (
	"sync"

	"github.com/eventstore/eventcore/internal/domain"
)

// TenantReader is the read side of the tenant projector exposed to the
// rest of the engine.
type TenantReader interface {
	ByResourceID(resourceID string) (domain.Tenant, bool)
	ByName(name string) (domain.Tenant, bool)
	All() []domain.Tenant
}

type tenantEventPayload struct {
	ResourceID string            `json:"resourceId"`
	Name       string            `json:"name"`
	Quota      map[string]int64  `json:"quota,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// tenantProjector folds tenant.created/tenant.renamed/tenant.deleted
// events. A rename updates the name index without disturbing the
// resourceID-keyed record, keeping lookups by the old name correctly
// absent and lookups by resourceID stable across the rename.
type tenantProjector struct {
	mu        sync.RWMutex
	byID      map[string]domain.Tenant
	nameIndex map[string]string // name -> resourceID
}

func newTenantProjector() *tenantProjector {
	return &tenantProjector{byID: make(map[string]domain.Tenant), nameIndex: make(map[string]string)}
}

func (p *tenantProjector) apply(evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var payload tenantEventPayload
	if err := decodePayload(evt.Payload, &payload); err != nil {
		return err
	}

	switch evt.Type {
	case "tenant.created":
		t := domain.Tenant{
			ResourceID: payload.ResourceID,
			Name:       payload.Name,
			CreatedAt:  evt.Timestamp,
			Quota:      payload.Quota,
			Metadata:   payload.Metadata,
		}
		p.byID[t.ResourceID] = t
		p.nameIndex[t.Name] = t.ResourceID
	case "tenant.renamed":
		t, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		delete(p.nameIndex, t.Name)
		t.Name = payload.Name
		ts := evt.Timestamp
		t.UpdatedAt = &ts
		p.byID[t.ResourceID] = t
		p.nameIndex[t.Name] = t.ResourceID
	case "tenant.quotaUpdated":
		t, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		t.Quota = payload.Quota
		ts := evt.Timestamp
		t.UpdatedAt = &ts
		p.byID[t.ResourceID] = t
	case "tenant.deleted":
		t, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		ts := evt.Timestamp
		t.DeletedAt = &ts
		p.byID[t.ResourceID] = t
	}
	return nil
}

func (p *tenantProjector) ByResourceID(resourceID string) (domain.Tenant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.byID[resourceID]
	return t, ok
}

func (p *tenantProjector) ByName(name string) (domain.Tenant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.nameIndex[name]
	if !ok {
		return domain.Tenant{}, false
	}
	t, ok := p.byID[id]
	return t, ok
}

func (p *tenantProjector) All() []domain.Tenant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Tenant, 0, len(p.byID))
	for _, t := range p.byID {
		out = append(out, t)
	}
	return out
}

package projection

import (
	"sync"

	"github.com/eventstore/eventcore/internal/domain"
)

// NamespaceReader is the read side of the namespace projector.
type NamespaceReader interface {
	ByResourceID(resourceID string) (domain.Namespace, bool)
	ByTenantAndName(tenantResourceID, name string) (domain.Namespace, bool)
	ByTenant(tenantResourceID string) []domain.Namespace
}

type namespaceEventPayload struct {
	ResourceID       string            `json:"resourceId"`
	TenantResourceID string            `json:"tenantResourceId"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// namespaceProjector folds namespace.created/namespace.renamed/
// namespace.deleted events, indexed both by resourceID and by
// (tenantResourceID, name) for the common "does this namespace exist"
// lookup the registry and consumer registration paths need.
type namespaceProjector struct {
	mu        sync.RWMutex
	byID      map[string]domain.Namespace
	nameIndex map[string]string // tenantResourceID + "\x00" + name -> resourceID
}

func newNamespaceProjector() *namespaceProjector {
	return &namespaceProjector{byID: make(map[string]domain.Namespace), nameIndex: make(map[string]string)}
}

func nameKey(tenantResourceID, name string) string {
	return tenantResourceID + "\x00" + name
}

func (p *namespaceProjector) apply(evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var payload namespaceEventPayload
	if err := decodePayload(evt.Payload, &payload); err != nil {
		return err
	}

	switch evt.Type {
	case "namespace.created":
		n := domain.Namespace{
			ResourceID:       payload.ResourceID,
			TenantResourceID: payload.TenantResourceID,
			Name:             payload.Name,
			Description:      payload.Description,
			CreatedAt:        evt.Timestamp,
			Metadata:         payload.Metadata,
		}
		p.byID[n.ResourceID] = n
		p.nameIndex[nameKey(n.TenantResourceID, n.Name)] = n.ResourceID
	case "namespace.renamed":
		n, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		delete(p.nameIndex, nameKey(n.TenantResourceID, n.Name))
		n.Name = payload.Name
		ts := evt.Timestamp
		n.UpdatedAt = &ts
		p.byID[n.ResourceID] = n
		p.nameIndex[nameKey(n.TenantResourceID, n.Name)] = n.ResourceID
	case "namespace.deleted":
		n, ok := p.byID[payload.ResourceID]
		if !ok {
			return nil
		}
		ts := evt.Timestamp
		n.DeletedAt = &ts
		p.byID[n.ResourceID] = n
	}
	return nil
}

func (p *namespaceProjector) ByResourceID(resourceID string) (domain.Namespace, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.byID[resourceID]
	return n, ok
}

func (p *namespaceProjector) ByTenantAndName(tenantResourceID, name string) (domain.Namespace, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.nameIndex[nameKey(tenantResourceID, name)]
	if !ok {
		return domain.Namespace{}, false
	}
	n, ok := p.byID[id]
	return n, ok
}

func (p *namespaceProjector) ByTenant(tenantResourceID string) []domain.Namespace {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []domain.Namespace
	for _, n := range p.byID {
		if n.TenantResourceID == tenantResourceID {
			out = append(out, n)
		}
	}
	return out
}

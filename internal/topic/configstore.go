package topic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/eventstore/eventcore/internal/domain"
)

// FileConfigStore persists Topic records under
// <configRoot>/<tenant>/<namespace>/<topic>.json, falling back to the
// legacy flat path <configRoot>/<topic>.json for backward compatibility
// when a scoped file isn't present (§6 Topic config file layout).
type FileConfigStore struct {
	root string
	mu   sync.Mutex
}

// NewFileConfigStore constructs a store rooted at dir, creating it if
// necessary.
func NewFileConfigStore(dir string) (*FileConfigStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileConfigStore{root: dir}, nil
}

type topicConfigFile struct {
	ResourceID          string          `json:"resourceId"`
	TenantResourceID    string          `json:"tenantResourceId,omitempty"`
	NamespaceResourceID string          `json:"namespaceResourceId,omitempty"`
	Name                string          `json:"name"`
	Sequence            int64           `json:"sequence"`
	Schemas             []domain.Schema `json:"schemas"`
	TenantID            string          `json:"tenantId,omitempty"`
	NamespaceID         string          `json:"namespaceId,omitempty"`
}

func (s *FileConfigStore) scopedPath(tenant, namespace, name string) string {
	if tenant == "" && namespace == "" {
		return filepath.Join(s.root, name+".json")
	}
	return filepath.Join(s.root, tenant, namespace, name+".json")
}

func (s *FileConfigStore) legacyPath(name string) string {
	return filepath.Join(s.root, name+".json")
}

// Save writes the topic config file atomically (write-temp, rename).
func (s *FileConfigStore) Save(t domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.scopedPath(t.TenantName, t.NamespaceName, t.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	cfg := topicConfigFile{
		ResourceID:          t.ResourceID,
		TenantResourceID:    t.TenantResourceID,
		NamespaceResourceID: t.NamespaceResourceID,
		Name:                t.Name,
		Sequence:            t.Sequence,
		Schemas:             t.Schemas,
		TenantID:            t.TenantName,
		NamespaceID:         t.NamespaceName,
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a single topic config, trying the scoped path first and
// falling back to the legacy flat path when present.
func (s *FileConfigStore) Load(scope domain.Scope, name string) (domain.Topic, bool, error) {
	path := s.scopedPath(scope.TenantName, scope.NamespaceName, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !scope.IsDefault() {
		data, err = os.ReadFile(s.legacyPath(name))
	}
	if os.IsNotExist(err) {
		return domain.Topic{}, false, nil
	}
	if err != nil {
		return domain.Topic{}, false, err
	}

	var cfg topicConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Topic{}, false, err
	}
	return domain.Topic{
		ResourceID:          cfg.ResourceID,
		TenantResourceID:    cfg.TenantResourceID,
		NamespaceResourceID: cfg.NamespaceResourceID,
		TenantName:          cfg.TenantID,
		NamespaceName:       cfg.NamespaceID,
		Name:                cfg.Name,
		Sequence:            cfg.Sequence,
		Schemas:             cfg.Schemas,
	}, true, nil
}

// LoadAll walks the config root recursively and decodes every *.json
// file found, used to repopulate the registry on startup.
func (s *FileConfigStore) LoadAll() ([]domain.Topic, error) {
	var out []domain.Topic
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		var cfg topicConfigFile
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			return nil // tolerate malformed files the way the event store does for event data
		}
		out = append(out, domain.Topic{
			ResourceID:          cfg.ResourceID,
			TenantResourceID:    cfg.TenantResourceID,
			NamespaceResourceID: cfg.NamespaceResourceID,
			TenantName:          cfg.TenantID,
			NamespaceName:       cfg.NamespaceID,
			Name:                cfg.Name,
			Sequence:            cfg.Sequence,
			Schemas:             cfg.Schemas,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryConfigStore is an in-memory ConfigStore, used in tests and in the
// in-memory storage backend configuration.
type MemoryConfigStore struct {
	mu   sync.RWMutex
	data map[string]domain.Topic
}

// NewMemoryConfigStore constructs an empty in-memory store.
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{data: make(map[string]domain.Topic)}
}

func (s *MemoryConfigStore) key(tenant, namespace, name string) string {
	return tenant + "\x00" + namespace + "\x00" + name
}

// Save inserts or replaces the in-memory record.
func (s *MemoryConfigStore) Save(t domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key(t.TenantName, t.NamespaceName, t.Name)] = t
	return nil
}

// Load retrieves a single record by scope and name.
func (s *MemoryConfigStore) Load(scope domain.Scope, name string) (domain.Topic, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data[s.key(scope.TenantName, scope.NamespaceName, name)]
	return t, ok, nil
}

// LoadAll returns every stored record.
func (s *MemoryConfigStore) LoadAll() ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Topic, 0, len(s.data))
	for _, t := range s.data {
		out = append(out, t)
	}
	return out, nil
}

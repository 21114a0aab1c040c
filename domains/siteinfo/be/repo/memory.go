package repo

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-sites/domains/siteinfo/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type memoryKey struct {
	tenantID tenant.ID
	section  string
}

// MemoryRepository keeps section documents in process. Used by tests and local runs without a database.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[memoryKey]service.Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[memoryKey]service.Document)}
}

func (m *MemoryRepository) Load(_ context.Context, tc tenant.Context, section service.Section) (service.Document, bool, error) {
	id, ok := tc.TenantID()
	if !ok {
		return nil, false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, found := m.docs[memoryKey{tenantID: id, section: section.Name}]
	if !found {
		return nil, false, nil
	}
	return copyDocument(doc), true, nil
}

func (m *MemoryRepository) Save(_ context.Context, tc tenant.Context, section service.Section, doc service.Document) (service.Document, error) {
	id, ok := tc.TenantID()
	if !ok {
		return nil, persistence.ErrTenantUnresolved
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey{tenantID: id, section: section.Name}
	stored := section.Default()
	if prev, found := m.docs[key]; found {
		stored = prev
	}
	for _, f := range section.Writable() {
		stored[f.Key] = doc[f.Key]
	}
	m.docs[key] = stored
	return copyDocument(stored), nil
}

func copyDocument(doc service.Document) service.Document {
	out := make(service.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

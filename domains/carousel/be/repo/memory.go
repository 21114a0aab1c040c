package repo

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-sites/domains/carousel/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// MemoryRepository keeps carousels in process.
type MemoryRepository struct {
	mu        sync.Mutex
	nextID    int64
	carousels map[tenant.ID]service.Carousel
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carousels: make(map[tenant.ID]service.Carousel)}
}

func (m *MemoryRepository) Load(_ context.Context, tc tenant.Context) (service.Carousel, error) {
	id, ok := tc.TenantID()
	if !ok {
		return service.Carousel{Items: []service.Item{}}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.carousels[id]), nil
}

func (m *MemoryRepository) Replace(_ context.Context, tc tenant.Context, items []service.Item) (service.Carousel, error) {
	id, ok := tc.TenantID()
	if !ok {
		return service.Carousel{}, persistence.ErrTenantUnresolved
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.carousels[id]
	if !exists {
		m.nextID++
		stored = service.Carousel{ID: m.nextID}
	}
	stored.Items = make([]service.Item, len(items))
	for i, it := range items {
		m.nextID++
		it.ID = m.nextID
		stored.Items[i] = it
	}
	m.carousels[id] = stored
	return clone(stored), nil
}

func clone(c service.Carousel) service.Carousel {
	c.Items = append([]service.Item{}, c.Items...)
	return c
}

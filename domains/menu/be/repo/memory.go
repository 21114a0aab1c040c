package repo

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// MemoryRepository keeps menus in process.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	menus  map[tenant.ID][]service.Category
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{menus: make(map[tenant.ID][]service.Category)}
}

func (m *MemoryRepository) Load(_ context.Context, tc tenant.Context) ([]service.Category, error) {
	id, ok := tc.TenantID()
	if !ok {
		return []service.Category{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.menus[id]), nil
}

func (m *MemoryRepository) Replace(_ context.Context, tc tenant.Context, categories []service.Category) ([]service.Category, error) {
	id, ok := tc.TenantID()
	if !ok {
		return nil, persistence.ErrTenantUnresolved
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := clone(categories)
	for i := range stored {
		m.nextID++
		stored[i].ID = m.nextID
		for j := range stored[i].Items {
			m.nextID++
			stored[i].Items[j].ID = m.nextID
		}
	}
	m.menus[id] = stored
	return clone(stored), nil
}

func clone(categories []service.Category) []service.Category {
	out := make([]service.Category, len(categories))
	for i, c := range categories {
		c.Items = append([]service.Item(nil), c.Items...)
		if c.Items == nil {
			c.Items = []service.Item{}
		}
		out[i] = c
	}
	return out
}

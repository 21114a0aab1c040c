package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type counterKey struct {
	tenantID tenant.ID
	path     string
	day      time.Time
}

// MemoryRepository keeps daily counters in process.
type MemoryRepository struct {
	mu       sync.Mutex
	counters map[counterKey]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{counters: make(map[counterKey]int)}
}

func (m *MemoryRepository) Increment(_ context.Context, tc tenant.Context, path string, day time.Time) error {
	id, ok := tc.TenantID()
	if !ok {
		return persistence.ErrTenantUnresolved
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counterKey{tenantID: id, path: path, day: day.UTC()}]++
	return nil
}

func (m *MemoryRepository) Since(_ context.Context, tc tenant.Context, day time.Time, path string) ([]service.DailyCount, error) {
	out := []service.DailyCount{}
	id, ok := tc.TenantID()
	if !ok {
		return out, nil
	}

	m.mu.Lock()
	for k, count := range m.counters {
		if k.tenantID != id || k.day.Before(day) || (path != "" && k.path != path) {
			continue
		}
		out = append(out, service.DailyCount{Day: k.day, Path: k.path, Count: count})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

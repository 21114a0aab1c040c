package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// MemoryRepository is an in-memory registry suitable for tests and local development.
// A single mutex stands in for the database's unique constraints and row locks.
type MemoryRepository struct {
	mu         sync.Mutex
	nextID     int64
	domains    map[int64]service.Domain
	byHostname map[string]int64
	tenants    map[tenant.ID]string
	principals map[string]tenant.ID
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		domains:    make(map[int64]service.Domain),
		byHostname: make(map[string]int64),
		tenants:    make(map[tenant.ID]string),
		principals: make(map[string]tenant.ID),
	}
}

// TenantForHostname lets the memory registry back the resolver in tests.
func (r *MemoryRepository) TenantForHostname(_ context.Context, hostname string) (tenant.ID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHostname[hostname]
	if !ok {
		return "", false, nil
	}
	return r.domains[id].TenantID, true, nil
}

// HostnameRegistered reports whether any tenant owns hostname.
func (r *MemoryRepository) HostnameRegistered(ctx context.Context, hostname string) (bool, error) {
	_, ok, err := r.TenantForHostname(ctx, hostname)
	return ok, err
}

// TenantCount returns how many tenants exist.
func (r *MemoryRepository) TenantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tenants)
}

func (r *MemoryRepository) List(_ context.Context, tc tenant.Context) ([]service.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := tc.TenantID()
	out := []service.Domain{}
	if !ok {
		return out, nil
	}
	for _, d := range r.domains {
		if d.TenantID == id {
			out = append(out, d)
		}
	}
	sortDomains(out)
	return out, nil
}

func (r *MemoryRepository) Register(ctx context.Context, req service.RegisterRequest, beforeCommit service.BeforeCommit) (service.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byHostname[req.Hostname]; taken {
		return service.Registration{}, service.ErrHostnameConflict
	}

	tid, linked := r.principals[req.Principal.Subject]
	created := false
	if !linked {
		if claimed := req.Principal.ClaimedTenant; claimed != nil {
			if _, exists := r.tenants[*claimed]; exists {
				tid = *claimed
			}
		}
		if tid == "" {
			tid = req.NewTenantID()
			created = true
		}
	}

	primary := true
	for _, d := range r.domains {
		if d.TenantID == tid {
			primary = false
			break
		}
	}

	if beforeCommit != nil {
		if err := beforeCommit(ctx, tid); err != nil {
			return service.Registration{}, err
		}
	}

	if created {
		r.tenants[tid] = req.NewTenantName
	}
	r.principals[req.Principal.Subject] = tid

	r.nextID++
	d := service.Domain{
		ID:        r.nextID,
		TenantID:  tid,
		Hostname:  req.Hostname,
		Primary:   primary,
		CreatedAt: time.Now().UTC(),
	}
	r.domains[d.ID] = d
	r.byHostname[d.Hostname] = d.ID

	return service.Registration{Domain: d, TenantCreated: created}, nil
}

func (r *MemoryRepository) SetPrimary(_ context.Context, tc tenant.Context, id int64) (service.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.owned(tc, id)
	if err != nil {
		return service.Domain{}, err
	}

	for key, d := range r.domains {
		if d.TenantID == target.TenantID && d.Primary {
			d.Primary = false
			r.domains[key] = d
		}
	}
	target.Primary = true
	r.domains[id] = target
	return target, nil
}

func (r *MemoryRepository) Delete(_ context.Context, tc tenant.Context, id int64) (service.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.owned(tc, id)
	if err != nil {
		return service.Domain{}, err
	}
	if target.Primary {
		return service.Domain{}, service.ErrPrimaryDomain
	}

	delete(r.domains, id)
	delete(r.byHostname, target.Hostname)
	return target, nil
}

func (r *MemoryRepository) owned(tc tenant.Context, id int64) (service.Domain, error) {
	tid, ok := tc.TenantID()
	if !ok {
		return service.Domain{}, service.ErrTenantNotResolved
	}
	d, exists := r.domains[id]
	if !exists || d.TenantID != tid {
		return service.Domain{}, service.ErrDomainNotFound
	}
	return d, nil
}

func sortDomains(ds []service.Domain) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Primary != ds[j].Primary {
			return ds[i].Primary
		}
		return ds[i].Hostname < ds[j].Hostname
	})
}

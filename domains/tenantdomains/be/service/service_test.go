package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/repo"
	"github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type fakeIssuer struct {
	mu    sync.Mutex
	err   error
	calls []tenant.ID
}

func (f *fakeIssuer) IssueTenantClaim(_ context.Context, creds platformauth.UserCredentials, tenantID tenant.ID) (platformauth.SessionGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return platformauth.SessionGrant{}, f.err
	}
	f.calls = append(f.calls, tenantID)
	return platformauth.SessionGrant{Token: "token-for-" + creds.Id, TenantID: tenantID.String()}, nil
}

type recordingInvalidator struct{ hosts []string }

func (r *recordingInvalidator) Invalidate(hostnames ...string) {
	r.hosts = append(r.hosts, hostnames...)
}

func sequentialIDs() func() tenant.ID {
	var mu sync.Mutex
	n := 0
	return func() tenant.ID {
		mu.Lock()
		defer mu.Unlock()
		n++
		return tenant.ID(fmt.Sprintf("tenant-%d", n))
	}
}

func newService(t *testing.T) (*service.Service, *repo.MemoryRepository, *fakeIssuer, *recordingInvalidator) {
	t.Helper()
	memory := repo.NewMemoryRepository()
	issuer := &fakeIssuer{}
	inv := &recordingInvalidator{}
	svc := service.New(memory, issuer, service.WithLookupInvalidator(inv), service.WithIDGenerator(sequentialIDs()))
	return svc, memory, issuer, inv
}

func user(id string, tenantID ...string) *platformauth.UserCredentials {
	name := "Owner " + id
	creds := &platformauth.UserCredentials{Id: id, Email: id + "@example.com", Name: &name}
	if len(tenantID) > 0 {
		creds.TenantID = &tenantID[0]
	}
	return creds
}

func resolved(id tenant.ID) tenant.Context {
	return tenant.Resolved(id, tenant.SourceHost)
}

func TestAddFreshUserCreatesTenantAndClaim(t *testing.T) {
	t.Parallel()
	svc, memory, issuer, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Add(ctx, user("u1"), "https://www.Shop.Example.com:8443/menu")
	require.NoError(t, err)
	require.True(t, res.TenantCreated)
	require.Equal(t, tenant.ID("tenant-1"), res.TenantID)
	require.Equal(t, "shop.example.com", res.Domain.Hostname)
	require.True(t, res.Domain.Primary)
	require.NotNil(t, res.Session)
	require.Equal(t, "token-for-u1", res.Session.Token)
	require.Equal(t, []tenant.ID{"tenant-1"}, issuer.calls)
	require.Equal(t, 1, memory.TenantCount())

	id, ok, err := memory.TenantForHostname(ctx, "shop.example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tenant.ID("tenant-1"), id)
}

func TestAddSecondDomainIsNotPrimaryAndReusesTenant(t *testing.T) {
	t.Parallel()
	svc, memory, issuer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user("u1"), "shop.example.com")
	require.NoError(t, err)

	res, err := svc.Add(ctx, user("u1", "tenant-1"), "cafe.example.com")
	require.NoError(t, err)
	require.False(t, res.TenantCreated)
	require.False(t, res.Domain.Primary)
	require.Nil(t, res.Session)
	require.Len(t, issuer.calls, 1)
	require.Equal(t, 1, memory.TenantCount())
}

func TestAddConflictAcrossTenants(t *testing.T) {
	t.Parallel()
	svc, memory, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user("u1"), "shop.example.com")
	require.NoError(t, err)

	_, err = svc.Add(ctx, user("u2"), "WWW.shop.example.com")
	require.ErrorIs(t, err, service.ErrHostnameConflict)

	// The losing principal got no tenant and the owner is unchanged.
	require.Equal(t, 1, memory.TenantCount())
	id, _, _ := memory.TenantForHostname(ctx, "shop.example.com")
	require.Equal(t, tenant.ID("tenant-1"), id)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)

	_, err := svc.Add(context.Background(), user("u1"), "   ")
	require.ErrorIs(t, err, service.ErrInvalidHostname)

	_, err = svc.Add(context.Background(), user("u1"), "https://")
	require.ErrorIs(t, err, service.ErrInvalidHostname)

	_, err = svc.Add(context.Background(), nil, "shop.example.com")
	require.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestAddClaimFailureRollsBack(t *testing.T) {
	t.Parallel()
	svc, memory, issuer, _ := newService(t)
	issuer.err = errors.New("identity provider down")

	_, err := svc.Add(context.Background(), user("u1"), "shop.example.com")
	require.Error(t, err)
	require.Equal(t, 0, memory.TenantCount())

	registered, err := memory.HostnameRegistered(context.Background(), "shop.example.com")
	require.NoError(t, err)
	require.False(t, registered)
}

func TestConcurrentAddsSameHostname(t *testing.T) {
	t.Parallel()
	svc, memory, _, _ := newService(t)
	ctx := context.Background()

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Add(ctx, user(fmt.Sprintf("u%d", i)), "shop.example.com")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, service.ErrHostnameConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, conflicts)
	require.Equal(t, 1, memory.TenantCount())
}

func TestListOrderingAndIsolation(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user("u1"), "zeta.example.com")
	require.NoError(t, err)
	_, err = svc.Add(ctx, user("u1", "tenant-1"), "beta.example.com")
	require.NoError(t, err)
	_, err = svc.Add(ctx, user("u1", "tenant-1"), "alpha.example.com")
	require.NoError(t, err)
	second, err := svc.Add(ctx, user("u2"), "other.example.com")
	require.NoError(t, err)
	require.Equal(t, tenant.ID("tenant-2"), second.TenantID)

	list, err := svc.List(ctx, resolved("tenant-1"))
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "zeta.example.com", list[0].Hostname)
	require.True(t, list[0].Primary)
	require.Equal(t, "alpha.example.com", list[1].Hostname)
	require.Equal(t, "beta.example.com", list[2].Hostname)

	other, err := svc.List(ctx, resolved(second.TenantID))
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Equal(t, "other.example.com", other[0].Hostname)

	none, err := svc.List(ctx, tenant.Unresolved())
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSetPrimaryKeepsExactlyOne(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, user("u1"), "one.example.com")
	require.NoError(t, err)
	second, err := svc.Add(ctx, user("u1", "tenant-1"), "two.example.com")
	require.NoError(t, err)

	updated, err := svc.SetPrimary(ctx, resolved("tenant-1"), second.Domain.ID)
	require.NoError(t, err)
	require.True(t, updated.Primary)

	list, err := svc.List(ctx, resolved("tenant-1"))
	require.NoError(t, err)
	primaries := 0
	for _, d := range list {
		if d.Primary {
			primaries++
			require.Equal(t, second.Domain.ID, d.ID)
		}
	}
	require.Equal(t, 1, primaries)

	// Setting the current primary again is a no-op.
	_, err = svc.SetPrimary(ctx, resolved("tenant-1"), second.Domain.ID)
	require.NoError(t, err)

	_, err = svc.SetPrimary(ctx, resolved("tenant-1"), first.Domain.ID)
	require.NoError(t, err)
}

func TestSetPrimaryOtherTenantIsNotFound(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	theirs, err := svc.Add(ctx, user("u1"), "one.example.com")
	require.NoError(t, err)
	_, err = svc.Add(ctx, user("u2"), "two.example.com")
	require.NoError(t, err)

	_, err = svc.SetPrimary(ctx, resolved("tenant-2"), theirs.Domain.ID)
	require.ErrorIs(t, err, service.ErrDomainNotFound)

	_, err = svc.SetPrimary(ctx, resolved("tenant-2"), 9999)
	require.ErrorIs(t, err, service.ErrDomainNotFound)

	_, err = svc.SetPrimary(ctx, tenant.Unresolved(), theirs.Domain.ID)
	require.ErrorIs(t, err, service.ErrTenantNotResolved)
}

func TestDeleteRefusesPrimary(t *testing.T) {
	t.Parallel()
	svc, memory, _, inv := newService(t)
	ctx := context.Background()

	primary, err := svc.Add(ctx, user("u1"), "one.example.com")
	require.NoError(t, err)
	secondary, err := svc.Add(ctx, user("u1", "tenant-1"), "two.example.com")
	require.NoError(t, err)

	err = svc.Delete(ctx, resolved("tenant-1"), primary.Domain.ID)
	require.ErrorIs(t, err, service.ErrPrimaryDomain)

	list, err := svc.List(ctx, resolved("tenant-1"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Empty(t, inv.hosts)

	require.NoError(t, svc.Delete(ctx, resolved("tenant-1"), secondary.Domain.ID))
	require.Equal(t, []string{"two.example.com"}, inv.hosts)

	registered, err := memory.HostnameRegistered(ctx, "two.example.com")
	require.NoError(t, err)
	require.False(t, registered)

	// The sole remaining (primary) domain still cannot be removed.
	err = svc.Delete(ctx, resolved("tenant-1"), primary.Domain.ID)
	require.ErrorIs(t, err, service.ErrPrimaryDomain)
}

func TestDeleteOtherTenantIsNotFound(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user("u1"), "one.example.com")
	require.NoError(t, err)
	theirs, err := svc.Add(ctx, user("u1", "tenant-1"), "two.example.com")
	require.NoError(t, err)

	err = svc.Delete(ctx, resolved("tenant-9"), theirs.Domain.ID)
	require.ErrorIs(t, err, service.ErrDomainNotFound)

	err = svc.Delete(ctx, tenant.Unresolved(), theirs.Domain.ID)
	require.ErrorIs(t, err, service.ErrTenantNotResolved)
}

func TestAddUsesExistingClaimedTenant(t *testing.T) {
	t.Parallel()
	svc, memory, issuer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user("u1"), "one.example.com")
	require.NoError(t, err)

	// A second principal already carrying tenant-1's claim joins that tenant.
	res, err := svc.Add(ctx, user("u2", "tenant-1"), "two.example.com")
	require.NoError(t, err)
	require.Equal(t, tenant.ID("tenant-1"), res.TenantID)
	require.False(t, res.TenantCreated)
	require.Nil(t, res.Session)
	require.Len(t, issuer.calls, 1)
	require.Equal(t, 1, memory.TenantCount())
}

func TestAddGeneratesTenantIDOnlyOnCreation(t *testing.T) {
	t.Parallel()
	calls := 0
	svc := service.New(repo.NewMemoryRepository(), &fakeIssuer{}, service.WithIDGenerator(func() tenant.ID {
		calls++
		return tenant.ID(fmt.Sprintf("fresh-%d", calls))
	}))
	ctx := context.Background()

	first, err := svc.Add(ctx, user("u1"), "one.example.com")
	require.NoError(t, err)
	require.True(t, first.TenantCreated)

	_, err = svc.Add(ctx, user("u1"), "two.example.com")
	require.NoError(t, err)
	_, err = svc.Add(ctx, user("u2"), "one.example.com")
	require.ErrorIs(t, err, service.ErrHostnameConflict)

	require.Equal(t, 1, calls)
}

func TestAddReplacesClaimForUnknownTenant(t *testing.T) {
	t.Parallel()
	svc, memory, issuer, _ := newService(t)
	ctx := context.Background()

	// The token names a tenant whose registration never committed.
	res, err := svc.Add(ctx, user("u1", "never-stored"), "one.example.com")
	require.NoError(t, err)
	require.True(t, res.TenantCreated)
	require.Equal(t, tenant.ID("tenant-1"), res.TenantID)
	require.NotNil(t, res.Session)
	require.Equal(t, []tenant.ID{"tenant-1"}, issuer.calls)
	require.Equal(t, 1, memory.TenantCount())
}

package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/repo"
	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

func TestGetEmptySkeleton(t *testing.T) {
	svc := service.New(repo.NewMemoryRepository())

	menu, err := svc.Get(context.Background(), tenant.Unresolved())
	require.NoError(t, err)
	require.Empty(t, menu.TenantID)
	require.NotNil(t, menu.Categories)
	require.Empty(t, menu.Categories)

	menu, err = svc.Get(context.Background(), tenant.Resolved("t1", tenant.SourceHost))
	require.NoError(t, err)
	require.Equal(t, "t1", menu.TenantID)
	require.Empty(t, menu.Categories)
}

func TestPatchReplacesTreeWithDefaults(t *testing.T) {
	svc := service.New(repo.NewMemoryRepository())
	ctx := context.Background()
	tc := tenant.Resolved("t1", tenant.SourceHost)

	menu, err := svc.Patch(ctx, tc, []byte(`{"categories":[
		{"name":"Tacos","sortOrder":5,"items":[{"name":"Al pastor","price":"3.50"},{"name":"Secret","isVisible":false}]},
		{"items":[{"name":"Churros","sortOrder":0}]}
	]}`))
	require.NoError(t, err)
	require.Len(t, menu.Categories, 2)

	first := menu.Categories[0]
	require.Equal(t, "New Category", first.Name)
	require.Equal(t, 2, first.SortOrder)
	require.True(t, first.IsVisible)
	require.Len(t, first.Items, 1)
	require.Equal(t, "Churros", first.Items[0].Name)

	second := menu.Categories[1]
	require.Equal(t, "Tacos", second.Name)
	require.Equal(t, 5, second.SortOrder)
	require.Len(t, second.Items, 1, "hidden items are not served")
	require.Equal(t, "Al pastor", second.Items[0].Name)
	require.Equal(t, 1, second.Items[0].SortOrder)
	require.NotZero(t, second.Items[0].ID)

	// A second patch replaces rather than merges.
	menu, err = svc.Patch(ctx, tc, []byte(`{"categories":[{"name":"Drinks"}]}`))
	require.NoError(t, err)
	require.Len(t, menu.Categories, 1)
	require.Equal(t, "Drinks", menu.Categories[0].Name)
}

func TestPatchWithoutCategoriesLeavesMenu(t *testing.T) {
	svc := service.New(repo.NewMemoryRepository())
	ctx := context.Background()
	tc := tenant.Resolved("t1", tenant.SourceHost)

	_, err := svc.Patch(ctx, tc, []byte(`{"categories":[{"name":"Drinks"}]}`))
	require.NoError(t, err)

	menu, err := svc.Patch(ctx, tc, []byte(`{}`))
	require.NoError(t, err)
	require.Len(t, menu.Categories, 1)
}

func TestPatchIsolatedPerTenant(t *testing.T) {
	svc := service.New(repo.NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Patch(ctx, tenant.Resolved("a", tenant.SourceHost), []byte(`{"categories":[{"name":"A only"}]}`))
	require.NoError(t, err)

	menu, err := svc.Get(ctx, tenant.Resolved("b", tenant.SourceHost))
	require.NoError(t, err)
	require.Empty(t, menu.Categories)
}

func TestPatchRejections(t *testing.T) {
	svc := service.New(repo.NewMemoryRepository())
	ctx := context.Background()
	tc := tenant.Resolved("t1", tenant.SourceHost)

	_, err := svc.Patch(ctx, tenant.Unresolved(), []byte(`{}`))
	require.ErrorIs(t, err, service.ErrTenantNotResolved)

	for _, body := range []string{
		``,
		`not json`,
		`{"unknown":true}`,
		`{"categories":[{"name":42}]}`,
		`{"categories":[{"items":[{"price":"` + strings.Repeat("9", 40) + `"}]}]}`,
	} {
		_, err := svc.Patch(ctx, tc, []byte(body))
		var validation *service.ValidationError
		require.True(t, errors.As(err, &validation), "body %q", body)
	}
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/repo"
	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

func newRouter(t *testing.T, tenantID, claim string) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := tenant.WithContext(req.Context(), tenant.Resolved(tenant.ID(tenantID), tenant.SourceHost))
			if claim != "" {
				ctx = platformauth.WithUser(ctx, &platformauth.UserCredentials{Id: "owner", TenantID: &claim})
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/v1", New(service.New(repo.NewMemoryRepository()), zaptest.NewLogger(t)).Routes)
	return r
}

func TestMenuPatchAndGet(t *testing.T) {
	r := newRouter(t, "t1", "t1")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/menu", strings.NewReader(`{"categories":[{"name":"Tacos","items":[{"name":"Al pastor","price":"3.50"}]}]}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var menu Menu
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menu))
	require.Equal(t, "t1", menu.TenantID)
	require.Len(t, menu.Categories, 1)
	require.Equal(t, "Al pastor", menu.Categories[0].Items[0].Name)
	require.Nil(t, menu.Categories[0].Items[0].Description)
}

func TestMenuPatchRequiresMatchingTenant(t *testing.T) {
	r := newRouter(t, "t1", "t2")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/menu", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMenuPatchInvalidBody(t *testing.T) {
	r := newRouter(t, "t1", "t1")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/menu", strings.NewReader(`{"categories":"nope"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

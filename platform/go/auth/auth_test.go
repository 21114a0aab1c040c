package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCredentialExtractorWithTenantID(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{
		"sub":       "user-1",
		"email":     "owner@example.com",
		"name":      "Owner",
		"tenant_id": " tenant-a ",
	})
	require.NoError(t, err)
	require.Equal(t, "user-1", creds.Id)
	require.NotNil(t, creds.TenantID)
	require.Equal(t, "tenant-a", *creds.TenantID)
	require.Equal(t, "Owner", creds.DisplayName())
}

func TestDefaultCredentialExtractorLegacyTenantKey(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{
		"uid":      "user-2",
		"tenantId": "tenant-b",
	})
	require.NoError(t, err)
	require.Equal(t, "tenant-b", *creds.TenantID)
	require.Equal(t, "user-2", creds.DisplayName())
}

func TestDefaultCredentialExtractorWithoutTenant(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{"sub": "user-3", "tenant_id": "  "})
	require.NoError(t, err)
	require.Nil(t, creds.TenantID)
}

func TestDefaultCredentialExtractorRequiresSubject(t *testing.T) {
	_, err := DefaultCredentialExtractor(map[string]interface{}{"email": "x@example.com"})
	require.Error(t, err)

	_, err = DefaultCredentialExtractor(nil)
	require.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	verify := func(_ context.Context, token string) (map[string]interface{}, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return map[string]interface{}{"sub": "user-1", "tenant_id": "tenant-a"}, nil
	}

	var seen *UserCredentials
	handler := JWT(verify, nil, WithSessionCookie("palmyra_session"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous passes through", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Nil(t, seen)
	})

	t.Run("bearer token", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		require.Equal(t, "tenant-a", *seen.TenantID)
	})

	t.Run("session cookie", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "palmyra_session", Value: "good"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})
}

func TestRequireAuthenticated(t *testing.T) {
	handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &UserCredentials{Id: "u"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnsignedTokenVerifier(t *testing.T) {
	// {"alg":"none"}.{"sub":"dev","tenant_id":"t1"}
	token := "eyJhbGciOiJub25lIn0.eyJzdWIiOiJkZXYiLCJ0ZW5hbnRfaWQiOiJ0MSJ9"
	claims, err := UnsignedTokenVerifier()(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "dev", claims["sub"])
	require.Equal(t, "t1", claims["tenant_id"])

	_, err = UnsignedTokenVerifier()(context.Background(), "garbage")
	require.Error(t, err)
}

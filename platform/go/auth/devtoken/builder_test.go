package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func parts(token string) []string {
	return strings.Split(token, ".")
}

func decodeSegment(t *testing.T, segment string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func decodePayload(t *testing.T, token string) map[string]interface{} {
	t.Helper()
	segments := parts(token)
	require.Len(t, segments, 3)
	require.Empty(t, segments[2])
	return decodeSegment(t, segments[1])
}

func TestBuildUnsignedToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := BuildUnsignedToken(Params{
		ProjectID:     "local-palmyra",
		UserID:        "owner-123",
		Email:         "owner@example.com",
		Name:          "Dev Owner",
		TenantID:      "tenant-a",
		EmailVerified: true,
		ExpiresIn:     2 * time.Hour,
	}, now)
	require.NoError(t, err)

	payload := decodePayload(t, token)
	require.Equal(t, "https://securetoken.google.com/local-palmyra", payload["iss"])
	require.Equal(t, "local-palmyra", payload["aud"])
	require.Equal(t, "owner-123", payload["sub"])
	require.Equal(t, "owner-123", payload["user_id"])
	require.Equal(t, "owner@example.com", payload["email"])
	require.Equal(t, "tenant-a", payload["tenant_id"])
	require.Equal(t, float64(now.Unix()), payload["iat"])
	require.Equal(t, float64(now.Add(2*time.Hour).Unix()), payload["exp"])

	header := decodeSegment(t, parts(token)[0])
	require.Equal(t, "none", header["alg"])
}

func TestBuildUnsignedTokenWithoutTenant(t *testing.T) {
	token, err := BuildUnsignedToken(Params{
		ProjectID: "local-palmyra",
		UserID:    "new-user",
		Email:     "new@example.com",
	}, time.Time{})
	require.NoError(t, err)

	payload := decodePayload(t, token)
	_, hasTenant := payload["tenant_id"]
	require.False(t, hasTenant)
}

func TestBuildUnsignedTokenValidation(t *testing.T) {
	_, err := BuildUnsignedToken(Params{UserID: "u", Email: "e@example.com"}, time.Time{})
	require.ErrorContains(t, err, "projectID")

	_, err = BuildUnsignedToken(Params{ProjectID: "p", Email: "e@example.com"}, time.Time{})
	require.ErrorContains(t, err, "userID")

	_, err = BuildUnsignedToken(Params{ProjectID: "p", UserID: "u"}, time.Time{})
	require.ErrorContains(t, err, "email")

	_, err = BuildUnsignedToken(Params{}, time.Time{})
	require.ErrorContains(t, err, "projectID")
	require.ErrorContains(t, err, "email")
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

func TestObserveResolution(t *testing.T) {
	before := testutil.ToFloat64(TenantResolutions.WithLabelValues("unresolved"))
	ObserveResolution(tenant.SourceNone)
	require.Equal(t, before+1, testutil.ToFloat64(TenantResolutions.WithLabelValues("unresolved")))

	before = testutil.ToFloat64(TenantResolutions.WithLabelValues("origin"))
	ObserveResolution(tenant.SourceOrigin)
	require.Equal(t, before+1, testutil.ToFloat64(TenantResolutions.WithLabelValues("origin")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	Init()
	ObserveRegistryOp("add", "ok")
	ObserveCORS("denied")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "palmyra_domain_registry_ops_total")
	require.Contains(t, rec.Body.String(), "palmyra_cors_decisions_total")
}

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

var (
	TenantResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palmyra_tenant_resolutions_total",
			Help: "Tenant resolutions by the strategy that produced the tenant (unresolved when none did)",
		},
		[]string{"source"},
	)

	CORSDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palmyra_cors_decisions_total",
			Help: "Cross-origin decisions for requests carrying an Origin header",
		},
		[]string{"decision"},
	)

	RegistryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palmyra_domain_registry_ops_total",
			Help: "Domain registry control-plane operations by outcome",
		},
		[]string{"op", "outcome"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default Prometheus registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TenantResolutions)
		prometheus.MustRegister(CORSDecisions)
		prometheus.MustRegister(RegistryOps)
	})
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResolution counts one resolution outcome.
func ObserveResolution(source tenant.Source) {
	label := string(source)
	if label == "" {
		label = "unresolved"
	}
	TenantResolutions.WithLabelValues(label).Inc()
}

// ObserveCORS counts one cross-origin decision (dev_origin, registered, denied, error).
func ObserveCORS(decision string) {
	CORSDecisions.WithLabelValues(decision).Inc()
}

// ObserveRegistryOp counts one registry operation outcome.
func ObserveRegistryOp(op, outcome string) {
	RegistryOps.WithLabelValues(op, outcome).Inc()
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/contracts"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-sites/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
	tenantmiddleware "github.com/zenGate-Global/palmyra-sites/platform/go/tenant/middleware"
)

// hostnameDirectory answers both tenant resolution and CORS registry checks.
type hostnameDirectory interface {
	tenant.Lookup
	platformmiddleware.HostnameRegistry
}

// routeMounter is implemented by every domain handler.
type routeMounter interface {
	Routes(r chi.Router)
}

type routerDeps struct {
	Logger     *zap.Logger
	Directory  hostnameDirectory
	Auth       func(http.Handler) http.Handler
	Handlers   []routeMounter
	Ready      func(ctx context.Context) error
	Resolver   tenant.Options
	DevOrigins []string
	Timeout    time.Duration
}

func newRouter(ctx context.Context, deps routerDeps) (http.Handler, error) {
	spec, err := contracts.Load(ctx)
	if err != nil {
		return nil, err
	}

	deps.Resolver.Lookup = deps.Directory
	resolver := tenant.NewDefaultResolver(deps.Resolver)
	policy := platformmiddleware.NewOriginPolicy(deps.DevOrigins, deps.Directory)

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(timeout),
		platformlogging.RequestLogger(deps.Logger),
		platformmiddleware.TenantCORS(policy, deps.Logger),
	)

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				platformlogging.FromRequest(r, deps.Logger).Warn("readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", metrics.Handler())

	// ---- Swagger UI + OpenAPI JSON (public) ----
	if err := registerDocsRoutes(rootRouter, spec, deps.Logger); err != nil {
		return nil, err
	}

	apiRouter := chi.NewRouter()
	apiRouter.Use(deps.Auth)
	apiRouter.Use(tenantmiddleware.ResolveTenant(resolver, deps.Logger))
	apiRouter.Use(platformmiddleware.RequestTrace)
	apiRouter.Use(oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
	}))
	for _, h := range deps.Handlers {
		h.Routes(apiRouter)
	}

	rootRouter.Mount("/api/v1", apiRouter)
	return rootRouter, nil
}

// overrideOptions maps the override settings onto the resolver chain.
func overrideOptions(cfg config) (tenant.Options, error) {
	if cfg.TenantOverrideEnabled && cfg.isProd() {
		return tenant.Options{}, fmt.Errorf("tenant overrides are forbidden when ENV_KEY=prod")
	}
	return tenant.Options{
		AllowOverrides: cfg.TenantOverrideEnabled,
		OverrideHeader: cfg.TenantOverrideHeader,
		OverrideCookie: cfg.TenantOverrideCookie,
	}, nil
}

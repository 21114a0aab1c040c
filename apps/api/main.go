package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	carouselhandler "github.com/zenGate-Global/palmyra-sites/domains/carousel/be/handler"
	carouselrepo "github.com/zenGate-Global/palmyra-sites/domains/carousel/be/repo"
	carouselservice "github.com/zenGate-Global/palmyra-sites/domains/carousel/be/service"
	menuhandler "github.com/zenGate-Global/palmyra-sites/domains/menu/be/handler"
	menurepo "github.com/zenGate-Global/palmyra-sites/domains/menu/be/repo"
	menuservice "github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	pageviewshandler "github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/handler"
	pageviewsrepo "github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/repo"
	pageviewsservice "github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/service"
	siteinfohandler "github.com/zenGate-Global/palmyra-sites/domains/siteinfo/be/handler"
	siteinforepo "github.com/zenGate-Global/palmyra-sites/domains/siteinfo/be/repo"
	siteinfoservice "github.com/zenGate-Global/palmyra-sites/domains/siteinfo/be/service"
	tenantdomainshandler "github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/handler"
	tenantdomainsrepo "github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/repo"
	tenantdomainsservice "github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/metrics"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
)

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "sites-api",
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	resolverOpts, err := overrideOptions(cfg)
	if err != nil {
		logger.Fatal("tenant overrides", zap.Error(err))
	}
	if resolverOpts.AllowOverrides {
		logger.Warn("tenant override header and cookie are enabled; do not use outside dev/test",
			zap.String("header", cfg.TenantOverrideHeader),
			zap.String("cookie", cfg.TenantOverrideCookie),
			zap.String("env_key", cfg.EnvKey),
		)
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		ApplicationName: "sites-api",
		ConnectTimeout:  cfg.DatabaseConnectTimeout,
		MaxConns:        cfg.DatabaseMaxConns,
		MinConns:        cfg.DatabaseMinConns,
		MaxConnLifetime: cfg.DatabaseMaxConnLifetime,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
		logger.Info("database schema applied")
	}

	metrics.Init()

	authStack, err := buildAuth(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init auth", zap.String("provider", cfg.AuthProvider), zap.Error(err))
	}

	guard := persistence.NewGuard(pool)
	directory := persistence.NewCachedLookup(persistence.NewHostnameLookup(pool), cfg.DomainCacheSize, cfg.DomainCacheTTL)

	domainsService := tenantdomainsservice.New(
		tenantdomainsrepo.NewPostgresRepository(guard),
		authStack.claims,
		tenantdomainsservice.WithLookupInvalidator(directory),
	)
	siteInfoService := siteinfoservice.New(siteinforepo.NewPostgresRepository(guard))
	menuService := menuservice.New(menurepo.NewPostgresRepository(guard))
	carouselService := carouselservice.New(carouselrepo.NewPostgresRepository(guard))
	pageViewsService := pageviewsservice.New(pageviewsrepo.NewPostgresRepository(guard))

	router, err := newRouter(ctx, routerDeps{
		Logger:    logger,
		Directory: directory,
		Auth:      authStack.middleware,
		Handlers: []routeMounter{
			tenantdomainshandler.New(domainsService, logger, cfg.SessionCookie),
			siteinfohandler.New(siteInfoService, logger),
			menuhandler.New(menuService, logger),
			carouselhandler.New(carouselService, logger),
			pageviewshandler.New(pageViewsService, logger),
		},
		Ready:      pool.Ping,
		Resolver:   resolverOpts,
		DevOrigins: cfg.CORSDevOrigins,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal("build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server",
			zap.String("port", cfg.Port),
			zap.String("env_key", cfg.EnvKey),
			zap.String("auth_provider", cfg.AuthProvider),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"net/http"
	"time"

	"cashcount/internal/backend"
	"cashcount/internal/cache"
	"cashcount/internal/cli"
	"cashcount/internal/config"
	"cashcount/internal/core"
	apphttp "cashcount/internal/http"
	applog "cashcount/internal/log"
	"cashcount/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", cfg.DataBackend)
	}

	registryCache := cache.NewLRUCache[[]core.Registry](cfg.RegistryCacheSize, cfg.RegistryCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register("registries", registryCache)
	cacheManager.Register("sessions", cache.CleanerFunc(func() int {
		n, err := res.Sessions.PurgeExpired(context.Background())
		if err != nil {
			logger.Warn("Failed to purge expired sessions", "error", err)
		}
		return int(n)
	}))
	cacheManager.StartCleanup(cfg.CleanupInterval)

	registries := services.NewRegistryService(res.Backend, res.Backend, registryCache)
	svc := apphttp.Services{
		Auth:       services.NewAuthService(res.Backend, res.Sessions, cfg.SessionTTL),
		Registries: registries,
		CashCounts: services.NewCashCountService(registries, res.Backend, res.Backend, res.Publisher),
	}

	checks := make(map[string]apphttp.HealthCheck, len(res.Checks))
	for name, check := range res.Checks {
		checks[name] = apphttp.HealthCheck(check)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           time.Local,
		Checks:             checks,
		CacheEntries:       registryCache.Size,
		Logger:             logger,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to release backend resources", "error", err)
		}
	})

	logger.Info("Starting cashcount server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"session_store", cfg.SessionStore,
		"events", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

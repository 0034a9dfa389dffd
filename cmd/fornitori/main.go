package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fornitori/internal/amqp"
	"fornitori/internal/auth"
	"fornitori/internal/backend"
	"fornitori/internal/cache"
	"fornitori/internal/cli"
	apphttp "fornitori/internal/http"
	applog "fornitori/internal/log"
	"fornitori/internal/mirror"
	"fornitori/internal/services"
	"fornitori/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	m, err := mirror.New(cfg.MirrorDir)
	if err != nil {
		logger.Error("Failed to open local mirror", "error", err, "dir", cfg.MirrorDir)
		os.Exit(1)
	}
	tiered := store.NewTiered(res.Store, m, cfg.RemoteTimeout, logger)

	sessions := auth.NewManager(tiered, auth.Options{
		Secret:            cfg.SessionSecret,
		TTL:               cfg.SessionTTL,
		AdminUsername:     cfg.AdminUsername,
		BootstrapPassword: cfg.AdminBootstrapPassword,
	}, logger)

	// Publishing is optional; without a broker the worker's periodic scan
	// picks up pending entries.
	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache))
	caches.Register(sessions.Sessions())
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:      sessions,
		Suppliers: services.NewSupplierService(tiered, logger),
		Entries:   services.NewEntryService(tiered, publisher, logger),
		Users:     services.NewUserService(tiered, cfg.AdminUsername, logger),
		Reports:   services.NewReportService(tiered, logger),
		Store:     tiered,
	}, logger)
	if err := srv.TrustProxies(cfg.TrustedProxies...); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting fornitori server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"mirror_dir", cfg.MirrorDir,
		"amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

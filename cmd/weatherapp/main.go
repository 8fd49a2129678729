package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/crut0i/weatherapp/internal/api/http"
	"github.com/crut0i/weatherapp/internal/cache"
	"github.com/crut0i/weatherapp/internal/config"
	"github.com/crut0i/weatherapp/internal/history"
	"github.com/crut0i/weatherapp/internal/logarchive"
	"github.com/crut0i/weatherapp/internal/logger"
	"github.com/crut0i/weatherapp/internal/metrics"
	"github.com/crut0i/weatherapp/internal/scheduler"
	"github.com/crut0i/weatherapp/internal/session"
	"github.com/crut0i/weatherapp/internal/storage"
	"github.com/crut0i/weatherapp/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog, err := logger.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Close()

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	defer cacheClient.Close()

	store, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	archive, err := logarchive.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("init log archive: %v", err)
	}

	weatherClient := weather.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.OpenMeteoAPIURL,
		cfg.OpenMeteoGeocodingURL,
	)
	recorder := history.NewRecorder(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleaner := scheduler.New(archive, appLog, cfg.CleanupInterval, cfg.LogRetentionDays,
		func(kind logarchive.Kind) {
			path := "/api/logs"
			if kind == logarchive.KindException {
				path = "/api/exceptions"
			}
			invCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cacheClient.Delete(invCtx, cache.Key(fiber.MethodGet, path)); err != nil {
				appLog.Error("failed to invalidate listing cache",
					zap.String("type", "cleanup"),
					zap.String("path", path),
					zap.Error(err),
				)
			}
		})
	if err := cleaner.Start(); err != nil {
		log.Fatalf("start cleanup scheduler: %v", err)
	}
	defer cleaner.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherapp",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(appLog, appMetrics),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(httpapi.RequestLogger(appLog))
	app.Use(session.New(store, appLog, cfg.SessionCookieName, cfg.SessionExpiryDays))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Cache:           cacheClient,
		Metrics:         appMetrics,
		Log:             appLog,
		Weather:         weatherClient,
		History:         recorder,
		Archive:         archive,
		AuthToken:       cfg.AuthToken,
		CacheExpireList: time.Duration(cfg.CacheExpireList) * time.Second,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Error("server stopped", zap.String("type", "server"), zap.Error(err))
			stop()
		}
	}()

	appLog.Info("server started",
		zap.String("type", "server"),
		zap.String("port", cfg.Port),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLog.Error("shutdown failed", zap.String("type", "server"), zap.Error(err))
	}
	appLog.Info("server stopped", zap.String("type", "server"))
}

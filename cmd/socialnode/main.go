// Package main runs the social ledger node: REST API, event feed, metrics
// and the optional Redis event bridge.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	app "github.com/PSM-Network/social_layer/internal/app"
	"github.com/PSM-Network/social_layer/internal/app/events"
	"github.com/PSM-Network/social_layer/internal/app/httpapi"
	"github.com/PSM-Network/social_layer/internal/app/runtime"
	"github.com/PSM-Network/social_layer/internal/app/storage/postgres"
	"github.com/PSM-Network/social_layer/internal/platform/database"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := runtime.LoadConfig()
	if err != nil {
		logger.NewDefault("socialnode").WithError(err).Error("load config")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Component: "socialnode",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := app.Stores{}
	if cfg.Database.Driver == "postgres" {
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Error("open database")
			os.Exit(1)
		}
		defer db.Close()

		pg := postgres.New(db)
		stores = app.Stores{Tokens: pg, Profiles: pg, Posts: pg, Wallets: pg}
		log.Info("using postgres storage")
	} else {
		log.Info("using in-memory storage")
	}

	application, err := app.New(stores, app.Options{
		MetadataGateway: cfg.Metadata.Gateway,
		StatsSchedule:   cfg.Stats.Schedule,
	}, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Error("parse redis url")
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		publisher := events.NewRedisPublisher(redisClient, application.Events, cfg.Redis.Channel, log)
		if err := application.Attach(publisher); err != nil {
			log.WithError(err).Error("attach redis publisher")
			os.Exit(1)
		}
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	handler, err := httpapi.NewHandler(application, httpapi.Config{
		AuthTokens:     cfg.Auth.Tokens,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuditPath:      cfg.Audit.Path,
		AuditMax:       cfg.Audit.Max,
		WriteRPS:       cfg.Limits.WriteRPS,
		WriteBurst:     cfg.Limits.WriteBurst,
	}, log)
	if err != nil {
		log.WithError(err).Error("build http handler")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.ListenAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}
	log.Info("stopped")
}
